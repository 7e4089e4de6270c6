// Package bundle packs a plan's files and a summary document into one zip.
package bundle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"regexp"
	"strings"

	"planhub-be/pkg/storage"

	"github.com/klauspost/compress/zip"
)

// ErrNoFiles means none of the selected files could be added.
var ErrNoFiles = errors.New("no files could be added to the bundle")

const generalFolder = "general"

type Result struct {
	Added   []Entry
	Skipped []Skipped
}

type Assembler struct {
	fetcher storage.Fetcher
	// spoolDir holds each file while it is read in full; empty means os.TempDir.
	spoolDir string
}

func NewAssembler(fetcher storage.Fetcher) *Assembler {
	return &Assembler{fetcher: fetcher}
}

// Build writes files into a zip on w, followed by SUMMARY.txt. Each file is
// spooled to disk before its entry is opened, so a fetch or read failure
// skips that file and is reported instead of failing the archive. Errors
// writing to w still fail the whole bundle.
func (a *Assembler) Build(ctx context.Context, w io.Writer, files []File, info SummaryInfo) (*Result, error) {
	zw := zip.NewWriter(w)
	result := &Result{}
	used := make(map[string]bool)

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entryPath := uniquePath(used, path.Join(folderFor(f), safeName(f.Name)))

		spool, err := a.spool(ctx, f.Location)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			result.Skipped = append(result.Skipped, Skipped{Path: entryPath, Reason: "file unavailable"})
			continue
		}

		written, err := a.writeEntry(zw, entryPath, info, spool)
		discard(spool)
		if err != nil {
			return nil, fmt.Errorf("write %s: %w", entryPath, err)
		}
		result.Added = append(result.Added, Entry{Path: entryPath, Size: written})
	}

	if len(result.Added) == 0 {
		return result, ErrNoFiles
	}

	summary := RenderSummary(info, result.Added, result.Skipped)
	if _, err := a.writeEntry(zw, SummaryFileName, info, strings.NewReader(string(summary))); err != nil {
		return nil, fmt.Errorf("write summary: %w", err)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}
	return result, nil
}

// spool copies one file to a temp file rewound to the start. The caller
// releases it with discard.
func (a *Assembler) spool(ctx context.Context, location string) (*os.File, error) {
	rc, err := a.fetcher.Fetch(ctx, location)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	tmp, err := os.CreateTemp(a.spoolDir, "planhub-bundle-*")
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(tmp, rc); err != nil {
		discard(tmp)
		return nil, err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		discard(tmp)
		return nil, err
	}
	return tmp, nil
}

func discard(f *os.File) {
	f.Close()
	os.Remove(f.Name())
}

func (a *Assembler) writeEntry(zw *zip.Writer, name string, info SummaryInfo, r io.Reader) (int64, error) {
	header := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: info.GeneratedAt,
	}
	dst, err := zw.CreateHeader(header)
	if err != nil {
		return 0, err
	}
	return io.Copy(dst, r)
}

func folderFor(f File) string {
	if f.Deliverable == "" {
		return generalFolder
	}
	return f.Deliverable
}

func safeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "file"
	}
	return name
}

// uniquePath suffixes repeated names: plan.pdf, plan-2.pdf, plan-3.pdf.
func uniquePath(used map[string]bool, p string) string {
	if !used[p] {
		used[p] = true
		return p
	}
	ext := path.Ext(p)
	base := strings.TrimSuffix(p, ext)
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s-%d%s", base, i, ext)
		if !used[candidate] {
			used[candidate] = true
			return candidate
		}
	}
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// ArchiveName turns a plan name into "<slug>.zip".
func ArchiveName(planName string) string {
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(planName), "-"), "-")
	if slug == "" {
		slug = "plan"
	}
	return slug + ".zip"
}
