package bundle

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var generatedAt = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func sampleFiles() []File {
	return []File{
		{Name: "ground-floor.pdf", FileType: "ARCHITECTURAL", Deliverable: "architectural", Location: "a/ground.pdf"},
		{Name: "beams.pdf", FileType: "STRUCTURAL", Deliverable: "structural", Location: "s/beams.pdf"},
		{Name: "boq.xlsx", FileType: "BOQ_MEP", Deliverable: "boq", Location: "b/boq.xlsx"},
		{Name: "front.png", FileType: "RENDER", Deliverable: "renders", Location: "r/front.png"},
		{Name: "cover.jpg", FileType: "THUMBNAIL", Location: "t/cover.jpg"},
		{Name: "permit.pdf", FileType: "COMPLIANCE", Location: "c/permit.pdf"},
	}
}

func names(files []File) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Name)
	}
	return out
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name   string
		filter *Filter
		want   []string
	}{
		{
			name: "no filter keeps everything",
			want: []string{"ground-floor.pdf", "beams.pdf", "boq.xlsx", "front.png", "cover.jpg", "permit.pdf"},
		},
		{
			name:   "filter drops untagged files",
			filter: &Filter{Keys: []string{"architectural"}},
			want:   []string{"ground-floor.pdf"},
		},
		{
			name:   "free keys ride along",
			filter: &Filter{Keys: []string{"structural"}, Free: []string{"renders"}},
			want:   []string{"beams.pdf", "front.png"},
		},
		{
			name:   "only free keys",
			filter: &Filter{Free: []string{"boq"}},
			want:   []string{"boq.xlsx"},
		},
		{
			name:   "nothing matches",
			filter: &Filter{Keys: []string{"interior"}},
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, names(Select(sampleFiles(), tt.filter)))
		})
	}
}

func TestRenderSummary_Golden(t *testing.T) {
	info := SummaryInfo{
		PlanID:        "7d0c7c8e-3c2a-4b8e-9a57-2f6a1d1e9b10",
		PlanName:      "Three Bedroom Bungalow",
		Category:      "Residential",
		Description:   "Single storey family home with an open kitchen.",
		DesignerName:  "Ada Obi",
		CustomerName:  "Bola Ade",
		CustomerEmail: "bola@example.com",
		OrderID:       "ORD-20260301-7D0C7C8E",
		Entitlement:   "architectural, structural",
		GeneratedAt:   generatedAt,
	}
	added := []Entry{
		{Path: "architectural/ground-floor.pdf", Size: 12},
		{Path: "renders/front.png", Size: 9},
	}
	skipped := []Skipped{{Path: "structural/beams.pdf", Reason: "file unavailable"}}

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "summary_partial", RenderSummary(info, added, skipped))
	g.Assert(t, "summary_minimal", RenderSummary(SummaryInfo{PlanID: "p-1", PlanName: "Duplex", GeneratedAt: generatedAt}, added[:1], nil))
}

type mapFetcher map[string]string

func (m mapFetcher) Fetch(ctx context.Context, location string) (io.ReadCloser, error) {
	body, ok := m[location]
	if !ok {
		return nil, errors.New("not found")
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func readZip(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	out := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		out[f.Name] = string(b)
	}
	return out
}

func TestAssembler_Build(t *testing.T) {
	fetcher := mapFetcher{
		"a/ground.pdf": "ground floor",
		"r/front.png":  "png-bytes",
		"t/cover.jpg":  "jpg",
	}
	files := Select(sampleFiles(), nil)

	var buf bytes.Buffer
	res, err := NewAssembler(fetcher).Build(context.Background(), &buf, files, SummaryInfo{PlanName: "Bungalow", GeneratedAt: generatedAt})
	require.NoError(t, err)

	assert.Len(t, res.Added, 3)
	assert.Len(t, res.Skipped, 3)

	entries := readZip(t, buf.Bytes())
	assert.Equal(t, "ground floor", entries["architectural/ground-floor.pdf"])
	assert.Equal(t, "png-bytes", entries["renders/front.png"])
	assert.Equal(t, "jpg", entries["general/cover.jpg"])
	require.Contains(t, entries, SummaryFileName)
	assert.Contains(t, entries[SummaryFileName], "Files (3):")
	assert.Contains(t, entries[SummaryFileName], "- structural/beams.pdf: file unavailable")
}

func TestAssembler_NoFiles(t *testing.T) {
	var buf bytes.Buffer
	_, err := NewAssembler(mapFetcher{}).Build(context.Background(), &buf, sampleFiles(), SummaryInfo{GeneratedAt: generatedAt})
	assert.ErrorIs(t, err, ErrNoFiles)

	_, err = NewAssembler(mapFetcher{}).Build(context.Background(), &buf, nil, SummaryInfo{GeneratedAt: generatedAt})
	assert.ErrorIs(t, err, ErrNoFiles)
}

type failWriter struct{ limit int }

func (w *failWriter) Write(p []byte) (int, error) {
	if w.limit <= 0 {
		return 0, errors.New("disk full")
	}
	if len(p) > w.limit {
		n := w.limit
		w.limit = 0
		return n, errors.New("disk full")
	}
	w.limit -= len(p)
	return len(p), nil
}

func TestAssembler_WriteFailureFailsBundle(t *testing.T) {
	fetcher := mapFetcher{"a/ground.pdf": strings.Repeat("x", 1<<16)}
	files := []File{{Name: "ground.pdf", Deliverable: "architectural", Location: "a/ground.pdf"}}

	_, err := NewAssembler(fetcher).Build(context.Background(), &failWriter{limit: 0}, files, SummaryInfo{GeneratedAt: generatedAt})
	assert.Error(t, err)
}

// brokenReader hands out some bytes and then fails, like a dropped download.
type brokenReader struct{ sent bool }

func (r *brokenReader) Read(p []byte) (int, error) {
	if r.sent {
		return 0, errors.New("connection reset by peer")
	}
	r.sent = true
	return copy(p, "partial-bytes"), nil
}

type flakyFetcher struct {
	mapFetcher
	broken map[string]bool
}

func (f flakyFetcher) Fetch(ctx context.Context, location string) (io.ReadCloser, error) {
	if f.broken[location] {
		return io.NopCloser(&brokenReader{}), nil
	}
	return f.mapFetcher.Fetch(ctx, location)
}

func TestAssembler_MidReadFailureSkipsFile(t *testing.T) {
	fetcher := flakyFetcher{
		mapFetcher: mapFetcher{"a/ground.pdf": "ground floor", "r/front.png": "png-bytes"},
		broken:     map[string]bool{"s/beams.pdf": true},
	}
	files := []File{
		{Name: "ground-floor.pdf", Deliverable: "architectural", Location: "a/ground.pdf"},
		{Name: "beams.pdf", Deliverable: "structural", Location: "s/beams.pdf"},
		{Name: "front.png", Deliverable: "renders", Location: "r/front.png"},
	}

	a := NewAssembler(fetcher)
	a.spoolDir = t.TempDir()

	var buf bytes.Buffer
	res, err := a.Build(context.Background(), &buf, files, SummaryInfo{GeneratedAt: generatedAt})
	require.NoError(t, err)

	assert.Len(t, res.Added, 2)
	assert.Equal(t, []Skipped{{Path: "structural/beams.pdf", Reason: "file unavailable"}}, res.Skipped)

	entries := readZip(t, buf.Bytes())
	assert.NotContains(t, entries, "structural/beams.pdf")
	assert.Equal(t, "ground floor", entries["architectural/ground-floor.pdf"])
	assert.Equal(t, "png-bytes", entries["renders/front.png"])
	assert.Contains(t, entries[SummaryFileName], "- structural/beams.pdf: file unavailable")

	left, err := os.ReadDir(a.spoolDir)
	require.NoError(t, err)
	assert.Empty(t, left, "spooled files are removed")
}

func TestAssembler_OnlyBrokenFilesYieldsNoFiles(t *testing.T) {
	fetcher := flakyFetcher{broken: map[string]bool{"s/beams.pdf": true}}
	files := []File{{Name: "beams.pdf", Deliverable: "structural", Location: "s/beams.pdf"}}

	var buf bytes.Buffer
	res, err := NewAssembler(fetcher).Build(context.Background(), &buf, files, SummaryInfo{GeneratedAt: generatedAt})
	assert.ErrorIs(t, err, ErrNoFiles)
	require.NotNil(t, res)
	assert.Len(t, res.Skipped, 1)
}

func TestAssembler_DuplicateNames(t *testing.T) {
	fetcher := mapFetcher{"one": "1", "two": "2", "three": "3"}
	files := []File{
		{Name: "plan.pdf", Deliverable: "architectural", Location: "one"},
		{Name: "plan.pdf", Deliverable: "architectural", Location: "two"},
		{Name: "../plan.pdf", Deliverable: "architectural", Location: "three"},
	}

	var buf bytes.Buffer
	_, err := NewAssembler(fetcher).Build(context.Background(), &buf, files, SummaryInfo{GeneratedAt: generatedAt})
	require.NoError(t, err)

	entries := readZip(t, buf.Bytes())
	assert.Equal(t, "1", entries["architectural/plan.pdf"])
	assert.Equal(t, "2", entries["architectural/plan-2.pdf"])
	assert.Equal(t, "3", entries["architectural/plan-3.pdf"])
}

func TestArchiveName(t *testing.T) {
	assert.Equal(t, "three-bedroom-bungalow.zip", ArchiveName("Three Bedroom Bungalow"))
	assert.Equal(t, "duplex-v2.zip", ArchiveName("  Duplex (v2) "))
	assert.Equal(t, "plan.zip", ArchiveName("***"))
}
