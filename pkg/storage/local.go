package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type LocalFetcher struct {
	root string
}

func NewLocalFetcher(root string) *LocalFetcher {
	return &LocalFetcher{root: root}
}

// Fetch resolves location under the root. "/uploads/x.pdf" and "x.pdf" both
// map into the root; anything escaping it is refused.
func (f *LocalFetcher) Fetch(ctx context.Context, location string) (io.ReadCloser, error) {
	path, err := f.resolve(location)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", location, err)
	}
	return file, nil
}

func (f *LocalFetcher) resolve(location string) (string, error) {
	root, err := filepath.Abs(f.root)
	if err != nil {
		return "", err
	}

	rel := strings.TrimPrefix(filepath.ToSlash(location), "/")
	rel = strings.TrimPrefix(rel, filepath.Base(root)+"/")

	path := filepath.Join(root, filepath.FromSlash(rel))
	if path != root && !strings.HasPrefix(path, root+string(filepath.Separator)) {
		return "", fmt.Errorf("location %q escapes storage root", location)
	}
	return path, nil
}
