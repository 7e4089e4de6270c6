// Package storage opens plan files wherever they live: on local disk, behind
// an http(s) URL, or in an S3 compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

var ErrUnsupportedLocation = errors.New("unsupported file location")

type Fetcher interface {
	Fetch(ctx context.Context, location string) (io.ReadCloser, error)
}

// Router dispatches on the location scheme.
type Router struct {
	Local Fetcher
	HTTP  Fetcher
	S3    Fetcher
}

func (r *Router) Fetch(ctx context.Context, location string) (io.ReadCloser, error) {
	var f Fetcher
	switch {
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		f = r.HTTP
	case strings.HasPrefix(location, "s3://"):
		f = r.S3
	case strings.Contains(location, "://"):
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLocation, location)
	default:
		f = r.Local
	}
	if f == nil {
		return nil, fmt.Errorf("%w: no fetcher configured for %s", ErrUnsupportedLocation, location)
	}
	return f.Fetch(ctx, location)
}
