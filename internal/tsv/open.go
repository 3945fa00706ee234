// Package tsv reads expression matrices and gene set catalogs and writes the
// tab-separated result tables of the command line tool.
package tsv

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Open opens path for reading, transparently decompressing ".gz" and ".zst"
// files.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := Decompress(f, path)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("tsv: %s: %w", path, err)
	}
	return r, nil
}

// Decompress wraps rc in a decoder chosen by the extension of name. Closing
// the result closes rc.
func Decompress(rc io.ReadCloser, name string) (io.ReadCloser, error) {
	br := bufio.NewReader(rc)
	switch {
	case strings.HasSuffix(name, ".gz"):
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, err
		}
		return &stacked{Reader: zr, closers: []io.Closer{zr, rc}}, nil
	case strings.HasSuffix(name, ".zst"):
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, err
		}
		return &stacked{Reader: zr, closers: []io.Closer{zr.IOReadCloser(), rc}}, nil
	default:
		return &stacked{Reader: br, closers: []io.Closer{rc}}, nil
	}
}

type stacked struct {
	io.Reader
	closers []io.Closer
}

func (s *stacked) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
