package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// BlobStore accepts downloaded media and returns a stable reference to attach to an item.
type BlobStore interface {
	// Put stores the contents of r under name and returns its reference.
	Put(ctx context.Context, name string, r io.Reader) (string, error)

	// Remove deletes the blob behind ref. Missing blobs are not an error.
	Remove(ref string) error
}

// DirStore is a [BlobStore] backed by a local directory.
//
// References are baseURL + "/" + name when baseURL is set, otherwise the file path.
type DirStore struct {
	dir     string
	baseURL string
}

// NewDirStore creates dir if needed and returns a store writing into it.
func NewDirStore(dir, baseURL string) (*DirStore, error) {
	if dir == "" {
		return nil, errors.New("media directory is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &DirStore{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// Dir returns the directory blobs are written to.
func (s *DirStore) Dir() string {
	return s.dir
}

// BaseURL returns the URL prefix used in references, empty when references are file paths.
func (s *DirStore) BaseURL() string {
	return s.baseURL
}

// Put writes r to a temporary file and renames it into place once fully written.
func (s *DirStore) Put(ctx context.Context, name string, r io.Reader) (string, error) {
	name = filepath.Base(name)

	tmp, err := os.CreateTemp(s.dir, ".download-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: r}); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close blob: %w", err)
	}

	dest := filepath.Join(s.dir, name)
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("failed to move blob into place: %w", err)
	}

	if s.baseURL == "" {
		return dest, nil
	}
	return s.baseURL + "/" + name, nil
}

// Remove deletes the file behind ref.
func (s *DirStore) Remove(ref string) error {
	if ref == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, path.Base(filepath.ToSlash(ref))))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove blob: %w", err)
	}
	return nil
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
