package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalStorage writes assets to a directory on disk. The server mounts that
// directory under /media, so the returned URLs resolve against the API host.
// Used in development and tests; production uses S3Storage.
type LocalStorage struct {
	dir  string
	base string
}

var _ ObjectStorage = (*LocalStorage)(nil)

// NewLocalStorage creates the media directory if needed. baseURL is the
// externally visible server address, e.g. "http://localhost:8080".
func NewLocalStorage(dir, baseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: creating media dir %s: %w", dir, err)
	}
	return &LocalStorage{
		dir:  dir,
		base: strings.TrimSuffix(baseURL, "/") + "/media",
	}, nil
}

// Dir returns the directory assets are written to, for the file server.
func (l *LocalStorage) Dir() string { return l.dir }

// Save writes the stream to disk and returns its /media URL.
func (l *LocalStorage) Save(ctx context.Context, r io.Reader, filename, _ string) (string, error) {
	key := objectKey(path.Ext(filename))

	f, err := os.Create(filepath.Join(l.dir, key))
	if err != nil {
		return "", fmt.Errorf("storage: creating %s: %w", key, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("storage: writing %s: %w", key, err)
	}

	return l.base + "/" + key, nil
}
