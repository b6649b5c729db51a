// internal/storage/media/localfs.go
package media

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
)

// LocalFS implements Store on the local filesystem.
type LocalFS struct {
	basePath  string
	publicURL string
}

// NewLocalFS creates the base directory. publicURL is the URL prefix the
// files are served under.
func NewLocalFS(basePath, publicURL string) (*LocalFS, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating base path: %w", err)
	}
	return &LocalFS{basePath: basePath, publicURL: publicURL}, nil
}

func (l *LocalFS) fullPath(key string) (string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(l.basePath, filepath.FromSlash(cleaned)), nil
}

func (l *LocalFS) Put(ctx context.Context, key, contentType string, data []byte) error {
	full, err := l.fullPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return fmt.Errorf("creating directories: %w", err)
	}
	return os.WriteFile(full, data, 0644)
}

func (l *LocalFS) Read(ctx context.Context, key string) ([]byte, error) {
	full, err := l.fullPath(key)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(full)
}

func (l *LocalFS) Delete(ctx context.Context, key string) error {
	full, err := l.fullPath(key)
	if err != nil {
		return err
	}
	return os.Remove(full)
}

func (l *LocalFS) Exists(ctx context.Context, key string) (bool, error) {
	full, err := l.fullPath(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(full)
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

func (l *LocalFS) URL(key string) string {
	return joinURL(l.publicURL, key)
}

// Handler serves stored files. Mount it with the public prefix stripped.
func (l *LocalFS) Handler() http.Handler {
	return http.FileServer(http.Dir(l.basePath))
}
