// internal/storage/media/interface.go
// Package media stores uploaded images and resolves their public URLs.
package media

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// MaxUploadSize bounds one uploaded image.
const MaxUploadSize = 5 << 20

// Store defines the interface for media backends. Keys are slash-separated
// relative paths.
type Store interface {
	// Put stores data under key.
	Put(ctx context.Context, key, contentType string, data []byte) error

	// Read retrieves the data under key.
	Read(ctx context.Context, key string) ([]byte, error)

	// Delete removes key.
	Delete(ctx context.Context, key string) error

	// Exists checks if key is stored.
	Exists(ctx context.Context, key string) (bool, error)

	// URL returns the public URL of key.
	URL(key string) string
}

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// ImageExtension returns the file extension for an accepted image type.
func ImageExtension(contentType string) (string, bool) {
	ext, ok := imageExtensions[strings.ToLower(strings.TrimSpace(contentType))]
	return ext, ok
}

// NewKey returns a fresh key under dir for a file of contentType.
func NewKey(dir, contentType string) (string, error) {
	ext, ok := ImageExtension(contentType)
	if !ok {
		return "", fmt.Errorf("unsupported content type %q", contentType)
	}
	return path.Join(dir, uuid.NewString()+ext), nil
}

// cleanKey rejects keys that escape the store root.
func cleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", fmt.Errorf("invalid media key %q", key)
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("invalid media key %q", key)
	}
	return cleaned, nil
}

func joinURL(base, key string) string {
	return strings.TrimSuffix(base, "/") + "/" + key
}
