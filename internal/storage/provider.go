// Package storage holds the file bytes behind catalog records: uploaded
// logos, icons, fonts and compositing images.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
)

// Object describes a stored blob.
type Object struct {
	Key         string
	ContentType string
	Size        int64
	Checksum    string // hex SHA-256 of the content, when known
}

// Provider is the interface for object operations. Keys are slash-separated
// and relative to the provider root.
type Provider interface {
	// Put stores the content of r under key, replacing any previous object.
	Put(ctx context.Context, key string, r io.Reader, contentType string) (*Object, error)
	// Open returns a reader for the object. A missing object yields an error
	// wrapping apperr.ErrNotFound.
	Open(ctx context.Context, key string) (io.ReadCloser, *Object, error)
	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
	// Exists reports whether the object is present.
	Exists(ctx context.Context, key string) (bool, error)
	// URL is the public address of the object.
	URL(key string) string
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeFilename reduces name to a single safe path segment.
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	name = unsafeChars.ReplaceAllString(name, "-")
	name = strings.Trim(name, ".-")
	if name == "" {
		return "file"
	}
	return name
}

// AssetKey is the object key of a brand asset file.
func AssetKey(assetType, id, filename string) string {
	return fmt.Sprintf("brand-assets/%s/%s/%s", assetType, id, SanitizeFilename(filename))
}

// ImageKey is the object key of a compositing image.
func ImageKey(imageType, id, filename string) string {
	return fmt.Sprintf("images/%s/%s/%s", imageType, id, SanitizeFilename(filename))
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
