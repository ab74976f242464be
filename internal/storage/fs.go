package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/starford/brandvault/internal/apperr"
	"github.com/starford/brandvault/internal/checksum"
)

// FS implements Provider backed by the local file system.
type FS struct {
	root       string // absolute path to object directory
	publicPath string
}

var _ Provider = (*FS)(nil)

// NewFS creates a new FS provider rooted at the given directory, creating
// it if needed. Object URLs are publicPath + "/" + key.
func NewFS(root, publicPath string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs, publicPath: publicPath}, nil
}

// Root is the absolute object directory.
func (f *FS) Root() string { return f.root }

// KeyOf maps an absolute path under the root back to its object key.
func (f *FS) KeyOf(abs string) (string, bool) {
	rel, err := filepath.Rel(f.root, abs)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// safePath resolves a key against the root and rejects any result that
// escapes it (directory traversal).
func (f *FS) safePath(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("storage: %w: empty key", apperr.ErrInvalid)
	}
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: %w: absolute key %s", apperr.ErrInvalid, key)
	}
	abs, err := filepath.Abs(filepath.Join(f.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: %w: key escapes root: %s", apperr.ErrInvalid, key)
	}
	return abs, nil
}

// Put atomically writes the object: tmp file → fsync → rename.
func (f *FS) Put(_ context.Context, key string, r io.Reader, contentType string) (*Object, error) {
	abs, err := f.safePath(key)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("storage: read body: %w", err)
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".brandvault-tmp-*")
	if err != nil {
		return nil, fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return nil, fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return nil, fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return nil, fmt.Errorf("storage: rename: %w", err)
	}
	success = true

	if contentType == "" {
		contentType = mimetype.Detect(data).String()
	}
	return &Object{
		Key:         key,
		ContentType: contentType,
		Size:        int64(len(data)),
		Checksum:    checksum.Sum(data),
	}, nil
}

// Open returns the object file. The content type is sniffed from its head.
func (f *FS) Open(_ context.Context, key string) (io.ReadCloser, *Object, error) {
	abs, err := f.safePath(key)
	if err != nil {
		return nil, nil, err
	}
	file, err := os.Open(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("storage: open %s: %w", key, apperr.ErrNotFound)
		}
		return nil, nil, fmt.Errorf("storage: open %s: %w", key, err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("storage: stat %s: %w", key, err)
	}
	if info.IsDir() {
		file.Close()
		return nil, nil, fmt.Errorf("storage: open %s: %w", key, apperr.ErrNotFound)
	}
	mt, err := mimetype.DetectReader(file)
	if err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("storage: detect %s: %w", key, err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("storage: rewind %s: %w", key, err)
	}
	sum, err := checksum.SumReader(file)
	if err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("storage: digest %s: %w", key, err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("storage: rewind %s: %w", key, err)
	}
	return file, &Object{Key: key, ContentType: mt.String(), Size: info.Size(), Checksum: sum}, nil
}

// Delete removes the object file and any directories it leaves empty.
func (f *FS) Delete(_ context.Context, key string) error {
	abs, err := f.safePath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: delete %s: %w", key, err)
	}
	for dir := filepath.Dir(abs); dir != f.root && strings.HasPrefix(dir, f.root); dir = filepath.Dir(dir) {
		if os.Remove(dir) != nil {
			break
		}
	}
	return nil
}

// Exists reports whether a regular file is stored under key.
func (f *FS) Exists(_ context.Context, key string) (bool, error) {
	abs, err := f.safePath(key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage: stat %s: %w", key, err)
	}
	return info.Mode().IsRegular(), nil
}

// URL returns the path the API serves the object under.
func (f *FS) URL(key string) string {
	return joinURL(f.publicPath, key)
}
