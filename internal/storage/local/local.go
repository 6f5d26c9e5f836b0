// Package local provides a local filesystem storage backend.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/BgWv3/procore-doc-downloader/internal/logging"
	"github.com/BgWv3/procore-doc-downloader/internal/metrics"
)

// ErrInvalidKey is returned for keys that would resolve outside the root.
var ErrInvalidKey = errors.New("key is not a local relative path")

// Config holds local filesystem backend settings.
type Config struct {
	RootPath string
}

// LocalBackend writes the mirror below a root directory.
type LocalBackend struct {
	rootPath string
}

// New creates a local backend, creating the root directory if needed.
func New(cfg Config) (*LocalBackend, error) {
	if cfg.RootPath == "" {
		return nil, fmt.Errorf("root path is required")
	}

	info, err := os.Stat(cfg.RootPath)
	switch {
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(cfg.RootPath, 0755); mkErr != nil {
			return nil, fmt.Errorf("create root path %s: %w", cfg.RootPath, mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("stat root path %s: %w", cfg.RootPath, err)
	case !info.IsDir():
		return nil, fmt.Errorf("root path %s is not a directory", cfg.RootPath)
	}

	return &LocalBackend{rootPath: cfg.RootPath}, nil
}

func (b *LocalBackend) fullPath(key string) (string, error) {
	rel := filepath.FromSlash(key)
	if key == "" || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(b.rootPath, rel), nil
}

// MakeDir creates the directory key and its parents.
func (b *LocalBackend) MakeDir(_ context.Context, key string) error {
	path, err := b.fullPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("create dir %s: %w", key, err)
	}
	return nil
}

// PutObject writes content atomically, replacing any existing file.
func (b *LocalBackend) PutObject(_ context.Context, key string, body io.Reader, size int64) error {
	start := time.Now()
	err := b.putObject(key, body)
	metrics.RecordStorageOperation(b.Type(), "put_object", time.Since(start), err == nil)
	return err
}

func (b *LocalBackend) putObject(key string, body io.Reader) error {
	path, err := b.fullPath(key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create dirs for %s: %w", key, err)
	}

	// Write to temp file then rename so a failed download never leaves a
	// truncated file under the final name.
	tmp, err := os.CreateTemp(dir, ".docmirror-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", key, err)
	}
	tmpName := tmp.Name()

	written, err := io.Copy(tmp, body)
	if err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp for %s: %w", key, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", key, err)
	}

	logging.Debug("wrote file", zap.String("path", path), zap.Int64("size", written))
	return nil
}

// Location returns the absolute file path for key.
func (b *LocalBackend) Location(key string) string {
	path := filepath.Join(b.rootPath, filepath.FromSlash(key))
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// Type returns "local".
func (b *LocalBackend) Type() string {
	return "local"
}
