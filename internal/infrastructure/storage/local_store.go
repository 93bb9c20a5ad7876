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
	"go.uber.org/zap"
)

// LocalStore keeps objects as files below a root directory. Absolute keys
// are used as-is so the operator can attach any file on disk.
type LocalStore struct {
	root   string
	logger *zap.Logger
}

// NewLocalStore creates a LocalStore rooted at dir ("." when empty)
func NewLocalStore(dir string, opts ...Option) (*LocalStore, error) {
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid storage directory: %w", err)
	}
	o := buildOptions(opts)
	return &LocalStore{root: abs, logger: o.logger}, nil
}

// Root returns the directory objects are stored under
func (l *LocalStore) Root() string {
	return l.root
}

func (l *LocalStore) resolve(key string) (string, error) {
	if key == "" {
		return "", ErrKeyRequired
	}
	if filepath.IsAbs(key) {
		return filepath.Clean(key), nil
	}
	p := filepath.Join(l.root, filepath.FromSlash(key))
	if p != l.root && !strings.HasPrefix(p, l.root+string(filepath.Separator)) {
		return "", fmt.Errorf("storage key %q escapes %s", key, l.root)
	}
	return p, nil
}

// Stat returns the size and detected content type of key
func (l *LocalStore) Stat(ctx context.Context, key string) (Object, error) {
	p, err := l.resolve(key)
	if err != nil {
		return Object{}, err
	}
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Object{}, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return Object{}, fmt.Errorf("failed to stat %s: %w", key, err)
	}
	if info.IsDir() {
		return Object{}, fmt.Errorf("storage key %q is a directory", key)
	}
	mt, err := mimetype.DetectFile(p)
	if err != nil {
		return Object{}, fmt.Errorf("failed to detect content type of %s: %w", key, err)
	}
	return Object{Key: key, Size: info.Size(), ContentType: mt.String()}, nil
}

// Open opens key for reading
func (l *LocalStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	p, err := l.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, fmt.Errorf("failed to open %s: %w", key, err)
	}
	return f, nil
}

// Exists reports whether key is present
func (l *LocalStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := l.Stat(ctx, key)
	if errors.Is(err, ErrObjectNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Put writes data to key, creating parent directories
func (l *LocalStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	p, err := l.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", key, err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", key, err)
	}
	l.logger.Debug("Stored object",
		zap.String("path", p),
		zap.Int("size", len(data)),
		zap.String("content_type", contentType),
	)
	return p, nil
}
