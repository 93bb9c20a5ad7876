// Package storage reads product image attachments and archives exported
// shipping documents, either on the local filesystem or in an S3-compatible
// bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"go.uber.org/zap"

	"github.com/erp/console/internal/domain/catalog"
	"github.com/erp/console/internal/infrastructure/config"
)

var (
	// ErrKeyRequired is returned for an empty object key
	ErrKeyRequired = errors.New("storage key is required")
	// ErrObjectNotFound is returned when the key does not exist
	ErrObjectNotFound = errors.New("storage object not found")
)

// Object describes a stored file
type Object struct {
	Key         string
	Size        int64
	ContentType string
}

// Store is the object storage used by the console
type Store interface {
	// Stat returns the object metadata or ErrObjectNotFound.
	Stat(ctx context.Context, key string) (Object, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
	// Put writes data under key and returns a location the operator can use
	// to find it again (a file path or an s3:// URL).
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Option configures a Store
type Option func(*options)

type options struct {
	logger *zap.Logger
	s3     s3API
}

// WithLogger sets a custom logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func buildOptions(opts []Option) *options {
	o := &options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// New creates the store selected by cfg.Type
func New(cfg *config.StorageConfig, opts ...Option) (Store, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	switch cfg.Type {
	case "", "local":
		return NewLocalStore(cfg.Dir, opts...)
	case "s3":
		return NewS3Store(cfg, opts...)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

// Attachment builds an upload attachment for key. Content is opened lazily
// when the request body is encoded.
func Attachment(ctx context.Context, st Store, key string) (catalog.Attachment, error) {
	obj, err := st.Stat(ctx, key)
	if err != nil {
		return catalog.Attachment{}, err
	}
	return catalog.Attachment{
		Name:        path.Base(obj.Key),
		Size:        obj.Size,
		ContentType: obj.ContentType,
		Open: func() (io.ReadCloser, error) {
			return st.Open(ctx, key)
		},
	}, nil
}
