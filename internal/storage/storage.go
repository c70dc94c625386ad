package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/bilgisen/wpsync/internal/config"
)

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("storage: key not found")

// KV persists small JSON documents: the content collections, settings and
// import stats.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Well-known keys.
const (
	KeyNews        = "news_items"
	KeyEvents      = "event_items"
	KeySettings    = "sync_settings"
	KeyImportStats = "import_stats"
)

// New creates the store selected by cfg.StoreBackend.
func New(ctx context.Context, cfg *config.Config) (KV, error) {
	switch cfg.StoreBackend {
	case "", "file":
		return NewFile(cfg.StoragePath)
	case "redis":
		return NewRedis(cfg.RedisURL, cfg.RedisPrefix)
	case "s3":
		return NewS3(ctx, S3Config{
			Endpoint:  cfg.R2Endpoint,
			AccountID: cfg.R2AccountID,
			AccessKey: cfg.R2AccessKey,
			SecretKey: cfg.R2SecretKey,
			Bucket:    cfg.R2Bucket,
			Prefix:    cfg.R2Prefix,
		})
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", cfg.StoreBackend)
	}
}
