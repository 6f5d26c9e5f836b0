package storage

import (
	"context"
	"fmt"

	"github.com/BgWv3/procore-doc-downloader/internal/storage/local"
	s3backend "github.com/BgWv3/procore-doc-downloader/internal/storage/s3"
)

// Config selects and configures a backend.
type Config struct {
	Type  string // "local" (default) or "s3"
	Local local.Config
	S3    s3backend.BackendConfig
}

// Open creates the Backend described by cfg.
func Open(ctx context.Context, cfg Config) (Backend, error) {
	switch cfg.Type {
	case "", "local":
		return local.New(cfg.Local)
	case "s3":
		return s3backend.NewBackend(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown backend type: %s", cfg.Type)
	}
}
