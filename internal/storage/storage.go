package storage

import (
	"context"
	"fmt"

	"github.com/ikkim/churchbook-backend/config"
)

// ReceiptStorage persists generated receipt PDFs and maps them to the
// public URLs stored on receipt rows.
type ReceiptStorage interface {
	// Save writes the PDF under the tax year folder and returns its public URL.
	Save(ctx context.Context, taxYear int, fileName string, data []byte) (string, error)
	// Delete removes the file a receipt row points at. A missing file is
	// not an error; the row is the source of truth.
	Delete(ctx context.Context, pdfURL string) error
}

// New selects the storage driver from configuration.
func New(cfg *config.StorageConfig) (ReceiptStorage, error) {
	switch cfg.Driver {
	case "local", "":
		return NewLocalStorage(cfg.LocalDir, cfg.BasePath), nil
	case "s3":
		return NewS3Storage(
			cfg.S3.Region,
			cfg.S3.Bucket,
			cfg.S3.AccessKeyID,
			cfg.S3.SecretAccessKey,
			cfg.S3.BaseURL,
		), nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Driver)
	}
}
