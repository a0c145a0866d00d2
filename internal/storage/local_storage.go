package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ikkim/churchbook-backend/pkg/logger"
)

// LocalStorage writes receipt PDFs to a directory on disk. Files live under
// <dir>/<taxYear>/<fileName> and are served by the router at <basePath>.
type LocalStorage struct {
	dir      string
	basePath string
}

func NewLocalStorage(dir, basePath string) *LocalStorage {
	return &LocalStorage{
		dir:      dir,
		basePath: strings.TrimSuffix(basePath, "/"),
	}
}

// Dir returns the root directory receipts are written to.
func (s *LocalStorage) Dir() string {
	return s.dir
}

func (s *LocalStorage) Save(_ context.Context, taxYear int, fileName string, data []byte) (string, error) {
	yearDir := filepath.Join(s.dir, fmt.Sprintf("%d", taxYear))
	if err := os.MkdirAll(yearDir, 0o755); err != nil {
		logger.Error("Failed to create receipt directory", err, map[string]interface{}{
			"dir": yearDir,
		})
		return "", fmt.Errorf("failed to create receipt directory: %w", err)
	}

	path := filepath.Join(yearDir, fileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		logger.Error("Failed to write receipt file", err, map[string]interface{}{
			"path": path,
		})
		return "", fmt.Errorf("failed to write receipt file: %w", err)
	}

	url := fmt.Sprintf("%s/%d/%s", s.basePath, taxYear, fileName)
	logger.Debug("Receipt file written", map[string]interface{}{
		"path": path,
		"url":  url,
		"size": len(data),
	})
	return url, nil
}

func (s *LocalStorage) Delete(_ context.Context, pdfURL string) error {
	path, err := s.pathFromURL(pdfURL)
	if err != nil {
		logger.Error("Refusing to delete receipt file", err, map[string]interface{}{
			"url": pdfURL,
		})
		return err
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			logger.Warn("Receipt file already gone", map[string]interface{}{
				"path": path,
			})
			return nil
		}
		logger.Error("Failed to delete receipt file", err, map[string]interface{}{
			"path": path,
		})
		return fmt.Errorf("failed to delete receipt file: %w", err)
	}

	logger.Debug("Receipt file deleted", map[string]interface{}{
		"path": path,
	})
	return nil
}

// pathFromURL maps a public receipt URL back to a filesystem path. The URL
// must live under the configured base path, and the resolved file must stay
// inside the receipt directory.
func (s *LocalStorage) pathFromURL(pdfURL string) (string, error) {
	rel, ok := strings.CutPrefix(pdfURL, s.basePath+"/")
	if !ok {
		return "", fmt.Errorf("url %q is outside the receipt base path", pdfURL)
	}

	path := filepath.Join(s.dir, filepath.FromSlash(rel))

	absDir, err := filepath.Abs(s.dir)
	if err != nil {
		return "", err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if absPath != absDir && !strings.HasPrefix(absPath, absDir+string(filepath.Separator)) {
		return "", fmt.Errorf("url %q escapes the receipt directory", pdfURL)
	}

	return absPath, nil
}
