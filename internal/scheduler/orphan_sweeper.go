package scheduler

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ikkim/churchbook-backend/internal/app/model"
	"github.com/ikkim/churchbook-backend/pkg/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// OrphanSweeper 고아 영수증 PDF 정리 스케줄러. 일련번호 경합에서 진 쪽의
// 파일이나 삭제 중 중단으로 남은 파일은 어떤 영수증 행도 참조하지 않는다.
type OrphanSweeper struct {
	cron       *cron.Cron
	db         *gorm.DB
	receiptDir string
	basePath   string
}

// NewOrphanSweeper 고아 파일 정리 스케줄러 생성 (로컬 드라이버 전용)
func NewOrphanSweeper(db *gorm.DB, receiptDir, basePath string) *OrphanSweeper {
	return &OrphanSweeper{
		cron:       cron.New(),
		db:         db,
		receiptDir: receiptDir,
		basePath:   strings.TrimSuffix(basePath, "/"),
	}
}

// Start 스케줄러 시작
func (s *OrphanSweeper) Start() error {
	// 매일 새벽 3시에 정리
	_, err := s.cron.AddFunc("0 3 * * *", func() {
		if err := s.Sweep(); err != nil {
			logger.Error("Orphan receipt sweep failed", err)
		}
	})
	if err != nil {
		logger.Error("Failed to add cron job for orphan sweep", err)
		return err
	}

	s.cron.Start()
	logger.Info("Orphan receipt sweeper started successfully (daily at 3:00 AM)")
	return nil
}

// Stop 스케줄러 중지
func (s *OrphanSweeper) Stop() {
	logger.Info("Stopping orphan receipt sweeper...")
	s.cron.Stop()
	logger.Info("Orphan receipt sweeper stopped")
}

// Sweep removes local PDF files no receipt row references. Only files older
// than a day are touched, so a generation in flight is never swept.
func (s *OrphanSweeper) Sweep() error {
	logger.Info("Starting orphan receipt sweep", map[string]interface{}{
		"dir": s.receiptDir,
	})

	var urls []string
	if err := s.db.Model(&model.Receipt{}).Pluck("pdf_url", &urls).Error; err != nil {
		logger.Error("Failed to load receipt URLs for sweep", err)
		return err
	}
	referenced := make(map[string]struct{}, len(urls))
	for _, url := range urls {
		referenced[url] = struct{}{}
	}

	cutoff := time.Now().Add(-24 * time.Hour)
	removed := 0

	err := filepath.WalkDir(s.receiptDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".pdf") {
			return nil
		}

		info, err := d.Info()
		if err != nil || info.ModTime().After(cutoff) {
			return nil
		}

		rel, err := filepath.Rel(s.receiptDir, path)
		if err != nil {
			return nil
		}
		url := s.basePath + "/" + filepath.ToSlash(rel)
		if _, ok := referenced[url]; ok {
			return nil
		}

		if rmErr := os.Remove(path); rmErr != nil {
			logger.Warn("Failed to remove orphan receipt file", map[string]interface{}{
				"path":  path,
				"error": rmErr.Error(),
			})
			return nil
		}
		removed++
		logger.Debug("Removed orphan receipt file", map[string]interface{}{
			"path": path,
			"url":  url,
		})
		return nil
	})
	if err != nil {
		logger.Error("Orphan receipt sweep aborted", err)
		return err
	}

	logger.Info("Orphan receipt sweep finished", map[string]interface{}{
		"referenced": len(referenced),
		"removed":    removed,
	})
	return nil
}
