package db

import (
	"fmt"
	"log"

	"github.com/ikkim/churchbook-backend/internal/app/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB 테스트용 인메모리 SQLite를 만들고 전체 스키마를 마이그레이션한다.
func SetupTestDB() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test database: %w", err)
	}

	// SQLite는 기본으로 외래 키를 끄고 시작한다. 교인 삭제의 RESTRICT
	// 제약이 테스트에서도 동작해야 한다.
	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := db.AutoMigrate(
		&model.Member{},
		&model.Category{},
		&model.Income{},
		&model.Receipt{},
		&model.CharityProfile{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate test database: %w", err)
	}

	return db, nil
}

// CleanupTestDB 테스트 DB 연결을 닫는다.
func CleanupTestDB(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Failed to get DB instance: %v", err)
		return
	}
	sqlDB.Close()
}

// TruncateAllTables 모든 테이블의 데이터를 비운다. 외래 키 순서를 지킨다.
func TruncateAllTables(db *gorm.DB) error {
	tables := []string{"receipts", "incomes", "members", "categories", "charity_profiles"}
	for _, table := range tables {
		if err := db.Exec(fmt.Sprintf("DELETE FROM %s", table)).Error; err != nil {
			return err
		}
	}
	return nil
}
