package db

import (
	"github.com/ikkim/churchbook-backend/internal/app/model"
	"github.com/ikkim/churchbook-backend/pkg/logger"
)

// Migrate runs database migrations
func Migrate() error {
	logger.Info("Running database migrations...")

	models := []interface{}{
		&model.Member{},
		&model.Category{},
		&model.Income{},
		&model.Receipt{},
		&model.CharityProfile{},
	}

	if err := DB.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	if err := seedInitialData(); err != nil {
		logger.Error("Failed to seed initial data during migration", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}

// Seed adds initial data to the database (optional)
func Seed() error {
	return seedInitialData()
}

func seedInitialData() error {
	logger.Info("Seeding initial data...")

	// 카테고리 데이터 생성 (헌금 입력 폼에 필요)
	if err := seedCategories(); err != nil {
		logger.Error("Failed to seed categories", err)
		return err
	}

	logger.Info("Initial data seeded successfully")
	return nil
}

// seedCategories 헌금 종류/납부 방법 카테고리 생성
func seedCategories() error {
	var count int64
	if err := DB.Model(&model.Category{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		logger.Info("Categories already seeded, skipping...", map[string]interface{}{
			"existing_count": count,
		})
		return nil
	}

	logger.Info("Seeding category data...")

	categories := []model.Category{
		// 헌금 종류
		{Name: "Ministry", Range: model.RangeIncomeType, SortOrder: 1},
		{Name: "Tithe", Range: model.RangeIncomeType, SortOrder: 2},
		{Name: "Thanks", Range: model.RangeIncomeType, SortOrder: 3},
		{Name: "Mission", Range: model.RangeIncomeType, SortOrder: 4},
		{Name: "Share", Range: model.RangeIncomeType, SortOrder: 5},
		{Name: "Bank", Range: model.RangeIncomeType, SortOrder: 6},
		{Name: "ETC", Range: model.RangeIncomeType, SortOrder: 7},

		// 납부 방법
		{Name: "Cash", Range: model.RangePaymentMethod, SortOrder: 1},
		{Name: "Cheque", Range: model.RangePaymentMethod, SortOrder: 2},
		{Name: "E-Transfer", Range: model.RangePaymentMethod, SortOrder: 3},
		{Name: "Direct Deposit", Range: model.RangePaymentMethod, SortOrder: 4},
	}

	totalInserted := 0
	for _, category := range categories {
		if err := DB.Create(&category).Error; err != nil {
			logger.Error("Failed to create category", err, map[string]interface{}{
				"category": category.Name,
			})
			return err
		}
		totalInserted++
	}

	logger.Info("Categories seeded successfully", map[string]interface{}{
		"total_categories": totalInserted,
	})

	return nil
}
