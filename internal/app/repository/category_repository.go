package repository

import (
	"github.com/ikkim/churchbook-backend/internal/app/model"
	"github.com/ikkim/churchbook-backend/pkg/logger"
	"gorm.io/gorm"
)

type CategoryRepository interface {
	FindByRange(categoryRange model.CategoryRange) ([]model.Category, error)
	FindByID(id uint) (*model.Category, error)
	FindAll() ([]model.Category, error)
}

type categoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) FindByRange(categoryRange model.CategoryRange) ([]model.Category, error) {
	logger.Debug("Finding categories by range in database", map[string]interface{}{
		"range": categoryRange,
	})

	var categories []model.Category
	if err := r.db.Where("range = ?", categoryRange).
		Order("sort_order ASC, id ASC").
		Find(&categories).Error; err != nil {
		logger.Error("Failed to find categories by range in database", err, map[string]interface{}{
			"range": categoryRange,
		})
		return nil, err
	}

	return categories, nil
}

func (r *categoryRepository) FindByID(id uint) (*model.Category, error) {
	var category model.Category
	if err := r.db.First(&category, id).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			logger.Error("Failed to find category by ID in database", err, map[string]interface{}{
				"category_id": id,
			})
		}
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) FindAll() ([]model.Category, error) {
	var categories []model.Category
	if err := r.db.Order("range ASC, sort_order ASC, id ASC").
		Find(&categories).Error; err != nil {
		logger.Error("Failed to find all categories in database", err)
		return nil, err
	}
	return categories, nil
}
