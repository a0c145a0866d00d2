package repository

import (
	"github.com/ikkim/churchbook-backend/internal/app/model"
	"github.com/ikkim/churchbook-backend/pkg/logger"
	"gorm.io/gorm"
)

type CharityRepository interface {
	Get() (*model.CharityProfile, error)
	Upsert(profile *model.CharityProfile) error
}

type charityRepository struct {
	db *gorm.DB
}

func NewCharityRepository(db *gorm.DB) CharityRepository {
	return &charityRepository{db: db}
}

func (r *charityRepository) Get() (*model.CharityProfile, error) {
	var profile model.CharityProfile
	if err := r.db.First(&profile, model.CharityProfileID).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			logger.Error("Failed to load charity profile from database", err)
		}
		return nil, err
	}
	return &profile, nil
}

// Upsert 고정 ID(1)의 단일 프로필 행 생성 또는 갱신
func (r *charityRepository) Upsert(profile *model.CharityProfile) error {
	logger.Debug("Upserting charity profile in database", map[string]interface{}{
		"legal_name":      profile.LegalName,
		"registration_no": profile.RegistrationNo,
	})

	profile.ID = model.CharityProfileID
	if err := r.db.Save(profile).Error; err != nil {
		logger.Error("Failed to upsert charity profile in database", err)
		return err
	}

	logger.Debug("Charity profile upserted in database")
	return nil
}
