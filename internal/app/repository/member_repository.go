package repository

import (
	"github.com/ikkim/churchbook-backend/internal/app/model"
	"github.com/ikkim/churchbook-backend/pkg/logger"
	"gorm.io/gorm"
)

type MemberRepository interface {
	Create(member *model.Member) error
	FindByID(id uint) (*model.Member, error)
	FindByNameKey(nameKey string) (*model.Member, error)
	FindByNameKeys(nameKeys []string) ([]model.Member, error)
	Update(member *model.Member) error
	Delete(id uint) error
	Search(query string, page, pageSize int) ([]model.Member, int64, error)
}

type memberRepository struct {
	db *gorm.DB
}

func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) Create(member *model.Member) error {
	logger.Debug("Creating member in database", map[string]interface{}{
		"name_key":   member.NameKey,
		"name_label": member.NameLabel,
	})

	if err := r.db.Create(member).Error; err != nil {
		logger.Error("Failed to create member in database", err, map[string]interface{}{
			"name_key": member.NameKey,
		})
		return err
	}

	logger.Debug("Member created in database", map[string]interface{}{
		"member_id": member.ID,
		"name_key":  member.NameKey,
	})
	return nil
}

func (r *memberRepository) FindByID(id uint) (*model.Member, error) {
	logger.Debug("Finding member by ID in database", map[string]interface{}{
		"member_id": id,
	})

	var member model.Member
	if err := r.db.First(&member, id).Error; err != nil {
		logger.Error("Failed to find member by ID in database", err, map[string]interface{}{
			"member_id": id,
		})
		return nil, err
	}

	return &member, nil
}

func (r *memberRepository) FindByNameKey(nameKey string) (*model.Member, error) {
	logger.Debug("Finding member by name key in database", map[string]interface{}{
		"name_key": nameKey,
	})

	var member model.Member
	if err := r.db.Where("name_key = ?", nameKey).First(&member).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			logger.Error("Failed to find member by name key in database", err, map[string]interface{}{
				"name_key": nameKey,
			})
		}
		return nil, err
	}

	return &member, nil
}

func (r *memberRepository) FindByNameKeys(nameKeys []string) ([]model.Member, error) {
	logger.Debug("Finding members by name keys in database", map[string]interface{}{
		"count": len(nameKeys),
	})

	if len(nameKeys) == 0 {
		return []model.Member{}, nil
	}

	var members []model.Member
	if err := r.db.Where("name_key IN ?", nameKeys).Find(&members).Error; err != nil {
		logger.Error("Failed to find members by name keys in database", err, map[string]interface{}{
			"count": len(nameKeys),
		})
		return nil, err
	}

	logger.Debug("Members found by name keys in database", map[string]interface{}{
		"requested": len(nameKeys),
		"found":     len(members),
	})
	return members, nil
}

func (r *memberRepository) Update(member *model.Member) error {
	logger.Debug("Updating member in database", map[string]interface{}{
		"member_id": member.ID,
		"name_key":  member.NameKey,
	})

	if err := r.db.Save(member).Error; err != nil {
		logger.Error("Failed to update member in database", err, map[string]interface{}{
			"member_id": member.ID,
		})
		return err
	}

	logger.Debug("Member updated in database", map[string]interface{}{
		"member_id": member.ID,
	})
	return nil
}

func (r *memberRepository) Delete(id uint) error {
	logger.Debug("Deleting member from database", map[string]interface{}{
		"member_id": id,
	})

	result := r.db.Delete(&model.Member{}, id)
	if result.Error != nil {
		logger.Error("Failed to delete member from database", result.Error, map[string]interface{}{
			"member_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	logger.Debug("Member deleted from database", map[string]interface{}{
		"member_id": id,
	})
	return nil
}

// Search 이름/영문명 부분 일치 검색 (페이지네이션)
func (r *memberRepository) Search(query string, page, pageSize int) ([]model.Member, int64, error) {
	logger.Debug("Searching members in database", map[string]interface{}{
		"query":     query,
		"page":      page,
		"page_size": pageSize,
	})

	q := r.db.Model(&model.Member{})
	if query != "" {
		pattern := "%" + query + "%"
		q = q.Where("name_label LIKE ? OR first_name LIKE ? OR last_name LIKE ? OR email LIKE ? OR address LIKE ?",
			pattern, pattern, pattern, pattern, pattern)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		logger.Error("Failed to count members in database", err, map[string]interface{}{
			"query": query,
		})
		return nil, 0, err
	}

	var members []model.Member
	if err := q.Order("name_label ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&members).Error; err != nil {
		logger.Error("Failed to search members in database", err, map[string]interface{}{
			"query": query,
		})
		return nil, 0, err
	}

	logger.Debug("Members searched in database", map[string]interface{}{
		"query": query,
		"total": total,
		"count": len(members),
	})
	return members, total, nil
}
