package repository

import (
	"github.com/ikkim/churchbook-backend/internal/app/model"
	"github.com/ikkim/churchbook-backend/pkg/logger"
	"gorm.io/gorm"
)

type ReceiptRepository interface {
	FindByID(id string) (*model.Receipt, error)
	FindByIDs(ids []string) ([]model.Receipt, error)
	FindByMember(memberID uint) ([]model.Receipt, error)
	FindByMemberYear(memberID uint, taxYear int) (*model.Receipt, error)
	List(taxYear int, query string, page, pageSize int) ([]model.Receipt, int64, error)
	ExistingMemberIDs(taxYear int) ([]uint, error)
	Delete(id string) error
}

type receiptRepository struct {
	db *gorm.DB
}

func NewReceiptRepository(db *gorm.DB) ReceiptRepository {
	return &receiptRepository{db: db}
}

func (r *receiptRepository) FindByID(id string) (*model.Receipt, error) {
	logger.Debug("Finding receipt by ID in database", map[string]interface{}{
		"receipt_id": id,
	})

	var receipt model.Receipt
	if err := r.db.Preload("Member").Where("id = ?", id).First(&receipt).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			logger.Error("Failed to find receipt by ID in database", err, map[string]interface{}{
				"receipt_id": id,
			})
		}
		return nil, err
	}

	return &receipt, nil
}

func (r *receiptRepository) FindByIDs(ids []string) ([]model.Receipt, error) {
	logger.Debug("Finding receipts by IDs in database", map[string]interface{}{
		"count": len(ids),
	})

	if len(ids) == 0 {
		return []model.Receipt{}, nil
	}

	var receipts []model.Receipt
	if err := r.db.Where("id IN ?", ids).Find(&receipts).Error; err != nil {
		logger.Error("Failed to find receipts by IDs in database", err, map[string]interface{}{
			"count": len(ids),
		})
		return nil, err
	}

	return receipts, nil
}

func (r *receiptRepository) FindByMember(memberID uint) ([]model.Receipt, error) {
	logger.Debug("Finding receipts by member in database", map[string]interface{}{
		"member_id": memberID,
	})

	var receipts []model.Receipt
	if err := r.db.Where("member_id = ?", memberID).
		Order("tax_year DESC, serial_number DESC").
		Find(&receipts).Error; err != nil {
		logger.Error("Failed to find receipts by member in database", err, map[string]interface{}{
			"member_id": memberID,
		})
		return nil, err
	}

	return receipts, nil
}

// FindByMemberYear 해당 교인의 특정 과세 연도 영수증 (없으면 ErrRecordNotFound)
func (r *receiptRepository) FindByMemberYear(memberID uint, taxYear int) (*model.Receipt, error) {
	var receipt model.Receipt
	if err := r.db.Where("member_id = ? AND tax_year = ?", memberID, taxYear).
		First(&receipt).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			logger.Error("Failed to find receipt by member and year in database", err, map[string]interface{}{
				"member_id": memberID,
				"tax_year":  taxYear,
			})
		}
		return nil, err
	}
	return &receipt, nil
}

func (r *receiptRepository) List(taxYear int, query string, page, pageSize int) ([]model.Receipt, int64, error) {
	logger.Debug("Listing receipts in database", map[string]interface{}{
		"tax_year":  taxYear,
		"query":     query,
		"page":      page,
		"page_size": pageSize,
	})

	q := r.db.Model(&model.Receipt{})
	if taxYear > 0 {
		q = q.Where("tax_year = ?", taxYear)
	}
	if query != "" {
		q = q.Where("donor_name LIKE ?", "%"+query+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		logger.Error("Failed to count receipts in database", err)
		return nil, 0, err
	}

	var receipts []model.Receipt
	if err := q.Preload("Member").
		Order("issue_date DESC, serial_number DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&receipts).Error; err != nil {
		logger.Error("Failed to list receipts in database", err)
		return nil, 0, err
	}

	logger.Debug("Receipts listed in database", map[string]interface{}{
		"tax_year": taxYear,
		"total":    total,
		"count":    len(receipts),
	})
	return receipts, total, nil
}

// ExistingMemberIDs 해당 연도에 이미 영수증이 발행된 교인 ID 목록
func (r *receiptRepository) ExistingMemberIDs(taxYear int) ([]uint, error) {
	logger.Debug("Finding members with receipts in database", map[string]interface{}{
		"tax_year": taxYear,
	})

	var ids []uint
	if err := r.db.Model(&model.Receipt{}).
		Distinct("member_id").
		Where("tax_year = ?", taxYear).
		Pluck("member_id", &ids).Error; err != nil {
		logger.Error("Failed to find members with receipts in database", err, map[string]interface{}{
			"tax_year": taxYear,
		})
		return nil, err
	}

	return ids, nil
}

func (r *receiptRepository) Delete(id string) error {
	logger.Debug("Deleting receipt from database", map[string]interface{}{
		"receipt_id": id,
	})

	result := r.db.Where("id = ?", id).Delete(&model.Receipt{})
	if result.Error != nil {
		logger.Error("Failed to delete receipt from database", result.Error, map[string]interface{}{
			"receipt_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	logger.Debug("Receipt deleted from database", map[string]interface{}{
		"receipt_id": id,
	})
	return nil
}
