package repository

import (
	"github.com/ikkim/churchbook-backend/internal/app/model"
	"github.com/ikkim/churchbook-backend/pkg/logger"
	"gorm.io/gorm"
)

// IncomeFilter 헌금 목록 조회 조건
type IncomeFilter struct {
	Year     int
	Month    int
	Day      int
	Quarter  int
	TypeID   uint
	MemberID uint
	Query    string // 교인 이름 부분 일치
	Page     int
	PageSize int
}

// TypeSummary 종류별 합계 행
type TypeSummary struct {
	TypeID   uint   `json:"type_id"`
	TypeName string `json:"type_name"`
	Total    int64  `json:"total"`
	Count    int64  `json:"count"`
}

// QuarterSummary 분기별 합계 행
type QuarterSummary struct {
	Quarter int   `json:"quarter"`
	Total   int64 `json:"total"`
	Count   int64 `json:"count"`
}

// MonthDay 헌금이 기록된 날짜 (연도 내)
type MonthDay struct {
	Month int `json:"month"`
	Day   int `json:"day"`
}

type IncomeRepository interface {
	Create(income *model.Income) error
	FindByID(id uint) (*model.Income, error)
	Update(income *model.Income) error
	Delete(id uint) error
	List(filter IncomeFilter) ([]model.Income, int64, error)
	SummaryByType(year int) ([]TypeSummary, error)
	SummaryByQuarter(year int) ([]QuarterSummary, error)
	DistinctMonthDays(year int) ([]MonthDay, error)
	FindPositiveByMemberYear(memberID uint, year int) ([]model.Income, error)
	FindByIDsForMemberYear(ids []uint, memberID uint, year int) ([]model.Income, error)
	DistinctMemberIDs(year, offset, limit int) ([]uint, error)
	ListForExport(year int) ([]model.Income, error)
}

type incomeRepository struct {
	db *gorm.DB
}

func NewIncomeRepository(db *gorm.DB) IncomeRepository {
	return &incomeRepository{db: db}
}

func (r *incomeRepository) preloadIncome() *gorm.DB {
	return r.db.Preload("Member").Preload("Type").Preload("Method")
}

func (r *incomeRepository) Create(income *model.Income) error {
	logger.Debug("Creating income in database", map[string]interface{}{
		"member_id": income.MemberID,
		"amount":    income.Amount,
		"date":      income.DateISO(),
	})

	if err := r.db.Create(income).Error; err != nil {
		logger.Error("Failed to create income in database", err, map[string]interface{}{
			"member_id": income.MemberID,
			"amount":    income.Amount,
		})
		return err
	}

	logger.Debug("Income created in database", map[string]interface{}{
		"income_id": income.ID,
		"member_id": income.MemberID,
	})
	return nil
}

func (r *incomeRepository) FindByID(id uint) (*model.Income, error) {
	logger.Debug("Finding income by ID in database", map[string]interface{}{
		"income_id": id,
	})

	var income model.Income
	if err := r.preloadIncome().First(&income, id).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			logger.Error("Failed to find income by ID in database", err, map[string]interface{}{
				"income_id": id,
			})
		}
		return nil, err
	}

	return &income, nil
}

func (r *incomeRepository) Update(income *model.Income) error {
	logger.Debug("Updating income in database", map[string]interface{}{
		"income_id": income.ID,
		"member_id": income.MemberID,
		"amount":    income.Amount,
	})

	if err := r.db.Save(income).Error; err != nil {
		logger.Error("Failed to update income in database", err, map[string]interface{}{
			"income_id": income.ID,
		})
		return err
	}

	logger.Debug("Income updated in database", map[string]interface{}{
		"income_id": income.ID,
	})
	return nil
}

func (r *incomeRepository) Delete(id uint) error {
	logger.Debug("Deleting income from database", map[string]interface{}{
		"income_id": id,
	})

	result := r.db.Delete(&model.Income{}, id)
	if result.Error != nil {
		logger.Error("Failed to delete income from database", result.Error, map[string]interface{}{
			"income_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	logger.Debug("Income deleted from database", map[string]interface{}{
		"income_id": id,
	})
	return nil
}

func (r *incomeRepository) List(filter IncomeFilter) ([]model.Income, int64, error) {
	logger.Debug("Listing incomes in database", map[string]interface{}{
		"year":      filter.Year,
		"month":     filter.Month,
		"day":       filter.Day,
		"member_id": filter.MemberID,
		"page":      filter.Page,
	})

	q := r.db.Model(&model.Income{})
	if filter.Year > 0 {
		q = q.Where("year = ?", filter.Year)
	}
	if filter.Month > 0 {
		q = q.Where("month = ?", filter.Month)
	}
	if filter.Day > 0 {
		q = q.Where("day = ?", filter.Day)
	}
	if filter.Quarter > 0 {
		q = q.Where("quarter = ?", filter.Quarter)
	}
	if filter.TypeID > 0 {
		q = q.Where("type_id = ?", filter.TypeID)
	}
	if filter.MemberID > 0 {
		q = q.Where("member_id = ?", filter.MemberID)
	}
	if filter.Query != "" {
		pattern := "%" + filter.Query + "%"
		q = q.Joins("JOIN members ON members.id = incomes.member_id").
			Where("members.name_label LIKE ? OR members.first_name LIKE ? OR members.last_name LIKE ?",
				pattern, pattern, pattern)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		logger.Error("Failed to count incomes in database", err)
		return nil, 0, err
	}

	listQuery := q.Preload("Member").Preload("Type").Preload("Method").
		Order("incomes.year DESC, incomes.month DESC, incomes.day DESC, incomes.id DESC")
	if filter.PageSize > 0 {
		listQuery = listQuery.Offset((filter.Page - 1) * filter.PageSize).
			Limit(filter.PageSize)
	}

	var incomes []model.Income
	if err := listQuery.Find(&incomes).Error; err != nil {
		logger.Error("Failed to list incomes in database", err)
		return nil, 0, err
	}

	logger.Debug("Incomes listed in database", map[string]interface{}{
		"total": total,
		"count": len(incomes),
	})
	return incomes, total, nil
}

func (r *incomeRepository) SummaryByType(year int) ([]TypeSummary, error) {
	logger.Debug("Summarizing incomes by type in database", map[string]interface{}{
		"year": year,
	})

	var rows []TypeSummary
	if err := r.db.Model(&model.Income{}).
		Select("incomes.type_id, categories.name AS type_name, COALESCE(SUM(incomes.amount), 0) AS total, COUNT(incomes.id) AS count").
		Joins("JOIN categories ON categories.id = incomes.type_id").
		Where("incomes.year = ?", year).
		Group("incomes.type_id, categories.name").
		Order("MIN(categories.sort_order) ASC").
		Scan(&rows).Error; err != nil {
		logger.Error("Failed to summarize incomes by type in database", err, map[string]interface{}{
			"year": year,
		})
		return nil, err
	}

	return rows, nil
}

func (r *incomeRepository) SummaryByQuarter(year int) ([]QuarterSummary, error) {
	logger.Debug("Summarizing incomes by quarter in database", map[string]interface{}{
		"year": year,
	})

	var rows []QuarterSummary
	if err := r.db.Model(&model.Income{}).
		Select("quarter, COALESCE(SUM(amount), 0) AS total, COUNT(id) AS count").
		Where("year = ?", year).
		Group("quarter").
		Order("quarter ASC").
		Scan(&rows).Error; err != nil {
		logger.Error("Failed to summarize incomes by quarter in database", err, map[string]interface{}{
			"year": year,
		})
		return nil, err
	}

	return rows, nil
}

// DistinctMonthDays 연도 내 헌금이 기록된 (월, 일) 목록
func (r *incomeRepository) DistinctMonthDays(year int) ([]MonthDay, error) {
	logger.Debug("Finding recorded dates in database", map[string]interface{}{
		"year": year,
	})

	var rows []MonthDay
	if err := r.db.Model(&model.Income{}).
		Select("DISTINCT month, day").
		Where("year = ?", year).
		Order("month ASC, day ASC").
		Scan(&rows).Error; err != nil {
		logger.Error("Failed to find recorded dates in database", err, map[string]interface{}{
			"year": year,
		})
		return nil, err
	}

	return rows, nil
}

// FindPositiveByMemberYear 영수증 합산 대상인 양수 금액 헌금만 조회
func (r *incomeRepository) FindPositiveByMemberYear(memberID uint, year int) ([]model.Income, error) {
	logger.Debug("Finding receiptable incomes in database", map[string]interface{}{
		"member_id": memberID,
		"year":      year,
	})

	var incomes []model.Income
	if err := r.db.Preload("Type").
		Where("member_id = ? AND year = ? AND amount > 0", memberID, year).
		Order("month ASC, day ASC, id ASC").
		Find(&incomes).Error; err != nil {
		logger.Error("Failed to find receiptable incomes in database", err, map[string]interface{}{
			"member_id": memberID,
			"year":      year,
		})
		return nil, err
	}

	return incomes, nil
}

// FindByIDsForMemberYear 선택된 헌금 행 조회 (해당 교인·연도·양수 금액만)
func (r *incomeRepository) FindByIDsForMemberYear(ids []uint, memberID uint, year int) ([]model.Income, error) {
	logger.Debug("Finding selected incomes in database", map[string]interface{}{
		"member_id": memberID,
		"year":      year,
		"count":     len(ids),
	})

	if len(ids) == 0 {
		return []model.Income{}, nil
	}

	var incomes []model.Income
	if err := r.db.Preload("Type").
		Where("id IN ? AND member_id = ? AND year = ? AND amount > 0", ids, memberID, year).
		Order("month ASC, day ASC, id ASC").
		Find(&incomes).Error; err != nil {
		logger.Error("Failed to find selected incomes in database", err, map[string]interface{}{
			"member_id": memberID,
			"year":      year,
		})
		return nil, err
	}

	return incomes, nil
}

// DistinctMemberIDs 연도 내 양수 헌금이 있는 교인 ID 페이지 (일괄 발행용, ID 오름차순)
func (r *incomeRepository) DistinctMemberIDs(year, offset, limit int) ([]uint, error) {
	logger.Debug("Finding members with incomes in database", map[string]interface{}{
		"year":   year,
		"offset": offset,
		"limit":  limit,
	})

	q := r.db.Model(&model.Income{}).
		Distinct("member_id").
		Where("year = ? AND amount > 0", year).
		Order("member_id ASC")
	if offset > 0 {
		q = q.Offset(offset)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var ids []uint
	if err := q.Pluck("member_id", &ids).Error; err != nil {
		logger.Error("Failed to find members with incomes in database", err, map[string]interface{}{
			"year": year,
		})
		return nil, err
	}

	logger.Debug("Members with incomes found in database", map[string]interface{}{
		"year":  year,
		"count": len(ids),
	})
	return ids, nil
}

func (r *incomeRepository) ListForExport(year int) ([]model.Income, error) {
	logger.Debug("Listing incomes for export in database", map[string]interface{}{
		"year": year,
	})

	var incomes []model.Income
	if err := r.preloadIncome().
		Where("year = ?", year).
		Order("month ASC, day ASC, id ASC").
		Find(&incomes).Error; err != nil {
		logger.Error("Failed to list incomes for export in database", err, map[string]interface{}{
			"year": year,
		})
		return nil, err
	}

	return incomes, nil
}
