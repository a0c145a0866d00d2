package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ikkim/churchbook-backend/internal/app/model"
	"github.com/ikkim/churchbook-backend/internal/app/repository"
	apperrors "github.com/ikkim/churchbook-backend/internal/errors"
	"github.com/ikkim/churchbook-backend/pkg/cache"
	"github.com/ikkim/churchbook-backend/pkg/logger"
	"github.com/ikkim/churchbook-backend/pkg/util"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

var (
	ErrIncomeNotFound   = errors.New("income entry not found")
	ErrInvalidDate      = errors.New("invalid calendar date")
	ErrNoValidEntries   = errors.New("no valid income entries to save")
	ErrMemberUnresolved = errors.New("member could not be resolved")
)

// IncomePageSize 헌금 목록 페이지 크기
const IncomePageSize = 30

const summaryCacheTTL = 10 * time.Minute

// IncomeEntryInput 일괄 저장의 한 행
type IncomeEntryInput struct {
	Name     string
	Amount   int64
	TypeID   uint
	MethodID uint
	Note     string
}

// BatchInput 같은 날짜를 공유하는 일괄 저장 입력
type BatchInput struct {
	Year    int
	Month   int
	Day     int
	Entries []IncomeEntryInput
}

// BatchResult 일괄 저장 결과
type BatchResult struct {
	IncomeCount    int `json:"incomeCount"`
	CreatedMembers int `json:"createdMembers"`
}

// IncomeUpdateInput 헌금 수정 입력
type IncomeUpdateInput struct {
	Name     string
	Amount   int64
	TypeID   uint
	MethodID uint
	Year     int
	Month    int
	Day      int
	Note     string
}

// SummaryResult 연도 합계 (카테고리별 + 분기별 + 총계)
type SummaryResult struct {
	Year       int                         `json:"year"`
	Types      []repository.TypeSummary    `json:"types"`
	Quarters   []repository.QuarterSummary `json:"quarters"`
	GrandTotal int64                       `json:"grandTotal"`
	TotalCount int64                       `json:"totalCount"`
}

type IncomeService interface {
	SaveBatch(ctx context.Context, input *BatchInput) (*BatchResult, error)
	Get(id uint) (*model.Income, error)
	Update(ctx context.Context, id uint, input *IncomeUpdateInput) (*model.Income, error)
	Delete(ctx context.Context, id uint) error
	List(filter repository.IncomeFilter) ([]model.Income, int64, error)
	Summary(ctx context.Context, year int) (*SummaryResult, error)
	MonthDayOptions(year, month int) ([]repository.MonthDay, error)
	ExportYear(year int) ([]byte, string, error)
	Categories(categoryRange model.CategoryRange) ([]model.Category, error)
}

type incomeService struct {
	incomeRepo   repository.IncomeRepository
	memberRepo   repository.MemberRepository
	categoryRepo repository.CategoryRepository
	db           *gorm.DB
}

func NewIncomeService(
	incomeRepo repository.IncomeRepository,
	memberRepo repository.MemberRepository,
	categoryRepo repository.CategoryRepository,
	db *gorm.DB,
) IncomeService {
	return &incomeService{
		incomeRepo:   incomeRepo,
		memberRepo:   memberRepo,
		categoryRepo: categoryRepo,
		db:           db,
	}
}

// ValidDate reports whether y/m/d names a real calendar date.
func ValidDate(year, month, day int) bool {
	if year < 1900 || year > 2200 || month < 1 || month > 12 || day < 1 || day > 31 {
		return false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Year() == year && int(t.Month()) == month && t.Day() == day
}

type cleanedEntry struct {
	nameKey   string
	nameLabel string
	amount    int64
	typeID    uint
	methodID  uint
	note      string
}

// SaveBatch 한 날짜의 헌금 행들을 저장. 이름 키로 교인을 찾고 없으면 생성,
// 전체가 하나의 트랜잭션으로 처리된다.
func (s *incomeService) SaveBatch(ctx context.Context, input *BatchInput) (*BatchResult, error) {
	logger.Info("Saving income batch", map[string]interface{}{
		"year":    input.Year,
		"month":   input.Month,
		"day":     input.Day,
		"entries": len(input.Entries),
	})

	if !ValidDate(input.Year, input.Month, input.Day) {
		logger.Warn("Cannot save income batch: invalid date", map[string]interface{}{
			"year":  input.Year,
			"month": input.Month,
			"day":   input.Day,
		})
		return nil, ErrInvalidDate
	}

	// 유효하지 않은 행(이름 없음, 금액/카테고리 불량)은 버린다
	cleaned := make([]cleanedEntry, 0, len(input.Entries))
	for _, entry := range input.Entries {
		key := util.NameKey(entry.Name)
		if key == "" || entry.Amount <= 0 || entry.TypeID == 0 || entry.MethodID == 0 {
			continue
		}
		cleaned = append(cleaned, cleanedEntry{
			nameKey:   key,
			nameLabel: util.Truncate(util.NormalizeName(entry.Name), 60),
			amount:    entry.Amount,
			typeID:    entry.TypeID,
			methodID:  entry.MethodID,
			note:      util.Truncate(entry.Note, 255),
		})
	}

	if len(cleaned) == 0 {
		logger.Warn("Cannot save income batch: no valid entries", map[string]interface{}{
			"submitted": len(input.Entries),
		})
		return nil, ErrNoValidEntries
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			logger.Error("Panic during income batch save, rolling back", fmt.Errorf("panic: %v", r))
		}
	}()

	// 기존 교인 일괄 조회
	keySet := make(map[string]string, len(cleaned)) // key -> label
	keys := make([]string, 0, len(cleaned))
	for _, e := range cleaned {
		if _, seen := keySet[e.nameKey]; !seen {
			keySet[e.nameKey] = e.nameLabel
			keys = append(keys, e.nameKey)
		}
	}

	var existing []model.Member
	if err := tx.Where("name_key IN ?", keys).Find(&existing).Error; err != nil {
		tx.Rollback()
		logger.Error("Failed to look up members for income batch", err)
		return nil, err
	}

	memberIDs := make(map[string]uint, len(keys))
	for _, m := range existing {
		memberIDs[m.NameKey] = m.ID
	}

	// 누락된 교인 생성 (경합으로 중복되면 다시 읽는다)
	createdMembers := 0
	for _, key := range keys {
		if _, ok := memberIDs[key]; ok {
			continue
		}
		member := model.Member{NameKey: key, NameLabel: keySet[key]}
		if err := tx.Create(&member).Error; err != nil {
			if apperrors.IsUniqueViolation(err) {
				var raced model.Member
				if rerr := tx.Where("name_key = ?", key).First(&raced).Error; rerr != nil {
					tx.Rollback()
					logger.Error("Failed to re-read member after unique violation", rerr, map[string]interface{}{
						"name_key": key,
					})
					return nil, ErrMemberUnresolved
				}
				memberIDs[key] = raced.ID
				continue
			}
			tx.Rollback()
			logger.Error("Failed to create member for income batch", err, map[string]interface{}{
				"name_key": key,
			})
			return nil, err
		}
		memberIDs[key] = member.ID
		createdMembers++
	}

	// 헌금 행 생성
	quarter := model.QuarterOf(input.Month)
	incomes := make([]model.Income, 0, len(cleaned))
	for _, e := range cleaned {
		memberID, ok := memberIDs[e.nameKey]
		if !ok {
			tx.Rollback()
			logger.Error("Member unresolved after creation pass", ErrMemberUnresolved, map[string]interface{}{
				"name_key": e.nameKey,
			})
			return nil, ErrMemberUnresolved
		}
		incomes = append(incomes, model.Income{
			MemberID: memberID,
			Amount:   e.amount,
			TypeID:   e.typeID,
			MethodID: e.methodID,
			Year:     input.Year,
			Month:    input.Month,
			Day:      input.Day,
			Quarter:  quarter,
			Note:     e.note,
		})
	}

	if err := tx.Create(&incomes).Error; err != nil {
		tx.Rollback()
		logger.Error("Failed to create income rows", err, map[string]interface{}{
			"count": len(incomes),
		})
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		logger.Error("Failed to commit income batch", err)
		return nil, err
	}

	s.invalidateSummary(ctx, input.Year)

	logger.Info("Income batch saved", map[string]interface{}{
		"income_count":    len(incomes),
		"created_members": createdMembers,
	})
	return &BatchResult{
		IncomeCount:    len(incomes),
		CreatedMembers: createdMembers,
	}, nil
}

func (s *incomeService) Get(id uint) (*model.Income, error) {
	income, err := s.incomeRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIncomeNotFound
		}
		return nil, err
	}
	return income, nil
}

func (s *incomeService) Update(ctx context.Context, id uint, input *IncomeUpdateInput) (*model.Income, error) {
	logger.Info("Updating income", map[string]interface{}{
		"income_id": id,
	})

	income, err := s.incomeRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIncomeNotFound
		}
		return nil, err
	}

	if !ValidDate(input.Year, input.Month, input.Day) {
		return nil, ErrInvalidDate
	}
	nameKey := util.NameKey(input.Name)
	if nameKey == "" || input.Amount <= 0 || input.TypeID == 0 || input.MethodID == 0 {
		return nil, ErrNoValidEntries
	}

	member, err := s.resolveMember(nameKey, util.Truncate(util.NormalizeName(input.Name), 60))
	if err != nil {
		return nil, err
	}

	previousYear := income.Year

	income.MemberID = member.ID
	income.Amount = input.Amount
	income.TypeID = input.TypeID
	income.MethodID = input.MethodID
	income.Year = input.Year
	income.Month = input.Month
	income.Day = input.Day
	income.Quarter = model.QuarterOf(input.Month)
	income.Note = util.Truncate(input.Note, 255)
	income.Member = *member

	if err := s.incomeRepo.Update(income); err != nil {
		return nil, err
	}

	s.invalidateSummary(ctx, previousYear)
	if input.Year != previousYear {
		s.invalidateSummary(ctx, input.Year)
	}

	logger.Info("Income updated", map[string]interface{}{
		"income_id": income.ID,
		"member_id": income.MemberID,
	})
	return income, nil
}

// resolveMember 이름 키로 교인을 찾고 없으면 생성한다. 생성 경합으로 unique
// 위반이 나면 다시 읽는다.
func (s *incomeService) resolveMember(nameKey, nameLabel string) (*model.Member, error) {
	member, err := s.memberRepo.FindByNameKey(nameKey)
	if err == nil {
		return member, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	created := &model.Member{NameKey: nameKey, NameLabel: nameLabel}
	if cerr := s.memberRepo.Create(created); cerr != nil {
		if apperrors.IsUniqueViolation(cerr) {
			return s.memberRepo.FindByNameKey(nameKey)
		}
		return nil, cerr
	}
	return created, nil
}

func (s *incomeService) Delete(ctx context.Context, id uint) error {
	logger.Info("Deleting income", map[string]interface{}{
		"income_id": id,
	})

	income, err := s.incomeRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrIncomeNotFound
		}
		return err
	}

	if err := s.incomeRepo.Delete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrIncomeNotFound
		}
		return err
	}

	s.invalidateSummary(ctx, income.Year)
	return nil
}

func (s *incomeService) List(filter repository.IncomeFilter) ([]model.Income, int64, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = IncomePageSize
	}
	return s.incomeRepo.List(filter)
}

func (s *incomeService) Summary(ctx context.Context, year int) (*SummaryResult, error) {
	cacheKey := summaryCacheKey(year)
	if raw, ok := cache.Get(ctx, cacheKey); ok {
		var cached SummaryResult
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			logger.Debug("Income summary served from cache", map[string]interface{}{
				"year": year,
			})
			return &cached, nil
		}
	}

	types, err := s.incomeRepo.SummaryByType(year)
	if err != nil {
		return nil, err
	}
	quarters, err := s.incomeRepo.SummaryByQuarter(year)
	if err != nil {
		return nil, err
	}

	result := &SummaryResult{
		Year:     year,
		Types:    types,
		Quarters: quarters,
	}
	for _, t := range types {
		result.GrandTotal += t.Total
		result.TotalCount += t.Count
	}

	if raw, err := json.Marshal(result); err == nil {
		cache.Set(ctx, cacheKey, string(raw), summaryCacheTTL)
	}
	return result, nil
}

func (s *incomeService) MonthDayOptions(year, month int) ([]repository.MonthDay, error) {
	dates, err := s.incomeRepo.DistinctMonthDays(year)
	if err != nil {
		return nil, err
	}
	if month == 0 {
		return dates, nil
	}
	filtered := make([]repository.MonthDay, 0, len(dates))
	for _, d := range dates {
		if d.Month == month {
			filtered = append(filtered, d)
		}
	}
	return filtered, nil
}

// ExportYear 연도 전체 헌금 내역을 XLSX로 만든다.
func (s *incomeService) ExportYear(year int) ([]byte, string, error) {
	logger.Info("Exporting income year to XLSX", map[string]interface{}{
		"year": year,
	})

	incomes, err := s.incomeRepo.ListForExport(year)
	if err != nil {
		return nil, "", err
	}

	const sheet = "Income"
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, "", err
	}

	headers := []interface{}{"Date", "Member", "Official Name", "Type", "Method", "Amount", "Note"}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return nil, "", err
	}

	for i, income := range incomes {
		row := []interface{}{
			income.DateISO(),
			income.Member.NameLabel,
			util.FormatEnglishName(income.Member.FirstName, income.Member.LastName),
			income.Type.Name,
			income.Method.Name,
			util.FormatCents(income.Amount),
			income.Note,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, "", err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, "", err
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 12)
	_ = f.SetColWidth(sheet, "B", "C", 20)
	_ = f.SetColWidth(sheet, "D", "F", 14)
	_ = f.SetColWidth(sheet, "G", "G", 30)

	buf, err := f.WriteToBuffer()
	if err != nil {
		logger.Error("Failed to write XLSX buffer", err, map[string]interface{}{
			"year": year,
		})
		return nil, "", err
	}

	fileName := fmt.Sprintf("income-%d.xlsx", year)
	logger.Info("Income year exported", map[string]interface{}{
		"year":  year,
		"rows":  len(incomes),
		"bytes": buf.Len(),
	})
	return buf.Bytes(), fileName, nil
}

func (s *incomeService) Categories(categoryRange model.CategoryRange) ([]model.Category, error) {
	return s.categoryRepo.FindByRange(categoryRange)
}

func summaryCacheKey(year int) string {
	return fmt.Sprintf("income:summary:%d", year)
}

func (s *incomeService) invalidateSummary(ctx context.Context, year int) {
	cache.Delete(ctx, summaryCacheKey(year))
}
