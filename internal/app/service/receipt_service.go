package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ikkim/churchbook-backend/internal/app/model"
	"github.com/ikkim/churchbook-backend/internal/app/repository"
	apperrors "github.com/ikkim/churchbook-backend/internal/errors"
	"github.com/ikkim/churchbook-backend/internal/pdf"
	"github.com/ikkim/churchbook-backend/internal/storage"
	"github.com/ikkim/churchbook-backend/pkg/logger"
	"github.com/ikkim/churchbook-backend/pkg/util"
	"gorm.io/gorm"
)

var (
	ErrReceiptNotFound        = errors.New("receipt not found")
	ErrCharityProfileMissing  = errors.New("charity profile is not set up")
	ErrNoReceiptableIncome    = errors.New("no receiptable donations for the member and year")
	ErrIncomeSelectionInvalid = errors.New("income selection is invalid")
	ErrReceiptZeroTotal       = errors.New("receipt total must be positive")
	ErrSerialExhausted        = errors.New("serial allocation attempts exhausted")
	ErrReceiptFileDelete      = errors.New("receipt file could not be deleted")
)

// ReceiptPageSize 영수증 관리 목록 페이지 크기
const ReceiptPageSize = 30

// maxSerialAttempts 일련번호 경합 시 재시도 한도
const maxSerialAttempts = 3

// 연도 일괄 발행의 청크 크기: 기본 20, 최대 50
const (
	DefaultYearBatchSize = 20
	MaxYearBatchSize     = 50
)

// GenerateInput 선택 발행 입력
type GenerateInput struct {
	MemberID  uint
	TaxYear   int
	IncomeIDs []uint
}

// GenerateResult 발행 결과
type GenerateResult struct {
	ReceiptID    string `json:"receiptId"`
	SerialNumber int    `json:"serialNumber"`
	PDFURL       string `json:"pdfUrl"`
}

// YearBatchInput 연도 일괄 발행 입력 (커서는 교인 ID 목록의 오프셋)
type YearBatchInput struct {
	TaxYear   int
	Cursor    int
	BatchSize int
}

// YearBatchFailure 일괄 발행 중 실패한 교인
type YearBatchFailure struct {
	MemberID uint   `json:"memberId"`
	Message  string `json:"message"`
}

// YearBatchResult 연도 일괄 발행 결과
type YearBatchResult struct {
	Processed  int                `json:"processed"`
	Created    int                `json:"created"`
	Skipped    int                `json:"skipped"`
	Failed     int                `json:"failed"`
	Failures   []YearBatchFailure `json:"failures"`
	NextCursor *int               `json:"nextCursor"`
}

// MemberReceiptData 교인별 영수증 페이지 데이터: 해당 연도 기부 내역과
// 기존 영수증(있다면)
type MemberReceiptData struct {
	Member  *model.Member  `json:"member"`
	Incomes []model.Income `json:"incomes"`
	Total   int64          `json:"total"`
	Receipt *model.Receipt `json:"receipt,omitempty"`
}

type ReceiptService interface {
	Generate(ctx context.Context, input *GenerateInput) (*GenerateResult, error)
	GenerateYear(ctx context.Context, input *YearBatchInput) (*YearBatchResult, error)
	List(taxYear int, query string, page int) ([]model.Receipt, int64, error)
	MemberDonations(memberID uint, taxYear int) (*MemberReceiptData, error)
	Delete(ctx context.Context, id string) error
	BulkDelete(ctx context.Context, ids []string) (int, error)
}

type receiptService struct {
	receiptRepo repository.ReceiptRepository
	incomeRepo  repository.IncomeRepository
	memberRepo  repository.MemberRepository
	charityRepo repository.CharityRepository
	store       storage.ReceiptStorage
	db          *gorm.DB
}

func NewReceiptService(
	receiptRepo repository.ReceiptRepository,
	incomeRepo repository.IncomeRepository,
	memberRepo repository.MemberRepository,
	charityRepo repository.CharityRepository,
	store storage.ReceiptStorage,
	db *gorm.DB,
) ReceiptService {
	return &receiptService{
		receiptRepo: receiptRepo,
		incomeRepo:  incomeRepo,
		memberRepo:  memberRepo,
		charityRepo: charityRepo,
		store:       store,
		db:          db,
	}
}

// Generate 선택된 헌금 행들로 영수증을 발행한다.
func (s *receiptService) Generate(ctx context.Context, input *GenerateInput) (*GenerateResult, error) {
	logger.Info("Generating receipt", map[string]interface{}{
		"member_id":  input.MemberID,
		"tax_year":   input.TaxYear,
		"income_ids": len(input.IncomeIDs),
	})

	member, err := s.memberRepo.FindByID(input.MemberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}

	profile, err := s.charityRepo.Get()
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Cannot generate receipt: charity profile missing")
			return nil, ErrCharityProfileMissing
		}
		return nil, err
	}

	ids := dedupeIDs(input.IncomeIDs)
	if len(ids) == 0 {
		return nil, ErrIncomeSelectionInvalid
	}

	incomes, err := s.incomeRepo.FindByIDsForMemberYear(ids, input.MemberID, input.TaxYear)
	if err != nil {
		return nil, err
	}
	// 선택한 행이 모두 해당 교인·연도의 양수 헌금이어야 한다
	if len(incomes) != len(ids) {
		logger.Warn("Cannot generate receipt: selection does not match member/year", map[string]interface{}{
			"member_id": input.MemberID,
			"tax_year":  input.TaxYear,
			"requested": len(ids),
			"matched":   len(incomes),
		})
		return nil, ErrIncomeSelectionInvalid
	}

	return s.generate(ctx, member, profile, incomes, input.TaxYear)
}

// GenerateYear 연도 일괄 발행의 한 청크를 처리한다. 이미 영수증이 있는
// 교인은 건너뛰고, 개별 실패는 수집하되 청크 전체를 중단하지 않는다.
func (s *receiptService) GenerateYear(ctx context.Context, input *YearBatchInput) (*YearBatchResult, error) {
	batchSize := input.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultYearBatchSize
	}
	if batchSize > MaxYearBatchSize {
		batchSize = MaxYearBatchSize
	}
	cursor := input.Cursor
	if cursor < 0 {
		cursor = 0
	}

	logger.Info("Generating receipts for year batch", map[string]interface{}{
		"tax_year":   input.TaxYear,
		"cursor":     cursor,
		"batch_size": batchSize,
	})

	profile, err := s.charityRepo.Get()
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCharityProfileMissing
		}
		return nil, err
	}

	memberIDs, err := s.incomeRepo.DistinctMemberIDs(input.TaxYear, cursor, batchSize)
	if err != nil {
		return nil, err
	}

	existingIDs, err := s.receiptRepo.ExistingMemberIDs(input.TaxYear)
	if err != nil {
		return nil, err
	}
	existing := make(map[uint]struct{}, len(existingIDs))
	for _, id := range existingIDs {
		existing[id] = struct{}{}
	}

	result := &YearBatchResult{
		Processed: len(memberIDs),
		Failures:  []YearBatchFailure{},
	}

	for _, memberID := range memberIDs {
		if _, ok := existing[memberID]; ok {
			result.Skipped++
			continue
		}

		if err := s.generateAllForMember(ctx, memberID, profile, input.TaxYear); err != nil {
			result.Failed++
			result.Failures = append(result.Failures, YearBatchFailure{
				MemberID: memberID,
				Message:  err.Error(),
			})
			logger.Warn("Receipt generation failed for member in year batch", map[string]interface{}{
				"member_id": memberID,
				"tax_year":  input.TaxYear,
				"reason":    err.Error(),
			})
			continue
		}
		result.Created++
	}

	// 꽉 찬 페이지였다면 다음 청크가 남아 있을 수 있다
	if len(memberIDs) == batchSize {
		next := cursor + batchSize
		result.NextCursor = &next
	}

	logger.Info("Year batch processed", map[string]interface{}{
		"tax_year":  input.TaxYear,
		"processed": result.Processed,
		"created":   result.Created,
		"skipped":   result.Skipped,
		"failed":    result.Failed,
	})
	return result, nil
}

func (s *receiptService) generateAllForMember(ctx context.Context, memberID uint, profile *model.CharityProfile, taxYear int) error {
	member, err := s.memberRepo.FindByID(memberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		return err
	}

	incomes, err := s.incomeRepo.FindPositiveByMemberYear(memberID, taxYear)
	if err != nil {
		return err
	}
	if len(incomes) == 0 {
		return ErrNoReceiptableIncome
	}

	_, err = s.generate(ctx, member, profile, incomes, taxYear)
	return err
}

// generate 스냅샷을 구성하고 일련번호 할당을 시도한다. (tax_year,
// serial_number)의 unique 제약이 최종 심판이며, max+1 조회는 힌트일 뿐이다.
func (s *receiptService) generate(ctx context.Context, member *model.Member, profile *model.CharityProfile, incomes []model.Income, taxYear int) (*GenerateResult, error) {
	var total int64
	lines := make([]pdf.DonationLine, 0, len(incomes))
	for _, income := range incomes {
		total += income.Amount
		lines = append(lines, pdf.DonationLine{
			Date:     income.DateISO(),
			TypeName: income.Type.Name,
			Amount:   income.Amount,
		})
	}
	if total <= 0 {
		return nil, ErrReceiptZeroTotal
	}

	issueDate := time.Now()
	receipt := &model.Receipt{
		MemberID:  member.ID,
		TaxYear:   taxYear,
		IssueDate: issueDate,

		TotalCents:     total,
		EligibleCents:  total,
		AdvantageCents: 0,

		DonorName:     util.Truncate(member.OfficialName(), 80),
		DonorAddress:  util.Truncate(member.Address, 120),
		DonorCity:     util.Truncate(member.City, 40),
		DonorProvince: util.Truncate(member.Province, 20),
		DonorPostal:   util.Truncate(member.Postal, 7),

		CharityName:      util.Truncate(profile.LegalName, 120),
		CharityAddress:   util.Truncate(profile.Address, 120),
		CharityCity:      util.Truncate(profile.City, 40),
		CharityProvince:  util.Truncate(profile.Province, 20),
		CharityPostal:    util.Truncate(profile.Postal, 7),
		CharityRegNo:     util.Truncate(profile.RegistrationNo, 20),
		LocationIssued:   util.Truncate(profile.LocationIssued, 60),
		AuthorizedSigner: util.Truncate(profile.AuthorizedSigner, 80),
	}

	data := &pdf.ReceiptData{
		TaxYear:   taxYear,
		IssueDate: issueDate,

		DonorName:     receipt.DonorName,
		DonorAddress:  receipt.DonorAddress,
		DonorCity:     receipt.DonorCity,
		DonorProvince: receipt.DonorProvince,
		DonorPostal:   receipt.DonorPostal,

		CharityName:      receipt.CharityName,
		CharityAddress:   receipt.CharityAddress,
		CharityCity:      receipt.CharityCity,
		CharityProvince:  receipt.CharityProvince,
		CharityPostal:    receipt.CharityPostal,
		CharityRegNo:     receipt.CharityRegNo,
		LocationIssued:   receipt.LocationIssued,
		AuthorizedSigner: receipt.AuthorizedSigner,

		Lines:          lines,
		TotalCents:     receipt.TotalCents,
		EligibleCents:  receipt.EligibleCents,
		AdvantageCents: receipt.AdvantageCents,
	}

	for attempt := 1; attempt <= maxSerialAttempts; attempt++ {
		result, retry, err := s.allocateAndPersist(ctx, receipt, data)
		if err == nil {
			logger.Info("Receipt generated", map[string]interface{}{
				"receipt_id": result.ReceiptID,
				"member_id":  member.ID,
				"tax_year":   taxYear,
				"serial":     result.SerialNumber,
				"total":      total,
				"attempt":    attempt,
			})
			return result, nil
		}
		if !retry {
			return nil, err
		}
		logger.Warn("Serial number conflict, retrying receipt generation", map[string]interface{}{
			"member_id": member.ID,
			"tax_year":  taxYear,
			"attempt":   attempt,
		})
	}

	logger.Error("Receipt generation exhausted serial attempts", ErrSerialExhausted, map[string]interface{}{
		"member_id": member.ID,
		"tax_year":  taxYear,
	})
	return nil, ErrSerialExhausted
}

// allocateAndPersist 한 번의 시도: 트랜잭션 안에서 현재 최대 일련번호를
// 읽어 후보를 정하고, PDF를 만들고 파일을 쓴 뒤 행을 삽입한다. unique 위반이면
// 재시도 가능으로 알린다. 실패한 시도가 쓴 파일은 여기서 지우지 않는다.
// 같은 경로를 경합에서 이긴 쪽의 행이 참조하고 있을 수 있기 때문이다.
// 어떤 행도 참조하지 않는 파일은 스위퍼가 치운다.
func (s *receiptService) allocateAndPersist(ctx context.Context, receipt *model.Receipt, data *pdf.ReceiptData) (*GenerateResult, bool, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			logger.Error("Panic during receipt allocation, rolling back", fmt.Errorf("panic: %v", r))
		}
	}()

	var maxSerial int
	if err := tx.Model(&model.Receipt{}).
		Where("tax_year = ?", receipt.TaxYear).
		Select("COALESCE(MAX(serial_number), 0)").
		Scan(&maxSerial).Error; err != nil {
		tx.Rollback()
		logger.Error("Failed to read max serial number", err, map[string]interface{}{
			"tax_year": receipt.TaxYear,
		})
		return nil, false, err
	}

	serial := maxSerial + 1
	receipt.ID = ""
	receipt.SerialNumber = serial
	data.SerialNumber = serial

	pdfBytes, err := pdf.Render(data)
	if err != nil {
		tx.Rollback()
		return nil, false, err
	}

	fileName := fmt.Sprintf("receipt-%d-%05d.pdf", receipt.TaxYear, serial)
	url, err := s.store.Save(ctx, receipt.TaxYear, fileName, pdfBytes)
	if err != nil {
		tx.Rollback()
		return nil, false, err
	}
	receipt.PDFURL = url

	if err := tx.Create(receipt).Error; err != nil {
		tx.Rollback()
		if apperrors.IsUniqueViolation(err) {
			return nil, true, err
		}
		logger.Error("Failed to insert receipt row", err, map[string]interface{}{
			"tax_year": receipt.TaxYear,
			"serial":   serial,
		})
		return nil, false, err
	}

	if err := tx.Commit().Error; err != nil {
		logger.Error("Failed to commit receipt", err, map[string]interface{}{
			"tax_year": receipt.TaxYear,
			"serial":   serial,
		})
		return nil, false, err
	}

	return &GenerateResult{
		ReceiptID:    receipt.ID,
		SerialNumber: serial,
		PDFURL:       url,
	}, false, nil
}

func (s *receiptService) List(taxYear int, query string, page int) ([]model.Receipt, int64, error) {
	if page < 1 {
		page = 1
	}
	return s.receiptRepo.List(taxYear, util.NormalizeSpaces(query), page, ReceiptPageSize)
}

func (s *receiptService) MemberDonations(memberID uint, taxYear int) (*MemberReceiptData, error) {
	member, err := s.memberRepo.FindByID(memberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}

	incomes, err := s.incomeRepo.FindPositiveByMemberYear(memberID, taxYear)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, income := range incomes {
		total += income.Amount
	}

	data := &MemberReceiptData{
		Member:  member,
		Incomes: incomes,
		Total:   total,
	}

	receipt, err := s.receiptRepo.FindByMemberYear(memberID, taxYear)
	if err == nil {
		data.Receipt = receipt
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return data, nil
}

// Delete 파일을 먼저 지우고 행을 지운다. 파일 삭제 실패면 행은 남겨
// 다시 시도할 수 있게 한다. 이미 없는 파일은 성공으로 본다.
func (s *receiptService) Delete(ctx context.Context, id string) error {
	logger.Info("Deleting receipt", map[string]interface{}{
		"receipt_id": id,
	})

	receipt, err := s.receiptRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrReceiptNotFound
		}
		return err
	}

	if err := s.store.Delete(ctx, receipt.PDFURL); err != nil {
		logger.Error("Failed to delete receipt file, keeping row", err, map[string]interface{}{
			"receipt_id": id,
			"url":        receipt.PDFURL,
		})
		return ErrReceiptFileDelete
	}

	if err := s.receiptRepo.Delete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrReceiptNotFound
		}
		return err
	}

	logger.Info("Receipt deleted", map[string]interface{}{
		"receipt_id": id,
		"tax_year":   receipt.TaxYear,
		"serial":     receipt.SerialNumber,
	})
	return nil
}

// BulkDelete 여러 영수증을 같은 파일 우선 정책으로 지운다. 파일 삭제가
// 실패하면 그 자리에서 중단하고, 그때까지 지운 개수와 함께
// ErrReceiptFileDelete를 돌려준다. 실패한 영수증의 행은 남는다.
func (s *receiptService) BulkDelete(ctx context.Context, ids []string) (int, error) {
	logger.Info("Bulk deleting receipts", map[string]interface{}{
		"count": len(ids),
	})

	receipts, err := s.receiptRepo.FindByIDs(ids)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, receipt := range receipts {
		if err := s.store.Delete(ctx, receipt.PDFURL); err != nil {
			logger.Error("Failed to delete receipt file during bulk delete", err, map[string]interface{}{
				"receipt_id": receipt.ID,
				"url":        receipt.PDFURL,
			})
			return deleted, ErrReceiptFileDelete
		}
		if err := s.receiptRepo.Delete(receipt.ID); err != nil {
			// 조회와 삭제 사이에 다른 요청이 먼저 지웠을 수 있다
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			logger.Error("Failed to delete receipt row during bulk delete", err, map[string]interface{}{
				"receipt_id": receipt.ID,
			})
			return deleted, err
		}
		deleted++
	}

	logger.Info("Bulk delete finished", map[string]interface{}{
		"requested": len(ids),
		"deleted":   deleted,
	})
	return deleted, nil
}

func dedupeIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
