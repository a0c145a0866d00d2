package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ikkim/churchbook-backend/internal/app/model"
	"github.com/ikkim/churchbook-backend/internal/app/repository"
	"github.com/ikkim/churchbook-backend/internal/db"
	"github.com/ikkim/churchbook-backend/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type receiptTestEnv struct {
	db     *gorm.DB
	svc    ReceiptService
	store  *storage.LocalStorage
	member *model.Member
	tithe  *model.Category
	method *model.Category
}

func setupReceiptServiceTest(t *testing.T) *receiptTestEnv {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)

	profile := &model.CharityProfile{
		ID:               model.CharityProfileID,
		LegalName:        "Toronto Grace Church",
		RegistrationNo:   "123456789RR0001",
		Address:          "100 Main St",
		City:             "Toronto",
		Province:         "ON",
		Postal:           "M5V3L9",
		LocationIssued:   "Toronto, ON",
		AuthorizedSigner: "Jane Doe",
	}
	require.NoError(t, testDB.Create(profile).Error)

	member := &model.Member{NameKey: "김철수", NameLabel: "김 철수", FirstName: "Chulsoo", LastName: "Kim"}
	require.NoError(t, testDB.Create(member).Error)

	tithe := &model.Category{Name: "Tithe", Range: model.RangeIncomeType, SortOrder: 1}
	require.NoError(t, testDB.Create(tithe).Error)
	method := &model.Category{Name: "Cash", Range: model.RangePaymentMethod, SortOrder: 1}
	require.NoError(t, testDB.Create(method).Error)

	store := storage.NewLocalStorage(t.TempDir(), "/receipts")
	svc := NewReceiptService(
		repository.NewReceiptRepository(testDB),
		repository.NewIncomeRepository(testDB),
		repository.NewMemberRepository(testDB),
		repository.NewCharityRepository(testDB),
		store,
		testDB,
	)
	return &receiptTestEnv{
		db:     testDB,
		svc:    svc,
		store:  store,
		member: member,
		tithe:  tithe,
		method: method,
	}
}

func (e *receiptTestEnv) addIncome(t *testing.T, member *model.Member, amount int64, year int) *model.Income {
	income := &model.Income{
		MemberID: member.ID,
		Amount:   amount,
		TypeID:   e.tithe.ID,
		MethodID: e.method.ID,
		Year:     year,
		Month:    3,
		Day:      10,
		Quarter:  1,
	}
	require.NoError(t, e.db.Create(income).Error)
	return income
}

func TestReceiptService_Generate(t *testing.T) {
	env := setupReceiptServiceTest(t)
	defer db.CleanupTestDB(env.db)

	first := env.addIncome(t, env.member, 100000, 2024)
	second := env.addIncome(t, env.member, 50000, 2024)

	result, err := env.svc.Generate(context.Background(), &GenerateInput{
		MemberID:  env.member.ID,
		TaxYear:   2024,
		IncomeIDs: []uint{first.ID, second.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.SerialNumber)
	assert.Equal(t, "/receipts/2024/receipt-2024-00001.pdf", result.PDFURL)

	// PDF 파일이 실제로 디스크에 있다
	path := filepath.Join(env.store.Dir(), "2024", "receipt-2024-00001.pdf")
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	// 스냅샷 필드 확인
	var receipt model.Receipt
	require.NoError(t, env.db.First(&receipt, "id = ?", result.ReceiptID).Error)
	assert.EqualValues(t, 150000, receipt.TotalCents)
	assert.EqualValues(t, 150000, receipt.EligibleCents)
	assert.Zero(t, receipt.AdvantageCents)
	assert.Equal(t, "Chulsoo Kim", receipt.DonorName)
	assert.Equal(t, "Toronto Grace Church", receipt.CharityName)
	assert.Equal(t, "123456789RR0001", receipt.CharityRegNo)
}

func TestReceiptService_Generate_NoCharityProfile(t *testing.T) {
	env := setupReceiptServiceTest(t)
	defer db.CleanupTestDB(env.db)

	require.NoError(t, env.db.Delete(&model.CharityProfile{}, model.CharityProfileID).Error)
	income := env.addIncome(t, env.member, 100000, 2024)

	_, err := env.svc.Generate(context.Background(), &GenerateInput{
		MemberID:  env.member.ID,
		TaxYear:   2024,
		IncomeIDs: []uint{income.ID},
	})
	assert.ErrorIs(t, err, ErrCharityProfileMissing)
}

func TestReceiptService_Generate_ForeignSelectionRejected(t *testing.T) {
	env := setupReceiptServiceTest(t)
	defer db.CleanupTestDB(env.db)

	other := &model.Member{NameKey: "김영희", NameLabel: "김영희"}
	require.NoError(t, env.db.Create(other).Error)

	mine := env.addIncome(t, env.member, 100000, 2024)
	theirs := env.addIncome(t, other, 50000, 2024)

	// 다른 교인의 헌금이 섞이면 전체가 거부된다
	_, err := env.svc.Generate(context.Background(), &GenerateInput{
		MemberID:  env.member.ID,
		TaxYear:   2024,
		IncomeIDs: []uint{mine.ID, theirs.ID},
	})
	assert.ErrorIs(t, err, ErrIncomeSelectionInvalid)

	_, err = env.svc.Generate(context.Background(), &GenerateInput{
		MemberID:  env.member.ID,
		TaxYear:   2024,
		IncomeIDs: []uint{},
	})
	assert.ErrorIs(t, err, ErrIncomeSelectionInvalid)
}

func TestReceiptService_Generate_MemberNotFound(t *testing.T) {
	env := setupReceiptServiceTest(t)
	defer db.CleanupTestDB(env.db)

	_, err := env.svc.Generate(context.Background(), &GenerateInput{
		MemberID:  9999,
		TaxYear:   2024,
		IncomeIDs: []uint{1},
	})
	assert.ErrorIs(t, err, ErrMemberNotFound)
}

func TestReceiptService_SerialNeverReused(t *testing.T) {
	env := setupReceiptServiceTest(t)
	defer db.CleanupTestDB(env.db)

	other := &model.Member{NameKey: "김영희", NameLabel: "김영희"}
	require.NoError(t, env.db.Create(other).Error)

	i1 := env.addIncome(t, env.member, 100000, 2024)
	i2 := env.addIncome(t, other, 50000, 2024)

	r1, err := env.svc.Generate(context.Background(), &GenerateInput{
		MemberID: env.member.ID, TaxYear: 2024, IncomeIDs: []uint{i1.ID},
	})
	require.NoError(t, err)
	r2, err := env.svc.Generate(context.Background(), &GenerateInput{
		MemberID: other.ID, TaxYear: 2024, IncomeIDs: []uint{i2.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, r1.SerialNumber)
	assert.Equal(t, 2, r2.SerialNumber)

	// 1번을 지워도 다음 발행은 3번이다 (최대값 + 1, 빈 자리 재사용 없음)
	require.NoError(t, env.svc.Delete(context.Background(), r1.ReceiptID))

	i3 := env.addIncome(t, env.member, 70000, 2024)
	r3, err := env.svc.Generate(context.Background(), &GenerateInput{
		MemberID: env.member.ID, TaxYear: 2024, IncomeIDs: []uint{i3.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, r3.SerialNumber)
}

func TestReceiptService_SerialPerTaxYear(t *testing.T) {
	env := setupReceiptServiceTest(t)
	defer db.CleanupTestDB(env.db)

	i2023 := env.addIncome(t, env.member, 100000, 2023)
	i2024 := env.addIncome(t, env.member, 50000, 2024)

	r2023, err := env.svc.Generate(context.Background(), &GenerateInput{
		MemberID: env.member.ID, TaxYear: 2023, IncomeIDs: []uint{i2023.ID},
	})
	require.NoError(t, err)
	r2024, err := env.svc.Generate(context.Background(), &GenerateInput{
		MemberID: env.member.ID, TaxYear: 2024, IncomeIDs: []uint{i2024.ID},
	})
	require.NoError(t, err)

	// 연도마다 1번부터 시작한다
	assert.Equal(t, 1, r2023.SerialNumber)
	assert.Equal(t, 1, r2024.SerialNumber)
}

func TestReceiptService_GenerateYear(t *testing.T) {
	env := setupReceiptServiceTest(t)
	defer db.CleanupTestDB(env.db)

	members := []*model.Member{env.member}
	for _, key := range []string{"김영희", "박지훈"} {
		m := &model.Member{NameKey: key, NameLabel: key}
		require.NoError(t, env.db.Create(m).Error)
		members = append(members, m)
	}
	for _, m := range members {
		env.addIncome(t, m, 100000, 2024)
	}

	// 첫 청크: 교인 2명 처리, 다음 커서가 남는다
	result, err := env.svc.GenerateYear(context.Background(), &YearBatchInput{
		TaxYear: 2024, Cursor: 0, BatchSize: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 2, result.Created)
	assert.Zero(t, result.Skipped)
	assert.Zero(t, result.Failed)
	require.NotNil(t, result.NextCursor)
	assert.Equal(t, 2, *result.NextCursor)

	// 둘째 청크: 마지막 한 명, 커서 종료
	result, err = env.svc.GenerateYear(context.Background(), &YearBatchInput{
		TaxYear: 2024, Cursor: *result.NextCursor, BatchSize: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Created)
	assert.Nil(t, result.NextCursor)

	var count int64
	env.db.Model(&model.Receipt{}).Where("tax_year = ?", 2024).Count(&count)
	assert.EqualValues(t, 3, count)

	// 다시 돌려도 이미 발행된 교인은 전부 건너뛴다
	result, err = env.svc.GenerateYear(context.Background(), &YearBatchInput{
		TaxYear: 2024, Cursor: 0, BatchSize: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Processed)
	assert.Zero(t, result.Created)
	assert.Equal(t, 3, result.Skipped)
}

func TestReceiptService_GenerateYear_NoProfile(t *testing.T) {
	env := setupReceiptServiceTest(t)
	defer db.CleanupTestDB(env.db)

	require.NoError(t, env.db.Delete(&model.CharityProfile{}, model.CharityProfileID).Error)

	_, err := env.svc.GenerateYear(context.Background(), &YearBatchInput{TaxYear: 2024})
	assert.ErrorIs(t, err, ErrCharityProfileMissing)
}

func TestReceiptService_List_Search(t *testing.T) {
	env := setupReceiptServiceTest(t)
	defer db.CleanupTestDB(env.db)

	income := env.addIncome(t, env.member, 100000, 2024)
	_, err := env.svc.Generate(context.Background(), &GenerateInput{
		MemberID: env.member.ID, TaxYear: 2024, IncomeIDs: []uint{income.ID},
	})
	require.NoError(t, err)

	receipts, total, err := env.svc.List(2024, "Chulsoo", 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, receipts, 1)

	_, total, err = env.svc.List(2024, "없는사람", 1)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestReceiptService_MemberDonations(t *testing.T) {
	env := setupReceiptServiceTest(t)
	defer db.CleanupTestDB(env.db)

	income := env.addIncome(t, env.member, 100000, 2024)
	env.addIncome(t, env.member, 50000, 2024)

	data, err := env.svc.MemberDonations(env.member.ID, 2024)
	require.NoError(t, err)
	assert.Len(t, data.Incomes, 2)
	assert.EqualValues(t, 150000, data.Total)
	assert.Nil(t, data.Receipt)

	_, err = env.svc.Generate(context.Background(), &GenerateInput{
		MemberID: env.member.ID, TaxYear: 2024, IncomeIDs: []uint{income.ID},
	})
	require.NoError(t, err)

	data, err = env.svc.MemberDonations(env.member.ID, 2024)
	require.NoError(t, err)
	require.NotNil(t, data.Receipt)
	assert.Equal(t, 1, data.Receipt.SerialNumber)
}

func TestReceiptService_Delete(t *testing.T) {
	env := setupReceiptServiceTest(t)
	defer db.CleanupTestDB(env.db)

	income := env.addIncome(t, env.member, 100000, 2024)
	result, err := env.svc.Generate(context.Background(), &GenerateInput{
		MemberID: env.member.ID, TaxYear: 2024, IncomeIDs: []uint{income.ID},
	})
	require.NoError(t, err)

	path := filepath.Join(env.store.Dir(), "2024", "receipt-2024-00001.pdf")
	_, err = os.Stat(path)
	require.NoError(t, err)

	require.NoError(t, env.svc.Delete(context.Background(), result.ReceiptID))

	// 파일과 행이 함께 사라진다
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	assert.ErrorIs(t, env.svc.Delete(context.Background(), result.ReceiptID), ErrReceiptNotFound)
}

// deleteRecordingStorage 파일 삭제 호출을 기록한다.
type deleteRecordingStorage struct {
	storage.ReceiptStorage
	deleted []string
}

func (s *deleteRecordingStorage) Delete(ctx context.Context, pdfURL string) error {
	s.deleted = append(s.deleted, pdfURL)
	return s.ReceiptStorage.Delete(ctx, pdfURL)
}

// failingDeleteStorage 파일 삭제가 항상 실패하는 저장소.
type failingDeleteStorage struct {
	storage.ReceiptStorage
}

func (s *failingDeleteStorage) Delete(ctx context.Context, pdfURL string) error {
	return errors.New("permission denied")
}

func (e *receiptTestEnv) newServiceWith(store storage.ReceiptStorage) ReceiptService {
	return NewReceiptService(
		repository.NewReceiptRepository(e.db),
		repository.NewIncomeRepository(e.db),
		repository.NewMemberRepository(e.db),
		repository.NewCharityRepository(e.db),
		store,
		e.db,
	)
}

func TestReceiptService_Generate_SerialConflictKeepsWinnerFile(t *testing.T) {
	env := setupReceiptServiceTest(t)
	defer db.CleanupTestDB(env.db)

	income := env.addIncome(t, env.member, 100000, 2024)

	recorder := &deleteRecordingStorage{ReceiptStorage: env.store}
	svc := env.newServiceWith(recorder)

	// 첫 insert만 unique 위반으로 실패시켜 일련번호 경합을 재현한다
	var once sync.Once
	err := env.db.Callback().Create().Before("gorm:create").Register("churchbook:serial_conflict", func(tx *gorm.DB) {
		if tx.Statement.Table != "receipts" {
			return
		}
		once.Do(func() {
			tx.AddError(errors.New("UNIQUE constraint failed: receipts.tax_year, receipts.serial_number"))
		})
	})
	require.NoError(t, err)
	defer env.db.Callback().Create().Remove("churchbook:serial_conflict")

	result, err := svc.Generate(context.Background(), &GenerateInput{
		MemberID: env.member.ID, TaxYear: 2024, IncomeIDs: []uint{income.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.SerialNumber)

	// 진 시도는 파일을 지우지 않는다. 경합에서 이긴 쪽의 행이 같은
	// 경로를 가리킬 수 있고, 고아 파일은 스위퍼 몫이다.
	assert.Empty(t, recorder.deleted)
	path := filepath.Join(env.store.Dir(), "2024", "receipt-2024-00001.pdf")
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestReceiptService_GenerateYear_BatchSizeClamped(t *testing.T) {
	env := setupReceiptServiceTest(t)
	defer db.CleanupTestDB(env.db)

	members := []*model.Member{env.member}
	for i := 0; i < 54; i++ {
		m := &model.Member{NameKey: fmt.Sprintf("교인%02d", i), NameLabel: fmt.Sprintf("교인%02d", i)}
		require.NoError(t, env.db.Create(m).Error)
		members = append(members, m)
	}
	for _, m := range members {
		env.addIncome(t, m, 10000, 2024)
	}

	// 요청한 100은 상한 50으로 잘린다
	result, err := env.svc.GenerateYear(context.Background(), &YearBatchInput{
		TaxYear: 2024, Cursor: 0, BatchSize: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, MaxYearBatchSize, result.Processed)
	require.NotNil(t, result.NextCursor)
	assert.Equal(t, MaxYearBatchSize, *result.NextCursor)

	// 0 이하는 기본값 20
	result, err = env.svc.GenerateYear(context.Background(), &YearBatchInput{
		TaxYear: 2024, Cursor: 0, BatchSize: 0,
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultYearBatchSize, result.Processed)
	require.NotNil(t, result.NextCursor)
	assert.Equal(t, DefaultYearBatchSize, *result.NextCursor)
}

func TestReceiptService_BulkDelete(t *testing.T) {
	env := setupReceiptServiceTest(t)
	defer db.CleanupTestDB(env.db)

	other := &model.Member{NameKey: "김영희", NameLabel: "김영희"}
	require.NoError(t, env.db.Create(other).Error)

	i1 := env.addIncome(t, env.member, 100000, 2024)
	i2 := env.addIncome(t, other, 50000, 2024)

	r1, err := env.svc.Generate(context.Background(), &GenerateInput{
		MemberID: env.member.ID, TaxYear: 2024, IncomeIDs: []uint{i1.ID},
	})
	require.NoError(t, err)
	r2, err := env.svc.Generate(context.Background(), &GenerateInput{
		MemberID: other.ID, TaxYear: 2024, IncomeIDs: []uint{i2.ID},
	})
	require.NoError(t, err)

	// 없는 ID는 조용히 무시된다
	deleted, err := env.svc.BulkDelete(context.Background(), []string{r1.ReceiptID, r2.ReceiptID, "nonexistent"})
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	var count int64
	env.db.Model(&model.Receipt{}).Count(&count)
	assert.Zero(t, count)
}

func TestReceiptService_BulkDelete_AbortsOnFileFailure(t *testing.T) {
	env := setupReceiptServiceTest(t)
	defer db.CleanupTestDB(env.db)

	other := &model.Member{NameKey: "김영희", NameLabel: "김영희"}
	require.NoError(t, env.db.Create(other).Error)

	i1 := env.addIncome(t, env.member, 100000, 2024)
	i2 := env.addIncome(t, other, 50000, 2024)

	r1, err := env.svc.Generate(context.Background(), &GenerateInput{
		MemberID: env.member.ID, TaxYear: 2024, IncomeIDs: []uint{i1.ID},
	})
	require.NoError(t, err)
	r2, err := env.svc.Generate(context.Background(), &GenerateInput{
		MemberID: other.ID, TaxYear: 2024, IncomeIDs: []uint{i2.ID},
	})
	require.NoError(t, err)

	// 파일 삭제가 실패하면 그 자리에서 중단하고 행은 전부 남는다
	svc := env.newServiceWith(&failingDeleteStorage{ReceiptStorage: env.store})
	deleted, err := svc.BulkDelete(context.Background(), []string{r1.ReceiptID, r2.ReceiptID})
	assert.ErrorIs(t, err, ErrReceiptFileDelete)
	assert.Zero(t, deleted)

	var count int64
	env.db.Model(&model.Receipt{}).Count(&count)
	assert.EqualValues(t, 2, count)
}
