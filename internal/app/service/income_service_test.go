package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/ikkim/churchbook-backend/internal/app/model"
	"github.com/ikkim/churchbook-backend/internal/app/repository"
	"github.com/ikkim/churchbook-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupIncomeServiceTest(t *testing.T) (*gorm.DB, IncomeService, *model.Category, *model.Category) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)

	incomeType := &model.Category{Name: "Tithe", Range: model.RangeIncomeType, SortOrder: 1}
	require.NoError(t, testDB.Create(incomeType).Error)
	method := &model.Category{Name: "Cash", Range: model.RangePaymentMethod, SortOrder: 1}
	require.NoError(t, testDB.Create(method).Error)

	svc := NewIncomeService(
		repository.NewIncomeRepository(testDB),
		repository.NewMemberRepository(testDB),
		repository.NewCategoryRepository(testDB),
		testDB,
	)
	return testDB, svc, incomeType, method
}

func TestIncomeService_SaveBatch_DedupesMembersByNameKey(t *testing.T) {
	testDB, svc, incomeType, method := setupIncomeServiceTest(t)
	defer db.CleanupTestDB(testDB)

	// 김철수와 "김 철수"는 같은 사람, 김영희는 새 교인
	result, err := svc.SaveBatch(context.Background(), &BatchInput{
		Year: 2024, Month: 3, Day: 10,
		Entries: []IncomeEntryInput{
			{Name: "김철수", Amount: 50000, TypeID: incomeType.ID, MethodID: method.ID},
			{Name: "김 철수", Amount: 30000, TypeID: incomeType.ID, MethodID: method.ID},
			{Name: "김영희", Amount: 20000, TypeID: incomeType.ID, MethodID: method.ID},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.IncomeCount)
	assert.Equal(t, 2, result.CreatedMembers)

	var memberCount int64
	testDB.Model(&model.Member{}).Count(&memberCount)
	assert.EqualValues(t, 2, memberCount)

	// 두 김철수 행은 같은 교인에게 붙는다
	var incomes []model.Income
	require.NoError(t, testDB.Joins("Member").Where("\"Member\".name_key = ?", "김철수").Find(&incomes).Error)
	require.Len(t, incomes, 2)
	assert.Equal(t, incomes[0].MemberID, incomes[1].MemberID)
	assert.Equal(t, 1, incomes[0].Quarter)
}

func TestIncomeService_SaveBatch_ReusesExistingMember(t *testing.T) {
	testDB, svc, incomeType, method := setupIncomeServiceTest(t)
	defer db.CleanupTestDB(testDB)

	existing := &model.Member{NameKey: "김철수", NameLabel: "김 철수"}
	require.NoError(t, testDB.Create(existing).Error)

	result, err := svc.SaveBatch(context.Background(), &BatchInput{
		Year: 2024, Month: 6, Day: 2,
		Entries: []IncomeEntryInput{
			{Name: "김철수", Amount: 10000, TypeID: incomeType.ID, MethodID: method.ID},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.IncomeCount)
	assert.Equal(t, 0, result.CreatedMembers)

	var income model.Income
	require.NoError(t, testDB.First(&income).Error)
	assert.Equal(t, existing.ID, income.MemberID)
	assert.Equal(t, 2, income.Quarter)
}

func TestIncomeService_SaveBatch_DropsInvalidRows(t *testing.T) {
	testDB, svc, incomeType, method := setupIncomeServiceTest(t)
	defer db.CleanupTestDB(testDB)

	result, err := svc.SaveBatch(context.Background(), &BatchInput{
		Year: 2024, Month: 3, Day: 10,
		Entries: []IncomeEntryInput{
			{Name: "김철수", Amount: 50000, TypeID: incomeType.ID, MethodID: method.ID},
			{Name: "   ", Amount: 50000, TypeID: incomeType.ID, MethodID: method.ID},
			{Name: "김영희", Amount: 0, TypeID: incomeType.ID, MethodID: method.ID},
			{Name: "박지훈", Amount: 10000, TypeID: 0, MethodID: method.ID},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.IncomeCount)
	assert.Equal(t, 1, result.CreatedMembers)
}

func TestIncomeService_SaveBatch_NoValidEntries(t *testing.T) {
	testDB, svc, incomeType, method := setupIncomeServiceTest(t)
	defer db.CleanupTestDB(testDB)

	_, err := svc.SaveBatch(context.Background(), &BatchInput{
		Year: 2024, Month: 3, Day: 10,
		Entries: []IncomeEntryInput{
			{Name: "", Amount: 50000, TypeID: incomeType.ID, MethodID: method.ID},
			{Name: "김철수", Amount: -100, TypeID: incomeType.ID, MethodID: method.ID},
		},
	})
	assert.ErrorIs(t, err, ErrNoValidEntries)

	var count int64
	testDB.Model(&model.Income{}).Count(&count)
	assert.Zero(t, count)
}

func TestIncomeService_SaveBatch_InvalidDate(t *testing.T) {
	testDB, svc, incomeType, method := setupIncomeServiceTest(t)
	defer db.CleanupTestDB(testDB)

	_, err := svc.SaveBatch(context.Background(), &BatchInput{
		Year: 2024, Month: 2, Day: 30,
		Entries: []IncomeEntryInput{
			{Name: "김철수", Amount: 50000, TypeID: incomeType.ID, MethodID: method.ID},
		},
	})
	assert.ErrorIs(t, err, ErrInvalidDate)

	// 윤년 2월 29일은 유효하다
	_, err = svc.SaveBatch(context.Background(), &BatchInput{
		Year: 2024, Month: 2, Day: 29,
		Entries: []IncomeEntryInput{
			{Name: "김철수", Amount: 50000, TypeID: incomeType.ID, MethodID: method.ID},
		},
	})
	assert.NoError(t, err)
}

func TestIncomeService_Update_CreatesMemberOnMiss(t *testing.T) {
	testDB, svc, incomeType, method := setupIncomeServiceTest(t)
	defer db.CleanupTestDB(testDB)

	_, err := svc.SaveBatch(context.Background(), &BatchInput{
		Year: 2024, Month: 3, Day: 10,
		Entries: []IncomeEntryInput{
			{Name: "김철수", Amount: 50000, TypeID: incomeType.ID, MethodID: method.ID},
		},
	})
	require.NoError(t, err)

	var income model.Income
	require.NoError(t, testDB.First(&income).Error)

	updated, err := svc.Update(context.Background(), income.ID, &IncomeUpdateInput{
		Name:     "박지훈",
		Amount:   70000,
		TypeID:   incomeType.ID,
		MethodID: method.ID,
		Year:     2024, Month: 11, Day: 3,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 70000, updated.Amount)
	assert.Equal(t, 4, updated.Quarter)

	var member model.Member
	require.NoError(t, testDB.Where("name_key = ?", "박지훈").First(&member).Error)
	assert.Equal(t, member.ID, updated.MemberID)
}

func TestIncomeService_Update_NotFound(t *testing.T) {
	testDB, svc, incomeType, method := setupIncomeServiceTest(t)
	defer db.CleanupTestDB(testDB)

	_, err := svc.Update(context.Background(), 9999, &IncomeUpdateInput{
		Name: "김철수", Amount: 1000, TypeID: incomeType.ID, MethodID: method.ID,
		Year: 2024, Month: 1, Day: 1,
	})
	assert.ErrorIs(t, err, ErrIncomeNotFound)
}

func TestIncomeService_Delete(t *testing.T) {
	testDB, svc, incomeType, method := setupIncomeServiceTest(t)
	defer db.CleanupTestDB(testDB)

	_, err := svc.SaveBatch(context.Background(), &BatchInput{
		Year: 2024, Month: 3, Day: 10,
		Entries: []IncomeEntryInput{
			{Name: "김철수", Amount: 50000, TypeID: incomeType.ID, MethodID: method.ID},
		},
	})
	require.NoError(t, err)

	var income model.Income
	require.NoError(t, testDB.First(&income).Error)

	require.NoError(t, svc.Delete(context.Background(), income.ID))
	assert.ErrorIs(t, svc.Delete(context.Background(), income.ID), ErrIncomeNotFound)
}

func TestIncomeService_Summary(t *testing.T) {
	testDB, svc, incomeType, method := setupIncomeServiceTest(t)
	defer db.CleanupTestDB(testDB)

	thanks := &model.Category{Name: "Thanks", Range: model.RangeIncomeType, SortOrder: 2}
	require.NoError(t, testDB.Create(thanks).Error)

	_, err := svc.SaveBatch(context.Background(), &BatchInput{
		Year: 2024, Month: 3, Day: 10,
		Entries: []IncomeEntryInput{
			{Name: "김철수", Amount: 50000, TypeID: incomeType.ID, MethodID: method.ID},
			{Name: "김영희", Amount: 30000, TypeID: thanks.ID, MethodID: method.ID},
		},
	})
	require.NoError(t, err)

	summary, err := svc.Summary(context.Background(), 2024)
	require.NoError(t, err)
	assert.Equal(t, 2024, summary.Year)
	assert.EqualValues(t, 80000, summary.GrandTotal)
	assert.EqualValues(t, 2, summary.TotalCount)
	require.Len(t, summary.Types, 2)
	require.Len(t, summary.Quarters, 1)
	assert.Equal(t, 1, summary.Quarters[0].Quarter)
}

func TestIncomeService_MonthDayOptions(t *testing.T) {
	testDB, svc, incomeType, method := setupIncomeServiceTest(t)
	defer db.CleanupTestDB(testDB)

	for _, d := range []struct{ m, day int }{{1, 7}, {1, 14}, {2, 4}} {
		_, err := svc.SaveBatch(context.Background(), &BatchInput{
			Year: 2024, Month: d.m, Day: d.day,
			Entries: []IncomeEntryInput{
				{Name: "김철수", Amount: 10000, TypeID: incomeType.ID, MethodID: method.ID},
			},
		})
		require.NoError(t, err)
	}

	all, err := svc.MonthDayOptions(2024, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	january, err := svc.MonthDayOptions(2024, 1)
	require.NoError(t, err)
	assert.Len(t, january, 2)
}

func TestIncomeService_ExportYear(t *testing.T) {
	testDB, svc, incomeType, method := setupIncomeServiceTest(t)
	defer db.CleanupTestDB(testDB)

	_, err := svc.SaveBatch(context.Background(), &BatchInput{
		Year: 2024, Month: 3, Day: 10,
		Entries: []IncomeEntryInput{
			{Name: "김철수", Amount: 50000, TypeID: incomeType.ID, MethodID: method.ID},
		},
	})
	require.NoError(t, err)

	data, fileName, err := svc.ExportYear(2024)
	require.NoError(t, err)
	assert.Equal(t, "income-2024.xlsx", fileName)
	// XLSX는 ZIP 컨테이너다
	assert.True(t, bytes.HasPrefix(data, []byte("PK")))
}

func TestIncomeService_Categories(t *testing.T) {
	testDB, svc, incomeType, _ := setupIncomeServiceTest(t)
	defer db.CleanupTestDB(testDB)

	types, err := svc.Categories(model.RangeIncomeType)
	require.NoError(t, err)
	require.Len(t, types, 1)
	assert.Equal(t, incomeType.Name, types[0].Name)

	methods, err := svc.Categories(model.RangePaymentMethod)
	require.NoError(t, err)
	assert.Len(t, methods, 1)
}
