package controller

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/churchbook-backend/internal/app/model"
	"github.com/ikkim/churchbook-backend/internal/app/repository"
	"github.com/ikkim/churchbook-backend/internal/app/service"
	"github.com/ikkim/churchbook-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupIncomeControllerTest(t *testing.T) (*gin.Engine, *gorm.DB, *model.Category, *model.Category) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	incomeType := &model.Category{Name: "Tithe", Range: model.RangeIncomeType, SortOrder: 1}
	require.NoError(t, testDB.Create(incomeType).Error)
	method := &model.Category{Name: "Cash", Range: model.RangePaymentMethod, SortOrder: 1}
	require.NoError(t, testDB.Create(method).Error)

	incomeService := service.NewIncomeService(
		repository.NewIncomeRepository(testDB),
		repository.NewMemberRepository(testDB),
		repository.NewCategoryRepository(testDB),
		testDB,
	)
	controller := NewIncomeController(incomeService)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/income/batch", controller.SaveBatch)
	router.GET("/income", controller.ListIncome)
	router.GET("/income/:id", controller.GetIncomeByID)
	router.DELETE("/income/:id", controller.DeleteIncome)
	router.GET("/categories", controller.GetCategories)

	return router, testDB, incomeType, method
}

func postBatch(t *testing.T, router *gin.Engine, body gin.H) *httptest.ResponseRecorder {
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/income/batch", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestIncomeController_SaveBatch_Success(t *testing.T) {
	router, _, incomeType, method := setupIncomeControllerTest(t)

	w := postBatch(t, router, gin.H{
		"year": 2024, "month": 3, "day": 10,
		"entries": []gin.H{
			{"name": "김철수", "amount": 50000, "typeId": incomeType.ID, "methodId": method.ID},
			{"name": "김 철수", "amount": 30000, "typeId": incomeType.ID, "methodId": method.ID},
		},
	})

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.EqualValues(t, 2, resp["incomeCount"])
	assert.EqualValues(t, 1, resp["createdMembers"])
}

func TestIncomeController_SaveBatch_InvalidDate(t *testing.T) {
	router, _, incomeType, method := setupIncomeControllerTest(t)

	w := postBatch(t, router, gin.H{
		"year": 2024, "month": 2, "day": 30,
		"entries": []gin.H{
			{"name": "김철수", "amount": 50000, "typeId": incomeType.ID, "methodId": method.ID},
		},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "VALIDATION_INVALID_DATE", resp["error"])
}

func TestIncomeController_SaveBatch_NoValidEntries(t *testing.T) {
	router, _, incomeType, method := setupIncomeControllerTest(t)

	w := postBatch(t, router, gin.H{
		"year": 2024, "month": 3, "day": 10,
		"entries": []gin.H{
			{"name": "", "amount": 50000, "typeId": incomeType.ID, "methodId": method.ID},
		},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INCOME_NO_VALID_ENTRY", resp["error"])
}

func TestIncomeController_GetIncomeByID_InvalidID(t *testing.T) {
	router, _, _, _ := setupIncomeControllerTest(t)

	// 숫자가 아니거나 0 이하인 ID는 404가 아니라 400이다
	for _, id := range []string{"abc", "0"} {
		req := httptest.NewRequest(http.MethodGet, "/income/"+id, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "VALIDATION_INVALID_ID", resp["error"])
	}
}

func TestIncomeController_GetIncomeByID_NotFound(t *testing.T) {
	router, _, _, _ := setupIncomeControllerTest(t)

	req := httptest.NewRequest(http.MethodGet, "/income/9999", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INCOME_NOT_FOUND", resp["error"])
}

func TestIncomeController_GetIncomeByID_FlatShape(t *testing.T) {
	router, _, incomeType, method := setupIncomeControllerTest(t)

	w := postBatch(t, router, gin.H{
		"year": 2024, "month": 3, "day": 10,
		"entries": []gin.H{
			{"name": "김 철수", "amount": 50000, "typeId": incomeType.ID, "methodId": method.ID, "note": "첫 헌금"},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/income/1", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	// 조회/수정 폼이 쓰는 평면 응답
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.EqualValues(t, 1, resp["inc_id"])
	assert.Equal(t, "김 철수", resp["name"])
	assert.EqualValues(t, 50000, resp["amount"])
	assert.EqualValues(t, incomeType.ID, resp["inc_type"])
	assert.EqualValues(t, method.ID, resp["inc_method"])
	assert.Equal(t, "첫 헌금", resp["notes"])
	assert.EqualValues(t, 2024, resp["year"])
	assert.EqualValues(t, 3, resp["month"])
	assert.EqualValues(t, 10, resp["day"])
}

func TestIncomeController_ListIncome_YearRequired(t *testing.T) {
	router, _, _, _ := setupIncomeControllerTest(t)

	req := httptest.NewRequest(http.MethodGet, "/income", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "VALIDATION_REQUIRED", resp["error"])
}

func TestIncomeController_ListIncome_Pagination(t *testing.T) {
	router, _, incomeType, method := setupIncomeControllerTest(t)

	entries := make([]gin.H, 0, 35)
	for i := 0; i < 35; i++ {
		entries = append(entries, gin.H{
			"name":     fmt.Sprintf("교인%02d", i),
			"amount":   10000,
			"typeId":   incomeType.ID,
			"methodId": method.ID,
		})
	}
	w := postBatch(t, router, gin.H{"year": 2024, "month": 3, "day": 10, "entries": entries})
	require.Equal(t, http.StatusCreated, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/income?year=2024", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Incomes    []json.RawMessage `json:"incomes"`
		Pagination struct {
			Page       int   `json:"page"`
			PageSize   int   `json:"pageSize"`
			Total      int64 `json:"total"`
			TotalPages int64 `json:"totalPages"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Incomes, 30)
	assert.Equal(t, 30, resp.Pagination.PageSize)
	assert.EqualValues(t, 35, resp.Pagination.Total)
	assert.EqualValues(t, 2, resp.Pagination.TotalPages)
}

func TestIncomeController_DeleteIncome(t *testing.T) {
	router, _, incomeType, method := setupIncomeControllerTest(t)

	w := postBatch(t, router, gin.H{
		"year": 2024, "month": 3, "day": 10,
		"entries": []gin.H{
			{"name": "김철수", "amount": 50000, "typeId": incomeType.ID, "methodId": method.ID},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	req := httptest.NewRequest(http.MethodDelete, "/income/1", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodDelete, "/income/1", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestIncomeController_GetCategories(t *testing.T) {
	router, _, _, _ := setupIncomeControllerTest(t)

	req := httptest.NewRequest(http.MethodGet, "/categories?range=income_type", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Categories []model.Category `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Categories, 1)
	assert.Equal(t, "Tithe", resp.Categories[0].Name)

	// range 값이 잘못되면 400
	req = httptest.NewRequest(http.MethodGet, "/categories?range=bogus", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
