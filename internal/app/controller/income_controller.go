package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/churchbook-backend/internal/app/model"
	"github.com/ikkim/churchbook-backend/internal/app/repository"
	"github.com/ikkim/churchbook-backend/internal/app/service"
	apperrors "github.com/ikkim/churchbook-backend/internal/errors"
	"github.com/ikkim/churchbook-backend/internal/middleware"
)

type IncomeController struct {
	incomeService service.IncomeService
}

func NewIncomeController(incomeService service.IncomeService) *IncomeController {
	return &IncomeController{
		incomeService: incomeService,
	}
}

type IncomeEntryRequest struct {
	Name     string `json:"name"`
	Amount   int64  `json:"amount"`
	TypeID   uint   `json:"typeId"`
	MethodID uint   `json:"methodId"`
	Note     string `json:"note"`
}

type SaveBatchRequest struct {
	Year    int                  `json:"year" binding:"required"`
	Month   int                  `json:"month" binding:"required"`
	Day     int                  `json:"day" binding:"required"`
	Entries []IncomeEntryRequest `json:"entries" binding:"required"`
}

type UpdateIncomeRequest struct {
	Name     string `json:"name" binding:"required"`
	Amount   int64  `json:"amount" binding:"required"`
	TypeID   uint   `json:"typeId" binding:"required"`
	MethodID uint   `json:"methodId" binding:"required"`
	Year     int    `json:"year" binding:"required"`
	Month    int    `json:"month" binding:"required"`
	Day      int    `json:"day" binding:"required"`
	Note     string `json:"note"`
}

// SaveBatch saves a batch of income rows sharing one date
// POST /api/v1/income/batch
func (ctrl *IncomeController) SaveBatch(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req SaveBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid income batch request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid form values.")
		return
	}

	entries := make([]service.IncomeEntryInput, 0, len(req.Entries))
	for _, e := range req.Entries {
		entries = append(entries, service.IncomeEntryInput{
			Name:     e.Name,
			Amount:   e.Amount,
			TypeID:   e.TypeID,
			MethodID: e.MethodID,
			Note:     e.Note,
		})
	}

	result, err := ctrl.incomeService.SaveBatch(c.Request.Context(), &service.BatchInput{
		Year:    req.Year,
		Month:   req.Month,
		Day:     req.Day,
		Entries: entries,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidDate):
			apperrors.BadRequest(c, apperrors.ValidationInvalidDate, "The date is not a valid calendar date.")
		case errors.Is(err, service.ErrNoValidEntries):
			apperrors.BadRequest(c, apperrors.IncomeNoValidEntry, "No valid entries to save.")
		case errors.Is(err, service.ErrMemberUnresolved):
			apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.IncomeUnresolved, "Failed to resolve a member. Nothing was saved.")
		default:
			log.Error("Failed to save income batch", err)
			info := apperrors.ParseError(err, "income")
			apperrors.RespondWithError(c, http.StatusInternalServerError, info.Code, info.Message)
		}
		return
	}

	log.Info("Income batch saved", map[string]interface{}{
		"income_count":    result.IncomeCount,
		"created_members": result.CreatedMembers,
	})

	c.JSON(http.StatusCreated, gin.H{
		"incomeCount":    result.IncomeCount,
		"createdMembers": result.CreatedMembers,
	})
}

// GetIncomeByID returns one income row in the flat lookup shape
// GET /api/v1/income/:id
func (ctrl *IncomeController) GetIncomeByID(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		log.Warn("Invalid income ID format", map[string]interface{}{
			"income_id": c.Param("id"),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid income ID.")
		return
	}

	income, err := ctrl.incomeService.Get(uint(id))
	if err != nil {
		if errors.Is(err, service.ErrIncomeNotFound) {
			apperrors.NotFound(c, apperrors.IncomeNotFound, "Income entry not found.")
			return
		}
		log.Error("Failed to fetch income", err, map[string]interface{}{
			"income_id": id,
		})
		apperrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"inc_id":     income.ID,
		"name":       income.Member.NameLabel,
		"amount":     income.Amount,
		"inc_type":   income.TypeID,
		"inc_method": income.MethodID,
		"notes":      income.Note,
		"year":       income.Year,
		"month":      income.Month,
		"day":        income.Day,
	})
}

// UpdateIncome updates one income row
// PUT /api/v1/income/:id
func (ctrl *IncomeController) UpdateIncome(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid income ID.")
		return
	}

	var req UpdateIncomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid income update request", map[string]interface{}{
			"income_id": id,
			"error":     err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid form values.")
		return
	}

	income, err := ctrl.incomeService.Update(c.Request.Context(), uint(id), &service.IncomeUpdateInput{
		Name:     req.Name,
		Amount:   req.Amount,
		TypeID:   req.TypeID,
		MethodID: req.MethodID,
		Year:     req.Year,
		Month:    req.Month,
		Day:      req.Day,
		Note:     req.Note,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrIncomeNotFound):
			apperrors.NotFound(c, apperrors.IncomeNotFound, "Income entry not found.")
		case errors.Is(err, service.ErrInvalidDate):
			apperrors.BadRequest(c, apperrors.ValidationInvalidDate, "The date is not a valid calendar date.")
		case errors.Is(err, service.ErrNoValidEntries):
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid form values.")
		default:
			log.Error("Failed to update income", err, map[string]interface{}{
				"income_id": id,
			})
			info := apperrors.ParseError(err, "income")
			apperrors.RespondWithError(c, http.StatusInternalServerError, info.Code, info.Message)
		}
		return
	}

	log.Info("Income updated", map[string]interface{}{
		"income_id": income.ID,
	})

	c.JSON(http.StatusOK, gin.H{
		"income": income,
	})
}

// DeleteIncome deletes one income row
// DELETE /api/v1/income/:id
func (ctrl *IncomeController) DeleteIncome(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid income ID.")
		return
	}

	if err := ctrl.incomeService.Delete(c.Request.Context(), uint(id)); err != nil {
		if errors.Is(err, service.ErrIncomeNotFound) {
			apperrors.NotFound(c, apperrors.IncomeNotFound, "Income entry not found.")
			return
		}
		log.Error("Failed to delete income", err, map[string]interface{}{
			"income_id": id,
		})
		apperrors.InternalError(c, "")
		return
	}

	log.Info("Income deleted", map[string]interface{}{
		"income_id": id,
	})

	c.JSON(http.StatusOK, gin.H{
		"deleted": true,
	})
}

// ListIncome returns a filtered, paginated income list
// GET /api/v1/income
func (ctrl *IncomeController) ListIncome(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	year, err := strconv.Atoi(c.Query("year"))
	if err != nil || year <= 0 {
		apperrors.BadRequest(c, apperrors.ValidationRequired, "The year parameter is required.")
		return
	}

	filter := repository.IncomeFilter{
		Year:     year,
		Month:    queryInt(c, "month"),
		Day:      queryInt(c, "day"),
		Quarter:  queryInt(c, "quarter"),
		TypeID:   uint(queryInt(c, "typeId")),
		MemberID: uint(queryInt(c, "memberId")),
		Query:    c.Query("query"),
		Page:     queryInt(c, "page"),
	}

	incomes, total, err := ctrl.incomeService.List(filter)
	if err != nil {
		log.Error("Failed to list income", err, map[string]interface{}{
			"year": year,
		})
		apperrors.InternalError(c, "")
		return
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}

	c.JSON(http.StatusOK, gin.H{
		"incomes": incomes,
		"pagination": gin.H{
			"page":       page,
			"pageSize":   service.IncomePageSize,
			"total":      total,
			"totalPages": totalPages(total, service.IncomePageSize),
		},
	})
}

// GetSummary returns yearly totals by category
// GET /api/v1/income/summary
func (ctrl *IncomeController) GetSummary(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	year, err := strconv.Atoi(c.Query("year"))
	if err != nil || year <= 0 {
		apperrors.BadRequest(c, apperrors.ValidationRequired, "The year parameter is required.")
		return
	}

	summary, err := ctrl.incomeService.Summary(c.Request.Context(), year)
	if err != nil {
		log.Error("Failed to build income summary", err, map[string]interface{}{
			"year": year,
		})
		apperrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetDates returns the recorded month/day options for a year
// GET /api/v1/income/dates
func (ctrl *IncomeController) GetDates(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	year, err := strconv.Atoi(c.Query("year"))
	if err != nil || year <= 0 {
		apperrors.BadRequest(c, apperrors.ValidationRequired, "The year parameter is required.")
		return
	}
	month := queryInt(c, "month")

	dates, err := ctrl.incomeService.MonthDayOptions(year, month)
	if err != nil {
		log.Error("Failed to fetch recorded dates", err, map[string]interface{}{
			"year": year,
		})
		apperrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"dates": dates,
	})
}

// ExportYear streams the year's income as an XLSX download
// GET /api/v1/income/export
func (ctrl *IncomeController) ExportYear(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	year, err := strconv.Atoi(c.Query("year"))
	if err != nil || year <= 0 {
		apperrors.BadRequest(c, apperrors.ValidationRequired, "The year parameter is required.")
		return
	}

	data, fileName, err := ctrl.incomeService.ExportYear(year)
	if err != nil {
		log.Error("Failed to export income year", err, map[string]interface{}{
			"year": year,
		})
		apperrors.InternalError(c, "")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+fileName+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// GetCategories returns lookup rows for one range
// GET /api/v1/categories
func (ctrl *IncomeController) GetCategories(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	categoryRange := model.CategoryRange(c.Query("range"))
	if categoryRange != model.RangeIncomeType && categoryRange != model.RangePaymentMethod {
		apperrors.BadRequest(c, apperrors.ValidationInvalidRange, "The range parameter must be income_type or payment_method.")
		return
	}

	categories, err := ctrl.incomeService.Categories(categoryRange)
	if err != nil {
		log.Error("Failed to fetch categories", err, map[string]interface{}{
			"range": categoryRange,
		})
		apperrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"categories": categories,
	})
}

func queryInt(c *gin.Context, name string) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func totalPages(total int64, pageSize int) int64 {
	if pageSize <= 0 {
		return 0
	}
	return (total + int64(pageSize) - 1) / int64(pageSize)
}
