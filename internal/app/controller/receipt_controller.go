package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/churchbook-backend/internal/app/service"
	apperrors "github.com/ikkim/churchbook-backend/internal/errors"
	"github.com/ikkim/churchbook-backend/internal/middleware"
)

type ReceiptController struct {
	receiptService service.ReceiptService
}

func NewReceiptController(receiptService service.ReceiptService) *ReceiptController {
	return &ReceiptController{
		receiptService: receiptService,
	}
}

type GenerateReceiptRequest struct {
	MemberID  uint   `json:"memberId" binding:"required"`
	TaxYear   int    `json:"taxYear" binding:"required"`
	IncomeIDs []uint `json:"incomeIds" binding:"required"`
}

type GenerateYearRequest struct {
	TaxYear   int `json:"taxYear" binding:"required"`
	Cursor    int `json:"cursor"`
	BatchSize int `json:"batchSize"`
}

type BulkDeleteRequest struct {
	ReceiptIDs []string `json:"receiptIds" binding:"required"`
}

// GenerateReceipt issues a receipt for selected donations
// POST /api/v1/receipts/generate
func (ctrl *ReceiptController) GenerateReceipt(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req GenerateReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid receipt generate request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid form values.")
		return
	}

	result, err := ctrl.receiptService.Generate(c.Request.Context(), &service.GenerateInput{
		MemberID:  req.MemberID,
		TaxYear:   req.TaxYear,
		IncomeIDs: req.IncomeIDs,
	})
	if err != nil {
		ctrl.respondGenerateError(c, err, req.MemberID, req.TaxYear)
		return
	}

	log.Info("Receipt generated", map[string]interface{}{
		"receipt_id": result.ReceiptID,
		"member_id":  req.MemberID,
		"tax_year":   req.TaxYear,
		"serial":     result.SerialNumber,
	})

	c.JSON(http.StatusCreated, result)
}

// GenerateYearBatch processes one chunk of the year-wide generation
// POST /api/v1/receipts/generate-year
func (ctrl *ReceiptController) GenerateYearBatch(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req GenerateYearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid form values.")
		return
	}

	result, err := ctrl.receiptService.GenerateYear(c.Request.Context(), &service.YearBatchInput{
		TaxYear:   req.TaxYear,
		Cursor:    req.Cursor,
		BatchSize: req.BatchSize,
	})
	if err != nil {
		if errors.Is(err, service.ErrCharityProfileMissing) {
			apperrors.Conflict(c, apperrors.CharityProfileMissing, "Charity profile is not set up yet.")
			return
		}
		log.Error("Failed to process year batch", err, map[string]interface{}{
			"tax_year": req.TaxYear,
			"cursor":   req.Cursor,
		})
		apperrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListReceipts returns the manage list
// GET /api/v1/receipts
func (ctrl *ReceiptController) ListReceipts(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	taxYear := queryInt(c, "taxYear")
	page := queryInt(c, "page")
	if page < 1 {
		page = 1
	}

	receipts, total, err := ctrl.receiptService.List(taxYear, c.Query("query"), page)
	if err != nil {
		log.Error("Failed to list receipts", err, map[string]interface{}{
			"tax_year": taxYear,
		})
		apperrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"receipts": receipts,
		"pagination": gin.H{
			"page":       page,
			"pageSize":   service.ReceiptPageSize,
			"total":      total,
			"totalPages": totalPages(total, service.ReceiptPageSize),
		},
	})
}

// GetMemberDonations returns a member's donation rows for a year plus any
// existing receipt
// GET /api/v1/receipts/member/:memberId
func (ctrl *ReceiptController) GetMemberDonations(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	memberID, err := strconv.ParseUint(c.Param("memberId"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid member ID.")
		return
	}

	taxYear := queryInt(c, "taxYear")
	if taxYear <= 0 {
		apperrors.BadRequest(c, apperrors.ValidationRequired, "The taxYear parameter is required.")
		return
	}

	data, err := ctrl.receiptService.MemberDonations(uint(memberID), taxYear)
	if err != nil {
		if errors.Is(err, service.ErrMemberNotFound) {
			apperrors.NotFound(c, apperrors.MemberNotFound, "Member not found.")
			return
		}
		log.Error("Failed to fetch member donations", err, map[string]interface{}{
			"member_id": memberID,
			"tax_year":  taxYear,
		})
		apperrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, data)
}

// DeleteReceipt deletes the PDF first, then the row
// DELETE /api/v1/receipts/:id
func (ctrl *ReceiptController) DeleteReceipt(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id := c.Param("id")
	if id == "" {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid receipt ID.")
		return
	}

	if err := ctrl.receiptService.Delete(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, service.ErrReceiptNotFound):
			apperrors.NotFound(c, apperrors.ReceiptNotFound, "Receipt not found.")
		case errors.Is(err, service.ErrReceiptFileDelete):
			apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.ReceiptFileDelete, "Failed to delete the receipt file. The receipt was kept.")
		default:
			log.Error("Failed to delete receipt", err, map[string]interface{}{
				"receipt_id": id,
			})
			apperrors.InternalError(c, "")
		}
		return
	}

	log.Info("Receipt deleted", map[string]interface{}{
		"receipt_id": id,
	})

	c.JSON(http.StatusOK, gin.H{
		"deleted": true,
	})
}

// BulkDeleteReceipts deletes several receipts, file-first for each
// POST /api/v1/receipts/bulk-delete
func (ctrl *ReceiptController) BulkDeleteReceipts(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid form values.")
		return
	}

	deleted, err := ctrl.receiptService.BulkDelete(c.Request.Context(), req.ReceiptIDs)
	if err != nil {
		if errors.Is(err, service.ErrReceiptFileDelete) {
			apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.ReceiptFileDelete, "Failed to delete a receipt file. Remaining receipts were kept.")
			return
		}
		log.Error("Failed to bulk delete receipts", err, map[string]interface{}{
			"requested": len(req.ReceiptIDs),
		})
		apperrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"deleted": deleted,
	})
}

func (ctrl *ReceiptController) respondGenerateError(c *gin.Context, err error, memberID uint, taxYear int) {
	log := middleware.GetLoggerFromContext(c)

	switch {
	case errors.Is(err, service.ErrMemberNotFound):
		apperrors.NotFound(c, apperrors.MemberNotFound, "Member not found.")
	case errors.Is(err, service.ErrCharityProfileMissing):
		apperrors.Conflict(c, apperrors.CharityProfileMissing, "Charity profile is not set up yet.")
	case errors.Is(err, service.ErrIncomeSelectionInvalid):
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "The selected donations do not match the member and tax year.")
	case errors.Is(err, service.ErrNoReceiptableIncome):
		apperrors.BadRequest(c, apperrors.ReceiptNoDonations, "There are no receiptable donations.")
	case errors.Is(err, service.ErrReceiptZeroTotal):
		apperrors.BadRequest(c, apperrors.ReceiptZeroTotal, "The receipt total must be positive.")
	case errors.Is(err, service.ErrSerialExhausted):
		apperrors.Conflict(c, apperrors.ReceiptSerialConflict, "Receipt serial number conflict. Please try again.")
	default:
		log.Error("Failed to generate receipt", err, map[string]interface{}{
			"member_id": memberID,
			"tax_year":  taxYear,
		})
		info := apperrors.ParseError(err, "receipt")
		apperrors.RespondWithError(c, http.StatusInternalServerError, info.Code, info.Message)
	}
}
