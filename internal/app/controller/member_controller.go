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

type MemberController struct {
	memberService service.MemberService
}

func NewMemberController(memberService service.MemberService) *MemberController {
	return &MemberController{
		memberService: memberService,
	}
}

type MemberRequest struct {
	Name      string `json:"name" binding:"required"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Address   string `json:"address"`
	City      string `json:"city"`
	Province  string `json:"province"`
	Postal    string `json:"postal"`
	Note      string `json:"note"`
}

func (r *MemberRequest) toInput() *service.MemberInput {
	return &service.MemberInput{
		Name:      r.Name,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Address:   r.Address,
		City:      r.City,
		Province:  r.Province,
		Postal:    r.Postal,
		Note:      r.Note,
	}
}

// CreateMember creates a member
// POST /api/v1/members
func (ctrl *MemberController) CreateMember(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid member create request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.RespondWithValidationError(c, "", map[string]string{
			"name": "Name is required.",
		})
		return
	}

	member, err := ctrl.memberService.Create(req.toInput())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMemberNameRequired):
			apperrors.RespondWithValidationError(c, "", map[string]string{
				"name": "Name is required.",
			})
		case errors.Is(err, service.ErrMemberNameExists):
			apperrors.RespondWithValidationError(c, "", map[string]string{
				"name": "This name already exists.",
			})
		default:
			log.Error("Failed to create member", err)
			info := apperrors.ParseError(err, "member")
			apperrors.RespondWithError(c, http.StatusInternalServerError, info.Code, info.Message)
		}
		return
	}

	log.Info("Member created", map[string]interface{}{
		"member_id": member.ID,
	})

	c.JSON(http.StatusCreated, gin.H{
		"member": member,
	})
}

// ListMembers returns a paged member search
// GET /api/v1/members
func (ctrl *MemberController) ListMembers(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	page := queryInt(c, "page")
	if page < 1 {
		page = 1
	}
	query := c.Query("query")

	members, total, err := ctrl.memberService.Search(query, page)
	if err != nil {
		log.Error("Failed to search members", err, map[string]interface{}{
			"query": query,
		})
		apperrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"members": members,
		"pagination": gin.H{
			"page":       page,
			"pageSize":   service.MemberPageSize,
			"total":      total,
			"totalPages": totalPages(total, service.MemberPageSize),
		},
	})
}

// GetMemberByID returns the edit-form payload
// GET /api/v1/members/:id
func (ctrl *MemberController) GetMemberByID(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid member ID.")
		return
	}

	member, err := ctrl.memberService.Get(uint(id))
	if err != nil {
		if errors.Is(err, service.ErrMemberNotFound) {
			apperrors.NotFound(c, apperrors.MemberNotFound, "Member not found.")
			return
		}
		log.Error("Failed to fetch member", err, map[string]interface{}{
			"member_id": id,
		})
		apperrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"member": member,
	})
}

// UpdateMember updates contact fields; the name identity is immutable
// PUT /api/v1/members/:id
func (ctrl *MemberController) UpdateMember(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid member ID.")
		return
	}

	var req MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithValidationError(c, "", map[string]string{
			"name": "Name is required.",
		})
		return
	}

	member, err := ctrl.memberService.Update(uint(id), req.toInput())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMemberNotFound):
			apperrors.NotFound(c, apperrors.MemberNotFound, "Member not found.")
		case errors.Is(err, service.ErrMemberNameRequired):
			apperrors.RespondWithValidationError(c, "", map[string]string{
				"name": "Name is required.",
			})
		case errors.Is(err, service.ErrMemberNameImmutable):
			apperrors.RespondWithValidationError(c, "", map[string]string{
				"name": "The name identity cannot be changed. Spacing may differ, but the letters must stay the same.",
			})
		default:
			log.Error("Failed to update member", err, map[string]interface{}{
				"member_id": id,
			})
			info := apperrors.ParseError(err, "member")
			apperrors.RespondWithError(c, http.StatusInternalServerError, info.Code, info.Message)
		}
		return
	}

	log.Info("Member updated", map[string]interface{}{
		"member_id": member.ID,
	})

	c.JSON(http.StatusOK, gin.H{
		"member": member,
	})
}

// DeleteMember deletes a member; income references keep the row intact
// DELETE /api/v1/members/:id
func (ctrl *MemberController) DeleteMember(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid member ID.")
		return
	}

	if err := ctrl.memberService.Delete(uint(id)); err != nil {
		switch {
		case errors.Is(err, service.ErrMemberNotFound):
			apperrors.NotFound(c, apperrors.MemberNotFound, "Member not found.")
		case errors.Is(err, service.ErrMemberReferenced):
			apperrors.Conflict(c, apperrors.MemberReferenced, "Failed to delete. It may be referenced by income records.")
		default:
			log.Error("Failed to delete member", err, map[string]interface{}{
				"member_id": id,
			})
			apperrors.InternalError(c, "")
		}
		return
	}

	log.Info("Member deleted", map[string]interface{}{
		"member_id": id,
	})

	c.JSON(http.StatusOK, gin.H{
		"deleted": true,
	})
}
