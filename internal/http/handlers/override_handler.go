package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/hostel-backend/internal/dto"
	"github.com/ignatzorin/hostel-backend/internal/http/handlers/common"
	"github.com/ignatzorin/hostel-backend/internal/service"
)

// OverrideHandler обслуживает маршруты запросов на внеурочные визиты.
type OverrideHandler struct {
	overrides *service.OverrideService
}

// NewOverrideHandler создаёт новый хэндлер.
func NewOverrideHandler(overrides *service.OverrideService) *OverrideHandler {
	return &OverrideHandler{overrides: overrides}
}

// RequestOverride обрабатывает POST /overrides.
func (h *OverrideHandler) RequestOverride(c *gin.Context) {
	guardID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.RequestOverrideRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	studentID, err := uuid.Parse(req.StudentID)
	if err != nil {
		common.RespondBadRequest(c, "неверный идентификатор студента")
		return
	}

	request, err := h.overrides.RequestOverride(c.Request.Context(), service.RequestOverrideInput{
		GuardID:      guardID,
		StudentID:    studentID,
		VisitorName:  req.VisitorName,
		VisitorPhone: req.VisitorPhone,
		Reason:       req.Reason,
		Purpose:      req.Purpose,
		Urgency:      req.Urgency,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, request)
}

// Resolve обрабатывает POST /overrides/:id/resolve (только комендант).
func (h *OverrideHandler) Resolve(c *gin.Context) {
	wardenID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	requestID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.ResolveRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	request, visit, err := h.overrides.Resolve(c.Request.Context(), requestID, wardenID, req.Approve, req.Note)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.OverrideResolutionResponse{
		Request: request,
		Visit:   visit,
	})
}

// GetRequest обрабатывает GET /overrides/:id.
func (h *OverrideHandler) GetRequest(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	role, err := common.CurrentUserRole(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	requestID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	request, err := h.overrides.GetRequest(c.Request.Context(), requestID, userID, role)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

// PendingQueue обрабатывает GET /overrides/pending (только комендант).
func (h *OverrideHandler) PendingQueue(c *gin.Context) {
	requests, err := h.overrides.PendingQueue(c.Request.Context())
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, requests)
}

// MyRequests обрабатывает GET /overrides/my (охранник).
func (h *OverrideHandler) MyRequests(c *gin.Context) {
	guardID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)

	requests, err := h.overrides.GuardRequests(c.Request.Context(), guardID, limit, offset)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, requests)
}
