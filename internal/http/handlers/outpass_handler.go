package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/hostel-backend/internal/dto"
	"github.com/ignatzorin/hostel-backend/internal/http/handlers/common"
	"github.com/ignatzorin/hostel-backend/internal/repository"
	"github.com/ignatzorin/hostel-backend/internal/service"
)

// OutpassHandler обслуживает маршруты увольнительных.
type OutpassHandler struct {
	outpasses *service.OutpassService
	students  *repository.StudentRepository
}

// NewOutpassHandler создаёт новый хэндлер.
func NewOutpassHandler(outpasses *service.OutpassService, students *repository.StudentRepository) *OutpassHandler {
	return &OutpassHandler{outpasses: outpasses, students: students}
}

// Create обрабатывает POST /outpasses (студент).
func (h *OutpassHandler) Create(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	student, err := h.students.GetByUserID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrStudentNotFound) {
			common.RespondError(c, http.StatusForbidden, "профиль студента не найден")
			return
		}
		common.RespondAppError(c, err)
		return
	}

	var req dto.CreateOutpassRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	outpass, err := h.outpasses.Create(c.Request.Context(), service.CreateOutpassInput{
		StudentID:      student.ID,
		Reason:         req.Reason,
		Destination:    req.Destination,
		LeaveAt:        req.LeaveAt,
		ExpectedReturn: req.ExpectedReturn,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, outpass)
}

// Resolve обрабатывает POST /outpasses/:id/resolve (только комендант).
func (h *OutpassHandler) Resolve(c *gin.Context) {
	wardenID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	outpassID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.ResolveRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	outpass, err := h.outpasses.Resolve(c.Request.Context(), outpassID, wardenID, req.Approve, req.Note)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, outpass)
}

// MarkOut обрабатывает POST /outpasses/:id/out (охранник у выхода).
func (h *OutpassHandler) MarkOut(c *gin.Context) {
	outpassID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	outpass, err := h.outpasses.MarkOut(c.Request.Context(), outpassID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, outpass)
}

// MarkReturned обрабатывает POST /outpasses/:id/return (охранник у входа).
func (h *OutpassHandler) MarkReturned(c *gin.Context) {
	outpassID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	outpass, err := h.outpasses.MarkReturned(c.Request.Context(), outpassID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, outpass)
}

// Get обрабатывает GET /outpasses/:id.
func (h *OutpassHandler) Get(c *gin.Context) {
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

	outpassID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	outpass, err := h.outpasses.Get(c.Request.Context(), outpassID, userID, role)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, outpass)
}

// My обрабатывает GET /outpasses/my (студент).
func (h *OutpassHandler) My(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	student, err := h.students.GetByUserID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrStudentNotFound) {
			common.RespondError(c, http.StatusForbidden, "профиль студента не найден")
			return
		}
		common.RespondAppError(c, err)
		return
	}

	limit, offset := common.GetPagination(c)

	outpasses, err := h.outpasses.StudentOutpasses(c.Request.Context(), student.ID, limit, offset)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, outpasses)
}

// PendingQueue обрабатывает GET /outpasses/pending (только комендант).
func (h *OutpassHandler) PendingQueue(c *gin.Context) {
	outpasses, err := h.outpasses.PendingQueue(c.Request.Context())
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, outpasses)
}

// AwaitingReturn обрабатывает GET /outpasses/out (охрана и комендант).
func (h *OutpassHandler) AwaitingReturn(c *gin.Context) {
	outpasses, err := h.outpasses.AwaitingReturn(c.Request.Context())
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, outpasses)
}
