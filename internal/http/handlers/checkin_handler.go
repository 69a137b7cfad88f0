package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/hostel-backend/internal/dto"
	"github.com/ignatzorin/hostel-backend/internal/http/handlers/common"
	"github.com/ignatzorin/hostel-backend/internal/models"
	"github.com/ignatzorin/hostel-backend/internal/repository"
	"github.com/ignatzorin/hostel-backend/internal/service"
)

// CheckinHandler обслуживает маршруты пропускного контроля посетителей.
type CheckinHandler struct {
	checkin  *service.CheckinService
	students *repository.StudentRepository
}

// NewCheckinHandler создаёт новый хэндлер.
func NewCheckinHandler(checkin *service.CheckinService, students *repository.StudentRepository) *CheckinHandler {
	return &CheckinHandler{checkin: checkin, students: students}
}

// RequestOtp обрабатывает POST /checkin/request-otp.
func (h *CheckinHandler) RequestOtp(c *gin.Context) {
	guardID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.RequestOtpRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	studentID, err := uuid.Parse(req.StudentID)
	if err != nil {
		common.RespondBadRequest(c, "неверный идентификатор студента")
		return
	}

	outcome, err := h.checkin.RequestOtp(c.Request.Context(), service.RequestOtpInput{
		StudentID:    studentID,
		GuardID:      guardID,
		VisitorName:  req.VisitorName,
		VisitorPhone: req.VisitorPhone,
		Purpose:      req.Purpose,
		GroupSize:    req.GroupSize,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, outcome)
}

// VerifyOtp обрабатывает POST /checkin/verify-otp.
func (h *CheckinHandler) VerifyOtp(c *gin.Context) {
	guardID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.VerifyOtpRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	visit, err := h.checkin.VerifyOtp(c.Request.Context(), req.VisitorPhone, req.Code, guardID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, visit)
}

// Checkout обрабатывает POST /visits/:id/checkout.
func (h *CheckinHandler) Checkout(c *gin.Context) {
	guardID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	visitID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	visit, err := h.checkin.Checkout(c.Request.Context(), visitID, guardID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, visit)
}

// ActiveVisits обрабатывает GET /visits/active.
// Параметр mine=true ограничивает список визитами запрашивающего охранника.
func (h *CheckinHandler) ActiveVisits(c *gin.Context) {
	guardID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	mineOnly := c.Query("mine") == "true"

	visits, err := h.checkin.ActiveVisits(c.Request.Context(), guardID, mineOnly)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, visits)
}

// VisitHistory обрабатывает GET /students/:id/visits.
// Студент видит только собственную историю, охрана и комендант — любую.
func (h *CheckinHandler) VisitHistory(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	studentID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	role, err := common.CurrentUserRole(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	if role == models.RoleStudent {
		student, err := h.students.GetByUserID(c.Request.Context(), userID)
		if err != nil || student.ID != studentID {
			common.RespondError(c, http.StatusForbidden, "доступна только собственная история")
			return
		}
	}

	limit, offset := common.GetPagination(c)

	visits, err := h.checkin.VisitHistory(c.Request.Context(), studentID, limit, offset)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, visits)
}

// SearchStudents обрабатывает GET /students/search?q=...
// Охранник ищет студента по имени, номеру студбилета или комнате.
func (h *CheckinHandler) SearchStudents(c *gin.Context) {
	term := c.Query("q")
	if term == "" {
		common.RespondBadRequest(c, "параметр q обязателен")
		return
	}

	limit := common.ParseIntQuery(c, "limit", 20)

	students, err := h.students.Search(c.Request.Context(), term, limit)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, students)
}

// GetStudent обрабатывает GET /students/:id.
func (h *CheckinHandler) GetStudent(c *gin.Context) {
	studentID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	student, err := h.students.GetByID(c.Request.Context(), studentID)
	if err != nil {
		if errors.Is(err, repository.ErrStudentNotFound) {
			common.RespondError(c, http.StatusNotFound, "студент не найден")
			return
		}
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewStudentShortInfo(student))
}
