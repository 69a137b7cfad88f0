package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/hostel-backend/internal/dto"
	"github.com/ignatzorin/hostel-backend/internal/http/handlers/common"
	"github.com/ignatzorin/hostel-backend/internal/service"
)

// PreferenceHandler обслуживает маршруты настроек посещений студента.
type PreferenceHandler struct {
	prefs *service.PreferenceService
}

// NewPreferenceHandler создаёт новый хэндлер.
func NewPreferenceHandler(prefs *service.PreferenceService) *PreferenceHandler {
	return &PreferenceHandler{prefs: prefs}
}

// GetPreferences обрабатывает GET /preferences.
func (h *PreferenceHandler) GetPreferences(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	prefs, err := h.prefs.Preferences(c.Request.Context(), userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, prefs)
}

// UpdatePreferences обрабатывает PUT /preferences.
func (h *PreferenceHandler) UpdatePreferences(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.UpdatePreferencesRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	prefs, err := h.prefs.UpdatePreferences(c.Request.Context(), userID, service.UpdatePreferencesInput{
		AllowOutOfHours:   req.AllowOutOfHours,
		PhotoVerification: req.PhotoVerification,
		MaxVisitorsPerDay: req.MaxVisitorsPerDay,
		AutoApproveParent: req.AutoApproveParent,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, prefs)
}

// ListWhitelist обрабатывает GET /preferences/whitelist.
func (h *PreferenceHandler) ListWhitelist(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	contacts, err := h.prefs.Whitelist(c.Request.Context(), userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, contacts)
}

// AddWhitelistContact обрабатывает POST /preferences/whitelist.
func (h *PreferenceHandler) AddWhitelistContact(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.AddContactRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	contact, err := h.prefs.AddWhitelistContact(c.Request.Context(), userID, service.AddContactInput{
		Name:     req.Name,
		Phone:    req.Phone,
		Relation: req.Relation,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, contact)
}

// RemoveWhitelistContact обрабатывает DELETE /preferences/whitelist/:id.
func (h *PreferenceHandler) RemoveWhitelistContact(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	contactID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.prefs.RemoveWhitelistContact(c.Request.Context(), userID, contactID); err != nil {
		common.RespondAppError(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "контакт удалён", nil)
}

// ListBackupContacts обрабатывает GET /preferences/backup-contacts.
func (h *PreferenceHandler) ListBackupContacts(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	contacts, err := h.prefs.BackupContacts(c.Request.Context(), userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, contacts)
}

// AddBackupContact обрабатывает POST /preferences/backup-contacts.
func (h *PreferenceHandler) AddBackupContact(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.AddContactRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	contact, err := h.prefs.AddBackupContact(c.Request.Context(), userID, service.AddContactInput{
		Name:     req.Name,
		Phone:    req.Phone,
		IsParent: req.IsParent,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, contact)
}

// RemoveBackupContact обрабатывает DELETE /preferences/backup-contacts/:id.
func (h *PreferenceHandler) RemoveBackupContact(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	contactID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.prefs.RemoveBackupContact(c.Request.Context(), userID, contactID); err != nil {
		common.RespondAppError(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "контакт удалён", nil)
}
