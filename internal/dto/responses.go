package dto

import (
	"github.com/google/uuid"

	"github.com/ignatzorin/hostel-backend/internal/models"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// SuccessResponse represents a standard success response
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// VisitResponse — визит вместе с данными студента для экрана охраны.
type VisitResponse struct {
	*models.Visit
	Student *StudentShortInfo `json:"student,omitempty"`
}

// StudentShortInfo — краткая карточка студента.
type StudentShortInfo struct {
	ID         uuid.UUID `json:"id"`
	FullName   string    `json:"full_name"`
	RollNumber string    `json:"roll_number"`
	RoomNumber string    `json:"room_number"`
	Block      string    `json:"block"`
}

// NewStudentShortInfo строит краткую карточку из профиля студента.
func NewStudentShortInfo(s *models.Student) *StudentShortInfo {
	if s == nil {
		return nil
	}
	return &StudentShortInfo{
		ID:         s.ID,
		FullName:   s.FullName,
		RollNumber: s.RollNumber,
		RoomNumber: s.RoomNumber,
		Block:      s.Block,
	}
}

// OverrideResolutionResponse — итог решения по внеурочному запросу.
type OverrideResolutionResponse struct {
	Request *models.OverrideRequest `json:"request"`
	Visit   *models.Visit           `json:"visit,omitempty"`
}

// TokenPairResponse — пара токенов после логина или обновления.
type TokenPairResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         *models.User `json:"user,omitempty"`
}
