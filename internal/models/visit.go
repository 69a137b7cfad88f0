package models

import (
	"time"

	"github.com/google/uuid"
)

// VisitStatus — статус визита посетителя.
type VisitStatus string

const (
	// VisitStatusActive — посетитель на территории общежития.
	VisitStatusActive VisitStatus = "active"
	// VisitStatusClosed — посетитель вышел, визит закрыт. Терминальный статус.
	VisitStatusClosed VisitStatus = "closed"
)

// IsValid проверяет, что статус входит в список известных.
func (s VisitStatus) IsValid() bool {
	switch s {
	case VisitStatusActive, VisitStatusClosed:
		return true
	}
	return false
}

// CanTransitionTo проверяет допустимость перехода между статусами.
// Визит создаётся сразу в active и может перейти только в closed.
func (s VisitStatus) CanTransitionTo(next VisitStatus) bool {
	transitions := map[VisitStatus][]VisitStatus{
		VisitStatusActive: {VisitStatusClosed},
		VisitStatusClosed: {},
	}

	allowed, ok := transitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == next {
			return true
		}
	}
	return false
}

// VisitMethod — способ, которым визит получил одобрение.
type VisitMethod string

const (
	// VisitMethodOTP — посетитель подтверждён одноразовым кодом студента.
	VisitMethodOTP VisitMethod = "otp"
	// VisitMethodWhitelist — телефон посетителя в белом списке студента.
	VisitMethodWhitelist VisitMethod = "whitelist"
	// VisitMethodOverride — визит одобрен комендантом вне разрешённых часов.
	VisitMethodOverride VisitMethod = "override"
)

// IsValid проверяет, что способ одобрения известен.
func (m VisitMethod) IsValid() bool {
	switch m {
	case VisitMethodOTP, VisitMethodWhitelist, VisitMethodOverride:
		return true
	}
	return false
}

// Visit описывает один эпизод присутствия посетителя на территории.
// Записи никогда не удаляются: закрытые визиты остаются историей.
type Visit struct {
	ID           uuid.UUID   `db:"id" json:"id"`
	StudentID    uuid.UUID   `db:"student_id" json:"student_id"`
	GuardID      uuid.UUID   `db:"guard_id" json:"guard_id"`
	VisitorName  string      `db:"visitor_name" json:"visitor_name"`
	VisitorPhone string      `db:"visitor_phone" json:"visitor_phone"`
	Purpose      string      `db:"purpose" json:"purpose"`
	GroupSize    int         `db:"group_size" json:"group_size"`
	Method       VisitMethod `db:"method" json:"method"`
	Status       VisitStatus `db:"status" json:"status"`
	EntryTime    time.Time   `db:"entry_time" json:"entry_time"`
	ExitTime     *time.Time  `db:"exit_time" json:"exit_time,omitempty"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
}
