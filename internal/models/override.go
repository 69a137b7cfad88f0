package models

import (
	"time"

	"github.com/google/uuid"
)

// OverrideStatus — статус запроса на внеурочный визит.
type OverrideStatus string

const (
	OverrideStatusPending  OverrideStatus = "pending"
	OverrideStatusApproved OverrideStatus = "approved"
	OverrideStatusDenied   OverrideStatus = "denied"
)

// IsValid проверяет, что статус входит в список известных.
func (s OverrideStatus) IsValid() bool {
	switch s {
	case OverrideStatusPending, OverrideStatusApproved, OverrideStatusDenied:
		return true
	}
	return false
}

// IsTerminal сообщает, является ли статус терминальным.
func (s OverrideStatus) IsTerminal() bool {
	return s == OverrideStatusApproved || s == OverrideStatusDenied
}

// Срочность запроса на внеурочный визит.
const (
	OverrideUrgencyNormal = "normal"
	OverrideUrgencyHigh   = "high"
)

// OverrideRequest — запрос охранника на одобрение визита вне разрешённых часов.
// Разрешается комендантом: одобрение создаёт активный визит, отказ — нет.
type OverrideRequest struct {
	ID           uuid.UUID      `db:"id" json:"id"`
	GuardID      uuid.UUID      `db:"guard_id" json:"guard_id"`
	StudentID    uuid.UUID      `db:"student_id" json:"student_id"`
	VisitorName  string         `db:"visitor_name" json:"visitor_name"`
	VisitorPhone string         `db:"visitor_phone" json:"visitor_phone"`
	Reason       string         `db:"reason" json:"reason"`
	Purpose      string         `db:"purpose" json:"purpose"`
	Urgency      string         `db:"urgency" json:"urgency"`
	Status       OverrideStatus `db:"status" json:"status"`
	ResolvedBy   *uuid.UUID     `db:"resolved_by" json:"resolved_by,omitempty"`
	ResolvedAt   *time.Time     `db:"resolved_at" json:"resolved_at,omitempty"`
	ResolveNote  *string        `db:"resolve_note" json:"resolve_note,omitempty"`
	VisitID      *uuid.UUID     `db:"visit_id" json:"visit_id,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}
