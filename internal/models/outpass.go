package models

import (
	"time"

	"github.com/google/uuid"
)

// OutpassStatus — статус увольнительной студента.
type OutpassStatus string

const (
	// OutpassStatusPending — заявка подана и ждёт решения коменданта.
	OutpassStatusPending OutpassStatus = "pending"
	// OutpassStatusApproved — заявка одобрена, студент может выйти.
	OutpassStatusApproved OutpassStatus = "approved"
	// OutpassStatusRejected — заявка отклонена. Терминальный статус.
	OutpassStatusRejected OutpassStatus = "rejected"
	// OutpassStatusOut — охранник отметил выход студента.
	OutpassStatusOut OutpassStatus = "out"
	// OutpassStatusReturned — студент вернулся. Терминальный статус.
	OutpassStatusReturned OutpassStatus = "returned"
)

// IsValid проверяет, что статус входит в список известных.
func (s OutpassStatus) IsValid() bool {
	switch s {
	case OutpassStatusPending, OutpassStatusApproved, OutpassStatusRejected,
		OutpassStatusOut, OutpassStatusReturned:
		return true
	}
	return false
}

// CanTransitionTo проверяет допустимость перехода между статусами.
func (s OutpassStatus) CanTransitionTo(next OutpassStatus) bool {
	transitions := map[OutpassStatus][]OutpassStatus{
		OutpassStatusPending:  {OutpassStatusApproved, OutpassStatusRejected},
		OutpassStatusApproved: {OutpassStatusOut},
		OutpassStatusOut:      {OutpassStatusReturned},
		OutpassStatusRejected: {},
		OutpassStatusReturned: {},
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

// Outpass — увольнительная: разрешение студенту покинуть общежитие на время.
type Outpass struct {
	ID             uuid.UUID     `db:"id" json:"id"`
	StudentID      uuid.UUID     `db:"student_id" json:"student_id"`
	Reason         string        `db:"reason" json:"reason"`
	Destination    string        `db:"destination" json:"destination"`
	LeaveAt        time.Time     `db:"leave_at" json:"leave_at"`
	ExpectedReturn time.Time     `db:"expected_return" json:"expected_return"`
	Status         OutpassStatus `db:"status" json:"status"`
	ResolvedBy     *uuid.UUID    `db:"resolved_by" json:"resolved_by,omitempty"`
	ResolvedAt     *time.Time    `db:"resolved_at" json:"resolved_at,omitempty"`
	ResolveNote    *string       `db:"resolve_note" json:"resolve_note,omitempty"`
	OutAt          *time.Time    `db:"out_at" json:"out_at,omitempty"`
	ReturnedAt     *time.Time    `db:"returned_at" json:"returned_at,omitempty"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updated_at"`
}
