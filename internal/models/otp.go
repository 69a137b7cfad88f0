package models

import (
	"time"

	"github.com/google/uuid"
)

// OTPCodeLength — длина одноразового кода посетителя.
const OTPCodeLength = 6

// VisitorOTP — короткоживущий одноразовый код для подтверждения посетителя.
// Код выдаётся охранником, доставляется студенту и используется ровно один раз.
type VisitorOTP struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	StudentID    uuid.UUID  `db:"student_id" json:"student_id"`
	GuardID      uuid.UUID  `db:"guard_id" json:"guard_id"`
	VisitorName  string     `db:"visitor_name" json:"visitor_name"`
	VisitorPhone string     `db:"visitor_phone" json:"visitor_phone"`
	Purpose      string     `db:"purpose" json:"purpose"`
	GroupSize    int        `db:"group_size" json:"group_size"`
	Code         string     `db:"code" json:"-"`
	Consumed     bool       `db:"consumed" json:"consumed"`
	UsedAt       *time.Time `db:"used_at" json:"used_at,omitempty"`
	ExpiresAt    time.Time  `db:"expires_at" json:"expires_at"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// IsExpired сообщает, истёк ли срок действия кода на момент now.
func (o *VisitorOTP) IsExpired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}
