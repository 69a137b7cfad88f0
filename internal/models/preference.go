package models

import (
	"time"

	"github.com/google/uuid"
)

// VisitorPreferences — настройки студента для приёма посетителей.
// Ядро пропускного контроля читает их только на чтение.
type VisitorPreferences struct {
	StudentID         uuid.UUID `db:"student_id" json:"student_id"`
	AllowOutOfHours   bool      `db:"allow_out_of_hours" json:"allow_out_of_hours"`
	PhotoVerification bool      `db:"photo_verification" json:"photo_verification"`
	MaxVisitorsPerDay int       `db:"max_visitors_per_day" json:"max_visitors_per_day"`
	AutoApproveParent bool      `db:"auto_approve_parent" json:"auto_approve_parent"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// DefaultVisitorPreferences возвращает настройки по умолчанию для нового студента.
func DefaultVisitorPreferences(studentID uuid.UUID) *VisitorPreferences {
	return &VisitorPreferences{
		StudentID:         studentID,
		AllowOutOfHours:   false,
		PhotoVerification: false,
		MaxVisitorsPerDay: 5,
		AutoApproveParent: true,
	}
}

// WhitelistContact — контакт из белого списка студента.
// Посетитель с таким телефоном пропускается без одноразового кода.
type WhitelistContact struct {
	ID        uuid.UUID `db:"id" json:"id"`
	StudentID uuid.UUID `db:"student_id" json:"student_id"`
	Name      string    `db:"name" json:"name"`
	Phone     string    `db:"phone" json:"phone"`
	Relation  *string   `db:"relation" json:"relation,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// BackupContact — резервный контакт студента (родитель, опекун).
type BackupContact struct {
	ID        uuid.UUID `db:"id" json:"id"`
	StudentID uuid.UUID `db:"student_id" json:"student_id"`
	Name      string    `db:"name" json:"name"`
	Phone     string    `db:"phone" json:"phone"`
	IsParent  bool      `db:"is_parent" json:"is_parent"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
