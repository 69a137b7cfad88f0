package models

import (
	"time"

	"github.com/google/uuid"
)

// Student описывает проживающего в общежитии студента.
// Учётная запись (email, пароль, роль) хранится в users, здесь — данные проживания.
type Student struct {
	ID          uuid.UUID `db:"id" json:"id"`
	UserID      uuid.UUID `db:"user_id" json:"user_id"`
	FullName    string    `db:"full_name" json:"full_name"`
	RollNumber  string    `db:"roll_number" json:"roll_number"`
	RoomNumber  string    `db:"room_number" json:"room_number"`
	Block       string    `db:"block" json:"block"`
	Phone       string    `db:"phone" json:"phone"`
	ParentPhone *string   `db:"parent_phone" json:"parent_phone,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
