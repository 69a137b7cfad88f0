package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/hostel-backend/internal/models"
)

// ErrStudentNotFound возвращается, когда запись студента не найдена.
var ErrStudentNotFound = errors.New("student not found")

// StudentRepository отвечает за работу с таблицей students.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository создаёт экземпляр репозитория.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// Create создаёт запись студента.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	query := `
		INSERT INTO students (user_id, full_name, roll_number, room_number, block, phone, parent_phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	if err := r.db.QueryRowxContext(
		ctx, query,
		student.UserID, student.FullName, student.RollNumber,
		student.RoomNumber, student.Block, student.Phone, student.ParentPhone,
	).Scan(&student.ID, &student.CreatedAt, &student.UpdatedAt); err != nil {
		return fmt.Errorf("student repository: create %w", err)
	}

	return nil
}

// GetByID возвращает студента по идентификатору.
func (r *StudentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Student, error) {
	var student models.Student
	if err := r.db.GetContext(ctx, &student, `SELECT * FROM students WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("student repository: get by id %w", err)
	}

	return &student, nil
}

// GetByUserID возвращает студента по идентификатору учётной записи.
func (r *StudentRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Student, error) {
	var student models.Student
	if err := r.db.GetContext(ctx, &student, `SELECT * FROM students WHERE user_id = $1`, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("student repository: get by user id %w", err)
	}

	return &student, nil
}

// Search ищет студентов по ФИО, номеру студбилета или комнате.
// Используется охранником на стойке для поиска цели визита.
func (r *StudentRepository) Search(ctx context.Context, term string, limit int) ([]models.Student, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	var students []models.Student
	query := `
		SELECT * FROM students
		WHERE full_name ILIKE '%' || $1 || '%'
		   OR roll_number ILIKE '%' || $1 || '%'
		   OR room_number = $1
		ORDER BY full_name
		LIMIT $2
	`
	if err := r.db.SelectContext(ctx, &students, query, term, limit); err != nil {
		return nil, fmt.Errorf("student repository: search %w", err)
	}

	return students, nil
}
