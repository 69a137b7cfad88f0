package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/hostel-backend/internal/models"
)

// ErrVisitNotFound возвращается, когда визит не найден.
var ErrVisitNotFound = errors.New("visit not found")

// ErrVisitAlreadyClosed возвращается при повторной попытке закрыть визит.
var ErrVisitAlreadyClosed = errors.New("visit already closed")

// ErrActiveVisitExists возвращается, когда частичный уникальный индекс
// по активным визитам отклоняет вставку второго визита той же пары.
var ErrActiveVisitExists = errors.New("active visit already exists")

// VisitRepository отвечает за работу с таблицей visits.
type VisitRepository struct {
	db *sqlx.DB
}

// NewVisitRepository создаёт экземпляр репозитория.
func NewVisitRepository(db *sqlx.DB) *VisitRepository {
	return &VisitRepository{db: db}
}

// Create сохраняет новый визит.
func (r *VisitRepository) Create(ctx context.Context, visit *models.Visit) error {
	query := `
		INSERT INTO visits (student_id, guard_id, visitor_name, visitor_phone, purpose, group_size, method, status, entry_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`
	if err := r.db.QueryRowxContext(
		ctx, query,
		visit.StudentID, visit.GuardID, visit.VisitorName, visit.VisitorPhone,
		visit.Purpose, visit.GroupSize, visit.Method, visit.Status, visit.EntryTime,
	).Scan(&visit.ID, &visit.CreatedAt); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrActiveVisitExists
		}
		return fmt.Errorf("visit repository: create %w", err)
	}

	return nil
}

// GetByID возвращает визит по идентификатору.
func (r *VisitRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Visit, error) {
	var visit models.Visit
	if err := r.db.GetContext(ctx, &visit, `SELECT * FROM visits WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVisitNotFound
		}
		return nil, fmt.Errorf("visit repository: get by id %w", err)
	}

	return &visit, nil
}

// HasActive проверяет, есть ли у посетителя активный визит к студенту.
// Инвариант: не больше одного активного визита на пару (телефон, студент).
func (r *VisitRepository) HasActive(ctx context.Context, studentID uuid.UUID, visitorPhone string) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM visits
			WHERE student_id = $1 AND visitor_phone = $2 AND status = $3
		)
	`
	if err := r.db.GetContext(ctx, &exists, query, studentID, visitorPhone, models.VisitStatusActive); err != nil {
		return false, fmt.Errorf("visit repository: has active %w", err)
	}

	return exists, nil
}

// ListActive возвращает активные визиты, новые первыми.
// При ненулевом guardID список ограничивается визитами, открытыми этим охранником.
func (r *VisitRepository) ListActive(ctx context.Context, guardID uuid.UUID) ([]models.Visit, error) {
	query := `
		SELECT * FROM visits
		WHERE status = $1
	`
	args := []interface{}{models.VisitStatusActive}

	if guardID != uuid.Nil {
		query += ` AND guard_id = $2`
		args = append(args, guardID)
	}

	query += ` ORDER BY entry_time DESC`

	var visits []models.Visit
	if err := r.db.SelectContext(ctx, &visits, query, args...); err != nil {
		return nil, fmt.Errorf("visit repository: list active %w", err)
	}

	return visits, nil
}

// ListByStudent возвращает историю визитов студента с пагинацией.
func (r *VisitRepository) ListByStudent(ctx context.Context, studentID uuid.UUID, limit, offset int) ([]models.Visit, error) {
	var visits []models.Visit
	query := `
		SELECT * FROM visits
		WHERE student_id = $1
		ORDER BY entry_time DESC
		LIMIT $2 OFFSET $3
	`
	if err := r.db.SelectContext(ctx, &visits, query, studentID, limit, offset); err != nil {
		return nil, fmt.Errorf("visit repository: list by student %w", err)
	}

	return visits, nil
}

// CountForStudentSince считает визиты к студенту начиная с указанного момента.
// Используется для дневного лимита посетителей.
func (r *VisitRepository) CountForStudentSince(ctx context.Context, studentID uuid.UUID, since time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM visits WHERE student_id = $1 AND entry_time >= $2`
	if err := r.db.GetContext(ctx, &count, query, studentID, since); err != nil {
		return 0, fmt.Errorf("visit repository: count for student %w", err)
	}

	return count, nil
}

// Close атомарно переводит визит из active в closed и проставляет время выхода.
// Условие по статусу гарантирует ровно один успешный checkout при гонке;
// повторная попытка возвращает ErrVisitAlreadyClosed, существование визита
// проверяется отдельным чтением только после неудачного обновления.
func (r *VisitRepository) Close(ctx context.Context, id uuid.UUID, exitTime time.Time) (*models.Visit, error) {
	var visit models.Visit
	query := `
		UPDATE visits
		SET status = $1, exit_time = $2
		WHERE id = $3 AND status = $4
		RETURNING *
	`
	err := r.db.GetContext(ctx, &visit, query, models.VisitStatusClosed, exitTime, id, models.VisitStatusActive)
	if err == nil {
		return &visit, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("visit repository: close %w", err)
	}

	// Обновление не сработало: либо визит уже закрыт, либо его нет.
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrVisitAlreadyClosed
}
