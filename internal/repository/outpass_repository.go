package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/hostel-backend/internal/models"
)

// ErrOutpassNotFound возвращается, когда увольнительная не найдена.
var ErrOutpassNotFound = errors.New("outpass not found")

// ErrOutpassTransition возвращается, когда запрошенный переход статуса невозможен:
// увольнительная уже в другом состоянии.
var ErrOutpassTransition = errors.New("outpass status transition conflict")

// OutpassRepository отвечает за работу с таблицей outpasses.
type OutpassRepository struct {
	db *sqlx.DB
}

// NewOutpassRepository создаёт экземпляр репозитория.
func NewOutpassRepository(db *sqlx.DB) *OutpassRepository {
	return &OutpassRepository{db: db}
}

// Create сохраняет новую заявку на увольнительную в статусе pending.
func (r *OutpassRepository) Create(ctx context.Context, outpass *models.Outpass) error {
	query := `
		INSERT INTO outpasses (student_id, reason, destination, leave_at, expected_return, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	if err := r.db.QueryRowxContext(
		ctx, query,
		outpass.StudentID, outpass.Reason, outpass.Destination,
		outpass.LeaveAt, outpass.ExpectedReturn, models.OutpassStatusPending,
	).Scan(&outpass.ID, &outpass.CreatedAt, &outpass.UpdatedAt); err != nil {
		return fmt.Errorf("outpass repository: create %w", err)
	}
	outpass.Status = models.OutpassStatusPending

	return nil
}

// GetByID возвращает увольнительную по идентификатору.
func (r *OutpassRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Outpass, error) {
	var outpass models.Outpass
	if err := r.db.GetContext(ctx, &outpass, `SELECT * FROM outpasses WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOutpassNotFound
		}
		return nil, fmt.Errorf("outpass repository: get by id %w", err)
	}

	return &outpass, nil
}

// ListByStudent возвращает увольнительные студента, новые первыми.
func (r *OutpassRepository) ListByStudent(ctx context.Context, studentID uuid.UUID, limit, offset int) ([]models.Outpass, error) {
	var outpasses []models.Outpass
	query := `
		SELECT * FROM outpasses
		WHERE student_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	if err := r.db.SelectContext(ctx, &outpasses, query, studentID, limit, offset); err != nil {
		return nil, fmt.Errorf("outpass repository: list by student %w", err)
	}

	return outpasses, nil
}

// ListByStatus возвращает увольнительные в заданном статусе, старые первыми.
func (r *OutpassRepository) ListByStatus(ctx context.Context, status models.OutpassStatus) ([]models.Outpass, error) {
	var outpasses []models.Outpass
	query := `
		SELECT * FROM outpasses
		WHERE status = $1
		ORDER BY created_at ASC
	`
	if err := r.db.SelectContext(ctx, &outpasses, query, status); err != nil {
		return nil, fmt.Errorf("outpass repository: list by status %w", err)
	}

	return outpasses, nil
}

// Resolve атомарно переводит заявку из pending в approved или rejected.
func (r *OutpassRepository) Resolve(ctx context.Context, id uuid.UUID, resolvedBy uuid.UUID, status models.OutpassStatus, note *string, resolvedAt time.Time) (*models.Outpass, error) {
	var outpass models.Outpass
	query := `
		UPDATE outpasses
		SET status = $1, resolved_by = $2, resolved_at = $3, resolve_note = $4, updated_at = NOW()
		WHERE id = $5 AND status = $6
		RETURNING *
	`
	err := r.db.GetContext(ctx, &outpass, query, status, resolvedBy, resolvedAt, note, id, models.OutpassStatusPending)
	if err == nil {
		return &outpass, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("outpass repository: resolve %w", err)
	}

	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrOutpassTransition
}

// MarkOut атомарно переводит одобренную увольнительную в out и фиксирует выход.
func (r *OutpassRepository) MarkOut(ctx context.Context, id uuid.UUID, outAt time.Time) (*models.Outpass, error) {
	return r.transition(ctx, id, models.OutpassStatusApproved, models.OutpassStatusOut, "out_at", outAt)
}

// MarkReturned атомарно переводит увольнительную из out в returned и фиксирует возвращение.
func (r *OutpassRepository) MarkReturned(ctx context.Context, id uuid.UUID, returnedAt time.Time) (*models.Outpass, error) {
	return r.transition(ctx, id, models.OutpassStatusOut, models.OutpassStatusReturned, "returned_at", returnedAt)
}

// transition выполняет условный переход статуса с проставлением временной метки.
func (r *OutpassRepository) transition(ctx context.Context, id uuid.UUID, from, to models.OutpassStatus, timeColumn string, at time.Time) (*models.Outpass, error) {
	var outpass models.Outpass
	query := fmt.Sprintf(`
		UPDATE outpasses
		SET status = $1, %s = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4
		RETURNING *
	`, timeColumn)

	err := r.db.GetContext(ctx, &outpass, query, to, at, id, from)
	if err == nil {
		return &outpass, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("outpass repository: transition to %s %w", to, err)
	}

	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrOutpassTransition
}
