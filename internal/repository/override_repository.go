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

// ErrOverrideNotFound возвращается, когда запрос на внеурочный визит не найден.
var ErrOverrideNotFound = errors.New("override request not found")

// ErrOverrideResolved возвращается при попытке повторно разрешить запрос.
var ErrOverrideResolved = errors.New("override request already resolved")

// OverrideRepository отвечает за работу с таблицей override_requests.
type OverrideRepository struct {
	db *sqlx.DB
}

// NewOverrideRepository создаёт экземпляр репозитория.
func NewOverrideRepository(db *sqlx.DB) *OverrideRepository {
	return &OverrideRepository{db: db}
}

// Create сохраняет новый запрос в статусе pending.
func (r *OverrideRepository) Create(ctx context.Context, req *models.OverrideRequest) error {
	query := `
		INSERT INTO override_requests (guard_id, student_id, visitor_name, visitor_phone, reason, purpose, urgency, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`
	if err := r.db.QueryRowxContext(
		ctx, query,
		req.GuardID, req.StudentID, req.VisitorName, req.VisitorPhone,
		req.Reason, req.Purpose, req.Urgency, models.OverrideStatusPending,
	).Scan(&req.ID, &req.CreatedAt); err != nil {
		return fmt.Errorf("override repository: create %w", err)
	}
	req.Status = models.OverrideStatusPending

	return nil
}

// GetByID возвращает запрос по идентификатору.
func (r *OverrideRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.OverrideRequest, error) {
	var req models.OverrideRequest
	if err := r.db.GetContext(ctx, &req, `SELECT * FROM override_requests WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOverrideNotFound
		}
		return nil, fmt.Errorf("override repository: get by id %w", err)
	}

	return &req, nil
}

// ListPending возвращает очередь нерешённых запросов, старые первыми.
func (r *OverrideRepository) ListPending(ctx context.Context) ([]models.OverrideRequest, error) {
	var requests []models.OverrideRequest
	query := `
		SELECT * FROM override_requests
		WHERE status = $1
		ORDER BY created_at ASC
	`
	if err := r.db.SelectContext(ctx, &requests, query, models.OverrideStatusPending); err != nil {
		return nil, fmt.Errorf("override repository: list pending %w", err)
	}

	return requests, nil
}

// ListByGuard возвращает запросы охранника, новые первыми.
// Охранник опрашивает этот список, если пропустил push о решении.
func (r *OverrideRepository) ListByGuard(ctx context.Context, guardID uuid.UUID, limit, offset int) ([]models.OverrideRequest, error) {
	var requests []models.OverrideRequest
	query := `
		SELECT * FROM override_requests
		WHERE guard_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	if err := r.db.SelectContext(ctx, &requests, query, guardID, limit, offset); err != nil {
		return nil, fmt.Errorf("override repository: list by guard %w", err)
	}

	return requests, nil
}

// Resolve атомарно переводит запрос из pending в approved или denied.
// Условие по статусу гарантирует, что два коменданта не разрешат один запрос дважды.
func (r *OverrideRepository) Resolve(ctx context.Context, id uuid.UUID, resolvedBy uuid.UUID, status models.OverrideStatus, note *string, resolvedAt time.Time) (*models.OverrideRequest, error) {
	var req models.OverrideRequest
	query := `
		UPDATE override_requests
		SET status = $1, resolved_by = $2, resolved_at = $3, resolve_note = $4
		WHERE id = $5 AND status = $6
		RETURNING *
	`
	err := r.db.GetContext(ctx, &req, query, status, resolvedBy, resolvedAt, note, id, models.OverrideStatusPending)
	if err == nil {
		return &req, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("override repository: resolve %w", err)
	}

	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrOverrideResolved
}

// SetVisitID привязывает созданный визит к одобренному запросу.
func (r *OverrideRepository) SetVisitID(ctx context.Context, id uuid.UUID, visitID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE override_requests SET visit_id = $1 WHERE id = $2`, visitID, id); err != nil {
		return fmt.Errorf("override repository: set visit id %w", err)
	}
	return nil
}
