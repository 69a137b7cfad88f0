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

// ErrOTPNotFound возвращается, когда подходящий одноразовый код не найден.
var ErrOTPNotFound = errors.New("visitor otp not found")

// OTPRepository отвечает за работу с таблицей visitor_otps.
type OTPRepository struct {
	db *sqlx.DB
}

// NewOTPRepository создаёт экземпляр репозитория.
func NewOTPRepository(db *sqlx.DB) *OTPRepository {
	return &OTPRepository{db: db}
}

// Create сохраняет новый одноразовый код.
func (r *OTPRepository) Create(ctx context.Context, otp *models.VisitorOTP) error {
	query := `
		INSERT INTO visitor_otps (student_id, guard_id, visitor_name, visitor_phone, purpose, group_size, code, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`
	if err := r.db.QueryRowxContext(
		ctx, query,
		otp.StudentID, otp.GuardID, otp.VisitorName, otp.VisitorPhone,
		otp.Purpose, otp.GroupSize, otp.Code, otp.ExpiresAt,
	).Scan(&otp.ID, &otp.CreatedAt); err != nil {
		return fmt.Errorf("otp repository: create %w", err)
	}

	return nil
}

// SupersedePending гасит все непогашенные коды пары (студент, телефон посетителя).
// Вызывается перед выдачей нового кода: действующим остаётся только самый свежий.
func (r *OTPRepository) SupersedePending(ctx context.Context, studentID uuid.UUID, visitorPhone string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE visitor_otps
		SET consumed = TRUE
		WHERE student_id = $1 AND visitor_phone = $2 AND consumed = FALSE
	`, studentID, visitorPhone)
	if err != nil {
		return 0, fmt.Errorf("otp repository: supersede pending %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("otp repository: supersede pending rows affected %w", err)
	}
	return rows, nil
}

// CodeInUse проверяет, занят ли код среди действующих кодов студента.
// Действующий код — непогашенный и с неистёкшим сроком.
func (r *OTPRepository) CodeInUse(ctx context.Context, studentID uuid.UUID, code string) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM visitor_otps
			WHERE student_id = $1 AND code = $2 AND consumed = FALSE AND expires_at > NOW()
		)
	`
	if err := r.db.GetContext(ctx, &exists, query, studentID, code); err != nil {
		return false, fmt.Errorf("otp repository: code in use %w", err)
	}

	return exists, nil
}

// GetLatestByCode возвращает самую свежую запись пары (телефон, код) в любом
// состоянии. Ни срок действия, ни погашение здесь не проверяются: по состоянию
// записи сервис различает EXPIRED, ALREADY_USED и погашенный выдачей нового кода.
func (r *OTPRepository) GetLatestByCode(ctx context.Context, visitorPhone, code string) (*models.VisitorOTP, error) {
	var otp models.VisitorOTP
	query := `
		SELECT * FROM visitor_otps
		WHERE visitor_phone = $1 AND code = $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	if err := r.db.GetContext(ctx, &otp, query, visitorPhone, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOTPNotFound
		}
		return nil, fmt.Errorf("otp repository: get latest by code %w", err)
	}

	return &otp, nil
}

// HasPending проверяет, есть ли по телефону посетителя непогашенный код.
func (r *OTPRepository) HasPending(ctx context.Context, visitorPhone string) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM visitor_otps
			WHERE visitor_phone = $1 AND consumed = FALSE
		)
	`
	if err := r.db.GetContext(ctx, &exists, query, visitorPhone); err != nil {
		return false, fmt.Errorf("otp repository: has pending %w", err)
	}

	return exists, nil
}

// Consume атомарно помечает код использованным и проставляет used_at.
// Условное обновление гарантирует ровно одно успешное погашение при гонке:
// два конкурентных вызова получат true ровно один раз. Погашенный выдачей
// нового кода остаётся без used_at — так он отличим от использованного.
func (r *OTPRepository) Consume(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE visitor_otps
		SET consumed = TRUE, used_at = NOW()
		WHERE id = $1 AND consumed = FALSE
	`, id)
	if err != nil {
		return false, fmt.Errorf("otp repository: consume %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("otp repository: consume rows affected %w", err)
	}
	return rows == 1, nil
}

// DeleteExpiredBefore удаляет коды, истёкшие раньше указанного момента.
// Коды одноразовые и никогда не переиспользуются, хранить их после истечения незачем.
func (r *OTPRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM visitor_otps WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("otp repository: delete expired %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("otp repository: delete expired rows affected %w", err)
	}
	return rows, nil
}
