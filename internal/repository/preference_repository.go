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

// ErrContactNotFound возвращается, когда контакт не найден.
var ErrContactNotFound = errors.New("contact not found")

// PreferenceRepository отвечает за настройки посещений, белый список
// и резервные контакты студентов. Ядро пропускного контроля читает эти
// данные только на чтение.
type PreferenceRepository struct {
	db *sqlx.DB
}

// NewPreferenceRepository создаёт экземпляр репозитория.
func NewPreferenceRepository(db *sqlx.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// GetPreferences возвращает настройки студента.
// Если студент их не менял, возвращаются значения по умолчанию.
func (r *PreferenceRepository) GetPreferences(ctx context.Context, studentID uuid.UUID) (*models.VisitorPreferences, error) {
	var prefs models.VisitorPreferences
	if err := r.db.GetContext(ctx, &prefs, `SELECT * FROM visitor_preferences WHERE student_id = $1`, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DefaultVisitorPreferences(studentID), nil
		}
		return nil, fmt.Errorf("preference repository: get %w", err)
	}

	return &prefs, nil
}

// UpsertPreferences сохраняет настройки студента.
func (r *PreferenceRepository) UpsertPreferences(ctx context.Context, prefs *models.VisitorPreferences) error {
	query := `
		INSERT INTO visitor_preferences (student_id, allow_out_of_hours, photo_verification, max_visitors_per_day, auto_approve_parent, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (student_id) DO UPDATE SET
			allow_out_of_hours = EXCLUDED.allow_out_of_hours,
			photo_verification = EXCLUDED.photo_verification,
			max_visitors_per_day = EXCLUDED.max_visitors_per_day,
			auto_approve_parent = EXCLUDED.auto_approve_parent,
			updated_at = NOW()
		RETURNING updated_at
	`
	if err := r.db.QueryRowxContext(
		ctx, query,
		prefs.StudentID, prefs.AllowOutOfHours, prefs.PhotoVerification,
		prefs.MaxVisitorsPerDay, prefs.AutoApproveParent,
	).Scan(&prefs.UpdatedAt); err != nil {
		return fmt.Errorf("preference repository: upsert %w", err)
	}

	return nil
}

// IsWhitelisted проверяет, есть ли телефон в белом списке студента.
func (r *PreferenceRepository) IsWhitelisted(ctx context.Context, studentID uuid.UUID, phone string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM whitelist_contacts WHERE student_id = $1 AND phone = $2)`
	if err := r.db.GetContext(ctx, &exists, query, studentID, phone); err != nil {
		return false, fmt.Errorf("preference repository: is whitelisted %w", err)
	}

	return exists, nil
}

// ListWhitelist возвращает белый список студента.
func (r *PreferenceRepository) ListWhitelist(ctx context.Context, studentID uuid.UUID) ([]models.WhitelistContact, error) {
	var contacts []models.WhitelistContact
	query := `SELECT * FROM whitelist_contacts WHERE student_id = $1 ORDER BY name`
	if err := r.db.SelectContext(ctx, &contacts, query, studentID); err != nil {
		return nil, fmt.Errorf("preference repository: list whitelist %w", err)
	}

	return contacts, nil
}

// AddWhitelistContact добавляет контакт в белый список.
// Повторное добавление того же телефона обновляет имя и родство.
func (r *PreferenceRepository) AddWhitelistContact(ctx context.Context, contact *models.WhitelistContact) error {
	query := `
		INSERT INTO whitelist_contacts (student_id, name, phone, relation)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (student_id, phone) DO UPDATE SET
			name = EXCLUDED.name,
			relation = EXCLUDED.relation
		RETURNING id, created_at
	`
	if err := r.db.QueryRowxContext(
		ctx, query,
		contact.StudentID, contact.Name, contact.Phone, contact.Relation,
	).Scan(&contact.ID, &contact.CreatedAt); err != nil {
		return fmt.Errorf("preference repository: add whitelist contact %w", err)
	}

	return nil
}

// RemoveWhitelistContact удаляет контакт из белого списка студента.
func (r *PreferenceRepository) RemoveWhitelistContact(ctx context.Context, studentID, contactID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM whitelist_contacts WHERE id = $1 AND student_id = $2`, contactID, studentID)
	if err != nil {
		return fmt.Errorf("preference repository: remove whitelist contact %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("preference repository: remove whitelist contact rows affected %w", err)
	}
	if rows == 0 {
		return ErrContactNotFound
	}

	return nil
}

// IsParentPhone проверяет, принадлежит ли телефон родителю студента.
func (r *PreferenceRepository) IsParentPhone(ctx context.Context, studentID uuid.UUID, phone string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM backup_contacts WHERE student_id = $1 AND phone = $2 AND is_parent = TRUE)`
	if err := r.db.GetContext(ctx, &exists, query, studentID, phone); err != nil {
		return false, fmt.Errorf("preference repository: is parent phone %w", err)
	}

	return exists, nil
}

// ListBackupContacts возвращает резервные контакты студента.
func (r *PreferenceRepository) ListBackupContacts(ctx context.Context, studentID uuid.UUID) ([]models.BackupContact, error) {
	var contacts []models.BackupContact
	query := `SELECT * FROM backup_contacts WHERE student_id = $1 ORDER BY name`
	if err := r.db.SelectContext(ctx, &contacts, query, studentID); err != nil {
		return nil, fmt.Errorf("preference repository: list backup contacts %w", err)
	}

	return contacts, nil
}

// AddBackupContact добавляет резервный контакт.
func (r *PreferenceRepository) AddBackupContact(ctx context.Context, contact *models.BackupContact) error {
	query := `
		INSERT INTO backup_contacts (student_id, name, phone, is_parent)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (student_id, phone) DO UPDATE SET
			name = EXCLUDED.name,
			is_parent = EXCLUDED.is_parent
		RETURNING id, created_at
	`
	if err := r.db.QueryRowxContext(
		ctx, query,
		contact.StudentID, contact.Name, contact.Phone, contact.IsParent,
	).Scan(&contact.ID, &contact.CreatedAt); err != nil {
		return fmt.Errorf("preference repository: add backup contact %w", err)
	}

	return nil
}

// RemoveBackupContact удаляет резервный контакт студента.
func (r *PreferenceRepository) RemoveBackupContact(ctx context.Context, studentID, contactID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM backup_contacts WHERE id = $1 AND student_id = $2`, contactID, studentID)
	if err != nil {
		return fmt.Errorf("preference repository: remove backup contact %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("preference repository: remove backup contact rows affected %w", err)
	}
	if rows == 0 {
		return ErrContactNotFound
	}

	return nil
}
