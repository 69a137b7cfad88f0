package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ignatzorin/hostel-backend/internal/models"
	"github.com/ignatzorin/hostel-backend/internal/pkg/apperror"
	"github.com/ignatzorin/hostel-backend/internal/repository"
	"github.com/ignatzorin/hostel-backend/internal/validation"
)

// PreferenceRepositoryIface описывает полный реестр контактов и настроек.
type PreferenceRepositoryIface interface {
	CheckinPreferenceRepository
	UpsertPreferences(ctx context.Context, prefs *models.VisitorPreferences) error
	ListWhitelist(ctx context.Context, studentID uuid.UUID) ([]models.WhitelistContact, error)
	AddWhitelistContact(ctx context.Context, contact *models.WhitelistContact) error
	RemoveWhitelistContact(ctx context.Context, studentID, contactID uuid.UUID) error
	ListBackupContacts(ctx context.Context, studentID uuid.UUID) ([]models.BackupContact, error)
	AddBackupContact(ctx context.Context, contact *models.BackupContact) error
	RemoveBackupContact(ctx context.Context, studentID, contactID uuid.UUID) error
}

// PreferenceService управляет настройками посещений, белым списком
// и резервными контактами студента.
type PreferenceService struct {
	prefs    PreferenceRepositoryIface
	students CheckinStudentRepository
}

// NewPreferenceService создаёт сервис настроек.
func NewPreferenceService(prefs PreferenceRepositoryIface, students CheckinStudentRepository) *PreferenceService {
	return &PreferenceService{prefs: prefs, students: students}
}

// Preferences возвращает настройки студента (или значения по умолчанию).
func (s *PreferenceService) Preferences(ctx context.Context, userID uuid.UUID) (*models.VisitorPreferences, error) {
	student, err := s.studentByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.prefs.GetPreferences(ctx, student.ID)
}

// UpdatePreferencesInput содержит изменяемые настройки посещений.
type UpdatePreferencesInput struct {
	AllowOutOfHours   bool
	PhotoVerification bool
	MaxVisitorsPerDay int
	AutoApproveParent bool
}

// UpdatePreferences сохраняет настройки студента.
func (s *PreferenceService) UpdatePreferences(ctx context.Context, userID uuid.UUID, in UpdatePreferencesInput) (*models.VisitorPreferences, error) {
	if in.MaxVisitorsPerDay < 1 || in.MaxVisitorsPerDay > 50 {
		return nil, apperror.New(apperror.ErrCodeValidation, "лимит посетителей в день должен быть от 1 до 50")
	}

	student, err := s.studentByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	prefs := &models.VisitorPreferences{
		StudentID:         student.ID,
		AllowOutOfHours:   in.AllowOutOfHours,
		PhotoVerification: in.PhotoVerification,
		MaxVisitorsPerDay: in.MaxVisitorsPerDay,
		AutoApproveParent: in.AutoApproveParent,
	}
	if err := s.prefs.UpsertPreferences(ctx, prefs); err != nil {
		return nil, err
	}

	return prefs, nil
}

// Whitelist возвращает белый список студента.
func (s *PreferenceService) Whitelist(ctx context.Context, userID uuid.UUID) ([]models.WhitelistContact, error) {
	student, err := s.studentByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.prefs.ListWhitelist(ctx, student.ID)
}

// AddContactInput содержит данные нового контакта.
type AddContactInput struct {
	Name     string
	Phone    string
	Relation string
	IsParent bool
}

// AddWhitelistContact добавляет контакт в белый список студента.
func (s *PreferenceService) AddWhitelistContact(ctx context.Context, userID uuid.UUID, in AddContactInput) (*models.WhitelistContact, error) {
	if err := s.validateContact(&in); err != nil {
		return nil, err
	}

	student, err := s.studentByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	contact := &models.WhitelistContact{
		StudentID: student.ID,
		Name:      in.Name,
		Phone:     in.Phone,
	}
	if in.Relation != "" {
		contact.Relation = &in.Relation
	}
	if err := s.prefs.AddWhitelistContact(ctx, contact); err != nil {
		return nil, err
	}

	return contact, nil
}

// RemoveWhitelistContact удаляет контакт из белого списка студента.
func (s *PreferenceService) RemoveWhitelistContact(ctx context.Context, userID, contactID uuid.UUID) error {
	student, err := s.studentByUser(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.prefs.RemoveWhitelistContact(ctx, student.ID, contactID); err != nil {
		if errors.Is(err, repository.ErrContactNotFound) {
			return apperror.New(apperror.ErrCodeNotFound, "контакт не найден")
		}
		return err
	}

	return nil
}

// BackupContacts возвращает резервные контакты студента.
func (s *PreferenceService) BackupContacts(ctx context.Context, userID uuid.UUID) ([]models.BackupContact, error) {
	student, err := s.studentByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.prefs.ListBackupContacts(ctx, student.ID)
}

// AddBackupContact добавляет резервный контакт студента.
func (s *PreferenceService) AddBackupContact(ctx context.Context, userID uuid.UUID, in AddContactInput) (*models.BackupContact, error) {
	if err := s.validateContact(&in); err != nil {
		return nil, err
	}

	student, err := s.studentByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	contact := &models.BackupContact{
		StudentID: student.ID,
		Name:      in.Name,
		Phone:     in.Phone,
		IsParent:  in.IsParent,
	}
	if err := s.prefs.AddBackupContact(ctx, contact); err != nil {
		return nil, err
	}

	return contact, nil
}

// RemoveBackupContact удаляет резервный контакт студента.
func (s *PreferenceService) RemoveBackupContact(ctx context.Context, userID, contactID uuid.UUID) error {
	student, err := s.studentByUser(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.prefs.RemoveBackupContact(ctx, student.ID, contactID); err != nil {
		if errors.Is(err, repository.ErrContactNotFound) {
			return apperror.New(apperror.ErrCodeNotFound, "контакт не найден")
		}
		return err
	}

	return nil
}

// validateContact нормализует телефон и проверяет поля контакта.
func (s *PreferenceService) validateContact(in *AddContactInput) error {
	if err := validation.ValidateLength("имя", in.Name,
		validation.MinVisitorNameLength, validation.MaxVisitorNameLength); err != nil {
		return apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	in.Phone = validation.NormalizePhone(in.Phone)
	if err := validation.ValidatePhone(in.Phone); err != nil {
		return apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	return nil
}

// studentByUser находит профиль студента по идентификатору пользователя.
func (s *PreferenceService) studentByUser(ctx context.Context, userID uuid.UUID) (*models.Student, error) {
	student, err := s.students.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrStudentNotFound) {
			return nil, apperror.ErrStudentNotFound
		}
		return nil, err
	}
	return student, nil
}
