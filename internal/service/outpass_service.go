package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/hostel-backend/internal/logger"
	"github.com/ignatzorin/hostel-backend/internal/models"
	"github.com/ignatzorin/hostel-backend/internal/pkg/apperror"
	"github.com/ignatzorin/hostel-backend/internal/repository"
	"github.com/ignatzorin/hostel-backend/internal/validation"
	"github.com/ignatzorin/hostel-backend/internal/ws"
)

// OutpassRepositoryIface описывает хранилище увольнительных.
type OutpassRepositoryIface interface {
	Create(ctx context.Context, outpass *models.Outpass) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Outpass, error)
	ListByStudent(ctx context.Context, studentID uuid.UUID, limit, offset int) ([]models.Outpass, error)
	ListByStatus(ctx context.Context, status models.OutpassStatus) ([]models.Outpass, error)
	Resolve(ctx context.Context, id uuid.UUID, resolvedBy uuid.UUID, status models.OutpassStatus, note *string, resolvedAt time.Time) (*models.Outpass, error)
	MarkOut(ctx context.Context, id uuid.UUID, outAt time.Time) (*models.Outpass, error)
	MarkReturned(ctx context.Context, id uuid.UUID, returnedAt time.Time) (*models.Outpass, error)
}

// OutpassService реализует жизненный цикл увольнительной:
// студент подаёт заявку, комендант решает, охрана отмечает выход и возвращение.
type OutpassService struct {
	outpasses OutpassRepositoryIface
	students  CheckinStudentRepository
	notifier  Notifier

	now func() time.Time
}

// NewOutpassService создаёт сервис увольнительных.
func NewOutpassService(outpasses OutpassRepositoryIface, students CheckinStudentRepository, notifier Notifier) *OutpassService {
	return &OutpassService{
		outpasses: outpasses,
		students:  students,
		notifier:  notifier,
		now:       time.Now,
	}
}

// CreateOutpassInput содержит данные заявки на увольнительную.
type CreateOutpassInput struct {
	StudentID      uuid.UUID
	Reason         string
	Destination    string
	LeaveAt        time.Time
	ExpectedReturn time.Time
}

// Create подаёт заявку на увольнительную и уведомляет комендантов.
func (s *OutpassService) Create(ctx context.Context, in CreateOutpassInput) (*models.Outpass, error) {
	if err := validation.ValidateLength("причина", in.Reason, 1, validation.MaxReasonLength); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateLength("место назначения", in.Destination, 1, validation.MaxVisitorNameLength); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if !in.ExpectedReturn.After(in.LeaveAt) {
		return nil, apperror.New(apperror.ErrCodeValidation, "время возвращения должно быть позже времени выхода")
	}
	if in.ExpectedReturn.Before(s.now()) {
		return nil, apperror.New(apperror.ErrCodeValidation, "время возвращения уже прошло")
	}

	if _, err := s.students.GetByID(ctx, in.StudentID); err != nil {
		if errors.Is(err, repository.ErrStudentNotFound) {
			return nil, apperror.ErrStudentNotFound
		}
		return nil, err
	}

	outpass := &models.Outpass{
		StudentID:      in.StudentID,
		Reason:         in.Reason,
		Destination:    in.Destination,
		LeaveAt:        in.LeaveAt,
		ExpectedReturn: in.ExpectedReturn,
	}
	if err := s.outpasses.Create(ctx, outpass); err != nil {
		return nil, err
	}

	s.notifyRole(models.RoleWarden, outpass)

	return outpass, nil
}

// Resolve переводит заявку из pending в approved или rejected.
// Повторное решение возвращает конфликт.
func (s *OutpassService) Resolve(ctx context.Context, outpassID, wardenID uuid.UUID, approve bool, note *string) (*models.Outpass, error) {
	status := models.OutpassStatusRejected
	if approve {
		status = models.OutpassStatusApproved
	}

	outpass, err := s.outpasses.Resolve(ctx, outpassID, wardenID, status, note, s.now())
	if err != nil {
		return nil, mapOutpassError(err)
	}

	s.notifyStudentOutpass(outpass)
	s.notifyRole(models.RoleGuard, outpass)

	return outpass, nil
}

// MarkOut фиксирует выход студента по одобренной увольнительной.
func (s *OutpassService) MarkOut(ctx context.Context, outpassID uuid.UUID) (*models.Outpass, error) {
	outpass, err := s.outpasses.MarkOut(ctx, outpassID, s.now())
	if err != nil {
		return nil, mapOutpassError(err)
	}

	s.notifyStudentOutpass(outpass)

	return outpass, nil
}

// MarkReturned фиксирует возвращение студента.
func (s *OutpassService) MarkReturned(ctx context.Context, outpassID uuid.UUID) (*models.Outpass, error) {
	outpass, err := s.outpasses.MarkReturned(ctx, outpassID, s.now())
	if err != nil {
		return nil, mapOutpassError(err)
	}

	s.notifyStudentOutpass(outpass)

	return outpass, nil
}

// Get возвращает увольнительную; студенту доступны только собственные.
func (s *OutpassService) Get(ctx context.Context, outpassID, requesterID uuid.UUID, requesterRole string) (*models.Outpass, error) {
	outpass, err := s.outpasses.GetByID(ctx, outpassID)
	if err != nil {
		return nil, mapOutpassError(err)
	}

	if requesterRole == models.RoleStudent {
		student, err := s.students.GetByUserID(ctx, requesterID)
		if err != nil {
			return nil, apperror.ErrForbidden
		}
		if outpass.StudentID != student.ID {
			return nil, apperror.ErrForbidden
		}
	}

	return outpass, nil
}

// StudentOutpasses возвращает увольнительные студента, новые первыми.
func (s *OutpassService) StudentOutpasses(ctx context.Context, studentID uuid.UUID, limit, offset int) ([]models.Outpass, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.outpasses.ListByStudent(ctx, studentID, limit, offset)
}

// PendingQueue возвращает очередь нерешённых заявок для коменданта.
func (s *OutpassService) PendingQueue(ctx context.Context) ([]models.Outpass, error) {
	return s.outpasses.ListByStatus(ctx, models.OutpassStatusPending)
}

// AwaitingReturn возвращает увольнительные, по которым студенты ещё не вернулись.
func (s *OutpassService) AwaitingReturn(ctx context.Context) ([]models.Outpass, error) {
	return s.outpasses.ListByStatus(ctx, models.OutpassStatusOut)
}

// notifyStudentOutpass отправляет обновление статуса в персональный канал студента.
func (s *OutpassService) notifyStudentOutpass(outpass *models.Outpass) {
	if s.notifier == nil {
		return
	}

	student, err := s.students.GetByID(context.Background(), outpass.StudentID)
	if err != nil {
		logger.Errorf("outpass service: не удалось найти студента для уведомления: %v", err)
		return
	}

	if err := s.notifier.BroadcastToUser(student.UserID, ws.EventOutpassUpdated, outpass); err != nil {
		logger.Errorf("outpass service: не удалось уведомить студента: %v", err)
	}
}

// notifyRole рассылает обновление увольнительной по ролевому каналу.
func (s *OutpassService) notifyRole(role string, outpass *models.Outpass) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.BroadcastToRole(role, ws.EventOutpassUpdated, outpass); err != nil {
		logger.Errorf("outpass service: не удалось уведомить роль %s: %v", role, err)
	}
}

// mapOutpassError переводит ошибки репозитория в доменные.
func mapOutpassError(err error) error {
	switch {
	case errors.Is(err, repository.ErrOutpassNotFound):
		return apperror.ErrOutpassNotFound
	case errors.Is(err, repository.ErrOutpassTransition):
		return apperror.New(apperror.ErrCodeConflict, "увольнительная уже в другом статусе")
	}
	return err
}
