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

// OverrideRepositoryIface описывает хранилище запросов на внеурочные визиты.
type OverrideRepositoryIface interface {
	Create(ctx context.Context, req *models.OverrideRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.OverrideRequest, error)
	ListPending(ctx context.Context) ([]models.OverrideRequest, error)
	ListByGuard(ctx context.Context, guardID uuid.UUID, limit, offset int) ([]models.OverrideRequest, error)
	Resolve(ctx context.Context, id uuid.UUID, resolvedBy uuid.UUID, status models.OverrideStatus, note *string, resolvedAt time.Time) (*models.OverrideRequest, error)
	SetVisitID(ctx context.Context, id uuid.UUID, visitID uuid.UUID) error
}

// OverrideVisitRepository — минимальный доступ к визитам для материализации одобрения.
type OverrideVisitRepository interface {
	Create(ctx context.Context, visit *models.Visit) error
	HasActive(ctx context.Context, studentID uuid.UUID, visitorPhone string) (bool, error)
}

// OverrideService реализует эскалацию внеурочных визитов:
// охранник подаёт запрос, комендант одобряет или отклоняет.
type OverrideService struct {
	overrides OverrideRepositoryIface
	students  CheckinStudentRepository
	visits    OverrideVisitRepository
	prefs     CheckinPreferenceRepository
	notifier  Notifier
	hours     VisitingHours

	now func() time.Time
}

// NewOverrideService создаёт сервис внеурочных запросов.
func NewOverrideService(
	overrides OverrideRepositoryIface,
	students CheckinStudentRepository,
	visits OverrideVisitRepository,
	prefs CheckinPreferenceRepository,
	notifier Notifier,
	hours VisitingHours,
) *OverrideService {
	return &OverrideService{
		overrides: overrides,
		students:  students,
		visits:    visits,
		prefs:     prefs,
		notifier:  notifier,
		hours:     hours,
		now:       time.Now,
	}
}

// RequestOverrideInput содержит данные запроса на внеурочный визит.
type RequestOverrideInput struct {
	GuardID      uuid.UUID
	StudentID    uuid.UUID
	VisitorName  string
	VisitorPhone string
	Reason       string
	Purpose      string
	Urgency      string
}

// RequestOverride создаёт запрос на одобрение внеурочного визита и
// уведомляет комендантов. Путь валиден только когда обычная выдача кода
// вернула OUT_OF_HOURS, поэтому условия перепроверяются.
func (s *OverrideService) RequestOverride(ctx context.Context, in RequestOverrideInput) (*models.OverrideRequest, error) {
	if err := validation.ValidateLength("имя посетителя", in.VisitorName,
		validation.MinVisitorNameLength, validation.MaxVisitorNameLength); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	in.VisitorPhone = validation.NormalizePhone(in.VisitorPhone)
	if err := validation.ValidatePhone(in.VisitorPhone); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	if err := validation.ValidateLength("причина", in.Reason, 1, validation.MaxReasonLength); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	if in.Urgency == "" {
		in.Urgency = models.OverrideUrgencyNormal
	}
	if in.Urgency != models.OverrideUrgencyNormal && in.Urgency != models.OverrideUrgencyHigh {
		return nil, apperror.New(apperror.ErrCodeValidation, "неизвестная срочность")
	}

	student, err := s.students.GetByID(ctx, in.StudentID)
	if err != nil {
		if errors.Is(err, repository.ErrStudentNotFound) {
			return nil, apperror.ErrStudentNotFound
		}
		return nil, err
	}

	if s.hours.Contains(s.now()) {
		return nil, apperror.New(apperror.ErrCodeConflict,
			"сейчас часы посещений: запросите обычный код")
	}

	prefs, err := s.prefs.GetPreferences(ctx, student.ID)
	if err != nil {
		return nil, err
	}
	if prefs.AllowOutOfHours {
		return nil, apperror.New(apperror.ErrCodeConflict,
			"студент разрешает внеурочные визиты: запросите обычный код")
	}

	req := &models.OverrideRequest{
		GuardID:      in.GuardID,
		StudentID:    in.StudentID,
		VisitorName:  in.VisitorName,
		VisitorPhone: in.VisitorPhone,
		Reason:       in.Reason,
		Purpose:      in.Purpose,
		Urgency:      in.Urgency,
	}

	if err := s.overrides.Create(ctx, req); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		if err := s.notifier.BroadcastToRole(models.RoleWarden, ws.EventOverrideRequested, req); err != nil {
			logger.Errorf("override service: не удалось уведомить комендантов: %v", err)
		}
	}

	return req, nil
}

// Resolve разрешает запрос: одобрение создаёт активный визит методом override,
// отказ только фиксируется. Переход из pending условный, повторное решение
// возвращает конфликт. Охранник узнаёт об итоге из push-события
// override_resolved и из опроса GET по запросу.
func (s *OverrideService) Resolve(ctx context.Context, requestID, wardenID uuid.UUID, approve bool, note *string) (*models.OverrideRequest, *models.Visit, error) {
	status := models.OverrideStatusDenied
	if approve {
		status = models.OverrideStatusApproved
	}

	req, err := s.overrides.Resolve(ctx, requestID, wardenID, status, note, s.now())
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrOverrideNotFound):
			return nil, nil, apperror.ErrOverrideNotFound
		case errors.Is(err, repository.ErrOverrideResolved):
			return nil, nil, apperror.New(apperror.ErrCodeConflict, "запрос уже разрешён")
		}
		return nil, nil, err
	}

	var visit *models.Visit
	if approve {
		visit, err = s.materializeVisit(ctx, req)
		if err != nil {
			return nil, nil, err
		}
	}

	s.notifyGuard(req, visit)

	return req, visit, nil
}

// GetRequest возвращает запрос; охраннику доступны только собственные.
func (s *OverrideService) GetRequest(ctx context.Context, requestID, requesterID uuid.UUID, requesterRole string) (*models.OverrideRequest, error) {
	req, err := s.overrides.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrOverrideNotFound) {
			return nil, apperror.ErrOverrideNotFound
		}
		return nil, err
	}

	if requesterRole == models.RoleGuard && req.GuardID != requesterID {
		return nil, apperror.ErrForbidden
	}

	return req, nil
}

// PendingQueue возвращает очередь нерешённых запросов для коменданта.
func (s *OverrideService) PendingQueue(ctx context.Context) ([]models.OverrideRequest, error) {
	return s.overrides.ListPending(ctx)
}

// GuardRequests возвращает запросы охранника, новые первыми.
func (s *OverrideService) GuardRequests(ctx context.Context, guardID uuid.UUID, limit, offset int) ([]models.OverrideRequest, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.overrides.ListByGuard(ctx, guardID, limit, offset)
}

// materializeVisit создаёт визит по одобренному запросу — тот же контракт,
// что у успешной проверки кода: активный визит, время входа сейчас.
func (s *OverrideService) materializeVisit(ctx context.Context, req *models.OverrideRequest) (*models.Visit, error) {
	hasActive, err := s.visits.HasActive(ctx, req.StudentID, req.VisitorPhone)
	if err != nil {
		return nil, err
	}
	if hasActive {
		return nil, apperror.ErrActiveVisit
	}

	visit := &models.Visit{
		StudentID:    req.StudentID,
		GuardID:      req.GuardID,
		VisitorName:  req.VisitorName,
		VisitorPhone: req.VisitorPhone,
		Purpose:      req.Purpose,
		GroupSize:    1,
		Method:       models.VisitMethodOverride,
		Status:       models.VisitStatusActive,
		EntryTime:    s.now(),
	}

	if err := s.visits.Create(ctx, visit); err != nil {
		if errors.Is(err, repository.ErrActiveVisitExists) {
			return nil, apperror.ErrActiveVisit
		}
		return nil, err
	}

	if err := s.overrides.SetVisitID(ctx, req.ID, visit.ID); err != nil {
		return nil, err
	}
	req.VisitID = &visit.ID

	if s.notifier != nil {
		if err := s.notifier.BroadcastToRole(models.RoleGuard, ws.EventVisitCreated, visit); err != nil {
			logger.Errorf("override service: не удалось уведомить охрану о визите: %v", err)
		}
	}

	return visit, nil
}

// notifyGuard отправляет итог решения в персональный канал охранника.
func (s *OverrideService) notifyGuard(req *models.OverrideRequest, visit *models.Visit) {
	if s.notifier == nil {
		return
	}

	payload := map[string]any{
		"request": req,
	}
	if visit != nil {
		payload["visit"] = visit
	}

	if err := s.notifier.BroadcastToUser(req.GuardID, ws.EventOverrideResolved, payload); err != nil {
		logger.Errorf("override service: не удалось уведомить охранника о решении: %v", err)
	}
}
