package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/hostel-backend/internal/models"
	"github.com/ignatzorin/hostel-backend/internal/pkg/apperror"
	"github.com/ignatzorin/hostel-backend/internal/repository"
)

// mockOverrideRepo реализует OverrideRepositoryIface поверх среза.
type mockOverrideRepo struct {
	requests []*models.OverrideRequest
}

func (m *mockOverrideRepo) Create(ctx context.Context, req *models.OverrideRequest) error {
	req.ID = uuid.New()
	req.Status = models.OverrideStatusPending
	req.CreatedAt = time.Now()
	m.requests = append(m.requests, req)
	return nil
}

func (m *mockOverrideRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.OverrideRequest, error) {
	for _, r := range m.requests {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, repository.ErrOverrideNotFound
}

func (m *mockOverrideRepo) ListPending(ctx context.Context) ([]models.OverrideRequest, error) {
	var out []models.OverrideRequest
	for _, r := range m.requests {
		if r.Status == models.OverrideStatusPending {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *mockOverrideRepo) ListByGuard(ctx context.Context, guardID uuid.UUID, limit, offset int) ([]models.OverrideRequest, error) {
	var out []models.OverrideRequest
	for _, r := range m.requests {
		if r.GuardID == guardID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *mockOverrideRepo) Resolve(ctx context.Context, id uuid.UUID, resolvedBy uuid.UUID, status models.OverrideStatus, note *string, resolvedAt time.Time) (*models.OverrideRequest, error) {
	for _, r := range m.requests {
		if r.ID != id {
			continue
		}
		if r.Status != models.OverrideStatusPending {
			return nil, repository.ErrOverrideResolved
		}
		r.Status = status
		r.ResolvedBy = &resolvedBy
		r.ResolvedAt = &resolvedAt
		r.ResolveNote = note
		return r, nil
	}
	return nil, repository.ErrOverrideNotFound
}

func (m *mockOverrideRepo) SetVisitID(ctx context.Context, id uuid.UUID, visitID uuid.UUID) error {
	for _, r := range m.requests {
		if r.ID == id {
			r.VisitID = &visitID
			return nil
		}
	}
	return repository.ErrOverrideNotFound
}

// overrideFixture собирает сервис внеурочных запросов с моками.
type overrideFixture struct {
	service   *OverrideService
	overrides *mockOverrideRepo
	students  *mockStudentRepo
	visits    *mockVisitRepo
	prefs     *mockPrefsRepo
	notifier  *mockNotifier
	now       time.Time
}

func newOverrideFixture(t *testing.T) *overrideFixture {
	t.Helper()

	hours, err := NewVisitingHours("08:00", "21:00")
	require.NoError(t, err)

	f := &overrideFixture{
		overrides: &mockOverrideRepo{},
		students:  newMockStudentRepo(),
		visits:    &mockVisitRepo{},
		prefs:     newMockPrefsRepo(),
		notifier:  &mockNotifier{},
		// Глубокая ночь, вне часов посещений.
		now: time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC),
	}

	f.service = NewOverrideService(f.overrides, f.students, f.visits, f.prefs, f.notifier, hours)
	f.service.now = func() time.Time { return f.now }
	return f
}

func overrideInput(guardID, studentID uuid.UUID) RequestOverrideInput {
	return RequestOverrideInput{
		GuardID:      guardID,
		StudentID:    studentID,
		VisitorName:  "Анна Смирнова",
		VisitorPhone: "+7 900 111-22-33",
		Reason:       "срочная передача лекарств",
		Urgency:      models.OverrideUrgencyHigh,
	}
}

func TestOverrideService_RequestAndApprove(t *testing.T) {
	f := newOverrideFixture(t)
	student := f.students.add(&models.Student{
		FullName:   "Иван Петров",
		RollNumber: "B19-042",
		RoomNumber: "214",
		Block:      "B",
		Phone:      "+79001112233",
	})
	guardID := uuid.New()
	ctx := context.Background()

	req, err := f.service.RequestOverride(ctx, overrideInput(guardID, student.ID))
	require.NoError(t, err)
	assert.Equal(t, models.OverrideStatusPending, req.Status)
	assert.Equal(t, "+79001112233", req.VisitorPhone, "телефон нормализован")

	// Комендант получил широковещательное событие.
	require.Contains(t, f.notifier.roleEvents, models.RoleWarden+":override_requested")

	wardenID := uuid.New()
	resolved, visit, err := f.service.Resolve(ctx, req.ID, wardenID, true, nil)
	require.NoError(t, err)
	assert.Equal(t, models.OverrideStatusApproved, resolved.Status)
	require.NotNil(t, visit)
	assert.Equal(t, models.VisitMethodOverride, visit.Method)
	assert.Equal(t, models.VisitStatusActive, visit.Status)
	assert.Equal(t, guardID, visit.GuardID)
	require.NotNil(t, resolved.VisitID)
	assert.Equal(t, visit.ID, *resolved.VisitID)

	// Охранник получил итог в персональный канал.
	require.Contains(t, f.notifier.userEvents, "override_resolved")

	// Повторное решение конфликтует.
	_, _, err = f.service.Resolve(ctx, req.ID, wardenID, false, nil)
	require.Error(t, err)
	assert.Equal(t, apperror.ErrCodeConflict, apperror.CodeOf(err))
}

func TestOverrideService_Deny(t *testing.T) {
	f := newOverrideFixture(t)
	student := f.students.add(&models.Student{
		FullName:   "Иван Петров",
		RollNumber: "B19-042",
		RoomNumber: "214",
		Block:      "B",
		Phone:      "+79001112233",
	})
	ctx := context.Background()

	req, err := f.service.RequestOverride(ctx, overrideInput(uuid.New(), student.ID))
	require.NoError(t, err)

	note := "часы посещений закончились, визит не срочный"
	resolved, visit, err := f.service.Resolve(ctx, req.ID, uuid.New(), false, &note)
	require.NoError(t, err)
	assert.Equal(t, models.OverrideStatusDenied, resolved.Status)
	assert.Nil(t, visit)
	assert.Empty(t, f.visits.visits)
	require.NotNil(t, resolved.ResolveNote)
	assert.Equal(t, note, *resolved.ResolveNote)
}

func TestOverrideService_RejectedDuringVisitingHours(t *testing.T) {
	f := newOverrideFixture(t)
	student := f.students.add(&models.Student{
		FullName:   "Иван Петров",
		RollNumber: "B19-042",
		RoomNumber: "214",
		Block:      "B",
		Phone:      "+79001112233",
	})
	ctx := context.Background()

	// В часы посещений путь эскалации закрыт: нужен обычный код.
	f.now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	_, err := f.service.RequestOverride(ctx, overrideInput(uuid.New(), student.ID))
	require.Error(t, err)
	assert.Equal(t, apperror.ErrCodeConflict, apperror.CodeOf(err))
}

func TestOverrideService_GuardSeesOnlyOwnRequests(t *testing.T) {
	f := newOverrideFixture(t)
	student := f.students.add(&models.Student{
		FullName:   "Иван Петров",
		RollNumber: "B19-042",
		RoomNumber: "214",
		Block:      "B",
		Phone:      "+79001112233",
	})
	guardID := uuid.New()
	ctx := context.Background()

	req, err := f.service.RequestOverride(ctx, overrideInput(guardID, student.ID))
	require.NoError(t, err)

	_, err = f.service.GetRequest(ctx, req.ID, guardID, models.RoleGuard)
	require.NoError(t, err)

	_, err = f.service.GetRequest(ctx, req.ID, uuid.New(), models.RoleGuard)
	require.Error(t, err)
	assert.Equal(t, apperror.ErrCodeForbidden, apperror.CodeOf(err))

	// Коменданту доступен любой запрос.
	_, err = f.service.GetRequest(ctx, req.ID, uuid.New(), models.RoleWarden)
	require.NoError(t, err)
}
