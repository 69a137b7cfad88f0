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

// mockOutpassRepo реализует OutpassRepositoryIface поверх среза.
type mockOutpassRepo struct {
	outpasses []*models.Outpass
}

func (m *mockOutpassRepo) Create(ctx context.Context, outpass *models.Outpass) error {
	outpass.ID = uuid.New()
	outpass.Status = models.OutpassStatusPending
	outpass.CreatedAt = time.Now()
	outpass.UpdatedAt = outpass.CreatedAt
	m.outpasses = append(m.outpasses, outpass)
	return nil
}

func (m *mockOutpassRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Outpass, error) {
	for _, o := range m.outpasses {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, repository.ErrOutpassNotFound
}

func (m *mockOutpassRepo) ListByStudent(ctx context.Context, studentID uuid.UUID, limit, offset int) ([]models.Outpass, error) {
	var out []models.Outpass
	for _, o := range m.outpasses {
		if o.StudentID == studentID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOutpassRepo) ListByStatus(ctx context.Context, status models.OutpassStatus) ([]models.Outpass, error) {
	var out []models.Outpass
	for _, o := range m.outpasses {
		if o.Status == status {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOutpassRepo) Resolve(ctx context.Context, id uuid.UUID, resolvedBy uuid.UUID, status models.OutpassStatus, note *string, resolvedAt time.Time) (*models.Outpass, error) {
	return m.transition(id, models.OutpassStatusPending, status, func(o *models.Outpass) {
		o.ResolvedBy = &resolvedBy
		o.ResolvedAt = &resolvedAt
		o.ResolveNote = note
	})
}

func (m *mockOutpassRepo) MarkOut(ctx context.Context, id uuid.UUID, outAt time.Time) (*models.Outpass, error) {
	return m.transition(id, models.OutpassStatusApproved, models.OutpassStatusOut, func(o *models.Outpass) {
		o.OutAt = &outAt
	})
}

func (m *mockOutpassRepo) MarkReturned(ctx context.Context, id uuid.UUID, returnedAt time.Time) (*models.Outpass, error) {
	return m.transition(id, models.OutpassStatusOut, models.OutpassStatusReturned, func(o *models.Outpass) {
		o.ReturnedAt = &returnedAt
	})
}

func (m *mockOutpassRepo) transition(id uuid.UUID, from, to models.OutpassStatus, apply func(*models.Outpass)) (*models.Outpass, error) {
	for _, o := range m.outpasses {
		if o.ID != id {
			continue
		}
		if o.Status != from {
			return nil, repository.ErrOutpassTransition
		}
		o.Status = to
		apply(o)
		return o, nil
	}
	return nil, repository.ErrOutpassNotFound
}

func newOutpassFixture(t *testing.T) (*OutpassService, *mockOutpassRepo, *mockStudentRepo, *mockNotifier) {
	t.Helper()
	outpasses := &mockOutpassRepo{}
	students := newMockStudentRepo()
	notifier := &mockNotifier{}
	service := NewOutpassService(outpasses, students, notifier)
	return service, outpasses, students, notifier
}

func TestOutpassService_FullLifecycle(t *testing.T) {
	service, _, students, notifier := newOutpassFixture(t)
	student := students.add(&models.Student{
		FullName:   "Иван Петров",
		RollNumber: "B19-042",
		RoomNumber: "214",
		Block:      "B",
		Phone:      "+79001112233",
	})
	ctx := context.Background()

	outpass, err := service.Create(ctx, CreateOutpassInput{
		StudentID:      student.ID,
		Reason:         "поездка домой на выходные",
		Destination:    "Казань",
		LeaveAt:        time.Now().Add(24 * time.Hour),
		ExpectedReturn: time.Now().Add(72 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, models.OutpassStatusPending, outpass.Status)
	require.Contains(t, notifier.roleEvents, models.RoleWarden+":outpass_updated")

	wardenID := uuid.New()
	outpass, err = service.Resolve(ctx, outpass.ID, wardenID, true, nil)
	require.NoError(t, err)
	assert.Equal(t, models.OutpassStatusApproved, outpass.Status)
	require.Contains(t, notifier.userEvents, "outpass_updated")

	outpass, err = service.MarkOut(ctx, outpass.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OutpassStatusOut, outpass.Status)
	require.NotNil(t, outpass.OutAt)

	outpass, err = service.MarkReturned(ctx, outpass.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OutpassStatusReturned, outpass.Status)
	require.NotNil(t, outpass.ReturnedAt)
}

func TestOutpassService_RejectedCannotGoOut(t *testing.T) {
	service, _, students, _ := newOutpassFixture(t)
	student := students.add(&models.Student{
		FullName:   "Иван Петров",
		RollNumber: "B19-042",
		RoomNumber: "214",
		Block:      "B",
		Phone:      "+79001112233",
	})
	ctx := context.Background()

	outpass, err := service.Create(ctx, CreateOutpassInput{
		StudentID:      student.ID,
		Reason:         "в гости",
		Destination:    "центр города",
		LeaveAt:        time.Now().Add(time.Hour),
		ExpectedReturn: time.Now().Add(5 * time.Hour),
	})
	require.NoError(t, err)

	_, err = service.Resolve(ctx, outpass.ID, uuid.New(), false, nil)
	require.NoError(t, err)

	// Отклонённая заявка не пропускает на выход.
	_, err = service.MarkOut(ctx, outpass.ID)
	require.Error(t, err)
	assert.Equal(t, apperror.ErrCodeConflict, apperror.CodeOf(err))
}

func TestOutpassService_DoubleResolve(t *testing.T) {
	service, _, students, _ := newOutpassFixture(t)
	student := students.add(&models.Student{
		FullName:   "Иван Петров",
		RollNumber: "B19-042",
		RoomNumber: "214",
		Block:      "B",
		Phone:      "+79001112233",
	})
	ctx := context.Background()

	outpass, err := service.Create(ctx, CreateOutpassInput{
		StudentID:      student.ID,
		Reason:         "экзамен в другом корпусе",
		Destination:    "корпус 3",
		LeaveAt:        time.Now().Add(time.Hour),
		ExpectedReturn: time.Now().Add(3 * time.Hour),
	})
	require.NoError(t, err)

	_, err = service.Resolve(ctx, outpass.ID, uuid.New(), true, nil)
	require.NoError(t, err)

	_, err = service.Resolve(ctx, outpass.ID, uuid.New(), false, nil)
	require.Error(t, err)
	assert.Equal(t, apperror.ErrCodeConflict, apperror.CodeOf(err))
}

func TestOutpassService_ValidatesWindow(t *testing.T) {
	service, _, students, _ := newOutpassFixture(t)
	student := students.add(&models.Student{
		FullName:   "Иван Петров",
		RollNumber: "B19-042",
		RoomNumber: "214",
		Block:      "B",
		Phone:      "+79001112233",
	})
	ctx := context.Background()

	_, err := service.Create(ctx, CreateOutpassInput{
		StudentID:      student.ID,
		Reason:         "прогулка",
		Destination:    "парк",
		LeaveAt:        time.Now().Add(2 * time.Hour),
		ExpectedReturn: time.Now().Add(time.Hour),
	})
	require.Error(t, err)
	assert.Equal(t, apperror.ErrCodeValidation, apperror.CodeOf(err))
}
