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

// mockStudentRepo реализует CheckinStudentRepository для тестов.
type mockStudentRepo struct {
	students map[uuid.UUID]*models.Student
}

func newMockStudentRepo() *mockStudentRepo {
	return &mockStudentRepo{students: make(map[uuid.UUID]*models.Student)}
}

func (m *mockStudentRepo) add(student *models.Student) *models.Student {
	if student.ID == uuid.Nil {
		student.ID = uuid.New()
	}
	if student.UserID == uuid.Nil {
		student.UserID = uuid.New()
	}
	m.students[student.ID] = student
	return student
}

func (m *mockStudentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		return s, nil
	}
	return nil, repository.ErrStudentNotFound
}

func (m *mockStudentRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Student, error) {
	for _, s := range m.students {
		if s.UserID == userID {
			return s, nil
		}
	}
	return nil, repository.ErrStudentNotFound
}

// mockOTPRepo реализует CheckinOTPRepository поверх среза.
type mockOTPRepo struct {
	otps []*models.VisitorOTP
}

func (m *mockOTPRepo) Create(ctx context.Context, otp *models.VisitorOTP) error {
	otp.ID = uuid.New()
	otp.CreatedAt = time.Now()
	m.otps = append(m.otps, otp)
	return nil
}

func (m *mockOTPRepo) SupersedePending(ctx context.Context, studentID uuid.UUID, visitorPhone string) (int64, error) {
	var n int64
	for _, otp := range m.otps {
		if otp.StudentID == studentID && otp.VisitorPhone == visitorPhone && !otp.Consumed {
			otp.Consumed = true
			n++
		}
	}
	return n, nil
}

func (m *mockOTPRepo) CodeInUse(ctx context.Context, studentID uuid.UUID, code string) (bool, error) {
	for _, otp := range m.otps {
		if otp.StudentID == studentID && otp.Code == code && !otp.Consumed {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockOTPRepo) GetLatestByCode(ctx context.Context, visitorPhone, code string) (*models.VisitorOTP, error) {
	var latest *models.VisitorOTP
	for _, otp := range m.otps {
		if otp.VisitorPhone != visitorPhone || otp.Code != code {
			continue
		}
		if latest == nil || otp.CreatedAt.After(latest.CreatedAt) {
			latest = otp
		}
	}
	if latest == nil {
		return nil, repository.ErrOTPNotFound
	}
	return latest, nil
}

func (m *mockOTPRepo) HasPending(ctx context.Context, visitorPhone string) (bool, error) {
	for _, otp := range m.otps {
		if otp.VisitorPhone == visitorPhone && !otp.Consumed {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockOTPRepo) Consume(ctx context.Context, id uuid.UUID) (bool, error) {
	for _, otp := range m.otps {
		if otp.ID == id {
			if otp.Consumed {
				return false, nil
			}
			otp.Consumed = true
			now := time.Now()
			otp.UsedAt = &now
			return true, nil
		}
	}
	return false, nil
}

// mockVisitRepo реализует CheckinVisitRepository поверх среза.
type mockVisitRepo struct {
	visits []*models.Visit
}

func (m *mockVisitRepo) Create(ctx context.Context, visit *models.Visit) error {
	// Частичный уникальный индекс: один активный визит на пару.
	for _, v := range m.visits {
		if v.StudentID == visit.StudentID && v.VisitorPhone == visit.VisitorPhone && v.Status == models.VisitStatusActive {
			return repository.ErrActiveVisitExists
		}
	}
	visit.ID = uuid.New()
	visit.CreatedAt = time.Now()
	m.visits = append(m.visits, visit)
	return nil
}

func (m *mockVisitRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Visit, error) {
	for _, v := range m.visits {
		if v.ID == id {
			return v, nil
		}
	}
	return nil, repository.ErrVisitNotFound
}

func (m *mockVisitRepo) HasActive(ctx context.Context, studentID uuid.UUID, visitorPhone string) (bool, error) {
	for _, v := range m.visits {
		if v.StudentID == studentID && v.VisitorPhone == visitorPhone && v.Status == models.VisitStatusActive {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockVisitRepo) ListActive(ctx context.Context, guardID uuid.UUID) ([]models.Visit, error) {
	var out []models.Visit
	for _, v := range m.visits {
		if v.Status != models.VisitStatusActive {
			continue
		}
		if guardID != uuid.Nil && v.GuardID != guardID {
			continue
		}
		out = append(out, *v)
	}
	return out, nil
}

func (m *mockVisitRepo) ListByStudent(ctx context.Context, studentID uuid.UUID, limit, offset int) ([]models.Visit, error) {
	var out []models.Visit
	for _, v := range m.visits {
		if v.StudentID == studentID {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (m *mockVisitRepo) CountForStudentSince(ctx context.Context, studentID uuid.UUID, since time.Time) (int, error) {
	count := 0
	for _, v := range m.visits {
		if v.StudentID == studentID && !v.EntryTime.Before(since) {
			count++
		}
	}
	return count, nil
}

func (m *mockVisitRepo) Close(ctx context.Context, id uuid.UUID, exitTime time.Time) (*models.Visit, error) {
	for _, v := range m.visits {
		if v.ID != id {
			continue
		}
		if v.Status != models.VisitStatusActive {
			return nil, repository.ErrVisitAlreadyClosed
		}
		v.Status = models.VisitStatusClosed
		v.ExitTime = &exitTime
		return v, nil
	}
	return nil, repository.ErrVisitNotFound
}

// mockPrefsRepo реализует CheckinPreferenceRepository.
type mockPrefsRepo struct {
	prefs     map[uuid.UUID]*models.VisitorPreferences
	whitelist map[uuid.UUID]map[string]bool
	parents   map[uuid.UUID]map[string]bool
}

func newMockPrefsRepo() *mockPrefsRepo {
	return &mockPrefsRepo{
		prefs:     make(map[uuid.UUID]*models.VisitorPreferences),
		whitelist: make(map[uuid.UUID]map[string]bool),
		parents:   make(map[uuid.UUID]map[string]bool),
	}
}

func (m *mockPrefsRepo) GetPreferences(ctx context.Context, studentID uuid.UUID) (*models.VisitorPreferences, error) {
	if p, ok := m.prefs[studentID]; ok {
		return p, nil
	}
	return models.DefaultVisitorPreferences(studentID), nil
}

func (m *mockPrefsRepo) IsWhitelisted(ctx context.Context, studentID uuid.UUID, phone string) (bool, error) {
	return m.whitelist[studentID][phone], nil
}

func (m *mockPrefsRepo) IsParentPhone(ctx context.Context, studentID uuid.UUID, phone string) (bool, error) {
	return m.parents[studentID][phone], nil
}

// mockNotifier записывает отправленные события.
type mockNotifier struct {
	userEvents []string
	roleEvents []string
}

func (m *mockNotifier) BroadcastToUser(userID uuid.UUID, event string, data any) error {
	m.userEvents = append(m.userEvents, event)
	return nil
}

func (m *mockNotifier) BroadcastToRole(role string, event string, data any) error {
	m.roleEvents = append(m.roleEvents, role+":"+event)
	return nil
}

// checkinFixture собирает сервис с моками и управляемыми часами.
type checkinFixture struct {
	service  *CheckinService
	students *mockStudentRepo
	otps     *mockOTPRepo
	visits   *mockVisitRepo
	prefs    *mockPrefsRepo
	notifier *mockNotifier
	now      time.Time
}

func newCheckinFixture(t *testing.T) *checkinFixture {
	t.Helper()

	hours, err := NewVisitingHours("08:00", "21:00")
	require.NoError(t, err)

	f := &checkinFixture{
		students: newMockStudentRepo(),
		otps:     &mockOTPRepo{},
		visits:   &mockVisitRepo{},
		prefs:    newMockPrefsRepo(),
		notifier: &mockNotifier{},
		// Внутри часов посещений.
		now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}

	f.service = NewCheckinService(f.students, f.otps, f.visits, f.prefs, f.notifier, hours, 10*time.Minute)
	f.service.now = func() time.Time { return f.now }
	return f
}

func (f *checkinFixture) addStudent() *models.Student {
	return f.students.add(&models.Student{
		FullName:   "Иван Петров",
		RollNumber: "B19-042",
		RoomNumber: "214",
		Block:      "B",
		Phone:      "+79001112233",
	})
}

func requestInput(studentID uuid.UUID) RequestOtpInput {
	return RequestOtpInput{
		StudentID:    studentID,
		GuardID:      uuid.New(),
		VisitorName:  "Мария Сидорова",
		VisitorPhone: "+7 900 555-66-77",
		Purpose:      "передать документы",
	}
}

func TestCheckinService_OtpRoundTrip(t *testing.T) {
	f := newCheckinFixture(t)
	student := f.addStudent()
	ctx := context.Background()

	outcome, err := f.service.RequestOtp(ctx, requestInput(student.ID))
	require.NoError(t, err)
	require.Equal(t, ResultOTPSent, outcome.Result)
	require.NotNil(t, outcome.ExpiresAt)
	assert.Equal(t, f.now.Add(10*time.Minute), *outcome.ExpiresAt)
	assert.Nil(t, outcome.Visit)

	// Код ушёл студенту в персональный канал.
	require.Contains(t, f.notifier.userEvents, "new_otp")

	require.Len(t, f.otps.otps, 1)
	code := f.otps.otps[0].Code
	require.Len(t, code, models.OTPCodeLength)

	guardID := uuid.New()
	visit, err := f.service.VerifyOtp(ctx, "+79005556677", code, guardID)
	require.NoError(t, err)
	assert.Equal(t, models.VisitStatusActive, visit.Status)
	assert.Equal(t, models.VisitMethodOTP, visit.Method)
	assert.Equal(t, student.ID, visit.StudentID)
	assert.Equal(t, guardID, visit.GuardID)
	assert.Equal(t, f.now, visit.EntryTime)

	// Повторная проверка того же кода отклоняется.
	_, err = f.service.VerifyOtp(ctx, "+79005556677", code, guardID)
	require.Error(t, err)
	assert.Equal(t, apperror.ErrCodeAlreadyUsed, apperror.CodeOf(err))

	// Закрытие визита.
	closed, err := f.service.Checkout(ctx, visit.ID, guardID)
	require.NoError(t, err)
	assert.Equal(t, models.VisitStatusClosed, closed.Status)
	require.NotNil(t, closed.ExitTime)
	firstExit := *closed.ExitTime

	// Повторное закрытие не перезаписывает время выхода.
	f.now = f.now.Add(5 * time.Minute)
	_, err = f.service.Checkout(ctx, visit.ID, guardID)
	require.Error(t, err)
	assert.Equal(t, apperror.ErrCodeAlreadyClosed, apperror.CodeOf(err))
	assert.Equal(t, firstExit, *visit.ExitTime)
}

func TestCheckinService_ExpiredCode(t *testing.T) {
	f := newCheckinFixture(t)
	student := f.addStudent()
	ctx := context.Background()

	_, err := f.service.RequestOtp(ctx, requestInput(student.ID))
	require.NoError(t, err)
	code := f.otps.otps[0].Code

	f.now = f.now.Add(11 * time.Minute)

	_, err = f.service.VerifyOtp(ctx, "+79005556677", code, uuid.New())
	require.Error(t, err)
	assert.Equal(t, apperror.ErrCodeExpired, apperror.CodeOf(err))
	assert.Empty(t, f.visits.visits)
}

func TestCheckinService_MismatchKeepsCodeAlive(t *testing.T) {
	f := newCheckinFixture(t)
	student := f.addStudent()
	ctx := context.Background()

	_, err := f.service.RequestOtp(ctx, requestInput(student.ID))
	require.NoError(t, err)
	code := f.otps.otps[0].Code

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	_, err = f.service.VerifyOtp(ctx, "+79005556677", wrong, uuid.New())
	require.Error(t, err)
	assert.Equal(t, apperror.ErrCodeMismatch, apperror.CodeOf(err))

	// Правильный код после неверной попытки всё ещё работает.
	visit, err := f.service.VerifyOtp(ctx, "+79005556677", code, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, models.VisitStatusActive, visit.Status)
}

func TestCheckinService_NewestCodeSupersedes(t *testing.T) {
	f := newCheckinFixture(t)
	student := f.addStudent()
	ctx := context.Background()

	f.service.genCode = codeSequence("111111", "222222")

	_, err := f.service.RequestOtp(ctx, requestInput(student.ID))
	require.NoError(t, err)

	f.now = f.now.Add(time.Minute)
	_, err = f.service.RequestOtp(ctx, requestInput(student.ID))
	require.NoError(t, err)

	// Старый код погашен выдачей нового.
	_, err = f.service.VerifyOtp(ctx, "+79005556677", "111111", uuid.New())
	require.Error(t, err)
	assert.Equal(t, apperror.ErrCodeMismatch, apperror.CodeOf(err))

	visit, err := f.service.VerifyOtp(ctx, "+79005556677", "222222", uuid.New())
	require.NoError(t, err)
	assert.Equal(t, models.VisitMethodOTP, visit.Method)
}

func TestCheckinService_WhitelistPreApproved(t *testing.T) {
	f := newCheckinFixture(t)
	student := f.addStudent()
	ctx := context.Background()

	f.prefs.whitelist[student.ID] = map[string]bool{"+79005556677": true}

	outcome, err := f.service.RequestOtp(ctx, requestInput(student.ID))
	require.NoError(t, err)
	require.Equal(t, ResultPreApproved, outcome.Result)
	require.NotNil(t, outcome.Visit)
	assert.Equal(t, models.VisitMethodWhitelist, outcome.Visit.Method)
	assert.Equal(t, models.VisitStatusActive, outcome.Visit.Status)
	assert.Empty(t, f.otps.otps, "код не выдаётся для белого списка")
}

func TestCheckinService_ParentAutoApprove(t *testing.T) {
	f := newCheckinFixture(t)
	parentPhone := "+79005556677"
	student := f.students.add(&models.Student{
		FullName:    "Олег Кузнецов",
		RollNumber:  "B20-007",
		RoomNumber:  "118",
		Block:       "A",
		Phone:       "+79001112244",
		ParentPhone: &parentPhone,
	})
	ctx := context.Background()

	outcome, err := f.service.RequestOtp(ctx, requestInput(student.ID))
	require.NoError(t, err)
	assert.Equal(t, ResultPreApproved, outcome.Result)
}

func TestCheckinService_OutOfHours(t *testing.T) {
	f := newCheckinFixture(t)
	student := f.addStudent()
	ctx := context.Background()

	f.now = time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)

	outcome, err := f.service.RequestOtp(ctx, requestInput(student.ID))
	require.NoError(t, err)
	assert.Equal(t, ResultOutOfHours, outcome.Result)
	assert.Empty(t, f.otps.otps)

	// Разрешение студента на внеурочные визиты открывает путь через код.
	f.prefs.prefs[student.ID] = &models.VisitorPreferences{
		StudentID:         student.ID,
		AllowOutOfHours:   true,
		MaxVisitorsPerDay: 5,
	}

	outcome, err = f.service.RequestOtp(ctx, requestInput(student.ID))
	require.NoError(t, err)
	assert.Equal(t, ResultOTPSent, outcome.Result)
}

func TestCheckinService_WhitelistDoesNotBypassHours(t *testing.T) {
	f := newCheckinFixture(t)
	student := f.addStudent()
	ctx := context.Background()

	f.prefs.whitelist[student.ID] = map[string]bool{"+79005556677": true}
	f.now = time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)

	// Белый список не обходит часы посещений: нужен путь через коменданта.
	outcome, err := f.service.RequestOtp(ctx, requestInput(student.ID))
	require.NoError(t, err)
	assert.Equal(t, ResultOutOfHours, outcome.Result)
	assert.Empty(t, f.visits.visits)
	assert.Empty(t, f.otps.otps)
}

func TestCheckinService_ParentBypassesHours(t *testing.T) {
	f := newCheckinFixture(t)
	parentPhone := "+79005556677"
	student := f.students.add(&models.Student{
		FullName:    "Олег Кузнецов",
		RollNumber:  "B20-007",
		RoomNumber:  "118",
		Block:       "A",
		Phone:       "+79001112244",
		ParentPhone: &parentPhone,
	})
	ctx := context.Background()

	f.now = time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)

	// Телефон родителя с автоодобрением пропускается и вне часов посещений.
	outcome, err := f.service.RequestOtp(ctx, requestInput(student.ID))
	require.NoError(t, err)
	assert.Equal(t, ResultPreApproved, outcome.Result)
	require.NotNil(t, outcome.Visit)
	assert.Equal(t, models.VisitStatusActive, outcome.Visit.Status)
}

func TestCheckinService_SamePhoneTwoStudents(t *testing.T) {
	f := newCheckinFixture(t)
	first := f.addStudent()
	second := f.students.add(&models.Student{
		FullName:   "Пётр Смирнов",
		RollNumber: "B19-043",
		RoomNumber: "215",
		Block:      "B",
		Phone:      "+79001112255",
	})
	ctx := context.Background()

	f.service.genCode = codeSequence("111111", "222222")

	_, err := f.service.RequestOtp(ctx, requestInput(first.ID))
	require.NoError(t, err)

	f.now = f.now.Add(time.Minute)
	_, err = f.service.RequestOtp(ctx, requestInput(second.ID))
	require.NoError(t, err)

	// Код второго студента не мешает проверке кода первого.
	visit, err := f.service.VerifyOtp(ctx, "+79005556677", "111111", uuid.New())
	require.NoError(t, err)
	assert.Equal(t, first.ID, visit.StudentID)

	visit, err = f.service.VerifyOtp(ctx, "+79005556677", "222222", uuid.New())
	require.NoError(t, err)
	assert.Equal(t, second.ID, visit.StudentID)
}

func TestCheckinService_VerifyConflictKeepsCodeAlive(t *testing.T) {
	f := newCheckinFixture(t)
	student := f.addStudent()
	ctx := context.Background()

	_, err := f.service.RequestOtp(ctx, requestInput(student.ID))
	require.NoError(t, err)
	code := f.otps.otps[0].Code

	// Между выдачей и проверкой у пары появился активный визит.
	blocker := &models.Visit{
		ID:           uuid.New(),
		StudentID:    student.ID,
		VisitorPhone: "+79005556677",
		Status:       models.VisitStatusActive,
	}
	f.visits.visits = append(f.visits.visits, blocker)

	_, err = f.service.VerifyOtp(ctx, "+79005556677", code, uuid.New())
	require.Error(t, err)
	assert.Equal(t, apperror.ErrCodeConflict, apperror.CodeOf(err))
	assert.False(t, f.otps.otps[0].Consumed, "код не гасится при конфликте")

	// После закрытия мешающего визита код всё ещё работает.
	blocker.Status = models.VisitStatusClosed
	visit, err := f.service.VerifyOtp(ctx, "+79005556677", code, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, models.VisitStatusActive, visit.Status)
}

func TestCheckinService_ActiveVisitConflict(t *testing.T) {
	f := newCheckinFixture(t)
	student := f.addStudent()
	ctx := context.Background()

	_, err := f.service.RequestOtp(ctx, requestInput(student.ID))
	require.NoError(t, err)
	code := f.otps.otps[0].Code

	_, err = f.service.VerifyOtp(ctx, "+79005556677", code, uuid.New())
	require.NoError(t, err)

	// Пока визит активен, новый запрос для той же пары отклоняется.
	_, err = f.service.RequestOtp(ctx, requestInput(student.ID))
	require.Error(t, err)
	assert.Equal(t, apperror.ErrCodeConflict, apperror.CodeOf(err))
}

func TestCheckinService_DailyLimit(t *testing.T) {
	f := newCheckinFixture(t)
	student := f.addStudent()
	ctx := context.Background()

	f.prefs.prefs[student.ID] = &models.VisitorPreferences{
		StudentID:         student.ID,
		MaxVisitorsPerDay: 1,
	}

	f.visits.visits = append(f.visits.visits, &models.Visit{
		ID:           uuid.New(),
		StudentID:    student.ID,
		VisitorPhone: "+79000000001",
		Status:       models.VisitStatusClosed,
		EntryTime:    f.now.Add(-time.Hour),
	})

	_, err := f.service.RequestOtp(ctx, requestInput(student.ID))
	require.Error(t, err)
	assert.Equal(t, apperror.ErrCodeLimitReached, apperror.CodeOf(err))
}

func TestCheckinService_VerifyWithoutPendingCode(t *testing.T) {
	f := newCheckinFixture(t)
	ctx := context.Background()

	_, err := f.service.VerifyOtp(ctx, "+79005556677", "123456", uuid.New())
	require.Error(t, err)
	assert.Equal(t, apperror.ErrCodeNotFound, apperror.CodeOf(err))
}

func TestCheckinService_UnknownStudent(t *testing.T) {
	f := newCheckinFixture(t)
	ctx := context.Background()

	_, err := f.service.RequestOtp(ctx, requestInput(uuid.New()))
	require.Error(t, err)
	assert.Equal(t, apperror.ErrCodeNotFound, apperror.CodeOf(err))
}

func TestGenerateOTPCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := GenerateOTPCode()
		require.NoError(t, err)
		require.Len(t, code, models.OTPCodeLength)
		for _, r := range code {
			require.True(t, r >= '0' && r <= '9')
		}
		seen[code] = true
	}
	// Коллизии возможны, но все 50 одинаковых — почти наверняка баг.
	assert.Greater(t, len(seen), 1)
}

// codeSequence возвращает генератор, выдающий коды по порядку.
func codeSequence(codes ...string) func() (string, error) {
	i := 0
	return func() (string, error) {
		code := codes[i%len(codes)]
		i++
		return code, nil
	}
}
