package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/hostel-backend/internal/logger"
	"github.com/ignatzorin/hostel-backend/internal/models"
	"github.com/ignatzorin/hostel-backend/internal/pkg/apperror"
	"github.com/ignatzorin/hostel-backend/internal/repository"
	"github.com/ignatzorin/hostel-backend/internal/validation"
	"github.com/ignatzorin/hostel-backend/internal/ws"
)

// RequestResult — итог запроса пропуска посетителя.
type RequestResult string

const (
	// ResultPreApproved — посетитель из белого списка, визит создан без кода.
	ResultPreApproved RequestResult = "PRE_APPROVED"
	// ResultOTPSent — код выдан и отправлен студенту.
	ResultOTPSent RequestResult = "OTP_SENT"
	// ResultOutOfHours — вне разрешённых часов, нужен запрос коменданту.
	ResultOutOfHours RequestResult = "OUT_OF_HOURS"
)

// Notifier — realtime-канал для push-событий.
// Доставка best-effort: ошибки канала логируются и никогда не роняют запрос.
type Notifier interface {
	BroadcastToUser(userID uuid.UUID, event string, data any) error
	BroadcastToRole(role string, event string, data any) error
}

// CheckinStudentRepository описывает доступ к реестру студентов.
type CheckinStudentRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Student, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Student, error)
}

// CheckinOTPRepository описывает хранилище одноразовых кодов.
type CheckinOTPRepository interface {
	Create(ctx context.Context, otp *models.VisitorOTP) error
	SupersedePending(ctx context.Context, studentID uuid.UUID, visitorPhone string) (int64, error)
	CodeInUse(ctx context.Context, studentID uuid.UUID, code string) (bool, error)
	GetLatestByCode(ctx context.Context, visitorPhone, code string) (*models.VisitorOTP, error)
	HasPending(ctx context.Context, visitorPhone string) (bool, error)
	Consume(ctx context.Context, id uuid.UUID) (bool, error)
}

// CheckinVisitRepository описывает хранилище визитов.
type CheckinVisitRepository interface {
	Create(ctx context.Context, visit *models.Visit) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Visit, error)
	HasActive(ctx context.Context, studentID uuid.UUID, visitorPhone string) (bool, error)
	ListActive(ctx context.Context, guardID uuid.UUID) ([]models.Visit, error)
	ListByStudent(ctx context.Context, studentID uuid.UUID, limit, offset int) ([]models.Visit, error)
	CountForStudentSince(ctx context.Context, studentID uuid.UUID, since time.Time) (int, error)
	Close(ctx context.Context, id uuid.UUID, exitTime time.Time) (*models.Visit, error)
}

// CheckinPreferenceRepository описывает реестр контактов и настроек студента.
// Ядро читает его только на чтение.
type CheckinPreferenceRepository interface {
	GetPreferences(ctx context.Context, studentID uuid.UUID) (*models.VisitorPreferences, error)
	IsWhitelisted(ctx context.Context, studentID uuid.UUID, phone string) (bool, error)
	IsParentPhone(ctx context.Context, studentID uuid.UUID, phone string) (bool, error)
}

// CheckinService реализует пропускной контроль посетителей:
// выдачу и проверку одноразовых кодов, создание и закрытие визитов.
type CheckinService struct {
	students CheckinStudentRepository
	otps     CheckinOTPRepository
	visits   CheckinVisitRepository
	prefs    CheckinPreferenceRepository
	notifier Notifier
	hours    VisitingHours
	otpTTL   time.Duration

	// now и genCode подменяются в тестах.
	now     func() time.Time
	genCode func() (string, error)
}

// NewCheckinService создаёт сервис пропускного контроля.
func NewCheckinService(
	students CheckinStudentRepository,
	otps CheckinOTPRepository,
	visits CheckinVisitRepository,
	prefs CheckinPreferenceRepository,
	notifier Notifier,
	hours VisitingHours,
	otpTTL time.Duration,
) *CheckinService {
	return &CheckinService{
		students: students,
		otps:     otps,
		visits:   visits,
		prefs:    prefs,
		notifier: notifier,
		hours:    hours,
		otpTTL:   otpTTL,
		now:      time.Now,
		genCode:  GenerateOTPCode,
	}
}

// RequestOtpInput содержит данные запроса пропуска от охранника.
type RequestOtpInput struct {
	StudentID    uuid.UUID
	GuardID      uuid.UUID
	VisitorName  string
	VisitorPhone string
	Purpose      string
	GroupSize    int
}

// RequestOtpOutcome — результат запроса пропуска.
// Visit заполнен только при PRE_APPROVED, ExpiresAt — только при OTP_SENT.
type RequestOtpOutcome struct {
	Result    RequestResult `json:"result"`
	Message   string        `json:"message"`
	Visit     *models.Visit `json:"visit,omitempty"`
	ExpiresAt *time.Time    `json:"expires_at,omitempty"`
}

// RequestOtp обрабатывает запрос пропуска посетителя.
// Политика по порядку: автоодобрение родителя даёт визит сразу и в любое время,
// остальные пути открыты только в разрешённые часы (или при разрешении студента
// на внеурочные визиты): белый список даёт визит без кода, иначе выдаётся
// одноразовый код. Вне часов — OUT_OF_HOURS и путь через коменданта.
func (s *CheckinService) RequestOtp(ctx context.Context, in RequestOtpInput) (*RequestOtpOutcome, error) {
	if err := s.validateRequest(&in); err != nil {
		return nil, err
	}

	student, err := s.students.GetByID(ctx, in.StudentID)
	if err != nil {
		if errors.Is(err, repository.ErrStudentNotFound) {
			return nil, apperror.ErrStudentNotFound
		}
		return nil, err
	}

	// Инвариант: не больше одного активного визита на пару (телефон, студент).
	hasActive, err := s.visits.HasActive(ctx, student.ID, in.VisitorPhone)
	if err != nil {
		return nil, err
	}
	if hasActive {
		return nil, apperror.ErrActiveVisit
	}

	prefs, err := s.prefs.GetPreferences(ctx, student.ID)
	if err != nil {
		return nil, err
	}

	if err := s.checkDailyLimit(ctx, student.ID, prefs); err != nil {
		return nil, err
	}

	// Телефон родителя — единственный путь в обход часов посещений.
	parentApproved, err := s.isParentPhone(ctx, student, prefs, in.VisitorPhone)
	if err != nil {
		return nil, err
	}
	if parentApproved {
		visit, err := s.createVisit(ctx, student, in, models.VisitMethodWhitelist)
		if err != nil {
			return nil, err
		}
		return &RequestOtpOutcome{
			Result:  ResultPreApproved,
			Message: "телефон родителя, визит одобрен без кода",
			Visit:   visit,
		}, nil
	}

	if !s.hours.Contains(s.now()) && !prefs.AllowOutOfHours {
		return &RequestOtpOutcome{
			Result:  ResultOutOfHours,
			Message: "вне часов посещений: требуется одобрение коменданта",
		}, nil
	}

	whitelisted, err := s.prefs.IsWhitelisted(ctx, student.ID, in.VisitorPhone)
	if err != nil {
		return nil, err
	}
	if whitelisted {
		visit, err := s.createVisit(ctx, student, in, models.VisitMethodWhitelist)
		if err != nil {
			return nil, err
		}
		return &RequestOtpOutcome{
			Result:  ResultPreApproved,
			Message: "посетитель в белом списке, визит одобрен без кода",
			Visit:   visit,
		}, nil
	}

	otp, err := s.issueOTP(ctx, student, in)
	if err != nil {
		return nil, err
	}

	return &RequestOtpOutcome{
		Result:    ResultOTPSent,
		Message:   "код отправлен студенту",
		ExpiresAt: &otp.ExpiresAt,
	}, nil
}

// VerifyOtp проверяет код посетителя и при успехе создаёт активный визит.
// Погашение кода атомарно: при гонке двух охранников с одним кодом визит
// создаст ровно один, второй получит ALREADY_USED.
func (s *CheckinService) VerifyOtp(ctx context.Context, visitorPhone, code string, guardID uuid.UUID) (*models.Visit, error) {
	visitorPhone = validation.NormalizePhone(visitorPhone)
	if err := validation.ValidatePhone(visitorPhone); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if len(code) != models.OTPCodeLength {
		return nil, apperror.New(apperror.ErrCodeValidation,
			fmt.Sprintf("код должен состоять из %d цифр", models.OTPCodeLength))
	}

	// Запись ищется по паре (телефон, код): действующие коды разных студентов
	// на один телефон посетителя не мешают друг другу.
	otp, err := s.otps.GetLatestByCode(ctx, visitorPhone, code)
	if err != nil {
		if !errors.Is(err, repository.ErrOTPNotFound) {
			return nil, err
		}
		// Неверный код не трогает запись: правильный код остаётся проверяемым.
		pending, perr := s.otps.HasPending(ctx, visitorPhone)
		if perr != nil {
			return nil, perr
		}
		if pending {
			return nil, apperror.ErrOTPMismatch
		}
		return nil, apperror.ErrOTPNotFound
	}

	if otp.UsedAt != nil {
		return nil, apperror.ErrOTPUsed
	}
	if otp.Consumed {
		// Погашен выдачей более свежего кода.
		return nil, apperror.ErrOTPMismatch
	}
	if otp.IsExpired(s.now()) {
		return nil, apperror.ErrOTPExpired
	}

	// Конфликт по активному визиту проверяется до погашения: код остаётся
	// действующим и пригодным к проверке после закрытия мешающего визита.
	hasActive, err := s.visits.HasActive(ctx, otp.StudentID, otp.VisitorPhone)
	if err != nil {
		return nil, err
	}
	if hasActive {
		return nil, apperror.ErrActiveVisit
	}

	consumed, err := s.otps.Consume(ctx, otp.ID)
	if err != nil {
		return nil, err
	}
	if !consumed {
		return nil, apperror.ErrOTPUsed
	}

	student, err := s.students.GetByID(ctx, otp.StudentID)
	if err != nil {
		return nil, err
	}

	visit, err := s.createVisit(ctx, student, RequestOtpInput{
		StudentID:    otp.StudentID,
		GuardID:      guardID,
		VisitorName:  otp.VisitorName,
		VisitorPhone: otp.VisitorPhone,
		Purpose:      otp.Purpose,
		GroupSize:    otp.GroupSize,
	}, models.VisitMethodOTP)
	if err != nil {
		return nil, err
	}

	return visit, nil
}

// Checkout закрывает активный визит.
// Переход active -> closed условный: повторный checkout вернёт ALREADY_CLOSED
// и не перезапишет время выхода.
func (s *CheckinService) Checkout(ctx context.Context, visitID, guardID uuid.UUID) (*models.Visit, error) {
	visit, err := s.visits.Close(ctx, visitID, s.now())
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrVisitNotFound):
			return nil, apperror.ErrVisitNotFound
		case errors.Is(err, repository.ErrVisitAlreadyClosed):
			return nil, apperror.ErrVisitClosed
		}
		return nil, err
	}

	s.notifyGuards(ws.EventVisitCheckedOut, visit)
	s.notifyStudent(ctx, visit.StudentID, ws.EventVisitCheckedOut, visit)

	return visit, nil
}

// ActiveVisits возвращает активные визиты, новые первыми.
// По умолчанию список общий для всех постов охраны; mineOnly ограничивает
// его визитами, открытыми запрашивающим охранником.
func (s *CheckinService) ActiveVisits(ctx context.Context, guardID uuid.UUID, mineOnly bool) ([]models.Visit, error) {
	if !mineOnly {
		guardID = uuid.Nil
	}
	return s.visits.ListActive(ctx, guardID)
}

// VisitHistory возвращает историю визитов студента.
func (s *CheckinService) VisitHistory(ctx context.Context, studentID uuid.UUID, limit, offset int) ([]models.Visit, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.visits.ListByStudent(ctx, studentID, limit, offset)
}

// validateRequest проверяет и нормализует входные данные запроса пропуска.
func (s *CheckinService) validateRequest(in *RequestOtpInput) error {
	if err := validation.ValidateLength("имя посетителя", in.VisitorName,
		validation.MinVisitorNameLength, validation.MaxVisitorNameLength); err != nil {
		return apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	in.VisitorPhone = validation.NormalizePhone(in.VisitorPhone)
	if err := validation.ValidatePhone(in.VisitorPhone); err != nil {
		return apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	if err := validation.ValidateLength("цель визита", in.Purpose, 0, validation.MaxPurposeLength); err != nil {
		return apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	if in.GroupSize == 0 {
		in.GroupSize = 1
	}
	if err := validation.ValidateGroupSize(in.GroupSize); err != nil {
		return apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	return nil
}

// checkDailyLimit применяет дневной лимит посетителей студента.
func (s *CheckinService) checkDailyLimit(ctx context.Context, studentID uuid.UUID, prefs *models.VisitorPreferences) error {
	if prefs.MaxVisitorsPerDay <= 0 {
		return nil
	}

	now := s.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	count, err := s.visits.CountForStudentSince(ctx, studentID, startOfDay)
	if err != nil {
		return err
	}
	if count >= prefs.MaxVisitorsPerDay {
		return apperror.ErrVisitorLimit
	}

	return nil
}

// isParentPhone проверяет автоодобрение по телефону родителя.
func (s *CheckinService) isParentPhone(ctx context.Context, student *models.Student, prefs *models.VisitorPreferences, phone string) (bool, error) {
	if !prefs.AutoApproveParent {
		return false, nil
	}

	if student.ParentPhone != nil && *student.ParentPhone == phone {
		return true, nil
	}

	return s.prefs.IsParentPhone(ctx, student.ID, phone)
}

// issueOTP выдаёт свежий одноразовый код, гася предыдущие коды этой пары.
func (s *CheckinService) issueOTP(ctx context.Context, student *models.Student, in RequestOtpInput) (*models.VisitorOTP, error) {
	// Действующим остаётся только самый свежий код: проверка всегда
	// разрешается детерминированно в пользу последней выдачи.
	if _, err := s.otps.SupersedePending(ctx, student.ID, in.VisitorPhone); err != nil {
		return nil, err
	}

	code, err := s.uniqueCode(ctx, student.ID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	otp := &models.VisitorOTP{
		StudentID:    student.ID,
		GuardID:      in.GuardID,
		VisitorName:  in.VisitorName,
		VisitorPhone: in.VisitorPhone,
		Purpose:      in.Purpose,
		GroupSize:    in.GroupSize,
		Code:         code,
		ExpiresAt:    now.Add(s.otpTTL),
	}

	if err := s.otps.Create(ctx, otp); err != nil {
		return nil, err
	}

	s.notifyStudent(ctx, student.ID, ws.EventNewOTP, map[string]any{
		"code":         otp.Code,
		"visitor_name": otp.VisitorName,
		"purpose":      otp.Purpose,
		"group_size":   otp.GroupSize,
		"expires_at":   otp.ExpiresAt,
	})

	return otp, nil
}

// uniqueCode генерирует код, не совпадающий с действующими кодами студента.
func (s *CheckinService) uniqueCode(ctx context.Context, studentID uuid.UUID) (string, error) {
	const maxAttempts = 5

	for attempt := 0; attempt < maxAttempts; attempt++ {
		code, err := s.genCode()
		if err != nil {
			return "", fmt.Errorf("checkin service: не удалось сгенерировать код: %w", err)
		}

		inUse, err := s.otps.CodeInUse(ctx, studentID, code)
		if err != nil {
			return "", err
		}
		if !inUse {
			return code, nil
		}
	}

	return "", fmt.Errorf("checkin service: не удалось подобрать уникальный код за %d попыток", maxAttempts)
}

// createVisit создаёт активный визит и рассылает событие visitCreated.
// Визит появляется только здесь: через код, белый список или одобрение
// коменданта, прямого пути от клиентского ввода к записи нет.
func (s *CheckinService) createVisit(ctx context.Context, student *models.Student, in RequestOtpInput, method models.VisitMethod) (*models.Visit, error) {
	visit := &models.Visit{
		StudentID:    student.ID,
		GuardID:      in.GuardID,
		VisitorName:  in.VisitorName,
		VisitorPhone: in.VisitorPhone,
		Purpose:      in.Purpose,
		GroupSize:    in.GroupSize,
		Method:       method,
		Status:       models.VisitStatusActive,
		EntryTime:    s.now(),
	}

	if err := s.visits.Create(ctx, visit); err != nil {
		if errors.Is(err, repository.ErrActiveVisitExists) {
			return nil, apperror.ErrActiveVisit
		}
		return nil, err
	}

	s.notifyGuards(ws.EventVisitCreated, visit)
	s.notifyStudent(ctx, student.ID, ws.EventVisitCreated, visit)

	return visit, nil
}

// notifyGuards рассылает событие группе охраны. Ошибки канала не фатальны.
func (s *CheckinService) notifyGuards(event string, data any) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.BroadcastToRole(models.RoleGuard, event, data); err != nil {
		logger.Errorf("checkin service: не удалось отправить %s охране: %v", event, err)
	}
}

// notifyStudent отправляет событие в персональный канал студента.
func (s *CheckinService) notifyStudent(ctx context.Context, studentID uuid.UUID, event string, data any) {
	if s.notifier == nil {
		return
	}

	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		logger.Errorf("checkin service: не удалось найти студента для события %s: %v", event, err)
		return
	}

	if err := s.notifier.BroadcastToUser(student.UserID, event, data); err != nil {
		logger.Errorf("checkin service: не удалось отправить %s студенту: %v", event, err)
	}
}

// GenerateOTPCode генерирует криптостойкий шестизначный код с ведущими нулями.
func GenerateOTPCode() (string, error) {
	max := big.NewInt(1000000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
