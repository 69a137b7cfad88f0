package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/hostel-backend/internal/models"
	"github.com/ignatzorin/hostel-backend/internal/pkg/apperror"
	"github.com/ignatzorin/hostel-backend/internal/repository"
)

// mockAuthRepo реализует AuthRepository в памяти.
type mockAuthRepo struct {
	users    map[string]*models.User
	sessions map[string]*models.Session
}

func newMockAuthRepo() *mockAuthRepo {
	return &mockAuthRepo{
		users:    make(map[string]*models.User),
		sessions: make(map[string]*models.Session),
	}
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	user.ID = uuid.New()
	user.IsActive = true
	user.CreatedAt = time.Now()
	m.users[user.Email] = user
	return nil
}

func (m *mockAuthRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := m.users[email]; ok {
		return u, nil
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockAuthRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockAuthRepo) CreateSession(ctx context.Context, session *models.Session) error {
	session.ID = uuid.New()
	m.sessions[session.RefreshToken] = session
	return nil
}

func (m *mockAuthRepo) GetSessionByToken(ctx context.Context, refreshToken string) (*models.Session, error) {
	if s, ok := m.sessions[refreshToken]; ok {
		return s, nil
	}
	return nil, repository.ErrSessionNotFound
}

func (m *mockAuthRepo) DeleteSession(ctx context.Context, refreshToken string) error {
	delete(m.sessions, refreshToken)
	return nil
}

func (m *mockAuthRepo) ListSessions(ctx context.Context, userID uuid.UUID) ([]models.Session, error) {
	var out []models.Session
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *mockAuthRepo) DeleteSessionByID(ctx context.Context, sessionID uuid.UUID, userID uuid.UUID) error {
	for token, s := range m.sessions {
		if s.ID == sessionID && s.UserID == userID {
			delete(m.sessions, token)
			return nil
		}
	}
	return repository.ErrSessionNotFound
}

func (m *mockAuthRepo) UpdateLastLoginAt(ctx context.Context, userID uuid.UUID) error {
	return nil
}

func newAuthService(repo *mockAuthRepo) *AuthService {
	tm := NewTokenManager("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour)
	return NewAuthService(repo, tm)
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	repo := newMockAuthRepo()
	service := newAuthService(repo)
	ctx := context.Background()
	meta := map[string]string{"user_agent": "go-test", "ip": "127.0.0.1"}

	result, err := service.Register(ctx, RegisterInput{
		Email:    "Guard@Example.com",
		Password: "secret-pass",
		Role:     models.RoleGuard,
	}, meta)
	if err != nil {
		t.Fatalf("регистрация завершилась ошибкой: %v", err)
	}
	if result.User.Email != "guard@example.com" {
		t.Errorf("email должен приводиться к нижнему регистру, получен %q", result.User.Email)
	}
	if result.User.Username != "guard" {
		t.Errorf("username должен выводиться из email, получен %q", result.User.Username)
	}
	if result.TokenPair.AccessToken == "" || result.TokenPair.RefreshToken == "" {
		t.Fatal("после регистрации должна выдаваться пара токенов")
	}
	if len(repo.sessions) != 1 {
		t.Fatalf("ожидалась одна сессия, найдено %d", len(repo.sessions))
	}

	login, err := service.Login(ctx, LoginInput{Email: "guard@example.com", Password: "secret-pass"}, meta)
	if err != nil {
		t.Fatalf("вход завершился ошибкой: %v", err)
	}
	if login.User.ID != result.User.ID {
		t.Error("вход вернул другого пользователя")
	}

	if _, err := service.Login(ctx, LoginInput{Email: "guard@example.com", Password: "wrong"}, meta); err == nil {
		t.Fatal("вход с неверным паролем должен быть отклонён")
	}
}

func TestAuthService_RegisterValidation(t *testing.T) {
	service := newAuthService(newMockAuthRepo())
	ctx := context.Background()

	cases := []struct {
		name string
		in   RegisterInput
	}{
		{"плохой email", RegisterInput{Email: "not-an-email", Password: "secret-pass", Role: models.RoleGuard}},
		{"короткий пароль", RegisterInput{Email: "a@example.com", Password: "short", Role: models.RoleGuard}},
		{"неизвестная роль", RegisterInput{Email: "a@example.com", Password: "secret-pass", Role: "admin"}},
	}

	for _, tc := range cases {
		if _, err := service.Register(ctx, tc.in, nil); err == nil {
			t.Errorf("%s: регистрация должна быть отклонена", tc.name)
		}
	}
}

func TestAuthService_DuplicateEmail(t *testing.T) {
	service := newAuthService(newMockAuthRepo())
	ctx := context.Background()
	in := RegisterInput{Email: "student@example.com", Password: "secret-pass", Role: models.RoleStudent}

	if _, err := service.Register(ctx, in, nil); err != nil {
		t.Fatalf("первая регистрация завершилась ошибкой: %v", err)
	}
	_, err := service.Register(ctx, in, nil)
	if err == nil {
		t.Fatal("повторная регистрация должна быть отклонена")
	}
	if apperror.CodeOf(err) != apperror.ErrCodeConflict {
		t.Errorf("ожидался код конфликта, получен %s", apperror.CodeOf(err))
	}
}

func TestAuthService_RefreshRotatesSession(t *testing.T) {
	repo := newMockAuthRepo()
	service := newAuthService(repo)
	ctx := context.Background()

	result, err := service.Register(ctx, RegisterInput{
		Email:    "warden@example.com",
		Password: "secret-pass",
		Role:     models.RoleWarden,
	}, nil)
	if err != nil {
		t.Fatalf("регистрация завершилась ошибкой: %v", err)
	}

	oldToken := result.TokenPair.RefreshToken
	refreshed, err := service.Refresh(ctx, oldToken, nil)
	if err != nil {
		t.Fatalf("обновление токенов завершилось ошибкой: %v", err)
	}
	if refreshed.TokenPair.RefreshToken == oldToken {
		t.Error("refresh токен должен меняться при обновлении")
	}
	if _, ok := repo.sessions[oldToken]; ok {
		t.Error("старая сессия должна удаляться")
	}

	// Повторное использование старого токена отклоняется.
	if _, err := service.Refresh(ctx, oldToken, nil); err == nil {
		t.Fatal("повторный refresh по использованному токену должен быть отклонён")
	}
}

func TestAuthService_Logout(t *testing.T) {
	repo := newMockAuthRepo()
	service := newAuthService(repo)
	ctx := context.Background()

	result, err := service.Register(ctx, RegisterInput{
		Email:    "guard2@example.com",
		Password: "secret-pass",
		Role:     models.RoleGuard,
	}, nil)
	if err != nil {
		t.Fatalf("регистрация завершилась ошибкой: %v", err)
	}

	if err := service.Logout(ctx, result.TokenPair.RefreshToken); err != nil {
		t.Fatalf("выход завершился ошибкой: %v", err)
	}
	if len(repo.sessions) != 0 {
		t.Fatal("после выхода сессий быть не должно")
	}
}
