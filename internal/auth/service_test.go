package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tamarLevanoni/couple-time-backend/internal/users"
	pkgAuth "github.com/tamarLevanoni/couple-time-backend/pkg/auth"
	"github.com/tamarLevanoni/couple-time-backend/pkg/config"
	"github.com/tamarLevanoni/couple-time-backend/pkg/db/models"
	"github.com/tamarLevanoni/couple-time-backend/pkg/enums"
	pkgerrors "github.com/tamarLevanoni/couple-time-backend/pkg/errors"
	"github.com/tamarLevanoni/couple-time-backend/pkg/pagination"
	"github.com/tamarLevanoni/couple-time-backend/pkg/security"
)

var testJWTConfig = config.JWTConfig{
	Secret:            "secret",
	Issuer:            "couple-time",
	ExpirationMinutes: 30,
}

type stubUserRepo struct {
	byEmail map[string]*models.User
	created []*models.User
}

func (s *stubUserRepo) WithTx(tx *gorm.DB) users.Repository {
	return s
}

func (s *stubUserRepo) CreateUser(ctx context.Context, dto users.CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	user.ID = uuid.New()
	if s.byEmail == nil {
		s.byEmail = make(map[string]*models.User)
	}
	s.byEmail[user.Email] = user
	s.created = append(s.created, user)
	return user, nil
}

func (s *stubUserRepo) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	for _, user := range s.byEmail {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := s.byEmail[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (s *stubUserRepo) UpdateUser(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return nil
}

func (s *stubUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	for _, user := range s.byEmail {
		if user.ID == id {
			user.LastLoginAt = &at
		}
	}
	return nil
}

func (s *stubUserRepo) ListUsers(ctx context.Context, filters users.UserFilters, params pagination.Params) (*users.UserList, error) {
	return &users.UserList{}, nil
}

func (s *stubUserRepo) ClearCoordinatorRefs(ctx context.Context, userID uuid.UUID) error {
	return nil
}

func (s *stubUserRepo) ClearSuperCoordinatorRefs(ctx context.Context, userID uuid.UUID) error {
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func buildTestService(t *testing.T, repo *stubUserRepo) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		UserRepo:  repo,
		Tx:        stubTxRunner{},
		JWTConfig: testJWTConfig,
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc
}

func mustHashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}

func seedAccount(repo *stubUserRepo, email, passwordHash string) *models.User {
	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    "Dana",
		LastName:     "Levi",
		IsActive:     true,
		Roles:        []string{string(enums.RoleUser)},
	}
	if repo.byEmail == nil {
		repo.byEmail = make(map[string]*models.User)
	}
	repo.byEmail[email] = user
	return user
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != code {
		t.Fatalf("expected code %s, got %v", code, err)
	}
}

func TestLoginIssuesToken(t *testing.T) {
	password := "member-secret"
	repo := &stubUserRepo{}
	user := seedAccount(repo, "member@example.org", mustHashPassword(t, password))
	svc := buildTestService(t, repo)

	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    " Member@Example.org ",
		Password: password,
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != user.ID {
		t.Fatalf("expected user id %s in claims, got %s", user.ID, claims.UserID)
	}
	if claims.Email != user.Email {
		t.Fatalf("expected email claim %s, got %s", user.Email, claims.Email)
	}
	if user.LastLoginAt == nil {
		t.Fatalf("expected last login recorded")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	repo := &stubUserRepo{}
	seedAccount(repo, "member@example.org", mustHashPassword(t, "right-password"))
	svc := buildTestService(t, repo)

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "member@example.org",
		Password: "wrong-password",
	})
	assertCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestLoginUnknownEmail(t *testing.T) {
	svc := buildTestService(t, &stubUserRepo{})

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "nobody@example.org",
		Password: "whatever-password",
	})
	assertCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestLoginDeactivatedAccount(t *testing.T) {
	password := "member-secret"
	repo := &stubUserRepo{}
	user := seedAccount(repo, "member@example.org", mustHashPassword(t, password))
	user.IsActive = false
	svc := buildTestService(t, repo)

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "member@example.org",
		Password: password,
	})
	assertCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestRegisterCreatesMemberAccount(t *testing.T) {
	repo := &stubUserRepo{}
	svc := buildTestService(t, repo)

	resp, err := svc.Register(context.Background(), RegisterRequest{
		FirstName: "Dana",
		LastName:  "Levi",
		Email:     "New.Member@Example.org",
		Password:  "long-enough-password",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected one created account, got %d", len(repo.created))
	}
	created := repo.created[0]
	if created.Email != "new.member@example.org" {
		t.Fatalf("expected lowercased email, got %s", created.Email)
	}
	if !created.HasRole(enums.RoleUser) || len(created.Roles) != 1 {
		t.Fatalf("expected only the user role, got %v", created.Roles)
	}
	if resp.AccessToken == "" {
		t.Fatalf("expected access token")
	}

	ok, err := security.VerifyPassword("long-enough-password", created.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("expected stored hash to verify, ok=%v err=%v", ok, err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := &stubUserRepo{}
	seedAccount(repo, "member@example.org", mustHashPassword(t, "irrelevant-pw"))
	svc := buildTestService(t, repo)

	_, err := svc.Register(context.Background(), RegisterRequest{
		FirstName: "Dana",
		LastName:  "Levi",
		Email:     "member@example.org",
		Password:  "long-enough-password",
	})
	assertCode(t, err, pkgerrors.CodeConflict)
}

func TestRegisterShortPassword(t *testing.T) {
	svc := buildTestService(t, &stubUserRepo{})

	_, err := svc.Register(context.Background(), RegisterRequest{
		FirstName: "Dana",
		LastName:  "Levi",
		Email:     "member@example.org",
		Password:  "short",
	})
	assertCode(t, err, pkgerrors.CodeValidation)
}
