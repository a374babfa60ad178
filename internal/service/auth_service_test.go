package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/luct-reporting-api/internal/models"
	appErrors "github.com/noah-isme/luct-reporting-api/pkg/errors"
)

type authRepoStub struct {
	users         map[string]*models.User
	refreshTokens map[string]*models.RefreshToken
}

func newAuthRepoStub() *authRepoStub {
	return &authRepoStub{
		users:         map[string]*models.User{},
		refreshTokens: map[string]*models.RefreshToken{},
	}
}

func (s *authRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range s.users {
		if user.Email == email {
			cp := *user
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *authRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := s.users[id]; ok {
		cp := *user
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (s *authRepoStub) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := s.FindByEmail(ctx, email)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

func (s *authRepoStub) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = "user-" + user.Email
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *authRepoStub) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

func (s *authRepoStub) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	cp := *token
	s.refreshTokens[token.Token] = &cp
	return nil
}

func (s *authRepoStub) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if stored, ok := s.refreshTokens[token]; ok {
		cp := *stored
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (s *authRepoStub) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, token := range s.refreshTokens {
		if token.ID == id {
			token.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (s *authRepoStub) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	return nil
}

func (s *authRepoStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	return nil
}

func authFixture(t *testing.T) (*authRepoStub, *AuthService) {
	t.Helper()
	repo := newAuthRepoStub()
	svc := NewAuthService(repo, nil, nil, AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "luct-reporting-api",
	})
	return repo, svc
}

func seedUser(t *testing.T, repo *authRepoStub, email, password string, role models.UserRole) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{
		ID:           "user-" + email,
		Username:     email,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
	}
	repo.users[user.ID] = user
	return user
}

func TestAuthServiceRegisterRejectsUnknownRole(t *testing.T) {
	_, svc := authFixture(t)

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "thabo",
		Email:    "thabo@example.com",
		Password: "secret123",
		Role:     "dean",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestAuthServiceRegisterDuplicateEmail(t *testing.T) {
	repo, svc := authFixture(t)
	seedUser(t, repo, "thabo@example.com", "secret123", models.RoleLecturer)

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "thabo",
		Email:    "thabo@example.com",
		Password: "secret123",
		Role:     "lecturer",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestAuthServiceLoginAndValidate(t *testing.T) {
	repo, svc := authFixture(t)
	seedUser(t, repo, "prl@example.com", "secret123", models.RolePrincipalLecturer)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "prl@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, models.RolePrincipalLecturer, resp.User.Role)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-prl@example.com", claims.UserID)
	assert.Equal(t, models.RolePrincipalLecturer, claims.Role)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	repo, svc := authFixture(t)
	seedUser(t, repo, "prl@example.com", "secret123", models.RolePrincipalLecturer)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "prl@example.com",
		Password: "wrong",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	repo, svc := authFixture(t)
	user := seedUser(t, repo, "gone@example.com", "secret123", models.RoleLecturer)
	user.Active = false

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "gone@example.com",
		Password: "secret123",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInactiveAccount))
}

func TestAuthServiceRefreshRotatesToken(t *testing.T) {
	repo, svc := authFixture(t)
	seedUser(t, repo, "prl@example.com", "secret123", models.RolePrincipalLecturer)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "prl@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// the used token is revoked and cannot be replayed
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestAuthServiceValidateTokenRejectsGarbage(t *testing.T) {
	_, svc := authFixture(t)

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}
