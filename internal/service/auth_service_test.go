package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/consultly/consultly-api/internal/models"
	appErrors "github.com/consultly/consultly-api/pkg/errors"
)

type authUserStub struct {
	users      map[string]*models.User
	lastLogins []string
}

func (s *authUserStub) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *authUserStub) FindByID(_ context.Context, id string) (*models.User, error) {
	if user, ok := s.users[id]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (s *authUserStub) UpdateLastLogin(_ context.Context, id string, _ time.Time) error {
	s.lastLogins = append(s.lastLogins, id)
	return nil
}

func newAuthFixture(t *testing.T) (*AuthService, *authUserStub) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	repo := &authUserStub{users: map[string]*models.User{
		"user-1": {
			ID:           "user-1",
			Email:        "client@example.com",
			PasswordHash: string(hash),
			FullName:     "Test Client",
			Role:         models.RoleClient,
			Active:       true,
		},
	}}
	svc := NewAuthService(repo, nil, nil, AuthConfig{
		TokenSecret: "auth-test-secret",
		TokenExpiry: time.Hour,
		Issuer:      "consultly-test",
	})
	return svc, repo
}

func TestLoginIssuesValidToken(t *testing.T) {
	svc, repo := newAuthFixture(t)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "client@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, "user-1", resp.User.ID)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, []string{"user-1"}, repo.lastLogins)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleClient, claims.Role)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "client@example.com", Password: "wrong"})
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestLoginRejectsUnknownEmail(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ghost@example.com", Password: "s3cret-pass"})
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	svc, repo := newAuthFixture(t)
	repo.users["user-1"].Active = false

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "client@example.com", Password: "s3cret-pass"})
	assert.True(t, appErrors.Is(err, appErrors.ErrInactiveAccount))
}

func TestValidateTokenRejectsForeignSignature(t *testing.T) {
	svc, _ := newAuthFixture(t)
	other := NewAuthService(&authUserStub{}, nil, nil, AuthConfig{
		TokenSecret: "a-different-secret",
		TokenExpiry: time.Hour,
		Issuer:      "consultly-test",
	})

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "client@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)

	_, err = other.ValidateToken(resp.AccessToken)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}
