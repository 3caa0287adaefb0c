package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/putra-agung/hrms-api/internal/models"
	appErrors "github.com/putra-agung/hrms-api/pkg/errors"
)

type mockAuthRepo struct {
	users             map[string]*models.User
	findByLoginIDErr  error
	setRefreshErr     error
	updatePasswordErr error
	auditLogs         []*models.AuditLog
	lastLoginUpdated  bool
}

func newMockAuthRepo(users ...*models.User) *mockAuthRepo {
	m := &mockAuthRepo{users: map[string]*models.User{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockAuthRepo) FindByLoginID(ctx context.Context, loginID string) (*models.User, error) {
	if m.findByLoginIDErr != nil {
		return nil, m.findByLoginIDErr
	}
	for _, u := range m.users {
		if u.LoginID == loginID {
			copied := *u
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *u
	return &copied, nil
}

func (m *mockAuthRepo) SetRefreshToken(ctx context.Context, id string, token *string) error {
	if m.setRefreshErr != nil {
		return m.setRefreshErr
	}
	if u, ok := m.users[id]; ok {
		u.RefreshToken = token
	}
	return nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	if m.updatePasswordErr != nil {
		return m.updatePasswordErr
	}
	if u, ok := m.users[id]; ok {
		u.PasswordHash = passwordHash
		u.IsFirstLogin = false
	}
	return nil
}

func (m *mockAuthRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func testAuthConfig() AuthConfig {
	return AuthConfig{
		AccessSecret:      "access-secret",
		RefreshSecret:     "refresh-secret",
		AccessExpiration:  15 * time.Minute,
		RefreshExpiration: 168 * time.Hour,
		Issuer:            "hrms-api",
	}
}

func testUser(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:           "user-1",
		LoginID:      "OIJOAN20240001",
		PasswordHash: string(hash),
		Role:         models.RoleEmployee,
		IsActive:     true,
		IsFirstLogin: true,
	}
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	repo := newMockAuthRepo(testUser(t, "Secret#123"))
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	res, err := svc.Login(context.Background(), models.LoginRequest{LoginID: "OIJOAN20240001", Password: "Secret#123"})

	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.True(t, res.User.IsFirstLogin)
	assert.True(t, repo.lastLoginUpdated)
	require.NotNil(t, repo.users["user-1"].RefreshToken)
	assert.Equal(t, res.RefreshToken, *repo.users["user-1"].RefreshToken)

	claims, err := svc.ValidateAccessToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "OIJOAN20240001", claims.LoginID)
	assert.Equal(t, models.RoleEmployee, claims.Role)
}

func TestAuthServiceLoginUnknownUserAndWrongPasswordIndistinguishable(t *testing.T) {
	repo := newMockAuthRepo(testUser(t, "Secret#123"))
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	_, errUnknown := svc.Login(context.Background(), models.LoginRequest{LoginID: "OIXXYY20240009", Password: "whatever"})
	_, errWrongPw := svc.Login(context.Background(), models.LoginRequest{LoginID: "OIJOAN20240001", Password: "wrong"})

	require.Error(t, errUnknown)
	require.Error(t, errWrongPw)
	assert.Equal(t, appErrors.FromError(errUnknown).Code, appErrors.FromError(errWrongPw).Code)
	assert.Equal(t, appErrors.FromError(errUnknown).Message, appErrors.FromError(errWrongPw).Message)
	assert.Equal(t, 401, appErrors.FromError(errUnknown).Status)
}

func TestAuthServiceLoginDeactivatedAccount(t *testing.T) {
	user := testUser(t, "Secret#123")
	user.IsActive = false
	repo := newMockAuthRepo(user)
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{LoginID: "OIJOAN20240001", Password: "Secret#123"})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAccountDeactivated.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 403, appErrors.FromError(err).Status)
}

func TestAuthServiceLoginDeactivatedWithWrongPasswordStaysGeneric(t *testing.T) {
	user := testUser(t, "Secret#123")
	user.IsActive = false
	repo := newMockAuthRepo(user)
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{LoginID: "OIJOAN20240001", Password: "wrong"})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRefreshIssuesNewAccessTokenWithoutRotation(t *testing.T) {
	repo := newMockAuthRepo(testUser(t, "Secret#123"))
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{LoginID: "OIJOAN20240001", Password: "Secret#123"})
	require.NoError(t, err)

	res, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)

	// Stored token unchanged: the same refresh token keeps working.
	require.NotNil(t, repo.users["user-1"].RefreshToken)
	assert.Equal(t, login.RefreshToken, *repo.users["user-1"].RefreshToken)

	res2, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEmpty(t, res2.AccessToken)
}

func TestAuthServiceRefreshRejectsAccessToken(t *testing.T) {
	repo := newMockAuthRepo(testUser(t, "Secret#123"))
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{LoginID: "OIJOAN20240001", Password: "Secret#123"})
	require.NoError(t, err)

	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.AccessToken})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidToken.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRefreshRejectsSupersededToken(t *testing.T) {
	repo := newMockAuthRepo(testUser(t, "Secret#123"))
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	first, err := svc.Login(context.Background(), models.LoginRequest{LoginID: "OIJOAN20240001", Password: "Secret#123"})
	require.NoError(t, err)

	// A second login rotates the stored token.
	time.Sleep(1100 * time.Millisecond) // distinct iat so the signed tokens differ
	second, err := svc.Login(context.Background(), models.LoginRequest{LoginID: "OIJOAN20240001", Password: "Secret#123"})
	require.NoError(t, err)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: first.RefreshToken})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidToken.Code, appErrors.FromError(err).Code)

	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: second.RefreshToken})
	assert.NoError(t, err)
}

func TestAuthServiceRefreshAfterLogout(t *testing.T) {
	repo := newMockAuthRepo(testUser(t, "Secret#123"))
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{LoginID: "OIJOAN20240001", Password: "Secret#123"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), "user-1", "", ""))
	assert.Nil(t, repo.users["user-1"].RefreshToken)

	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidToken.Code, appErrors.FromError(err).Code)

	// Logout is idempotent.
	assert.NoError(t, svc.Logout(context.Background(), "user-1", "", ""))
}

func TestAuthServiceRefreshDeactivatedAccount(t *testing.T) {
	repo := newMockAuthRepo(testUser(t, "Secret#123"))
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{LoginID: "OIJOAN20240001", Password: "Secret#123"})
	require.NoError(t, err)

	repo.users["user-1"].IsActive = false

	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAccountDeactivated.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceChangePasswordRotatesTokens(t *testing.T) {
	repo := newMockAuthRepo(testUser(t, "Secret#123"))
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{LoginID: "OIJOAN20240001", Password: "Secret#123"})
	require.NoError(t, err)

	time.Sleep(1100 * time.Millisecond)
	res, err := svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{
		CurrentPassword: "Secret#123",
		NewPassword:     "NewSecret#456",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEqual(t, login.RefreshToken, res.RefreshToken)

	// The old session's refresh token no longer matches the stored one.
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)

	// The new password works, the old does not, and first-login is cleared.
	_, err = svc.Login(context.Background(), models.LoginRequest{LoginID: "OIJOAN20240001", Password: "Secret#123"})
	require.Error(t, err)
	relogin, err := svc.Login(context.Background(), models.LoginRequest{LoginID: "OIJOAN20240001", Password: "NewSecret#456"})
	require.NoError(t, err)
	assert.False(t, relogin.User.IsFirstLogin)
}

func TestAuthServiceChangePasswordWrongCurrent(t *testing.T) {
	repo := newMockAuthRepo(testUser(t, "Secret#123"))
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{
		CurrentPassword: "nope",
		NewPassword:     "NewSecret#456",
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrWrongPassword.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceChangePasswordTooShort(t *testing.T) {
	repo := newMockAuthRepo(testUser(t, "Secret#123"))
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{
		CurrentPassword: "Secret#123",
		NewPassword:     "short",
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceValidateAccessTokenRejectsGarbage(t *testing.T) {
	svc := NewAuthService(newMockAuthRepo(), nil, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.ValidateAccessToken("not-a-token")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidToken.Code, appErrors.FromError(err).Code)
}
