package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kantikoala/planner-api/internal/dto"
	"github.com/kantikoala/planner-api/internal/models"
	appErrors "github.com/kantikoala/planner-api/pkg/errors"
)

type userRepoStub struct {
	byUsername map[string]*models.User
	byEmail    map[string]*models.User
	created    []*models.User
}

func newUserRepoStub() *userRepoStub {
	return &userRepoStub{
		byUsername: make(map[string]*models.User),
		byEmail:    make(map[string]*models.User),
	}
}

func (s *userRepoStub) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if u, ok := s.byUsername[username]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (s *userRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := s.byEmail[email]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (s *userRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	for _, u := range s.byUsername {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	s.byUsername[user.Username] = user
	s.byEmail[user.Email] = user
	s.created = append(s.created, user)
	return nil
}

type authSettingsStub struct {
	created []*models.Settings
}

func (s *authSettingsStub) Create(ctx context.Context, settings *models.Settings) error {
	s.created = append(s.created, settings)
	return nil
}

func newAuthServiceFixture(users *userRepoStub, settings *authSettingsStub) *AuthService {
	return NewAuthService(users, settings, nil, zap.NewNop(), AuthConfig{
		Secret:     "test-secret",
		Expiration: time.Hour,
		Issuer:     "planner-api",
	})
}

func TestRegisterCreatesDefaultSettings(t *testing.T) {
	users := newUserRepoStub()
	settings := &authSettingsStub{}
	service := newAuthServiceFixture(users, settings)

	resp, err := service.Register(context.Background(), dto.RegisterRequest{
		Username: "alex",
		Email:    "alex@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "alex", resp.User.Username)

	require.Len(t, settings.created, 1)
	created := settings.created[0]
	assert.Equal(t, models.DefaultPreferredLearningTime, created.PreferredLearningTime)
	assert.Equal(t, models.DefaultTimezone, created.Timezone)
	require.Len(t, created.Priorities, 3)
	assert.Equal(t, 14.0, created.Priorities[0].TotalHoursToLearn)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	users := newUserRepoStub()
	users.byUsername["alex"] = &models.User{ID: "u1", Username: "alex"}
	service := newAuthServiceFixture(users, &authSettingsStub{})

	_, err := service.Register(context.Background(), dto.RegisterRequest{
		Username: "alex",
		Email:    "other@example.com",
		Password: "secret123",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestLoginRoundTrip(t *testing.T) {
	users := newUserRepoStub()
	settings := &authSettingsStub{}
	service := newAuthServiceFixture(users, settings)

	_, err := service.Register(context.Background(), dto.RegisterRequest{
		Username: "alex",
		Email:    "alex@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)

	resp, err := service.Login(context.Background(), dto.LoginRequest{
		Username: "alex",
		Password: "secret123",
	})
	require.NoError(t, err)

	claims, err := service.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, "alex", claims.Username)
}

func TestLoginWrongPassword(t *testing.T) {
	users := newUserRepoStub()
	service := newAuthServiceFixture(users, &authSettingsStub{})

	_, err := service.Register(context.Background(), dto.RegisterRequest{
		Username: "alex",
		Email:    "alex@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)

	_, err = service.Login(context.Background(), dto.LoginRequest{
		Username: "alex",
		Password: "wrong",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	users := newUserRepoStub()
	service := newAuthServiceFixture(users, &authSettingsStub{})

	resp, err := service.Register(context.Background(), dto.RegisterRequest{
		Username: "alex",
		Email:    "alex@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)

	other := NewAuthService(users, &authSettingsStub{}, nil, zap.NewNop(), AuthConfig{
		Secret:     "different-secret",
		Expiration: time.Hour,
	})
	_, err = other.ValidateToken(resp.Token)
	require.Error(t, err)
}
