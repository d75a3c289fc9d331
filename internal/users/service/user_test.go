package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"geobus/internal/users/repository"
	"geobus/internal/users/validator"
	"geobus/pkg/auth"
	"geobus/pkg/config"
	apperrors "geobus/pkg/errors"
	"geobus/pkg/logger"
	"geobus/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockTokenIssuer struct {
	issueFunc func(userID, email string) (string, error)
}

func (m *mockTokenIssuer) Issue(userID, email string) (string, error) {
	if m.issueFunc != nil {
		return m.issueFunc(userID, email)
	}
	return "token-" + userID, nil
}

func newTestService(t *testing.T, tokens TokenIssuer) (*userService, *repository.MemoryUserRepository) {
	t.Helper()
	v, err := validator.NewUserValidator()
	require.NoError(t, err)

	repo := repository.NewMemoryUserRepository()
	if tokens == nil {
		tokens = &mockTokenIssuer{}
	}
	cfg := &config.Config{Log: logger.NewNop()}
	return NewUserService(repo, v, tokens, cfg).(*userService), repo
}

func registerRequest() *model.RegisterRequest {
	return &model.RegisterRequest{
		Name:     "  Asha  Rao ",
		Email:    " Asha@Example.com ",
		Mobile:   "+91 98765 43210",
		Password: "secret1",
	}
}

func TestRegister(t *testing.T) {
	svc, repo := newTestService(t, nil)

	resp, err := svc.Register(context.Background(), registerRequest())
	require.NoError(t, err)

	assert.Equal(t, "token-"+resp.User.ID, resp.Token)
	assert.Equal(t, "Asha Rao", resp.User.Name)
	assert.Equal(t, "asha@example.com", resp.User.Email)
	assert.Equal(t, "9876543210", resp.User.Mobile)

	stored, err := repo.FindByEmail(context.Background(), "asha@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", stored.Password)
	assert.NoError(t, auth.CheckPassword(stored.Password, "secret1"))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.Register(context.Background(), registerRequest())
	require.NoError(t, err)

	req := registerRequest()
	req.Email = "ASHA@example.com"
	_, err = svc.Register(context.Background(), req)
	require.Error(t, err)
	assert.True(t, apperrors.HasReason(err, apperrors.ReasonUserExists))
	assert.Equal(t, "User already exists", apperrors.AsAppError(err).Message)
}

func TestRegister_ConcurrentSameEmail(t *testing.T) {
	svc, repo := newTestService(t, nil)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok, exists := 0, 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Register(context.Background(), registerRequest())
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if apperrors.HasReason(err, apperrors.ReasonUserExists) {
				exists++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, 7, exists)
	assert.Equal(t, 1, repo.Len())
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.RegisterRequest)
		field  string
	}{
		{"short password", func(r *model.RegisterRequest) { r.Password = "12345" }, "password"},
		{"missing name", func(r *model.RegisterRequest) { r.Name = "   " }, "name"},
		{"bad email", func(r *model.RegisterRequest) { r.Email = "asha" }, "email"},
		{"bad mobile", func(r *model.RegisterRequest) { r.Mobile = "12345" }, "mobile"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newTestService(t, nil)
			req := registerRequest()
			tt.mutate(req)

			_, err := svc.Register(context.Background(), req)
			require.Error(t, err)
			appErr := apperrors.AsAppError(err)
			assert.Equal(t, apperrors.CodeValidation, appErr.Code)
			assert.Equal(t, tt.field, appErr.Details["field"])
			assert.Equal(t, 0, repo.Len())
		})
	}
}

func TestLogin(t *testing.T) {
	svc, _ := newTestService(t, nil)
	registered, err := svc.Register(context.Background(), registerRequest())
	require.NoError(t, err)

	resp, err := svc.Login(context.Background(), &model.LoginRequest{Email: "ASHA@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, resp.User.ID)
	assert.NotEmpty(t, resp.Token)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc, _ := newTestService(t, nil)
	_, err := svc.Register(context.Background(), registerRequest())
	require.NoError(t, err)

	for _, req := range []*model.LoginRequest{
		{Email: "asha@example.com", Password: "wrong-pass"},
		{Email: "nobody@example.com", Password: "secret1"},
	} {
		_, err := svc.Login(context.Background(), req)
		require.Error(t, err)
		appErr := apperrors.AsAppError(err)
		assert.Equal(t, apperrors.CodeInvalidCredentials, appErr.Code)
		assert.Equal(t, "Invalid credentials", appErr.Message)
	}
}

func TestLogin_TokenFailure(t *testing.T) {
	svc, _ := newTestService(t, &mockTokenIssuer{
		issueFunc: func(string, string) (string, error) { return "", errors.New("signing failed") },
	})

	_, err := svc.Register(context.Background(), registerRequest())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInternal, apperrors.AsAppError(err).Code)
}

func TestFindByID(t *testing.T) {
	svc, _ := newTestService(t, nil)
	svc.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	registered, err := svc.Register(context.Background(), registerRequest())
	require.NoError(t, err)

	user, err := svc.FindByID(context.Background(), registered.User.ID)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), user.CreatedAt)

	_, err = svc.FindByID(context.Background(), "507f1f77bcf86cd799439011")
	assert.Equal(t, apperrors.CodeNotFound, apperrors.AsAppError(err).Code)
}
