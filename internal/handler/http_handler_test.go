package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"AuthVaultPlatform/internal/domain"
	"AuthVaultPlatform/internal/handler"
	"AuthVaultPlatform/internal/service"
	pkgerrors "AuthVaultPlatform/pkg/errors"
	"AuthVaultPlatform/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockAuthService для тестов
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Signup(ctx context.Context, access domain.TenantAccess, username, email, pass string) (*service.SignupResult, error) {
	args := m.Called(ctx, access, username, email, pass)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SignupResult), args.Error(1)
}

func (m *MockAuthService) Signin(ctx context.Context, access domain.TenantAccess, login, pass string) (*service.TokenPair, error) {
	args := m.Called(ctx, access, login, pass)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TokenPair), args.Error(1)
}

func (m *MockAuthService) Refresh(ctx context.Context, access domain.TenantAccess, refreshToken string) (string, error) {
	args := m.Called(ctx, access, refreshToken)
	return args.String(0), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, access domain.TenantAccess, accessToken string) error {
	args := m.Called(ctx, access, accessToken)
	return args.Error(0)
}

// MockAdminService для тестов
type MockAdminService struct {
	mock.Mock
}

func (m *MockAdminService) Authenticate(ctx context.Context, username, pass string) (*service.AdminSession, error) {
	args := m.Called(ctx, username, pass)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AdminSession), args.Error(1)
}

func (m *MockAdminService) Logout(ctx context.Context, adminID string) error {
	args := m.Called(ctx, adminID)
	return args.Error(0)
}

func (m *MockAdminService) UpdateUsername(ctx context.Context, adminID, username string) error {
	args := m.Called(ctx, adminID, username)
	return args.Error(0)
}

func (m *MockAdminService) UpdatePassword(ctx context.Context, adminID, pass string) error {
	args := m.Called(ctx, adminID, pass)
	return args.Error(0)
}

var testAccess = domain.TenantAccess{
	Tenant: &domain.Tenant{ID: "t1", Code: "T1", IsActive: true},
	APIKey: "K1",
}

func newTestMux(t *testing.T, auth *MockAuthService, admin *MockAdminService) *http.ServeMux {
	t.Helper()

	log, err := logger.NewLogger("development", "error", "handler-test")
	require.NoError(t, err)

	accessFn := func(r *http.Request) (domain.TenantAccess, bool) {
		return testAccess, true
	}

	h := handler.NewHTTPHandler(auth, admin, accessFn, log)

	mux := http.NewServeMux()
	// В тестах обработчиков арендатор считается уже разрешенным
	passthrough := func(next http.Handler) http.Handler { return next }
	h.RegisterRoutes(mux, passthrough)

	return mux
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) handler.Envelope {
	t.Helper()
	var env handler.Envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

func TestHandleSignin_Success(t *testing.T) {
	auth := new(MockAuthService)
	admin := new(MockAdminService)
	mux := newTestMux(t, auth, admin)

	pair := &service.TokenPair{ID: "u1", AccessToken: "at", RefreshToken: "rt"}
	auth.On("Signin", mock.Anything, testAccess, "alice", "secret123").Return(pair, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/T1/auth/signin",
		strings.NewReader(`{"username":"alice","password":"secret123"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)

	data := env.Data.(map[string]interface{})
	assert.Equal(t, "u1", data["id"])
	assert.Equal(t, "at", data["accessToken"])
	assert.Equal(t, "rt", data["refreshToken"])
}

func TestHandleSignin_EmailAsLogin(t *testing.T) {
	auth := new(MockAuthService)
	admin := new(MockAdminService)
	mux := newTestMux(t, auth, admin)

	pair := &service.TokenPair{ID: "u1", AccessToken: "at", RefreshToken: "rt"}
	auth.On("Signin", mock.Anything, testAccess, "alice@example.com", "secret123").Return(pair, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/T1/auth/signin",
		strings.NewReader(`{"email":"alice@example.com","password":"secret123"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	auth.AssertExpectations(t)
}

func TestHandleSignin_SoftFailures(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantSuccess bool
		wantMessage string
	}{
		{"user not found", service.ErrUserNotFound, http.StatusOK, true, "User not found"},
		{"password incorrect", service.ErrPasswordMismatch, http.StatusOK, true, "Password incorrect"},
		{"deactivated", service.ErrAccountDeactivated, http.StatusUnauthorized, false, "Account is deactivated."},
		{"secret unavailable", service.ErrSecretUnavailable, http.StatusOK, false, "Token secret decrypt failed."},
		{"decrypt failure", service.ErrDecryptFailure, http.StatusInternalServerError, false, "Token secret decrypt failed."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := new(MockAuthService)
			admin := new(MockAdminService)
			mux := newTestMux(t, auth, admin)

			auth.On("Signin", mock.Anything, testAccess, "alice", "secret123").
				Return(nil, tt.err)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/T1/auth/signin",
				strings.NewReader(`{"username":"alice","password":"secret123"}`))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			env := decodeEnvelope(t, rec)
			assert.Equal(t, tt.wantSuccess, env.Success)
			assert.Equal(t, tt.wantMessage, env.Message)
		})
	}
}

func TestHandleRefresh(t *testing.T) {
	auth := new(MockAuthService)
	admin := new(MockAdminService)
	mux := newTestMux(t, auth, admin)

	auth.On("Refresh", mock.Anything, testAccess, "rt").Return("new-at", nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/T1/auth/refresh",
		strings.NewReader(`{"refreshToken":"rt"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	assert.Equal(t, "new-at", env.Data.(map[string]interface{})["accessToken"])
}

func TestHandleRefresh_Revoked(t *testing.T) {
	auth := new(MockAuthService)
	admin := new(MockAdminService)
	mux := newTestMux(t, auth, admin)

	auth.On("Refresh", mock.Anything, testAccess, "rt").
		Return("", service.ErrSessionRevoked)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/T1/auth/refresh",
		strings.NewReader(`{"refreshToken":"rt"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.Contains(t, env.Message, "already logged-out")
}

func TestHandleLogout(t *testing.T) {
	auth := new(MockAuthService)
	admin := new(MockAdminService)
	mux := newTestMux(t, auth, admin)

	auth.On("Logout", mock.Anything, testAccess, "at").Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/T1/auth/logout", nil)
	req.Header.Set("authorization", "at")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
}

func TestHandleLogout_MissingAuthorization(t *testing.T) {
	auth := new(MockAuthService)
	admin := new(MockAdminService)
	mux := newTestMux(t, auth, admin)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/T1/auth/logout", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	auth.AssertNotCalled(t, "Logout")
}

func TestHandleLogout_AlreadyLoggedOut(t *testing.T) {
	auth := new(MockAuthService)
	admin := new(MockAdminService)
	mux := newTestMux(t, auth, admin)

	auth.On("Logout", mock.Anything, testAccess, "at").Return(service.ErrAlreadyLoggedOut)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/T1/auth/logout", nil)
	req.Header.Set("authorization", "at")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.Contains(t, env.Message, "already logged-out")
}

func TestHandleSignup(t *testing.T) {
	auth := new(MockAuthService)
	admin := new(MockAdminService)
	mux := newTestMux(t, auth, admin)

	result := &service.SignupResult{ID: "u2", Username: "carol", Email: "carol@example.com"}
	auth.On("Signup", mock.Anything, testAccess, "carol", "carol@example.com", "Secret123").
		Return(result, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/T1/auth/signup",
		strings.NewReader(`{"username":"carol","email":"carol@example.com","password":"Secret123"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	assert.Equal(t, "Successfully added.", env.Message)
}

func TestHandleAdminAuthenticate(t *testing.T) {
	auth := new(MockAuthService)
	admin := new(MockAdminService)
	mux := newTestMux(t, auth, admin)

	session := &service.AdminSession{ID: "a1", Token: "salt-token"}
	admin.On("Authenticate", mock.Anything, "root", "Adm1nPass").Return(session, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sysadmin/authenticate",
		strings.NewReader(`{"username":"root","password":"Adm1nPass"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)

	data := env.Data.(map[string]interface{})
	assert.Equal(t, "a1", data["userId"])
	assert.Equal(t, "salt-token", data["token"])
}

func TestHandleAdminAuthenticate_BadCredentials(t *testing.T) {
	auth := new(MockAuthService)
	admin := new(MockAdminService)
	mux := newTestMux(t, auth, admin)

	// Несуществующий администратор и неверный пароль не различаются
	admin.On("Authenticate", mock.Anything, "root", "wrong").
		Return(nil, service.ErrPasswordMismatch)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sysadmin/authenticate",
		strings.NewReader(`{"username":"root","password":"wrong"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, "Username or Password is incorrect.", env.Message)
}

func TestHandleAdminLogout(t *testing.T) {
	auth := new(MockAuthService)
	admin := new(MockAdminService)
	mux := newTestMux(t, auth, admin)

	admin.On("Logout", mock.Anything, "a1").Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sysadmin/logout", nil)
	req.Header.Set("user-id", "a1")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
}

func TestHandleAdminLogout_NotLoggedIn(t *testing.T) {
	auth := new(MockAuthService)
	admin := new(MockAdminService)
	mux := newTestMux(t, auth, admin)

	admin.On("Logout", mock.Anything, "a1").Return(service.ErrAlreadyLoggedOut)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sysadmin/logout", nil)
	req.Header.Set("user-id", "a1")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, "You are not logged-in.", env.Message)
}

func TestHandleAdminUpdatePassword(t *testing.T) {
	auth := new(MockAuthService)
	admin := new(MockAdminService)
	mux := newTestMux(t, auth, admin)

	admin.On("UpdatePassword", mock.Anything, "a1", "NewAdm1nPass").Return(nil)

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/sysadmin/password",
		strings.NewReader(`{"password":"NewAdm1nPass"}`))
	req.Header.Set("user-id", "a1")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	admin.AssertExpectations(t)
}

func TestHandleAdminUpdateUsername_MissingBody(t *testing.T) {
	auth := new(MockAuthService)
	admin := new(MockAdminService)
	mux := newTestMux(t, auth, admin)

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/sysadmin/username",
		strings.NewReader(`{}`))
	req.Header.Set("user-id", "a1")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	admin.AssertNotCalled(t, "UpdateUsername")
}

func TestInternalError_ClassifiesInfrastructureFailures(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{
			name: "wrapped internal error",
			err: fmt.Errorf("failed to find user: %w",
				pkgerrors.Wrap(fmt.Errorf("connection refused"), pkgerrors.ErrInternal, "failed to get user by login")),
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "failed to get user by login.",
		},
		{
			name:       "conflict code maps to 409",
			err:        pkgerrors.New(pkgerrors.ErrConflict, "user record version conflict"),
			wantStatus: http.StatusConflict,
			wantMsg:    "user record version conflict.",
		},
		{
			name:       "unclassified error stays generic 500",
			err:        fmt.Errorf("unexpected failure"),
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "Internal server error.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := new(MockAuthService)
			admin := new(MockAdminService)
			mux := newTestMux(t, auth, admin)

			auth.On("Signin", mock.Anything, testAccess, "alice", "secret123").Return(nil, tt.err)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/T1/auth/signin",
				strings.NewReader(`{"username":"alice","password":"secret123"}`))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			env := decodeEnvelope(t, rec)
			assert.False(t, env.Success)
			assert.Equal(t, tt.wantMsg, env.Message)
		})
	}
}
