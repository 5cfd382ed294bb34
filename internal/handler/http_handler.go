package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"AuthVaultPlatform/internal/domain"
	"AuthVaultPlatform/internal/service"
	pkgerrors "AuthVaultPlatform/pkg/errors"
	"AuthVaultPlatform/pkg/logger"
)

// TenantAccessFunc извлекает разрешенного арендатора из контекста запроса.
// Подставляется из middleware, чтобы не замыкать пакеты друг на друга.
type TenantAccessFunc func(r *http.Request) (domain.TenantAccess, bool)

// HTTPHandler обрабатывает HTTP запросы сервиса аутентификации
type HTTPHandler struct {
	authService  service.AuthService
	adminService service.AdminService
	tenantAccess TenantAccessFunc
	logger       logger.Logger
}

// NewHTTPHandler создает новый HTTP обработчик
func NewHTTPHandler(authService service.AuthService, adminService service.AdminService, tenantAccess TenantAccessFunc, log logger.Logger) *HTTPHandler {
	return &HTTPHandler{
		authService:  authService,
		adminService: adminService,
		tenantAccess: tenantAccess,
		logger:       log,
	}
}

// RegisterRoutes регистрирует маршруты пользовательского и
// административного потоков. Пользовательские маршруты предполагают,
// что снаружи навешан TenantResolver middleware.
func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux, tenantMiddleware func(http.Handler) http.Handler) {
	wrap := func(fn http.HandlerFunc) http.Handler {
		return tenantMiddleware(fn)
	}

	mux.Handle("POST /api/v1/{app}/auth/signup", wrap(h.handleSignup))
	mux.Handle("POST /api/v1/{app}/auth/signin", wrap(h.handleSignin))
	mux.Handle("POST /api/v1/{app}/auth/refresh", wrap(h.handleRefresh))
	mux.Handle("POST /api/v1/{app}/auth/logout", wrap(h.handleLogout))

	mux.HandleFunc("POST /api/v1/sysadmin/authenticate", h.handleAdminAuthenticate)
	mux.HandleFunc("POST /api/v1/sysadmin/logout", h.handleAdminLogout)
	mux.HandleFunc("PATCH /api/v1/sysadmin/username", h.handleAdminUpdateUsername)
	mux.HandleFunc("PATCH /api/v1/sysadmin/password", h.handleAdminUpdatePassword)
}

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *HTTPHandler) handleSignup(w http.ResponseWriter, r *http.Request) {
	access, ok := h.tenantAccess(r)
	if !ok {
		Failed(w, "No application selected.")
		return
	}

	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		IncompleteData(w, "Required username, email, password")
		return
	}

	result, err := h.authService.Signup(r.Context(), access, req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrIncompleteInput):
			IncompleteData(w, "Required username, email, password")
		case errors.Is(err, service.ErrWeakPassword):
			Failed(w, "Password does not meet complexity requirements.")
		case errors.Is(err, service.ErrUserAlreadyExists):
			Failed(w, "User already exists.")
		default:
			h.internalError(w, r, "signup", err)
		}
		return
	}

	Success(w, result, "Successfully added.")
}

type signinRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *HTTPHandler) handleSignin(w http.ResponseWriter, r *http.Request) {
	access, ok := h.tenantAccess(r)
	if !ok {
		Failed(w, "No application selected.")
		return
	}

	var req signinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		IncompleteData(w, "Required username or email and password")
		return
	}

	login := req.Username
	if login == "" {
		login = req.Email
	}

	pair, err := h.authService.Signin(r.Context(), access, login, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrIncompleteInput):
			IncompleteData(w, "Required username or email and password")
		case errors.Is(err, service.ErrUserNotFound):
			// Мягкий исход: success-образный конверт с пустыми данными
			Success(w, nil, "User not found")
		case errors.Is(err, service.ErrPasswordMismatch):
			Success(w, false, "Password incorrect")
		case errors.Is(err, service.ErrAccountDeactivated):
			Unauthorized(w, "Account is deactivated.")
		case errors.Is(err, service.ErrSecretUnavailable):
			Failed(w, "Token secret decrypt failed.")
		case errors.Is(err, service.ErrDecryptFailure):
			Error(w, "Token secret decrypt failed.")
		default:
			h.internalError(w, r, "signin", err)
		}
		return
	}

	Success(w, pair, "")
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *HTTPHandler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	access, ok := h.tenantAccess(r)
	if !ok {
		Failed(w, "No application selected.")
		return
	}

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		IncompleteData(w, "Required refreshToken in body.")
		return
	}

	accessToken, err := h.authService.Refresh(r.Context(), access, req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrIncompleteInput):
			IncompleteData(w, "Required refreshToken in body.")
		case errors.Is(err, service.ErrTokenInvalid):
			Unauthorized(w, "Invalid or expired refresh token.")
		case errors.Is(err, service.ErrSessionRevoked):
			Unauthorized(w, "Cannot refresh the token as you are already logged-out")
		case errors.Is(err, service.ErrSecretUnavailable):
			Failed(w, "Token secret decrypt failed.")
		case errors.Is(err, service.ErrDecryptFailure):
			Error(w, "Token secret decrypt failed.")
		default:
			h.internalError(w, r, "refresh", err)
		}
		return
	}

	Success(w, map[string]string{"accessToken": accessToken}, "Refresh Token Success")
}

func (h *HTTPHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	access, ok := h.tenantAccess(r)
	if !ok {
		Failed(w, "No application selected.")
		return
	}

	accessToken := r.Header.Get("authorization")
	if accessToken == "" {
		Unauthorized(w, "Required authorization.")
		return
	}

	err := h.authService.Logout(r.Context(), access, accessToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTokenInvalid):
			Unauthorized(w, "Token expired. Signin again.")
		case errors.Is(err, service.ErrSessionRevoked):
			Unauthorized(w, "Token invalid. Signin again.")
		case errors.Is(err, service.ErrAlreadyLoggedOut):
			Failed(w, "You are already logged-out")
		case errors.Is(err, service.ErrSecretUnavailable):
			Failed(w, "Token secret decrypt failed.")
		case errors.Is(err, service.ErrDecryptFailure):
			Error(w, "Token secret decrypt failed.")
		default:
			h.internalError(w, r, "logout", err)
		}
		return
	}

	Success(w, nil, "You are now successfully logged-out")
}

type adminAuthenticateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *HTTPHandler) handleAdminAuthenticate(w http.ResponseWriter, r *http.Request) {
	var req adminAuthenticateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		IncompleteData(w, "Required username, password")
		return
	}

	session, err := h.adminService.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrIncompleteInput):
			IncompleteData(w, "Required username, password")
		case errors.Is(err, service.ErrAdminNotFound), errors.Is(err, service.ErrPasswordMismatch):
			// Исходы не различаются наружу
			Failed(w, "Username or Password is incorrect.")
		default:
			h.internalError(w, r, "admin_authenticate", err)
		}
		return
	}

	Success(w, map[string]string{"userId": session.ID, "token": session.Token}, "")
}

func (h *HTTPHandler) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	adminID := r.Header.Get("user-id")
	if adminID == "" {
		IncompleteData(w, "Required user-id header.")
		return
	}

	if err := h.adminService.Logout(r.Context(), adminID); err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadyLoggedOut):
			NothingAffected(w, "You are not logged-in.")
		default:
			h.internalError(w, r, "admin_logout", err)
		}
		return
	}

	Success(w, nil, "You are now successfully logged-out.")
}

type adminUpdateUsernameRequest struct {
	Username string `json:"username"`
}

func (h *HTTPHandler) handleAdminUpdateUsername(w http.ResponseWriter, r *http.Request) {
	adminID := r.Header.Get("user-id")
	if adminID == "" {
		IncompleteData(w, "Required user-id header.")
		return
	}

	var req adminUpdateUsernameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
		IncompleteData(w, "Required username from body.")
		return
	}

	if err := h.adminService.UpdateUsername(r.Context(), adminID, req.Username); err != nil {
		switch {
		case errors.Is(err, service.ErrAdminNotFound):
			NothingAffected(w, "No system administrator updated.")
		default:
			h.internalError(w, r, "admin_update_username", err)
		}
		return
	}

	Success(w, true, "")
}

type adminUpdatePasswordRequest struct {
	Password string `json:"password"`
}

func (h *HTTPHandler) handleAdminUpdatePassword(w http.ResponseWriter, r *http.Request) {
	adminID := r.Header.Get("user-id")
	if adminID == "" {
		IncompleteData(w, "Required user-id header.")
		return
	}

	var req adminUpdatePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Password == "" {
		IncompleteData(w, "Required password from body.")
		return
	}

	if err := h.adminService.UpdatePassword(r.Context(), adminID, req.Password); err != nil {
		switch {
		case errors.Is(err, service.ErrWeakPassword):
			Failed(w, "Password does not meet complexity requirements.")
		case errors.Is(err, service.ErrAdminNotFound):
			NothingAffected(w, "No system administrator updated.")
		default:
			h.internalError(w, r, "admin_update_password", err)
		}
		return
	}

	Success(w, true, "")
}

// internalError скрывает детали аварии от клиента, но логирует их.
// Ошибки инфраструктуры приходят обернутыми в pkgerrors.Error: статус
// ответа берется из кода ошибки, наружу уходит только ее сообщение.
func (h *HTTPHandler) internalError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	h.logger.Error("Request failed",
		logger.String("operation", operation),
		logger.String("path", r.URL.Path),
		logger.Error(err))

	var customErr *pkgerrors.Error
	if errors.As(err, &customErr) {
		writeEnvelope(w, customErr.HTTPStatus(), Envelope{Success: false, Message: customErr.Message + "."})
		return
	}

	Error(w, "Internal server error.")
}
