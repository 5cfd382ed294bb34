package service

import (
	"context"
	"fmt"
	"time"

	"AuthVaultPlatform/internal/domain"
	"AuthVaultPlatform/internal/events"
	"AuthVaultPlatform/internal/pkg/password"
	"AuthVaultPlatform/internal/pkg/secrets"
	"AuthVaultPlatform/internal/pkg/token"
	"AuthVaultPlatform/internal/repository"
	"AuthVaultPlatform/internal/worker"
	"AuthVaultPlatform/pkg/logger"
	"AuthVaultPlatform/pkg/metrics"

	"github.com/google/uuid"
)

// TokenPair результат успешного входа
type TokenPair struct {
	ID           string `json:"id"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// SignupResult результат регистрации
type SignupResult struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// AuthService интерфейс потока аутентификации пользователей арендаторов.
// Арендатор к этому моменту уже разрешен (middleware), его секреты
// передаются по значению в access и живут только в рамках запроса.
type AuthService interface {
	Signup(ctx context.Context, access domain.TenantAccess, username, email, pass string) (*SignupResult, error)
	Signin(ctx context.Context, access domain.TenantAccess, login, pass string) (*TokenPair, error)
	Refresh(ctx context.Context, access domain.TenantAccess, refreshToken string) (string, error)
	Logout(ctx context.Context, access domain.TenantAccess, accessToken string) error
}

// Service реализация AuthService
type Service struct {
	userRepository repository.UserRepository
	ledger         repository.SessionLedger
	cipher         *secrets.Cipher
	hasher         password.Hasher
	codec          token.Codec
	pool           *worker.Pool
	publisher      events.Publisher
	logger         logger.Logger
	metrics        *metrics.Metrics

	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewAuthService создает новый экземпляр AuthService
func NewAuthService(
	userRepository repository.UserRepository,
	ledger repository.SessionLedger,
	cipher *secrets.Cipher,
	hasher password.Hasher,
	codec token.Codec,
	pool *worker.Pool,
	publisher events.Publisher,
	log logger.Logger,
	m *metrics.Metrics,
	accessTTL, refreshTTL time.Duration,
) AuthService {
	if accessTTL <= 0 {
		accessTTL = domain.AccessTokenTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = domain.RefreshTokenTTL
	}
	return &Service{
		userRepository: userRepository,
		ledger:         ledger,
		cipher:         cipher,
		hasher:         hasher,
		codec:          codec,
		pool:           pool,
		publisher:      publisher,
		logger:         log,
		metrics:        m,
		accessTTL:      accessTTL,
		refreshTTL:     refreshTTL,
	}
}

// resolveKeyMaterial расшифровывает оба подписывающих секрета арендатора
// предъявленным API ключом. Любая ошибка расшифровки схлопывается в
// ErrDecryptFailure; пустой секрет считается конфигурационной аварией
// ErrSecretUnavailable, отличимая от ошибок учетных данных.
// Результат передается по значению и не переживает запрос.
func (s *Service) resolveKeyMaterial(ctx context.Context, access domain.TenantAccess) (domain.TenantKeyMaterial, error) {
	var material domain.TenantKeyMaterial

	err := s.pool.Do(ctx, "scrypt_decrypt", func() error {
		accessSecret, err := s.cipher.Decrypt(access.Tenant.AccessSecretEncrypted, access.APIKey)
		if err != nil {
			return err
		}
		refreshSecret, err := s.cipher.Decrypt(access.Tenant.RefreshSecretEncrypted, access.APIKey)
		if err != nil {
			return err
		}
		material.AccessSecret = accessSecret
		material.RefreshSecret = refreshSecret
		return nil
	})
	if err != nil {
		s.recordOperation("decrypt_secrets", "failure")
		return domain.TenantKeyMaterial{}, ErrDecryptFailure
	}

	if material.AccessSecret == "" || material.RefreshSecret == "" {
		s.recordOperation("decrypt_secrets", "empty")
		return domain.TenantKeyMaterial{}, ErrSecretUnavailable
	}

	return material, nil
}

// Signup регистрирует нового пользователя арендатора
func (s *Service) Signup(ctx context.Context, access domain.TenantAccess, username, email, pass string) (*SignupResult, error) {
	if username == "" || email == "" || pass == "" {
		return nil, ErrIncompleteInput
	}

	if !s.hasher.Validate(pass) {
		return nil, ErrWeakPassword
	}

	existing, err := s.userRepository.FindByLogin(ctx, access.Tenant.ID, username, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, ErrUserAlreadyExists
	}

	var passwordHash string
	if err := s.pool.Do(ctx, "bcrypt_hash", func() error {
		var hashErr error
		passwordHash, hashErr = s.hasher.Hash(pass)
		return hashErr
	}); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.New().String(),
		TenantID:     access.Tenant.ID,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepository.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.recordOperation("signup", "success")
	s.publish(ctx, events.EventUserSignedUp, access.Tenant.Code, user.ID)

	return &SignupResult{ID: user.ID, Username: user.Username, Email: user.Email}, nil
}

// Signin аутентифицирует пользователя и выдает пару токенов.
// Отсутствие пользователя и неверный пароль это мягкие исходы
// (ErrUserNotFound / ErrPasswordMismatch), их репортинг решает HTTP слой.
func (s *Service) Signin(ctx context.Context, access domain.TenantAccess, login, pass string) (*TokenPair, error) {
	if login == "" || pass == "" {
		return nil, ErrIncompleteInput
	}

	user, err := s.userRepository.FindByLogin(ctx, access.Tenant.ID, login, login)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		s.recordOperation("signin", "user_not_found")
		return nil, ErrUserNotFound
	}

	if !user.IsActive {
		s.recordOperation("signin", "deactivated")
		return nil, ErrAccountDeactivated
	}

	var passwordOK bool
	if err := s.pool.Do(ctx, "bcrypt_check", func() error {
		passwordOK = s.hasher.Check(pass, user.PasswordHash)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to check password: %w", err)
	}
	if !passwordOK {
		s.recordOperation("signin", "password_mismatch")
		return nil, ErrPasswordMismatch
	}

	material, err := s.resolveKeyMaterial(ctx, access)
	if err != nil {
		return nil, err
	}

	claims := token.Claims{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
	}

	accessToken, err := s.codec.Issue(claims, material.AccessSecret, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	refreshToken, err := s.codec.Issue(claims, material.RefreshSecret, s.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}

	if err := s.ledger.Put(ctx, domain.AccessTokenKey(user.ID), accessToken, s.accessTTL); err != nil {
		return nil, fmt.Errorf("failed to record access session: %w", err)
	}
	if err := s.ledger.Put(ctx, domain.RefreshTokenKey(user.ID), refreshToken, s.refreshTTL); err != nil {
		return nil, fmt.Errorf("failed to record refresh session: %w", err)
	}

	s.recordOperation("signin", "success")
	s.publish(ctx, events.EventUserSignedIn, access.Tenant.Code, user.ID)

	return &TokenPair{ID: user.ID, AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Refresh проверяет refresh токен и выдает новый access токен.
// Криптографически валидный токен без записи в реестре означает явно
// завершенную сессию: ErrSessionRevoked. Запись access токена
// перезаводится со свежим TTL.
func (s *Service) Refresh(ctx context.Context, access domain.TenantAccess, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", ErrIncompleteInput
	}

	material, err := s.resolveKeyMaterial(ctx, access)
	if err != nil {
		return "", err
	}

	claims, err := s.codec.Verify(refreshToken, material.RefreshSecret)
	if err != nil {
		s.recordOperation("refresh", "token_invalid")
		return "", ErrTokenInvalid
	}

	_, present, err := s.ledger.Get(ctx, domain.RefreshTokenKey(claims.ID))
	if err != nil {
		return "", fmt.Errorf("failed to check refresh session: %w", err)
	}

	state := domain.ResolveSessionState(true, present)
	if state == domain.SessionRevoked {
		s.recordOperation("refresh", "revoked")
		return "", ErrSessionRevoked
	}

	// Переносим только субъектные клеймы; iat/exp выставит кодек заново
	fresh := token.Claims{
		ID:       claims.ID,
		Username: claims.Username,
		Email:    claims.Email,
	}

	accessToken, err := s.codec.Issue(fresh, material.AccessSecret, s.accessTTL)
	if err != nil {
		return "", fmt.Errorf("failed to issue access token: %w", err)
	}

	if err := s.ledger.Put(ctx, domain.AccessTokenKey(claims.ID), accessToken, s.accessTTL); err != nil {
		return "", fmt.Errorf("failed to record access session: %w", err)
	}

	s.recordOperation("refresh", "success")
	s.publish(ctx, events.EventUserRefreshed, access.Tenant.Code, claims.ID)

	return accessToken, nil
}

// Logout завершает сессию по предъявленному access токену. Валидный
// токен без живой access записи означает уже завершенную сессию
// (ErrSessionRevoked). Обе записи реестра удаляются параллельно;
// успех, если исчезла хотя бы одна, иначе ErrAlreadyLoggedOut.
// Повторный вызов безопасен.
func (s *Service) Logout(ctx context.Context, access domain.TenantAccess, accessToken string) error {
	if accessToken == "" {
		return ErrIncompleteInput
	}

	material, err := s.resolveKeyMaterial(ctx, access)
	if err != nil {
		return err
	}

	claims, err := s.codec.Verify(accessToken, material.AccessSecret)
	if err != nil {
		s.recordOperation("logout", "token_invalid")
		return ErrTokenInvalid
	}

	_, present, err := s.ledger.Get(ctx, domain.AccessTokenKey(claims.ID))
	if err != nil {
		return fmt.Errorf("failed to check access session: %w", err)
	}
	if domain.ResolveSessionState(true, present) == domain.SessionRevoked {
		s.recordOperation("logout", "revoked")
		return ErrSessionRevoked
	}

	type deletion struct {
		removed bool
		err     error
	}

	results := make(chan deletion, 2)
	for _, key := range []string{domain.AccessTokenKey(claims.ID), domain.RefreshTokenKey(claims.ID)} {
		go func(key string) {
			removed, err := s.ledger.Delete(ctx, key)
			results <- deletion{removed: removed, err: err}
		}(key)
	}

	var removedAny bool
	var lastErr error
	for i := 0; i < 2; i++ {
		res := <-results
		if res.err != nil {
			lastErr = res.err
		}
		if res.removed {
			removedAny = true
		}
	}

	if removedAny {
		s.recordOperation("logout", "success")
		s.publish(ctx, events.EventUserLoggedOut, access.Tenant.Code, claims.ID)
		return nil
	}

	if lastErr != nil {
		return fmt.Errorf("failed to delete session entries: %w", lastErr)
	}

	s.recordOperation("logout", "already_logged_out")
	return ErrAlreadyLoggedOut
}

// recordOperation пишет исход операции в метрики, если они подключены
func (s *Service) recordOperation(operation, result string) {
	if s.metrics != nil {
		s.metrics.RecordAuthOperation(operation, result)
	}
}

// publish отправляет событие best-effort: ошибка публикации не должна
// ломать уже завершившуюся операцию аутентификации
func (s *Service) publish(ctx context.Context, eventType, tenantCode, subjectID string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, eventType, tenantCode, subjectID); err != nil {
		s.logger.Warn("Auth event publication failed",
			logger.String("event_type", eventType),
			logger.Error(err))
	}
}
