package service

import (
	"context"
	"errors"
	"fmt"

	"AuthVaultPlatform/internal/domain"
	"AuthVaultPlatform/internal/events"
	"AuthVaultPlatform/internal/pkg/kdf"
	"AuthVaultPlatform/internal/pkg/password"
	"AuthVaultPlatform/internal/repository"
	"AuthVaultPlatform/internal/worker"
	"AuthVaultPlatform/pkg/logger"
	"AuthVaultPlatform/pkg/metrics"
)

// AdminSession результат аутентификации администратора. Token это
// соль деривации: сервер хранит производный ключ и промежуточный хеш,
// клиент предъявляет соль, и только их сочетание воспроизводит ключ.
type AdminSession struct {
	ID    string `json:"id"`
	Token string `json:"token"`
}

// AdminService интерфейс потока аутентификации системных администраторов
type AdminService interface {
	Authenticate(ctx context.Context, username, pass string) (*AdminSession, error)
	Logout(ctx context.Context, adminID string) error
	UpdateUsername(ctx context.Context, adminID, username string) error
	UpdatePassword(ctx context.Context, adminID, pass string) error
}

// adminService реализация AdminService
type adminService struct {
	adminRepository repository.SysAdminRepository
	ledger          repository.SessionLedger
	hasher          password.Hasher
	pool            *worker.Pool
	publisher       events.Publisher
	logger          logger.Logger
	metrics         *metrics.Metrics
}

// NewAdminService создает новый экземпляр AdminService
func NewAdminService(
	adminRepository repository.SysAdminRepository,
	ledger repository.SessionLedger,
	hasher password.Hasher,
	pool *worker.Pool,
	publisher events.Publisher,
	log logger.Logger,
	m *metrics.Metrics,
) AdminService {
	return &adminService{
		adminRepository: adminRepository,
		ledger:          ledger,
		hasher:          hasher,
		pool:            pool,
		publisher:       publisher,
		logger:          log,
		metrics:         m,
	}
}

// Authenticate проверяет учетные данные администратора и заводит
// эфемеральную сессию: производный ключ и промежуточный хеш уходят в
// реестр на 5 минут, соль возвращается клиенту как предъявительский токен.
func (s *adminService) Authenticate(ctx context.Context, username, pass string) (*AdminSession, error) {
	if username == "" || pass == "" {
		return nil, ErrIncompleteInput
	}

	admin, err := s.adminRepository.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find admin: %w", err)
	}
	if admin == nil {
		s.recordOperation("admin_authenticate", "not_found")
		return nil, ErrAdminNotFound
	}

	var passwordOK bool
	if err := s.pool.Do(ctx, "bcrypt_check", func() error {
		passwordOK = s.hasher.Check(pass, admin.PasswordHash)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to check admin password: %w", err)
	}
	if !passwordOK {
		s.recordOperation("admin_authenticate", "password_mismatch")
		return nil, ErrPasswordMismatch
	}

	salt, err := kdf.NewSalt()
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	// Промежуточный хеш связывает сессию с конкретной парой
	// username+password: смена любого из них обесценивает сессию
	var intermediate, derived string
	if err := s.pool.Do(ctx, "pbkdf2_derive", func() error {
		var hashErr error
		intermediate, hashErr = s.hasher.Hash(username + pass)
		if hashErr != nil {
			return hashErr
		}
		derived = kdf.DeriveKey(intermediate, salt)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to derive session key: %w", err)
	}

	if err := s.ledger.Put(ctx, domain.AdminPBKDFKey(admin.ID), derived, domain.AdminSessionTTL); err != nil {
		return nil, fmt.Errorf("failed to record derived key: %w", err)
	}
	if err := s.ledger.Put(ctx, domain.AdminHashKey(admin.ID), intermediate, domain.AdminSessionTTL); err != nil {
		return nil, fmt.Errorf("failed to record intermediate hash: %w", err)
	}

	s.recordOperation("admin_authenticate", "success")
	s.publish(ctx, events.EventAdminSignedIn, admin.ID)

	return &AdminSession{ID: admin.ID, Token: salt}, nil
}

// Logout завершает сессию администратора. ErrAlreadyLoggedOut только
// когда не было уже ни одной из записей; снятие хотя бы одной считается
// успешным выходом.
func (s *adminService) Logout(ctx context.Context, adminID string) error {
	if adminID == "" {
		return ErrIncompleteInput
	}

	pbkdfRemoved, err := s.ledger.Delete(ctx, domain.AdminPBKDFKey(adminID))
	if err != nil {
		return fmt.Errorf("failed to delete derived key: %w", err)
	}

	hashRemoved, err := s.ledger.Delete(ctx, domain.AdminHashKey(adminID))
	if err != nil {
		return fmt.Errorf("failed to delete intermediate hash: %w", err)
	}

	if !pbkdfRemoved && !hashRemoved {
		s.recordOperation("admin_logout", "already_logged_out")
		return ErrAlreadyLoggedOut
	}

	s.recordOperation("admin_logout", "success")
	s.publish(ctx, events.EventAdminLoggedOut, adminID)
	return nil
}

// UpdateUsername меняет имя администратора
func (s *adminService) UpdateUsername(ctx context.Context, adminID, username string) error {
	if adminID == "" || username == "" {
		return ErrIncompleteInput
	}

	if err := s.adminRepository.UpdateUsername(ctx, adminID, username); err != nil {
		if errors.Is(err, repository.ErrSysAdminNotFound) {
			return ErrAdminNotFound
		}
		return fmt.Errorf("failed to update admin username: %w", err)
	}

	s.recordOperation("admin_update_username", "success")
	return nil
}

// UpdatePassword меняет пароль администратора
func (s *adminService) UpdatePassword(ctx context.Context, adminID, pass string) error {
	if adminID == "" || pass == "" {
		return ErrIncompleteInput
	}

	if !s.hasher.Validate(pass) {
		return ErrWeakPassword
	}

	var passwordHash string
	if err := s.pool.Do(ctx, "bcrypt_hash", func() error {
		var hashErr error
		passwordHash, hashErr = s.hasher.Hash(pass)
		return hashErr
	}); err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	if err := s.adminRepository.UpdatePassword(ctx, adminID, passwordHash); err != nil {
		if errors.Is(err, repository.ErrSysAdminNotFound) {
			return ErrAdminNotFound
		}
		return fmt.Errorf("failed to update admin password: %w", err)
	}

	s.recordOperation("admin_update_password", "success")
	return nil
}

// recordOperation пишет исход операции в метрики, если они подключены
func (s *adminService) recordOperation(operation, result string) {
	if s.metrics != nil {
		s.metrics.RecordAuthOperation(operation, result)
	}
}

// publish отправляет событие best-effort
func (s *adminService) publish(ctx context.Context, eventType, adminID string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, eventType, "", adminID); err != nil {
		s.logger.Warn("Admin event publication failed",
			logger.String("event_type", eventType),
			logger.Error(err))
	}
}
