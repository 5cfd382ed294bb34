package repository

import (
	"context"
	"errors"
	"time"

	"AuthVaultPlatform/internal/domain"
)

// Ошибки хранилища, общие для всех реализаций
var (
	// ErrTenantNotFound арендатор не найден
	ErrTenantNotFound = errors.New("tenant not found")
	// ErrUserNotFound пользователь не найден
	ErrUserNotFound = errors.New("user not found")
	// ErrSysAdminNotFound администратор не найден
	ErrSysAdminNotFound = errors.New("sysadmin not found")
)

// TenantRepository интерфейс для работы с арендаторами
type TenantRepository interface {
	Create(ctx context.Context, tenant *domain.Tenant) error
	FindByCode(ctx context.Context, code string) (*domain.Tenant, error)
	Update(ctx context.Context, tenant *domain.Tenant) error
}

// UserRepository интерфейс для работы с пользователями арендаторов
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, tenantID, id string) (*domain.User, error)
	// FindByLogin ищет пользователя по username или email в рамках арендатора.
	// Отсутствие пользователя не считается ошибкой: возвращается (nil, nil).
	FindByLogin(ctx context.Context, tenantID, username, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
}

// SysAdminRepository интерфейс для работы с системными администраторами
type SysAdminRepository interface {
	// FindByUsername ищет администратора по имени (индексированный поиск).
	// Отсутствие не считается ошибкой: возвращается (nil, nil).
	FindByUsername(ctx context.Context, username string) (*domain.SysAdmin, error)
	UpdateUsername(ctx context.Context, id, username string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// SessionLedger распределенный реестр живых сессий. Наличие ключа это
// единственный источник истины о том, что субъект залогинен для данного
// класса токена; отсутствие записи означает отзыв, даже для структурно
// валидного неистекшего токена. Просроченные записи удаляет само хранилище.
type SessionLedger interface {
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, bool, error)
	// Delete возвращает true, если ключ существовал: вызывающий различает
	// "разлогинен сейчас" и "уже был разлогинен"
	Delete(ctx context.Context, key string) (bool, error)
}
