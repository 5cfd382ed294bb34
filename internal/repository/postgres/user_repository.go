package postgres

import (
	"context"
	"errors"

	"AuthVaultPlatform/internal/domain"
	"AuthVaultPlatform/internal/repository"
	pkgerrors "AuthVaultPlatform/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository реализация репозитория пользователей для PostgreSQL
type UserRepository struct {
	*BaseRepository
}

// NewUserRepository создает новый экземпляр UserRepository
func NewUserRepository(pool *pgxpool.Pool) repository.UserRepository {
	return &UserRepository{BaseRepository: NewBaseRepository(pool)}
}

// Create сохраняет нового пользователя в базе данных.
// Уникальность (tenant_id, username) и (tenant_id, email) обеспечивается
// ограничениями схемы.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `INSERT INTO users (id, tenant_id, username, email, password_hash, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.Pool.Exec(ctx, query,
		user.ID,
		user.TenantID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt)

	if err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrInternal, "failed to create user")
	}

	return nil
}

// FindByID возвращает пользователя по его ID в рамках арендатора
func (r *UserRepository) FindByID(ctx context.Context, tenantID, id string) (*domain.User, error) {
	query := `SELECT id, tenant_id, username, email, password_hash, is_active, created_at, updated_at
		FROM users WHERE tenant_id = $1 AND id = $2`

	var user domain.User
	err := r.Pool.QueryRow(ctx, query, tenantID, id).Scan(
		&user.ID,
		&user.TenantID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrUserNotFound
		}
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal, "failed to get user by id")
	}

	return &user, nil
}

// FindByLogin возвращает пользователя по username или email в рамках
// арендатора. Отсутствие пользователя это мягкий результат (nil, nil),
// а не ошибка: вызывающий сам решает, как его репортить.
func (r *UserRepository) FindByLogin(ctx context.Context, tenantID, username, email string) (*domain.User, error) {
	query := `SELECT id, tenant_id, username, email, password_hash, is_active, created_at, updated_at
		FROM users WHERE tenant_id = $1 AND (($2 != '' AND username = $2) OR ($3 != '' AND email = $3))`

	var user domain.User
	err := r.Pool.QueryRow(ctx, query, tenantID, username, email).Scan(
		&user.ID,
		&user.TenantID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal, "failed to get user by login")
	}

	return &user, nil
}

// Update обновляет существующего пользователя
func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	query := `UPDATE users SET
		username = $3,
		email = $4,
		password_hash = $5,
		is_active = $6,
		updated_at = $7
	WHERE tenant_id = $1 AND id = $2`

	tag, err := r.Pool.Exec(ctx, query,
		user.TenantID,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.IsActive,
		user.UpdatedAt,
	)

	if err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrInternal, "failed to update user")
	}

	if tag.RowsAffected() == 0 {
		return repository.ErrUserNotFound
	}

	return nil
}
