package postgres

import (
	"context"
	"errors"
	"time"

	"AuthVaultPlatform/internal/domain"
	"AuthVaultPlatform/internal/repository"
	pkgerrors "AuthVaultPlatform/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SysAdminRepository реализация репозитория администраторов для PostgreSQL
type SysAdminRepository struct {
	*BaseRepository
}

// NewSysAdminRepository создает новый экземпляр SysAdminRepository
func NewSysAdminRepository(pool *pgxpool.Pool) repository.SysAdminRepository {
	return &SysAdminRepository{BaseRepository: NewBaseRepository(pool)}
}

// FindByUsername возвращает администратора по имени. Поиск выполняется
// по индексу на username; отсутствие администратора это мягкий результат
// (nil, nil), а не ошибка.
func (r *SysAdminRepository) FindByUsername(ctx context.Context, username string) (*domain.SysAdmin, error) {
	query := `SELECT id, username, password_hash, created_at, updated_at
		FROM sysadmins WHERE username = $1`

	var admin domain.SysAdmin
	err := r.Pool.QueryRow(ctx, query, username).Scan(
		&admin.ID,
		&admin.Username,
		&admin.PasswordHash,
		&admin.CreatedAt,
		&admin.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal, "failed to get sysadmin by username")
	}

	return &admin, nil
}

// UpdateUsername меняет имя администратора
func (r *SysAdminRepository) UpdateUsername(ctx context.Context, id, username string) error {
	query := `UPDATE sysadmins SET username = $2, updated_at = $3 WHERE id = $1`

	tag, err := r.Pool.Exec(ctx, query, id, username, time.Now())
	if err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrInternal, "failed to update sysadmin username")
	}

	if tag.RowsAffected() == 0 {
		return repository.ErrSysAdminNotFound
	}

	return nil
}

// UpdatePassword меняет хеш пароля администратора
func (r *SysAdminRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `UPDATE sysadmins SET password_hash = $2, updated_at = $3 WHERE id = $1`

	tag, err := r.Pool.Exec(ctx, query, id, passwordHash, time.Now())
	if err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrInternal, "failed to update sysadmin password")
	}

	if tag.RowsAffected() == 0 {
		return repository.ErrSysAdminNotFound
	}

	return nil
}
