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

// TenantRepository реализация репозитория арендаторов для PostgreSQL
type TenantRepository struct {
	*BaseRepository
}

// NewTenantRepository создает новый экземпляр TenantRepository
func NewTenantRepository(pool *pgxpool.Pool) repository.TenantRepository {
	return &TenantRepository{BaseRepository: NewBaseRepository(pool)}
}

// Create сохраняет нового арендатора в базе данных
func (r *TenantRepository) Create(ctx context.Context, tenant *domain.Tenant) error {
	query := `INSERT INTO tenants (id, code, name, api_key_hash, access_secret_encrypted, refresh_secret_encrypted, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.Pool.Exec(ctx, query,
		tenant.ID,
		tenant.Code,
		tenant.Name,
		tenant.APIKeyHash,
		tenant.AccessSecretEncrypted,
		tenant.RefreshSecretEncrypted,
		tenant.IsActive,
		tenant.CreatedAt,
		tenant.UpdatedAt)

	if err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrInternal, "failed to create tenant")
	}

	return nil
}

// FindByCode возвращает арендатора по его уникальному коду
func (r *TenantRepository) FindByCode(ctx context.Context, code string) (*domain.Tenant, error) {
	query := `SELECT id, code, name, api_key_hash, access_secret_encrypted, refresh_secret_encrypted, is_active, created_at, updated_at
		FROM tenants WHERE code = $1`

	var tenant domain.Tenant
	err := r.Pool.QueryRow(ctx, query, code).Scan(
		&tenant.ID,
		&tenant.Code,
		&tenant.Name,
		&tenant.APIKeyHash,
		&tenant.AccessSecretEncrypted,
		&tenant.RefreshSecretEncrypted,
		&tenant.IsActive,
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrTenantNotFound
		}
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal, "failed to get tenant by code")
	}

	return &tenant, nil
}

// Update обновляет существующего арендатора
func (r *TenantRepository) Update(ctx context.Context, tenant *domain.Tenant) error {
	query := `UPDATE tenants SET
		name = $2,
		api_key_hash = $3,
		access_secret_encrypted = $4,
		refresh_secret_encrypted = $5,
		is_active = $6,
		updated_at = $7
	WHERE id = $1`

	tag, err := r.Pool.Exec(ctx, query,
		tenant.ID,
		tenant.Name,
		tenant.APIKeyHash,
		tenant.AccessSecretEncrypted,
		tenant.RefreshSecretEncrypted,
		tenant.IsActive,
		tenant.UpdatedAt,
	)

	if err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrInternal, "failed to update tenant")
	}

	if tag.RowsAffected() == 0 {
		return repository.ErrTenantNotFound
	}

	return nil
}
