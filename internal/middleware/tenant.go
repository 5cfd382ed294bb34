package middleware

import (
	"context"
	"errors"
	"net/http"

	"AuthVaultPlatform/internal/domain"
	"AuthVaultPlatform/internal/handler"
	"AuthVaultPlatform/internal/pkg/password"
	"AuthVaultPlatform/internal/repository"
	"AuthVaultPlatform/internal/worker"
	"AuthVaultPlatform/pkg/logger"
)

type contextKey string

// tenantAccessKey ключ контекста для разрешенного арендатора
const tenantAccessKey contextKey = "tenant_access"

// TenantFromContext извлекает разрешенного арендатора из контекста запроса
func TenantFromContext(ctx context.Context) (domain.TenantAccess, bool) {
	access, ok := ctx.Value(tenantAccessKey).(domain.TenantAccess)
	return access, ok
}

// TenantResolver валидирует сегмент пути {app} и заголовок x-api-key,
// разрешает арендатора и прокидывает TenantAccess через контекст запроса.
// Секреты остаются зашифрованными: расшифровка происходит уже в сервисном
// слое предъявленным ключом, и только на время запроса.
type TenantResolver struct {
	tenants repository.TenantRepository
	hasher  password.Hasher
	pool    *worker.Pool
	logger  logger.Logger
}

// NewTenantResolver создает новый TenantResolver
func NewTenantResolver(tenants repository.TenantRepository, hasher password.Hasher, pool *worker.Pool, log logger.Logger) *TenantResolver {
	return &TenantResolver{tenants: tenants, hasher: hasher, pool: pool, logger: log}
}

// Middleware оборачивает обработчик проверкой арендатора
func (m *TenantResolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		appCode := r.PathValue("app")
		if appCode == "" {
			handler.Failed(w, "No application selected.")
			return
		}

		apiKey := r.Header.Get("x-api-key")
		if apiKey == "" {
			handler.Failed(w, "No API Key provided.")
			return
		}

		tenant, err := m.tenants.FindByCode(r.Context(), appCode)
		if err != nil {
			if errors.Is(err, repository.ErrTenantNotFound) {
				handler.Failed(w, "App code is incorrect.")
				return
			}
			m.logger.Error("Tenant lookup failed",
				logger.String("app_code", appCode),
				logger.Error(err))
			handler.Error(w, "Tenant lookup failed.")
			return
		}

		if !tenant.IsActive {
			handler.Unauthorized(w, "Application is deactivated.")
			return
		}

		var keyOK bool
		if err := m.pool.Do(r.Context(), "bcrypt_check", func() error {
			keyOK = m.hasher.Check(apiKey, tenant.APIKeyHash)
			return nil
		}); err != nil {
			handler.Error(w, "API Key verification failed.")
			return
		}
		if !keyOK {
			handler.Failed(w, "API Key is incorrect.")
			return
		}

		// Ciphertext секретов может приходить и заголовками: их
		// round-trip'ит вышестоящий слой; хранимые значения служат
		// источником по умолчанию
		access := domain.TenantAccess{Tenant: tenant, APIKey: apiKey}
		if ats, rts := r.Header.Get("access-token-secret"), r.Header.Get("refresh-token-secret"); ats != "" && rts != "" {
			override := *tenant
			override.AccessSecretEncrypted = ats
			override.RefreshSecretEncrypted = rts
			access.Tenant = &override
		}

		ctx := context.WithValue(r.Context(), tenantAccessKey, access)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
