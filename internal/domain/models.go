package domain

import (
	"fmt"
	"time"
)

// Tenant представляет клиентское приложение с изолированными пользователями
// и подписывающими секретами.
// Секреты токенов хранятся зашифрованными; ключом шифрования служит
// API ключ клиента в открытом виде, который сам нигде не персистится
// нехешированным. Владение настоящим API ключом обязательно для расшифровки.
type Tenant struct {
	ID                    string    `json:"id"`
	Code                  string    `json:"code"`
	Name                  string    `json:"name"`
	APIKeyHash            string    `json:"api_key_hash"`
	AccessSecretEncrypted string    `json:"access_secret_encrypted"`
	RefreshSecretEncrypted string   `json:"refresh_secret_encrypted"`
	IsActive              bool      `json:"is_active"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// User представляет конечного пользователя приложения-арендатора.
// Пароли хранятся с использованием bcrypt.
// (tenant, username) и (tenant, email) уникальны в рамках арендатора.
type User struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenant_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SysAdmin представляет системного администратора.
// Username хранится в открытом виде для индексированного поиска,
// пароль хранится bcrypt хешем.
type SysAdmin struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TenantKeyMaterial содержит расшифрованные подписывающие секреты арендатора.
// Значение разрешается один раз на запрос и передается по значению через
// весь поток; между запросами не кешируется.
type TenantKeyMaterial struct {
	AccessSecret  string
	RefreshSecret string
}

// TenantAccess связывает разрешенного арендатора с предъявленным plaintext
// API ключом и зашифрованными секретами текущего запроса
type TenantAccess struct {
	Tenant *Tenant
	APIKey string
}

// SessionState представляет явное состояние сессии, выведенное из наличия
// записей в реестре сессий
type SessionState int

const (
	// SessionAnonymous: записей в реестре нет и токен не предъявлялся
	SessionAnonymous SessionState = iota
	// SessionActive: запись в реестре присутствует
	SessionActive
	// SessionRevoked: криптографически валидный токен предъявлен,
	// но записи в реестре нет: сессия была явно завершена
	SessionRevoked
)

// String возвращает строковое представление состояния
func (s SessionState) String() string {
	switch s {
	case SessionAnonymous:
		return "anonymous"
	case SessionActive:
		return "active"
	case SessionRevoked:
		return "revoked"
	default:
		return "unknown"
	}
}

// ResolveSessionState выводит состояние сессии: наличие записи означает
// активную сессию; отсутствие записи при предъявленном валидном токене
// означает отозванную
func ResolveSessionState(tokenVerified, entryPresent bool) SessionState {
	switch {
	case entryPresent:
		return SessionActive
	case tokenVerified:
		return SessionRevoked
	default:
		return SessionAnonymous
	}
}

// Времена жизни токенов и классов записей реестра
const (
	AccessTokenTTL  = 10 * time.Minute
	RefreshTokenTTL = 240 * time.Hour
	AdminSessionTTL = 5 * time.Minute
)

// Ключи реестра сессий. Формат ключей это часть внешнего контракта
// (их читают и другие сервисы платформы), менять нельзя.
func AccessTokenKey(subjectID string) string {
	return fmt.Sprintf("%s-access-token", subjectID)
}

// RefreshTokenKey возвращает ключ записи refresh токена
func RefreshTokenKey(subjectID string) string {
	return fmt.Sprintf("%s-refresh-token", subjectID)
}

// AdminPBKDFKey возвращает ключ производного ключа администратора
func AdminPBKDFKey(adminID string) string {
	return fmt.Sprintf("%s-pbkdf", adminID)
}

// AdminHashKey возвращает ключ промежуточного хеша администратора
func AdminHashKey(adminID string) string {
	return fmt.Sprintf("%s-hash", adminID)
}
