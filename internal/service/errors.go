package service

import "errors"

// Ошибки оркестратора. Коллабораторы (репозитории, шифр, кодек) могут
// падать по-своему; наружу из сервисного слоя выходит только этот набор.
var (
	// ErrTenantNotFound арендатор с таким кодом не зарегистрирован
	ErrTenantNotFound = errors.New("tenant not found")
	// ErrAPIKeyMismatch предъявленный API ключ не совпал с хешем
	ErrAPIKeyMismatch = errors.New("api key mismatch")
	// ErrUserNotFound пользователь не найден (мягкий исход, не авария)
	ErrUserNotFound = errors.New("user not found")
	// ErrUserAlreadyExists username или email уже заняты в рамках арендатора
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrAccountDeactivated учетная запись деактивирована
	ErrAccountDeactivated = errors.New("account deactivated")
	// ErrPasswordMismatch пароль не подошел (мягкий исход)
	ErrPasswordMismatch = errors.New("password mismatch")
	// ErrWeakPassword пароль не проходит политику сложности
	ErrWeakPassword = errors.New("password does not meet complexity policy")
	// ErrSecretUnavailable секрет расшифровался в пустую строку:
	// конфигурационная авария, а не ошибка учетных данных
	ErrSecretUnavailable = errors.New("tenant secret unavailable")
	// ErrDecryptFailure секреты арендатора не расшифровались
	ErrDecryptFailure = errors.New("tenant secret decrypt failure")
	// ErrTokenInvalid токен не прошел проверку подписи, срока или формата
	ErrTokenInvalid = errors.New("token invalid")
	// ErrSessionRevoked токен криптографически валиден, но записи
	// в реестре нет: сессия была явно завершена
	ErrSessionRevoked = errors.New("session revoked")
	// ErrAlreadyLoggedOut повторный выход: записей в реестре уже не было
	ErrAlreadyLoggedOut = errors.New("already logged out")
	// ErrIncompleteInput не переданы обязательные поля
	ErrIncompleteInput = errors.New("incomplete input")
	// ErrAdminNotFound администратор не найден
	ErrAdminNotFound = errors.New("admin not found")
)
