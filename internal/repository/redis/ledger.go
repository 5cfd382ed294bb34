package redis

import (
	"context"
	"errors"
	"time"

	"AuthVaultPlatform/internal/repository"
	pkgerrors "AuthVaultPlatform/pkg/errors"

	"github.com/go-redis/redis/v8"
)

// SessionLedger реализация реестра сессий поверх Redis. Срок жизни
// записей обеспечивается TTL самого Redis: просроченный ключ исчезает
// без участия сервиса.
type SessionLedger struct {
	client *redis.Client
}

// NewSessionLedger создает новый экземпляр SessionLedger
func NewSessionLedger(client *redis.Client) repository.SessionLedger {
	return &SessionLedger{client: client}
}

// Put записывает значение по ключу с заданным TTL. Повторная запись по
// существующему ключу перезаписывает значение и перезаводит TTL.
func (l *SessionLedger) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := l.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrInternal, "failed to put session entry")
	}
	return nil
}

// Get возвращает значение по ключу. Отсутствие ключа не считается ошибкой:
// возвращается ("", false, nil).
func (l *SessionLedger) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := l.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, pkgerrors.Wrap(err, pkgerrors.ErrInternal, "failed to get session entry")
	}
	return value, true, nil
}

// Delete удаляет ключ и сообщает, существовал ли он
func (l *SessionLedger) Delete(ctx context.Context, key string) (bool, error) {
	deleted, err := l.client.Del(ctx, key).Result()
	if err != nil {
		return false, pkgerrors.Wrap(err, pkgerrors.ErrInternal, "failed to delete session entry")
	}
	return deleted > 0, nil
}
