package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RateLimiter интерфейс для ограничения частоты запросов
type RateLimiter interface {
	// CheckRateLimit проверяет лимит для заданного ключа.
	// Возвращает true, если лимит превышен.
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RedisRateLimiter реализация RateLimiter с использованием Redis.
// Счетчик запросов живет в ключе с TTL равным окну.
type RedisRateLimiter struct {
	client *redis.Client
}

// NewRedisRateLimiter создает новый экземпляр RedisRateLimiter
func NewRedisRateLimiter(client *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{client: client}
}

// CheckRateLimit проверяет, не превышен ли лимит запросов для заданного ключа.
// Алгоритм:
// 1. Получение текущего счетчика из Redis
// 2. Если счетчик >= лимит → возвращает true
// 3. Увеличение счетчика (INCR) и установка TTL
// 4. Возвращает false (успех)
func (r *RedisRateLimiter) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	redisKey := fmt.Sprintf("rate_limit:%s", key)

	current, err := r.client.Get(ctx, redisKey).Int64()
	if err != nil && err != redis.Nil {
		return true, fmt.Errorf("failed to get rate limit counter: %w", err)
	}

	if int(current) >= limit {
		return true, nil
	}

	// Используем pipeline для атомарного увеличения счетчика и установки TTL
	tx := r.client.TxPipeline()
	tx.Incr(ctx, redisKey)
	tx.Expire(ctx, redisKey, window)

	if _, err := tx.Exec(ctx); err != nil {
		return true, fmt.Errorf("failed to execute rate limit transaction: %w", err)
	}

	return false, nil
}
