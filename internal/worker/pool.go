package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"AuthVaultPlatform/pkg/logger"
	"AuthVaultPlatform/pkg/metrics"
)

// Job CPU-bound криптооперация, выполняемая рабочим пула. Результат
// возвращается через канал done вызывающему.
type Job struct {
	Operation string
	Fn        func() error
	done      chan error
}

// Config конфигурация пула криптоопераций
type Config struct {
	// Количество рабочих
	WorkerCount int `json:"worker_count"`

	// Размер очереди задач
	QueueSize int `json:"queue_size"`

	// Graceful shutdown таймаут
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		WorkerCount:     4,
		QueueSize:       64,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Validate проверяет конфигурацию
func (c *Config) Validate() error {
	if c.WorkerCount <= 0 {
		return fmt.Errorf("worker count must be positive")
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("queue size must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	return nil
}

// Pool пул рабочих для дорогих хеш-операций. Ограничивает число
// одновременных bcrypt/scrypt/pbkdf2 вычислений, чтобы всплеск запросов
// не выедал CPU у остального сервиса.
type Pool struct {
	config  *Config
	jobChan chan *Job
	wg      sync.WaitGroup
	logger  logger.Logger
	metrics *metrics.Metrics

	stats PoolStats

	// mu разводит отправку в jobChan и его закрытие: Stop закрывает
	// канал только когда ни один Do не держит RLock
	mu                 sync.RWMutex
	shutdownInProgress int32
	shutdownComplete   chan struct{}
}

// PoolStats статистика пула
type PoolStats struct {
	JobsSubmitted int64 `json:"jobs_submitted"`
	JobsCompleted int64 `json:"jobs_completed"`
	JobsFailed    int64 `json:"jobs_failed"`
	JobsRejected  int64 `json:"jobs_rejected"`
	QueueLength   int64 `json:"queue_length"`
}

// NewPool создает новый пул рабочих
func NewPool(config *Config, log logger.Logger, m *metrics.Metrics) (*Pool, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Pool{
		config:           config,
		jobChan:          make(chan *Job, config.QueueSize),
		logger:           log,
		metrics:          m,
		shutdownComplete: make(chan struct{}),
	}, nil
}

// Start запускает пул рабочих
func (p *Pool) Start() {
	p.logger.Info("Starting crypto worker pool",
		logger.Int("worker_count", p.config.WorkerCount),
		logger.Int("queue_size", p.config.QueueSize))

	for i := 0; i < p.config.WorkerCount; i++ {
		p.wg.Add(1)
		go p.run(i)
	}
}

// Stop останавливает пул с graceful shutdown: принятые задачи
// дорабатываются, новые отклоняются.
func (p *Pool) Stop(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&p.shutdownInProgress, 0, 1) {
		return nil // Уже останавливается
	}

	p.logger.Info("Stopping crypto worker pool")

	shutdownCtx, cancel := context.WithTimeout(ctx, p.config.ShutdownTimeout)
	defer cancel()

	p.mu.Lock()
	close(p.jobChan)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("All crypto workers stopped gracefully")
	case <-shutdownCtx.Done():
		p.logger.Warn("Shutdown timeout reached, forcing stop")
	}

	close(p.shutdownComplete)
	return nil
}

// Do выполняет операцию в пуле и ждет ее завершения. Вернет ошибку
// контекста, если очередь переполнена дольше, чем живет контекст, или
// ошибку самой операции.
func (p *Pool) Do(ctx context.Context, operation string, fn func() error) error {
	p.mu.RLock()
	if atomic.LoadInt32(&p.shutdownInProgress) == 1 {
		p.mu.RUnlock()
		atomic.AddInt64(&p.stats.JobsRejected, 1)
		return fmt.Errorf("pool is shutting down")
	}

	job := &Job{
		Operation: operation,
		Fn:        fn,
		done:      make(chan error, 1),
	}

	select {
	case p.jobChan <- job:
		p.mu.RUnlock()
		atomic.AddInt64(&p.stats.JobsSubmitted, 1)
	case <-ctx.Done():
		p.mu.RUnlock()
		atomic.AddInt64(&p.stats.JobsRejected, 1)
		return ctx.Err()
	}

	select {
	case err := <-job.done:
		return err
	case <-ctx.Done():
		// Задача доработает в фоне, но вызывающий уже ушел
		return ctx.Err()
	}
}

// GetStats возвращает статистику пула
func (p *Pool) GetStats() PoolStats {
	return PoolStats{
		JobsSubmitted: atomic.LoadInt64(&p.stats.JobsSubmitted),
		JobsCompleted: atomic.LoadInt64(&p.stats.JobsCompleted),
		JobsFailed:    atomic.LoadInt64(&p.stats.JobsFailed),
		JobsRejected:  atomic.LoadInt64(&p.stats.JobsRejected),
		QueueLength:   int64(len(p.jobChan)),
	}
}

// WaitShutdownComplete ждет завершения shutdown
func (p *Pool) WaitShutdownComplete() <-chan struct{} {
	return p.shutdownComplete
}

// run цикл рабочего
func (p *Pool) run(id int) {
	defer p.wg.Done()

	p.logger.Debug("Crypto worker started", logger.Int("worker_id", id))

	for job := range p.jobChan {
		start := time.Now()
		err := job.Fn()
		duration := time.Since(start)

		if p.metrics != nil {
			p.metrics.ObserveCrypto(job.Operation, duration)
		}

		if err != nil {
			atomic.AddInt64(&p.stats.JobsFailed, 1)
		} else {
			atomic.AddInt64(&p.stats.JobsCompleted, 1)
		}

		job.done <- err
	}

	p.logger.Debug("Crypto worker stopping", logger.Int("worker_id", id))
}
