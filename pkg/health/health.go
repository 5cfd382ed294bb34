package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// CheckFunc проверяет доступность одного компонента
type CheckFunc func(ctx context.Context) error

// HealthStatus представляет статус здоровья сервиса
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]Status `json:"services,omitempty"`
	Version   string            `json:"version,omitempty"`
}

// Status представляет статус компонента
type Status struct {
	Status  string `json:"status"`
	Details string `json:"details,omitempty"`
}

// Checker выполняет именованные проверки компонентов (postgres, redis, ...)
type Checker struct {
	version string
	timeout time.Duration

	mu     sync.RWMutex
	checks map[string]CheckFunc
}

// NewChecker создает новый Checker
func NewChecker(version string) *Checker {
	return &Checker{
		version: version,
		timeout: 5 * time.Second,
		checks:  make(map[string]CheckFunc),
	}
}

// RegisterCheck регистрирует проверку компонента под именем
func (c *Checker) RegisterCheck(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Check выполняет все зарегистрированные проверки
func (c *Checker) Check(ctx context.Context) *HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.mu.RLock()
	checks := make(map[string]CheckFunc, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	status := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Services:  make(map[string]Status, len(checks)),
		Version:   c.version,
	}

	for name, check := range checks {
		if err := check(ctx); err != nil {
			status.Status = "unhealthy"
			status.Services[name] = Status{Status: "unhealthy", Details: err.Error()}
			continue
		}
		status.Services[name] = Status{Status: "healthy"}
	}

	return status
}

// Handler создает HTTP обработчик для health check эндпоинта
func (c *Checker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := c.Check(r.Context())

		code := http.StatusOK
		if status.Status != "healthy" {
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(status)
	}
}
