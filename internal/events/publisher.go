package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"AuthVaultPlatform/pkg/logger"
	"AuthVaultPlatform/pkg/rabbitmq"

	"github.com/google/uuid"
)

// Типы событий аутентификации
const (
	EventUserSignedUp   = "auth.user.signed_up"
	EventUserSignedIn   = "auth.user.signed_in"
	EventUserRefreshed  = "auth.user.refreshed"
	EventUserLoggedOut  = "auth.user.logged_out"
	EventAdminSignedIn  = "auth.admin.signed_in"
	EventAdminLoggedOut = "auth.admin.logged_out"
)

// AuthEvent событие аутентификации, публикуемое в шину
type AuthEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	TenantCode string    `json:"tenant_code,omitempty"`
	SubjectID  string    `json:"subject_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher интерфейс публикации событий аутентификации
type Publisher interface {
	Publish(ctx context.Context, eventType, tenantCode, subjectID string) error
}

// RabbitPublisher публикует события в RabbitMQ. Публикация best-effort:
// ошибки логируются, но не останавливают поток аутентификации.
type RabbitPublisher struct {
	producer *rabbitmq.Producer
	logger   logger.Logger
}

// NewRabbitPublisher создает нового публикатора поверх RabbitMQ
func NewRabbitPublisher(producer *rabbitmq.Producer, log logger.Logger) *RabbitPublisher {
	return &RabbitPublisher{producer: producer, logger: log}
}

// Publish сериализует событие и отправляет его с типом в качестве routing key
func (p *RabbitPublisher) Publish(ctx context.Context, eventType, tenantCode, subjectID string) error {
	event := AuthEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		TenantCode: tenantCode,
		SubjectID:  subjectID,
		OccurredAt: time.Now().UTC(),
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal auth event: %w", err)
	}

	if err := p.producer.Publish(ctx, eventType, body); err != nil {
		p.logger.Warn("Failed to publish auth event",
			logger.String("event_type", eventType),
			logger.String("subject_id", subjectID),
			logger.Error(err))
		return err
	}

	return nil
}

// NoopPublisher заглушка для окружений без брокера
type NoopPublisher struct{}

// Publish ничего не делает
func (NoopPublisher) Publish(ctx context.Context, eventType, tenantCode, subjectID string) error {
	return nil
}
