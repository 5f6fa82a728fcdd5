package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	moderationQueueKey = "moderation_events"
)

// ModerationEvent - событие одобрения инцидента для подписчиков публичной ленты
type ModerationEvent struct {
	IncidentID uuid.UUID `json:"incident_id"`
	Status     string    `json:"status"`
	Type       string    `json:"type"`
	Title      string    `json:"title"`
	Location   string    `json:"location"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ModerationPublisher - интерфейс для публикации событий модерации
type ModerationPublisher interface {
	Publish(ctx context.Context, event ModerationEvent) error
}

// RedisModerationPublisher - реализация ModerationPublisher, использующая Redis
type RedisModerationPublisher struct {
	redisClient *redis.Client
}

// NewRedisModerationPublisher создает новый RedisModerationPublisher
func NewRedisModerationPublisher(client *redis.Client) *RedisModerationPublisher {
	return &RedisModerationPublisher{
		redisClient: client,
	}
}

// Publish публикует событие модерации в очередь Redis
func (p *RedisModerationPublisher) Publish(ctx context.Context, event ModerationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal moderation event: %w", err)
	}

	// Используем LPUSH для добавления события в левую часть списка (очереди)
	if err := p.redisClient.LPush(ctx, moderationQueueKey, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish moderation event to Redis: %w", err)
	}
	return nil
}
