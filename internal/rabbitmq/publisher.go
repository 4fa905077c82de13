package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"

	"github.com/photobot/store/internal/lib/sl"
	"github.com/photobot/store/internal/metrics"
	"github.com/photobot/store/internal/models"
)

// Publisher отправляет записи журнала в обменник с ключом маршрутизации = тип действия.
type Publisher struct {
	mu       sync.Mutex
	ch       *amqp.Channel
	exchange string
	log      *slog.Logger
}

func NewPublisher(ch *amqp.Channel, exchange string, log *slog.Logger) *Publisher {
	return &Publisher{ch: ch, exchange: exchange, log: log}
}

// Publish публикует запись журнала как persistent JSON-сообщение.
func (p *Publisher) Publish(action models.Action) error {
	const op = "rabbitmq.Publish"
	body, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.Publish(
		p.exchange,
		action.ActionType,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    action.CreatedAt,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ActionAppended публикует зафиксированную запись. Запись уже сохранена в базе,
// поэтому ошибка публикации только логируется.
func (p *Publisher) ActionAppended(_ context.Context, action models.Action) {
	if err := p.Publish(action); err != nil {
		metrics.EventsPublished.WithLabelValues("error").Inc()
		p.log.Error("failed to publish action", sl.UserID(action.UserID),
			slog.String("action_type", action.ActionType), sl.Err(err))
		return
	}
	metrics.EventsPublished.WithLabelValues("ok").Inc()
}
