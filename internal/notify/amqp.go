// AngelaMos | 2026
// amqp.go

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPNotifier publishes notifications as persistent JSON messages on a
// durable queue through the default exchange.
type AMQPNotifier struct {
	mu    sync.Mutex
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

func NewAMQPNotifier(url, queue string) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = conn.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	return &AMQPNotifier{conn: conn, ch: ch, queue: queue}, nil
}

func (a *AMQPNotifier) Notify(ctx context.Context, n Notification) error {
	msg, err := publishing(n)
	if err != nil {
		return err
	}

	// amqp channels are not safe for concurrent publishing
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.ch.PublishWithContext(ctx, "", a.queue, false, false, msg); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

func (a *AMQPNotifier) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		return fmt.Errorf("close amqp channel: %w", err)
	}
	if err := a.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		return fmt.Errorf("close amqp connection: %w", err)
	}
	return nil
}

func publishing(n Notification) (amqp.Publishing, error) {
	if n.At.IsZero() {
		n.At = time.Now().UTC()
	}

	body, err := json.Marshal(n)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode notification: %w", err)
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    n.At,
		Type:         n.Event,
		Body:         body,
	}, nil
}
