// AngelaMos | 2026
// notify.go

// Package notify delivers owner notifications about payments and other
// events that need a human to look at them.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/carterperez-dev/mystic-backend/internal/config"
)

const (
	DriverLog  = "log"
	DriverAMQP = "amqp"
)

type Notification struct {
	Title   string            `json:"title"`
	Content string            `json:"content"`
	Event   string            `json:"event"`
	Fields  map[string]string `json:"fields,omitempty"`
	At      time.Time         `json:"at"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
	Close() error
}

// New builds the notifier selected by cfg.Driver.
func New(cfg config.NotifyConfig, logger *slog.Logger) (Notifier, error) {
	switch cfg.Driver {
	case "", DriverLog:
		return NewLogNotifier(logger), nil
	case DriverAMQP:
		return NewAMQPNotifier(cfg.AMQPURL, cfg.Queue)
	default:
		return nil, fmt.Errorf("unknown notify driver %q", cfg.Driver)
	}
}

type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(ctx context.Context, n Notification) error {
	attrs := []slog.Attr{
		slog.String("event", n.Event),
		slog.String("title", n.Title),
		slog.String("content", n.Content),
	}
	for k, v := range n.Fields {
		attrs = append(attrs, slog.String(k, v))
	}

	l.logger.LogAttrs(ctx, slog.LevelInfo, "owner notification", attrs...)
	return nil
}

func (l *LogNotifier) Close() error { return nil }
