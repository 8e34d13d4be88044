// AngelaMos | 2026
// notify_test.go

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/mystic-backend/internal/config"
)

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewJSONHandler(&buf, nil)))

	err := n.Notify(context.Background(), Notification{
		Title:   "New payment",
		Content: "tarot reading for 7.00 BRL",
		Event:   "payment.created",
		Fields:  map[string]string{"payment_id": "p-1"},
	})
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "owner notification", line["msg"])
	assert.Equal(t, "payment.created", line["event"])
	assert.Equal(t, "p-1", line["payment_id"])
}

func TestPublishing(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	msg, err := publishing(Notification{Title: "t", Event: "payment.approved", At: at})
	require.NoError(t, err)

	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, "payment.approved", msg.Type)
	assert.Equal(t, at, msg.Timestamp)

	var decoded Notification
	require.NoError(t, json.Unmarshal(msg.Body, &decoded))
	assert.Equal(t, "t", decoded.Title)
}

func TestNewSelectsDriver(t *testing.T) {
	n, err := New(config.NotifyConfig{Driver: DriverLog}, nil)
	require.NoError(t, err)
	assert.IsType(t, &LogNotifier{}, n)

	_, err = New(config.NotifyConfig{Driver: "carrier-pigeon"}, nil)
	assert.Error(t, err)
}
