package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v5"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewFileSink returns a JSON logger appending to path, creating its
// directory if needed.  Each notice becomes one line.
func NewFileSink(path string) (*zap.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		TimeKey:     "ts",
		MessageKey:  "msg",
		EncodeTime:  zapcore.ISO8601TimeEncoder,
		LineEnding:  zapcore.DefaultLineEnding,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	})
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(f), zapcore.InfoLevel)), nil
}

// Consumer drains NotificationQueue into a sink.
type Consumer struct {
	url  string
	sink *zap.Logger
	log  *zap.Logger
}

// NewConsumer returns a consumer recording notices to sink.
func NewConsumer(url string, sink, log *zap.Logger) *Consumer {
	return &Consumer{url: url, sink: sink, log: log.Named("consumer")}
}

// Run consumes until ctx is cancelled, reconnecting with exponential
// backoff whenever the broker is unreachable or drops the connection.
func (c *Consumer) Run(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 30 * time.Second
	for {
		err := c.consume(ctx, b)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		wait := b.NextBackOff()
		c.log.Warn("consumer disconnected", zap.Error(err), zap.Duration("retry_in", wait))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (c *Consumer) consume(ctx context.Context, b *backoff.ExponentialBackOff) error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	if err := ch.Qos(50, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	if _, err := ch.QueueDeclare(NotificationQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	deliveries, err := ch.ConsumeWithContext(ctx, NotificationQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	b.Reset()
	c.log.Info("consumer connected", zap.String("queue", NotificationQueue))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handle(d.Body); err != nil {
				c.log.Warn("notification rejected", zap.Error(err))
				// malformed payloads would loop forever if requeued
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handle(body []byte) error {
	var n Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return fmt.Errorf("decode notification: %w", err)
	}
	c.sink.Info(n.Subject,
		zap.String("to", n.To),
		zap.Time("sent_at", n.SentAt),
		zap.String("body", n.Body))
	return nil
}
