package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/synaptica-ai/diabetes-risk/pkg/common/logger"
	"github.com/synaptica-ai/diabetes-risk/pkg/common/models"
)

const (
	handlerRetryDelay    = 200 * time.Millisecond
	handlerMaxRetryDelay = 5 * time.Second
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer delivers events at least once. A message is committed only after
// its handler succeeds; failing handlers are retried in place with backoff so
// later messages never overtake an uncommitted one.
type Consumer struct {
	reader     messageReader
	retryDelay time.Duration
}

type EventHandler func(ctx context.Context, event models.Event) error

func NewConsumer(brokers []string, topic string, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
		MaxWait:  time.Second,
	})

	return &Consumer{reader: reader, retryDelay: handlerRetryDelay}
}

func (c *Consumer) Consume(ctx context.Context, handler EventHandler) error {
	for {
		message, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Log.WithError(err).Error("Failed to fetch message")
			continue
		}

		var event models.Event
		if err := json.Unmarshal(message.Value, &event); err != nil {
			logger.Log.WithError(err).WithField("offset", message.Offset).Error("Failed to unmarshal event")
			c.commit(ctx, message)
			continue
		}

		if err := c.handle(ctx, handler, event); err != nil {
			return err
		}
		c.commit(ctx, message)
	}
}

// handle retries handler until it succeeds or ctx ends.
func (c *Consumer) handle(ctx context.Context, handler EventHandler, event models.Event) error {
	delay := c.retryDelay
	for {
		err := handler(ctx, event)
		if err == nil {
			return nil
		}
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"event_id": event.ID,
			"retry_in": delay.String(),
		}).Error("Failed to process event")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
		if delay > handlerMaxRetryDelay {
			delay = handlerMaxRetryDelay
		}
	}
}

func (c *Consumer) commit(ctx context.Context, message kafka.Message) {
	if err := c.reader.CommitMessages(ctx, message); err != nil {
		logger.Log.WithError(err).WithField("offset", message.Offset).Error("Failed to commit message")
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
