package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"ms-events/internal/logger"
	"ms-events/internal/models"

	"github.com/segmentio/kafka-go"
)

// Consumer reads registration events back from Kafka so that every instance
// can forward them to its own SSE clients.
type Consumer struct {
	reader *kafka.Reader
	logger *logger.Logger
}

// NewConsumer creates a consumer for topics. Give each instance its own groupID
// so every instance sees every event.
func NewConsumer(brokers []string, topics []string, groupID string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupTopics: topics,
		GroupID:     groupID,
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
	})
	return &Consumer{reader: reader, logger: log}
}

// Start blocks, handing each decoded event to handler, until ctx is done.
func (c *Consumer) Start(ctx context.Context, handler func(ctx context.Context, evt models.RegistrationEvent) error) {
	c.logger.Info("KAFKA", "🔄 Registration consumer started")

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				c.logger.Info("KAFKA", "Registration consumer stopped")
				return
			}
			c.logger.Error("KAFKA", fmt.Sprintf("Error reading message: %v", err))
			continue
		}

		evt, err := Decode(msg)
		if err != nil {
			c.logger.Warn("KAFKA", fmt.Sprintf("Skipping message at %s/%d: %v", msg.Topic, msg.Offset, err))
			continue
		}

		c.logger.LogKafka("RECEIVE", msg.Topic, fmt.Sprintf("user=%s event=%d", evt.UserID, evt.EventID))
		if err := handler(ctx, evt); err != nil {
			c.logger.Error("KAFKA", fmt.Sprintf("Handler failed for %s: %v", msg.Topic, err))
		}
	}
}

// Decode unmarshals a registration event message.
func Decode(msg kafka.Message) (models.RegistrationEvent, error) {
	var evt models.RegistrationEvent
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		return evt, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	if evt.UserID == "" {
		return evt, errors.New("message has no user_id")
	}
	return evt, nil
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
