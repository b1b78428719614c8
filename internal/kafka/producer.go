package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"ms-events/internal/config"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	Writer MessageWriter
	Topics config.TopicConfig
	Logger *logger.Logger
}

func NewProducer(brokers []string, topics config.TopicConfig, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return &Producer{Writer: writer, Topics: topics, Logger: log}
}

// TopicFor picks the topic a registration event is published on.
func (p *Producer) TopicFor(t models.RegistrationEventType) (string, error) {
	switch t {
	case models.RegistrationCreated:
		return p.Topics.RegistrationCreated, nil
	case models.RegistrationCancelled:
		return p.Topics.RegistrationCancelled, nil
	}
	return "", fmt.Errorf("unknown registration event type %q", t)
}

// Publish streams a registration event to Kafka, keyed by user so one user's
// changes stay ordered within a partition.
func (p *Producer) Publish(ctx context.Context, evt models.RegistrationEvent) error {
	topic, err := p.TopicFor(evt.Type)
	if err != nil {
		return err
	}

	msgBytes, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal registration event: %w", err)
	}

	p.Logger.LogKafka("PUBLISH", topic, fmt.Sprintf("user=%s event=%d", evt.UserID, evt.EventID))

	err = p.Writer.WriteMessages(ctx,
		kafka.Message{
			Topic: topic,
			Key:   []byte(evt.UserID),
			Value: msgBytes,
			Headers: []kafka.Header{
				{Key: "event_id", Value: []byte(strconv.Itoa(evt.EventID))},
			},
		},
	)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
