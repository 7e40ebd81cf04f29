package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"restock-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Producer struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}

	return &Producer{writer: writer, logger: util.GetLogger()}
}

// PublishEvent publishes an event to Kafka
func (p *Producer) PublishEvent(ctx context.Context, key string, event interface{}) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: eventBytes,
		Time:  time.Now(),
	}

	err = p.writer.WriteMessages(ctx, msg)
	if err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	p.logger.Debug("Published event", zap.String("key", key), zap.String("type", fmt.Sprintf("%T", event)))
	return nil
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// Consumer represents a Kafka consumer
type Consumer struct {
	reader    *kafka.Reader
	retry     RetryPolicy
	logger    *zap.Logger
	closeOnce sync.Once
	closeErr  error
}

// NewConsumer creates a new Kafka consumer
func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		StartOffset:    kafka.FirstOffset,
	})

	return &Consumer{reader: reader, retry: DefaultRetryPolicy, logger: util.GetLogger()}
}

// Close closes the consumer. Calling it again returns the first result.
func (c *Consumer) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.reader.Close()
	})
	return c.closeErr
}

// MessageHandler is a function type for handling messages
type MessageHandler func(ctx context.Context, msg kafka.Message) error

// ErrMalformedMessage marks a message that can never be handled. Retrying
// it is pointless, so it is logged and committed.
var ErrMalformedMessage = errors.New("malformed message")

// RetryPolicy bounds how often a failing message is handled again before
// the consumer gives up on it
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
	MaxBackoff  time.Duration
}

// DefaultRetryPolicy is used by NewConsumer
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 5,
	Backoff:     500 * time.Millisecond,
	MaxBackoff:  10 * time.Second,
}

// Wrap returns a handler that retries handler with exponential backoff.
// Malformed messages are dropped after the first attempt.
func (p RetryPolicy) Wrap(handler MessageHandler) MessageHandler {
	logger := util.GetLogger()
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	return func(ctx context.Context, msg kafka.Message) error {
		backoff := p.Backoff
		for attempt := 1; ; attempt++ {
			err := handler(ctx, msg)
			if err == nil {
				return nil
			}
			if errors.Is(err, ErrMalformedMessage) {
				logger.Error("Dropping malformed message",
					zap.Int64("offset", msg.Offset),
					zap.Error(err))
				return nil
			}
			if attempt >= attempts {
				return err
			}

			logger.Warn("Error handling message, retrying",
				zap.Int64("offset", msg.Offset),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(err))

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if p.MaxBackoff > 0 && backoff > p.MaxBackoff {
				backoff = p.MaxBackoff
			}
		}
	}
}

// StartConsuming fetches messages until ctx is cancelled. A message is
// committed only after the handler succeeds. When a message still fails after
// every retry, consuming stops without committing it so that the message is
// delivered again once the partition is reassigned.
func (c *Consumer) StartConsuming(ctx context.Context, handler MessageHandler) error {
	c.logger.Info("Starting Kafka consumer", zap.String("topic", c.reader.Config().Topic))
	handle := c.retry.Wrap(handler)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Consumer context cancelled, stopping")
			return ctx.Err()
		default:
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
					return ctx.Err()
				}
				c.logger.Error("Error fetching message", zap.Error(err))
				time.Sleep(time.Second)
				continue
			}

			if err := handle(ctx, msg); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("failed to handle message at offset %d: %w", msg.Offset, err)
			}

			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				c.logger.Error("Error committing message", zap.Error(err))
			}
		}
	}
}
