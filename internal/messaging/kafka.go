package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/temcen/shoprec/internal/config"
	"github.com/temcen/shoprec/internal/validation"
	"github.com/temcen/shoprec/pkg/models"
)

const (
	dlqSuffix     = "-dlq"
	maxRetries    = 3
	baseRetryWait = time.Second
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// FeedbackPublisher writes recommendation feedback to Kafka, keyed by user.
type FeedbackPublisher struct {
	writer messageWriter
	topic  string
	logger *logrus.Logger
}

func NewFeedbackPublisher(cfg *config.Config, logger *logrus.Logger) *FeedbackPublisher {
	topic := cfg.Kafka.Topics.RecommendationFeedback
	return &FeedbackPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Kafka.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 10 * time.Millisecond,
			BatchSize:    100,
		},
		topic:  topic,
		logger: logger,
	}
}

func (p *FeedbackPublisher) PublishFeedback(ctx context.Context, feedback *models.RecommendationFeedback) error {
	value, err := json.Marshal(feedback)
	if err != nil {
		return fmt.Errorf("failed to marshal feedback: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(feedback.UserID.String()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "feedback_id", Value: []byte(feedback.ID.String())},
			{Key: "feedback", Value: []byte(feedback.Feedback)},
			{Key: "timestamp", Value: []byte(feedback.Timestamp.Format(time.RFC3339))},
		},
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		p.logger.WithError(err).WithField("feedback_id", feedback.ID).Error("Failed to publish feedback to Kafka")
		return fmt.Errorf("failed to write feedback to Kafka: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"feedback_id": feedback.ID,
		"user_id":     feedback.UserID,
		"product_id":  feedback.ProductID,
		"topic":       p.topic,
	}).Info("Feedback published to Kafka")

	return nil
}

func (p *FeedbackPublisher) Close() error {
	return p.writer.Close()
}

// InteractionHandler reacts to one validated interaction event.
type InteractionHandler func(ctx context.Context, event models.InteractionEvent) error

// InteractionConsumer reads the shop's interaction stream. Events failing
// schema validation are logged and committed; events whose handler keeps
// failing go to the dead-letter topic.
type InteractionConsumer struct {
	reader    messageReader
	dlqWriter messageWriter
	validator *validation.SchemaValidator
	handler   InteractionHandler
	topic     string
	retryWait time.Duration
	logger    *logrus.Logger
}

func NewInteractionConsumer(
	cfg *config.Config,
	validator *validation.SchemaValidator,
	handler InteractionHandler,
	logger *logrus.Logger,
) *InteractionConsumer {
	topic := cfg.Kafka.Topics.UserInteractions
	return &InteractionConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        cfg.Kafka.Brokers,
			Topic:          topic,
			GroupID:        cfg.Kafka.GroupID,
			MinBytes:       1,
			MaxBytes:       10e6, // 10MB
			CommitInterval: time.Second,
			StartOffset:    kafka.LastOffset,
		}),
		dlqWriter: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Kafka.Brokers...),
			Topic:        topic + dlqSuffix,
			RequiredAcks: kafka.RequireOne,
		},
		validator: validator,
		handler:   handler,
		topic:     topic,
		retryWait: baseRetryWait,
		logger:    logger,
	}
}

// Run consumes until ctx is cancelled.
func (c *InteractionConsumer) Run(ctx context.Context) error {
	c.logger.WithField("topic", c.topic).Info("Interaction consumer started")
	for {
		message, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.WithError(err).Error("Failed to read message from Kafka")
			continue
		}

		c.handle(ctx, message)

		if err := c.reader.CommitMessages(ctx, message); err != nil && ctx.Err() == nil {
			c.logger.WithError(err).WithField("offset", message.Offset).Error("Failed to commit message")
		}
	}
}

func (c *InteractionConsumer) handle(ctx context.Context, message kafka.Message) {
	if result := c.validator.ValidateInteractionEvent(message.Value); !result.Valid {
		c.logger.WithFields(logrus.Fields{
			"offset": message.Offset,
			"errors": result.Errors,
		}).Warn("Skipping invalid interaction event")
		return
	}

	var event models.InteractionEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		c.logger.WithError(err).WithField("offset", message.Offset).Warn("Skipping undecodable interaction event")
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if err := c.processWithRetry(ctx, event); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		c.logger.WithError(err).WithField("user_id", event.UserID).Error("Failed to process interaction after retries")
		if dlqErr := c.sendToDLQ(ctx, message, err); dlqErr != nil {
			c.logger.WithError(dlqErr).Error("Failed to send message to DLQ")
		}
	}
}

func (c *InteractionConsumer) processWithRetry(ctx context.Context, event models.InteractionEvent) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retryWait * time.Duration(1<<uint(attempt-1))
			c.logger.WithFields(logrus.Fields{
				"user_id": event.UserID,
				"attempt": attempt,
				"delay":   delay,
			}).Info("Retrying interaction processing")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		if err = c.handler(ctx, event); err == nil {
			return nil
		}
		c.logger.WithError(err).WithFields(logrus.Fields{
			"user_id": event.UserID,
			"attempt": attempt,
		}).Warn("Interaction processing failed")
	}
	return fmt.Errorf("max retries exceeded: %w", err)
}

func (c *InteractionConsumer) sendToDLQ(ctx context.Context, message kafka.Message, cause error) error {
	dlqMessage := kafka.Message{
		Key:   message.Key,
		Value: message.Value,
		Headers: []kafka.Header{
			{Key: "original_topic", Value: []byte(c.topic)},
			{Key: "error", Value: []byte(cause.Error())},
			{Key: "dlq_timestamp", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		},
	}

	if err := c.dlqWriter.WriteMessages(ctx, dlqMessage); err != nil {
		return fmt.Errorf("failed to write message to DLQ: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"offset": message.Offset,
		"error":  cause.Error(),
	}).Warn("Message sent to DLQ")
	return nil
}

func (c *InteractionConsumer) Close() error {
	return errors.Join(c.reader.Close(), c.dlqWriter.Close())
}
