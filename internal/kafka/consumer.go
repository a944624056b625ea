package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/jonas9200/clima-AGS/internal/config"
	"github.com/jonas9200/clima-AGS/pkg/telemetry"
)

// MessageHandler stores one decoded, validated reading.
type MessageHandler func(ctx context.Context, r telemetry.Reading) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads telemetry readings from a Kafka topic as part of a
// consumer group. Offsets are committed after each message is handled,
// whether or not it was stored.
type Consumer struct {
	reader  messageReader
	handler MessageHandler
	logger  *slog.Logger
	poll    time.Duration

	topic   string
	groupID string
	brokers []string
}

func NewConsumer(cfg config.Config, handler MessageHandler, logger *slog.Logger) (*Consumer, error) {
	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}
	if strings.TrimSpace(cfg.KafkaTopic) == "" {
		return nil, errors.New("kafka topic must not be empty")
	}
	if handler == nil {
		return nil, errors.New("kafka handler must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.KafkaBrokers,
		GroupID:     cfg.KafkaGroupID,
		Topic:       cfg.KafkaTopic,
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})

	c := newConsumer(reader, handler, logger)
	c.topic = cfg.KafkaTopic
	c.groupID = cfg.KafkaGroupID
	c.brokers = cfg.KafkaBrokers
	return c, nil
}

func newConsumer(reader messageReader, handler MessageHandler, logger *slog.Logger) *Consumer {
	return &Consumer{
		reader:  reader,
		handler: handler,
		logger:  logger.With("component", "kafka"),
		poll:    5 * time.Second,
	}
}

// Run consumes until ctx is cancelled or the reader is closed.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("kafka consumer started",
		"topic", c.topic,
		"group", c.groupID,
		"brokers", strings.Join(c.brokers, ","),
	)
	defer c.logger.Info("kafka consumer stopped")

	for {
		if ctx.Err() != nil {
			return nil
		}

		fetchCtx, cancel := context.WithTimeout(ctx, c.poll)
		msg, err := c.reader.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			switch {
			case errors.Is(err, context.DeadlineExceeded):
				continue
			case errors.Is(err, context.Canceled):
				if ctx.Err() != nil {
					return nil
				}
				continue
			case errors.Is(err, io.EOF), errors.Is(err, io.ErrClosedPipe), errors.Is(err, kafka.ErrGroupClosed):
				return nil
			}
			c.logger.Error("kafka fetch failed", "error", err)
			continue
		}

		c.handle(ctx, msg)

		commitCtx, commitCancel := context.WithTimeout(ctx, c.poll)
		if err := c.reader.CommitMessages(commitCtx, msg); err != nil {
			if !(errors.Is(err, context.Canceled) && ctx.Err() != nil) {
				c.logger.Error("kafka commit failed", "offset", msg.Offset, "error", err)
			}
		}
		commitCancel()
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	reading, err := telemetry.Decode(msg.Value)
	if err != nil {
		c.logger.Warn("dropping telemetry message",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
		return
	}
	if err := c.handler(ctx, reading); err != nil {
		c.logger.Error("message handler failed",
			"offset", msg.Offset,
			"equipamento", reading.DeviceID,
			"error", err,
		)
	}
}

func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}
