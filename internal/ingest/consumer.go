// Package ingest consumes entity events from kafka and feeds them to the engine.
package ingest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/grcwatch/notify-engine/internal/errors"
	"github.com/grcwatch/notify-engine/internal/logger"
	"github.com/grcwatch/notify-engine/internal/notify"
	"github.com/segmentio/kafka-go"
)

// Handler receives decoded events.
type Handler interface {
	TriggerEvent(ctx context.Context, ev notify.Event) (notify.TriggerResult, error)
	TriggerApprovalNotification(ctx context.Context, n notify.ApprovalNotice) (notify.TriggerResult, error)
}

// Reader is the subset of *kafka.Reader the consumer uses.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Envelope is the wire format of a topic message. Approval, when present,
// takes precedence over the lifecycle event fields.
type Envelope struct {
	notify.Event
	Approval *notify.ApprovalNotice `json:"approval,omitempty"`
}

// Config for NewKafkaReader.
type Config struct {
	Brokers []string
	Topic   string
	GroupID string
}

// NewKafkaReader creates a consumer-group reader for cfg.
func NewKafkaReader(cfg Config) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0,
		StartOffset:    kafka.FirstOffset,
	})
}

// Options tune retries of transient handler failures. Only failures that
// created no notification are retried.
type Options struct {
	MaxAttempts  int
	RetryBackoff time.Duration
}

// Consumer reads envelopes and commits each one once handled. Malformed
// messages and validation failures are logged and committed so they never
// block the partition.
type Consumer struct {
	reader  Reader
	handler Handler
	opts    Options
	log     logger.Logger
}

// NewConsumer creates a consumer.
func NewConsumer(reader Reader, handler Handler, opts Options, log logger.Logger) *Consumer {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 500 * time.Millisecond
	}
	return &Consumer{reader: reader, handler: handler, opts: opts, log: log.Module("ingest")}
}

// Run consumes until ctx is canceled, then closes the reader.
func (c *Consumer) Run(ctx context.Context) error {
	defer func() {
		if err := c.reader.Close(); err != nil {
			c.log.Warn("failed to close kafka reader", logger.Error(err))
		}
	}()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.New(err).
				Component("ingest").
				Category(errors.CategoryNetwork).
				Build()
		}

		c.handleMessage(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Error("failed to commit message",
				logger.Int64("offset", msg.Offset),
				logger.Int("partition", msg.Partition),
				logger.Error(err))
		}
	}
}

func (c *Consumer) handleMessage(ctx context.Context, msg kafka.Message) {
	var env Envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		c.log.Warn("dropping malformed message",
			logger.Int64("offset", msg.Offset),
			logger.Int("partition", msg.Partition),
			logger.Error(err))
		return
	}

	backoff := c.opts.RetryBackoff
	for attempt := 1; ; attempt++ {
		res, err := c.dispatch(ctx, &env)
		if err == nil {
			c.log.Debug("message handled",
				logger.Int64("offset", msg.Offset),
				logger.Int("notifications_created", res.NotificationsCreated))
			return
		}
		// Never replay a fan-out that already left a trace.
		if !retryable(err) || res.Touched() || attempt >= c.opts.MaxAttempts {
			c.log.Error("dropping message after handler failure",
				logger.Int64("offset", msg.Offset),
				logger.Int("attempts", attempt),
				logger.Error(err))
			return
		}
		c.log.Warn("retrying message",
			logger.Int64("offset", msg.Offset),
			logger.Int("attempt", attempt),
			logger.Duration("backoff", backoff),
			logger.Error(err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
			backoff *= 2
		}
	}
}

func (c *Consumer) dispatch(ctx context.Context, env *Envelope) (notify.TriggerResult, error) {
	if env.Approval != nil {
		return c.handler.TriggerApprovalNotification(ctx, *env.Approval)
	}
	if env.EntityType == "" || env.EventType == "" {
		return notify.TriggerResult{}, errors.Newf("event requires entityType and eventType").
			Component("ingest").
			Category(errors.CategoryValidation).
			Build()
	}
	return c.handler.TriggerEvent(ctx, env.Event)
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		switch ee.GetCategory() {
		case errors.CategoryValidation, errors.CategoryDelivery:
			return false
		}
	}
	return true
}
