package mq

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"brigade/internal/pkg/logger"
	"brigade/internal/pkg/metrics"
)

const dedupTTL = 24 * time.Hour

// Handler processes one consumed message. A non-nil error triggers a retry;
// after maxAttempts the message is dead-lettered.
type Handler func(ctx context.Context, msg kafka.Message) error

// Deduper remembers event ids whose handling completed. An id is recorded
// only after the handler succeeded: a redelivery of work that was cut short
// must reach the handler again, so the record never precedes the work.
type Deduper interface {
	Seen(ctx context.Context, eventID string) bool
	Record(ctx context.Context, eventID string)
}

// Consumer is the shared consume loop used by both services: fetch, skip
// already-handled events, hand off to the handler with bounded retries,
// dead-letter on exhaustion, commit.
type Consumer struct {
	reader      *kafka.Reader
	dlq         *kafka.Writer
	dedup       Deduper
	handler     Handler
	group       string
	maxAttempts int
}

func NewConsumer(reader *kafka.Reader, dlq *kafka.Writer, dedup *redis.Client, group string, handler Handler) *Consumer {
	c := &Consumer{
		reader:      reader,
		dlq:         dlq,
		handler:     handler,
		group:       group,
		maxAttempts: 3,
	}
	if dedup != nil {
		c.dedup = &redisDeduper{client: dedup, group: group}
	}
	return c
}

// Run consumes until ctx is cancelled. It always commits fetched messages:
// poison messages end up on the DLQ topic, never block the partition.
func (c *Consumer) Run(ctx context.Context) error {
	topic := c.reader.Config().Topic
	logger.Ctx(ctx).Info().Str("topic", topic).Str("group", c.group).Msg("consumer started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Ctx(ctx).Info().Str("topic", topic).Msg("consumer shutting down")
				return nil
			}
			logger.Ctx(ctx).Error().Err(err).Str("topic", topic).Msg("fetch failed, retrying")
			time.Sleep(time.Second)
			continue
		}

		c.process(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			logger.Ctx(ctx).Error().Err(err).Str("topic", topic).Msg("commit failed")
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	topic := msg.Topic
	metrics.EventsConsumed.WithLabelValues(topic).Inc()

	eventID := EventID(msg)
	if c.seen(ctx, eventID) {
		logger.Ctx(ctx).Debug().Str("topic", topic).Str("event_id", eventID).Msg("duplicate event skipped")
		return
	}

	var err error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err = c.handler(ctx, msg); err == nil {
			c.record(ctx, eventID)
			return
		}
		logger.Ctx(ctx).Error().Err(err).
			Str("topic", topic).
			Str("event_id", eventID).
			Int("attempt", attempt).
			Msg("event handling failed")
	}

	// Handling failed for good: no dedup record was written, so a redelivery
	// still reaches the handler. Dead-letter the raw message.
	c.deadLetter(ctx, msg)
}

func (c *Consumer) seen(ctx context.Context, eventID string) bool {
	if c.dedup == nil || eventID == "" {
		return false
	}
	return c.dedup.Seen(ctx, eventID)
}

func (c *Consumer) record(ctx context.Context, eventID string) {
	if c.dedup == nil || eventID == "" {
		return
	}
	c.dedup.Record(ctx, eventID)
}

func (c *Consumer) deadLetter(ctx context.Context, msg kafka.Message) {
	if c.dlq == nil {
		logger.Ctx(ctx).Error().Str("topic", msg.Topic).Msg("no DLQ configured, dropping poison message")
		return
	}
	err := c.dlq.WriteMessages(ctx, kafka.Message{Key: msg.Key, Value: msg.Value, Headers: msg.Headers})
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("topic", msg.Topic).Msg("dead-letter write failed")
		return
	}
	metrics.DeadLettered.WithLabelValues(msg.Topic).Inc()
	logger.Ctx(ctx).Warn().Str("topic", msg.Topic).Str("key", string(msg.Key)).Msg("message dead-lettered")
}

// redisDeduper is the fast-path replay filter. Redis is never authoritative:
// the domain-level checks stay in charge, so a lost key only costs one extra
// pass through an idempotent handler.
type redisDeduper struct {
	client *redis.Client
	group  string
}

func (d *redisDeduper) Seen(ctx context.Context, eventID string) bool {
	n, err := d.client.Exists(ctx, d.key(eventID)).Result()
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("dedup check failed, handling anyway")
		return false
	}
	return n > 0
}

func (d *redisDeduper) Record(ctx context.Context, eventID string) {
	if err := d.client.Set(ctx, d.key(eventID), 1, dedupTTL).Err(); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("dedup record failed")
	}
}

func (d *redisDeduper) key(eventID string) string {
	return "dedup:" + d.group + ":" + eventID
}
