package mq

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDeduper struct {
	seen     map[string]bool
	recorded []string
}

func newFakeDeduper() *fakeDeduper {
	return &fakeDeduper{seen: map[string]bool{}}
}

func (d *fakeDeduper) Seen(ctx context.Context, eventID string) bool {
	return d.seen[eventID]
}

func (d *fakeDeduper) Record(ctx context.Context, eventID string) {
	d.seen[eventID] = true
	d.recorded = append(d.recorded, eventID)
}

func message(eventID string) kafka.Message {
	return kafka.Message{
		Topic:   "order-creation",
		Key:     []byte("42"),
		Value:   []byte(`{}`),
		Headers: []kafka.Header{{Key: EventIDHeader, Value: []byte(eventID)}},
	}
}

func testConsumer(dedup Deduper, handler Handler) *Consumer {
	return &Consumer{dedup: dedup, handler: handler, group: "test-group", maxAttempts: 3}
}

func TestProcessRecordsDedupOnlyAfterSuccess(t *testing.T) {
	dedup := newFakeDeduper()
	calls := 0
	c := testConsumer(dedup, func(ctx context.Context, msg kafka.Message) error {
		calls++
		return nil
	})

	c.process(context.Background(), message("evt-1"))
	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"evt-1"}, dedup.recorded)

	// The recorded id short-circuits a redelivery.
	c.process(context.Background(), message("evt-1"))
	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"evt-1"}, dedup.recorded)
}

func TestProcessFailedHandlingLeavesNoDedupRecord(t *testing.T) {
	dedup := newFakeDeduper()
	calls := 0
	c := testConsumer(dedup, func(ctx context.Context, msg kafka.Message) error {
		calls++
		return errors.New("db unavailable")
	})

	c.process(context.Background(), message("evt-1"))
	assert.Equal(t, 3, calls, "bounded retries before giving up")
	assert.Empty(t, dedup.recorded, "incomplete work must not be remembered as done")
}

func TestProcessRedeliveryAfterInterruptedHandlingReachesHandler(t *testing.T) {
	// An earlier delivery that never completed left no dedup record, so the
	// redelivered message must be handled, not skipped as a duplicate.
	dedup := newFakeDeduper()
	failing := testConsumer(dedup, func(ctx context.Context, msg kafka.Message) error {
		return errors.New("cut short")
	})
	failing.process(context.Background(), message("evt-1"))
	require.Empty(t, dedup.recorded)

	handled := false
	retrying := testConsumer(dedup, func(ctx context.Context, msg kafka.Message) error {
		handled = true
		return nil
	})
	retrying.process(context.Background(), message("evt-1"))
	assert.True(t, handled)
	assert.Equal(t, []string{"evt-1"}, dedup.recorded)
}

func TestProcessWithoutEventIDAlwaysHandles(t *testing.T) {
	dedup := newFakeDeduper()
	calls := 0
	c := testConsumer(dedup, func(ctx context.Context, msg kafka.Message) error {
		calls++
		return nil
	})

	msg := kafka.Message{Topic: "order-creation", Value: []byte(`{}`)}
	c.process(context.Background(), msg)
	c.process(context.Background(), msg)
	assert.Equal(t, 2, calls)
	assert.Empty(t, dedup.recorded, "unidentified events are never deduplicated")
}
