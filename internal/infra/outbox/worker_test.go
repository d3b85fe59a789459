package outbox_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayfinder/internal/app/handlers/notifications"
	appoutbox "stayfinder/internal/app/outbox"
	"stayfinder/internal/infra/outbox"
	"stayfinder/internal/infra/storage/memory"
)

type published struct {
	topic   string
	key     string
	payload []byte
	headers map[string]string
}

type fakeProducer struct {
	mu   sync.Mutex
	err  error
	sent []published
}

func (p *fakeProducer) Publish(_ context.Context, topic, key string, payload []byte, headers map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, published{topic: topic, key: key, payload: payload, headers: headers})
	return nil
}

func record(id, name string) appoutbox.EventRecord {
	return appoutbox.EventRecord{
		ID:         id,
		Name:       name,
		Payload:    []byte(`{"booking_id":"b1","guest_id":"g1"}`),
		OccurredAt: time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC),
		Aggregate:  "b1",
	}
}

func TestProcessOnceWrapsCloudEvent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewOutbox()
	require.NoError(t, store.Add(ctx, record("e1", "booking.requested")))
	producer := &fakeProducer{}
	worker := &outbox.Worker{Store: store, Producer: producer, TopicPrefix: "dev."}

	processed, err := worker.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.True(t, processed)
	require.Len(t, producer.sent, 1)

	msg := producer.sent[0]
	assert.Equal(t, "dev.booking.events.v1", msg.topic)
	assert.Equal(t, "b1", msg.key)
	assert.Equal(t, "application/cloudevents+json", msg.headers["content-type"])
	assert.Equal(t, "booking.requested", msg.headers["ce_type"])

	env, err := notifications.DecodeEnvelope(msg.payload)
	require.NoError(t, err)
	assert.Equal(t, "e1", env.ID)
	assert.Equal(t, "booking.requested.v1", env.Type)
	assert.JSONEq(t, `{"booking_id":"b1","guest_id":"g1"}`, string(env.Data))

	assert.Empty(t, store.Records())
	processed, err = worker.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestProcessOnceKeepsRecordOnPublishFailure(t *testing.T) {
	ctx := context.Background()
	store := memory.NewOutbox()
	require.NoError(t, store.Add(ctx, record("e1", "booking.confirmed")))
	producer := &fakeProducer{err: errors.New("broker unavailable")}
	worker := &outbox.Worker{Store: store, Producer: producer, Backoff: []time.Duration{time.Hour}}

	processed, err := worker.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.True(t, processed)
	require.Len(t, store.Records(), 1)

	// backoff keeps the record out of the next claim
	processed, err = worker.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestWorkerRequiresDependencies(t *testing.T) {
	_, err := (&outbox.Worker{}).ProcessOnce(context.Background())
	assert.ErrorIs(t, err, outbox.ErrWorkerNotConfigured)
	assert.ErrorIs(t, (&outbox.Worker{}).Run(context.Background()), outbox.ErrWorkerNotConfigured)
}

func TestRunDrainsUntilCancelled(t *testing.T) {
	store := memory.NewOutbox()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	for _, id := range []string{"e1", "e2", "e3"} {
		require.NoError(t, store.Add(ctx, record(id, "booking.requested")))
	}
	producer := &fakeProducer{}
	worker := &outbox.Worker{Store: store, Producer: producer, Interval: 5 * time.Millisecond}

	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	require.Eventually(t, func() bool { return len(store.Records()) == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	producer.mu.Lock()
	defer producer.mu.Unlock()
	assert.Len(t, producer.sent, 3)
}

func TestTopicFor(t *testing.T) {
	assert.Equal(t, "booking.events.v1", outbox.TopicFor("", "booking.requested"))
	assert.Equal(t, "prod.listing.events.v1", outbox.TopicFor("prod.", "listing.created"))
	assert.Equal(t, "plain.events.v1", outbox.TopicFor("", "plain"))
}
