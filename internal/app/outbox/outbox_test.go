package outbox

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayfinder/internal/domain/shared/events"
)

type pinged struct {
	Who string    `json:"who"`
	At  time.Time `json:"at"`
}

func (e pinged) EventName() string     { return "test.pinged" }
func (e pinged) AggregateID() string   { return e.Who }
func (e pinged) OccurredAt() time.Time { return e.At }

type sliceOutbox struct {
	records []EventRecord
}

func (s *sliceOutbox) Add(_ context.Context, rec EventRecord) error {
	s.records = append(s.records, rec)
	return nil
}

func (s *sliceOutbox) Flush(context.Context) error { return nil }

type aggregate struct {
	events.EventRecorder
}

func TestPublishDrainsRecorders(t *testing.T) {
	at := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	first, second := &aggregate{}, &aggregate{}
	first.Record(pinged{Who: "a", At: at})
	second.Record(pinged{Who: "b", At: at})

	box := &sliceOutbox{}
	encoder := JSONEventEncoder{IDGenerator: func() string { return "evt-1" }}
	require.NoError(t, Publish(context.Background(), box, encoder, first, second))

	require.Len(t, box.records, 2)
	assert.Equal(t, "test.pinged", box.records[0].Name)
	assert.Equal(t, "a", box.records[0].Aggregate)
	assert.Equal(t, "evt-1", box.records[0].ID)
	assert.Equal(t, "b", box.records[1].Aggregate)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(box.records[0].Payload, &payload))
	assert.Equal(t, "a", payload["who"])

	assert.Empty(t, first.PendingEvents())
	assert.Empty(t, second.PendingEvents())
}

func TestRecordDomainEventsNilOutbox(t *testing.T) {
	assert.NoError(t, RecordDomainEvents(context.Background(), nil, nil, []events.DomainEvent{pinged{}}))
}
