package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fjod/order-desk/internal/repository"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mu        sync.Mutex
	events    []*repository.OutboxEvent
	fetchErr  error
	markErr   error
	processed []int64
}

func (m *mockStore) GetUnprocessedEvents(context.Context, int) ([]*repository.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	var out []*repository.OutboxEvent
	done := map[int64]bool{}
	for _, id := range m.processed {
		done[id] = true
	}
	for _, ev := range m.events {
		if !done[ev.ID] {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (m *mockStore) MarkEventAsProcessed(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markErr != nil {
		return m.markErr
	}
	m.processed = append(m.processed, id)
	return nil
}

func (m *mockStore) processedIDs() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.processed...)
}

type mockWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	failKey  string
	closed   bool
}

func (w *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, m := range msgs {
		if string(m.Key) == w.failKey {
			return errors.New("broker unavailable")
		}
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *mockWriter) Close() error {
	w.closed = true
	return nil
}

func outboxEvent(id int64, orderID, eventType string) *repository.OutboxEvent {
	payload, _ := json.Marshal(repository.OrderEventPayload{OrderID: orderID, OrderNumber: "ORD-2026-000001"})
	return &repository.OutboxEvent{ID: id, AggregateID: orderID, EventType: eventType, Payload: payload, CreatedAt: time.Now()}
}

func TestProcessUnpublishedEvents_PublishesAndMarks(t *testing.T) {
	store := &mockStore{events: []*repository.OutboxEvent{
		outboxEvent(1, "o-1", repository.EventDraftSaved),
		outboxEvent(2, "o-1", repository.EventCheckedOut),
	}}
	writer := &mockWriter{}
	p := newPoller(store, writer, Config{}, nil)

	var published []string
	p.OnPublished(func(eventType string) { published = append(published, eventType) })

	p.processUnpublishedEvents(context.Background())

	require.Len(t, writer.messages, 2)
	assert.Equal(t, "o-1", string(writer.messages[0].Key))
	assert.Equal(t, "event_type", writer.messages[1].Headers[0].Key)
	assert.Equal(t, repository.EventCheckedOut, string(writer.messages[1].Headers[0].Value))
	assert.Equal(t, []int64{1, 2}, store.processedIDs())
	assert.Equal(t, []string{repository.EventDraftSaved, repository.EventCheckedOut}, published)
}

func TestProcessUnpublishedEvents_PublishFailureLeavesEventPending(t *testing.T) {
	store := &mockStore{events: []*repository.OutboxEvent{
		outboxEvent(1, "o-bad", repository.EventCheckedOut),
		outboxEvent(2, "o-2", repository.EventCheckedOut),
	}}
	p := newPoller(store, &mockWriter{failKey: "o-bad"}, Config{}, nil)

	p.processUnpublishedEvents(context.Background())

	assert.Equal(t, []int64{2}, store.processedIDs())
}

func TestProcessUnpublishedEvents_FetchError(t *testing.T) {
	writer := &mockWriter{}
	p := newPoller(&mockStore{fetchErr: errors.New("db down")}, writer, Config{}, nil)

	p.processUnpublishedEvents(context.Background())
	assert.Empty(t, writer.messages)
}

func TestProcessUnpublishedEvents_MarkErrorSkipsCallback(t *testing.T) {
	store := &mockStore{
		events:  []*repository.OutboxEvent{outboxEvent(1, "o-1", repository.EventCheckedOut)},
		markErr: errors.New("db down"),
	}
	p := newPoller(store, &mockWriter{}, Config{}, nil)
	called := false
	p.OnPublished(func(string) { called = true })

	p.processUnpublishedEvents(context.Background())
	assert.False(t, called)
}

func TestRun_StopsOnCancel(t *testing.T) {
	store := &mockStore{events: []*repository.OutboxEvent{outboxEvent(1, "o-1", repository.EventCheckedOut)}}
	writer := &mockWriter{}
	p := newPoller(store, writer, Config{Interval: 10 * time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return len(store.processedIDs()) == 1 }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
	require.NoError(t, p.Close())
	assert.True(t, writer.closed)
}
