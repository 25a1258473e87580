package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/quake-feed-service/internal/domain"
	"github.com/couchcryptid/quake-feed-service/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu      sync.Mutex
	batches [][]kafkago.Message
	err     error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, msgs)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func (f *fakeWriter) written() [][]kafkago.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]kafkago.Message(nil), f.batches...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testEvents = []domain.Event{
	{ID: "ev1", Magnitude: 4.5, Place: "10km N of Testville", OccurredAtMillis: 1700000000000, DetailURL: "https://example/ev1"},
	{ID: "ev2", Magnitude: 1.2, Place: "Elsewhere", OccurredAtMillis: 1700000000500, DetailURL: "https://example/ev2"},
}

func TestSerializeToMessage(t *testing.T) {
	at := time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)
	snap := snapshot{id: "snap-1", events: testEvents, publishedAt: at}

	msg, err := serializeToMessage(testEvents[0], snap)
	require.NoError(t, err)

	assert.Equal(t, []byte("ev1"), msg.Key)
	assert.JSONEq(t, `{"id":"ev1","magnitude":4.5,"place":"10km N of Testville","occurred_at_millis":1700000000000,"detail_url":"https://example/ev1"}`, string(msg.Value))
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "snapshot_id", msg.Headers[0].Key)
	assert.Equal(t, []byte("snap-1"), msg.Headers[0].Value)
	assert.Equal(t, "snapshot_size", msg.Headers[1].Key)
	assert.Equal(t, []byte("2"), msg.Headers[1].Value)
	assert.Equal(t, "published_at", msg.Headers[2].Key)
	assert.Equal(t, []byte(at.Format(time.RFC3339)), msg.Headers[2].Value)
}

func TestSink_NotifyKeepsNewest(t *testing.T) {
	s := newSink(&fakeWriter{}, discardLogger(), observability.NewMetricsForTesting(), nil)

	s.Notify(testEvents[:1])
	s.Notify(testEvents)
	s.Notify(testEvents[1:])

	require.Len(t, s.pending, 1)
	snap := <-s.pending
	assert.Equal(t, testEvents[1:], snap.events)
	assert.NotEmpty(t, snap.id)
}

func TestSink_RunWritesSnapshots(t *testing.T) {
	w := &fakeWriter{}
	metrics := observability.NewMetricsForTesting()
	s := newSink(w, discardLogger(), metrics, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	s.Notify(testEvents)
	require.Eventually(t, func() bool { return len(w.written()) == 1 }, time.Second, 5*time.Millisecond)

	batch := w.written()[0]
	require.Len(t, batch, 2)
	assert.Equal(t, []byte("ev1"), batch[0].Key)
	assert.Equal(t, []byte("ev2"), batch[1].Key)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.SinkMessages), 0)

	cancel()
	require.NoError(t, <-done)
}

func TestSink_SkipsEmptySnapshot(t *testing.T) {
	w := &fakeWriter{}
	s := newSink(w, discardLogger(), observability.NewMetricsForTesting(), nil)

	require.NoError(t, s.write(context.Background(), snapshot{id: "empty"}))
	assert.Empty(t, w.written())
}

func TestSink_WriteErrorIsCounted(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker unavailable")}
	metrics := observability.NewMetricsForTesting()
	s := newSink(w, discardLogger(), metrics, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	s.Notify(testEvents)
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.SinkErrors) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Zero(t, testutil.ToFloat64(metrics.SinkMessages))
}

func TestSink_PublishedAtUsesClock(t *testing.T) {
	w := &fakeWriter{}
	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.FixedZone("EST", -5*3600))
	s := newSink(w, discardLogger(), observability.NewMetricsForTesting(), clockwork.NewFakeClockAt(at))

	s.Notify(testEvents[:1])
	snap := <-s.pending
	require.NoError(t, s.write(context.Background(), snap))

	batch := w.written()[0]
	require.Len(t, batch, 1)
	assert.Equal(t, "published_at", batch[0].Headers[2].Key)
	assert.Equal(t, "2026-03-04T10:06:07Z", string(batch[0].Headers[2].Value))
}
