//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/quake-feed-service/internal/adapter/kafka"
	"github.com/couchcryptid/quake-feed-service/internal/config"
	"github.com/couchcryptid/quake-feed-service/internal/domain"
	"github.com/couchcryptid/quake-feed-service/internal/observability"
	"github.com/couchcryptid/quake-feed-service/internal/store"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const testTopic = "test-earthquake-events"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("quake-feed-test"),
	)
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// sinkMessage holds a deserialized message read from the sink topic.
type sinkMessage struct {
	Event   domain.Event
	Key     string
	Headers map[string]string
}

func readSinkMessage(ctx context.Context, t *testing.T, consumer *kafkago.Reader) sinkMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var event domain.Event
	require.NoError(t, json.Unmarshal(msg.Value, &event), "unmarshal sink message")

	return sinkMessage{Event: event, Key: string(msg.Key), Headers: headers}
}

// TestStoreSnapshotsReachKafka publishes two snapshots into the event store
// and reads them back from the sink topic.
func TestStoreSnapshotsReachKafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	cfg := &config.Config{
		KafkaEnabled: true,
		KafkaBrokers: []string{broker},
		KafkaTopic:   testTopic,
	}
	metrics := observability.NewMetricsForTesting()
	sink := kafka.NewSink(cfg, discardLogger(), metrics, nil)
	t.Cleanup(func() { _ = sink.Close() })

	st := store.New(discardLogger(), metrics)
	sub := st.Subscribe(sink.Notify)
	t.Cleanup(func() { st.Unsubscribe(sub) })

	runCtx, stopSink := context.WithCancel(ctx)
	defer stopSink()
	go func() { _ = sink.Run(runCtx) }()

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     testTopic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	ev1 := domain.Event{ID: "ev1", Magnitude: 2.5, Place: "10km N of X", OccurredAtMillis: 1700000000000, DetailURL: "https://e/ev1"}
	ev2 := domain.Event{ID: "ev2", Magnitude: 4.1, Place: "Y", OccurredAtMillis: 1700000001000, DetailURL: "https://e/ev2"}

	st.Publish([]domain.Event{ev1, ev2})

	first := readSinkMessage(ctx, t, consumer)
	second := readSinkMessage(ctx, t, consumer)
	assert.Equal(t, "ev1", first.Key)
	assert.Equal(t, ev1, first.Event)
	assert.Equal(t, "ev2", second.Key)
	assert.Equal(t, ev2, second.Event)
	assert.Equal(t, "2", first.Headers["snapshot_size"])
	assert.Equal(t, first.Headers["snapshot_id"], second.Headers["snapshot_id"])
	_, err := time.Parse(time.RFC3339, first.Headers["published_at"])
	assert.NoError(t, err)

	st.Publish([]domain.Event{ev2})

	third := readSinkMessage(ctx, t, consumer)
	assert.Equal(t, ev2, third.Event)
	assert.Equal(t, "1", third.Headers["snapshot_size"])
	assert.NotEqual(t, first.Headers["snapshot_id"], third.Headers["snapshot_id"])
}
