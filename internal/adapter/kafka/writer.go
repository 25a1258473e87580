package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/quake-feed-service/internal/config"
	"github.com/couchcryptid/quake-feed-service/internal/domain"
	"github.com/couchcryptid/quake-feed-service/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafkago.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// snapshot is one published event list awaiting delivery.
type snapshot struct {
	id          string
	events      []domain.Event
	publishedAt time.Time
}

// Sink republishes event store snapshots to a Kafka topic, one message per
// event. Notify is the store callback; Run does the writing so Kafka latency
// never blocks a publish. Only the newest undelivered snapshot is kept.
//
// An empty snapshot produces no messages: the topic carries events, not feed
// state, so consumers cannot tell from it that the feed went quiet.
type Sink struct {
	writer  messageWriter
	pending chan snapshot
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewSink creates a Kafka producer for the configured topic. clock stamps the
// published_at header; nil uses the real clock.
func NewSink(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock) *Sink {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return newSink(w, logger, metrics, clock)
}

func newSink(w messageWriter, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock) *Sink {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Sink{
		writer:  w,
		pending: make(chan snapshot, 1),
		clock:   clock,
		logger:  logger,
		metrics: metrics,
	}
}

// Notify queues events for delivery, replacing any snapshot not yet written.
func (s *Sink) Notify(events []domain.Event) {
	snap := snapshot{id: uuid.NewString(), events: events, publishedAt: s.clock.Now().UTC()}
	for {
		select {
		case s.pending <- snap:
			return
		default:
		}
		select {
		case dropped := <-s.pending:
			s.logger.Debug("kafka sink superseded snapshot", "snapshot_id", dropped.id)
		default:
		}
	}
}

// Run delivers queued snapshots until ctx is cancelled.
func (s *Sink) Run(ctx context.Context) error {
	s.logger.Info("kafka sink started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("kafka sink stopping", "reason", ctx.Err())
			return nil
		case snap := <-s.pending:
			if err := s.write(ctx, snap); err != nil {
				s.logger.Error("kafka sink write failed", "error", err,
					"snapshot_id", snap.id, "events", len(snap.events))
				s.metrics.SinkErrors.Inc()
			}
		}
	}
}

func (s *Sink) write(ctx context.Context, snap snapshot) error {
	if len(snap.events) == 0 {
		s.logger.Debug("kafka sink skipping empty snapshot", "snapshot_id", snap.id)
		return nil
	}

	msgs := make([]kafkago.Message, len(snap.events))
	for i := range snap.events {
		msg, err := serializeToMessage(snap.events[i], snap)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := s.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d messages: %w", len(msgs), err)
	}
	s.metrics.SinkMessages.Add(float64(len(msgs)))
	return nil
}

// Close flushes and closes the underlying producer.
func (s *Sink) Close() error {
	return s.writer.Close()
}

// serializeToMessage marshals an Event into a Kafka message keyed by event ID.
func serializeToMessage(event domain.Event, snap snapshot) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "snapshot_id", Value: []byte(snap.id)},
			{Key: "snapshot_size", Value: []byte(strconv.Itoa(len(snap.events)))},
			{Key: "published_at", Value: []byte(snap.publishedAt.Format(time.RFC3339))},
		},
	}, nil
}
