package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/quake-feed-service/internal/domain"
	"github.com/couchcryptid/quake-feed-service/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// FeedFetcher retrieves and decodes the upstream feed.
type FeedFetcher interface {
	Fetch(ctx context.Context) (domain.WireFeed, error)
}

// Publisher receives each successfully mapped snapshot.
type Publisher interface {
	Publish(events []domain.Event)
}

// Coordinator runs fetch-decode-map-publish cycles. A failed cycle is logged
// and recorded but never returned to the caller, and it leaves the publisher
// untouched.
type Coordinator struct {
	fetcher   FeedFetcher
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics
	clock     clockwork.Clock

	stage atomic.Int32
	ready atomic.Bool
	last  atomic.Pointer[CycleResult]
}

// New creates a Coordinator. A nil clock uses the real clock; nil metrics
// are replaced by an unregistered set.
func New(f FeedFetcher, p Publisher, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock) *Coordinator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if metrics == nil {
		metrics = observability.NewMetricsForTesting()
	}
	return &Coordinator{
		fetcher:   f,
		publisher: p,
		logger:    logger,
		metrics:   metrics,
		clock:     clock,
	}
}

// Run performs exactly one cycle and reports how it ended.
func (c *Coordinator) Run(ctx context.Context) CycleResult {
	result := CycleResult{
		ID:        uuid.NewString(),
		StartedAt: c.clock.Now(),
	}
	logger := c.logger.With("cycle_id", result.ID)

	n, err := c.cycle(ctx)

	result.FinishedAt = c.clock.Now()
	if err != nil {
		result.Outcome = StageFailed
		result.ErrorKind = domain.ErrorKind(err)
		result.Error = err.Error()
		logger.Error("fetch cycle failed", "error", err, "kind", result.ErrorKind)
		c.metrics.FetchErrors.WithLabelValues(result.ErrorKind).Inc()
	} else {
		result.Outcome = StagePublished
		result.Events = n
		logger.Info("fetched earthquakes", "events", n, "duration", result.Duration())
		c.metrics.LastSuccess.Set(float64(result.FinishedAt.Unix()))
		c.ready.Store(true)
	}

	c.metrics.FetchCycles.WithLabelValues(result.Outcome.String()).Inc()
	c.metrics.FetchDuration.Observe(result.Duration().Seconds())
	c.last.Store(&result)
	c.stage.Store(int32(StageIdle))
	return result
}

// cycle moves through Fetching and Mapping. A panic in a collaborator is
// turned into an error so it is absorbed like any other failure.
func (c *Coordinator) cycle(ctx context.Context) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fetch cycle panic: %v", r)
		}
	}()

	c.stage.Store(int32(StageFetching))
	feed, err := c.fetcher.Fetch(ctx)
	if err != nil {
		return 0, err
	}

	c.stage.Store(int32(StageMapping))
	events := domain.MapFeed(feed)
	c.publisher.Publish(events)
	return len(events), nil
}

// Start runs one cycle immediately and then one per interval until ctx is
// cancelled. An interval of zero or less runs the initial cycle only.
func (c *Coordinator) Start(ctx context.Context, interval time.Duration) error {
	c.metrics.Refreshing.Set(1)
	defer c.metrics.Refreshing.Set(0)

	c.Run(ctx)
	if interval <= 0 {
		c.logger.Info("periodic refresh disabled")
		return nil
	}

	c.logger.Info("periodic refresh started", "interval", interval)
	ticker := c.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("periodic refresh stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			c.Run(ctx)
		}
	}
}

// Stage reports where the coordinator currently is in a cycle.
func (c *Coordinator) Stage() Stage {
	return Stage(c.stage.Load())
}

// LastCycle returns the result of the most recent cycle, if any.
func (c *Coordinator) LastCycle() (CycleResult, bool) {
	r := c.last.Load()
	if r == nil {
		return CycleResult{}, false
	}
	return *r, true
}

// CheckReadiness returns nil once a snapshot has been published.
func (c *Coordinator) CheckReadiness(_ context.Context) error {
	if c.ready.Load() {
		return nil
	}
	if last, ok := c.LastCycle(); ok && last.Error != "" {
		return fmt.Errorf("no snapshot published yet: last cycle failed: %s", last.Error)
	}
	return errors.New("no snapshot published yet")
}
