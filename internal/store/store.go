// Package store holds the current earthquake snapshot and fans it out to
// subscribers.
package store

import (
	"cmp"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/couchcryptid/quake-feed-service/internal/domain"
	"github.com/couchcryptid/quake-feed-service/internal/observability"
)

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	id     uint64
	fn     func([]domain.Event)
	active atomic.Bool
}

// Store is an observable holder of the latest event snapshot. Reads never
// block; Publish and Subscribe are serialized so every subscriber sees every
// snapshot exactly once and in publish order.
//
// Callbacks run on the publishing goroutine while the write lock is held. They
// must not call Publish or Subscribe; Unsubscribe is fine.
type Store struct {
	writeMu sync.Mutex
	current atomic.Pointer[[]domain.Event]
	nextID  uint64 // guarded by writeMu

	subsMu sync.RWMutex
	subs   map[uint64]*Subscription

	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates an empty store. metrics may be nil.
func New(logger *slog.Logger, metrics *observability.Metrics) *Store {
	s := &Store{
		subs:    make(map[uint64]*Subscription),
		logger:  logger,
		metrics: metrics,
	}
	empty := []domain.Event{}
	s.current.Store(&empty)
	return s
}

// Current returns a copy of the last published snapshot, or an empty slice if
// nothing has been published yet.
func (s *Store) Current() []domain.Event {
	return slices.Clone(*s.current.Load())
}

// Publish replaces the snapshot wholesale and notifies subscribers.
func (s *Store) Publish(events []domain.Event) {
	snapshot := slices.Clone(events)
	if snapshot == nil {
		snapshot = []domain.Event{}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.current.Store(&snapshot)
	if s.metrics != nil {
		s.metrics.SnapshotEvents.Set(float64(len(snapshot)))
	}

	for _, sub := range s.subscribers() {
		s.notify(sub, snapshot)
	}
}

// Subscribe registers fn and immediately calls it with the current snapshot.
// fn is then called again after every Publish until Unsubscribe.
func (s *Store) Subscribe(fn func([]domain.Event)) *Subscription {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.nextID++
	sub := &Subscription{id: s.nextID, fn: fn}
	sub.active.Store(true)

	s.subsMu.Lock()
	s.subs[sub.id] = sub
	s.setSubscriberGauge(len(s.subs))
	s.subsMu.Unlock()

	s.notify(sub, *s.current.Load())
	return sub
}

// Unsubscribe stops further notifications to sub. It is idempotent and may be
// called from inside the subscriber's own callback.
func (s *Store) Unsubscribe(sub *Subscription) {
	if sub == nil || !sub.active.Swap(false) {
		return
	}

	s.subsMu.Lock()
	delete(s.subs, sub.id)
	s.setSubscriberGauge(len(s.subs))
	s.subsMu.Unlock()
}

// SubscriberCount reports the number of active subscriptions.
func (s *Store) SubscriberCount() int {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	return len(s.subs)
}

// subscribers returns active subscriptions in registration order.
func (s *Store) subscribers() []*Subscription {
	s.subsMu.RLock()
	subs := make([]*Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.subsMu.RUnlock()

	slices.SortFunc(subs, func(a, b *Subscription) int {
		return cmp.Compare(a.id, b.id)
	})
	return subs
}

// notify delivers a private copy of snapshot. A panicking subscriber is logged
// and skipped so it cannot starve the others.
func (s *Store) notify(sub *Subscription, snapshot []domain.Event) {
	if !sub.active.Load() {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("subscriber panicked", "subscription", sub.id, "panic", r)
		}
	}()
	sub.fn(slices.Clone(snapshot))
}

func (s *Store) setSubscriberGauge(n int) {
	if s.metrics != nil {
		s.metrics.Subscribers.Set(float64(n))
	}
}
