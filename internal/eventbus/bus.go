// Package eventbus implements the Event Bus component: a bounded,
// multi-subscriber broadcast of models.UIEvent. It is grounded on the
// teacher's internal/agent/event_sink.go BackpressureSink (two-lane
// high/low-priority channel merge, atomic dropped-event counter),
// generalized from one merged output channel to one per subscriber so
// multiple UI consumers (or tests) can subscribe independently.
package eventbus

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/CriticalRange/arula-cli-sub001/pkg/models"
)

// DefaultCapacity is the per-lane buffer size a Subscribe call uses when
// the caller does not request a specific one. spec.md section 9 keeps
// this configurable rather than fixed; 128 is the default it names.
const DefaultCapacity = 128

// Bus fans out published UIEvents to every current subscriber.
type Bus struct {
	mu      sync.Mutex
	subs    map[int]*subscriber
	nextID  int
	dropped uint64
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{subs: make(map[int]*subscriber)}
}

// Subscription is a live registration on the Bus. Events delivers the
// merged, priority-ordered stream for this subscriber; Unsubscribe stops
// delivery and releases the subscriber's buffers.
type Subscription struct {
	id     int
	bus    *Bus
	Events <-chan models.UIEvent
}

// Subscribe registers a new subscriber with the default capacity.
func (b *Bus) Subscribe() *Subscription {
	return b.SubscribeWithCapacity(DefaultCapacity)
}

// SubscribeWithCapacity registers a new subscriber with an explicit
// per-lane buffer size.
func (b *Bus) SubscribeWithCapacity(capacity int) *Subscription {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	sub := newSubscriber(capacity)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = sub
	b.mu.Unlock()

	return &Subscription{id: id, bus: b, Events: sub.merged}
}

// Unsubscribe removes the subscription and closes its channel. Safe to
// call more than once.
func (s *Subscription) Unsubscribe() {
	s.bus.mu.Lock()
	sub, ok := s.bus.subs[s.id]
	delete(s.bus.subs, s.id)
	s.bus.mu.Unlock()
	if ok {
		sub.close()
	}
}

// Publish fans ev out to every current subscriber. StreamStarted,
// ToolCallStart, ToolCallResult, StreamFinished, and StreamErrored are
// non-droppable and block briefly against ctx if a subscriber's
// high-priority lane is full; Token, Thinking, and BashOutputLine are
// droppable and are silently dropped for a slow subscriber instead of
// stalling the publisher. A send with no subscribers at all is a no-op.
func (b *Bus) Publish(ctx context.Context, ev models.UIEvent) {
	b.mu.Lock()
	subs := make([]*subscriber, 0, len(b.subs))
	for _, s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		if s.emit(ctx, ev) {
			atomic.AddUint64(&b.dropped, 1)
		}
	}
}

// DroppedCount reports the total number of droppable events dropped
// across all subscribers, for metrics.DroppedEvents.
func (b *Bus) DroppedCount() uint64 {
	return atomic.LoadUint64(&b.dropped)
}

func isDroppable(ev models.UIEvent) bool {
	switch ev.(type) {
	case models.Token, models.Thinking, models.BashOutputLine:
		return true
	default:
		return false
	}
}

type subscriber struct {
	highPri chan models.UIEvent
	lowPri  chan models.UIEvent
	merged  chan models.UIEvent
	once    sync.Once
}

func newSubscriber(capacity int) *subscriber {
	s := &subscriber{
		highPri: make(chan models.UIEvent, capacity),
		lowPri:  make(chan models.UIEvent, capacity),
		merged:  make(chan models.UIEvent, capacity),
	}
	go s.mergeLoop()
	return s
}

// mergeLoop drains highPri ahead of lowPri whenever both are ready, so a
// burst of droppable Token events never delays a StreamFinished.
func (s *subscriber) mergeLoop() {
	defer close(s.merged)
	for {
		select {
		case e, ok := <-s.highPri:
			if !ok {
				s.drainLowPri()
				return
			}
			s.merged <- e
			continue
		default:
		}

		select {
		case e, ok := <-s.highPri:
			if !ok {
				s.drainLowPri()
				return
			}
			s.merged <- e
		case e, ok := <-s.lowPri:
			if ok {
				s.merged <- e
			}
		}
	}
}

func (s *subscriber) drainLowPri() {
	for e := range s.lowPri {
		s.merged <- e
	}
}

func (s *subscriber) emit(ctx context.Context, ev models.UIEvent) (dropped bool) {
	if isDroppable(ev) {
		select {
		case s.lowPri <- ev:
			return false
		default:
			return true
		}
	}

	select {
	case s.highPri <- ev:
		return false
	case <-ctx.Done():
		select {
		case s.highPri <- ev:
			return false
		default:
			return true
		}
	}
}

func (s *subscriber) close() {
	s.once.Do(func() {
		close(s.highPri)
		close(s.lowPri)
	})
}
