// Package eventbus implements the typed, multi-subscriber, in-process
// broadcast spec.md §4.5 describes: each subscriber owns a bounded queue,
// publish never blocks the publisher, and delivery is per-subscriber FIFO
// with cross-subscriber interleaving left unspecified. Grounded on
// original_source's crates/core/src/helpers/event_helper.rs (EventBus
// creation, broadcast, Destroy lifecycle) and on golang.org/x/sync's
// cooperative-scheduling idiom (errgroup) for running subscriber loops.
package eventbus

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
)

// Event is any payload broadcastable on the bus. Runtime defines the
// concrete event types (Applied, Undo, Redo, Jump, Destroy); the bus
// itself is payload-agnostic.
type Event interface{}

// Destroy is broadcast once, immediately before the bus shuts down (spec.md
// §4.5: "On shutdown, a Destroy event is broadcast and queues drained with
// a configurable timeout").
type Destroy struct{}

// Subscription is the handle returned by Subscribe; Unsubscribe stops
// delivery and releases the subscriber's queue.
type Subscription struct {
	id     ulid.ULID
	bus    *Bus
	events chan Event
	drops  atomic.Uint64
	done   chan struct{}
}

// ID identifies this subscription, stable for its lifetime. It is a ULID
// (time-sortable, spec.md §6.4's subscribe returns a SubscriptionId) rather
// than a bare counter, so subscription ids order the same way across bus
// restarts without any shared counter to persist.
func (s *Subscription) ID() ulid.ULID { return s.id }

// Events is the channel subscribers read from. It closes once the bus has
// finished draining after Destroy.
func (s *Subscription) Events() <-chan Event { return s.events }

// Dropped reports how many events this subscriber has lost to queue
// overflow (spec.md §4.5: "a per-subscriber drop counter increments").
func (s *Subscription) Dropped() uint64 { return s.drops.Load() }

// Unsubscribe stops delivery to this subscriber and releases its queue.
func (s *Subscription) Unsubscribe() {
	s.bus.remove(s.id)
}

// Bus is a typed, multi-subscriber broadcast hub. The zero value is not
// usable; construct with New.
type Bus struct {
	capacity int
	onDrop   func()

	register   chan *Subscription
	unregister chan ulid.ULID
	publish    chan Event
	destroyed  chan struct{}

	group *errgroup.Group
}

// Option configures optional Bus behavior beyond queue capacity.
type Option func(*Bus)

// WithDropHook registers fn to be called once per dropped event, in
// addition to the per-subscriber Dropped() counter. Used to feed a process-
// wide metrics.Collector without the bus itself depending on any specific
// metrics backend.
func WithDropHook(fn func()) Option {
	return func(b *Bus) { b.onDrop = fn }
}

// New starts a Bus whose subscriber queues each hold up to capacity events
// before the oldest is dropped.
func New(capacity int, opts ...Option) *Bus {
	if capacity <= 0 {
		capacity = 1
	}
	b := &Bus{
		capacity:   capacity,
		register:   make(chan *Subscription),
		unregister: make(chan ulid.ULID),
		publish:    make(chan Event, 64),
		destroyed:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	g, _ := errgroup.WithContext(context.Background())
	b.group = g
	g.Go(b.run)
	return b
}

// Subscribe registers a new subscriber with its own bounded queue.
func (b *Bus) Subscribe() *Subscription {
	sub := &Subscription{
		id:     ulid.Make(),
		bus:    b,
		events: make(chan Event, b.capacity),
		done:   make(chan struct{}),
	}
	select {
	case b.register <- sub:
	case <-b.destroyed:
		close(sub.events)
	}
	return sub
}

func (b *Bus) remove(id ulid.ULID) {
	select {
	case b.unregister <- id:
	case <-b.destroyed:
	}
}

// Publish is non-blocking: it hands the event to the bus's internal
// dispatch loop, which fans it out to every subscriber's own queue,
// dropping that subscriber's oldest event on overflow (spec.md §4.5).
// Publish itself never blocks on a slow subscriber.
func (b *Bus) Publish(e Event) {
	select {
	case b.publish <- e:
	case <-b.destroyed:
	}
}

// run is the bus's single dispatch loop: one cooperative task owns the
// subscriber map, so registration, unregistration, and fan-out never race.
func (b *Bus) run() error {
	subs := map[ulid.ULID]*Subscription{}
	for {
		select {
		case sub := <-b.register:
			subs[sub.id] = sub
		case id := <-b.unregister:
			if sub, ok := subs[id]; ok {
				close(sub.events)
				delete(subs, id)
			}
		case e := <-b.publish:
			for _, sub := range subs {
				b.deliverNonBlocking(sub, e)
			}
		case <-b.destroyed:
			// flush anything already queued (the Destroy event itself was
			// published just before b.destroyed closed) before tearing
			// down subscriber queues.
		drain:
			for {
				select {
				case e := <-b.publish:
					for _, sub := range subs {
						b.deliverNonBlocking(sub, e)
					}
				default:
					break drain
				}
			}
			for id, sub := range subs {
				close(sub.events)
				delete(subs, id)
			}
			return nil
		}
	}
}

// deliverNonBlocking enqueues e for sub, dropping the oldest queued event
// for that subscriber alone if its queue is full (spec.md §4.5: "the
// oldest event for that subscriber only is dropped").
func (b *Bus) deliverNonBlocking(sub *Subscription, e Event) {
	select {
	case sub.events <- e:
		return
	default:
	}
	select {
	case <-sub.events:
		sub.drops.Inc()
		if b.onDrop != nil {
			b.onDrop()
		}
	default:
	}
	select {
	case sub.events <- e:
	default:
	}
}

// Destroy broadcasts a Destroy event, then drains and closes every
// subscriber queue, waiting up to timeout for the dispatch loop to settle.
func (b *Bus) Destroy(timeout time.Duration) {
	b.Publish(Destroy{})
	close(b.destroyed)
	done := make(chan struct{})
	go func() {
		_ = b.group.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
	}
}
