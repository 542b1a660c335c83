// Package watch is the subscription fabric: it fans live snapshots out to
// any number of subscribers without polling. A subscriber receives the
// current value immediately and a fresh value after every publish. Delivery
// conflates: a slow subscriber skips straight to the latest snapshot and a
// publisher never blocks on a subscriber.
package watch

import "sync"

type Feed[T any] struct {
	mu      sync.Mutex
	current T
	primed  bool
	closed  bool
	subs    map[*Subscription[T]]struct{}
}

func NewFeed[T any]() *Feed[T] {
	return &Feed[T]{subs: make(map[*Subscription[T]]struct{})}
}

// Publish replaces the feed's current value and offers it to every
// subscriber. A no-op after Close.
func (f *Feed[T]) Publish(v T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.current = v
	f.primed = true
	for sub := range f.subs {
		sub.offer(v)
	}
}

// Latest returns the most recently published value, if any.
func (f *Feed[T]) Latest() (T, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current, f.primed
}

// Subscribe registers a new subscriber. If the feed already holds a value it
// is delivered immediately. Subscribing to a closed feed yields a
// subscription whose channel is already closed.
func (f *Feed[T]) Subscribe() *Subscription[T] {
	sub := &Subscription[T]{feed: f, ch: make(chan T, 1)}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		sub.done = true
		close(sub.ch)
		return sub
	}
	f.subs[sub] = struct{}{}
	if f.primed {
		sub.offer(f.current)
	}
	return sub
}

// Close terminates all subscriptions. Further publishes are dropped.
func (f *Feed[T]) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for sub := range f.subs {
		sub.done = true
		close(sub.ch)
		delete(f.subs, sub)
	}
}

type Subscription[T any] struct {
	feed *Feed[T]
	ch   chan T
	done bool // guarded by feed.mu
}

// C is the delivery channel. It carries the current snapshot on
// subscription, then one value per relevant committed write, and is closed
// by Cancel or by the feed shutting down.
func (s *Subscription[T]) C() <-chan T {
	return s.ch
}

// Cancel stops delivery and closes the channel. Safe to call twice.
func (s *Subscription[T]) Cancel() {
	s.feed.mu.Lock()
	defer s.feed.mu.Unlock()
	if s.done {
		return
	}
	delete(s.feed.subs, s)
	s.done = true
	close(s.ch)
}

// offer swaps out any undelivered value so the channel always holds the
// latest snapshot. Callers hold feed.mu, so offers never race each other;
// the loop covers a concurrent receive by the subscriber.
func (s *Subscription[T]) offer(v T) {
	for {
		select {
		case s.ch <- v:
			return
		default:
			select {
			case <-s.ch:
			default:
			}
		}
	}
}
