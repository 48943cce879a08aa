package events

import "sync"

// Bus fans published messages out to subscriptions. Publish never blocks:
// each subscription owns an unbounded FIFO drained by its own dispatch
// goroutine, so a slow consumer delays only itself and sees messages in
// publish order. Consumers deal with slowness through the activation
// sequence staleness check, not through backpressure on the publisher.
type Bus struct {
	mu     sync.Mutex
	subs   []*Subscription
	closed bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Publish enqueues the message for every current subscription.
func (b *Bus) Publish(msg Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, sub := range b.subs {
		sub.enqueue(msg)
	}
}

// Subscribe registers a new subscription. The caller must drain C or call
// Close on the subscription when done; an abandoned subscription leaks its
// dispatch goroutine.
func (b *Bus) Subscribe() *Subscription {
	sub := newSubscription(b)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		sub.shutdown()
		return sub
	}
	b.subs = append(b.subs, sub)
	return sub
}

func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s == sub {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Close shuts the bus down and closes every subscription. Pending
// messages are still delivered.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	for _, sub := range subs {
		sub.shutdown()
	}
}

// Subscription delivers bus messages in publish order on C. C is closed
// after Close (or Bus.Close) once all messages enqueued before the close
// have been delivered.
type Subscription struct {
	// C carries the messages.
	C <-chan Message

	bus *Bus
	ch  chan Message

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Message
	closed bool
}

func newSubscription(b *Bus) *Subscription {
	s := &Subscription{
		bus: b,
		ch:  make(chan Message),
	}
	s.C = s.ch
	s.cond = sync.NewCond(&s.mu)
	go s.dispatch()
	return s
}

func (s *Subscription) enqueue(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.queue = append(s.queue, msg)
	s.cond.Signal()
}

func (s *Subscription) dispatch() {
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if len(s.queue) == 0 && s.closed {
			s.mu.Unlock()
			close(s.ch)
			return
		}
		msg := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.ch <- msg
	}
}

// Close detaches the subscription from the bus. Messages already enqueued
// are still delivered, then C is closed. The consumer must keep draining C
// until it closes.
func (s *Subscription) Close() {
	s.bus.unsubscribe(s)
	s.shutdown()
}

func (s *Subscription) shutdown() {
	s.mu.Lock()
	s.closed = true
	s.cond.Signal()
	s.mu.Unlock()
}
