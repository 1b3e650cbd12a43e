package bus

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Memory is an in-process bus. Publish delivers to subscribers
// synchronously, in subscription order, and keeps a log of every message
// for inspection.
type Memory struct {
	mu     sync.Mutex
	subs   map[string][]*memorySub
	log    []*Message
	closed bool
	nextID int

	sent     atomic.Int64
	received atomic.Int64
}

type memorySub struct {
	id    int
	topic string
	h     Handler
	bus   *Memory
}

// NewMemory creates an empty in-process bus.
func NewMemory() *Memory {
	return &Memory{subs: make(map[string][]*memorySub)}
}

// Publish implements Publisher.
func (b *Memory) Publish(ctx context.Context, topic string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := NewMessage(topic, payload)
	if err != nil {
		return err
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	b.log = append(b.log, msg)
	subs := append([]*memorySub(nil), b.subs[topic]...)
	b.mu.Unlock()

	b.sent.Add(1)
	for _, s := range subs {
		b.received.Add(1)
		s.h(msg)
	}
	return nil
}

// Subscribe implements Subscriber.
func (b *Memory) Subscribe(_ context.Context, topic string, h Handler) (Subscription, error) {
	if h == nil {
		return nil, fmt.Errorf("subscribe %s: nil handler", topic)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	b.nextID++
	s := &memorySub{id: b.nextID, topic: topic, h: h, bus: b}
	b.subs[topic] = append(b.subs[topic], s)
	return s, nil
}

func (s *memorySub) Close() error {
	b := s.bus
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[s.topic]
	for i, other := range subs {
		if other.id == s.id {
			b.subs[s.topic] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	return nil
}

// Published returns the messages published on topic, oldest first.
func (b *Memory) Published(topic string) []*Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*Message
	for _, m := range b.log {
		if m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}

// All returns every published message, oldest first.
func (b *Memory) All() []*Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Message(nil), b.log...)
}

// Reset clears the message log.
func (b *Memory) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.log = nil
}

// Stats implements Bus.
func (b *Memory) Stats() Stats {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	return Stats{
		Connected:        !closed,
		MessagesSent:     b.sent.Load(),
		MessagesReceived: b.received.Load(),
	}
}

// Close implements Bus.
func (b *Memory) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = make(map[string][]*memorySub)
	return nil
}
