package telemetry

import (
	"fmt"
	"sync"
	"sync/atomic"
)

const (
	// DefaultHistorySize is how many recent events are retained for replay.
	DefaultHistorySize = 512

	// subscriberBuffer is the per-subscriber channel depth. A full buffer
	// drops events for that subscriber instead of blocking the publisher.
	subscriberBuffer = 64
)

// Publisher is the narrow interface routing code depends on. The dispatcher
// takes a Publisher rather than the full Bus so tests can capture events with
// a plain recorder.
type Publisher interface {
	Publish(Event)
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) Publish(Event) {}

// SubscriptionID identifies a live subscription.
type SubscriptionID string

type subscription struct {
	id        SubscriptionID
	eventType EventType
	handler   func(Event)
	ch        chan Event
	done      chan struct{}
}

// Bus is a thread-safe pub/sub fan-out with bounded per-type history. An
// empty EventType subscribes to everything.
type Bus struct {
	mu         sync.RWMutex
	subs       map[SubscriptionID]*subscription
	typed      map[EventType]map[SubscriptionID]*subscription
	wildcard   map[SubscriptionID]*subscription
	subCounter uint64

	historyMu   sync.RWMutex
	history     []Event
	historySize int

	closed atomic.Bool
	wg     sync.WaitGroup
}

// NewBus creates a bus with the default history size.
func NewBus() *Bus {
	return NewBusWithHistory(DefaultHistorySize)
}

// NewBusWithHistory creates a bus retaining the last n events.
func NewBusWithHistory(n int) *Bus {
	return &Bus{
		subs:        make(map[SubscriptionID]*subscription),
		typed:       make(map[EventType]map[SubscriptionID]*subscription),
		wildcard:    make(map[SubscriptionID]*subscription),
		history:     make([]Event, 0, n),
		historySize: n,
	}
}

// Subscribe registers a handler for one event type, or for all events when
// eventType is empty. The handler runs on a dedicated goroutine.
func (b *Bus) Subscribe(eventType EventType, handler func(Event)) SubscriptionID {
	if b.closed.Load() {
		return ""
	}

	b.mu.Lock()
	b.subCounter++
	id := SubscriptionID(fmt.Sprintf("sub_%d", b.subCounter))
	sub := &subscription{
		id:        id,
		eventType: eventType,
		handler:   handler,
		ch:        make(chan Event, subscriberBuffer),
		done:      make(chan struct{}),
	}
	b.subs[id] = sub
	if eventType == "" {
		b.wildcard[id] = sub
	} else {
		if b.typed[eventType] == nil {
			b.typed[eventType] = make(map[SubscriptionID]*subscription)
		}
		b.typed[eventType][id] = sub
	}
	b.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			select {
			case ev := <-sub.ch:
				sub.handler(ev)
			case <-sub.done:
				return
			}
		}
	}()

	return id
}

// Unsubscribe removes a subscription.
func (b *Bus) Unsubscribe(id SubscriptionID) {
	b.mu.Lock()
	sub, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
		delete(b.wildcard, id)
		if m, ok := b.typed[sub.eventType]; ok {
			delete(m, id)
			if len(m) == 0 {
				delete(b.typed, sub.eventType)
			}
		}
	}
	b.mu.Unlock()
	if ok {
		close(sub.done)
	}
}

// Publish fans the event out to matching subscribers. It never blocks: a
// subscriber whose buffer is full misses the event.
func (b *Bus) Publish(ev Event) {
	if b.closed.Load() {
		return
	}

	b.addToHistory(ev)

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.wildcard {
		select {
		case sub.ch <- ev:
		default:
		}
	}
	for _, sub := range b.typed[ev.Type] {
		select {
		case sub.ch <- ev:
		default:
		}
	}
}

func (b *Bus) addToHistory(ev Event) {
	b.historyMu.Lock()
	defer b.historyMu.Unlock()
	b.history = append(b.history, ev)
	if len(b.history) > b.historySize {
		b.history = b.history[len(b.history)-b.historySize:]
	}
}

// History returns a copy of the retained events, oldest first.
func (b *Bus) History() []Event {
	b.historyMu.RLock()
	defer b.historyMu.RUnlock()
	out := make([]Event, len(b.history))
	copy(out, b.history)
	return out
}

// Recent returns the last n retained events, oldest first.
func (b *Bus) Recent(n int) []Event {
	b.historyMu.RLock()
	defer b.historyMu.RUnlock()
	if n > len(b.history) {
		n = len(b.history)
	}
	out := make([]Event, n)
	copy(out, b.history[len(b.history)-n:])
	return out
}

// Close shuts the bus down and waits for subscriber goroutines to finish.
// Publishes after Close are dropped.
func (b *Bus) Close() {
	if !b.closed.CompareAndSwap(false, true) {
		return
	}
	b.mu.Lock()
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.done)
	}
	b.wildcard = make(map[SubscriptionID]*subscription)
	b.typed = make(map[EventType]map[SubscriptionID]*subscription)
	b.mu.Unlock()
	b.wg.Wait()
}
