package telemetry

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestBus_TypedAndWildcardDelivery(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var mu sync.Mutex
	var typed, all []Event

	bus.Subscribe(EventTierFired, func(ev Event) {
		mu.Lock()
		typed = append(typed, ev)
		mu.Unlock()
	})
	bus.Subscribe("", func(ev Event) {
		mu.Lock()
		all = append(all, ev)
		mu.Unlock()
	})

	tier := NewEvent(EventTierFired)
	tier.Tier = 3
	bus.Publish(tier)
	bus.Publish(NewEvent(EventDecision))

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(typed) == 1 && len(all) == 2
	})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, typed[0].Tier)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var mu sync.Mutex
	count := 0
	id := bus.Subscribe(EventDecision, func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	bus.Publish(NewEvent(EventDecision))
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == 1
	})

	bus.Unsubscribe(id)
	bus.Publish(NewEvent(EventDecision))
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, count)
}

func TestBus_HistoryBounded(t *testing.T) {
	bus := NewBusWithHistory(5)
	defer bus.Close()

	for i := 0; i < 10; i++ {
		ev := NewEvent(EventTurn)
		ev.Turn = i
		bus.Publish(ev)
	}

	hist := bus.History()
	require.Len(t, hist, 5)
	assert.Equal(t, 5, hist[0].Turn)
	assert.Equal(t, 9, hist[4].Turn)

	recent := bus.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, 8, recent[0].Turn)
}

func TestBus_PublishNeverBlocks(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	// A subscriber that never drains its channel must not stall publishers.
	block := make(chan struct{})
	bus.Subscribe(EventTurn, func(Event) { <-block })
	defer close(block)

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*3; i++ {
			bus.Publish(NewEvent(EventTurn))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestRecorder_CapturesInOrder(t *testing.T) {
	var rec Recorder
	rec.Publish(NewEvent(EventTurn))
	rec.Publish(NewEvent(EventTierFired))
	rec.Publish(NewEvent(EventTierFired))

	assert.Len(t, rec.Events(), 3)
	assert.Len(t, rec.ByType(EventTierFired), 2)

	rec.Reset()
	assert.Empty(t, rec.Events())
}
