package dispatch

import "sync"

// TierCount is the number of tiers in the chain (0 through 6).
const TierCount = 7

// Stats counts, per tier, how often the tier was evaluated and how often it
// produced the turn's decision. The evaluated counters make the precedence
// guarantee measurable: once a tier fires, no later tier is evaluated that
// turn.
type Stats struct {
	mu        sync.Mutex
	evaluated [TierCount]int
	fired     [TierCount]int
}

func (s *Stats) markEvaluated(tier int) {
	s.mu.Lock()
	s.evaluated[tier]++
	s.mu.Unlock()
}

func (s *Stats) markFired(tier int) {
	s.mu.Lock()
	s.fired[tier]++
	s.mu.Unlock()
}

// TierStats is a point-in-time copy of the counters.
type TierStats struct {
	Evaluated [TierCount]int `json:"evaluated"`
	Fired     [TierCount]int `json:"fired"`
}

// Snapshot copies the counters.
func (s *Stats) Snapshot() TierStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return TierStats{Evaluated: s.evaluated, Fired: s.fired}
}

// Reset zeroes the counters.
func (s *Stats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evaluated = [TierCount]int{}
	s.fired = [TierCount]int{}
}
