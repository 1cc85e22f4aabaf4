package orchestrator

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/local/svg2pptx/internal/metrics"
	"github.com/local/svg2pptx/internal/strategy"
)

// breaker trips a strategy for the remainder of one conversion after it
// fails transiently too many times in a row. Scope is a single Convert
// call: a strategy that keeps timing out on this batch's content is not
// worth retrying on every remaining page, but the next conversion starts
// clean. A success closes the breaker again.
type breaker struct {
	limit int

	mu       sync.Mutex
	failures map[strategy.Strategy]int
	open     map[strategy.Strategy]bool
}

func newBreaker(limit int) *breaker {
	if limit <= 0 {
		limit = 3
	}
	return &breaker{
		limit:    limit,
		failures: make(map[strategy.Strategy]int),
		open:     make(map[strategy.Strategy]bool),
	}
}

func (b *breaker) isOpen(s strategy.Strategy) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open[s]
}

func (b *breaker) recordFailure(s strategy.Strategy) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[s]++
	if b.failures[s] >= b.limit && !b.open[s] {
		b.open[s] = true
		metrics.BreakerOpened(s.Tag())
		log.Warn().
			Str("strategy", s.Tag()).
			Int("consecutive_failures", b.failures[s]).
			Msg("strategy breaker opened for this conversion")
	}
}

func (b *breaker) recordSuccess(s strategy.Strategy) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.open[s] {
		metrics.BreakerClosed(s.Tag())
		log.Info().Str("strategy", s.Tag()).Msg("strategy breaker closed")
	}
	b.failures[s] = 0
	b.open[s] = false
}
