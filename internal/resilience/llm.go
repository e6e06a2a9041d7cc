package resilience

import (
	"context"
	"sync"

	"github.com/wardleworks/chatwarden/pkg/provider/llm"
)

// BreakerSet hands out one [CircuitBreaker] per completion platform. Sessions
// on the same platform share a breaker regardless of model, since an outage
// is almost always platform-wide.
type BreakerSet struct {
	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
}

// NewBreakerSet creates an empty BreakerSet. Breakers are created lazily with
// default tuning on first use.
func NewBreakerSet() *BreakerSet {
	return &BreakerSet{breakers: make(map[string]*CircuitBreaker)}
}

// Get returns the breaker for platform, creating it on first use.
func (s *BreakerSet) Get(platform string) *CircuitBreaker {
	s.mu.Lock()
	defer s.mu.Unlock()

	cb, ok := s.breakers[platform]
	if !ok {
		cb = NewCircuitBreaker(CircuitBreakerConfig{Name: platform})
		s.breakers[platform] = cb
	}
	return cb
}

// GuardedProvider threads an [llm.Provider]'s calls through a circuit
// breaker. While the breaker is open, Complete fails immediately with
// [ErrCircuitOpen] without touching the backend.
type GuardedProvider struct {
	provider llm.Provider
	breaker  *CircuitBreaker
}

var _ llm.Provider = (*GuardedProvider)(nil)

// Guard wraps provider with cb.
func Guard(cb *CircuitBreaker, provider llm.Provider) *GuardedProvider {
	return &GuardedProvider{provider: provider, breaker: cb}
}

// Complete implements [llm.Provider].
func (g *GuardedProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	var resp *llm.CompletionResponse
	err := g.breaker.Execute(func() error {
		r, err := g.provider.Complete(ctx, req)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
