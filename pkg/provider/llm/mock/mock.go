// Package mock provides test doubles for the llm.Provider and llm.Factory
// interfaces.
//
// Zero values for response fields cause methods to return zero values and nil
// errors; set Err fields to inject failures.
package mock

import (
	"context"
	"sync"

	"github.com/wardleworks/chatwarden/pkg/provider/llm"
)

// CompleteCall records a single invocation of Complete.
type CompleteCall struct {
	// Ctx is the context passed to Complete.
	Ctx context.Context
	// Req is the CompletionRequest passed to Complete.
	Req llm.CompletionRequest
}

// Provider is a mock implementation of llm.Provider.
type Provider struct {
	mu sync.Mutex

	// CompleteResponse is returned from Complete when CompleteErr is nil.
	CompleteResponse *llm.CompletionResponse

	// CompleteErr, if non-nil, is returned from Complete.
	CompleteErr error

	// CompleteCalls records every invocation of Complete.
	CompleteCalls []CompleteCall
}

var _ llm.Provider = (*Provider)(nil)

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	p.CompleteCalls = append(p.CompleteCalls, CompleteCall{Ctx: ctx, Req: req})
	p.mu.Unlock()

	if p.CompleteErr != nil {
		return nil, p.CompleteErr
	}
	if p.CompleteResponse != nil {
		return p.CompleteResponse, nil
	}
	return &llm.CompletionResponse{}, nil
}

// Calls returns a copy of the recorded Complete invocations.
func (p *Provider) Calls() []CompleteCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]CompleteCall, len(p.CompleteCalls))
	copy(out, p.CompleteCalls)
	return out
}

// FactoryCall records a single invocation of Factory.New.
type FactoryCall struct {
	Platform string
	Model    string
	APIKey   string
}

// Factory is a mock implementation of llm.Factory that hands out a fixed
// Provider.
type Factory struct {
	mu sync.Mutex

	// Provider is returned from New when Err is nil. When nil, a fresh
	// zero-value mock Provider is returned.
	Provider llm.Provider

	// Err, if non-nil, is returned from New.
	Err error

	// NewCalls records every invocation of New.
	NewCalls []FactoryCall
}

var _ llm.Factory = (*Factory)(nil)

// New implements llm.Factory.
func (f *Factory) New(platform, model, apiKey string) (llm.Provider, error) {
	f.mu.Lock()
	f.NewCalls = append(f.NewCalls, FactoryCall{Platform: platform, Model: model, APIKey: apiKey})
	f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}
	if f.Provider != nil {
		return f.Provider, nil
	}
	return &Provider{}, nil
}
