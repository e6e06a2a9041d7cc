package world

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrUnknownPlayer is returned by queries for a player the state does not know.
var ErrUnknownPlayer = errors.New("world: unknown player")

// Sighting is one creature observed near a player, with its distance from the
// player's position.
type Sighting struct {
	Type     string
	Distance float64
}

// Querier is the read-only surface over game state used by placeholder
// providers. All methods are safe to call from any goroutine; implementations
// marshal the read onto the state-owning goroutine and block the caller until
// a value is available or ctx expires.
type Querier interface {
	Player(ctx context.Context, playerID string) (Player, error)
	World(ctx context.Context, playerID string) (Snapshot, error)
	Nearby(ctx context.Context, playerID string, radius float64) ([]Sighting, error)
	NearbyByType(ctx context.Context, playerID, creatureType string, radius float64) ([]Sighting, error)
}

// Actor owns a [State] and serialises all access to it on a single goroutine.
//
// Reads from other goroutines are sent as closures over the request channel;
// the caller blocks on a per-request done channel. If the caller's context
// expires first, the caller unblocks with ctx.Err() and the closure still runs
// later against a discarded result — the actor itself never blocks on a
// caller.
type Actor struct {
	state    *State
	requests chan func(*State)
}

var _ Querier = (*Actor)(nil)

// NewActor creates an Actor owning state. Run must be started before any
// query will complete.
func NewActor(state *State) *Actor {
	if state == nil {
		state = NewState()
	}
	return &Actor{
		state:    state,
		requests: make(chan func(*State), 64),
	}
}

// Run drains requests until ctx is cancelled. It must be the only goroutine
// that ever touches the actor's State.
func (a *Actor) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-a.requests:
			fn(a.state)
		}
	}
}

// Update applies a state mutation on the owning goroutine. It does not wait
// for the mutation to be applied; hosts feed connection and tick events
// through here.
func (a *Actor) Update(fn func(*State)) {
	select {
	case a.requests <- fn:
	default:
		// The queue is saturated; drop the update rather than stall the host.
		slog.Warn("world: update queue full, dropping state update")
	}
}

// do runs fn on the owning goroutine and blocks until it completes or ctx
// expires.
func (a *Actor) do(ctx context.Context, fn func(*State)) error {
	done := make(chan struct{})
	wrapped := func(s *State) {
		fn(s)
		close(done)
	}

	select {
	case a.requests <- wrapped:
	case <-ctx.Done():
		return fmt.Errorf("world: enqueue read: %w", ctx.Err())
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("world: await read: %w", ctx.Err())
	}
}

// Player implements [Querier].
func (a *Actor) Player(ctx context.Context, playerID string) (Player, error) {
	var (
		p  Player
		ok bool
	)
	if err := a.do(ctx, func(s *State) {
		p, ok = s.Players[playerID]
	}); err != nil {
		return Player{}, err
	}
	if !ok {
		return Player{}, fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
	}
	return p, nil
}

// World implements [Querier]. It resolves the world the player is currently in.
func (a *Actor) World(ctx context.Context, playerID string) (Snapshot, error) {
	var (
		snap  Snapshot
		found bool
	)
	if err := a.do(ctx, func(s *State) {
		p, ok := s.Players[playerID]
		if !ok {
			return
		}
		snap, found = s.Worlds[p.World]
	}); err != nil {
		return Snapshot{}, err
	}
	if !found {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
	}
	return snap, nil
}

// Nearby implements [Querier]. It returns every creature within radius of the
// player, in state order.
func (a *Actor) Nearby(ctx context.Context, playerID string, radius float64) ([]Sighting, error) {
	return a.nearby(ctx, playerID, "", radius)
}

// NearbyByType implements [Querier]. It returns creatures of the given type
// within radius of the player.
func (a *Actor) NearbyByType(ctx context.Context, playerID, creatureType string, radius float64) ([]Sighting, error) {
	return a.nearby(ctx, playerID, creatureType, radius)
}

func (a *Actor) nearby(ctx context.Context, playerID, creatureType string, radius float64) ([]Sighting, error) {
	var (
		out []Sighting
		ok  bool
	)
	if err := a.do(ctx, func(s *State) {
		var p Player
		p, ok = s.Players[playerID]
		if !ok {
			return
		}
		for _, c := range s.Creatures {
			if c.World != p.World {
				continue
			}
			if creatureType != "" && c.Type != creatureType {
				continue
			}
			d := c.Position.Distance(p.Position)
			if d <= radius {
				out = append(out, Sighting{Type: c.Type, Distance: d})
			}
		}
	}); err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
	}
	return out, nil
}
