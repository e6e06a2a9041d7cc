// Package session tracks per-player AI conversation state.
//
// Each player has at most one session. A session is created by the start
// command, accumulates transcript turns while the player chats, and is
// removed entirely on quit, forced termination, or shutdown — nothing is
// retained for terminated players.
package session

import (
	"log/slog"
	"sync"
)

// State describes where a player's conversation is in its lifecycle.
type State int

const (
	// Inactive means the player has no session.
	Inactive State = iota

	// Idle means the session is active and ready for the next message.
	Idle

	// Waiting means a dispatch is in flight and further messages are
	// rejected until it completes.
	Waiting
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Waiting:
		return "waiting"
	default:
		return "inactive"
	}
}

// Notifier delivers an in-game message to a player. Used by TerminateAll to
// tell session owners their conversation was cut short.
type Notifier func(playerID, message string)

// session is the per-player record. Its mutex serialises all field access so
// operations on different players never share a lock.
type session struct {
	mu         sync.Mutex
	platform   string
	model      string
	transcript []string
	waiting    bool
}

// Registry owns all live sessions. The registry mutex only guards the map
// itself; per-player operations take the session's own lock, so players do
// not contend with each other.
//
// All exported methods are safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*session
	notify   Notifier
}

// NewRegistry creates an empty Registry. notify may be nil when termination
// notices are not needed (tests).
func NewRegistry(notify Notifier) *Registry {
	if notify == nil {
		notify = func(string, string) {}
	}
	return &Registry{
		sessions: make(map[string]*session),
		notify:   notify,
	}
}

// Start creates a session for playerID bound to platform and model. An
// existing session is reset: transcript cleared, waiting cleared.
func (r *Registry) Start(playerID, platform, model string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[playerID] = &session{platform: platform, model: model}
	slog.Info("session started", "player", playerID, "platform", platform, "model", model)
}

// IsActive reports whether playerID has a session.
func (r *Registry) IsActive(playerID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[playerID]
	return ok
}

// IsWaiting reports whether playerID has a dispatch in flight.
// False when the player has no session.
func (r *Registry) IsWaiting(playerID string) bool {
	s := r.lookup(playerID)
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waiting
}

// State returns the lifecycle state for playerID.
func (r *Registry) State(playerID string) State {
	s := r.lookup(playerID)
	if s == nil {
		return Inactive
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.waiting {
		return Waiting
	}
	return Idle
}

// SetWaiting sets the waiting flag. Setting an already-set flag is a no-op;
// the flag is a boolean, not a counter. No effect for inactive players.
func (r *Registry) SetWaiting(playerID string, waiting bool) {
	s := r.lookup(playerID)
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waiting = waiting
}

// BeginDispatch atomically claims the in-flight slot for playerID. It returns
// true when the session exists and was not already waiting; the caller then
// owns the slot until EndDispatch or Terminate. Returns false on an inactive
// session or when a dispatch is already in flight.
func (r *Registry) BeginDispatch(playerID string) bool {
	s := r.lookup(playerID)
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.waiting {
		return false
	}
	s.waiting = true
	return true
}

// EndDispatch releases the in-flight slot claimed by BeginDispatch. Safe to
// call after the session was force-terminated.
func (r *Registry) EndDispatch(playerID string) {
	r.SetWaiting(playerID, false)
}

// Append adds one turn to the player's transcript, preserving insertion
// order. No effect for inactive players.
func (r *Registry) Append(playerID, turn string) {
	s := r.lookup(playerID)
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = append(s.transcript, turn)
}

// Transcript returns a copy of the player's transcript in insertion order.
func (r *Registry) Transcript(playerID string) []string {
	s := r.lookup(playerID)
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// PlatformModel returns the platform and model the session was started with.
func (r *Registry) PlatformModel(playerID string) (platform, model string, ok bool) {
	s := r.lookup(playerID)
	if s == nil {
		return "", "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.platform, s.model, true
}

// Terminate removes the player's session regardless of the waiting flag.
// This is the escape hatch for sessions stuck mid-dispatch. Returns false if
// no session existed.
func (r *Registry) Terminate(playerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[playerID]; !ok {
		return false
	}
	delete(r.sessions, playerID)
	slog.Info("session terminated", "player", playerID)
	return true
}

// TerminateAll force-clears every session and notifies each owner with
// message. It returns the number of sessions cleared so the caller can
// settle any per-session accounting. Used at shutdown and reload so no
// session survives a restart.
func (r *Registry) TerminateAll(message string) int {
	r.mu.Lock()
	players := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		players = append(players, id)
	}
	r.sessions = make(map[string]*session)
	r.mu.Unlock()

	for _, id := range players {
		r.notify(id, message)
	}
	if len(players) > 0 {
		slog.Info("all sessions terminated", "count", len(players))
	}
	return len(players)
}

// Len returns the number of active sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) lookup(playerID string) *session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[playerID]
}
