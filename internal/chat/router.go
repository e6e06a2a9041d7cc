// Package chat intercepts in-game chat lines for players with an active AI
// conversation and routes them into the dispatch pipeline.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/wardleworks/chatwarden/internal/dispatch"
	"github.com/wardleworks/chatwarden/internal/session"
)

const (
	echoPrefix  = "[You → AI]: "
	waitLine    = "Please wait for the AI to respond before sending another message."
	quitBusy    = "Finish waiting for the AI before quitting."
	quitKeyword = "quit"
)

// Router decides what happens to each chat line.
type Router struct {
	sessions *session.Registry
	pipeline *dispatch.Pipeline
	message  dispatch.Messenger
}

// NewRouter wires a Router. message delivers feedback lines to the sender.
func NewRouter(sessions *session.Registry, pipeline *dispatch.Pipeline, message dispatch.Messenger) *Router {
	if message == nil {
		message = func(string, string) {}
	}
	return &Router{sessions: sessions, pipeline: pipeline, message: message}
}

// HandleChat routes one chat line. It returns true when the line was
// consumed by the AI conversation and must not reach public chat; false
// means the player has no session and the line broadcasts normally.
func (r *Router) HandleChat(ctx context.Context, playerID, line string) bool {
	if !r.sessions.IsActive(playerID) {
		return false
	}

	trimmed := strings.TrimSpace(line)
	if strings.EqualFold(trimmed, quitKeyword) {
		r.quit(ctx, playerID)
		return true
	}

	if r.sessions.IsWaiting(playerID) {
		r.message(playerID, waitLine)
		return true
	}

	r.message(playerID, echoPrefix+trimmed)
	if err := r.pipeline.Submit(ctx, playerID, trimmed); err != nil {
		// Lost the race against a concurrent submission; same soft answer.
		if errors.Is(err, dispatch.ErrBusy) {
			r.message(playerID, waitLine)
			return true
		}
		slog.Error("submitting chat line", "player", playerID, "err", err)
	}
	return true
}

func (r *Router) quit(ctx context.Context, playerID string) {
	err := r.pipeline.Quit(ctx, playerID)
	switch {
	case errors.Is(err, dispatch.ErrBusy):
		r.message(playerID, quitBusy)
	case err != nil:
		slog.Error("ending conversation", "player", playerID, "err", err)
	}
}
