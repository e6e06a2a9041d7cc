// Package command implements the player-facing command surface: starting a
// conversation on a chosen platform and model, and saving the email address
// used for transcript export.
//
// The handler is host-independent: a game-server plugin shim or the console
// dev host call Handle with pre-split arguments and relay the returned lines
// to the player.
package command

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/wardleworks/chatwarden/internal/observe"
	"github.com/wardleworks/chatwarden/internal/session"
	"github.com/wardleworks/chatwarden/internal/store"
)

const (
	welcomeLine   = "You are now chatting with the AI."
	howToLine     = "Type your message in chat. Type 'quit' to end the conversation."
	emailSavedFmt = "Email saved: %s"
	emailBadLine  = "That does not look like a valid email address."
	usageLine     = "Usage: /chatwarden <platform> <model> | /chatwarden set email <address>"
)

// suggestionThreshold is the minimum Jaro-Winkler similarity for a "did you
// mean" hint on an unknown platform or model name.
const suggestionThreshold = 0.78

// Handler executes commands against the session registry and store.
type Handler struct {
	sessions  *session.Registry
	store     *store.Store
	metrics   *observe.Metrics
	platforms map[string][]string
}

// HandlerConfig carries the dependencies for [NewHandler].
type HandlerConfig struct {
	Sessions *session.Registry
	Store    *store.Store
	Metrics  *observe.Metrics

	// Platforms is the configured platform → models table a start command
	// is validated against.
	Platforms map[string][]string
}

// NewHandler wires a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	m := cfg.Metrics
	if m == nil {
		m = observe.DefaultMetrics()
	}
	return &Handler{
		sessions:  cfg.Sessions,
		store:     cfg.Store,
		metrics:   m,
		platforms: cfg.Platforms,
	}
}

// Handle executes one command for playerID and returns the lines to show
// them. Validation failures never change state.
func (h *Handler) Handle(ctx context.Context, playerID string, args []string) []string {
	switch {
	case len(args) == 3 && strings.EqualFold(args[0], "set") && strings.EqualFold(args[1], "email"):
		return h.setEmail(ctx, playerID, args[2])
	case len(args) == 2:
		return h.start(ctx, playerID, args[0], args[1])
	default:
		return []string{usageLine}
	}
}

// start validates the platform/model pair and opens a conversation.
func (h *Handler) start(ctx context.Context, playerID, platform, model string) []string {
	models, ok := h.platforms[platform]
	if !ok {
		line := fmt.Sprintf("Unknown platform %q.", platform)
		if s := closest(platform, h.PlatformNames()); s != "" {
			line += fmt.Sprintf(" Did you mean %q?", s)
		}
		return []string{line}
	}
	if !contains(models, model) {
		line := fmt.Sprintf("Unknown model %q for platform %q.", model, platform)
		if s := closest(model, models); s != "" {
			line += fmt.Sprintf(" Did you mean %q?", s)
		}
		return []string{line}
	}

	if !h.sessions.IsActive(playerID) {
		h.metrics.ActiveSessions.Add(ctx, 1)
	}
	h.sessions.Start(playerID, platform, model)
	return []string{welcomeLine, howToLine}
}

// setEmail stores the transcript export address.
func (h *Handler) setEmail(ctx context.Context, playerID, address string) []string {
	ok, err := h.store.SetEmail(ctx, playerID, address)
	if err != nil {
		slog.Error("saving email", "player", playerID, "err", err)
		return []string{"Could not save your email. Try again later."}
	}
	if !ok {
		return []string{emailBadLine}
	}
	return []string{fmt.Sprintf(emailSavedFmt, address)}
}

// PlatformNames returns the configured platform names, sorted.
func (h *Handler) PlatformNames() []string {
	names := make([]string, 0, len(h.platforms))
	for name := range h.platforms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Models returns the configured model names for platform, or nil.
func (h *Handler) Models(platform string) []string {
	return h.platforms[platform]
}

// closest returns the candidate most similar to input, or "" when nothing
// clears the suggestion threshold.
func closest(input string, candidates []string) string {
	best, bestScore := "", suggestionThreshold
	lower := strings.ToLower(input)
	for _, c := range candidates {
		if score := matchr.JaroWinkler(lower, strings.ToLower(c), false); score > bestScore {
			best, bestScore = c, score
		}
	}
	return best
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
