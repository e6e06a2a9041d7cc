package command

import (
	"context"
	"strings"
	"testing"

	"github.com/wardleworks/chatwarden/internal/session"
	"github.com/wardleworks/chatwarden/internal/store"
)

// memDriver is a minimal in-memory store.Driver.
type memDriver struct {
	emails map[string]string
	tokens map[string]string
}

func (m *memDriver) EnsureSchema(ctx context.Context) error { return nil }

func (m *memDriver) GetEmail(ctx context.Context, playerID string) (string, bool, error) {
	e, ok := m.emails[playerID]
	return e, ok, nil
}

func (m *memDriver) UpsertEmail(ctx context.Context, playerID, email string) error {
	m.emails[playerID] = email
	return nil
}

func (m *memDriver) GetToken(ctx context.Context, playerID, platform string) (string, bool, error) {
	tok, ok := m.tokens[playerID+"/"+platform]
	return tok, ok, nil
}

func (m *memDriver) UpsertToken(ctx context.Context, playerID, platform, token string) error {
	m.tokens[playerID+"/"+platform] = token
	return nil
}

func (m *memDriver) Close() error { return nil }

func newTestHandler(t *testing.T) (*Handler, *session.Registry) {
	t.Helper()
	sessions := session.NewRegistry(nil)
	h := NewHandler(HandlerConfig{
		Sessions: sessions,
		Store:    store.New(&memDriver{emails: map[string]string{}, tokens: map[string]string{}}),
		Platforms: map[string][]string{
			"openai":    {"gpt-4o", "gpt-4o-mini"},
			"anthropic": {"claude-sonnet-4-5"},
			"ollama":    {"llama3.2"},
		},
	})
	return h, sessions
}

func joined(lines []string) string {
	return strings.Join(lines, "\n")
}

func TestStartValidPlatformModel(t *testing.T) {
	t.Parallel()

	h, sessions := newTestHandler(t)
	lines := h.Handle(context.Background(), "p1", []string{"openai", "gpt-4o"})

	if !strings.Contains(joined(lines), welcomeLine) {
		t.Errorf("missing welcome, got %v", lines)
	}
	if !sessions.IsActive("p1") {
		t.Error("session not started")
	}
	platform, model, _ := sessions.PlatformModel("p1")
	if platform != "openai" || model != "gpt-4o" {
		t.Errorf("session bound to %s/%s", platform, model)
	}
}

func TestStartUnknownPlatformSuggests(t *testing.T) {
	t.Parallel()

	h, sessions := newTestHandler(t)
	lines := h.Handle(context.Background(), "p1", []string{"opnai", "gpt-4o"})

	out := joined(lines)
	if !strings.Contains(out, `Unknown platform "opnai"`) {
		t.Errorf("missing rejection, got %q", out)
	}
	if !strings.Contains(out, `Did you mean "openai"?`) {
		t.Errorf("missing suggestion, got %q", out)
	}
	if sessions.IsActive("p1") {
		t.Error("failed validation must not start a session")
	}
}

func TestStartUnknownModelSuggests(t *testing.T) {
	t.Parallel()

	h, sessions := newTestHandler(t)
	lines := h.Handle(context.Background(), "p1", []string{"openai", "gpt4o"})

	out := joined(lines)
	if !strings.Contains(out, `Unknown model "gpt4o"`) {
		t.Errorf("missing rejection, got %q", out)
	}
	if !strings.Contains(out, `Did you mean "gpt-4o"?`) {
		t.Errorf("missing suggestion, got %q", out)
	}
	if sessions.IsActive("p1") {
		t.Error("failed validation must not start a session")
	}
}

func TestStartResetsExistingSession(t *testing.T) {
	t.Parallel()

	h, sessions := newTestHandler(t)
	h.Handle(context.Background(), "p1", []string{"openai", "gpt-4o"})
	sessions.Append("p1", "[Player]: old line")

	h.Handle(context.Background(), "p1", []string{"anthropic", "claude-sonnet-4-5"})
	if got := sessions.Transcript("p1"); len(got) != 0 {
		t.Errorf("restart kept transcript %v", got)
	}
	platform, _, _ := sessions.PlatformModel("p1")
	if platform != "anthropic" {
		t.Errorf("platform = %s, want anthropic", platform)
	}
}

func TestSetEmail(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandler(t)
	ctx := context.Background()

	lines := h.Handle(ctx, "p1", []string{"set", "email", "steve@example.com"})
	if !strings.Contains(joined(lines), "Email saved: steve@example.com") {
		t.Errorf("missing confirmation, got %v", lines)
	}

	lines = h.Handle(ctx, "p1", []string{"set", "email", "not an address"})
	if !strings.Contains(joined(lines), emailBadLine) {
		t.Errorf("missing rejection, got %v", lines)
	}
}

func TestHandleUsage(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandler(t)
	for _, args := range [][]string{nil, {"openai"}, {"a", "b", "c", "d"}} {
		lines := h.Handle(context.Background(), "p1", args)
		if !strings.Contains(joined(lines), "Usage:") {
			t.Errorf("Handle(%v) = %v, want usage", args, lines)
		}
	}
}

func TestComplete(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandler(t)

	first := h.Complete(nil, "")
	if !contains(first, "openai") || !contains(first, "set") {
		t.Errorf("first-word candidates = %v", first)
	}

	if got := h.Complete(nil, "o"); !contains(got, "openai") || !contains(got, "ollama") || contains(got, "anthropic") {
		t.Errorf("prefix filter = %v", got)
	}

	if got := h.Complete([]string{"openai"}, "gpt-4o-"); len(got) != 1 || got[0] != "gpt-4o-mini" {
		t.Errorf("model candidates = %v", got)
	}

	if got := h.Complete([]string{"set"}, ""); len(got) != 1 || got[0] != "email" {
		t.Errorf("set candidates = %v", got)
	}

	if got := h.Complete([]string{"openai", "gpt-4o"}, ""); got != nil {
		t.Errorf("third-word candidates = %v, want nil", got)
	}
}
