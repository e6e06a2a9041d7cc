package rules

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wardleworks/chatwarden/internal/placeholder"
	"github.com/wardleworks/chatwarden/internal/world"
)

// staticQuerier serves one fixed player and no creatures.
type staticQuerier struct {
	player world.Player
}

func (s *staticQuerier) Player(ctx context.Context, playerID string) (world.Player, error) {
	return s.player, nil
}

func (s *staticQuerier) World(ctx context.Context, playerID string) (world.Snapshot, error) {
	return world.Snapshot{}, nil
}

func (s *staticQuerier) Nearby(ctx context.Context, playerID string, radius float64) ([]world.Sighting, error) {
	return nil, nil
}

func (s *staticQuerier) NearbyByType(ctx context.Context, playerID, creatureType string, radius float64) ([]world.Sighting, error) {
	return nil, nil
}

func writeRules(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(filepath.Join(dir, name)), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestEngine(t *testing.T, dir string) *Engine {
	t.Helper()
	e, err := NewEngine(EngineConfig{
		Dir:     dir,
		Catalog: placeholder.NewCatalog(),
		Querier: &staticQuerier{player: world.Player{Name: "Alex"}},
	})
	if err != nil {
		t.Fatalf("NewEngine() error: %v", err)
	}
	return e
}

func TestMatchCaseInsensitiveOrderedWords(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeRules(t, dir, "ping.json", `[{"match": ["ping pong"], "response": "table tennis"}]`)
	e := newTestEngine(t, dir)

	cases := []struct {
		input string
		want  int
	}{
		{"PING PONG", 1},
		{"  ping pong  ", 1},
		{"well ping and then pong later", 1},
		{"pong ping", 0},
		{"ping", 0},
	}
	for _, tc := range cases {
		if got := e.Match(context.Background(), "p1", tc.input); len(got) != tc.want {
			t.Errorf("Match(%q) returned %d responses, want %d", tc.input, len(got), tc.want)
		}
	}
}

func TestMatchResolvesPlaceholders(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeRules(t, dir, "name.json", `[{"match": ["who am i"], "response": "You are {player_name}."}]`)
	e := newTestEngine(t, dir)

	got := e.Match(context.Background(), "p1", "Who am I?")
	if len(got) != 1 || got[0] != "You are Alex." {
		t.Errorf("Match() = %v, want [You are Alex.]", got)
	}
}

func TestMatchMultipleRulesInOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeRules(t, dir, "a.json", `[
		{"match": ["hello"], "response": "first"},
		{"match": ["hello world"], "response": "second"},
		{"match": ["goodbye"], "response": "never"}
	]`)
	e := newTestEngine(t, dir)

	got := e.Match(context.Background(), "p1", "hello world")
	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Errorf("Match() = %v, want [first second]", got)
	}
}

func TestMatchFirstPhraseWinsWithinRule(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeRules(t, dir, "multi.json", `[{"match": ["hi there", "hi"], "response": "greeting"}]`)
	e := newTestEngine(t, dir)

	// Both phrases match, but the rule still fires exactly once.
	if got := e.Match(context.Background(), "p1", "hi there"); len(got) != 1 {
		t.Errorf("Match() returned %d responses, want 1", len(got))
	}
}

func TestLoadRecursiveAndSkipsMalformed(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeRules(t, dir, "top.json", `[{"match": ["alpha"], "response": "A"}]`)
	writeRules(t, dir, filepath.Join("sub", "deep.json"), `[{"match": ["beta"], "response": "B"}]`)
	writeRules(t, dir, "broken.json", `{not json at all`)
	writeRules(t, dir, "notes.txt", `ignored`)
	e := newTestEngine(t, dir)

	if e.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", e.Len())
	}
	if got := e.Match(context.Background(), "p1", "beta"); len(got) != 1 || got[0] != "B" {
		t.Errorf("Match(beta) = %v, want [B]", got)
	}
}

func TestSeedAbsentDirectory(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "rules")
	e := newTestEngine(t, dir)

	if e.Len() == 0 {
		t.Fatal("expected seeded rules in fresh directory")
	}
	if _, err := os.Stat(filepath.Join(dir, "data.json")); err != nil {
		t.Fatalf("data.json not written: %v", err)
	}

	got := e.Match(context.Background(), "p1", "what game am i playing right now?")
	if len(got) != 1 || !strings.Contains(got[0], "Minecraft") {
		t.Errorf("Match() = %v, want the seeded Minecraft response", got)
	}
}

func TestSeedSkipsNonEmptyDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeRules(t, dir, "mine.json", `[{"match": ["custom"], "response": "kept"}]`)
	e := newTestEngine(t, dir)

	if e.Len() != 1 {
		t.Fatalf("Len() = %d, want 1: seeding must not touch a populated directory", e.Len())
	}
	if _, err := os.Stat(filepath.Join(dir, "data.json")); !os.IsNotExist(err) {
		t.Fatalf("data.json unexpectedly present: %v", err)
	}
}

func TestMatchPhraseWithRegexMetacharacters(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeRules(t, dir, "tz.json", `[{"match": ["Time in UTC+7?"], "response": "offset"}]`)
	e := newTestEngine(t, dir)

	if got := e.Match(context.Background(), "p1", "what is the time in utc+7?"); len(got) != 1 {
		t.Errorf("Match() returned %d responses, want 1", len(got))
	}
}
