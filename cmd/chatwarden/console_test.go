package main

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wardleworks/chatwarden/internal/app"
	"github.com/wardleworks/chatwarden/internal/config"
	"github.com/wardleworks/chatwarden/pkg/provider/llm"
	"github.com/wardleworks/chatwarden/pkg/provider/llm/mock"
)

// syncBuffer is a goroutine-safe output sink for console tests.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestConsoleHostRoutesCommandsAndChat(t *testing.T) {
	t.Parallel()

	input := strings.NewReader("/ai openai gpt-4o\nhello\n")
	out := &syncBuffer{}
	host := newConsoleHost(input, out, "console")

	cfg := &config.Config{
		AI: config.AIConfig{
			CredentialMode: config.CredentialShared,
			APIKey:         "sk-test",
			Platforms:      map[string][]string{"openai": {"gpt-4o"}},
		},
		Rules:    config.RulesConfig{Dir: t.TempDir()},
		Database: config.DatabaseConfig{Dialect: config.DialectSQLite, DSN: ":memory:"},
	}

	provider := &mock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "well met"}}
	application, err := app.New(context.Background(), cfg, host.Deliver,
		app.WithFactory(&mock.Factory{Provider: provider}),
	)
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	host.Attach(application)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go application.Run(ctx)

	if err := host.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(out.String(), "well met") {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	got := out.String()
	if !strings.Contains(got, "You are now chatting with the AI.") {
		t.Errorf("start command output missing welcome, got:\n%s", got)
	}
	if !strings.Contains(got, "[You → AI]: hello") {
		t.Errorf("chat line was not echoed, got:\n%s", got)
	}
	if !strings.Contains(got, "well met") {
		t.Errorf("reply never delivered, got:\n%s", got)
	}
}

func TestConsoleHostBroadcastsUnclaimedChat(t *testing.T) {
	t.Parallel()

	input := strings.NewReader("just talking\n")
	out := &syncBuffer{}
	host := newConsoleHost(input, out, "console")

	cfg := &config.Config{
		AI: config.AIConfig{
			CredentialMode: config.CredentialShared,
			APIKey:         "sk-test",
			Platforms:      map[string][]string{"openai": {"gpt-4o"}},
		},
		Rules:    config.RulesConfig{Dir: t.TempDir()},
		Database: config.DatabaseConfig{Dialect: config.DialectSQLite, DSN: ":memory:"},
	}

	application, err := app.New(context.Background(), cfg, host.Deliver,
		app.WithFactory(&mock.Factory{}),
	)
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	host.Attach(application)

	if err := host.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := out.String(); !strings.Contains(got, "<console> just talking") {
		t.Errorf("line was not broadcast, got:\n%s", got)
	}
}
