package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/wardleworks/chatwarden/pkg/provider/llm"
)

// ── New ───────────────────────────────────────────────────────────────────────

// TestNew_EmptyAPIKey checks that an empty API key is rejected.
func TestNew_EmptyAPIKey(t *testing.T) {
	if _, err := New("", "gpt-4o"); err == nil {
		t.Fatal("expected error for empty apiKey")
	}
}

// TestNew_EmptyModel checks that an empty model is rejected.
func TestNew_EmptyModel(t *testing.T) {
	if _, err := New("sk-test", ""); err == nil {
		t.Fatal("expected error for empty model")
	}
}

// ── buildParams ───────────────────────────────────────────────────────────────

// TestBuildParams_SystemPromptFirst checks that a system prompt leads the
// message list.
func TestBuildParams_SystemPromptFirst(t *testing.T) {
	p, err := New("sk-test", "gpt-4o")
	if err != nil {
		t.Fatal(err)
	}
	params := p.buildParams(llm.CompletionRequest{
		SystemPrompt: "You are helpful.",
		Message:      "Hello!",
	})
	if string(params.Model) != "gpt-4o" {
		t.Errorf("expected model gpt-4o, got %q", params.Model)
	}
	if len(params.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(params.Messages))
	}
	if params.Messages[0].OfSystem == nil {
		t.Fatal("expected OfSystem to be set")
	}
	if params.Messages[1].OfUser == nil {
		t.Fatal("expected OfUser to be set")
	}
}

// TestBuildParams_HistoryRoles checks that transcript turn markers map to
// user and assistant messages.
func TestBuildParams_HistoryRoles(t *testing.T) {
	p, err := New("sk-test", "gpt-4o")
	if err != nil {
		t.Fatal(err)
	}
	params := p.buildParams(llm.CompletionRequest{
		History: []string{
			"[Player]: what time is it?",
			"[AI]: Around noon.",
			"an unmarked note",
		},
		Message: "thanks",
	})
	if len(params.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(params.Messages))
	}
	if params.Messages[0].OfUser == nil {
		t.Fatal("expected player turn to be a user message")
	}
	if params.Messages[1].OfAssistant == nil {
		t.Fatal("expected reply turn to be an assistant message")
	}
	if params.Messages[2].OfUser == nil {
		t.Fatal("expected unmarked line to be a user message")
	}
	if params.Messages[3].OfUser == nil {
		t.Fatal("expected final message to be a user message")
	}
}

// TestBuildParams_Tuning checks Temperature and MaxTokens passthrough.
func TestBuildParams_Tuning(t *testing.T) {
	p, err := New("sk-test", "gpt-4o")
	if err != nil {
		t.Fatal(err)
	}
	params := p.buildParams(llm.CompletionRequest{
		Message:     "hi",
		Temperature: 0.7,
		MaxTokens:   256,
	})
	if !params.Temperature.Valid() || params.Temperature.Value != 0.7 {
		t.Errorf("Temperature = %+v, want 0.7", params.Temperature)
	}
	if !params.MaxCompletionTokens.Valid() || params.MaxCompletionTokens.Value != 256 {
		t.Errorf("MaxCompletionTokens = %+v, want 256", params.MaxCompletionTokens)
	}
}

// TestBuildParams_TuningDefaults checks that zero values are omitted so the
// API applies its own defaults.
func TestBuildParams_TuningDefaults(t *testing.T) {
	p, err := New("sk-test", "gpt-4o")
	if err != nil {
		t.Fatal(err)
	}
	params := p.buildParams(llm.CompletionRequest{Message: "hi"})
	if params.Temperature.Valid() {
		t.Errorf("Temperature = %+v, want unset", params.Temperature)
	}
	if params.MaxCompletionTokens.Valid() {
		t.Errorf("MaxCompletionTokens = %+v, want unset", params.MaxCompletionTokens)
	}
}

// ── Complete ──────────────────────────────────────────────────────────────────

// completionServer is a stub chat-completions endpoint. It records each
// decoded request body and answers with the configured response.
type completionServer struct {
	mu       sync.Mutex
	requests []map[string]any
	respond  map[string]any
}

func (s *completionServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		s.requests = append(s.requests, body)
		s.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(s.respond)
	}
}

func (s *completionServer) lastRequest(t *testing.T) map[string]any {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		t.Fatal("no request reached the stub server")
	}
	return s.requests[len(s.requests)-1]
}

// TestComplete_MapsResponse checks that a completion round-trip carries the
// conversation to the wire and maps content and token usage back.
func TestComplete_MapsResponse(t *testing.T) {
	stub := &completionServer{respond: map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  "gpt-4o",
		"choices": []map[string]any{
			{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": "well met"},
			},
		},
		"usage": map[string]any{
			"prompt_tokens":     7,
			"completion_tokens": 5,
			"total_tokens":      12,
		},
	}}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	p, err := New("sk-test", "gpt-4o", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatal(err)
	}

	resp, err := p.Complete(context.Background(), llm.CompletionRequest{
		History:      []string{"[Player]: hello", "[AI]: greetings"},
		Message:      "how are you?",
		SystemPrompt: "You are helpful.",
		Temperature:  0.7,
		MaxTokens:    256,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "well met" {
		t.Errorf("Content = %q, want %q", resp.Content, "well met")
	}
	if resp.Usage.PromptTokens != 7 || resp.Usage.CompletionTokens != 5 || resp.Usage.TotalTokens != 12 {
		t.Errorf("Usage = %+v", resp.Usage)
	}

	body := stub.lastRequest(t)
	if body["model"] != "gpt-4o" {
		t.Errorf("wire model = %v", body["model"])
	}
	if body["temperature"] != 0.7 {
		t.Errorf("wire temperature = %v", body["temperature"])
	}
	if body["max_completion_tokens"] != float64(256) {
		t.Errorf("wire max_completion_tokens = %v", body["max_completion_tokens"])
	}
	msgs, ok := body["messages"].([]any)
	if !ok || len(msgs) != 4 {
		t.Fatalf("wire messages = %v", body["messages"])
	}
	wantRoles := []string{"system", "user", "assistant", "user"}
	wantContent := []string{"You are helpful.", "hello", "greetings", "how are you?"}
	for i, raw := range msgs {
		m := raw.(map[string]any)
		if m["role"] != wantRoles[i] {
			t.Errorf("message %d role = %v, want %s", i, m["role"], wantRoles[i])
		}
		if m["content"] != wantContent[i] {
			t.Errorf("message %d content = %v, want %q", i, m["content"], wantContent[i])
		}
	}
}

// TestComplete_EmptyChoices checks that a response carrying no choices
// surfaces as an error instead of an empty reply.
func TestComplete_EmptyChoices(t *testing.T) {
	stub := &completionServer{respond: map[string]any{
		"id":      "chatcmpl-2",
		"object":  "chat.completion",
		"model":   "gpt-4o",
		"choices": []any{},
	}}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	p, err := New("sk-test", "gpt-4o", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatal(err)
	}

	resp, err := p.Complete(context.Background(), llm.CompletionRequest{Message: "hi"})
	if err == nil {
		t.Fatalf("expected error for empty choices, got %+v", resp)
	}
	if !strings.Contains(err.Error(), "empty choices") {
		t.Errorf("unexpected error: %v", err)
	}
}
