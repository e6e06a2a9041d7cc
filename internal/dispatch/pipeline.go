// Package dispatch runs the asynchronous request pipeline between a
// player's chat and the completion provider.
//
// One dispatch is allowed in flight per player. The pipeline claims the
// session's waiting slot, augments the message with any rule-matched facts,
// resolves the credential for the session's platform, calls the provider off
// the chat path, and delivers the reply (or a short failure line) back to
// the player. The waiting slot is released no matter how the dispatch ends.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wardleworks/chatwarden/internal/config"
	"github.com/wardleworks/chatwarden/internal/mail"
	"github.com/wardleworks/chatwarden/internal/observe"
	"github.com/wardleworks/chatwarden/internal/resilience"
	"github.com/wardleworks/chatwarden/internal/rules"
	"github.com/wardleworks/chatwarden/internal/session"
	"github.com/wardleworks/chatwarden/internal/store"
	"github.com/wardleworks/chatwarden/pkg/provider/llm"
)

// Sentinel errors for the pipeline's soft rejections.
var (
	// ErrNoSession means the player has no active conversation.
	ErrNoSession = errors.New("no active session")

	// ErrBusy means a dispatch is already in flight for the player.
	ErrBusy = errors.New("dispatch in flight")

	// ErrCredentialMissing means no API credential could be resolved for
	// the submission. Only that submission fails.
	ErrCredentialMissing = errors.New("no credential on file")
)

// Player-facing lines. Kept short; detail goes to the log.
const (
	replyPrefix     = "[AI → You]: "
	tokensPrefix    = "[Tokens Used] "
	failureLine     = "The AI could not respond. Please try again."
	noTokenLine     = "No API token on file for this platform. Set one before chatting."
	endedLine       = "AI conversation ended."
	mailSentLine    = "Your chat history has been sent to your email!"
	transcriptTitle = "Your Chat History"
)

// Transcript turn prefixes. The provider adapters rely on these to map
// turns back to chat roles.
const (
	playerTurnPrefix = "[Player]: "
	aiTurnPrefix     = "[AI]: "
)

// dispatchTimeout bounds one provider round trip.
const dispatchTimeout = 2 * time.Minute

// Messenger delivers an in-game chat line to one player.
type Messenger func(playerID, message string)

// PipelineConfig carries the dependencies for [NewPipeline].
type PipelineConfig struct {
	Sessions *session.Registry
	Rules    *rules.Engine
	Factory  llm.Factory
	Store    *store.Store

	// Mail is optional; nil disables transcript export regardless of config.
	Mail mail.Sender

	Metrics *observe.Metrics
	Message Messenger

	AI          config.AIConfig
	MailEnabled bool
}

// Pipeline is the conversation dispatcher. Safe for concurrent use.
type Pipeline struct {
	sessions *session.Registry
	rules    *rules.Engine
	factory  llm.Factory
	store    *store.Store
	mail     mail.Sender
	metrics  *observe.Metrics
	message  Messenger
	breakers *resilience.BreakerSet

	ai          config.AIConfig
	mailEnabled bool
}

// NewPipeline wires a Pipeline from its dependencies.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	msg := cfg.Message
	if msg == nil {
		msg = func(string, string) {}
	}
	m := cfg.Metrics
	if m == nil {
		m = observe.DefaultMetrics()
	}
	return &Pipeline{
		sessions:    cfg.Sessions,
		rules:       cfg.Rules,
		factory:     cfg.Factory,
		store:       cfg.Store,
		mail:        cfg.Mail,
		metrics:     m,
		message:     msg,
		breakers:    resilience.NewBreakerSet(),
		ai:          cfg.AI,
		mailEnabled: cfg.MailEnabled && cfg.Mail != nil,
	}
}

// Submit queues message for completion. It returns [ErrNoSession] when the
// player has no conversation and [ErrBusy] when one dispatch is already in
// flight; neither changes any state. On success the provider call runs on
// its own goroutine and the reply reaches the player via the Messenger.
func (p *Pipeline) Submit(ctx context.Context, playerID, message string) error {
	platform, model, ok := p.sessions.PlatformModel(playerID)
	if !ok {
		return ErrNoSession
	}
	if !p.sessions.BeginDispatch(playerID) {
		return ErrBusy
	}

	// Snapshot the transcript before the goroutine so the request context
	// is fixed at submission time.
	history := p.sessions.Transcript(playerID)

	go p.run(context.WithoutCancel(ctx), playerID, platform, model, message, history)
	return nil
}

// run executes one dispatch end to end. It owns the waiting slot and always
// releases it.
func (p *Pipeline) run(parent context.Context, playerID, platform, model, message string, history []string) {
	defer p.sessions.EndDispatch(playerID)

	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, dispatchTimeout)
	defer cancel()

	prompt := p.augment(ctx, playerID, message)

	provider, err := p.provider(ctx, playerID, platform, model)
	if err != nil {
		slog.Error("resolving completion provider", "player", playerID, "platform", platform, "err", err)
		p.metrics.RecordDispatchError(ctx, "credentials")
		p.metrics.RecordDispatch(ctx, platform, model, "error", time.Since(start).Seconds())
		if errors.Is(err, ErrCredentialMissing) {
			p.message(playerID, noTokenLine)
		} else {
			p.message(playerID, failureLine)
		}
		return
	}

	guarded := resilience.Guard(p.breakers.Get(platform), provider)
	ctx, span := observe.StartSpan(ctx, "dispatch.completion",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("platform", platform),
			attribute.String("model", model),
		),
	)
	resp, err := guarded.Complete(ctx, llm.CompletionRequest{
		History:      history,
		Message:      prompt,
		SystemPrompt: p.ai.SystemPrompt,
		MaxTokens:    p.ai.MaxTokens,
	})
	if err != nil {
		span.RecordError(err)
	}
	span.End()
	if err != nil {
		stage := "provider"
		if errors.Is(err, resilience.ErrCircuitOpen) {
			stage = "breaker"
		}
		slog.Error("completion request failed", "player", playerID, "platform", platform, "model", model, "err", err)
		p.metrics.RecordDispatchError(ctx, stage)
		p.metrics.RecordDispatch(ctx, platform, model, "error", time.Since(start).Seconds())
		p.message(playerID, failureLine)
		return
	}

	// The session may have been force-terminated while we were waiting on
	// the provider. The reply has no home then.
	if !p.sessions.IsActive(playerID) {
		slog.Debug("discarding reply for terminated session", "player", playerID)
		p.metrics.RecordDispatch(ctx, platform, model, "discarded", time.Since(start).Seconds())
		return
	}

	p.sessions.Append(playerID, playerTurnPrefix+message)
	p.sessions.Append(playerID, aiTurnPrefix+resp.Content)

	p.message(playerID, replyPrefix+resp.Content)
	if resp.Usage.TotalTokens > 0 {
		p.message(playerID, fmt.Sprintf("%s%d", tokensPrefix, resp.Usage.TotalTokens))
	}

	p.metrics.RecordTokens(ctx, platform, model, int64(resp.Usage.TotalTokens))
	p.metrics.RecordDispatch(ctx, platform, model, "ok", time.Since(start).Seconds())
}

// augment appends rule-matched facts to the message so the provider sees
// live game context alongside the player's words.
func (p *Pipeline) augment(ctx context.Context, playerID, message string) string {
	if p.rules == nil {
		return message
	}
	matches := p.rules.Match(ctx, playerID, message)
	if len(matches) == 0 {
		return message
	}
	p.metrics.RuleMatches.Add(ctx, 1)

	var b strings.Builder
	b.WriteString(message)
	b.WriteString("\n\nContextual facts from the game server:\n")
	for _, m := range matches {
		b.WriteString("- ")
		b.WriteString(m)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// provider resolves the credential for this submission and builds a
// completion provider from it.
func (p *Pipeline) provider(ctx context.Context, playerID, platform, model string) (llm.Provider, error) {
	key := p.ai.APIKey
	if p.ai.CredentialMode == config.CredentialPerPlayer {
		token, found, err := p.store.GetToken(ctx, playerID, platform)
		if err != nil {
			return nil, fmt.Errorf("looking up token: %w", err)
		}
		if !found {
			return nil, ErrCredentialMissing
		}
		key = token
	}
	return p.factory.New(platform, model, key)
}

// Quit ends the player's conversation. It is rejected with [ErrBusy] while a
// dispatch is in flight; a stuck session is cleared only by force
// termination. When transcript export is enabled and the player has an email
// on file, the transcript is mailed in the background before the session is
// dropped.
func (p *Pipeline) Quit(ctx context.Context, playerID string) error {
	if !p.sessions.IsActive(playerID) {
		return ErrNoSession
	}
	if p.sessions.IsWaiting(playerID) {
		return ErrBusy
	}

	transcript := p.sessions.Transcript(playerID)
	p.exportTranscript(ctx, playerID, transcript)

	p.sessions.Terminate(playerID)
	p.metrics.ActiveSessions.Add(ctx, -1)
	p.message(playerID, endedLine)
	return nil
}

// exportTranscript mails the transcript when export is on and an address is
// known. Failures are logged and reported in metrics; the quit proceeds
// either way.
func (p *Pipeline) exportTranscript(ctx context.Context, playerID string, transcript []string) {
	if !p.mailEnabled || len(transcript) == 0 {
		return
	}
	email, found, err := p.store.GetEmail(ctx, playerID)
	if err != nil {
		slog.Error("looking up export address", "player", playerID, "err", err)
		return
	}
	if !found {
		return
	}

	body := strings.Join(transcript, "\n")
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	go func() {
		defer cancel()
		if err := p.mail.Send(sendCtx, email, transcriptTitle, body); err != nil {
			slog.Error("mailing transcript", "player", playerID, "err", err)
			p.metrics.RecordMailSend(sendCtx, "error")
			return
		}
		p.metrics.RecordMailSend(sendCtx, "ok")
	}()
	p.message(playerID, mailSentLine)
}
