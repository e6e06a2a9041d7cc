// Package app wires all chatwarden subsystems into a running service.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run executes the background loops, and Shutdown tears
// everything down in order.
//
// For testing, inject doubles via functional options (WithStore,
// WithFactory, etc.). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/wardleworks/chatwarden/internal/chat"
	"github.com/wardleworks/chatwarden/internal/command"
	"github.com/wardleworks/chatwarden/internal/config"
	"github.com/wardleworks/chatwarden/internal/dispatch"
	"github.com/wardleworks/chatwarden/internal/health"
	"github.com/wardleworks/chatwarden/internal/mail"
	"github.com/wardleworks/chatwarden/internal/observe"
	"github.com/wardleworks/chatwarden/internal/placeholder"
	"github.com/wardleworks/chatwarden/internal/rules"
	"github.com/wardleworks/chatwarden/internal/session"
	"github.com/wardleworks/chatwarden/internal/store"
	"github.com/wardleworks/chatwarden/internal/world"
	"github.com/wardleworks/chatwarden/pkg/provider/llm"
	"github.com/wardleworks/chatwarden/pkg/provider/llm/anyllm"
)

// shutdownLine is sent to every session owner when the server stops.
const shutdownLine = "AI conversation ended."

// Messenger delivers an in-game chat line to one player. The host adapter
// supplies it; the console host prints to stdout, a game-server host relays
// over its own transport.
type Messenger func(playerID, message string)

// App owns all subsystem lifetimes for the chat overlay.
type App struct {
	cfg     *config.Config
	metrics *observe.Metrics

	state    *world.State
	actor    *world.Actor
	sessions *session.Registry
	engine   *rules.Engine
	store    *store.Store
	pipeline *dispatch.Pipeline
	router   *chat.Router
	handler  *command.Handler

	// Injected doubles, nil unless an Option set them.
	factory llm.Factory
	mailer  mail.Sender

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects a persistence store instead of opening one from config.
func WithStore(s *store.Store) Option {
	return func(a *App) { a.store = s }
}

// WithFactory injects a provider factory instead of the any-llm one.
func WithFactory(f llm.Factory) Option {
	return func(a *App) { a.factory = f }
}

// WithMailSender injects a mail sender instead of the SMTP one.
func WithMailSender(s mail.Sender) Option {
	return func(a *App) { a.mailer = s }
}

// WithState injects pre-populated game state instead of an empty one.
func WithState(s *world.State) Option {
	return func(a *App) { a.state = s }
}

// WithMetrics injects a metrics bundle instead of the process default.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. message is the host's
// outbound channel to players; every AI reply, wait notice and termination
// message flows through it.
//
// A persistence backend that cannot be opened degrades rather than failing
// startup: the store is replaced with one that errors on every call, so
// email export and per-player credentials stop working but chat does not.
func New(ctx context.Context, cfg *config.Config, message Messenger, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	// ── 1. Game state actor ──────────────────────────────────────────────
	a.actor = world.NewActor(a.state)

	// ── 2. Rule engine ───────────────────────────────────────────────────
	engine, err := rules.NewEngine(rules.EngineConfig{
		Dir:     cfg.Rules.Dir,
		Catalog: placeholder.NewCatalog(),
		Querier: a.actor,
	})
	if err != nil {
		return nil, fmt.Errorf("app: init rules: %w", err)
	}
	a.engine = engine

	// ── 3. Persistence ───────────────────────────────────────────────────
	if err := a.initStore(ctx); err != nil {
		return nil, err
	}

	// ── 4. Mail sender ───────────────────────────────────────────────────
	if a.mailer == nil && cfg.Mail.Enable {
		a.mailer = mail.NewSMTPSender(cfg.Mail)
	}

	// ── 5. Provider factory ──────────────────────────────────────────────
	if a.factory == nil {
		a.factory = anyllm.Factory{}
	}

	// ── 6. Sessions + dispatch + surfaces ────────────────────────────────
	a.sessions = session.NewRegistry(session.Notifier(message))

	a.pipeline = dispatch.NewPipeline(dispatch.PipelineConfig{
		Sessions:    a.sessions,
		Rules:       a.engine,
		Factory:     a.factory,
		Store:       a.store,
		Mail:        a.mailer,
		Metrics:     a.metrics,
		Message:     dispatch.Messenger(message),
		AI:          cfg.AI,
		MailEnabled: cfg.Mail.Enable,
	})

	a.router = chat.NewRouter(a.sessions, a.pipeline, dispatch.Messenger(message))

	a.handler = command.NewHandler(command.HandlerConfig{
		Sessions:  a.sessions,
		Store:     a.store,
		Metrics:   a.metrics,
		Platforms: cfg.AI.Platforms,
	})

	return a, nil
}

// initStore opens the configured backend and applies the schema. Both
// failures degrade persistence instead of aborting startup.
func (a *App) initStore(ctx context.Context) error {
	if a.store == nil {
		st, err := store.Open(ctx, a.cfg.Database)
		if err != nil {
			slog.Error("persistence unavailable, emails and tokens disabled",
				"dialect", a.cfg.Database.Dialect, "err", err)
			a.store = store.Unavailable()
			return nil
		}
		a.store = st
	}

	if err := a.store.EnsureSchema(ctx); err != nil {
		slog.Error("schema setup failed, emails and tokens degraded", "err", err)
	}
	a.closers = append(a.closers, a.store.Close)
	return nil
}

// ─── Accessors ───────────────────────────────────────────────────────────────

// Router returns the chat interception surface for the host adapter.
func (a *App) Router() *chat.Router { return a.router }

// Handler returns the command surface for the host adapter.
func (a *App) Handler() *command.Handler { return a.handler }

// Sessions returns the session registry.
func (a *App) Sessions() *session.Registry { return a.sessions }

// World returns the game state actor; the host adapter pushes state changes
// through its Update method.
func (a *App) World() *world.Actor { return a.actor }

// Rules returns the loaded rule engine.
func (a *App) Rules() *rules.Engine { return a.engine }

// Store returns the persistence store.
func (a *App) Store() *store.Store { return a.store }

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run starts the background loops and blocks until ctx is cancelled: the
// game-state actor, and the ops endpoint (/metrics plus health probes) when
// configured.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.actor.Run(ctx)
	})

	if addr := a.cfg.Server.MetricsAddr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		health.New(health.Database(a.store), health.Rules(a.engine)).Register(mux)
		srv := &http.Server{
			Addr:        addr,
			Handler:     observe.Middleware(a.metrics)(mux),
			ReadTimeout: 10 * time.Second,
		}

		g.Go(func() error {
			slog.Info("metrics endpoint listening", "addr", addr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("app: metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	slog.Info("chatwarden running", "rules", a.engine.Len())
	return g.Wait()
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown terminates every live session with a notice, then tears down the
// remaining subsystems in order. It respects the context deadline: if ctx
// expires before all closers finish, remaining closers are skipped and the
// context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "sessions", a.sessions.Len())

		if n := a.sessions.TerminateAll(shutdownLine); n > 0 {
			a.metrics.ActiveSessions.Add(ctx, -int64(n))
		}

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
