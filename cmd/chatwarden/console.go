package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/wardleworks/chatwarden/internal/app"
	"github.com/wardleworks/chatwarden/internal/world"
)

// commandPrefix marks a console line as a command rather than chat. A game
// server adapter would register the equivalent under its own command tree.
const commandPrefix = "/ai"

// consoleHost is the stdin/stdout stand-in for a game server. It owns one
// player identity, feeds that player's lines through the chat and command
// surfaces, and prints everything the overlay sends back.
type consoleHost struct {
	in     io.Reader
	player string

	mu  sync.Mutex
	out io.Writer

	app *app.App
}

func newConsoleHost(in io.Reader, out io.Writer, player string) *consoleHost {
	return &consoleHost{in: in, out: out, player: player}
}

// Deliver is the outbound [app.Messenger]: overlay messages for any player
// are printed to the console.
func (h *consoleHost) Deliver(playerID, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fmt.Fprintf(h.out, "→ %s: %s\n", playerID, message)
}

// Attach binds the host to a built application and seeds the console player
// into the game state so placeholder tokens resolve.
func (h *consoleHost) Attach(a *app.App) {
	h.app = a

	player := h.player
	a.World().Update(func(s *world.State) {
		s.Players[player] = world.Player{
			ID:          player,
			Name:        player,
			DisplayName: player,
			Health:      20,
			MaxHealth:   20,
			FoodLevel:   20,
			GameMode:    "survival",
			Address:     "127.0.0.1",
			World:       "world",
			Position:    world.Position{X: 0, Y: 64, Z: 0},
			HeldIndex:   -1,
		}
		s.Worlds["world"] = world.Snapshot{
			Name:       "world",
			Time:       6000,
			Difficulty: "normal",
		}
	})
}

// Run reads console lines until ctx is cancelled or stdin closes. Lines
// starting with the command prefix go to the command handler; everything
// else goes through chat interception, and lines no session claims are
// echoed back as ordinary chat.
func (h *consoleHost) Run(ctx context.Context) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(h.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return ctx.Err()
			}
			h.handle(ctx, line)
		}
	}
}

func (h *consoleHost) handle(ctx context.Context, line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}

	if rest, ok := strings.CutPrefix(line, commandPrefix); ok && (rest == "" || rest[0] == ' ') {
		for _, reply := range h.app.Handler().Handle(ctx, h.player, strings.Fields(rest)) {
			h.Deliver(h.player, reply)
		}
		return
	}

	if h.app.Router().HandleChat(ctx, h.player, line) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	fmt.Fprintf(h.out, "<%s> %s\n", h.player, line)
}
