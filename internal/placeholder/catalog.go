// Package placeholder resolves {token} markers in rule responses to live
// player, world, and time values.
//
// The catalog is populated once at startup and read-only afterwards, so it
// needs no locking. Providers that read game state go through the world
// querier, which marshals the read onto the state-owning goroutine; a read
// that fails or times out resolves to a safe fallback string rather than
// aborting the whole template.
package placeholder

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/wardleworks/chatwarden/internal/world"
)

// fallback is substituted when a provider cannot produce a value.
const fallback = "unknown"

// nearbyRadius is the scan radius, in blocks, for the nearby-creature tokens.
const nearbyRadius = 20

// tokenPattern matches placeholder markers such as {player_name}.
var tokenPattern = regexp.MustCompile(`\{[a-z0-9_]+\}`)

// Provider produces the current value for one placeholder name.
type Provider func(ctx context.Context, q world.Querier, playerID string) string

// Catalog is the placeholder-name → provider lookup table.
type Catalog struct {
	providers map[string]Provider
	now       func() time.Time
}

// Option configures a [Catalog] during construction.
type Option func(*Catalog)

// WithClock replaces the wall clock used by time placeholders. For tests.
func WithClock(now func() time.Time) Option {
	return func(c *Catalog) {
		c.now = now
	}
}

// NewCatalog builds a catalog with every built-in provider registered:
// player and world attributes, the parametrized nearby-creature family, and
// the full time-zone family.
func NewCatalog(opts ...Option) *Catalog {
	c := &Catalog{
		providers: make(map[string]Provider),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.registerPlayer()
	c.registerWorld()
	c.registerNearby()
	c.registerTime()
	return c
}

// Register adds or replaces a named provider. The name is the bare token
// without braces.
func (c *Catalog) Register(name string, p Provider) {
	c.providers[name] = p
}

// Len returns the number of registered placeholder names.
func (c *Catalog) Len() int {
	return len(c.providers)
}

// Resolve replaces every known {token} in template with its provider's
// current value. Unknown tokens are left untouched, and a template without
// tokens is returned unchanged.
func (c *Catalog) Resolve(ctx context.Context, q world.Querier, playerID, template string) string {
	if !strings.Contains(template, "{") {
		return template
	}
	return tokenPattern.ReplaceAllStringFunc(template, func(token string) string {
		name := strings.Trim(token, "{}")
		p, ok := c.providers[name]
		if !ok {
			return token
		}
		return p(ctx, q, playerID)
	})
}

// playerValue adapts a pure function over [world.Player] into a Provider
// with the shared lookup-and-fallback handling.
func playerValue(fn func(world.Player) string) Provider {
	return func(ctx context.Context, q world.Querier, playerID string) string {
		p, err := q.Player(ctx, playerID)
		if err != nil {
			slog.Warn("placeholder: player lookup failed", "player", playerID, "err", err)
			return fallback
		}
		return fn(p)
	}
}

// worldValue adapts a pure function over [world.Snapshot] into a Provider.
func worldValue(fn func(world.Snapshot) string) Provider {
	return func(ctx context.Context, q world.Querier, playerID string) string {
		s, err := q.World(ctx, playerID)
		if err != nil {
			slog.Warn("placeholder: world lookup failed", "player", playerID, "err", err)
			return fallback
		}
		return fn(s)
	}
}

func (c *Catalog) registerPlayer() {
	c.Register("player_name", playerValue(func(p world.Player) string { return p.Name }))
	c.Register("player_displayname", playerValue(func(p world.Player) string {
		if p.DisplayName != "" {
			return p.DisplayName
		}
		return p.Name
	}))
	c.Register("player_uuid", playerValue(func(p world.Player) string { return p.ID }))
	c.Register("player_uuid_short", playerValue(func(p world.Player) string {
		short, _, _ := strings.Cut(p.ID, "-")
		return short
	}))
	c.Register("player_health", playerValue(func(p world.Player) string {
		return strconv.FormatFloat(p.Health, 'f', -1, 64)
	}))
	c.Register("player_max_health", playerValue(func(p world.Player) string {
		return strconv.FormatFloat(p.MaxHealth, 'f', -1, 64)
	}))
	c.Register("player_food_level", playerValue(func(p world.Player) string {
		return strconv.Itoa(p.FoodLevel)
	}))
	c.Register("player_exp_level", playerValue(func(p world.Player) string {
		return strconv.Itoa(p.ExpLevel)
	}))
	c.Register("player_gamemode", playerValue(func(p world.Player) string { return p.GameMode }))
	c.Register("player_ip", playerValue(func(p world.Player) string {
		if p.Address == "" {
			return fallback
		}
		return p.Address
	}))
	c.Register("player_location", playerValue(func(p world.Player) string {
		return p.Position.String()
	}))
	c.Register("player_world", playerValue(func(p world.Player) string { return p.World }))
	c.Register("player_inventory", playerValue(func(p world.Player) string {
		if len(p.Inventory) == 0 {
			return "Inventory is empty."
		}
		lines := make([]string, len(p.Inventory))
		for i, it := range p.Inventory {
			lines[i] = it.String()
		}
		return strings.Join(lines, "\n")
	}))
	c.Register("item_in_hand", playerValue(func(p world.Player) string {
		if p.HeldIndex < 0 || p.HeldIndex >= len(p.Inventory) {
			return "No item in hand."
		}
		return p.Inventory[p.HeldIndex].String()
	}))
}

func (c *Catalog) registerWorld() {
	c.Register("world_seed", worldValue(func(s world.Snapshot) string {
		return strconv.FormatInt(s.Seed, 10)
	}))
	c.Register("world_time", worldValue(func(s world.Snapshot) string {
		return strconv.FormatInt(s.Time, 10)
	}))
	c.Register("world_weather", worldValue(world.Snapshot.Weather))
	c.Register("world_difficulty", worldValue(func(s world.Snapshot) string { return s.Difficulty }))
	c.Register("world_entity_count", worldValue(func(s world.Snapshot) string {
		return strconv.Itoa(s.EntityCount)
	}))
	c.Register("world_loaded_chunks", worldValue(func(s world.Snapshot) string {
		return strconv.Itoa(s.LoadedChunks)
	}))
}

// registerNearby wires the creature-proximity token family. One shared code
// path serves every creature type plus the untyped entity tokens; only the
// lookup key differs per registration.
func (c *Catalog) registerNearby() {
	c.Register("nearby_entities_count", func(ctx context.Context, q world.Querier, playerID string) string {
		sightings, err := q.Nearby(ctx, playerID, nearbyRadius)
		if err != nil {
			return fallback
		}
		return strconv.Itoa(len(sightings))
	})
	c.Register("nearby_entities_detail", func(ctx context.Context, q world.Querier, playerID string) string {
		sightings, err := q.Nearby(ctx, playerID, nearbyRadius)
		if err != nil {
			return fallback
		}
		return describeSightings("entities", sightings)
	})

	for _, creature := range world.CreatureTypes {
		creature := creature
		c.Register("nearby_"+creature+"_count", func(ctx context.Context, q world.Querier, playerID string) string {
			sightings, err := q.NearbyByType(ctx, playerID, creature, nearbyRadius)
			if err != nil {
				return fallback
			}
			return strconv.Itoa(len(sightings))
		})
		c.Register("nearby_"+creature+"_detail", func(ctx context.Context, q world.Querier, playerID string) string {
			sightings, err := q.NearbyByType(ctx, playerID, creature, nearbyRadius)
			if err != nil {
				return fallback
			}
			return describeSightings(creature, sightings)
		})
	}
}

// describeSightings renders a multi-line listing of nearby creatures with
// their distances, or a friendly empty message.
func describeSightings(label string, sightings []world.Sighting) string {
	pretty := strings.ReplaceAll(label, "_", " ")
	if len(sightings) == 0 {
		if label == "entities" {
			return "No nearby entities found."
		}
		return fmt.Sprintf("No nearby %ss found.", pretty)
	}

	var b strings.Builder
	if label == "entities" {
		b.WriteString("Nearby entities:\n")
	} else {
		fmt.Fprintf(&b, "Nearby %ss:\n", pretty)
	}
	for _, s := range sightings {
		fmt.Fprintf(&b, "- %s (%.1f blocks away)\n", s.Type, s.Distance)
	}
	return strings.TrimRight(b.String(), "\n")
}
