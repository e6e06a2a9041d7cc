// Package world holds the mutable game/world state and the actor that owns it.
//
// All game state is owned by a single goroutine (the actor). Read access from
// other goroutines is marshalled onto that goroutine through a request channel;
// callers block until the actor produces a value or their context expires.
// This mirrors the classic game-server constraint that world reads are only
// safe on the tick thread.
package world

import (
	"fmt"
	"math"
	"strings"
)

// Position is a point in a world's coordinate space.
type Position struct {
	X, Y, Z float64
}

// String formats the position the way it is shown to players.
func (p Position) String() string {
	return fmt.Sprintf("X: %.1f, Y: %.1f, Z: %.1f", p.X, p.Y, p.Z)
}

// Distance returns the euclidean distance to other.
func (p Position) Distance(other Position) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	dz := p.Z - other.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Item is one stack in a player's inventory.
type Item struct {
	// Type is the item's type name (e.g., "iron_sword").
	Type string

	// Amount is the stack size.
	Amount int

	// Name is an optional custom display name.
	Name string
}

// String renders the stack as a single detail line.
func (it Item) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Type: %s, Amount: %d", it.Type, it.Amount)
	if it.Name != "" {
		fmt.Fprintf(&b, ", Name: %s", it.Name)
	}
	return b.String()
}

// Player is the live state of one connected player.
type Player struct {
	ID          string
	Name        string
	DisplayName string
	Health      float64
	MaxHealth   float64
	FoodLevel   int
	ExpLevel    int
	GameMode    string
	Address     string
	World       string
	Position    Position
	Inventory   []Item

	// HeldIndex is the inventory slot currently in the player's hand,
	// or -1 when the hand is empty.
	HeldIndex int
}

// Creature is a non-player actor loaded in a world.
type Creature struct {
	Type     string
	World    string
	Position Position
}

// Snapshot is the per-world metadata exposed to placeholders.
type Snapshot struct {
	Name         string
	Seed         int64
	Time         int64
	Storming     bool
	Difficulty   string
	EntityCount  int
	LoadedChunks int
}

// Weather returns the player-facing weather label.
func (s Snapshot) Weather() string {
	if s.Storming {
		return "Raining"
	}
	return "Clear"
}

// State is the complete mutable game state. It must only be touched from the
// actor goroutine; see [Actor].
type State struct {
	Players   map[string]Player
	Creatures []Creature
	Worlds    map[string]Snapshot
}

// NewState returns an empty State with initialised maps.
func NewState() *State {
	return &State{
		Players: make(map[string]Player),
		Worlds:  make(map[string]Snapshot),
	}
}

// CreatureTypes is the bounded enumeration of creature type names the nearby
// placeholders accept. The placeholder catalog derives one count and one
// detail token per entry.
var CreatureTypes = []string{
	"allay", "armadillo", "axolotl", "bat", "bee", "blaze", "bogged", "breeze",
	"camel", "cat", "cave_spider", "chicken", "cod", "cow", "creeper", "dolphin",
	"donkey", "drowned", "elder_guardian", "ender_dragon", "endermite", "evoker",
	"fox", "frog", "ghast", "glow_squid", "goat", "guardian", "hoglin", "horse",
	"husk", "illusioner", "iron_golem", "llama", "magma_cube", "mooshroom", "mule",
	"ocelot", "panda", "parrot", "phantom", "pig", "piglin", "piglin_brute",
	"pillager", "polar_bear", "pufferfish", "rabbit", "ravager", "salmon", "sheep",
	"shulker", "silverfish", "skeleton", "skeleton_horse", "slime", "sniffer",
	"snow_golem", "spider", "squid", "stray", "strider", "trader_llama",
	"tropical_fish", "turtle", "vex", "vindicator", "warden", "witch", "wither",
	"wither_skeleton", "wolf", "zoglin", "zombie", "zombie_horse", "zombie_villager",
	"zombified_piglin",
}

// IsCreatureType reports whether name is a recognised creature type.
func IsCreatureType(name string) bool {
	for _, t := range CreatureTypes {
		if t == name {
			return true
		}
	}
	return false
}
