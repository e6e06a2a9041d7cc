package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// defaultRules is written to data.json when the rule directory is freshly
// created or empty. It doubles as a reference for the placeholder syntax.
var defaultRules = []Rule{
	{
		Match:    []string{"What game am I playing right now?", "Which game am I currently playing?"},
		Response: "You are playing Minecraft right now.",
	},
	{
		Match:    []string{"What mobs are near me?", "List nearby entities"},
		Response: "Nearby entities:\n{nearby_entities_detail}",
	},
	{
		Match:    []string{"How many zombies nearby?", "Nearby zombie count"},
		Response: "There are {nearby_zombie_count} zombies near you.",
	},
	{
		Match:    []string{"How many creepers nearby?", "Nearby creeper count"},
		Response: "There are {nearby_creeper_count} creepers near you.",
	},
	{
		Match:    []string{"What is in my hand?", "Show my held item"},
		Response: "You are holding: {item_in_hand}",
	},
	{
		Match:    []string{"What is in my inventory?", "List my items"},
		Response: "Inventory contents:\n{player_inventory}",
	},
	{
		Match:    []string{"How much health do I have?", "Tell me my health"},
		Response: "You have {player_health} of {player_max_health} health.",
	},
	{
		Match:    []string{"Where am I?", "Tell me my location"},
		Response: "You are at {player_location} in world {player_world}.",
	},
	{
		Match:    []string{"What is my name?", "Who am I?"},
		Response: "Your name is {player_name}.",
	},
	{
		Match:    []string{"What is the seed?", "World seed?"},
		Response: "World seed: {world_seed}",
	},
	{
		Match:    []string{"What is the weather like?", "Current weather?"},
		Response: "World weather: {world_weather}",
	},
	{
		Match:    []string{"What is the server time?", "Current server time"},
		Response: "Server time is {time_server}.",
	},
	{
		Match:    []string{"What is time in GMT+7?", "Time in UTC+7?"},
		Response: "Time in GMT+7 is {time_gmt_plus_07_00}.",
	},
}

// seedIfEmpty writes the default data.json when dir is absent or holds no
// entries at all. A directory with any content, rule file or not, is left
// untouched.
func seedIfEmpty(dir string) error {
	entries, err := os.ReadDir(dir)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	case err != nil:
		return err
	case len(entries) > 0:
		return nil
	}

	data, err := json.MarshalIndent(defaultRules, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding default rules: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, "data.json"), data, 0o644)
}
