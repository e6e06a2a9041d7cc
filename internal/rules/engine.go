// Package rules matches player chat against operator-defined trigger
// phrases and renders the canned responses with live placeholder values.
//
// Rules live in .json files under a root directory that is scanned
// recursively at load time. A freshly provisioned server gets a seeded
// default file; an operator-managed tree is never written to.
package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/wardleworks/chatwarden/internal/placeholder"
	"github.com/wardleworks/chatwarden/internal/world"
)

// Rule is one trigger → response entry as stored on disk. Any of the match
// phrases fires the rule.
type Rule struct {
	Match    []string `json:"match"`
	Response string   `json:"response"`
}

// compiledRule carries the precompiled phrase patterns alongside the
// response template.
type compiledRule struct {
	patterns []*regexp.Regexp
	response string
}

// EngineConfig carries the dependencies for [NewEngine].
type EngineConfig struct {
	// Dir is the root of the rule file tree.
	Dir string

	// Catalog resolves {token} markers in matched responses.
	Catalog *placeholder.Catalog

	// Querier serves the live game state behind the catalog's providers.
	Querier world.Querier
}

// Engine holds the loaded rule set. The set is immutable after load, so
// Match is safe for concurrent use.
type Engine struct {
	rules   []compiledRule
	catalog *placeholder.Catalog
	querier world.Querier
}

// NewEngine seeds the rule directory if needed, loads every .json file under
// it, and precompiles the match patterns. Malformed files are skipped with a
// warning; only an unreadable directory fails the load.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if err := seedIfEmpty(cfg.Dir); err != nil {
		return nil, fmt.Errorf("seeding rule directory: %w", err)
	}

	loaded, err := loadDir(cfg.Dir)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		catalog: cfg.Catalog,
		querier: cfg.Querier,
	}
	for _, r := range loaded {
		cr := compile(r)
		if len(cr.patterns) == 0 {
			continue
		}
		e.rules = append(e.rules, cr)
	}
	slog.Info("loaded chat rules", "dir", cfg.Dir, "rules", len(e.rules))
	return e, nil
}

// Len returns the number of loaded rules.
func (e *Engine) Len() int {
	return len(e.rules)
}

// Match tests the trimmed input against every rule in load order and returns
// the resolved response of each rule that fires. Within a rule the first
// matching phrase wins; one input may fire several rules.
func (e *Engine) Match(ctx context.Context, playerID, input string) []string {
	trimmed := strings.TrimSpace(input)
	var results []string
	for _, r := range e.rules {
		for _, p := range r.patterns {
			if p.MatchString(trimmed) {
				results = append(results, e.catalog.Resolve(ctx, e.querier, playerID, r.response))
				break
			}
		}
	}
	return results
}

// loadDir collects rules from every .json file under dir, walking
// subdirectories.
func loadDir(dir string) ([]Rule, error) {
	var all []Rule
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".json") {
			return nil
		}
		rules, err := loadFile(path)
		if err != nil {
			slog.Warn("skipping malformed rule file", "path", path, "err", err)
			return nil
		}
		all = append(all, rules...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning rule directory %s: %w", dir, err)
	}
	return all, nil
}

func loadFile(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rules []Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

// compile turns each match phrase into a case-insensitive ordered-words
// pattern: the phrase's words must appear in order, with anything between
// them. "how many zombies" matches "so, how many of those zombies are left?".
func compile(r Rule) compiledRule {
	cr := compiledRule{response: r.Response}
	for _, phrase := range r.Match {
		words := strings.Fields(strings.ToLower(phrase))
		if len(words) == 0 {
			continue
		}
		for i, w := range words {
			words[i] = regexp.QuoteMeta(w)
		}
		p, err := regexp.Compile("(?i)" + strings.Join(words, ".*"))
		if err != nil {
			slog.Warn("skipping unparsable match phrase", "phrase", phrase, "err", err)
			continue
		}
		cr.patterns = append(cr.patterns, p)
	}
	return cr
}
