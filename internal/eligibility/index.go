// Package eligibility provides a small, deterministic, concurrency-safe
// in-memory index of visa-exemption rules, plus the pure filter the wizard
// uses to narrow the nationality choice set. It is intentionally dependency
// free but engineered with production-grade ergonomics:
//
//   - No logging in the library (callers decide how/what to log)
//   - Clear, documented types and functional options (Option pattern)
//   - Immutable, read-only index after construction (safe for concurrent use)
//   - Deterministic, identically ordered results for identical inputs
//   - Sensible defaults (compiled-in rule set and nationality universe)
//
// The rule table is conceptually a configuration artifact, not a live
// service: it is loaded once at startup, either from a JSON file or from the
// compiled-in defaults.
package eligibility

import (
	"encoding/json"
	"os"
	"sort"
	"strings"
)

// Rule is an immutable reference datum mapping a destination country (and,
// for long-stay variants, a visa category) to the set of nationalities
// subject to a visa requirement for that pair. A rule with an empty
// VisaCategory applies to every category for its destination.
type Rule struct {
	DestinationCountry string   `json:"destination_country"`
	VisaCategory       string   `json:"visa_category,omitempty"`
	Nationalities      []string `json:"nationalities"`
}

// Index is the minimal read interface implemented by rule indices.
type Index interface {
	// Restricted returns the ordered nationality list subject to a visa
	// requirement for (destination, category), and whether any rule was
	// registered for that pair. Absence of a rule means "no restriction",
	// never "everyone excluded".
	Restricted(destination, category string) ([]string, bool)
	// Universe returns the full ordered nationality choice set.
	Universe() []string
}

// ----------------------------------------------------------------------------
// Options

// Option customizes index construction.
type Option func(*config)

type config struct {
	universe []string
	maxRules int
}

func defaultConfig() config {
	return config{
		universe: nil, // falls back to DefaultUniverse
		maxRules: 0,   // unlimited
	}
}

// WithUniverse overrides the full nationality choice set returned when no
// restriction applies. Values are trimmed, de-duplicated, and sorted.
func WithUniverse(nationalities []string) Option {
	return func(c *config) {
		if len(nationalities) > 0 {
			c.universe = nationalities
		}
	}
}

// WithMaxRules caps the number of rules loaded (0 = unlimited). Useful to
// bound memory when the rules file is externally managed.
func WithMaxRules(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.maxRules = n
		}
	}
}

// ----------------------------------------------------------------------------
// Static index

type pairKey struct {
	destination string
	category    string
}

// StaticIndex is the immutable rule table. After construction it is never
// mutated, so lookups are safe for concurrent use without locking.
type StaticIndex struct {
	universe []string
	byPair   map[pairKey][]string
	byDest   map[string][]string
}

// Compile-time check: StaticIndex implements Index.
var _ Index = (*StaticIndex)(nil)

// NewIndex builds an immutable index from the given rules. Nationality lists
// are trimmed, de-duplicated, and sorted once here so every later lookup is
// identically ordered. Rules with an empty destination are skipped.
func NewIndex(rules []Rule, opts ...Option) *StaticIndex {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}

	idx := &StaticIndex{
		byPair: make(map[pairKey][]string),
		byDest: make(map[string][]string),
	}

	n := 0
	for _, r := range rules {
		dest := normalizeKey(r.DestinationCountry)
		if dest == "" {
			continue
		}
		if cfg.maxRules > 0 && n >= cfg.maxRules {
			break
		}
		list := normalizeList(r.Nationalities)
		cat := normalizeKey(r.VisaCategory)
		if cat == "" {
			idx.byDest[dest] = list
		} else {
			idx.byPair[pairKey{destination: dest, category: cat}] = list
		}
		n++
	}

	if cfg.universe != nil {
		idx.universe = normalizeList(cfg.universe)
	} else {
		idx.universe = normalizeList(DefaultUniverse())
	}
	return idx
}

// LoadFile reads a JSON rules file (an array of Rule objects) and builds an
// index from it. The file format matches what the content team exports.
func LoadFile(path string, opts ...Option) (*StaticIndex, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rules []Rule
	if err := json.Unmarshal(b, &rules); err != nil {
		return nil, err
	}
	return NewIndex(rules, opts...), nil
}

// Restricted implements Index. Lookup precedence: the exact (destination,
// category) pair first, then the destination-wide rule. Callers receive a
// copy; the internal lists are never exposed.
func (ix *StaticIndex) Restricted(destination, category string) ([]string, bool) {
	dest := normalizeKey(destination)
	cat := normalizeKey(category)
	if dest == "" {
		return nil, false
	}
	if list, ok := ix.byPair[pairKey{destination: dest, category: cat}]; ok {
		return append([]string(nil), list...), true
	}
	if list, ok := ix.byDest[dest]; ok {
		return append([]string(nil), list...), true
	}
	return nil, false
}

// Universe implements Index. Callers receive a copy.
func (ix *StaticIndex) Universe() []string {
	return append([]string(nil), ix.universe...)
}

// RuleCount returns how many rules the index holds (for startup logging).
func (ix *StaticIndex) RuleCount() int {
	return len(ix.byPair) + len(ix.byDest)
}

// normalizeKey canonicalizes a lookup key: trimmed, single-spaced, lowercase.
func normalizeKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// normalizeList trims, drops empties, de-duplicates, and sorts a nationality
// list. Sorting once at construction is what makes every lookup result
// identically ordered.
func normalizeList(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.Join(strings.Fields(v), " ")
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
