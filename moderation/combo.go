package moderation

import (
	"fmt"
	"strings"
	"time"
)

// A Combo is a fixed set of emoji tokens whose joint presence on a single
// message, by a single user, triggers a punishment. A user matches a combo
// when their tracked reaction set for the message is a superset of the
// combo's tokens.
type Combo struct {
	Tokens []string
}

func NewCombo(tokens ...string) Combo {
	return Combo{Tokens: tokens}
}

func (c Combo) MatchedBy(tracked []string) bool {
	if len(c.Tokens) == 0 {
		return false
	}
	have := make(map[string]bool, len(tracked))
	for _, e := range tracked {
		have[e] = true
	}
	for _, tok := range c.Tokens {
		if !have[tok] {
			return false
		}
	}
	return true
}

func (c Combo) String() string {
	return strings.Join(c.Tokens, ", ")
}

// DefaultCombos returns the forbidden combinations, in priority order. Only
// the first matching combo is ever acted on for a given reaction event.
func DefaultCombos() []Combo {
	return []Combo{
		NewCombo("🇳", "I", "G"),
		NewCombo("🇳", "I", "G", "🇬", "E", "R"),
		NewCombo("🇳", "I", "G", "🇬", "A"),
		NewCombo("😡", "🤬"),
	}
}

// ParseCombos parses a combo list from configuration: combos separated by
// ';', emoji tokens within a combo by ','. Eg "🇳,I,G;😡,🤬". Combo order
// is preserved and becomes the match priority order.
func ParseCombos(s string) ([]Combo, error) {
	var out []Combo
	for _, part := range strings.Split(s, ";") {
		var tokens []string
		for _, tok := range strings.Split(part, ",") {
			tok = strings.TrimSpace(tok)
			if tok != "" {
				tokens = append(tokens, tok)
			}
		}
		if len(tokens) == 0 {
			return nil, fmt.Errorf("empty combo in %q", s)
		}
		out = append(out, Combo{Tokens: tokens})
	}
	return out, nil
}

// ParseTimeoutLadder parses a comma-separated list of escalating timeout
// durations, eg "1m,5m,15m,60m".
func ParseTimeoutLadder(s string) ([]time.Duration, error) {
	var out []time.Duration
	for _, part := range strings.Split(s, ",") {
		d, err := time.ParseDuration(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		if d <= 0 {
			return nil, fmt.Errorf("non-positive timeout duration %q", part)
		}
		out = append(out, d)
	}
	return out, nil
}
