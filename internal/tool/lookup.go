package tool

import (
	"context"
	"fmt"
	"strings"
)

// Lookup answers exact-match queries against a static knowledge table.
// Entries cover the regional units the ingestion phase is told to convert.
type Lookup struct {
	facts map[string]string
}

// NewLookup builds the lookup tool with built-in facts merged with extra.
func NewLookup(extra map[string]string) *Lookup {
	facts := map[string]string{
		"lakh":           "1 lakh = 100,000",
		"crore":          "1 crore = 10,000,000",
		"tola":           "1 tola = 11.6638 grams",
		"seer":           "1 seer = 0.93310 kilograms",
		"maund":          "1 maund = 37.324 kilograms",
		"bigha":          "1 bigha varies by region; commonly 1,600 square yards",
		"kos":            "1 kos = approximately 3.2 kilometers",
		"speed of light": "299,792,458 meters per second",
	}
	for k, v := range extra {
		facts[strings.ToLower(k)] = v
	}
	return &Lookup{facts: facts}
}

func (*Lookup) Name() string { return "lookup" }

func (*Lookup) Schema() string {
	return "a single term to look up, e.g. lakh or tola; returns a known fact or unit conversion"
}

func (l *Lookup) Execute(_ context.Context, args string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(args))
	if v, ok := l.facts[key]; ok {
		return v, nil
	}
	return "", ErrExecution("lookup", fmt.Errorf("no entry for %q", key))
}
