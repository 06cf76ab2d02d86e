// Package match maps raw material mentions to catalog canonical keys with
// deterministic fuzzy matching: best score across every alias of every
// entry, lexicographically smallest key on ties.
package match

import (
	"fmt"

	"github.com/contractoros/quote-engine/internal/catalog"
	"github.com/contractoros/quote-engine/internal/normalize"
)

const (
	DefaultThreshold   = 0.6
	DefaultTokenWeight = 0.65
	DefaultEditWeight  = 0.35
)

// Config tunes the scoring function. Threshold and weights are deployment
// configuration, not constants.
type Config struct {
	Threshold   float64
	TokenWeight float64
	EditWeight  float64
}

func DefaultConfig() Config {
	return Config{
		Threshold:   DefaultThreshold,
		TokenWeight: DefaultTokenWeight,
		EditWeight:  DefaultEditWeight,
	}
}

func (c Config) validate() error {
	if c.Threshold <= 0 || c.Threshold > 1 {
		return fmt.Errorf("match threshold %v outside (0,1]", c.Threshold)
	}
	if c.TokenWeight < 0 || c.EditWeight < 0 || c.TokenWeight+c.EditWeight <= 0 {
		return fmt.Errorf("match weights %v/%v must be non-negative and sum above zero", c.TokenWeight, c.EditWeight)
	}
	return nil
}

// MatchedItem pairs a raw token with its match outcome. CanonicalKey is
// empty iff no alias scored at or above the threshold; CanonicalHint always
// carries the best-scoring candidate for user review.
type MatchedItem struct {
	Raw           normalize.RawToken `json:"raw"`
	CanonicalKey  string             `json:"canonical_key,omitempty"`
	Matched       bool               `json:"matched"`
	Score         float64            `json:"score"`
	CanonicalHint string             `json:"canonical_hint,omitempty"`
}

type aliasIndex struct {
	key   string
	alias string
}

// Canonicalizer scores raw names against a catalog's aliases. The alias
// list is normalized once at construction; matching itself allocates only
// per-request values.
type Canonicalizer struct {
	cfg     Config
	aliases []aliasIndex
}

func NewCanonicalizer(cat *catalog.Catalog, cfg Config) (*Canonicalizer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	c := &Canonicalizer{cfg: cfg}
	// Keys() is sorted, so equal scores resolve to the smallest key by
	// iteration order alone.
	for _, key := range cat.Keys() {
		entry, _ := cat.Lookup(key)
		for _, alias := range entry.Aliases {
			c.aliases = append(c.aliases, aliasIndex{key: key, alias: NormalizeName(alias)})
		}
	}
	return c, nil
}

// Match resolves one raw token. Identical catalog and input always produce
// the identical result.
func (c *Canonicalizer) Match(raw normalize.RawToken) MatchedItem {
	name := NormalizeName(raw.RawName)
	item := MatchedItem{Raw: raw}

	bestScore := -1.0
	bestKey := ""
	for _, ai := range c.aliases {
		s := Score(name, ai.alias, c.cfg.TokenWeight, c.cfg.EditWeight)
		if s > bestScore {
			bestScore = s
			bestKey = ai.key
		}
	}
	if bestKey == "" {
		return item
	}

	item.Score = bestScore
	item.CanonicalHint = bestKey
	if bestScore >= c.cfg.Threshold {
		item.Matched = true
		item.CanonicalKey = bestKey
	}
	return item
}

// MatchAll resolves tokens in order; exactly one MatchedItem per RawToken.
func (c *Canonicalizer) MatchAll(tokens []normalize.RawToken) []MatchedItem {
	out := make([]MatchedItem, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, c.Match(tok))
	}
	return out
}
