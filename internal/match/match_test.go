package match

import (
	"math"
	"testing"

	"github.com/contractoros/quote-engine/internal/catalog"
	"github.com/contractoros/quote-engine/internal/normalize"
	"github.com/shopspring/decimal"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	entries := []catalog.Entry{
		{CanonicalKey: "2x4_stud_92", DisplayName: `2x4 Stud 92-5/8"`, Aliases: []string{"2x4 stud", "2x4 studs 92", "stud"}, AcceptedUnits: []string{"each", "studs"}},
		{CanonicalKey: "osb_716_4x8", DisplayName: `OSB Sheathing 7/16" 4x8`, Aliases: []string{"7/16 osb", "osb sheathing", "osb"}, AcceptedUnits: []string{"sheets"}},
		{CanonicalKey: "nails_lb", DisplayName: "Nails (per lb)", Aliases: []string{"nails", "framing nails"}, AcceptedUnits: []string{"lb", "lbs"}},
	}
	offers := []catalog.Offer{
		{VendorID: "generic", CanonicalKey: "2x4_stud_92", UnitPrice: decimal.NewFromFloat(4.10), CoverageZips: []string{"*"}},
	}
	c, err := catalog.New(entries, offers)
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	return c
}

func newTestCanonicalizer(t *testing.T) *Canonicalizer {
	t.Helper()
	c, err := NewCanonicalizer(testCatalog(t), DefaultConfig())
	if err != nil {
		t.Fatalf("NewCanonicalizer: %v", err)
	}
	return c
}

func TestNormalizeName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"2x4 Studs", "2x4 stud"},
		{`OSB Sheathing, 7/16"`, "osb sheathing 7/16"},
		{"  Hurricane   TIES!!", "hurricane tie"},
		{"nails", "nail"},
	}
	for _, tc := range cases {
		if got := NormalizeName(tc.in); got != tc.want {
			t.Fatalf("NormalizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMatchExactAlias(t *testing.T) {
	c := newTestCanonicalizer(t)
	item := c.Match(normalize.RawToken{Quantity: 1000, Unit: "each", RawName: "2x4 studs"})
	if !item.Matched || item.CanonicalKey != "2x4_stud_92" {
		t.Fatalf("expected match to 2x4_stud_92, got %+v", item)
	}
	if item.Score < DefaultThreshold {
		t.Fatalf("exact alias should score at least the threshold, got %v", item.Score)
	}
}

func TestMatchFuzzyAlias(t *testing.T) {
	c := newTestCanonicalizer(t)
	item := c.Match(normalize.RawToken{Quantity: 200, Unit: "sheets", RawName: "7/16 OSB"})
	if !item.Matched || item.CanonicalKey != "osb_716_4x8" {
		t.Fatalf("expected match to osb_716_4x8, got %+v", item)
	}
}

func TestMatchBelowThresholdKeepsHint(t *testing.T) {
	c := newTestCanonicalizer(t)
	item := c.Match(normalize.RawToken{Quantity: 1, Unit: "each", RawName: "industrial paint sprayer"})
	if item.Matched || item.CanonicalKey != "" {
		t.Fatalf("expected no match, got %+v", item)
	}
	if item.CanonicalHint == "" {
		t.Fatal("unmatched item must still carry the best-scoring hint")
	}
}

func TestMatchDeterminism(t *testing.T) {
	c := newTestCanonicalizer(t)
	tok := normalize.RawToken{Quantity: 5, Unit: "lbs", RawName: "framing nails"}
	first := c.Match(tok)
	for i := 0; i < 50; i++ {
		if got := c.Match(tok); got != first {
			t.Fatalf("run %d diverged: %+v vs %+v", i, got, first)
		}
	}
}

func TestMatchTieBreakSmallestKey(t *testing.T) {
	// Two entries share an identical alias-normal form via plural folding;
	// the lexicographically smaller key must win the tie.
	entries := []catalog.Entry{
		{CanonicalKey: "bbb_widget", Aliases: []string{"widget bracket"}},
		{CanonicalKey: "aaa_widget", Aliases: []string{"widget brackets"}},
	}
	cat, err := catalog.New(entries, nil)
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	c, err := NewCanonicalizer(cat, DefaultConfig())
	if err != nil {
		t.Fatalf("NewCanonicalizer: %v", err)
	}
	item := c.Match(normalize.RawToken{Quantity: 1, Unit: "each", RawName: "widget bracket"})
	if item.CanonicalKey != "aaa_widget" {
		t.Fatalf("tie must resolve to smallest key, got %q (score %v)", item.CanonicalKey, item.Score)
	}
}

func TestMatchAllPreservesOrderAndCount(t *testing.T) {
	c := newTestCanonicalizer(t)
	tokens := []normalize.RawToken{
		{Quantity: 1000, Unit: "each", RawName: "2x4 studs"},
		{Quantity: 1, Unit: "each", RawName: "something unrecognizable entirely"},
		{Quantity: 200, Unit: "sheets", RawName: "7/16 OSB"},
	}
	items := c.MatchAll(tokens)
	if len(items) != len(tokens) {
		t.Fatalf("exactly one MatchedItem per token: got %d for %d", len(items), len(tokens))
	}
	for i := range tokens {
		if items[i].Raw != tokens[i] {
			t.Fatalf("order not preserved at %d: %+v", i, items[i].Raw)
		}
	}
}

func TestScoreComponents(t *testing.T) {
	if got := tokenOverlap("osb sheathing", "osb sheathing"); got != 1 {
		t.Fatalf("identical token sets must overlap fully, got %v", got)
	}
	if got := tokenOverlap("osb", "plywood"); got != 0 {
		t.Fatalf("disjoint token sets must score 0, got %v", got)
	}
	if got := editRatio("stud", "stud"); got != 1 {
		t.Fatalf("identical strings edit ratio 1, got %v", got)
	}
	if got := editRatio("stud", "studs"); math.Abs(got-0.8) > 1e-9 {
		t.Fatalf("stud/studs edit ratio 0.8, got %v", got)
	}
	if levenshtein("kitten", "sitting") != 3 {
		t.Fatal("levenshtein(kitten,sitting) must be 3")
	}
}

func TestConfigValidation(t *testing.T) {
	cat := testCatalog(t)
	if _, err := NewCanonicalizer(cat, Config{Threshold: 0, TokenWeight: 1, EditWeight: 0}); err == nil {
		t.Fatal("zero threshold must be rejected")
	}
	if _, err := NewCanonicalizer(cat, Config{Threshold: 0.6, TokenWeight: -1, EditWeight: 0.5}); err == nil {
		t.Fatal("negative weight must be rejected")
	}
	if _, err := NewCanonicalizer(cat, Config{Threshold: 0.6, TokenWeight: 0, EditWeight: 0}); err == nil {
		t.Fatal("all-zero weights must be rejected")
	}
}
