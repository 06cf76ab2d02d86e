package pricing

import (
	"testing"

	"github.com/contractoros/quote-engine/internal/catalog"
	"github.com/contractoros/quote-engine/internal/match"
	"github.com/contractoros/quote-engine/internal/normalize"
	"github.com/shopspring/decimal"
)

func price(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	entries := []catalog.Entry{
		{CanonicalKey: "2x4_stud_92", Aliases: []string{"2x4 stud"}, AcceptedUnits: []string{"each"}},
		{CanonicalKey: "nails_lb", Aliases: []string{"nails"}, AcceptedUnits: []string{"lb"}},
	}
	offers := []catalog.Offer{
		{VendorID: "mccoys", CanonicalKey: "2x4_stud_92", UnitPrice: price("3.69"), CoverageZips: []string{"784"}},
		{VendorID: "homedepot", CanonicalKey: "2x4_stud_92", UnitPrice: price("3.79"), CoverageZips: []string{"784"}},
		{VendorID: "generic", CanonicalKey: "2x4_stud_92", UnitPrice: price("4.10"), CoverageZips: []string{catalog.WildcardZip}},
		{VendorID: "mccoys", CanonicalKey: "nails_lb", UnitPrice: price("2.10"), CoverageZips: []string{"784"}},
	}
	c, err := catalog.New(entries, offers)
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	return c
}

func matchedItem(key string, qty float64) match.MatchedItem {
	return match.MatchedItem{
		Raw:           normalize.RawToken{Quantity: qty, Unit: "each", RawName: key},
		CanonicalKey:  key,
		Matched:       true,
		Score:         1,
		CanonicalHint: key,
	}
}

func TestPricePicksLowestCoveringOffer(t *testing.T) {
	agg := NewAggregator(testCatalog(t))
	priced := agg.Price([]match.MatchedItem{matchedItem("2x4_stud_92", 1000)}, "78413")
	if len(priced) != 1 {
		t.Fatalf("expected 1 priced item, got %d", len(priced))
	}
	got := priced[0]
	if got.Offer == nil || got.Offer.VendorID != "mccoys" {
		t.Fatalf("expected mccoys offer, got %+v", got.Offer)
	}
	if got.LineTotal == nil || !got.LineTotal.Equal(price("3690")) {
		t.Fatalf("expected line total 3690, got %v", got.LineTotal)
	}
}

func TestPriceNeverSelectsNonCoveringOffer(t *testing.T) {
	agg := NewAggregator(testCatalog(t))
	// 10001 is outside the 784 prefix: only the wildcard offer qualifies.
	priced := agg.Price([]match.MatchedItem{matchedItem("2x4_stud_92", 10)}, "10001")
	got := priced[0]
	if got.Offer == nil || got.Offer.VendorID != "generic" {
		t.Fatalf("expected wildcard generic offer, got %+v", got.Offer)
	}
	for _, zip := range []string{"78413", "10001", "00001"} {
		for _, item := range agg.Price([]match.MatchedItem{matchedItem("2x4_stud_92", 1)}, zip) {
			if item.Offer != nil && !item.Offer.Covers(NormalizeZip(zip)) {
				t.Fatalf("chose offer that does not cover %s: %+v", zip, item.Offer)
			}
		}
	}
}

func TestPriceNoCoverage(t *testing.T) {
	agg := NewAggregator(testCatalog(t))
	priced := agg.Price([]match.MatchedItem{matchedItem("nails_lb", 5)}, "10001")
	got := priced[0]
	if got.Offer != nil || got.LineTotal != nil {
		t.Fatalf("expected unpriced item, got %+v", got)
	}
	if got.UnpricedReason != ReasonNoCoverage {
		t.Fatalf("expected reason %q, got %q", ReasonNoCoverage, got.UnpricedReason)
	}
}

func TestPriceUnmatchedCarriedThrough(t *testing.T) {
	agg := NewAggregator(testCatalog(t))
	unmatched := match.MatchedItem{
		Raw:           normalize.RawToken{Quantity: 2, Unit: "each", RawName: "mystery gadget"},
		CanonicalHint: "nails_lb",
	}
	priced := agg.Price([]match.MatchedItem{unmatched, matchedItem("nails_lb", 5)}, "78413")
	if len(priced) != 2 {
		t.Fatalf("unpriced items must never be dropped: got %d", len(priced))
	}
	if priced[0].UnpricedReason != ReasonUnmatched {
		t.Fatalf("expected reason %q, got %q", ReasonUnmatched, priced[0].UnpricedReason)
	}
	if priced[1].LineTotal == nil {
		t.Fatal("matched item must still be priced")
	}
}

func TestPriceVendorTieBreak(t *testing.T) {
	entries := []catalog.Entry{{CanonicalKey: "osb_716_4x8", Aliases: []string{"osb"}}}
	offers := []catalog.Offer{
		{VendorID: "zeta", CanonicalKey: "osb_716_4x8", UnitPrice: price("12.95"), CoverageZips: []string{"784"}},
		{VendorID: "alpha", CanonicalKey: "osb_716_4x8", UnitPrice: price("12.95"), CoverageZips: []string{"784"}},
	}
	cat, err := catalog.New(entries, offers)
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	priced := NewAggregator(cat).Price([]match.MatchedItem{matchedItem("osb_716_4x8", 1)}, "78413")
	if priced[0].Offer.VendorID != "alpha" {
		t.Fatalf("identical prices must pick the smallest vendor id, got %q", priced[0].Offer.VendorID)
	}
}

func TestNormalizeZip(t *testing.T) {
	if got := NormalizeZip("  78413-1234 "); got != "78413" {
		t.Fatalf("NormalizeZip = %q", got)
	}
	if got := NormalizeZip("784"); got != "784" {
		t.Fatalf("short zips pass through, got %q", got)
	}
}

func TestOffersListsAllCoveringSortedByPrice(t *testing.T) {
	agg := NewAggregator(testCatalog(t))
	all := agg.Offers([]match.MatchedItem{matchedItem("2x4_stud_92", 1)}, "78413")
	if len(all) != 1 {
		t.Fatalf("expected 1 item, got %d", len(all))
	}
	offers := all[0].Offers
	if len(offers) != 3 {
		t.Fatalf("expected 3 covering offers, got %d", len(offers))
	}
	for i := 1; i < len(offers); i++ {
		if offers[i].UnitPrice.LessThan(offers[i-1].UnitPrice) {
			t.Fatalf("offers not sorted by price: %+v", offers)
		}
	}
	if offers[0].VendorID != "mccoys" {
		t.Fatalf("cheapest first, got %q", offers[0].VendorID)
	}
}
