// Package pricing selects vendor offers for matched items by location.
// Pricing failures are reported on the item, never returned as errors.
package pricing

import (
	"sort"
	"strings"

	"github.com/contractoros/quote-engine/internal/catalog"
	"github.com/contractoros/quote-engine/internal/match"
	"github.com/shopspring/decimal"
)

const (
	ReasonUnmatched  = "unmatched"
	ReasonNoCoverage = "no_coverage"
)

// PricedItem carries every raw token through pricing. Offer and LineTotal
// are nil when the item could not be priced; UnpricedReason says why.
type PricedItem struct {
	Matched        match.MatchedItem `json:"matched"`
	Offer          *catalog.Offer    `json:"offer,omitempty"`
	LineTotal      *decimal.Decimal  `json:"line_total,omitempty"`
	UnpricedReason string            `json:"unpriced_reason,omitempty"`
}

// ItemOffers lists every covering offer for one item, cheapest first.
type ItemOffers struct {
	Matched match.MatchedItem `json:"matched"`
	Offers  []catalog.Offer   `json:"offers"`
}

// Aggregator reads offers from an immutable catalog; it holds no other state
// and is safe for concurrent use.
type Aggregator struct {
	cat *catalog.Catalog
}

func NewAggregator(cat *catalog.Catalog) *Aggregator {
	return &Aggregator{cat: cat}
}

// NormalizeZip reduces a location to its significant five characters.
func NormalizeZip(zip string) string {
	zip = strings.TrimSpace(zip)
	if len(zip) > 5 {
		zip = zip[:5]
	}
	return zip
}

// Price chooses the best covering offer per item: lowest unit price, ties
// broken by lexicographically smallest vendor id. Items stay in order; one
// PricedItem per MatchedItem.
func (a *Aggregator) Price(items []match.MatchedItem, zip string) []PricedItem {
	zip = NormalizeZip(zip)
	out := make([]PricedItem, 0, len(items))
	for _, item := range items {
		out = append(out, a.priceOne(item, zip))
	}
	return out
}

func (a *Aggregator) priceOne(item match.MatchedItem, zip string) PricedItem {
	priced := PricedItem{Matched: item}
	if !item.Matched {
		priced.UnpricedReason = ReasonUnmatched
		return priced
	}

	var best *catalog.Offer
	for _, offer := range a.cat.OffersFor(item.CanonicalKey) {
		if !offer.Covers(zip) {
			continue
		}
		if best == nil || offer.UnitPrice.LessThan(best.UnitPrice) ||
			(offer.UnitPrice.Equal(best.UnitPrice) && offer.VendorID < best.VendorID) {
			o := offer
			best = &o
		}
	}
	if best == nil {
		priced.UnpricedReason = ReasonNoCoverage
		return priced
	}

	total := best.UnitPrice.Mul(decimal.NewFromFloat(item.Raw.Quantity))
	priced.Offer = best
	priced.LineTotal = &total
	return priced
}

// Offers returns every covering offer per item sorted by price then vendor,
// for callers that want the full comparison rather than the chosen best.
func (a *Aggregator) Offers(items []match.MatchedItem, zip string) []ItemOffers {
	zip = NormalizeZip(zip)
	out := make([]ItemOffers, 0, len(items))
	for _, item := range items {
		io := ItemOffers{Matched: item, Offers: []catalog.Offer{}}
		if item.Matched {
			for _, offer := range a.cat.OffersFor(item.CanonicalKey) {
				if offer.Covers(zip) {
					io.Offers = append(io.Offers, offer)
				}
			}
			sort.Slice(io.Offers, func(i, j int) bool {
				if !io.Offers[i].UnitPrice.Equal(io.Offers[j].UnitPrice) {
					return io.Offers[i].UnitPrice.LessThan(io.Offers[j].UnitPrice)
				}
				return io.Offers[i].VendorID < io.Offers[j].VendorID
			})
		}
		out = append(out, io)
	}
	return out
}
