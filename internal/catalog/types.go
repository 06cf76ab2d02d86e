package catalog

import "github.com/shopspring/decimal"

// Currency is the single supported currency; there is no conversion.
const Currency = "USD"

// WildcardZip in an offer's coverage matches every location.
const WildcardZip = "*"

// Entry is one catalog material. Immutable after load; CanonicalKey is the
// single source of truth for valid keys.
type Entry struct {
	CanonicalKey  string   `json:"canonical_key" db:"canonical_key"`
	DisplayName   string   `json:"display_name" db:"display_name"`
	Aliases       []string `json:"aliases"`
	AcceptedUnits []string `json:"accepted_units"`
}

// Offer is one vendor's price for a canonical material. CoverageZips holds
// zip prefixes; a zip is covered when it starts with one of them, or when
// the list contains the wildcard.
type Offer struct {
	VendorID     string          `json:"vendor_id" db:"vendor_id"`
	CanonicalKey string          `json:"canonical_key" db:"canonical_key"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Currency     string          `json:"currency"`
	CoverageZips []string        `json:"coverage_zips"`
}

// Covers reports whether the offer applies to the given (already
// normalized) zip code.
func (o Offer) Covers(zip string) bool {
	for _, prefix := range o.CoverageZips {
		if prefix == WildcardZip {
			return true
		}
		if prefix != "" && len(zip) >= len(prefix) && zip[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}
