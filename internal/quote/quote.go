// Package quote turns priced items into a final quote: subtotal over the
// priceable lines, then markup, then tax on the marked-up amount. Monetary
// values stay unrounded until the displayed fields are stamped.
package quote

import (
	"fmt"
	"time"

	"github.com/contractoros/quote-engine/internal/catalog"
	"github.com/contractoros/quote-engine/internal/pricing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ValidationError rejects bad quote parameters before any computation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Quote is the final priced result. Items keeps every line, priced or not,
// in input order; unpriced lines carry their reason and contribute nothing
// to the subtotal.
type Quote struct {
	ID           string               `json:"id"`
	Items        []pricing.PricedItem `json:"items"`
	Subtotal     decimal.Decimal      `json:"subtotal"`
	MarkupPct    decimal.Decimal      `json:"markup_pct"`
	MarkupAmount decimal.Decimal      `json:"markup_amount"`
	TaxPct       decimal.Decimal      `json:"tax_pct"`
	TaxAmount    decimal.Decimal      `json:"tax_amount"`
	Total        decimal.Decimal      `json:"total"`
	Currency     string               `json:"currency"`
	CreatedAt    time.Time            `json:"created_at"`
}

var hundred = decimal.NewFromInt(100)

// Calculate computes a quote over priced items. markupPct and taxPct must
// be >= 0; negative values are a validation error, never clamped.
func Calculate(items []pricing.PricedItem, markupPct, taxPct decimal.Decimal) (Quote, error) {
	if markupPct.IsNegative() {
		return Quote{}, &ValidationError{Field: "markup_pct", Message: "must not be negative"}
	}
	if taxPct.IsNegative() {
		return Quote{}, &ValidationError{Field: "tax_pct", Message: "must not be negative"}
	}

	subtotal := decimal.Zero
	for _, item := range items {
		if item.LineTotal != nil {
			subtotal = subtotal.Add(*item.LineTotal)
		}
	}

	markup := subtotal.Mul(markupPct).Div(hundred)
	tax := subtotal.Add(markup).Mul(taxPct).Div(hundred)
	total := subtotal.Add(markup).Add(tax)

	return Quote{
		ID:           uuid.NewString(),
		Items:        items,
		Subtotal:     subtotal.Round(2),
		MarkupPct:    markupPct,
		MarkupAmount: markup.Round(2),
		TaxPct:       taxPct,
		TaxAmount:    tax.Round(2),
		Total:        total.Round(2),
		Currency:     catalog.Currency,
		CreatedAt:    time.Now().UTC(),
	}, nil
}
