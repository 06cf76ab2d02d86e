package quote

import (
	"errors"
	"testing"

	"github.com/contractoros/quote-engine/internal/pricing"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func pricedItem(lineTotal string) pricing.PricedItem {
	d := dec(lineTotal)
	return pricing.PricedItem{LineTotal: &d}
}

func unpricedItem(reason string) pricing.PricedItem {
	return pricing.PricedItem{UnpricedReason: reason}
}

func TestCalculateScenario(t *testing.T) {
	// 1000 studs at 3.69 plus 200 OSB sheets at 12.95, markup 15, tax 8.25.
	items := []pricing.PricedItem{pricedItem("3690"), pricedItem("2590")}
	q, err := Calculate(items, dec("15"), dec("8.25"))
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	subtotal := dec("6280")
	if !q.Subtotal.Equal(subtotal) {
		t.Fatalf("subtotal = %s, want %s", q.Subtotal, subtotal)
	}
	want := subtotal.Mul(dec("1.15")).Mul(dec("1.0825")).Round(2)
	if !q.Total.Equal(want) {
		t.Fatalf("total = %s, want %s", q.Total, want)
	}
	if q.Currency != "USD" {
		t.Fatalf("currency = %q", q.Currency)
	}
	if q.ID == "" || q.CreatedAt.IsZero() {
		t.Fatal("quote must carry id and timestamp")
	}
}

func TestCalculateSubtotalSkipsUnpriced(t *testing.T) {
	items := []pricing.PricedItem{
		pricedItem("100"),
		unpricedItem(pricing.ReasonUnmatched),
		pricedItem("50.505"),
		unpricedItem(pricing.ReasonNoCoverage),
	}
	q, err := Calculate(items, decimal.Zero, decimal.Zero)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if !q.Subtotal.Equal(dec("150.51")) {
		t.Fatalf("subtotal = %s, want 150.51 (rounded only at display)", q.Subtotal)
	}
	if len(q.Items) != 4 {
		t.Fatalf("unpriced items must remain listed, got %d", len(q.Items))
	}
	if q.Items[1].UnpricedReason == "" || q.Items[3].UnpricedReason == "" {
		t.Fatal("unpriced items must carry their reason")
	}
}

func TestCalculateRejectsNegativePercentages(t *testing.T) {
	items := []pricing.PricedItem{pricedItem("10")}
	_, err := Calculate(items, dec("-5"), decimal.Zero)
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "markup_pct" {
		t.Fatalf("expected markup validation error, got %v", err)
	}
	_, err = Calculate(items, decimal.Zero, dec("-0.01"))
	if !errors.As(err, &ve) || ve.Field != "tax_pct" {
		t.Fatalf("expected tax validation error, got %v", err)
	}
}

func TestCalculateMonotonicInMarkupAndTax(t *testing.T) {
	items := []pricing.PricedItem{pricedItem("987.65")}
	prevTotal := decimal.NewFromInt(-1)
	for _, markup := range []string{"0", "5", "10", "25", "100"} {
		q, err := Calculate(items, dec(markup), dec("8.25"))
		if err != nil {
			t.Fatalf("Calculate(markup=%s): %v", markup, err)
		}
		if q.Total.LessThan(prevTotal) {
			t.Fatalf("total decreased when markup rose to %s", markup)
		}
		prevTotal = q.Total
	}
	prevTotal = decimal.NewFromInt(-1)
	for _, tax := range []string{"0", "1", "8.25", "10", "20"} {
		q, err := Calculate(items, dec("15"), dec(tax))
		if err != nil {
			t.Fatalf("Calculate(tax=%s): %v", tax, err)
		}
		if q.Total.LessThan(prevTotal) {
			t.Fatalf("total decreased when tax rose to %s", tax)
		}
		prevTotal = q.Total
	}
}

func TestCalculateNoMidPipelineRounding(t *testing.T) {
	// Three thirds of a cent only add up right if rounding waits for the end.
	items := []pricing.PricedItem{
		pricedItem("0.333"), pricedItem("0.333"), pricedItem("0.334"),
	}
	q, err := Calculate(items, decimal.Zero, decimal.Zero)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if !q.Total.Equal(dec("1.00")) {
		t.Fatalf("total = %s, want 1.00", q.Total)
	}
}

func TestCalculateMarkupThenTaxOrder(t *testing.T) {
	items := []pricing.PricedItem{pricedItem("100")}
	q, err := Calculate(items, dec("10"), dec("10"))
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if !q.MarkupAmount.Equal(dec("10")) {
		t.Fatalf("markup amount = %s, want 10", q.MarkupAmount)
	}
	// Tax applies to subtotal plus markup, not subtotal alone.
	if !q.TaxAmount.Equal(dec("11")) {
		t.Fatalf("tax amount = %s, want 11", q.TaxAmount)
	}
	if !q.Total.Equal(dec("121")) {
		t.Fatalf("total = %s, want 121", q.Total)
	}
}
