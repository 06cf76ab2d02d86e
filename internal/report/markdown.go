// Package report renders a finished quote as a customer-facing document:
// markdown first, then HTML, then optionally PDF through headless Chromium.
package report

import (
	"fmt"
	"strings"

	"github.com/contractoros/quote-engine/internal/pipeline"
	"github.com/contractoros/quote-engine/internal/pricing"
	"github.com/shopspring/decimal"
)

// Markdown builds the quote document. GFM tables carry the line items; the
// totals block mirrors the quote math so a customer can check it by hand.
func Markdown(res pipeline.QuoteResponse) string {
	q := res.Quote

	var b strings.Builder
	b.WriteString("# Materials Quote\n\n")
	fmt.Fprintf(&b, "**Quote ID:** %s  \n", q.ID)
	fmt.Fprintf(&b, "**Date:** %s  \n", q.CreatedAt.Format("January 2, 2006"))
	if res.Location != "" {
		fmt.Fprintf(&b, "**Delivery Zip:** %s  \n", res.Location)
	}
	b.WriteString("\n## Line Items\n\n")
	b.WriteString("| Item | Qty | Unit | Vendor | Unit Price | Line Total |\n")
	b.WriteString("|---|---:|---|---|---:|---:|\n")
	for _, item := range q.Items {
		writeItemRow(&b, item)
	}

	b.WriteString("\n## Totals\n\n")
	b.WriteString("| | |\n")
	b.WriteString("|---|---:|\n")
	fmt.Fprintf(&b, "| Subtotal | $%s |\n", q.Subtotal.StringFixed(2))
	fmt.Fprintf(&b, "| Markup (%s%%) | $%s |\n", trimPct(q.MarkupPct), q.MarkupAmount.StringFixed(2))
	fmt.Fprintf(&b, "| Tax (%s%%) | $%s |\n", trimPct(q.TaxPct), q.TaxAmount.StringFixed(2))
	fmt.Fprintf(&b, "| **Total** | **$%s %s** |\n", q.Total.StringFixed(2), q.Currency)

	writeExceptions(&b, res)
	return b.String()
}

func writeItemRow(b *strings.Builder, item pricing.PricedItem) {
	raw := item.Matched.Raw
	name := item.Matched.CanonicalKey
	if name == "" {
		name = raw.RawName
	}
	vendor, unitPrice, lineTotal := "—", "—", "—"
	if item.Offer != nil {
		vendor = item.Offer.VendorID
		unitPrice = "$" + item.Offer.UnitPrice.StringFixed(2)
	}
	if item.LineTotal != nil {
		lineTotal = "$" + item.LineTotal.StringFixed(2)
	}
	fmt.Fprintf(b, "| %s | %s | %s | %s | %s | %s |\n",
		escapePipes(name), formatQty(raw.Quantity), escapePipes(raw.Unit), vendor, unitPrice, lineTotal)
}

// writeExceptions appends whatever could not be priced or parsed, so the
// document never silently drops a customer's line.
func writeExceptions(b *strings.Builder, res pipeline.QuoteResponse) {
	var unpriced []pricing.PricedItem
	for _, item := range res.Quote.Items {
		if item.UnpricedReason != "" {
			unpriced = append(unpriced, item)
		}
	}
	if len(unpriced) == 0 && len(res.UnparsedLines) == 0 {
		return
	}
	b.WriteString("\n## Needs Attention\n\n")
	for _, item := range unpriced {
		switch item.UnpricedReason {
		case pricing.ReasonUnmatched:
			fmt.Fprintf(b, "- %q was not recognized as a catalog material", item.Matched.Raw.RawName)
			if item.Matched.CanonicalHint != "" {
				fmt.Fprintf(b, " (closest: %s)", item.Matched.CanonicalHint)
			}
			b.WriteString("\n")
		case pricing.ReasonNoCoverage:
			fmt.Fprintf(b, "- %q has no vendor serving zip %s\n", item.Matched.Raw.RawName, res.Location)
		default:
			fmt.Fprintf(b, "- %q could not be priced\n", item.Matched.Raw.RawName)
		}
	}
	for _, line := range res.UnparsedLines {
		fmt.Fprintf(b, "- could not read line: %q\n", line)
	}
}

func formatQty(q float64) string {
	d := decimal.NewFromFloat(q)
	if d.IsInteger() {
		return d.StringFixed(0)
	}
	return d.String()
}

func trimPct(d decimal.Decimal) string {
	s := d.StringFixed(2)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
