package report

import (
	"fmt"
	"strings"

	"github.com/contractoros/quote-engine/internal/pipeline"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const styleCSS = `body{font-family:Georgia,'Times New Roman',serif;color:#1c1917;margin:0;}
.quote-wrap{max-width:900px;margin:0 auto;padding:1rem 1.25rem;}
.quote-doc{border-left:3px solid #92400e;border-right:3px solid #92400e;padding:0 1rem;}
h1{font-size:1.6rem;border-bottom:2px solid #92400e;padding-bottom:0.4rem;}
h2{font-size:1.15rem;margin-top:1.4rem;}
table{width:100%;border-collapse:collapse;border:1px solid #a8a29e;font-size:0.85rem;}
th,td{border:1px solid #a8a29e;padding:0.35rem 0.5rem;text-align:left;vertical-align:top;}
thead th{background:#f1f5f9;font-weight:700;}
td:last-child,th:last-child{text-align:right;}`

// HTML converts the quote markdown into a standalone printable document.
func HTML(res pipeline.QuoteResponse) (string, error) {
	return renderHTML(Markdown(res))
}

func renderHTML(markdown string) (string, error) {
	var content strings.Builder
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(markdown), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	return "<!doctype html><html><head><meta charset='utf-8'><title>Materials Quote</title>" +
		"<style>" + styleCSS +
		"\nhtml,body,*{-webkit-print-color-adjust:exact !important;print-color-adjust:exact !important;}" +
		"\n@media print{ @page{size:auto;margin:12mm;} }" +
		"</style></head><body>" +
		"<div class='quote-wrap'><div class='quote-doc'>" + content.String() + "</div></div>" +
		"</body></html>", nil
}
