// Package pipeline composes the request-scoped flow: text or image in,
// tokens, matched items, priced items, quote out. Every stage produces a
// fresh value; nothing mutates upstream output, and no state outlives the
// request except the read-only catalog behind the components.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/contractoros/quote-engine/internal/match"
	"github.com/contractoros/quote-engine/internal/normalize"
	"github.com/contractoros/quote-engine/internal/pricing"
	"github.com/contractoros/quote-engine/internal/quote"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrEmptyInput rejects requests with neither text nor image payload.
var ErrEmptyInput = errors.New("request has neither text nor image")

// Input is the shared request payload: text, or an image when an AI
// normalizer is configured.
type Input struct {
	Text           string
	Image          []byte
	ImageMediaType string
}

func (in Input) hasImage() bool { return len(in.Image) > 0 }

type NormalizeResponse struct {
	Items          []match.MatchedItem `json:"items"`
	UnparsedLines  []string            `json:"unparsed_lines"`
	AIUsed         bool                `json:"ai_used"`
	FallbackReason string              `json:"fallback_reason,omitempty"`
}

type PriceResponse struct {
	Items          []pricing.ItemOffers `json:"items"`
	Location       string               `json:"location"`
	UnparsedLines  []string             `json:"unparsed_lines"`
	AIUsed         bool                 `json:"ai_used"`
	FallbackReason string               `json:"fallback_reason,omitempty"`
}

type QuoteResponse struct {
	Quote          quote.Quote `json:"quote"`
	Location       string      `json:"location"`
	UnparsedLines  []string    `json:"unparsed_lines"`
	AIUsed         bool        `json:"ai_used"`
	FallbackReason string      `json:"fallback_reason,omitempty"`
}

// Engine wires the components together. It is stateless per request and
// safe for concurrent use.
type Engine struct {
	normalizer normalize.Normalizer
	canon      *match.Canonicalizer
	agg        *pricing.Aggregator
	tracer     trace.Tracer
}

func NewEngine(normalizer normalize.Normalizer, canon *match.Canonicalizer, agg *pricing.Aggregator) *Engine {
	return &Engine{
		normalizer: normalizer,
		canon:      canon,
		agg:        agg,
		tracer:     otel.Tracer("quote-engine/pipeline"),
	}
}

// Normalize runs normalization and canonicalization: raw text or image to
// matched items plus per-line metadata.
func (e *Engine) Normalize(ctx context.Context, in Input) (NormalizeResponse, error) {
	res, err := e.normalizeTokens(ctx, in)
	if err != nil {
		return NormalizeResponse{}, err
	}

	_, span := e.tracer.Start(ctx, "canonicalize")
	items := e.canon.MatchAll(res.Items)
	span.SetAttributes(attribute.Int("items", len(items)))
	span.End()

	return NormalizeResponse{
		Items:          items,
		UnparsedLines:  unparsedOrEmpty(res.UnparsedLines),
		AIUsed:         res.AIUsed,
		FallbackReason: res.FallbackReason,
	}, nil
}

// Price lists every covering vendor offer per item for a location.
func (e *Engine) Price(ctx context.Context, in Input, location string) (PriceResponse, error) {
	norm, err := e.Normalize(ctx, in)
	if err != nil {
		return PriceResponse{}, err
	}
	zip := pricing.NormalizeZip(location)

	_, span := e.tracer.Start(ctx, "price")
	offers := e.agg.Offers(norm.Items, zip)
	span.End()

	return PriceResponse{
		Items:          offers,
		Location:       zip,
		UnparsedLines:  norm.UnparsedLines,
		AIUsed:         norm.AIUsed,
		FallbackReason: norm.FallbackReason,
	}, nil
}

// Quote runs the whole chain and computes the final quote.
func (e *Engine) Quote(ctx context.Context, in Input, location string, markupPct, taxPct decimal.Decimal) (QuoteResponse, error) {
	norm, err := e.Normalize(ctx, in)
	if err != nil {
		return QuoteResponse{}, err
	}
	zip := pricing.NormalizeZip(location)

	ctx, span := e.tracer.Start(ctx, "price")
	priced := e.agg.Price(norm.Items, zip)
	span.End()

	_, span = e.tracer.Start(ctx, "quote")
	q, err := quote.Calculate(priced, markupPct, taxPct)
	span.End()
	if err != nil {
		return QuoteResponse{}, err
	}

	return QuoteResponse{
		Quote:          q,
		Location:       zip,
		UnparsedLines:  norm.UnparsedLines,
		AIUsed:         norm.AIUsed,
		FallbackReason: norm.FallbackReason,
	}, nil
}

func (e *Engine) normalizeTokens(ctx context.Context, in Input) (normalize.Result, error) {
	ctx, span := e.tracer.Start(ctx, "normalize")
	defer span.End()

	switch {
	case in.hasImage():
		res, err := e.normalizer.NormalizeImage(ctx, in.Image, in.ImageMediaType)
		if err != nil {
			return normalize.Result{}, fmt.Errorf("normalize image: %w", err)
		}
		return res, nil
	case in.Text != "":
		res, err := e.normalizer.NormalizeText(ctx, in.Text)
		if err != nil {
			return normalize.Result{}, fmt.Errorf("normalize text: %w", err)
		}
		return res, nil
	default:
		return normalize.Result{}, ErrEmptyInput
	}
}

func unparsedOrEmpty(lines []string) []string {
	if lines == nil {
		return []string{}
	}
	return lines
}
