package normalize

import "context"

// AIUnavailableError marks requests that need the AI normalizer when none
// is configured or the call failed. Only image requests hit this: text
// always has the rule-based fallback.
type AIUnavailableError struct {
	Reason string
}

func (e *AIUnavailableError) Error() string {
	return "image analysis unavailable: " + e.Reason
}

// Fallback composes an optional AI normalizer with the rule-based one.
// The pipeline always targets this single Normalizer; fallback policy lives
// here instead of being scattered through callers.
type Fallback struct {
	ai    Normalizer
	rules *RuleNormalizer
}

// NewFallback builds the composed normalizer. ai may be nil, which makes
// the rule-based parser the only text path and image input a hard failure.
func NewFallback(ai Normalizer, rules *RuleNormalizer) *Fallback {
	if rules == nil {
		rules = NewRuleNormalizer()
	}
	return &Fallback{ai: ai, rules: rules}
}

// AIConfigured reports whether an AI normalizer is present.
func (f *Fallback) AIConfigured() bool { return f.ai != nil }

func (f *Fallback) NormalizeText(ctx context.Context, text string) (Result, error) {
	if f.ai == nil {
		return f.rules.NormalizeText(ctx, text)
	}
	res, err := f.ai.NormalizeText(ctx, text)
	if err == nil {
		return res, nil
	}
	fallback, rerr := f.rules.NormalizeText(ctx, text)
	if rerr != nil {
		return Result{}, rerr
	}
	fallback.FallbackReason = err.Error()
	return fallback, nil
}

func (f *Fallback) NormalizeImage(ctx context.Context, image []byte, mediaType string) (Result, error) {
	if f.ai == nil {
		return Result{}, &AIUnavailableError{Reason: "no AI normalizer configured"}
	}
	res, err := f.ai.NormalizeImage(ctx, image, mediaType)
	if err != nil {
		return Result{}, &AIUnavailableError{Reason: err.Error()}
	}
	return res, nil
}
