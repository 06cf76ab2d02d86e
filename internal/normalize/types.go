package normalize

import "context"

const DefaultUnit = "each"

// RawToken is one parsed supply-list line: a positive quantity, a free-form
// unit (defaulting to "each"), and the remaining material description.
type RawToken struct {
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
	RawName  string  `json:"raw_name"`
}

// Result is the output of a normalization pass. UnparsedLines records lines
// that were skipped (no leading quantity); they are metadata, never an error.
type Result struct {
	Items         []RawToken `json:"items"`
	UnparsedLines []string   `json:"unparsed_lines,omitempty"`

	// AIUsed reports whether an AI normalizer produced the items.
	// FallbackReason is set when an AI normalizer was configured but the
	// rule-based parser had to take over.
	AIUsed         bool   `json:"ai_used,omitempty"`
	FallbackReason string `json:"fallback_reason,omitempty"`
}

// Normalizer converts free text or an image payload into raw tokens.
type Normalizer interface {
	NormalizeText(ctx context.Context, text string) (Result, error)
	NormalizeImage(ctx context.Context, image []byte, mediaType string) (Result, error)
}
