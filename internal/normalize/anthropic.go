package normalize

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"os"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const systemPrompt = "You turn contractor material supply lists into structured line items. " +
	"Respond with strict JSON only."

const schemaPrompt = `Required JSON schema:
{
  "items": [{"quantity": "number > 0", "unit": "string, lowercase, 'each' when absent", "raw_name": "string, the material description"}],
  "unparsed_lines": ["string (lines that are not material items)"]
}
Keep items in input order. Do not merge duplicate materials. Do not invent items.`

const defaultAITimeout = 20 * time.Second

// AnthropicMessager is the slice of the Anthropic client the normalizer
// needs; tests substitute it.
type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type AnthropicClientCreator func(apiKey string) AnthropicMessager

func defaultAnthropicCreator(apiKey string) AnthropicMessager {
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &c.Messages
}

var newAnthropicClient AnthropicClientCreator = defaultAnthropicCreator

// AnthropicNormalizer produces RawTokens from text or image input via the
// Anthropic messages API. Calls are bounded by Timeout; all failures are
// returned to the caller so Fallback can decide what to do.
type AnthropicNormalizer struct {
	messages AnthropicMessager
	model    anthropic.Model
	timeout  time.Duration
}

func NewAnthropicNormalizerFromEnv() (*AnthropicNormalizer, error) {
	apiKey := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY not configured")
	}
	return &AnthropicNormalizer{
		messages: newAnthropicClient(apiKey),
		model:    anthropic.ModelClaudeSonnet4_20250514,
		timeout:  defaultAITimeout,
	}, nil
}

// WithTimeout overrides the per-call deadline.
func (a *AnthropicNormalizer) WithTimeout(d time.Duration) *AnthropicNormalizer {
	if d > 0 {
		a.timeout = d
	}
	return a
}

func (a *AnthropicNormalizer) NormalizeText(ctx context.Context, text string) (Result, error) {
	prompt := fmt.Sprintf("Normalize this supply list.\n\n%s\n\nSupply list:\n%s", schemaPrompt, text)
	return a.call(ctx, []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(prompt)})
}

func (a *AnthropicNormalizer) NormalizeImage(ctx context.Context, image []byte, mediaType string) (Result, error) {
	if len(image) == 0 {
		return Result{}, errors.New("empty image payload")
	}
	prompt := fmt.Sprintf("Read the supply list in this image and normalize it.\n\n%s", schemaPrompt)
	blocks := []anthropic.ContentBlockParamUnion{
		anthropic.NewImageBlockBase64(mediaType, base64.StdEncoding.EncodeToString(image)),
		anthropic.NewTextBlock(prompt),
	}
	return a.call(ctx, blocks)
}

func (a *AnthropicNormalizer) call(ctx context.Context, blocks []anthropic.ContentBlockParamUnion) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	// Transport failures go straight to the caller; a malformed response
	// body gets one fresh attempt before giving up.
	res, err := a.attempt(ctx, blocks)
	if err != nil && ctx.Err() == nil && isContentError(err) {
		res, err = a.attempt(ctx, blocks)
	}
	return res, err
}

type contentError struct{ err error }

func (e *contentError) Error() string { return e.err.Error() }
func (e *contentError) Unwrap() error { return e.err }

func isContentError(err error) bool {
	var ce *contentError
	return errors.As(err, &ce)
}

func (a *AnthropicNormalizer) attempt(ctx context.Context, blocks []anthropic.ContentBlockParamUnion) (Result, error) {
	resp, err := a.messages.New(ctx, anthropic.MessageNewParams{
		Model:       a.model,
		MaxTokens:   2048,
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(blocks...)},
		Temperature: anthropic.Float(0),
	})
	if err != nil {
		return Result{}, fmt.Errorf("ai normalizer %s: %w", classifyAIFailure(err), err)
	}

	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	raw := strings.TrimSpace(sb.String())
	if raw == "" {
		return Result{}, &contentError{errors.New("ai normalizer returned an empty response")}
	}

	var payload struct {
		Items         []RawToken `json:"items"`
		UnparsedLines []string   `json:"unparsed_lines"`
	}
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &payload); err != nil {
		return Result{}, &contentError{fmt.Errorf("ai normalizer returned malformed json: %w", err)}
	}
	items, err := validateTokens(payload.Items)
	if err != nil {
		return Result{}, &contentError{fmt.Errorf("ai normalizer returned invalid items: %w", err)}
	}
	return Result{Items: items, UnparsedLines: payload.UnparsedLines, AIUsed: true}, nil
}

// validateTokens re-checks AI output against the RawToken contract;
// malformed results count as a normalizer failure.
func validateTokens(items []RawToken) ([]RawToken, error) {
	out := make([]RawToken, 0, len(items))
	for i, it := range items {
		if it.Quantity <= 0 || math.IsInf(it.Quantity, 0) || math.IsNaN(it.Quantity) {
			return nil, fmt.Errorf("item %d: quantity must be a positive finite number", i)
		}
		name := strings.TrimSpace(it.RawName)
		if name == "" {
			return nil, fmt.Errorf("item %d: raw_name is empty", i)
		}
		unit := strings.ToLower(strings.TrimSpace(it.Unit))
		if unit == "" {
			unit = DefaultUnit
		}
		out = append(out, RawToken{Quantity: it.Quantity, Unit: unit, RawName: name})
	}
	return out, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		parts := strings.SplitN(s, "\n", 2)
		if len(parts) == 2 {
			s = parts[1]
		}
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}

func classifyAIFailure(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out"
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return "timed out"
	}
	return "transport failure"
}
