package normalize

import (
	"context"
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ErrImageUnsupported is returned by the rule-based normalizer for image
// input; there is no rule-based fallback for images.
var ErrImageUnsupported = errors.New("image normalization requires an AI normalizer")

// dimensionToken matches lumber-style dimension names such as "2x4" or
// "2x10x12". These start with digits but are part of the material name,
// never a quantity.
var dimensionToken = regexp.MustCompile(`^\d+(?:\.\d+)?(?:[xX]\d+(?:\.\d+)?)+$`)

var fractionToken = regexp.MustCompile(`^(\d+)/(\d+)$`)

// knownUnits is the recognized-but-open unit vocabulary. A token outside
// this set is treated as part of the material name.
var knownUnits = map[string]struct{}{
	"each": {}, "ea": {},
	"sheet": {}, "sheets": {},
	"stud": {}, "studs": {},
	"ft": {}, "lf": {}, "sqft": {}, "sf": {},
	"bag": {}, "bags": {},
	"lb": {}, "lbs": {},
	"box": {}, "boxes": {},
	"roll": {}, "rolls": {},
	"gallon": {}, "gallons": {}, "gal": {},
	"piece": {}, "pieces": {}, "pc": {}, "pcs": {},
	"bundle": {}, "bundles": {},
	"yd": {}, "yds": {},
}

// RuleNormalizer parses supply lists with deterministic rules. It never
// calls external services and never fails a whole batch on a bad line.
type RuleNormalizer struct{}

func NewRuleNormalizer() *RuleNormalizer { return &RuleNormalizer{} }

func (n *RuleNormalizer) NormalizeText(_ context.Context, text string) (Result, error) {
	res := Result{}
	for _, raw := range strings.Split(text, "\n") {
		line := trimBullet(raw)
		if line == "" {
			continue
		}
		tok, ok := parseLine(line)
		if !ok {
			res.UnparsedLines = append(res.UnparsedLines, line)
			continue
		}
		res.Items = append(res.Items, tok)
	}
	return res, nil
}

func (n *RuleNormalizer) NormalizeImage(context.Context, []byte, string) (Result, error) {
	return Result{}, ErrImageUnsupported
}

func trimBullet(line string) string {
	line = strings.TrimSpace(line)
	line = strings.TrimLeft(line, "-•*")
	return strings.TrimSpace(line)
}

func parseLine(line string) (RawToken, bool) {
	fields := strings.Fields(line)
	qty, ok := parseQuantity(fields[0])
	if !ok {
		return RawToken{}, false
	}
	rest := fields[1:]

	unit := DefaultUnit
	// A unit token is consumed only when a material name remains after it;
	// in "50 studs" the unit word is the name.
	if len(rest) > 1 {
		if _, known := knownUnits[strings.ToLower(rest[0])]; known {
			unit = strings.ToLower(rest[0])
			rest = rest[1:]
		}
	}
	name := strings.TrimSpace(strings.Join(rest, " "))
	if name == "" {
		return RawToken{}, false
	}
	return RawToken{Quantity: qty, Unit: unit, RawName: name}, true
}

// parseQuantity accepts integers, decimals, and bare fractions ("7/16").
// Dimension tokens like "2x4" are rejected so their digits stay in the name.
func parseQuantity(tok string) (float64, bool) {
	if dimensionToken.MatchString(tok) {
		return 0, false
	}
	if m := fractionToken.FindStringSubmatch(tok); m != nil {
		num, err1 := strconv.ParseFloat(m[1], 64)
		den, err2 := strconv.ParseFloat(m[2], 64)
		if err1 != nil || err2 != nil || den == 0 {
			return 0, false
		}
		q := num / den
		if q <= 0 {
			return 0, false
		}
		return q, true
	}
	q, err := strconv.ParseFloat(tok, 64)
	// ParseFloat accepts "inf" and friends without error; a non-finite
	// quantity is never a valid line item.
	if err != nil || math.IsInf(q, 0) || math.IsNaN(q) || q <= 0 {
		return 0, false
	}
	return q, true
}
