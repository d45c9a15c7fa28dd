package scoring

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrBadOutput indicates the completion output was not the expected
	// JSON object shape.
	ErrBadOutput = errors.New("scoring: malformed completion output")
	// ErrOutOfRange indicates a field was outside its allowed numeric range.
	ErrOutOfRange = errors.New("scoring: field out of range")
	// ErrFormulaMismatch indicates the reported score drifted from the
	// weighted breakdown beyond tolerance.
	ErrFormulaMismatch = errors.New("scoring: score does not match weighted breakdown")
)

// candidate mirrors the required model output schema with loose numeric
// types, so a non-integer slips through decoding and fails range checks
// instead of aborting the parse.
type candidate struct {
	Score     *float64 `json:"score"`
	Breakdown *struct {
		Activity  *float64 `json:"activity"`
		Maturity  *float64 `json:"maturity"`
		Diversity *float64 `json:"diversity"`
		Risk      *float64 `json:"risk"`
		Intent    *float64 `json:"intent"`
	} `json:"breakdown"`
	Reasoning   string   `json:"reasoning"`
	RiskFactors []string `json:"risk_factors"`
	Strengths   []string `json:"strengths"`
}

// parseAndValidate decodes one completion attempt and enforces the full
// contract: object shape, per-field types and ranges, reasoning length, the
// weighted-formula cross-check, and the neutral-intent rule for empty
// questionnaires. Any violation returns an error; the attempt is then
// retried by the engine, never repaired.
func parseAndValidate(raw string, emptyQuestionnaire bool) (*ScoreResult, error) {
	raw = stripFences(raw)

	var c candidate
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadOutput, err)
	}
	if c.Score == nil || c.Breakdown == nil {
		return nil, fmt.Errorf("%w: missing score or breakdown", ErrBadOutput)
	}
	b := c.Breakdown
	for name, v := range map[string]*float64{
		"activity": b.Activity, "maturity": b.Maturity,
		"diversity": b.Diversity, "risk": b.Risk, "intent": b.Intent,
	} {
		if v == nil {
			return nil, fmt.Errorf("%w: missing breakdown.%s", ErrBadOutput, name)
		}
		if *v != math.Trunc(*v) || *v < 0 || *v > 100 {
			return nil, fmt.Errorf("%w: breakdown.%s=%v not an integer in [0,100]", ErrOutOfRange, name, *v)
		}
	}
	if *c.Score != math.Trunc(*c.Score) || *c.Score < 0 || *c.Score > 1000 {
		return nil, fmt.Errorf("%w: score=%v not an integer in [0,1000]", ErrOutOfRange, *c.Score)
	}
	if n := len(c.Reasoning); n < 10 || n > 500 {
		return nil, fmt.Errorf("%w: reasoning length %d outside [10,500]", ErrOutOfRange, n)
	}

	result := &ScoreResult{
		Score: int(*c.Score),
		Breakdown: ScoreBreakdown{
			Activity:  int(*b.Activity),
			Maturity:  int(*b.Maturity),
			Diversity: int(*b.Diversity),
			Risk:      int(*b.Risk),
			Intent:    int(*b.Intent),
		},
		Reasoning:   c.Reasoning,
		RiskFactors: c.RiskFactors,
		Strengths:   c.Strengths,
	}
	if result.RiskFactors == nil {
		result.RiskFactors = []string{}
	}
	if result.Strengths == nil {
		result.Strengths = []string{}
	}

	if emptyQuestionnaire && result.Breakdown.Intent != NeutralIntent {
		return nil, fmt.Errorf("%w: intent=%d must be %d with no questionnaire",
			ErrOutOfRange, result.Breakdown.Intent, NeutralIntent)
	}

	expected := WeightedScore(result.Breakdown)
	if math.Abs(float64(result.Score)-math.Round(expected)) > Tolerance(result.Score) {
		return nil, fmt.Errorf("%w: score=%d expected %.0f", ErrFormulaMismatch, result.Score, expected)
	}

	return result, nil
}

// stripFences removes a markdown code fence if the model wrapped its JSON in
// one despite instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
