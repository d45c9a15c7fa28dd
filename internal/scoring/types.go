// Package scoring derives a validated reputation score from wallet features
// and an optional questionnaire, using a text-completion service with a
// deterministic per-wallet seed, bounded retries, and a deterministic
// fallback.
package scoring

import "math"

// QuestionnaireEntry is one free-text question/answer pair supplied by the
// caller. The sequence may be empty.
type QuestionnaireEntry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ScoreBreakdown holds the five scoring dimensions, each in [0,100].
type ScoreBreakdown struct {
	Activity  int `json:"activity"`
	Maturity  int `json:"maturity"`
	Diversity int `json:"diversity"`
	Risk      int `json:"risk"`
	Intent    int `json:"intent"`
}

// Dimension weights. The total score is the weighted sum of the breakdown,
// which spans [0,1000] when every dimension is in [0,100].
const (
	WeightActivity  = 2.0
	WeightMaturity  = 2.0
	WeightDiversity = 2.0
	WeightRisk      = 2.5
	WeightIntent    = 1.5
)

// NeutralIntent is the intent-alignment value used when no questionnaire is
// supplied.
const NeutralIntent = 50

// WeightedScore computes the weighted sum of the breakdown dimensions.
func WeightedScore(b ScoreBreakdown) float64 {
	return float64(b.Activity)*WeightActivity +
		float64(b.Maturity)*WeightMaturity +
		float64(b.Diversity)*WeightDiversity +
		float64(b.Risk)*WeightRisk +
		float64(b.Intent)*WeightIntent
}

// Tolerance returns the allowed drift between a reported score and its
// weighted breakdown: 2 points or 2% of the score, whichever is larger.
func Tolerance(score int) float64 {
	return math.Max(2, 0.02*float64(score))
}

// ScoreResult is the caller-visible outcome of a scoring run.
//
// Invariant: Score matches WeightedScore(Breakdown) within Tolerance(Score)
// for every model-produced result. Fallback results satisfy the fallback
// formula instead (score = min(1000, totalTransactions x 10)).
type ScoreResult struct {
	Score       int            `json:"score"`
	Breakdown   ScoreBreakdown `json:"breakdown"`
	Reasoning   string         `json:"reasoning"`
	RiskFactors []string       `json:"risk_factors"`
	Strengths   []string       `json:"strengths"`
	Fallback    bool           `json:"fallback"`
}

// RiskLevel grades an admitted score into a coarse band.
func RiskLevel(score int) string {
	switch {
	case score >= 800:
		return "excellent"
	case score >= 650:
		return "good"
	case score >= 500:
		return "fair"
	default:
		return "poor"
	}
}
