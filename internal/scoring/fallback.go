package scoring

import (
	"math"

	"github.com/chainproof/walletscore/internal/features"
)

// FallbackScore derives a deterministic score when every completion attempt
// has failed. It always succeeds.
//
// score = min(1000, totalTransactions x 10). The breakdown is apportioned by
// the dimension weights with intent pinned at the neutral midpoint: solving
// v*2 + v*2 + v*2 + v*2.5 + 50*1.5 = score gives v = (score - 75) / 8.5,
// clamped to [0,100].
func FallbackScore(f features.WalletFeatures) *ScoreResult {
	score := f.TotalTransactions * 10
	if score > 1000 {
		score = 1000
	}

	v := int(math.Round((float64(score) - 75) / 8.5))
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}

	return &ScoreResult{
		Score: score,
		Breakdown: ScoreBreakdown{
			Activity:  v,
			Maturity:  v,
			Diversity: v,
			Risk:      v,
			Intent:    NeutralIntent,
		},
		Reasoning:   "Score derived from transaction volume; the analysis service was unavailable.",
		RiskFactors: []string{"automated fallback scoring, reduced confidence"},
		Strengths:   []string{},
		Fallback:    true,
	}
}
