package scoring

import (
	"context"
	"errors"

	"github.com/chainproof/walletscore/internal/features"
	"github.com/chainproof/walletscore/internal/logging"
	"github.com/chainproof/walletscore/internal/metrics"
)

// CompletionClient is the narrow contract the engine needs from the
// text-completion service. Tests inject mocks returning canned sequences.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string, temperature float64, seed uint32) (string, error)
}

// temperatures for the three attempts, decreasing to request lower-entropy
// output on later tries.
var temperatures = []float64{0.3, 0.2, 0.1}

// Engine produces validated ScoreResults. Stateless apart from the injected
// client; safe for concurrent use.
type Engine struct {
	client CompletionClient
}

// NewEngine creates a scoring engine backed by the given completion client.
func NewEngine(client CompletionClient) *Engine {
	return &Engine{client: client}
}

// GenerateScore runs the attempt loop and returns the first validated result,
// or the deterministic fallback after all attempts fail. It never returns an
// error: upstream failures degrade, they do not surface.
func (e *Engine) GenerateScore(ctx context.Context, walletAddress string, f features.WalletFeatures, entries []QuestionnaireEntry) *ScoreResult {
	log := logging.L(ctx)
	seed := Seed(walletAddress)
	prompt := BuildPrompt(f, entries)
	emptyQuestionnaire := len(entries) == 0

	for attempt, temp := range temperatures {
		out, err := e.client.Complete(ctx, prompt, temp, seed)
		if err != nil {
			metrics.ScoringAttemptsTotal.WithLabelValues("service_error").Inc()
			log.Warn("completion attempt failed",
				"attempt", attempt+1, "temperature", temp, "error", err)
			continue
		}

		result, err := parseAndValidate(out, emptyQuestionnaire)
		if err != nil {
			metrics.ScoringAttemptsTotal.WithLabelValues(attemptOutcome(err)).Inc()
			log.Warn("completion output rejected",
				"attempt", attempt+1, "temperature", temp, "error", err)
			continue
		}

		metrics.ScoringAttemptsTotal.WithLabelValues("accepted").Inc()
		return result
	}

	metrics.ScoringFallbacksTotal.Inc()
	log.Warn("all scoring attempts failed, using fallback",
		"wallet", walletAddress, "total_transactions", f.TotalTransactions)
	return FallbackScore(f)
}

func attemptOutcome(err error) string {
	switch {
	case errors.Is(err, ErrFormulaMismatch):
		return "formula_mismatch"
	case errors.Is(err, ErrOutOfRange):
		return "out_of_range"
	default:
		return "invalid_json"
	}
}
