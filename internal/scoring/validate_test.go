package scoring

import (
	"errors"
	"strings"
	"testing"
)

// validOutput has score == weighted sum exactly:
// 80*2 + 70*2 + 60*2 + 84*2.5 + 50*1.5 = 705.
const validOutput = `{
	"score": 705,
	"breakdown": {"activity": 80, "maturity": 70, "diversity": 60, "risk": 84, "intent": 50},
	"reasoning": "Long-lived wallet with steady activity and a clean lending record.",
	"risk_factors": ["concentrated holdings"],
	"strengths": ["no liquidations"]
}`

func TestParseAndValidateAccepts(t *testing.T) {
	result, err := parseAndValidate(validOutput, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Score != 705 {
		t.Errorf("Score = %d, want 705", result.Score)
	}
	if result.Breakdown.Risk != 84 {
		t.Errorf("Risk = %d, want 84", result.Breakdown.Risk)
	}
	if result.Fallback {
		t.Error("model result must not be flagged as fallback")
	}
}

func TestParseAndValidateStripsFences(t *testing.T) {
	fenced := "```json\n" + validOutput + "\n```"
	if _, err := parseAndValidate(fenced, true); err != nil {
		t.Fatalf("fenced output rejected: %v", err)
	}
}

func TestParseAndValidateRejects(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(string) string
		wantErr error
	}{
		{"not json", func(string) string { return "I think the score is 700." }, ErrBadOutput},
		{"missing breakdown", func(string) string { return `{"score": 705, "reasoning": "ten chars ok"}` }, ErrBadOutput},
		{"score too high", func(s string) string { return strings.Replace(s, `"score": 705`, `"score": 1500`, 1) }, ErrOutOfRange},
		{"negative dimension", func(s string) string { return strings.Replace(s, `"activity": 80`, `"activity": -5`, 1) }, ErrOutOfRange},
		{"dimension over 100", func(s string) string { return strings.Replace(s, `"risk": 84`, `"risk": 120`, 1) }, ErrOutOfRange},
		{"non-integer score", func(s string) string { return strings.Replace(s, `"score": 705`, `"score": 705.4`, 1) }, ErrOutOfRange},
		{"reasoning too short", func(s string) string {
			return strings.Replace(s, `"Long-lived wallet with steady activity and a clean lending record."`, `"short"`, 1)
		}, ErrOutOfRange},
		{"formula drift", func(s string) string { return strings.Replace(s, `"score": 705`, `"score": 600`, 1) }, ErrFormulaMismatch},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseAndValidate(tc.mutate(validOutput), true)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestParseAndValidateNeutralIntentRule(t *testing.T) {
	// 80*2 + 70*2 + 60*2 + 84*2.5 + 60*1.5 = 720
	shifted := strings.Replace(validOutput, `"intent": 50`, `"intent": 60`, 1)
	shifted = strings.Replace(shifted, `"score": 705`, `"score": 720`, 1)

	// With a questionnaire a non-neutral intent is fine.
	if _, err := parseAndValidate(shifted, false); err != nil {
		t.Fatalf("intent 60 with questionnaire rejected: %v", err)
	}

	// Without one it must be exactly 50.
	if _, err := parseAndValidate(shifted, true); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("intent 60 without questionnaire: error = %v, want ErrOutOfRange", err)
	}
}

func TestToleranceScalesWithScore(t *testing.T) {
	if got := Tolerance(50); got != 2 {
		t.Errorf("Tolerance(50) = %v, want floor of 2", got)
	}
	if got := Tolerance(1000); got != 20 {
		t.Errorf("Tolerance(1000) = %v, want 20", got)
	}
}

func TestRiskLevel(t *testing.T) {
	cases := map[int]string{850: "excellent", 800: "excellent", 700: "good", 550: "fair", 200: "poor"}
	for score, want := range cases {
		if got := RiskLevel(score); got != want {
			t.Errorf("RiskLevel(%d) = %s, want %s", score, got, want)
		}
	}
}
