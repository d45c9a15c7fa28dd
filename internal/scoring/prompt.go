package scoring

import (
	"fmt"
	"strings"

	"github.com/chainproof/walletscore/internal/features"
)

// noQuestionnaireMarker substitutes for an empty questionnaire so the prompt
// shape never changes on absence.
const noQuestionnaireMarker = "No questionnaire data provided."

// FeatureSummary renders the on-chain feature set as prompt text.
func FeatureSummary(f features.WalletFeatures) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Wallet age: %d days\n", f.WalletAgeDays)
	fmt.Fprintf(&b, "Total transactions: %d\n", f.TotalTransactions)
	fmt.Fprintf(&b, "Average transactions per month: %.1f\n", f.AvgTxPerMonth)
	fmt.Fprintf(&b, "Unique counterparties: %d\n", f.UniqueCounterparties)
	fmt.Fprintf(&b, "Native balance: %.4f ETH\n", f.NativeBalance)
	fmt.Fprintf(&b, "Token holdings: %d tokens, top holding %.0f%% of portfolio, diversification %.0f/100\n",
		f.TokenCount, f.TopConcentration*100, f.Diversification)
	fmt.Fprintf(&b, "Collectibles: %d NFTs, %d attendance badges, %d ENS names\n",
		f.CollectibleCount, f.BadgeCount, f.ENSCount)

	if len(f.Protocols) > 0 {
		fmt.Fprintf(&b, "DeFi protocols used: %s\n", strings.Join(f.Protocols, ", "))
	} else {
		b.WriteString("DeFi protocols used: none\n")
	}

	if f.HasLendingHistory() {
		l := f.Lending
		fmt.Fprintf(&b, "Lending history: %d borrows, %d repays (repayment ratio %.2f), %d supplies, %d withdrawals, %d liquidations\n",
			l.Borrows, l.Repays, f.RepaymentRatio(), l.Supplies, l.Withdrawals, l.Liquidations)
		if l.Liquidations > 0 {
			b.WriteString("WARNING: this wallet has been liquidated\n")
		}
	} else {
		b.WriteString("Lending history: none\n")
	}

	return b.String()
}

// formatQuestionnaire renders the questionnaire as a numbered Q/A block, or
// the fixed marker when empty.
func formatQuestionnaire(entries []QuestionnaireEntry) string {
	if len(entries) == 0 {
		return noQuestionnaireMarker
	}
	var b strings.Builder
	for i, e := range entries {
		fmt.Fprintf(&b, "%d. Q: %s\n   A: %s\n", i+1, e.Question, e.Answer)
	}
	return b.String()
}

// BuildPrompt assembles the full scoring prompt: feature summary,
// questionnaire block, dimension criteria, and the required output schema.
func BuildPrompt(f features.WalletFeatures, entries []QuestionnaireEntry) string {
	var b strings.Builder

	b.WriteString("You are a wallet reputation analyst. Score the wallet below.\n\n")

	b.WriteString("=== ON-CHAIN ACTIVITY ===\n")
	b.WriteString(FeatureSummary(f))

	b.WriteString("\n=== QUESTIONNAIRE ===\n")
	b.WriteString(formatQuestionnaire(entries))

	b.WriteString(`

=== SCORING CRITERIA ===
Score five dimensions, each an integer from 0 to 100:
- activity: transaction frequency and consistency over time.
- maturity: wallet age and sustained presence.
- diversity: breadth of protocols, tokens, and counterparties.
- risk: financial health. Liquidations and poor repayment lower it;
  clean lending history and balanced holdings raise it.
- intent: alignment of questionnaire answers with observed activity.
  If the questionnaire block reads "` + noQuestionnaireMarker + `",
  intent MUST be exactly 50.

The total score is the weighted sum:
  activity*2 + maturity*2 + diversity*2 + risk*2.5 + intent*1.5
and must land in [0,1000]. Report the total as "score".

=== OUTPUT ===
Respond with ONLY a JSON object, no prose, no code fences:
{
  "score": <integer 0-1000>,
  "breakdown": {
    "activity": <integer 0-100>,
    "maturity": <integer 0-100>,
    "diversity": <integer 0-100>,
    "risk": <integer 0-100>,
    "intent": <integer 0-100>
  },
  "reasoning": "<10 to 500 characters>",
  "risk_factors": ["<string>", ...],
  "strengths": ["<string>", ...]
}
`)

	return b.String()
}
