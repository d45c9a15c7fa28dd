// Package features normalizes opaque wallet-activity documents into a fixed
// numeric feature set used by the scoring engine.
//
// The upstream aggregator emits a nested JSON document whose shape drifts as
// new data sources are added. Extraction is total: any field that is missing,
// null, or of the wrong type defaults to zero (or an empty set), and a wholly
// unparseable document yields zero-value features. The extractor never fails.
package features

import (
	"encoding/json"
)

// LendingActivity holds per-protocol lending event counters.
type LendingActivity struct {
	Borrows      int `json:"borrows"`
	Repays       int `json:"repays"`
	Liquidations int `json:"liquidations"`
	Supplies     int `json:"supplies"`
	Withdrawals  int `json:"withdrawals"`
}

// WalletFeatures is a derived, read-only snapshot of a wallet's on-chain
// activity. Created fresh per scoring request and never persisted.
type WalletFeatures struct {
	WalletAgeDays        int             `json:"walletAgeDays"`
	TotalTransactions    int             `json:"totalTransactions"`
	AvgTxPerMonth        float64         `json:"avgTxPerMonth"`
	UniqueCounterparties int             `json:"uniqueCounterparties"`
	Protocols            []string        `json:"protocols"`
	Lending              LendingActivity `json:"lending"`
	TokenCount           int             `json:"tokenCount"`
	TopConcentration     float64         `json:"topConcentration"` // Share of portfolio in the largest holding, 0-1
	Diversification      float64         `json:"diversification"`  // 0-100
	CollectibleCount     int             `json:"collectibleCount"` // Legit NFTs
	BadgeCount           int             `json:"badgeCount"`       // Attendance badges (POAPs)
	ENSCount             int             `json:"ensCount"`
	NativeBalance        float64         `json:"nativeBalance"` // ETH
}

// Extract normalizes an opaque aggregator document into WalletFeatures.
// Missing numeric fields default to 0 and missing sets to empty; Extract
// never returns an error.
func Extract(raw []byte) WalletFeatures {
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return WalletFeatures{Protocols: []string{}}
	}
	return FromDocument(doc)
}

// FromDocument extracts features from an already-decoded document.
func FromDocument(doc map[string]interface{}) WalletFeatures {
	transfers := getMap(doc, "transfers")
	tokens := getMap(doc, "tokens")
	concentration := getMap(tokens, "concentration")
	nfts := getMap(doc, "nfts")
	counts := getMap(nfts, "counts")
	defi := getMap(doc, "defi")
	lending := getMap(getMap(doc, "lending"), "summary")

	f := WalletFeatures{
		WalletAgeDays:        getInt(transfers, "age_days"),
		TotalTransactions:    getInt(transfers, "tx_count"),
		AvgTxPerMonth:        getFloat(transfers, "avg_tx_per_month"),
		UniqueCounterparties: getInt(doc, "counterparties"),
		Protocols:            getStrings(defi, "protocols"),
		Lending: LendingActivity{
			Borrows:      getInt(lending, "total_borrow_events"),
			Repays:       getInt(lending, "total_repay_events"),
			Liquidations: getInt(lending, "total_liquidation_events"),
			Supplies:     getInt(lending, "total_supply_events"),
			Withdrawals:  getInt(lending, "total_withdrawal_events"),
		},
		TokenCount:       getInt(concentration, "num_tokens"),
		TopConcentration: getFloat(concentration, "top_1_concentration"),
		Diversification:  getFloat(concentration, "diversification_score"),
		CollectibleCount: getInt(counts, "legit"),
		BadgeCount:       getInt(counts, "poaps"),
		ENSCount:         getInt(counts, "ens"),
		NativeBalance:    getFloat(doc, "eth_balance"),
	}

	// Older aggregator versions report token count at the top of the tokens
	// section rather than inside the concentration block.
	if f.TokenCount == 0 {
		if holdings, ok := tokens["holdings"].([]interface{}); ok {
			f.TokenCount = len(holdings)
		}
	}

	return f
}

// RepaymentRatio returns repays/borrows, or 0 when the wallet never borrowed.
func (f WalletFeatures) RepaymentRatio() float64 {
	if f.Lending.Borrows == 0 {
		return 0
	}
	return float64(f.Lending.Repays) / float64(f.Lending.Borrows)
}

// HasLendingHistory reports whether the wallet interacted with any lending
// protocol.
func (f WalletFeatures) HasLendingHistory() bool {
	l := f.Lending
	return l.Borrows > 0 || l.Repays > 0 || l.Supplies > 0 || l.Withdrawals > 0
}

// -----------------------------------------------------------------------------
// Defaulting accessors
// -----------------------------------------------------------------------------

func getMap(m map[string]interface{}, key string) map[string]interface{} {
	if m == nil {
		return nil
	}
	if v, ok := m[key].(map[string]interface{}); ok {
		return v
	}
	return nil
}

func getFloat(m map[string]interface{}, key string) float64 {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case float64:
		return v
	case json.Number:
		f, _ := v.Float64()
		return f
	}
	return 0
}

func getInt(m map[string]interface{}, key string) int {
	return int(getFloat(m, key))
}

func getStrings(m map[string]interface{}, key string) []string {
	out := []string{}
	if m == nil {
		return out
	}
	items, ok := m[key].([]interface{})
	if !ok {
		return out
	}
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
