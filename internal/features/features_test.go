package features

import (
	"testing"
)

func TestExtractFullDocument(t *testing.T) {
	doc := []byte(`{
		"eth_balance": 1.5,
		"counterparties": 42,
		"transfers": {"age_days": 1200, "tx_count": 850, "avg_tx_per_month": 21.5},
		"tokens": {
			"holdings": [{}, {}, {}],
			"concentration": {"num_tokens": 12, "top_1_concentration": 0.35, "diversification_score": 72}
		},
		"nfts": {"counts": {"legit": 5, "poaps": 3, "ens": 1}},
		"defi": {"protocols": ["aave", "uniswap"]},
		"lending": {"summary": {
			"total_borrow_events": 4,
			"total_repay_events": 4,
			"total_liquidation_events": 0,
			"total_supply_events": 6,
			"total_withdrawal_events": 2
		}}
	}`)

	f := Extract(doc)

	if f.WalletAgeDays != 1200 {
		t.Errorf("WalletAgeDays = %d, want 1200", f.WalletAgeDays)
	}
	if f.TotalTransactions != 850 {
		t.Errorf("TotalTransactions = %d, want 850", f.TotalTransactions)
	}
	if f.AvgTxPerMonth != 21.5 {
		t.Errorf("AvgTxPerMonth = %v, want 21.5", f.AvgTxPerMonth)
	}
	if f.UniqueCounterparties != 42 {
		t.Errorf("UniqueCounterparties = %d, want 42", f.UniqueCounterparties)
	}
	if len(f.Protocols) != 2 || f.Protocols[0] != "aave" {
		t.Errorf("Protocols = %v, want [aave uniswap]", f.Protocols)
	}
	if f.Lending.Borrows != 4 || f.Lending.Repays != 4 || f.Lending.Liquidations != 0 {
		t.Errorf("Lending = %+v", f.Lending)
	}
	if f.TokenCount != 12 {
		t.Errorf("TokenCount = %d, want 12", f.TokenCount)
	}
	if f.TopConcentration != 0.35 {
		t.Errorf("TopConcentration = %v, want 0.35", f.TopConcentration)
	}
	if f.CollectibleCount != 5 || f.BadgeCount != 3 || f.ENSCount != 1 {
		t.Errorf("NFT counts = %d/%d/%d", f.CollectibleCount, f.BadgeCount, f.ENSCount)
	}
	if f.NativeBalance != 1.5 {
		t.Errorf("NativeBalance = %v, want 1.5", f.NativeBalance)
	}
}

func TestExtractIsTotal(t *testing.T) {
	cases := []struct {
		name string
		doc  []byte
	}{
		{"empty object", []byte(`{}`)},
		{"nil input", nil},
		{"invalid json", []byte(`not json at all`)},
		{"wrong types", []byte(`{"transfers": "nope", "tokens": 7, "defi": {"protocols": "x"}}`)},
		{"null fields", []byte(`{"transfers": null, "eth_balance": null}`)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := Extract(tc.doc)
			if f.TotalTransactions != 0 || f.WalletAgeDays != 0 || f.NativeBalance != 0 {
				t.Errorf("expected zero features, got %+v", f)
			}
			if f.Protocols == nil {
				t.Error("Protocols should be empty, not nil")
			}
		})
	}
}

func TestTokenCountFallsBackToHoldings(t *testing.T) {
	doc := []byte(`{"tokens": {"holdings": [{}, {}, {}, {}]}}`)
	f := Extract(doc)
	if f.TokenCount != 4 {
		t.Errorf("TokenCount = %d, want 4 from holdings length", f.TokenCount)
	}
}

func TestRepaymentRatio(t *testing.T) {
	f := WalletFeatures{Lending: LendingActivity{Borrows: 4, Repays: 3}}
	if got := f.RepaymentRatio(); got != 0.75 {
		t.Errorf("RepaymentRatio = %v, want 0.75", got)
	}

	var zero WalletFeatures
	if got := zero.RepaymentRatio(); got != 0 {
		t.Errorf("RepaymentRatio with no borrows = %v, want 0", got)
	}
}
