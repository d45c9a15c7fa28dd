package validation

import "testing"

func TestIsValidEthAddress(t *testing.T) {
	valid := []string{
		"0x742d35cc6634c0532925a3b844bc9e7595f2bd18",
		"0x742D35CC6634C0532925A3B844BC9E7595F2BD18",
	}
	for _, addr := range valid {
		if !IsValidEthAddress(addr) {
			t.Errorf("IsValidEthAddress(%q) = false, want true", addr)
		}
	}

	invalid := []string{
		"",
		"742d35cc6634c0532925a3b844bc9e7595f2bd18",  // no prefix
		"0x742d35cc6634c0532925a3b844bc9e7595f2bd1", // 39 chars
		"0xZZ2d35cc6634c0532925a3b844bc9e7595f2bd18",
		"0x742d35cc6634c0532925a3b844bc9e7595f2bd18ff",
	}
	for _, addr := range invalid {
		if IsValidEthAddress(addr) {
			t.Errorf("IsValidEthAddress(%q) = true, want false", addr)
		}
	}
}

func TestSanitizeAddress(t *testing.T) {
	cases := map[string]string{
		"  0x742D35CC6634C0532925A3B844BC9E7595F2BD18 ": "0x742d35cc6634c0532925a3b844bc9e7595f2bd18",
		"742d35cc6634c0532925a3b844bc9e7595f2bd18":      "0x742d35cc6634c0532925a3b844bc9e7595f2bd18",
		"0xabc": "0xabc",
	}
	for in, want := range cases {
		if got := SanitizeAddress(in); got != want {
			t.Errorf("SanitizeAddress(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  hello\x00world  ", 100); got != "helloworld" {
		t.Errorf("SanitizeString = %q", got)
	}
	if got := SanitizeString("abcdef", 3); got != "abc" {
		t.Errorf("length cap: got %q", got)
	}
}

func TestValidateCombinators(t *testing.T) {
	errs := Validate(
		Required("address", ""),
		ValidAddress("address", "nope"),
		MaxLength("note", "toolong", 3),
	)
	if len(errs) != 3 {
		t.Fatalf("errors = %d, want 3", len(errs))
	}

	if errs := Validate(
		Required("address", "0x742d35cc6634c0532925a3b844bc9e7595f2bd18"),
		ValidAddress("address", "0x742d35cc6634c0532925a3b844bc9e7595f2bd18"),
	); len(errs) != 0 {
		t.Errorf("unexpected errors: %v", errs)
	}
}
