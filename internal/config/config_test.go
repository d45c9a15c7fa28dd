package config

import (
	"strings"
	"testing"
)

func TestLoadRequiresSigningKey(t *testing.T) {
	t.Setenv("SIGNING_KEY", "")
	t.Setenv("SIGNING_KEY_FILE", "")

	if _, err := Load(); err == nil {
		t.Fatal("Load must fail without a signing key source")
	}
}

func TestLoadValidatesKeyHex(t *testing.T) {
	t.Setenv("SIGNING_KEY", "0x"+strings.Repeat("ab", 32))
	cfg, err := Load()
	if err != nil {
		t.Fatalf("valid key rejected: %v", err)
	}
	if cfg.Port != DefaultPort {
		t.Errorf("Port = %s, want default %s", cfg.Port, DefaultPort)
	}

	t.Setenv("SIGNING_KEY", "too-short")
	if _, err := Load(); err == nil {
		t.Error("short key must be rejected")
	}

	t.Setenv("SIGNING_KEY", strings.Repeat("zz", 32))
	if _, err := Load(); err == nil {
		t.Error("non-hex key must be rejected")
	}
}

func TestLoadAdmissionMeasurements(t *testing.T) {
	m := strings.Repeat("0a", 48)

	t.Setenv("ENCLAVE_MEASUREMENTS", m+","+m+","+m+","+m)
	cfg, err := LoadAdmission()
	if err != nil {
		t.Fatalf("valid measurements rejected: %v", err)
	}

	got, err := cfg.MeasurementBytes()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 4 || len(got[0]) != 48 {
		t.Errorf("MeasurementBytes shape = %d x %d", len(got), len(got[0]))
	}

	t.Setenv("ENCLAVE_MEASUREMENTS", m+","+m)
	if _, err := LoadAdmission(); err == nil {
		t.Error("two measurements must be rejected")
	}

	t.Setenv("ENCLAVE_MEASUREMENTS", "zz,"+m+","+m+","+m)
	if _, err := LoadAdmission(); err == nil {
		t.Error("non-hex measurement must be rejected")
	}

	t.Setenv("ENCLAVE_MEASUREMENTS", "")
	if _, err := LoadAdmission(); err != nil {
		t.Errorf("empty measurements are allowed: %v", err)
	}
}
