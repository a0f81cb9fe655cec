package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
	if cfg.Storage.Backend != "memory" || cfg.RPC.ListenAddress != ":8645" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("load missing file: %v", err)
	}
	if cfg.Service != "lendd" {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lendd.toml")
	contents := `
Service = "lendd"
Environment = "prod"

[RPC]
ListenAddress = ":9999"
RateLimitPerMinute = 120

[Storage]
Backend = "bolt"
Path = "/var/lib/lendd/ledger.db"

[Lending]
ProtocolFeeBps = 75
MinCollateralRatio = 200
MaxInterestRateBps = 5000
ProportionalRelease = true
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Environment != "prod" || cfg.RPC.ListenAddress != ":9999" || cfg.Storage.Backend != "bolt" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	params := cfg.Params()
	if params.Risk.ProtocolFeeBps != 75 || params.Risk.MinCollateralRatio != 200 || !params.Risk.ProportionalRelease {
		t.Fatalf("params not mapped: %+v", params.Risk)
	}
	// Per-loan defaults survive the mapping.
	if params.Loan.MaxExtensions != 3 || params.Loan.GracePeriodBlocks != 100 {
		t.Fatalf("loan defaults lost: %+v", params.Loan)
	}
}

func TestValidateRejections(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Storage.Backend = "cassandra" }},
		{"leveldb without path", func(c *Config) { c.Storage.Backend = "leveldb"; c.Storage.Path = "" }},
		{"empty listen address", func(c *Config) { c.RPC.ListenAddress = "" }},
		{"collateral ratio below 100", func(c *Config) { c.Lending.MinCollateralRatio = 99 }},
		{"zero max rate", func(c *Config) { c.Lending.MaxInterestRateBps = 0 }},
		{"audit without path", func(c *Config) { c.Audit.Enabled = true; c.Audit.Path = "" }},
	} {
		cfg := Default()
		tc.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation failure", tc.name)
		}
	}
}
