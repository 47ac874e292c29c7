package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hesper.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[service]
name = "hesperd-test"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Service.Name != "hesperd-test" {
		t.Fatalf("service name = %q", cfg.Service.Name)
	}
	if cfg.Gateway.ListenAddress != ":8745" {
		t.Fatalf("default listen address = %q", cfg.Gateway.ListenAddress)
	}
	if cfg.Risk.CloseFactorBps != 5_000 {
		t.Fatalf("default close factor = %d", cfg.Risk.CloseFactorBps)
	}
	if cfg.Stable.MintRateBps != 10_000 {
		t.Fatalf("default mint rate = %d", cfg.Stable.MintRateBps)
	}
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
pauses = ["borrow", "seize"]

[service]
name = "hesperd"
environment = "staging"
log_level = "debug"

[gateway]
listen_address = ":9000"
rate_limit_rps = 25.0
rate_limit_burst = 50

[storage]
path = "/var/lib/hesper"

[risk]
close_factor_bps = 6000
liquidation_incentive_bps = 11000
max_assets = 10

[flywheel]
emission_rate_per_block = "1000000000000000000"
stable_mint_rate_per_block = "500000000000000000"
max_claim_holders = 16
max_claim_markets = 8

[flywheel.vault]
address = "0x00000000000000000000000000000000000000aa"
rate_per_block = "100"
min_batch = "1000"
start_block = 5

[stable]
mint_rate_bps = 9500

[[markets]]
address = "0x0000000000000000000000000000000000000001"
collateral_factor_bps = 7500
borrow_cap = "1000000"
price = "2000000000000000000"
reward_eligible = true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Risk.CloseFactorBps != 6_000 || cfg.Risk.MaxAssets != 10 {
		t.Fatalf("risk section lost: %+v", cfg.Risk)
	}
	if cfg.Flywheel.Vault.StartBlock != 5 {
		t.Fatalf("vault start block = %d", cfg.Flywheel.Vault.StartBlock)
	}
	if len(cfg.Markets) != 1 || !cfg.Markets[0].RewardEligible {
		t.Fatalf("markets section lost: %+v", cfg.Markets)
	}
	if Amount(cfg.Flywheel.EmissionRatePerBlock).IsZero() {
		t.Fatalf("emission rate should be nonzero")
	}
	if len(cfg.Pauses) != 2 {
		t.Fatalf("pauses lost: %v", cfg.Pauses)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `
[service]
name = "hesperd"

[risk]
close_factor = 6000
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unknown key")
	}
}

func TestValidateBounds(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"close factor at lower bound", func(c *Config) { c.Risk.CloseFactorBps = 500 }},
		{"close factor above max", func(c *Config) { c.Risk.CloseFactorBps = 9_001 }},
		{"incentive below one", func(c *Config) { c.Risk.LiquidationIncentiveBps = 9_999 }},
		{"incentive above max", func(c *Config) { c.Risk.LiquidationIncentiveBps = 15_001 }},
		{"zero max assets", func(c *Config) { c.Risk.MaxAssets = 0 }},
		{"mint rate above one", func(c *Config) { c.Stable.MintRateBps = 10_001 }},
		{"bad emission rate", func(c *Config) { c.Flywheel.EmissionRatePerBlock = "1.5" }},
		{"unknown pause action", func(c *Config) { c.Pauses = []string{"liquidate-everything"} }},
		{"zero rps", func(c *Config) { c.Gateway.RateLimitRPS = 0 }},
		{"bad market address", func(c *Config) { c.Markets = []Market{{Address: "not-an-address"}} }},
		{"collateral factor above max", func(c *Config) {
			c.Markets = []Market{{Address: "0x0000000000000000000000000000000000000001", CollateralFactorBps: 9_001, Price: "1"}}
		}},
		{"collateral factor without price", func(c *Config) {
			c.Markets = []Market{{Address: "0x0000000000000000000000000000000000000001", CollateralFactorBps: 5_000}}
		}},
		{"auth enabled without secret", func(c *Config) { c.Gateway.Auth.Enabled = true }},
		{"duplicate market", func(c *Config) {
			m := Market{Address: "0x0000000000000000000000000000000000000001"}
			c.Markets = []Market{m, m}
		}},
		{"vault min batch without rate", func(c *Config) {
			c.Flywheel.Vault = Vault{Address: "0x00000000000000000000000000000000000000aa", RatePerBlock: "0", MinBatch: "10"}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}
