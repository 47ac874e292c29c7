// Package config loads and validates the daemon configuration from TOML.
package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the root daemon configuration.
type Config struct {
	Service   Service   `toml:"service"`
	Gateway   Gateway   `toml:"gateway"`
	Storage   Storage   `toml:"storage"`
	Risk      Risk      `toml:"risk"`
	Flywheel  Flywheel  `toml:"flywheel"`
	Stable    Stable    `toml:"stable"`
	Telemetry Telemetry `toml:"telemetry"`
	Pauses    []string  `toml:"pauses"`
	Markets   []Market  `toml:"markets"`
}

// Service identifies the process in logs and telemetry.
type Service struct {
	Name        string `toml:"name"`
	Environment string `toml:"environment"`
	LogLevel    string `toml:"log_level"`
}

// Gateway configures the HTTP API listener.
type Gateway struct {
	ListenAddress  string  `toml:"listen_address"`
	RateLimitRPS   float64 `toml:"rate_limit_rps"`
	RateLimitBurst int     `toml:"rate_limit_burst"`
	Auth           Auth    `toml:"auth"`
}

// Auth configures bearer-token validation for the admin routes.
type Auth struct {
	Enabled    bool   `toml:"enabled"`
	HMACSecret string `toml:"hmac_secret"`
	Issuer     string `toml:"issuer"`
	Audience   string `toml:"audience"`
}

// Storage selects the key-value backend. An empty path selects the
// in-memory store.
type Storage struct {
	Path string `toml:"path"`
}

// Risk holds the solvency engine parameters, expressed in basis points
// where a factor is a fraction.
type Risk struct {
	CloseFactorBps          uint64 `toml:"close_factor_bps"`
	LiquidationIncentiveBps uint64 `toml:"liquidation_incentive_bps"`
	MaxAssets               int    `toml:"max_assets"`
}

// Flywheel holds the reward distribution parameters. Per-block amounts are
// decimal strings in base units because they routinely exceed 64 bits.
type Flywheel struct {
	EmissionRatePerBlock   string `toml:"emission_rate_per_block"`
	StableMintRatePerBlock string `toml:"stable_mint_rate_per_block"`
	Treasury               string `toml:"treasury"`
	MaxClaimHolders        int    `toml:"max_claim_holders"`
	MaxClaimMarkets        int    `toml:"max_claim_markets"`
	Vault                  Vault  `toml:"vault"`
}

// Vault configures the continuous release schedule for the reward vault.
type Vault struct {
	Address      string `toml:"address"`
	RatePerBlock string `toml:"rate_per_block"`
	MinBatch     string `toml:"min_batch"`
	StartBlock   uint64 `toml:"start_block"`
}

// Stable holds the stable-asset mint parameters.
type Stable struct {
	MintRateBps uint64 `toml:"mint_rate_bps"`
}

// Telemetry configures the OTLP exporters.
type Telemetry struct {
	Endpoint string `toml:"endpoint"`
	Insecure bool   `toml:"insecure"`
	Metrics  bool   `toml:"metrics"`
	Traces   bool   `toml:"traces"`
	Headers  string `toml:"headers"`
}

// Market seeds a listed market at startup. Price is the 1e18-scale
// underlying price posted to the oracle; it is required when the
// collateral factor is nonzero.
type Market struct {
	Address             string `toml:"address"`
	CollateralFactorBps uint64 `toml:"collateral_factor_bps"`
	BorrowCap           string `toml:"borrow_cap"`
	Price               string `toml:"price"`
	RewardEligible      bool   `toml:"reward_eligible"`
}

// Load reads the configuration from path, applies defaults, and validates
// it.
func Load(path string) (*Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, fmt.Errorf("config: unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when a field is absent from the
// file.
func Default() *Config {
	return &Config{
		Service: Service{
			Name:     "hesperd",
			LogLevel: "info",
		},
		Gateway: Gateway{
			ListenAddress:  ":8745",
			RateLimitRPS:   50,
			RateLimitBurst: 100,
		},
		Risk: Risk{
			CloseFactorBps:          5_000,
			LiquidationIncentiveBps: 10_800,
			MaxAssets:               8,
		},
		Flywheel: Flywheel{
			EmissionRatePerBlock:   "0",
			StableMintRatePerBlock: "0",
			MaxClaimHolders:        64,
			MaxClaimMarkets:        32,
		},
		Stable: Stable{
			MintRateBps: 10_000,
		},
	}
}
