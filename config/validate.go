package config

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	nativecommon "hesper/native/common"
)

var knownPauseActions = map[string]struct{}{
	nativecommon.ActionMint:        {},
	nativecommon.ActionRedeem:      {},
	nativecommon.ActionBorrow:      {},
	nativecommon.ActionRepay:       {},
	nativecommon.ActionSeize:       {},
	nativecommon.ActionTransfer:    {},
	nativecommon.ActionStableMint:  {},
	nativecommon.ActionStableRepay: {},
	nativecommon.ActionClaim:       {},
}

// Validate checks every parameter against the protocol bounds.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Service.Name) == "" {
		return fmt.Errorf("service: name required")
	}
	if strings.TrimSpace(c.Gateway.ListenAddress) == "" {
		return fmt.Errorf("gateway: listen_address required")
	}
	if c.Gateway.RateLimitRPS <= 0 {
		return fmt.Errorf("gateway: rate_limit_rps <= 0")
	}
	if c.Gateway.RateLimitBurst <= 0 {
		return fmt.Errorf("gateway: rate_limit_burst <= 0")
	}

	if c.Risk.CloseFactorBps <= 500 || c.Risk.CloseFactorBps > 9_000 {
		return fmt.Errorf("risk: close_factor_bps must be in (500, 9000], got %d", c.Risk.CloseFactorBps)
	}
	if c.Risk.LiquidationIncentiveBps < 10_000 || c.Risk.LiquidationIncentiveBps > 15_000 {
		return fmt.Errorf("risk: liquidation_incentive_bps must be in [10000, 15000], got %d", c.Risk.LiquidationIncentiveBps)
	}
	if c.Risk.MaxAssets <= 0 {
		return fmt.Errorf("risk: max_assets <= 0")
	}

	if _, err := parseAmount(c.Flywheel.EmissionRatePerBlock); err != nil {
		return fmt.Errorf("flywheel: emission_rate_per_block: %w", err)
	}
	if _, err := parseAmount(c.Flywheel.StableMintRatePerBlock); err != nil {
		return fmt.Errorf("flywheel: stable_mint_rate_per_block: %w", err)
	}
	if c.Flywheel.MaxClaimHolders <= 0 {
		return fmt.Errorf("flywheel: max_claim_holders <= 0")
	}
	if c.Flywheel.MaxClaimMarkets <= 0 {
		return fmt.Errorf("flywheel: max_claim_markets <= 0")
	}
	if err := c.Flywheel.Vault.validate(); err != nil {
		return err
	}
	if c.Flywheel.Treasury != "" {
		if _, err := parseAddress(c.Flywheel.Treasury); err != nil {
			return fmt.Errorf("flywheel: treasury: %w", err)
		}
	}
	if c.Gateway.Auth.Enabled && strings.TrimSpace(c.Gateway.Auth.HMACSecret) == "" {
		return fmt.Errorf("gateway.auth: hmac_secret required when enabled")
	}

	if c.Stable.MintRateBps > 10_000 {
		return fmt.Errorf("stable: mint_rate_bps > 10000")
	}

	for _, action := range c.Pauses {
		if _, ok := knownPauseActions[strings.ToLower(strings.TrimSpace(action))]; !ok {
			return fmt.Errorf("pauses: unknown action %q", action)
		}
	}

	seen := make(map[common.Address]struct{}, len(c.Markets))
	for i, market := range c.Markets {
		addr, err := parseAddress(market.Address)
		if err != nil {
			return fmt.Errorf("markets[%d]: %w", i, err)
		}
		if _, dup := seen[addr]; dup {
			return fmt.Errorf("markets[%d]: duplicate address %s", i, market.Address)
		}
		seen[addr] = struct{}{}
		if market.CollateralFactorBps > 9_000 {
			return fmt.Errorf("markets[%d]: collateral_factor_bps > 9000", i)
		}
		if market.BorrowCap != "" {
			if _, err := parseAmount(market.BorrowCap); err != nil {
				return fmt.Errorf("markets[%d]: borrow_cap: %w", i, err)
			}
		}
		price, err := parseAmount(market.Price)
		if err != nil {
			return fmt.Errorf("markets[%d]: price: %w", i, err)
		}
		if market.CollateralFactorBps > 0 && price.IsZero() {
			return fmt.Errorf("markets[%d]: price required with a nonzero collateral factor", i)
		}
	}
	return nil
}

func (v Vault) validate() error {
	configured := strings.TrimSpace(v.Address) != ""
	if !configured {
		return nil
	}
	if _, err := parseAddress(v.Address); err != nil {
		return fmt.Errorf("flywheel.vault: %w", err)
	}
	rate, err := parseAmount(v.RatePerBlock)
	if err != nil {
		return fmt.Errorf("flywheel.vault: rate_per_block: %w", err)
	}
	minBatch, err := parseAmount(v.MinBatch)
	if err != nil {
		return fmt.Errorf("flywheel.vault: min_batch: %w", err)
	}
	if rate.IsZero() && !minBatch.IsZero() {
		return fmt.Errorf("flywheel.vault: min_batch set with zero rate_per_block")
	}
	return nil
}

func parseAmount(raw string) (*uint256.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return uint256.NewInt(0), nil
	}
	value, err := uint256.FromDecimal(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	return value, nil
}

func parseAddress(raw string) (common.Address, error) {
	trimmed := strings.TrimSpace(raw)
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("invalid address %q", raw)
	}
	return common.HexToAddress(trimmed), nil
}

// Amount parses a decimal base-unit amount that Validate has already
// checked. It panics on malformed input, so it must only run on a
// validated configuration.
func Amount(raw string) *uint256.Int {
	value, err := parseAmount(raw)
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return value
}

// Address parses a hex address that Validate has already checked.
func Address(raw string) common.Address {
	addr, err := parseAddress(raw)
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return addr
}
