package flywheel

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	nativecommon "hesper/native/common"
)

// ClaimRequest names the holders and markets a claim settles, and which
// reward tracks to include.
type ClaimRequest struct {
	Holders   []common.Address
	Markets   []common.Address
	Borrowers bool
	Suppliers bool
}

// Claim settles rewards for every holder across the requested markets and
// pays out whatever each holder has accrued, in full or not at all. The
// holders x markets fan-out is bounded by the configured caps because the
// whole invocation must run to completion atomically.
func (e *Engine) Claim(req ClaimRequest) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, nativecommon.ActionClaim); err != nil {
		return err
	}
	if e.registry == nil {
		return errNilRegistry
	}
	if e.maxClaimHolders > 0 && len(req.Holders) > e.maxClaimHolders {
		return fmt.Errorf("%w: %d holders (max %d)", ErrClaimTooLarge, len(req.Holders), e.maxClaimHolders)
	}
	if e.maxClaimMarkets > 0 && len(req.Markets) > e.maxClaimMarkets {
		return fmt.Errorf("%w: %d markets (max %d)", ErrClaimTooLarge, len(req.Markets), e.maxClaimMarkets)
	}

	// Stable-asset minter rewards settle first, before any market track.
	if err := e.AccrueStableMintIndex(); err != nil {
		return err
	}
	for _, holder := range req.Holders {
		if err := e.DistributeStableMinter(holder); err != nil {
			return err
		}
	}

	for _, market := range req.Markets {
		listed, err := e.registry.IsListed(market)
		if err != nil {
			return err
		}
		if !listed {
			return fmt.Errorf("%w: %s", ErrMarketNotListed, market.Hex())
		}
		if req.Borrowers {
			if err := e.AccrueBorrow(market); err != nil {
				return err
			}
			for _, holder := range req.Holders {
				if err := e.DistributeBorrower(market, holder); err != nil {
					return err
				}
			}
		}
		if req.Suppliers {
			if err := e.AccrueSupply(market); err != nil {
				return err
			}
			for _, holder := range req.Holders {
				if err := e.DistributeSupplier(market, holder); err != nil {
					return err
				}
			}
		}
	}

	for _, holder := range req.Holders {
		if err := e.payout(holder); err != nil {
			return err
		}
	}
	return nil
}

// ClaimAll settles both tracks for a single holder across every listed
// market.
func (e *Engine) ClaimAll(holder common.Address) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.registry == nil {
		return errNilRegistry
	}
	markets, err := e.registry.AllMarkets()
	if err != nil {
		return err
	}
	return e.Claim(ClaimRequest{
		Holders:   []common.Address{holder},
		Markets:   markets,
		Borrowers: true,
		Suppliers: true,
	})
}

// payout transfers the holder's full accrued balance when the treasury can
// cover it, otherwise leaves the balance accrued for a later claim. Partial
// payouts never happen.
func (e *Engine) payout(holder common.Address) error {
	accrued, err := e.Accrued(holder)
	if err != nil {
		return err
	}
	if accrued.IsZero() || e.token == nil {
		return nil
	}
	treasuryBalance := e.token.BalanceOf(e.treasury)
	if treasuryBalance == nil || accrued.Gt(treasuryBalance) {
		return nil
	}
	if !e.token.Transfer(holder, accrued) {
		return nil
	}
	return e.state.PutAccrued(holder, nil)
}
