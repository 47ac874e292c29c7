package risk

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"hesper/native/fixedmath"
)

// AccountLiquidity computes the account's spare borrowing capacity and
// shortfall with no hypothetical deltas applied. At most one of the two
// results is nonzero.
func (e *Engine) AccountLiquidity(account common.Address) (liquidity, shortfall *uint256.Int, err error) {
	var zeroMarket common.Address
	return e.HypotheticalLiquidity(account, zeroMarket, uint256.NewInt(0), uint256.NewInt(0))
}

// HypotheticalLiquidity projects the account's solvency as if redeemTokens
// were redeemed from modifyMarket and borrowAmount were borrowed against it.
// Both hypothetical effects accrue to the borrow side: a redemption is tested
// against the collateral power it surrenders, not the value it returns.
func (e *Engine) HypotheticalLiquidity(account, modifyMarket common.Address, redeemTokens, borrowAmount *uint256.Int) (liquidity, shortfall *uint256.Int, err error) {
	if err := e.ready(); err != nil {
		return nil, nil, err
	}
	if redeemTokens == nil {
		redeemTokens = uint256.NewInt(0)
	}
	if borrowAmount == nil {
		borrowAmount = uint256.NewInt(0)
	}

	collateralValue := uint256.NewInt(0)
	borrowValue := uint256.NewInt(0)

	entered, err := e.state.Memberships(account)
	if err != nil {
		return nil, nil, err
	}
	for _, market := range entered {
		meta, err := e.state.GetMarket(market)
		if err != nil {
			return nil, nil, err
		}
		if meta == nil || !meta.Listed {
			panic(fmt.Sprintf("risk engine: account %s member of unlisted market %s", account.Hex(), market.Hex()))
		}
		ledger, err := e.ledger(market)
		if err != nil {
			return nil, nil, err
		}
		tokenBalance, borrowBalance, exchangeRate, err := ledger.AccountSnapshot(account)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: market %s: %w", ErrSnapshotUnavailable, market.Hex(), err)
		}
		price := e.oracle.GetUnderlyingPrice(market)
		if price.IsZero() {
			return nil, nil, fmt.Errorf("%w: market %s", ErrPriceUnavailable, market.Hex())
		}

		tokensToValue, err := fixedmath.MulExp3(meta.CollateralFactor, exchangeRate, price)
		if err != nil {
			return nil, nil, err
		}
		collateralValue, err = fixedmath.MulScalarTruncateAdd(tokensToValue, tokenBalance, collateralValue)
		if err != nil {
			return nil, nil, err
		}
		borrowValue, err = fixedmath.MulScalarTruncateAdd(price, borrowBalance, borrowValue)
		if err != nil {
			return nil, nil, err
		}

		if market == modifyMarket {
			borrowValue, err = fixedmath.MulScalarTruncateAdd(tokensToValue, redeemTokens, borrowValue)
			if err != nil {
				return nil, nil, err
			}
			borrowValue, err = fixedmath.MulScalarTruncateAdd(price, borrowAmount, borrowValue)
			if err != nil {
				return nil, nil, err
			}
		}
	}

	// Stable-asset debt is fully weighted; it is never discounted by a
	// collateral factor.
	stableDebt, err := e.stableDebt(account)
	if err != nil {
		return nil, nil, err
	}
	borrowValue, err = fixedmath.AddUint(borrowValue, stableDebt)
	if err != nil {
		return nil, nil, err
	}

	liquidity = fixedmath.SubOrZero(collateralValue, borrowValue)
	shortfall = fixedmath.SubOrZero(borrowValue, collateralValue)
	if !liquidity.IsZero() && !shortfall.IsZero() {
		panic("risk engine: liquidity and shortfall both nonzero")
	}
	return liquidity, shortfall, nil
}
