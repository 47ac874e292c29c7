package risk

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"hesper/native/fixedmath"
)

// SupportMarket lists a new market with a zero collateral factor. The
// all-markets sequence only ever grows; finding an unlisted market already in
// the sequence indicates corrupted state and is fatal.
func (e *Engine) SupportMarket(market common.Address) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	meta, err := e.state.GetMarket(market)
	if err != nil {
		return err
	}
	if meta != nil && meta.Listed {
		return ErrMarketAlreadyListed
	}
	all, err := e.state.AllMarkets()
	if err != nil {
		return err
	}
	for _, existing := range all {
		if existing == market {
			panic(fmt.Sprintf("risk engine: unlisted market %s present in all-markets sequence", market.Hex()))
		}
	}
	listed := &Market{
		Listed:           true,
		CollateralFactor: fixedmath.ZeroExp(),
	}
	if err := e.state.PutMarket(market, listed); err != nil {
		return err
	}
	return e.state.AppendAllMarkets(market)
}

// SetCollateralFactor updates a market's collateral factor. Nonzero factors
// require a usable oracle price so the solvency calculator can always value
// the collateral it admits.
func (e *Engine) SetCollateralFactor(market common.Address, factor fixedmath.Exp) error {
	if err := e.ready(); err != nil {
		return err
	}
	meta, err := e.listedMarket(market)
	if err != nil {
		return err
	}
	if !fixedmath.LessThanOrEqualExp(factor, collateralFactorMax) {
		return ErrInvalidCollateralFactor
	}
	if !factor.IsZero() && e.oracle.GetUnderlyingPrice(market).IsZero() {
		return ErrPriceUnavailable
	}
	meta.CollateralFactor = factor.Clone()
	return e.state.PutMarket(market, meta)
}

// SetBorrowCap updates a market's borrow cap. A zero cap lifts the limit.
func (e *Engine) SetBorrowCap(market common.Address, cap *uint256.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	meta, err := e.listedMarket(market)
	if err != nil {
		return err
	}
	if cap == nil {
		meta.BorrowCap = nil
	} else {
		meta.BorrowCap = new(uint256.Int).Set(cap)
	}
	return e.state.PutMarket(market, meta)
}

// SetRewardEligibility toggles whether the flywheel allocates emission speed
// to the market.
func (e *Engine) SetRewardEligibility(market common.Address, eligible bool) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	meta, err := e.listedMarket(market)
	if err != nil {
		return err
	}
	meta.RewardEligible = eligible
	return e.state.PutMarket(market, meta)
}

// AllMarkets returns the append-only sequence of every market ever listed.
func (e *Engine) AllMarkets() ([]common.Address, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.AllMarkets()
}

// MarketMeta returns a copy of the listing metadata for a market.
func (e *Engine) MarketMeta(market common.Address) (*Market, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	meta, err := e.listedMarket(market)
	if err != nil {
		return nil, err
	}
	return meta.Clone(), nil
}

// IsListed reports whether the market is registered with the protocol.
func (e *Engine) IsListed(market common.Address) (bool, error) {
	if e == nil || e.state == nil {
		return false, errNilState
	}
	meta, err := e.state.GetMarket(market)
	if err != nil {
		return false, err
	}
	return meta != nil && meta.Listed, nil
}

// RewardEligible reports whether a listed market participates in emission
// allocation. Unlisted markets are never eligible.
func (e *Engine) RewardEligible(market common.Address) (bool, error) {
	if e == nil || e.state == nil {
		return false, errNilState
	}
	meta, err := e.state.GetMarket(market)
	if err != nil {
		return false, err
	}
	if meta == nil || !meta.Listed {
		return false, nil
	}
	return meta.RewardEligible, nil
}

// EnterMarket opts the account into a market for solvency purposes. The call
// is idempotent; re-entering an already-entered market succeeds without
// effect.
func (e *Engine) EnterMarket(account, market common.Address) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if _, err := e.listedMarket(market); err != nil {
		return err
	}
	member, err := e.state.IsMember(account, market)
	if err != nil {
		return err
	}
	if member {
		return nil
	}
	entered, err := e.state.Memberships(account)
	if err != nil {
		return err
	}
	if len(entered) >= e.maxAssets {
		return ErrTooManyAssets
	}
	return e.state.AddMembership(account, market)
}

// EnterMarkets enters a batch of markets, stopping at the first failure.
func (e *Engine) EnterMarkets(account common.Address, markets []common.Address) error {
	for _, market := range markets {
		if err := e.EnterMarket(account, market); err != nil {
			return err
		}
	}
	return nil
}

// ExitMarket removes the account's membership. The account must have no
// outstanding borrow in the market, and surrendering the market's collateral
// power must not leave the account insolvent elsewhere.
func (e *Engine) ExitMarket(account, market common.Address) error {
	if err := e.ready(); err != nil {
		return err
	}
	ledger, err := e.ledger(market)
	if err != nil {
		return err
	}
	tokenBalance, borrowBalance, _, err := ledger.AccountSnapshot(account)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSnapshotUnavailable, err)
	}
	if !borrowBalance.IsZero() {
		return ErrNonzeroBorrowBalance
	}
	member, err := e.state.IsMember(account, market)
	if err != nil {
		return err
	}
	if !member {
		return nil
	}
	_, shortfall, err := e.HypotheticalLiquidity(account, market, tokenBalance, uint256.NewInt(0))
	if err != nil {
		return err
	}
	if !shortfall.IsZero() {
		return ErrInsufficientLiquidity
	}
	// The store asserts the market is actually present in the account's
	// list; its absence with the membership flag set is corrupted state.
	return e.state.RemoveMembership(account, market)
}

// Memberships returns the markets the account has entered.
func (e *Engine) Memberships(account common.Address) ([]common.Address, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.Memberships(account)
}
