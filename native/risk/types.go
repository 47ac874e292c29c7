package risk

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"hesper/native/fixedmath"
)

// Market captures the listing metadata for a collateral/borrow venue. Markets
// are never removed from the registry; deactivation zeroes the collateral
// factor and clears reward eligibility instead.
type Market struct {
	// Listed marks the market as registered with the protocol.
	Listed bool
	// CollateralFactor is the fraction of the market token's value usable as
	// borrowing power, bounded by collateralFactorMax.
	CollateralFactor fixedmath.Exp
	// RewardEligible controls whether the flywheel allocates emission speed
	// to this market.
	RewardEligible bool
	// BorrowCap bounds total outstanding borrows. Zero or nil means
	// unlimited.
	BorrowCap *uint256.Int
}

// Clone returns a deep copy of the market metadata.
func (m *Market) Clone() *Market {
	if m == nil {
		return nil
	}
	clone := &Market{
		Listed:           m.Listed,
		CollateralFactor: m.CollateralFactor.Clone(),
		RewardEligible:   m.RewardEligible,
	}
	if m.BorrowCap != nil {
		clone.BorrowCap = new(uint256.Int).Set(m.BorrowCap)
	}
	return clone
}

// MarketLedger exposes the token-ledger queries the risk engine consumes from
// each market. The ledger is an external collaborator; every gating decision
// fails closed when it reports an error.
type MarketLedger interface {
	AccountSnapshot(account common.Address) (tokenBalance, borrowBalance *uint256.Int, exchangeRate fixedmath.Exp, err error)
	TotalSupply() *uint256.Int
	TotalBorrows() *uint256.Int
	BorrowIndex() fixedmath.Exp
	ExchangeRateStored() fixedmath.Exp
	BalanceOf(account common.Address) *uint256.Int
	BorrowBalanceStored(account common.Address) *uint256.Int
}

// LedgerSource resolves the token ledger backing a market. A nil return
// means the ledger is unknown and the caller must fail closed.
type LedgerSource interface {
	Ledger(market common.Address) MarketLedger
}

// PriceOracle prices a market's underlying asset at Exp precision. A zero
// price is the oracle's explicit "unavailable" sentinel.
type PriceOracle interface {
	GetUnderlyingPrice(market common.Address) fixedmath.Exp
}

// StableDebtView reports an account's outstanding pegged stable-asset debt.
type StableDebtView interface {
	DebtOf(account common.Address) (*uint256.Int, error)
}

// RewardDistributor is the slice of the flywheel engine the policy hooks
// drive to keep reward indices current.
type RewardDistributor interface {
	AccrueSupply(market common.Address) error
	AccrueBorrow(market common.Address) error
	DistributeSupplier(market, account common.Address) error
	DistributeBorrower(market, account common.Address) error
}
