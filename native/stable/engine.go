// Package stable computes how much pegged stable asset an account may still
// mint against its collateral and owns the per-account stable debt ledger.
// The mint/burn token mechanics live in the external stable-asset
// controller; only the debt bookkeeping and capacity math live here.
package stable

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	nativecommon "hesper/native/common"
	"hesper/native/fixedmath"
)

var (
	errNilState      = errors.New("stable engine: state not configured")
	errNilController = errors.New("stable engine: controller not configured")
	errNilLedgers    = errors.New("stable engine: ledger source not configured")
	errNilOracle     = errors.New("stable engine: oracle not configured")
	errNilMembers    = errors.New("stable engine: membership source not configured")
	// ErrInvalidAmount rejects nil or zero mint/repay amounts.
	ErrInvalidAmount = errors.New("stable engine: amount must be positive")
	// ErrMintCapacityExceeded is returned when the requested mint exceeds the
	// account's remaining capacity, including when capacity is negative.
	ErrMintCapacityExceeded = errors.New("stable engine: mint capacity exceeded")
	// ErrNoDebt rejects repayments by accounts with no outstanding debt.
	ErrNoDebt = errors.New("stable engine: no outstanding stable debt")
	// ErrPriceUnavailable is returned when the oracle cannot price an entered
	// market.
	ErrPriceUnavailable = errors.New("stable engine: oracle price unavailable")
	// ErrSnapshotUnavailable is returned when a market ledger cannot report.
	ErrSnapshotUnavailable = errors.New("stable engine: market ledger snapshot unavailable")
	// ErrInvalidMintRate bounds the mint rate to the bps base.
	ErrInvalidMintRate = errors.New("stable engine: mint rate out of bounds")
)

const mintRateBase = 10_000

type engineState interface {
	StableDebt(account common.Address) (*uint256.Int, error)
	PutStableDebt(account common.Address, amount *uint256.Int) error
}

// MembershipSource lists the markets an account has entered.
type MembershipSource interface {
	Memberships(account common.Address) ([]common.Address, error)
}

// MarketLedger is the slice of a market's token ledger needed to value
// stable-asset backing.
type MarketLedger interface {
	AccountSnapshot(account common.Address) (tokenBalance, borrowBalance *uint256.Int, exchangeRate fixedmath.Exp, err error)
}

// LedgerSource resolves the token ledger backing a market.
type LedgerSource interface {
	Ledger(market common.Address) MarketLedger
}

// PriceOracle prices a market's underlying asset; zero means unavailable.
type PriceOracle interface {
	GetUnderlyingPrice(market common.Address) fixedmath.Exp
}

// Controller is the external stable-asset mint/burn ledger.
type Controller interface {
	Mint(account common.Address, amount *uint256.Int) error
	Burn(account common.Address, amount *uint256.Int) error
	TotalSupply() *uint256.Int
}

// Engine owns StableDebt and gates stable-asset minting against collateral
// capacity.
type Engine struct {
	state      engineState
	members    MembershipSource
	ledgers    LedgerSource
	oracle     PriceOracle
	controller Controller
	pauses     nativecommon.PauseView

	mintRateBps uint64
}

// NewEngine constructs a stable engine with a zero mint rate.
func NewEngine() *Engine {
	return &Engine{}
}

// SetState wires the engine to the persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetMembershipSource wires the registry view listing entered markets.
func (e *Engine) SetMembershipSource(members MembershipSource) { e.members = members }

// SetLedgerSource wires the resolver for per-market token ledgers.
func (e *Engine) SetLedgerSource(ledgers LedgerSource) { e.ledgers = ledgers }

// SetOracle wires the price oracle.
func (e *Engine) SetOracle(oracle PriceOracle) { e.oracle = oracle }

// SetController wires the external stable-asset controller.
func (e *Engine) SetController(controller Controller) { e.controller = controller }

// SetPauses wires the per-action pause flags.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetMintRate updates the fraction of free backing value that may be minted,
// in basis points of the 10_000 base.
func (e *Engine) SetMintRate(bps uint64) error {
	if bps > mintRateBase {
		return ErrInvalidMintRate
	}
	e.mintRateBps = bps
	return nil
}

// DebtOf returns the account's outstanding stable debt.
func (e *Engine) DebtOf(account common.Address) (*uint256.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	debt, err := e.state.StableDebt(account)
	if err != nil {
		return nil, err
	}
	if debt == nil {
		return uint256.NewInt(0), nil
	}
	return new(uint256.Int).Set(debt), nil
}

// TotalSupply reports the stable asset's total outstanding supply from the
// external controller.
func (e *Engine) TotalSupply() *uint256.Int {
	if e == nil || e.controller == nil {
		return uint256.NewInt(0)
	}
	supply := e.controller.TotalSupply()
	if supply == nil {
		return uint256.NewInt(0)
	}
	return supply
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.members == nil {
		return errNilMembers
	}
	if e.ledgers == nil {
		return errNilLedgers
	}
	if e.oracle == nil {
		return errNilOracle
	}
	return nil
}

// MintableAmount computes how much stable asset the account may still mint.
// Collateral counts at full value here: unlike borrow gating, stable backing
// is not discounted by collateral factors. A negative capacity surfaces as
// ErrMintCapacityExceeded, never as a negative number.
func (e *Engine) MintableAmount(account common.Address) (*uint256.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	sumSupply := uint256.NewInt(0)
	sumBorrow := uint256.NewInt(0)

	entered, err := e.members.Memberships(account)
	if err != nil {
		return nil, err
	}
	for _, market := range entered {
		ledger := e.ledgers.Ledger(market)
		if ledger == nil {
			return nil, fmt.Errorf("%w: market %s", ErrSnapshotUnavailable, market.Hex())
		}
		tokenBalance, borrowBalance, exchangeRate, err := ledger.AccountSnapshot(account)
		if err != nil {
			return nil, fmt.Errorf("%w: market %s: %w", ErrSnapshotUnavailable, market.Hex(), err)
		}
		price := e.oracle.GetUnderlyingPrice(market)
		if price.IsZero() {
			return nil, fmt.Errorf("%w: market %s", ErrPriceUnavailable, market.Hex())
		}
		tokensToValue, err := fixedmath.MulExp(exchangeRate, price)
		if err != nil {
			return nil, err
		}
		sumSupply, err = fixedmath.MulScalarTruncateAdd(tokensToValue, tokenBalance, sumSupply)
		if err != nil {
			return nil, err
		}
		sumBorrow, err = fixedmath.MulScalarTruncateAdd(price, borrowBalance, sumBorrow)
		if err != nil {
			return nil, err
		}
	}

	debt, err := e.DebtOf(account)
	if err != nil {
		return nil, err
	}
	sumBorrow, err = fixedmath.AddUint(sumBorrow, debt)
	if err != nil {
		return nil, err
	}
	if sumSupply.Lt(sumBorrow) {
		return nil, ErrMintCapacityExceeded
	}
	free := new(uint256.Int).Sub(sumSupply, sumBorrow)
	scaled, err := fixedmath.MulUint(free, uint256.NewInt(e.mintRateBps))
	if err != nil {
		return nil, err
	}
	return scaled.Div(scaled, uint256.NewInt(mintRateBase)), nil
}

// MintAllowed validates a mint request against the pause flags and the
// account's remaining capacity.
func (e *Engine) MintAllowed(account common.Address, amount *uint256.Int) error {
	if err := nativecommon.Guard(e.pauses, nativecommon.ActionStableMint); err != nil {
		return err
	}
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}
	mintable, err := e.MintableAmount(account)
	if err != nil {
		return err
	}
	if amount.Gt(mintable) {
		return ErrMintCapacityExceeded
	}
	return nil
}

// Mint validates and executes a stable-asset mint, delegating the token
// mutation to the external controller and recording the new debt.
func (e *Engine) Mint(account common.Address, amount *uint256.Int) error {
	if err := e.MintAllowed(account, amount); err != nil {
		return err
	}
	if e.controller == nil {
		return errNilController
	}
	debt, err := e.DebtOf(account)
	if err != nil {
		return err
	}
	newDebt, err := fixedmath.AddUint(debt, amount)
	if err != nil {
		return err
	}
	if err := e.controller.Mint(account, new(uint256.Int).Set(amount)); err != nil {
		return err
	}
	return e.state.PutStableDebt(account, newDebt)
}

// Repay burns up to the account's outstanding debt and returns the amount
// actually repaid.
func (e *Engine) Repay(account common.Address, amount *uint256.Int) (*uint256.Int, error) {
	if err := nativecommon.Guard(e.pauses, nativecommon.ActionStableRepay); err != nil {
		return nil, err
	}
	if amount == nil || amount.IsZero() {
		return nil, ErrInvalidAmount
	}
	if e.controller == nil {
		return nil, errNilController
	}
	debt, err := e.DebtOf(account)
	if err != nil {
		return nil, err
	}
	if debt.IsZero() {
		return nil, ErrNoDebt
	}
	actual := new(uint256.Int).Set(amount)
	if actual.Gt(debt) {
		actual.Set(debt)
	}
	if err := e.controller.Burn(account, new(uint256.Int).Set(actual)); err != nil {
		return nil, err
	}
	remaining := new(uint256.Int).Sub(debt, actual)
	if err := e.state.PutStableDebt(account, remaining); err != nil {
		return nil, err
	}
	return actual, nil
}
