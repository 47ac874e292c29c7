package risk

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	nativecommon "hesper/native/common"
	"hesper/native/fixedmath"
)

// Parameter bounds, all at 1e18 scale. The close factor lower bound is
// exclusive; every other bound is inclusive.
var (
	collateralFactorMax     = fixedmath.ExpFromBps(9_000)  // 0.9
	closeFactorMin          = fixedmath.ExpFromBps(500)    // 0.05
	closeFactorMax          = fixedmath.ExpFromBps(9_000)  // 0.9
	liquidationIncentiveMin = fixedmath.ExpFromBps(10_000) // 1.0
	liquidationIncentiveMax = fixedmath.ExpFromBps(15_000) // 1.5
)

type engineState interface {
	GetMarket(market common.Address) (*Market, error)
	PutMarket(market common.Address, m *Market) error
	AllMarkets() ([]common.Address, error)
	AppendAllMarkets(market common.Address) error
	IsMember(account, market common.Address) (bool, error)
	Memberships(account common.Address) ([]common.Address, error)
	AddMembership(account, market common.Address) error
	RemoveMembership(account, market common.Address) error
}

// Engine gates every position-changing action against the solvency of the
// acting account and keeps the reward flywheel current while doing so.
type Engine struct {
	state   engineState
	ledgers LedgerSource
	oracle  PriceOracle
	stable  StableDebtView
	rewards RewardDistributor
	pauses  nativecommon.PauseView

	closeFactor          fixedmath.Exp
	liquidationIncentive fixedmath.Exp
	maxAssets            int
}

// NewEngine constructs a risk engine with no collaborators wired. The caller
// is expected to attach state, ledgers, and the oracle before use.
func NewEngine() *Engine {
	return &Engine{
		closeFactor:          fixedmath.ZeroExp(),
		liquidationIncentive: fixedmath.OneExp(),
		maxAssets:            8,
	}
}

// SetState wires the engine to the persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetLedgerSource wires the resolver for per-market token ledgers.
func (e *Engine) SetLedgerSource(ledgers LedgerSource) { e.ledgers = ledgers }

// SetOracle wires the price oracle.
func (e *Engine) SetOracle(oracle PriceOracle) { e.oracle = oracle }

// SetStableDebts wires the stable-asset debt view consulted during solvency
// aggregation.
func (e *Engine) SetStableDebts(view StableDebtView) { e.stable = view }

// SetRewards wires the flywheel distributor driven by the policy hooks.
func (e *Engine) SetRewards(rewards RewardDistributor) { e.rewards = rewards }

// SetPauses wires the per-action pause flags.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetCloseFactor updates the close factor. The value must be strictly above
// 0.05 and at most 0.9.
func (e *Engine) SetCloseFactor(factor fixedmath.Exp) error {
	if fixedmath.LessThanOrEqualExp(factor, closeFactorMin) {
		return ErrInvalidCloseFactor
	}
	if !fixedmath.LessThanOrEqualExp(factor, closeFactorMax) {
		return ErrInvalidCloseFactor
	}
	e.closeFactor = factor.Clone()
	return nil
}

// CloseFactor returns the configured close factor.
func (e *Engine) CloseFactor() fixedmath.Exp { return e.closeFactor.Clone() }

// SetLiquidationIncentive updates the liquidation incentive, bounded to
// [1.0, 1.5].
func (e *Engine) SetLiquidationIncentive(incentive fixedmath.Exp) error {
	if fixedmath.LessThanExp(incentive, liquidationIncentiveMin) {
		return ErrInvalidLiquidationIncentive
	}
	if !fixedmath.LessThanOrEqualExp(incentive, liquidationIncentiveMax) {
		return ErrInvalidLiquidationIncentive
	}
	e.liquidationIncentive = incentive.Clone()
	return nil
}

// LiquidationIncentive returns the configured incentive multiplier.
func (e *Engine) LiquidationIncentive() fixedmath.Exp { return e.liquidationIncentive.Clone() }

// SetMaxAssets updates the per-account membership cap.
func (e *Engine) SetMaxAssets(n int) error {
	if n <= 0 {
		return ErrInvalidMaxAssets
	}
	e.maxAssets = n
	return nil
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.ledgers == nil {
		return errNilLedgers
	}
	if e.oracle == nil {
		return errNilOracle
	}
	return nil
}

func (e *Engine) listedMarket(market common.Address) (*Market, error) {
	meta, err := e.state.GetMarket(market)
	if err != nil {
		return nil, err
	}
	if meta == nil || !meta.Listed {
		return nil, ErrMarketNotListed
	}
	return meta, nil
}

func (e *Engine) ledger(market common.Address) (MarketLedger, error) {
	ledger := e.ledgers.Ledger(market)
	if ledger == nil {
		return nil, ErrSnapshotUnavailable
	}
	return ledger, nil
}

func (e *Engine) stableDebt(account common.Address) (*uint256.Int, error) {
	if e.stable == nil {
		return uint256.NewInt(0), nil
	}
	debt, err := e.stable.DebtOf(account)
	if err != nil {
		return nil, err
	}
	if debt == nil {
		return uint256.NewInt(0), nil
	}
	return debt, nil
}

func (e *Engine) distributor() (RewardDistributor, error) {
	if e.rewards == nil {
		return nil, errNilRewards
	}
	return e.rewards, nil
}
