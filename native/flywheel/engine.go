package flywheel

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	nativecommon "hesper/native/common"
	"hesper/native/fixedmath"
)

var (
	errNilState          = errors.New("flywheel engine: state not configured")
	errNilRegistry       = errors.New("flywheel engine: market registry not configured")
	errLedgerUnavailable = errors.New("flywheel engine: market ledger unavailable")
	// ErrMarketNotListed rejects claims naming markets outside the registry.
	ErrMarketNotListed = errors.New("flywheel engine: market not listed")
	// ErrClaimTooLarge rejects claim requests above the configured fan-out caps.
	ErrClaimTooLarge = errors.New("flywheel engine: claim request exceeds fan-out cap")
)

// initialIndex is the base value every reward index starts from. The huge
// 1e36 base keeps per-block ratios from losing precision over long horizons.
func initialIndex() fixedmath.Double {
	return fixedmath.NewDouble(fixedmath.DoubleScale)
}

type engineState interface {
	RewardState(market common.Address) (*MarketRewardState, error)
	PutRewardState(market common.Address, state *MarketRewardState) error
	Speed(market common.Address) (*uint256.Int, error)
	PutSpeed(market common.Address, speed *uint256.Int) error
	SupplierIndex(market, account common.Address) (fixedmath.Double, error)
	PutSupplierIndex(market, account common.Address, index fixedmath.Double) error
	BorrowerIndex(market, account common.Address) (fixedmath.Double, error)
	PutBorrowerIndex(market, account common.Address, index fixedmath.Double) error
	Accrued(account common.Address) (*uint256.Int, error)
	PutAccrued(account common.Address, amount *uint256.Int) error
	StableMintState() (*MintRewardState, error)
	PutStableMintState(state *MintRewardState) error
	MinterIndex(account common.Address) (fixedmath.Double, error)
	PutMinterIndex(account common.Address, index fixedmath.Double) error
	VaultState() (*VaultReleaseState, error)
	PutVaultState(state *VaultReleaseState) error
}

// Engine owns every piece of reward state: per-market indices, per-account
// snapshots, accrued balances, and the vault release schedule. It is the
// single writer for all of them under the host's sequential execution model.
type Engine struct {
	state        engineState
	ledgers      LedgerSource
	oracle       PriceOracle
	registry     MarketRegistry
	token        RewardToken
	treasury     common.Address
	stableSupply StableSupply
	stableDebts  StableDebts
	vault        Vault
	blocks       BlockSource
	pauses       nativecommon.PauseView

	emissionRate    *uint256.Int
	stableMintRate  *uint256.Int
	maxClaimHolders int
	maxClaimMarkets int
}

// NewEngine constructs a flywheel engine with zero emission rates and no
// collaborators wired.
func NewEngine() *Engine {
	return &Engine{
		emissionRate:    uint256.NewInt(0),
		stableMintRate:  uint256.NewInt(0),
		maxClaimHolders: 64,
		maxClaimMarkets: 32,
	}
}

// SetState wires the engine to the persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetLedgerSource wires the resolver for per-market token ledgers.
func (e *Engine) SetLedgerSource(ledgers LedgerSource) { e.ledgers = ledgers }

// SetOracle wires the price oracle used for utility weighting.
func (e *Engine) SetOracle(oracle PriceOracle) { e.oracle = oracle }

// SetRegistry wires the market registry view.
func (e *Engine) SetRegistry(registry MarketRegistry) { e.registry = registry }

// SetRewardToken wires the reward token ledger and the treasury identity the
// engine pays claims from.
func (e *Engine) SetRewardToken(token RewardToken, treasury common.Address) {
	e.token = token
	e.treasury = treasury
}

// SetStableViews wires the stable-asset supply and debt views backing the
// minter reward track.
func (e *Engine) SetStableViews(supply StableSupply, debts StableDebts) {
	e.stableSupply = supply
	e.stableDebts = debts
}

// SetVault wires the vault notified after each release.
func (e *Engine) SetVault(vault Vault) { e.vault = vault }

// SetBlockSource wires the current-block supplier.
func (e *Engine) SetBlockSource(blocks BlockSource) { e.blocks = blocks }

// SetPauses wires the pause view consulted before settling claims.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetEmissionRate updates the global per-block emission allocated across
// reward-eligible markets by RefreshSpeeds.
func (e *Engine) SetEmissionRate(rate *uint256.Int) {
	if rate == nil {
		e.emissionRate = uint256.NewInt(0)
		return
	}
	e.emissionRate = new(uint256.Int).Set(rate)
}

// SetStableMintRate updates the per-block emission paid to stable-asset
// minters.
func (e *Engine) SetStableMintRate(rate *uint256.Int) {
	if rate == nil {
		e.stableMintRate = uint256.NewInt(0)
		return
	}
	e.stableMintRate = new(uint256.Int).Set(rate)
}

// SetClaimCaps bounds the holders x markets fan-out a single claim may
// request. Zero disables the corresponding cap.
func (e *Engine) SetClaimCaps(holders, markets int) {
	e.maxClaimHolders = holders
	e.maxClaimMarkets = markets
}

func (e *Engine) currentBlock() uint64 {
	if e.blocks == nil {
		return 0
	}
	return e.blocks()
}

func (e *Engine) ledger(market common.Address) (MarketLedger, error) {
	if e.ledgers == nil {
		return nil, errLedgerUnavailable
	}
	ledger := e.ledgers.Ledger(market)
	if ledger == nil {
		return nil, fmt.Errorf("%w: market %s", errLedgerUnavailable, market.Hex())
	}
	return ledger, nil
}

func (e *Engine) speed(market common.Address) (*uint256.Int, error) {
	speed, err := e.state.Speed(market)
	if err != nil {
		return nil, err
	}
	if speed == nil {
		return uint256.NewInt(0), nil
	}
	return speed, nil
}

// ensureRewardState loads the market's reward state, initialising both
// tracks to the initial index at the current block on first touch. The
// initialised state is persisted immediately so later accruals measure from
// this block rather than re-stamping to the current one.
func (e *Engine) ensureRewardState(market common.Address) (*MarketRewardState, error) {
	state, err := e.state.RewardState(market)
	if err != nil {
		return nil, err
	}
	if state == nil {
		block := e.currentBlock()
		state = &MarketRewardState{
			SupplyIndex: initialIndex(),
			SupplyBlock: block,
			BorrowIndex: initialIndex(),
			BorrowBlock: block,
		}
		if err := e.state.PutRewardState(market, state); err != nil {
			return nil, err
		}
	}
	return state, nil
}

// AccrueSupply advances the market's supply reward index. With a zero speed
// only the block stamp advances and the index stays frozen.
func (e *Engine) AccrueSupply(market common.Address) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	state, err := e.ensureRewardState(market)
	if err != nil {
		return err
	}
	block := e.currentBlock()
	if block <= state.SupplyBlock {
		return nil
	}
	deltaBlocks := block - state.SupplyBlock
	speed, err := e.speed(market)
	if err != nil {
		return err
	}
	if !speed.IsZero() {
		ledger, err := e.ledger(market)
		if err != nil {
			return err
		}
		accrued, err := fixedmath.MulUint(uint256.NewInt(deltaBlocks), speed)
		if err != nil {
			return err
		}
		supplyTokens := ledger.TotalSupply()
		ratio := fixedmath.ZeroDouble()
		if !supplyTokens.IsZero() {
			ratio, err = fixedmath.FractionDouble(accrued, supplyTokens)
			if err != nil {
				return err
			}
		}
		state.SupplyIndex, err = fixedmath.AddDouble(state.SupplyIndex, ratio)
		if err != nil {
			return err
		}
	}
	state.SupplyBlock = block
	return e.state.PutRewardState(market, state)
}

// AccrueBorrow advances the market's borrow reward index. Outstanding
// borrows are normalised by the market's own interest index so interest
// accrual does not inflate reward weight.
func (e *Engine) AccrueBorrow(market common.Address) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	state, err := e.ensureRewardState(market)
	if err != nil {
		return err
	}
	block := e.currentBlock()
	if block <= state.BorrowBlock {
		return nil
	}
	deltaBlocks := block - state.BorrowBlock
	speed, err := e.speed(market)
	if err != nil {
		return err
	}
	if !speed.IsZero() {
		ledger, err := e.ledger(market)
		if err != nil {
			return err
		}
		accrued, err := fixedmath.MulUint(uint256.NewInt(deltaBlocks), speed)
		if err != nil {
			return err
		}
		borrowAmount, err := fixedmath.DivByExp(ledger.TotalBorrows(), ledger.BorrowIndex())
		if err != nil {
			return err
		}
		ratio := fixedmath.ZeroDouble()
		if !borrowAmount.IsZero() {
			ratio, err = fixedmath.FractionDouble(accrued, borrowAmount)
			if err != nil {
				return err
			}
		}
		state.BorrowIndex, err = fixedmath.AddDouble(state.BorrowIndex, ratio)
		if err != nil {
			return err
		}
	}
	state.BorrowBlock = block
	return e.state.PutRewardState(market, state)
}

// DistributeSupplier credits the account its share of supply-index growth
// since its last snapshot and advances the snapshot to the current index. A
// zero snapshot against a moving index is normalised to the initial index so
// a first touch never pays out the market's full history.
func (e *Engine) DistributeSupplier(market, account common.Address) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	state, err := e.ensureRewardState(market)
	if err != nil {
		return err
	}
	supplyIndex := state.SupplyIndex
	supplierIndex, err := e.state.SupplierIndex(market, account)
	if err != nil {
		return err
	}
	if supplierIndex.IsZero() && !supplyIndex.IsZero() {
		supplierIndex = initialIndex()
	}
	deltaIndex, err := fixedmath.SubDouble(supplyIndex, supplierIndex)
	if err != nil {
		return err
	}
	ledger, err := e.ledger(market)
	if err != nil {
		return err
	}
	supplierDelta, err := fixedmath.MulDoubleTruncate(deltaIndex, ledger.BalanceOf(account))
	if err != nil {
		return err
	}
	if err := e.creditAccrued(account, supplierDelta); err != nil {
		return err
	}
	if err := e.state.PutSupplierIndex(market, account, supplyIndex); err != nil {
		return err
	}
	return e.ReleaseToVault()
}

// DistributeBorrower credits the account its share of borrow-index growth.
// Accounts whose snapshot was never initialised accrue nothing for activity
// before their first market interaction.
func (e *Engine) DistributeBorrower(market, account common.Address) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	state, err := e.ensureRewardState(market)
	if err != nil {
		return err
	}
	borrowerIndex, err := e.state.BorrowerIndex(market, account)
	if err != nil {
		return err
	}
	if borrowerIndex.IsZero() {
		return nil
	}
	deltaIndex, err := fixedmath.SubDouble(state.BorrowIndex, borrowerIndex)
	if err != nil {
		return err
	}
	ledger, err := e.ledger(market)
	if err != nil {
		return err
	}
	borrowerAmount, err := fixedmath.DivByExp(ledger.BorrowBalanceStored(account), ledger.BorrowIndex())
	if err != nil {
		return err
	}
	borrowerDelta, err := fixedmath.MulDoubleTruncate(deltaIndex, borrowerAmount)
	if err != nil {
		return err
	}
	if err := e.creditAccrued(account, borrowerDelta); err != nil {
		return err
	}
	if err := e.state.PutBorrowerIndex(market, account, state.BorrowIndex); err != nil {
		return err
	}
	return e.ReleaseToVault()
}

// MarkBorrowerIndex stamps the borrower's snapshot at the current borrow
// index without crediting anything, opening the account's borrow track. The
// host ledger calls this when a borrow is first recorded.
func (e *Engine) MarkBorrowerIndex(market, account common.Address) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	state, err := e.ensureRewardState(market)
	if err != nil {
		return err
	}
	existing, err := e.state.BorrowerIndex(market, account)
	if err != nil {
		return err
	}
	if !existing.IsZero() {
		return nil
	}
	return e.state.PutBorrowerIndex(market, account, state.BorrowIndex)
}

// Accrued returns the account's earned-but-unpaid reward balance.
func (e *Engine) Accrued(account common.Address) (*uint256.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	accrued, err := e.state.Accrued(account)
	if err != nil {
		return nil, err
	}
	if accrued == nil {
		return uint256.NewInt(0), nil
	}
	return new(uint256.Int).Set(accrued), nil
}

func (e *Engine) creditAccrued(account common.Address, delta *uint256.Int) error {
	if delta.IsZero() {
		return nil
	}
	accrued, err := e.Accrued(account)
	if err != nil {
		return err
	}
	total, err := fixedmath.AddUint(accrued, delta)
	if err != nil {
		return err
	}
	return e.state.PutAccrued(account, total)
}
