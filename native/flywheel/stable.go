package flywheel

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"hesper/native/fixedmath"
)

// ensureMintState loads the stable-minter reward state, initialising and
// persisting it on first touch so later accruals measure from this block.
func (e *Engine) ensureMintState() (*MintRewardState, error) {
	state, err := e.state.StableMintState()
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = &MintRewardState{
			Index: initialIndex(),
			Block: e.currentBlock(),
		}
		if err := e.state.PutStableMintState(state); err != nil {
			return nil, err
		}
	}
	return state, nil
}

// AccrueStableMintIndex advances the minter reward index by the stable
// emission rate, denominated over the stable asset's total supply.
func (e *Engine) AccrueStableMintIndex() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	state, err := e.ensureMintState()
	if err != nil {
		return err
	}
	block := e.currentBlock()
	if block <= state.Block {
		return nil
	}
	deltaBlocks := block - state.Block
	if !e.stableMintRate.IsZero() && e.stableSupply != nil {
		accrued, err := fixedmath.MulUint(uint256.NewInt(deltaBlocks), e.stableMintRate)
		if err != nil {
			return err
		}
		totalStable := e.stableSupply.TotalSupply()
		if totalStable != nil && !totalStable.IsZero() {
			ratio, err := fixedmath.FractionDouble(accrued, totalStable)
			if err != nil {
				return err
			}
			state.Index, err = fixedmath.AddDouble(state.Index, ratio)
			if err != nil {
				return err
			}
		}
	}
	state.Block = block
	return e.state.PutStableMintState(state)
}

// DistributeStableMinter credits the account its share of minter-index
// growth, weighted by its outstanding stable debt.
func (e *Engine) DistributeStableMinter(account common.Address) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.stableDebts == nil {
		return nil
	}
	state, err := e.ensureMintState()
	if err != nil {
		return err
	}
	mintIndex := state.Index
	minterIndex, err := e.state.MinterIndex(account)
	if err != nil {
		return err
	}
	if minterIndex.IsZero() && !mintIndex.IsZero() {
		minterIndex = initialIndex()
	}
	deltaIndex, err := fixedmath.SubDouble(mintIndex, minterIndex)
	if err != nil {
		return err
	}
	debt, err := e.stableDebts.DebtOf(account)
	if err != nil {
		return err
	}
	if debt == nil {
		debt = uint256.NewInt(0)
	}
	minterDelta, err := fixedmath.MulDoubleTruncate(deltaIndex, debt)
	if err != nil {
		return err
	}
	if err := e.creditAccrued(account, minterDelta); err != nil {
		return err
	}
	return e.state.PutMinterIndex(account, mintIndex)
}
