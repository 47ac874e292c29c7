package flywheel

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"hesper/native/fixedmath"
)

// ErrInvalidVaultSchedule rejects schedules with a zero rate and a nonzero
// minimum batch, which could never release anything.
var ErrInvalidVaultSchedule = errors.New("flywheel engine: invalid vault schedule")

// SetVaultSchedule configures the continuous release stream. The start block
// seeds LastReleaseBlock so nothing accumulates before it.
func (e *Engine) SetVaultSchedule(vault common.Address, ratePerBlock, minBatch *uint256.Int, startBlock uint64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if ratePerBlock == nil {
		ratePerBlock = uint256.NewInt(0)
	}
	if minBatch == nil {
		minBatch = uint256.NewInt(0)
	}
	if ratePerBlock.IsZero() && !minBatch.IsZero() {
		return ErrInvalidVaultSchedule
	}
	return e.state.PutVaultState(&VaultReleaseState{
		LastReleaseBlock: startBlock,
		RatePerBlock:     new(uint256.Int).Set(ratePerBlock),
		MinBatch:         new(uint256.Int).Set(minBatch),
		Vault:            vault,
	})
}

// ReleaseToVault streams accumulated emission to the vault. It is a no-op
// until a vault is configured, before the schedule's start block, or while
// the treasury holds no reward tokens. Batches below the minimum defer
// without advancing LastReleaseBlock so the accumulated amount is not lost.
func (e *Engine) ReleaseToVault() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	schedule, err := e.state.VaultState()
	if err != nil {
		return err
	}
	if schedule == nil || schedule.Vault == (common.Address{}) || e.token == nil {
		return nil
	}
	block := e.currentBlock()
	if block <= schedule.LastReleaseBlock {
		return nil
	}
	treasuryBalance := e.token.BalanceOf(e.treasury)
	if treasuryBalance == nil || treasuryBalance.IsZero() {
		return nil
	}
	deltaBlocks := uint256.NewInt(block - schedule.LastReleaseBlock)
	amount, err := fixedmath.MulUint(deltaBlocks, schedule.RatePerBlock)
	if err != nil {
		return err
	}
	if schedule.MinBatch != nil && amount.Lt(schedule.MinBatch) {
		return nil
	}
	actual := amount
	if treasuryBalance.Lt(amount) {
		actual = treasuryBalance
	}
	schedule.LastReleaseBlock = block
	if err := e.state.PutVaultState(schedule); err != nil {
		return err
	}
	if !e.token.Transfer(schedule.Vault, new(uint256.Int).Set(actual)) {
		return nil
	}
	if e.vault != nil {
		e.vault.NotifyPendingRewardsChanged()
	}
	return nil
}
