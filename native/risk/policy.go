package risk

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	nativecommon "hesper/native/common"
	"hesper/native/fixedmath"
)

// MintAllowed gates supplying underlying to a market and keeps the supplier's
// reward position current.
func (e *Engine) MintAllowed(market, minter common.Address) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, nativecommon.ActionMint); err != nil {
		return err
	}
	if _, err := e.listedMarket(market); err != nil {
		return err
	}
	return e.updateAndDistributeSupplier(market, minter)
}

// RedeemAllowed gates redeeming market tokens. Members are checked against a
// hypothetical redemption of the requested tokens; non-members redeem freely
// because their balance never counted toward borrowing power.
func (e *Engine) RedeemAllowed(market, redeemer common.Address, redeemTokens *uint256.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, nativecommon.ActionRedeem); err != nil {
		return err
	}
	if err := e.redeemAllowedInternal(market, redeemer, redeemTokens); err != nil {
		return err
	}
	return e.updateAndDistributeSupplier(market, redeemer)
}

func (e *Engine) redeemAllowedInternal(market, redeemer common.Address, redeemTokens *uint256.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if _, err := e.listedMarket(market); err != nil {
		return err
	}
	member, err := e.state.IsMember(redeemer, market)
	if err != nil {
		return err
	}
	if !member {
		return nil
	}
	_, shortfall, err := e.HypotheticalLiquidity(redeemer, market, redeemTokens, uint256.NewInt(0))
	if err != nil {
		return err
	}
	if !shortfall.IsZero() {
		return ErrInsufficientLiquidity
	}
	return nil
}

// BorrowAllowed gates a borrow. A borrower touching a market for the first
// time is entered automatically so the new debt is visible to the solvency
// calculator from this action onward.
func (e *Engine) BorrowAllowed(market, borrower common.Address, borrowAmount *uint256.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, nativecommon.ActionBorrow); err != nil {
		return err
	}
	if err := e.ready(); err != nil {
		return err
	}
	meta, err := e.listedMarket(market)
	if err != nil {
		return err
	}
	member, err := e.state.IsMember(borrower, market)
	if err != nil {
		return err
	}
	if !member {
		if err := e.EnterMarket(borrower, market); err != nil {
			return err
		}
	}
	if e.oracle.GetUnderlyingPrice(market).IsZero() {
		return ErrPriceUnavailable
	}
	if meta.BorrowCap != nil && !meta.BorrowCap.IsZero() {
		ledger, err := e.ledger(market)
		if err != nil {
			return err
		}
		nextTotal, err := fixedmath.AddUint(ledger.TotalBorrows(), borrowAmount)
		if err != nil {
			return err
		}
		if !nextTotal.Lt(meta.BorrowCap) {
			return ErrBorrowCapExceeded
		}
	}
	_, shortfall, err := e.HypotheticalLiquidity(borrower, market, uint256.NewInt(0), borrowAmount)
	if err != nil {
		return err
	}
	if !shortfall.IsZero() {
		return ErrInsufficientLiquidity
	}
	return e.updateAndDistributeBorrower(market, borrower)
}

// RepayBorrowAllowed gates a repayment and keeps the borrower's reward
// position current.
func (e *Engine) RepayBorrowAllowed(market, payer, borrower common.Address) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, nativecommon.ActionRepay); err != nil {
		return err
	}
	if _, err := e.listedMarket(market); err != nil {
		return err
	}
	return e.updateAndDistributeBorrower(market, borrower)
}

// SeizeAllowed gates the collateral seizure leg of a liquidation and accrues
// supplier rewards for both sides of the transfer.
func (e *Engine) SeizeAllowed(collateralMarket, borrowedMarket, liquidator, borrower common.Address) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, nativecommon.ActionSeize); err != nil {
		return err
	}
	if _, err := e.listedMarket(collateralMarket); err != nil {
		return err
	}
	if _, err := e.listedMarket(borrowedMarket); err != nil {
		return err
	}
	rewards, err := e.distributor()
	if err != nil {
		return err
	}
	if err := rewards.AccrueSupply(collateralMarket); err != nil {
		return err
	}
	if err := rewards.DistributeSupplier(collateralMarket, borrower); err != nil {
		return err
	}
	return rewards.DistributeSupplier(collateralMarket, liquidator)
}

// TransferAllowed gates a market-token transfer. The source is checked as if
// it were redeeming the transferred tokens; the destination is accrued for
// the full current index even when its snapshot was never initialised, which
// preserves the original first-touch normalisation behaviour.
func (e *Engine) TransferAllowed(market, src, dst common.Address, transferTokens *uint256.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, nativecommon.ActionTransfer); err != nil {
		return err
	}
	if err := e.redeemAllowedInternal(market, src, transferTokens); err != nil {
		return err
	}
	rewards, err := e.distributor()
	if err != nil {
		return err
	}
	if err := rewards.AccrueSupply(market); err != nil {
		return err
	}
	if err := rewards.DistributeSupplier(market, src); err != nil {
		return err
	}
	return rewards.DistributeSupplier(market, dst)
}

func (e *Engine) updateAndDistributeSupplier(market, account common.Address) error {
	rewards, err := e.distributor()
	if err != nil {
		return err
	}
	if err := rewards.AccrueSupply(market); err != nil {
		return err
	}
	return rewards.DistributeSupplier(market, account)
}

func (e *Engine) updateAndDistributeBorrower(market, account common.Address) error {
	rewards, err := e.distributor()
	if err != nil {
		return err
	}
	if err := rewards.AccrueBorrow(market); err != nil {
		return err
	}
	return rewards.DistributeBorrower(market, account)
}
