package risk

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"hesper/native/fixedmath"
)

// SeizeTokens converts a repay amount denominated in the borrowed market's
// underlying into collateral-market tokens to seize, applying the
// liquidation incentive. The chained fixed-point steps bound intermediate
// overflow; any failure aborts before the caller persists anything.
func (e *Engine) SeizeTokens(borrowedMarket, collateralMarket common.Address, actualRepayAmount *uint256.Int) (*uint256.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if actualRepayAmount == nil {
		actualRepayAmount = uint256.NewInt(0)
	}
	priceBorrowed := e.oracle.GetUnderlyingPrice(borrowedMarket)
	if priceBorrowed.IsZero() {
		return nil, fmt.Errorf("%w: market %s", ErrPriceUnavailable, borrowedMarket.Hex())
	}
	priceCollateral := e.oracle.GetUnderlyingPrice(collateralMarket)
	if priceCollateral.IsZero() {
		return nil, fmt.Errorf("%w: market %s", ErrPriceUnavailable, collateralMarket.Hex())
	}
	collateralLedger, err := e.ledger(collateralMarket)
	if err != nil {
		return nil, err
	}
	exchangeRate := collateralLedger.ExchangeRateStored()

	numerator, err := fixedmath.MulExp(e.liquidationIncentive, priceBorrowed)
	if err != nil {
		return nil, err
	}
	denominator, err := fixedmath.MulExp(priceCollateral, exchangeRate)
	if err != nil {
		return nil, err
	}
	ratio, err := fixedmath.DivExp(numerator, denominator)
	if err != nil {
		return nil, err
	}
	return fixedmath.MulScalarTruncate(ratio, actualRepayAmount)
}

// LiquidateBorrowAllowed gates a liquidation: the borrower must be in
// shortfall, and the repay amount must not exceed the close-factor share of
// their outstanding borrow.
func (e *Engine) LiquidateBorrowAllowed(borrowedMarket, collateralMarket, liquidator, borrower common.Address, repayAmount *uint256.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if _, err := e.listedMarket(borrowedMarket); err != nil {
		return err
	}
	if _, err := e.listedMarket(collateralMarket); err != nil {
		return err
	}
	_, shortfall, err := e.AccountLiquidity(borrower)
	if err != nil {
		return err
	}
	if shortfall.IsZero() {
		return ErrInsufficientShortfall
	}
	ledger, err := e.ledger(borrowedMarket)
	if err != nil {
		return err
	}
	borrowBalance := ledger.BorrowBalanceStored(borrower)
	maxClose, err := fixedmath.MulScalarTruncate(e.closeFactor, borrowBalance)
	if err != nil {
		return err
	}
	if repayAmount != nil && repayAmount.Gt(maxClose) {
		return ErrTooMuchRepay
	}
	return nil
}
