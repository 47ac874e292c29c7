package risk

import "errors"

var (
	errNilState                    = errors.New("risk engine: state not configured")
	errNilLedgers                  = errors.New("risk engine: ledger source not configured")
	errNilOracle                   = errors.New("risk engine: oracle not configured")
	errNilRewards                  = errors.New("risk engine: reward distributor not configured")
	ErrMarketNotListed             = errors.New("risk engine: market not listed")
	ErrMarketAlreadyListed         = errors.New("risk engine: market already listed")
	ErrTooManyAssets               = errors.New("risk engine: account entered too many markets")
	ErrNonzeroBorrowBalance        = errors.New("risk engine: outstanding borrow balance")
	ErrInsufficientLiquidity       = errors.New("risk engine: insufficient liquidity")
	ErrInsufficientShortfall       = errors.New("risk engine: insufficient shortfall")
	ErrTooMuchRepay                = errors.New("risk engine: repay amount exceeds close factor limit")
	ErrBorrowCapExceeded           = errors.New("risk engine: market borrow cap reached")
	ErrPriceUnavailable            = errors.New("risk engine: oracle price unavailable")
	ErrSnapshotUnavailable         = errors.New("risk engine: market ledger snapshot unavailable")
	ErrInvalidCollateralFactor     = errors.New("risk engine: collateral factor out of bounds")
	ErrInvalidCloseFactor          = errors.New("risk engine: close factor out of bounds")
	ErrInvalidLiquidationIncentive = errors.New("risk engine: liquidation incentive out of bounds")
	ErrInvalidMaxAssets            = errors.New("risk engine: max assets must be positive")
)
