package flywheel

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"hesper/native/fixedmath"
)

// RefreshSpeeds reallocates the global emission rate across reward-eligible
// markets proportional to their utility (oracle price times outstanding
// borrows). Both index tracks of every market are accrued first so no
// history is rewritten at the old speed. Ineligible markets always end at
// zero speed regardless of utility.
func (e *Engine) RefreshSpeeds() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.registry == nil {
		return errNilRegistry
	}
	markets, err := e.registry.AllMarkets()
	if err != nil {
		return err
	}
	for _, market := range markets {
		if err := e.AccrueSupply(market); err != nil {
			return err
		}
		if err := e.AccrueBorrow(market); err != nil {
			return err
		}
	}

	utilities := make([]*uint256.Int, len(markets))
	totalUtility := uint256.NewInt(0)
	for i, market := range markets {
		utilities[i] = uint256.NewInt(0)
		eligible, err := e.registry.RewardEligible(market)
		if err != nil {
			return err
		}
		if !eligible {
			continue
		}
		ledger, err := e.ledger(market)
		if err != nil {
			return err
		}
		price := e.oracle.GetUnderlyingPrice(market)
		utility, err := fixedmath.MulScalar(price, ledger.TotalBorrows())
		if err != nil {
			return err
		}
		utilities[i] = utility.Mantissa
		totalUtility, err = fixedmath.AddUint(totalUtility, utilities[i])
		if err != nil {
			return err
		}
	}

	for i, market := range markets {
		speed := uint256.NewInt(0)
		if !totalUtility.IsZero() && !utilities[i].IsZero() {
			weighted, err := fixedmath.MulUint(e.emissionRate, utilities[i])
			if err != nil {
				return err
			}
			speed, err = fixedmath.DivUint(weighted, totalUtility)
			if err != nil {
				return err
			}
		}
		if err := e.state.PutSpeed(market, speed); err != nil {
			return err
		}
	}
	return nil
}

// Speed returns the market's current per-block emission speed.
func (e *Engine) Speed(market common.Address) (*uint256.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	speed, err := e.speed(market)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).Set(speed), nil
}
