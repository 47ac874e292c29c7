package bank

import (
	"github.com/ethereum/go-ethereum/common"

	"hesper/native/flywheel"
	"hesper/native/risk"
	"hesper/native/stable"
)

// The engines each declare their own ledger interface, so the set is
// adapted per consumer. The adapters return a nil interface for unknown
// markets, which the engines treat as fail-closed.

type riskSource struct{ set *Set }

func (r riskSource) Ledger(market common.Address) risk.MarketLedger {
	if ledger := r.set.Get(market); ledger != nil {
		return ledger
	}
	return nil
}

// RiskSource adapts the set to the risk engine's ledger resolver.
func (s *Set) RiskSource() risk.LedgerSource { return riskSource{set: s} }

type flywheelSource struct{ set *Set }

func (f flywheelSource) Ledger(market common.Address) flywheel.MarketLedger {
	if ledger := f.set.Get(market); ledger != nil {
		return ledger
	}
	return nil
}

// FlywheelSource adapts the set to the reward distributor's ledger
// resolver.
func (s *Set) FlywheelSource() flywheel.LedgerSource { return flywheelSource{set: s} }

type stableSource struct{ set *Set }

func (t stableSource) Ledger(market common.Address) stable.MarketLedger {
	if ledger := t.set.Get(market); ledger != nil {
		return ledger
	}
	return nil
}

// StableSource adapts the set to the stable engine's ledger resolver.
func (s *Set) StableSource() stable.LedgerSource { return stableSource{set: s} }
