package flywheel

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"hesper/native/fixedmath"
)

// MarketRewardState tracks the two independent reward index tracks for a
// market. Indices are monotonically non-decreasing Doubles; the block fields
// record when each track was last advanced.
type MarketRewardState struct {
	SupplyIndex fixedmath.Double
	SupplyBlock uint64
	BorrowIndex fixedmath.Double
	BorrowBlock uint64
}

// Clone returns a deep copy of the reward state.
func (s *MarketRewardState) Clone() *MarketRewardState {
	if s == nil {
		return nil
	}
	return &MarketRewardState{
		SupplyIndex: s.SupplyIndex.Clone(),
		SupplyBlock: s.SupplyBlock,
		BorrowIndex: s.BorrowIndex.Clone(),
		BorrowBlock: s.BorrowBlock,
	}
}

// MintRewardState tracks the reward index for stable-asset minters.
type MintRewardState struct {
	Index fixedmath.Double
	Block uint64
}

// Clone returns a deep copy of the mint reward state.
func (s *MintRewardState) Clone() *MintRewardState {
	if s == nil {
		return nil
	}
	return &MintRewardState{Index: s.Index.Clone(), Block: s.Block}
}

// VaultReleaseState is the global singleton controlling the continuous
// payout stream to the reward vault. LastReleaseBlock is initialised to the
// configured start block and only advances when a batch is actually paid.
type VaultReleaseState struct {
	LastReleaseBlock uint64
	RatePerBlock     *uint256.Int
	MinBatch         *uint256.Int
	Vault            common.Address
}

// Clone returns a deep copy of the release state.
func (s *VaultReleaseState) Clone() *VaultReleaseState {
	if s == nil {
		return nil
	}
	clone := &VaultReleaseState{
		LastReleaseBlock: s.LastReleaseBlock,
		Vault:            s.Vault,
	}
	if s.RatePerBlock != nil {
		clone.RatePerBlock = new(uint256.Int).Set(s.RatePerBlock)
	}
	if s.MinBatch != nil {
		clone.MinBatch = new(uint256.Int).Set(s.MinBatch)
	}
	return clone
}

// MarketLedger is the slice of a market's token ledger the flywheel needs to
// weight index growth by balances.
type MarketLedger interface {
	TotalSupply() *uint256.Int
	TotalBorrows() *uint256.Int
	BorrowIndex() fixedmath.Exp
	BalanceOf(account common.Address) *uint256.Int
	BorrowBalanceStored(account common.Address) *uint256.Int
}

// LedgerSource resolves the token ledger backing a market.
type LedgerSource interface {
	Ledger(market common.Address) MarketLedger
}

// PriceOracle prices a market's underlying asset; zero means unavailable.
type PriceOracle interface {
	GetUnderlyingPrice(market common.Address) fixedmath.Exp
}

// MarketRegistry is the slice of the market registry the flywheel consults
// when rebalancing speeds and validating claim requests.
type MarketRegistry interface {
	AllMarkets() ([]common.Address, error)
	IsListed(market common.Address) (bool, error)
	RewardEligible(market common.Address) (bool, error)
}

// RewardToken is the external ledger for the emitted reward token.
type RewardToken interface {
	BalanceOf(holder common.Address) *uint256.Int
	Transfer(to common.Address, amount *uint256.Int) bool
}

// StableSupply reports the total outstanding supply of the pegged stable
// asset, used as the denominator of the minter reward track.
type StableSupply interface {
	TotalSupply() *uint256.Int
}

// StableDebts reports per-account stable-asset debt, used as the minter
// weight.
type StableDebts interface {
	DebtOf(account common.Address) (*uint256.Int, error)
}

// Vault is notified after each release so it can recompute its pending
// reward accounting.
type Vault interface {
	NotifyPendingRewardsChanged()
}

// BlockSource supplies the current block height to the engine.
type BlockSource func() uint64
