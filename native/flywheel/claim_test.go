package flywheel

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	nativecommon "hesper/native/common"
)

func TestClaimPaysAccruedInFull(t *testing.T) {
	f := newFlywheelFixture()
	holder := addr(0xAA)
	market := addr(0x01)
	ledger := f.addMarket(t, market, 100)
	ledger.totalSupply = uint256.NewInt(50)
	ledger.balances[holder] = uint256.NewInt(30)
	f.fundTreasury(1_000)

	f.block = 10
	if err := f.engine.Claim(ClaimRequest{
		Holders:   []common.Address{holder},
		Markets:   []common.Address{market},
		Suppliers: true,
	}); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if got := f.token.BalanceOf(holder); got.Uint64() != 600 {
		t.Fatalf("expected a 600 payout, got %s", got.Dec())
	}
	if got := f.token.BalanceOf(treasuryAddr); got.Uint64() != 400 {
		t.Fatalf("expected the treasury to drop to 400, got %s", got.Dec())
	}
	accrued, err := f.engine.Accrued(holder)
	if err != nil {
		t.Fatalf("accrued: %v", err)
	}
	if !accrued.IsZero() {
		t.Fatalf("payout must clear the accrued balance, got %s", accrued.Dec())
	}

	// Claiming again in the same block pays nothing more.
	if err := f.engine.Claim(ClaimRequest{
		Holders:   []common.Address{holder},
		Markets:   []common.Address{market},
		Suppliers: true,
	}); err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if got := f.token.BalanceOf(holder); got.Uint64() != 600 {
		t.Fatalf("a same-block claim must be idempotent, got %s", got.Dec())
	}
}

func TestClaimLeavesAccruedWhenTreasuryShort(t *testing.T) {
	f := newFlywheelFixture()
	holder := addr(0xAA)
	market := addr(0x01)
	ledger := f.addMarket(t, market, 100)
	ledger.totalSupply = uint256.NewInt(50)
	ledger.balances[holder] = uint256.NewInt(30)
	f.fundTreasury(100)

	f.block = 10
	if err := f.engine.Claim(ClaimRequest{
		Holders:   []common.Address{holder},
		Markets:   []common.Address{market},
		Suppliers: true,
	}); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if got := f.token.BalanceOf(holder); !got.IsZero() {
		t.Fatalf("partial payouts must never happen, got %s", got.Dec())
	}
	accrued, err := f.engine.Accrued(holder)
	if err != nil {
		t.Fatalf("accrued: %v", err)
	}
	if accrued.Uint64() != 600 {
		t.Fatalf("the accrued balance must survive, got %s", accrued.Dec())
	}

	// Topping up the treasury lets a later claim settle the full amount.
	f.fundTreasury(600)
	if err := f.engine.ClaimAll(holder); err != nil {
		t.Fatalf("claim all: %v", err)
	}
	if got := f.token.BalanceOf(holder); got.Uint64() != 600 {
		t.Fatalf("expected the deferred 600 payout, got %s", got.Dec())
	}
}

func TestClaimRejectsUnlistedMarket(t *testing.T) {
	f := newFlywheelFixture()
	holder := addr(0xAA)
	f.addMarket(t, addr(0x01), 0)

	err := f.engine.Claim(ClaimRequest{
		Holders:   []common.Address{holder},
		Markets:   []common.Address{addr(0x02)},
		Suppliers: true,
	})
	if !errors.Is(err, ErrMarketNotListed) {
		t.Fatalf("expected ErrMarketNotListed, got %v", err)
	}
}

func TestClaimFanOutCaps(t *testing.T) {
	f := newFlywheelFixture()
	m1, m2 := addr(0x01), addr(0x02)
	f.addMarket(t, m1, 0)
	f.addMarket(t, m2, 0)
	f.engine.SetClaimCaps(1, 1)

	err := f.engine.Claim(ClaimRequest{
		Holders: []common.Address{addr(0xAA), addr(0xBB)},
		Markets: []common.Address{m1},
	})
	if !errors.Is(err, ErrClaimTooLarge) {
		t.Fatalf("expected ErrClaimTooLarge for two holders, got %v", err)
	}
	err = f.engine.Claim(ClaimRequest{
		Holders: []common.Address{addr(0xAA)},
		Markets: []common.Address{m1, m2},
	})
	if !errors.Is(err, ErrClaimTooLarge) {
		t.Fatalf("expected ErrClaimTooLarge for two markets, got %v", err)
	}
}

func TestClaimSettlesStableMinterTrack(t *testing.T) {
	f := newFlywheelFixture()
	holder := addr(0xAA)
	f.engine.SetStableMintRate(uint256.NewInt(50))
	f.engine.SetStableViews(
		&mockStableSupply{total: uint256.NewInt(100)},
		mockStableDebts{holder: uint256.NewInt(40)},
	)
	f.fundTreasury(1_000)
	if err := f.engine.AccrueStableMintIndex(); err != nil {
		t.Fatalf("open minter track: %v", err)
	}

	f.block = 2
	if err := f.engine.Claim(ClaimRequest{Holders: []common.Address{holder}}); err != nil {
		t.Fatalf("claim: %v", err)
	}
	// 2 blocks at rate 50 over a 100 stable supply is a 1-unit delta over
	// the holder's 40 of debt.
	if got := f.token.BalanceOf(holder); got.Uint64() != 40 {
		t.Fatalf("expected a 40 minter payout, got %s", got.Dec())
	}
}

func TestClaimRejectedWhilePaused(t *testing.T) {
	f := newFlywheelFixture()
	holder := addr(0xAA)
	market := addr(0x01)
	ledger := f.addMarket(t, market, 100)
	ledger.totalSupply = uint256.NewInt(50)
	ledger.balances[holder] = uint256.NewInt(30)
	f.fundTreasury(1_000)
	f.engine.SetPauses(nativecommon.StaticPauses{nativecommon.ActionClaim: true})

	f.block = 10
	err := f.engine.Claim(ClaimRequest{
		Holders:   []common.Address{holder},
		Markets:   []common.Address{market},
		Suppliers: true,
	})
	if !errors.Is(err, nativecommon.ErrActionPaused) {
		t.Fatalf("expected ErrActionPaused, got %v", err)
	}
	if got := f.token.BalanceOf(holder); !got.IsZero() {
		t.Fatalf("a paused claim must not pay out, got %s", got.Dec())
	}

	// Lifting the pause lets the same claim settle.
	f.engine.SetPauses(nil)
	if err := f.engine.ClaimAll(holder); err != nil {
		t.Fatalf("claim after unpause: %v", err)
	}
	if got := f.token.BalanceOf(holder); got.Uint64() != 600 {
		t.Fatalf("expected a 600 payout after unpause, got %s", got.Dec())
	}
}
