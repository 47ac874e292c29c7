package risk

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"

	nativecommon "hesper/native/common"
)

func TestMintAllowedDistributesSupplier(t *testing.T) {
	f := newRiskFixture()
	minter := addr(0xAA)
	market := addr(0x01)
	f.listMarket(t, market, 10_000, 0)

	if err := f.engine.MintAllowed(market, minter); err != nil {
		t.Fatalf("mint allowed: %v", err)
	}
	if f.rewards.supplyAccruals[market] != 1 {
		t.Fatalf("expected one supply accrual, got %d", f.rewards.supplyAccruals[market])
	}
	if f.rewards.supplierCredits[distKey{market, minter}] != 1 {
		t.Fatalf("expected the minter's supplier position to be settled")
	}
}

func TestMintAllowedRejectsUnlistedMarket(t *testing.T) {
	f := newRiskFixture()
	if err := f.engine.MintAllowed(addr(0x01), addr(0xAA)); !errors.Is(err, ErrMarketNotListed) {
		t.Fatalf("expected ErrMarketNotListed, got %v", err)
	}
}

func TestMintAllowedPaused(t *testing.T) {
	f := newRiskFixture()
	market := addr(0x01)
	f.listMarket(t, market, 10_000, 0)
	f.engine.SetPauses(nativecommon.StaticPauses{nativecommon.ActionMint: true})

	if err := f.engine.MintAllowed(market, addr(0xAA)); !errors.Is(err, nativecommon.ErrActionPaused) {
		t.Fatalf("expected ErrActionPaused, got %v", err)
	}
}

func TestRedeemAllowedChecksMemberSolvency(t *testing.T) {
	f := newRiskFixture()
	redeemer := addr(0xAA)
	market := addr(0x01)
	ledger := f.listMarket(t, market, 20_000, 5_000)
	f.enter(t, redeemer, market)
	ledger.balances[redeemer] = uint256.NewInt(1_000)
	ledger.borrows[redeemer] = uint256.NewInt(400)

	// Power 1000 against an 800 borrow value: redeeming 300 tokens would
	// surrender 300 more than the remaining headroom.
	if err := f.engine.RedeemAllowed(market, redeemer, uint256.NewInt(300)); !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("expected ErrInsufficientLiquidity, got %v", err)
	}
	if err := f.engine.RedeemAllowed(market, redeemer, uint256.NewInt(100)); err != nil {
		t.Fatalf("redeem within headroom: %v", err)
	}
	if f.rewards.supplierCredits[distKey{market, redeemer}] != 1 {
		t.Fatalf("expected the redeemer's supplier position to be settled once")
	}
}

func TestRedeemAllowedNonMemberSkipsSolvency(t *testing.T) {
	f := newRiskFixture()
	redeemer := addr(0xAA)
	market := addr(0x01)
	f.listMarket(t, market, 20_000, 5_000)

	// Non-members' balances never counted toward borrowing power, so any
	// redemption is fine.
	if err := f.engine.RedeemAllowed(market, redeemer, uint256.NewInt(1_000_000)); err != nil {
		t.Fatalf("non-member redeem: %v", err)
	}
}

func TestBorrowAllowedAutoEnters(t *testing.T) {
	f := newRiskFixture()
	borrower := addr(0xAA)
	market := addr(0x01)
	ledger := f.listMarket(t, market, 20_000, 5_000)
	ledger.balances[borrower] = uint256.NewInt(1_000)

	if err := f.engine.BorrowAllowed(market, borrower, uint256.NewInt(400)); err != nil {
		t.Fatalf("borrow allowed: %v", err)
	}
	member, err := f.state.IsMember(borrower, market)
	if err != nil || !member {
		t.Fatalf("expected the borrower to be auto-entered, member=%t err=%v", member, err)
	}
	if f.rewards.borrowAccruals[market] != 1 {
		t.Fatalf("expected one borrow accrual, got %d", f.rewards.borrowAccruals[market])
	}
	if f.rewards.borrowerCredits[distKey{market, borrower}] != 1 {
		t.Fatalf("expected the borrower's position to be settled")
	}
}

func TestBorrowAllowedRejectsShortfall(t *testing.T) {
	f := newRiskFixture()
	borrower := addr(0xAA)
	market := addr(0x01)
	ledger := f.listMarket(t, market, 20_000, 5_000)
	ledger.balances[borrower] = uint256.NewInt(1_000)

	// Power 1000; a 600 borrow is worth 1200.
	if err := f.engine.BorrowAllowed(market, borrower, uint256.NewInt(600)); !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("expected ErrInsufficientLiquidity, got %v", err)
	}
}

func TestBorrowAllowedEnforcesBorrowCap(t *testing.T) {
	f := newRiskFixture()
	borrower := addr(0xAA)
	market := addr(0x01)
	ledger := f.listMarket(t, market, 20_000, 5_000)
	ledger.balances[borrower] = uint256.NewInt(10_000)
	ledger.totalBorrows = uint256.NewInt(450)
	if err := f.engine.SetBorrowCap(market, uint256.NewInt(500)); err != nil {
		t.Fatalf("set borrow cap: %v", err)
	}

	// The cap is exclusive: landing exactly on it is already too much.
	if err := f.engine.BorrowAllowed(market, borrower, uint256.NewInt(50)); !errors.Is(err, ErrBorrowCapExceeded) {
		t.Fatalf("expected ErrBorrowCapExceeded, got %v", err)
	}
	if err := f.engine.BorrowAllowed(market, borrower, uint256.NewInt(49)); err != nil {
		t.Fatalf("borrow under the cap: %v", err)
	}
}

func TestBorrowAllowedRequiresPrice(t *testing.T) {
	f := newRiskFixture()
	borrower := addr(0xAA)
	market := addr(0x01)
	f.listMarket(t, market, 0, 0)

	if err := f.engine.BorrowAllowed(market, borrower, uint256.NewInt(1)); !errors.Is(err, ErrPriceUnavailable) {
		t.Fatalf("expected ErrPriceUnavailable, got %v", err)
	}
}

func TestBorrowAllowedPaused(t *testing.T) {
	f := newRiskFixture()
	market := addr(0x01)
	f.listMarket(t, market, 20_000, 5_000)
	f.engine.SetPauses(nativecommon.StaticPauses{nativecommon.ActionBorrow: true})

	if err := f.engine.BorrowAllowed(market, addr(0xAA), uint256.NewInt(1)); !errors.Is(err, nativecommon.ErrActionPaused) {
		t.Fatalf("expected ErrActionPaused, got %v", err)
	}
}

func TestRepayBorrowAllowedSettlesBorrower(t *testing.T) {
	f := newRiskFixture()
	payer, borrower := addr(0xBB), addr(0xAA)
	market := addr(0x01)
	f.listMarket(t, market, 10_000, 0)

	if err := f.engine.RepayBorrowAllowed(market, payer, borrower); err != nil {
		t.Fatalf("repay allowed: %v", err)
	}
	if f.rewards.borrowerCredits[distKey{market, borrower}] != 1 {
		t.Fatalf("expected the borrower's position to be settled")
	}
	if f.rewards.borrowerCredits[distKey{market, payer}] != 0 {
		t.Fatalf("the payer must not be credited")
	}
	if err := f.engine.RepayBorrowAllowed(addr(0x02), payer, borrower); !errors.Is(err, ErrMarketNotListed) {
		t.Fatalf("expected ErrMarketNotListed, got %v", err)
	}
}

func TestSeizeAllowedSettlesBothParties(t *testing.T) {
	f := newRiskFixture()
	borrower, liquidator := addr(0xAA), addr(0xBB)
	collateral, borrowed := addr(0x01), addr(0x02)
	f.listMarket(t, collateral, 10_000, 0)
	f.listMarket(t, borrowed, 10_000, 0)

	if err := f.engine.SeizeAllowed(collateral, borrowed, liquidator, borrower); err != nil {
		t.Fatalf("seize allowed: %v", err)
	}
	if f.rewards.supplyAccruals[collateral] != 1 {
		t.Fatalf("expected one supply accrual on the collateral market")
	}
	if f.rewards.supplierCredits[distKey{collateral, borrower}] != 1 {
		t.Fatalf("expected the borrower's supplier position to be settled")
	}
	if f.rewards.supplierCredits[distKey{collateral, liquidator}] != 1 {
		t.Fatalf("expected the liquidator's supplier position to be settled")
	}
}

func TestSeizeAllowedPaused(t *testing.T) {
	f := newRiskFixture()
	collateral, borrowed := addr(0x01), addr(0x02)
	f.listMarket(t, collateral, 10_000, 0)
	f.listMarket(t, borrowed, 10_000, 0)
	f.engine.SetPauses(nativecommon.StaticPauses{nativecommon.ActionSeize: true})

	if err := f.engine.SeizeAllowed(collateral, borrowed, addr(0xBB), addr(0xAA)); !errors.Is(err, nativecommon.ErrActionPaused) {
		t.Fatalf("expected ErrActionPaused, got %v", err)
	}
}

func TestTransferAllowedChecksSourceAndSettlesBoth(t *testing.T) {
	f := newRiskFixture()
	src, dst := addr(0xAA), addr(0xBB)
	market := addr(0x01)
	ledger := f.listMarket(t, market, 20_000, 5_000)
	f.enter(t, src, market)
	ledger.balances[src] = uint256.NewInt(1_000)
	ledger.borrows[src] = uint256.NewInt(400)

	// A transfer is a redemption from the source's point of view.
	if err := f.engine.TransferAllowed(market, src, dst, uint256.NewInt(300)); !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("expected ErrInsufficientLiquidity, got %v", err)
	}
	if err := f.engine.TransferAllowed(market, src, dst, uint256.NewInt(100)); err != nil {
		t.Fatalf("transfer within headroom: %v", err)
	}
	if f.rewards.supplierCredits[distKey{market, src}] != 1 {
		t.Fatalf("expected the source's supplier position to be settled")
	}
	if f.rewards.supplierCredits[distKey{market, dst}] != 1 {
		t.Fatalf("expected the destination's supplier position to be settled")
	}
}

func TestPolicyHooksNilEngine(t *testing.T) {
	var e *Engine
	market := addr(0x01)
	account := addr(0xAA)
	amount := uint256.NewInt(1)

	checks := map[string]error{
		"mint":     e.MintAllowed(market, account),
		"redeem":   e.RedeemAllowed(market, account, amount),
		"borrow":   e.BorrowAllowed(market, account, amount),
		"repay":    e.RepayBorrowAllowed(market, account, account),
		"seize":    e.SeizeAllowed(market, market, account, account),
		"transfer": e.TransferAllowed(market, account, account, amount),
	}
	for hook, err := range checks {
		if !errors.Is(err, errNilState) {
			t.Fatalf("%s on a nil engine: expected errNilState, got %v", hook, err)
		}
	}
}
