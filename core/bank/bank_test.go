package bank

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func TestLedgerBalancesTrackTotals(t *testing.T) {
	ledger := NewLedger()
	account := common.HexToAddress("0xaa")

	ledger.Credit(account, uint256.NewInt(1_000))
	ledger.AddBorrow(account, uint256.NewInt(400))
	if got := ledger.TotalSupply(); got.Uint64() != 1_000 {
		t.Fatalf("total supply = %s", got)
	}
	if got := ledger.TotalBorrows(); got.Uint64() != 400 {
		t.Fatalf("total borrows = %s", got)
	}

	// Over-repay clamps at the outstanding balance.
	ledger.RepayBorrow(account, uint256.NewInt(900))
	if got := ledger.BorrowBalanceStored(account); !got.IsZero() {
		t.Fatalf("borrow balance after over-repay = %s", got)
	}
	if got := ledger.TotalBorrows(); !got.IsZero() {
		t.Fatalf("total borrows after over-repay = %s", got)
	}

	ledger.Debit(account, uint256.NewInt(250))
	tokens, borrows, rate, err := ledger.AccountSnapshot(account)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if tokens.Uint64() != 750 || !borrows.IsZero() {
		t.Fatalf("snapshot = %s tokens, %s borrows", tokens, borrows)
	}
	if rate.IsZero() {
		t.Fatalf("exchange rate should default to one")
	}
}

func TestSetResolvesPerMarket(t *testing.T) {
	set := NewSet()
	market := common.HexToAddress("0x01")

	if set.Get(market) != nil {
		t.Fatalf("expected nil ledger before Add")
	}
	ledger := set.Add(market)
	if set.Add(market) != ledger {
		t.Fatalf("Add should be idempotent")
	}
	if source := set.RiskSource(); source.Ledger(market) == nil {
		t.Fatalf("risk source lost the ledger")
	}
	if source := set.RiskSource(); source.Ledger(common.HexToAddress("0x02")) != nil {
		t.Fatalf("unknown market should resolve to nil")
	}
}

func TestTokenTransfersDrawFromTreasury(t *testing.T) {
	treasury := common.HexToAddress("0x0000000000000000000000000000000000000099")
	holder := common.HexToAddress("0xaa")
	token := NewToken(treasury)

	if token.Transfer(holder, uint256.NewInt(10)) {
		t.Fatalf("transfer from empty treasury should fail")
	}
	token.Fund(uint256.NewInt(100))
	if !token.Transfer(holder, uint256.NewInt(60)) {
		t.Fatalf("funded transfer should succeed")
	}
	if got := token.BalanceOf(holder); got.Uint64() != 60 {
		t.Fatalf("holder balance = %s", got)
	}
	if got := token.BalanceOf(treasury); got.Uint64() != 40 {
		t.Fatalf("treasury balance = %s", got)
	}
}

func TestStableControllerBurnRequiresBalance(t *testing.T) {
	controller := NewStableController()
	account := common.HexToAddress("0xaa")

	if err := controller.Mint(account, uint256.NewInt(500)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := controller.Burn(account, uint256.NewInt(600)); err == nil {
		t.Fatalf("expected burn to fail beyond balance")
	}
	if err := controller.Burn(account, uint256.NewInt(200)); err != nil {
		t.Fatalf("burn: %v", err)
	}
	if got := controller.TotalSupply(); got.Uint64() != 300 {
		t.Fatalf("total supply = %s", got)
	}
}

func TestOracleMissingPriceIsZero(t *testing.T) {
	oracle := NewOracle()
	market := common.HexToAddress("0x01")
	if price := oracle.GetUnderlyingPrice(market); !price.IsZero() {
		t.Fatalf("missing price should be zero, got %s", price.Mantissa)
	}
}
