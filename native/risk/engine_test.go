package risk

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"hesper/native/fixedmath"
)

type memState struct {
	markets map[common.Address]*Market
	all     []common.Address
	members map[common.Address][]common.Address
}

func newMemState() *memState {
	return &memState{
		markets: make(map[common.Address]*Market),
		members: make(map[common.Address][]common.Address),
	}
}

func (s *memState) GetMarket(market common.Address) (*Market, error) {
	return s.markets[market].Clone(), nil
}

func (s *memState) PutMarket(market common.Address, m *Market) error {
	s.markets[market] = m.Clone()
	return nil
}

func (s *memState) AllMarkets() ([]common.Address, error) {
	return append([]common.Address(nil), s.all...), nil
}

func (s *memState) AppendAllMarkets(market common.Address) error {
	s.all = append(s.all, market)
	return nil
}

func (s *memState) IsMember(account, market common.Address) (bool, error) {
	for _, entered := range s.members[account] {
		if entered == market {
			return true, nil
		}
	}
	return false, nil
}

func (s *memState) Memberships(account common.Address) ([]common.Address, error) {
	return append([]common.Address(nil), s.members[account]...), nil
}

func (s *memState) AddMembership(account, market common.Address) error {
	s.members[account] = append(s.members[account], market)
	return nil
}

func (s *memState) RemoveMembership(account, market common.Address) error {
	entered := s.members[account]
	for i, existing := range entered {
		if existing == market {
			s.members[account] = append(entered[:i], entered[i+1:]...)
			return nil
		}
	}
	return nil
}

type mockLedger struct {
	totalSupply  *uint256.Int
	totalBorrows *uint256.Int
	rate         fixedmath.Exp
	index        fixedmath.Exp
	balances     map[common.Address]*uint256.Int
	borrows      map[common.Address]*uint256.Int
	snapshotErr  error
}

func newMockLedger() *mockLedger {
	return &mockLedger{
		totalSupply:  uint256.NewInt(0),
		totalBorrows: uint256.NewInt(0),
		rate:         fixedmath.OneExp(),
		index:        fixedmath.OneExp(),
		balances:     make(map[common.Address]*uint256.Int),
		borrows:      make(map[common.Address]*uint256.Int),
	}
}

func (l *mockLedger) amount(m map[common.Address]*uint256.Int, account common.Address) *uint256.Int {
	if v, ok := m[account]; ok {
		return new(uint256.Int).Set(v)
	}
	return uint256.NewInt(0)
}

func (l *mockLedger) AccountSnapshot(account common.Address) (*uint256.Int, *uint256.Int, fixedmath.Exp, error) {
	if l.snapshotErr != nil {
		return nil, nil, fixedmath.Exp{}, l.snapshotErr
	}
	return l.amount(l.balances, account), l.amount(l.borrows, account), l.rate.Clone(), nil
}

func (l *mockLedger) TotalSupply() *uint256.Int { return new(uint256.Int).Set(l.totalSupply) }

func (l *mockLedger) TotalBorrows() *uint256.Int { return new(uint256.Int).Set(l.totalBorrows) }

func (l *mockLedger) BorrowIndex() fixedmath.Exp { return l.index.Clone() }

func (l *mockLedger) ExchangeRateStored() fixedmath.Exp { return l.rate.Clone() }

func (l *mockLedger) BalanceOf(account common.Address) *uint256.Int {
	return l.amount(l.balances, account)
}

func (l *mockLedger) BorrowBalanceStored(account common.Address) *uint256.Int {
	return l.amount(l.borrows, account)
}

type mockLedgers map[common.Address]*mockLedger

func (m mockLedgers) Ledger(market common.Address) MarketLedger {
	if ledger, ok := m[market]; ok {
		return ledger
	}
	return nil
}

type mockOracle struct {
	prices map[common.Address]fixedmath.Exp
}

func (o *mockOracle) GetUnderlyingPrice(market common.Address) fixedmath.Exp {
	if price, ok := o.prices[market]; ok {
		return price.Clone()
	}
	return fixedmath.ZeroExp()
}

type distKey struct {
	market  common.Address
	account common.Address
}

type mockRewards struct {
	supplyAccruals  map[common.Address]int
	borrowAccruals  map[common.Address]int
	supplierCredits map[distKey]int
	borrowerCredits map[distKey]int
}

func newMockRewards() *mockRewards {
	return &mockRewards{
		supplyAccruals:  make(map[common.Address]int),
		borrowAccruals:  make(map[common.Address]int),
		supplierCredits: make(map[distKey]int),
		borrowerCredits: make(map[distKey]int),
	}
}

func (r *mockRewards) AccrueSupply(market common.Address) error {
	r.supplyAccruals[market]++
	return nil
}

func (r *mockRewards) AccrueBorrow(market common.Address) error {
	r.borrowAccruals[market]++
	return nil
}

func (r *mockRewards) DistributeSupplier(market, account common.Address) error {
	r.supplierCredits[distKey{market, account}]++
	return nil
}

func (r *mockRewards) DistributeBorrower(market, account common.Address) error {
	r.borrowerCredits[distKey{market, account}]++
	return nil
}

type mockStableDebts map[common.Address]*uint256.Int

func (m mockStableDebts) DebtOf(account common.Address) (*uint256.Int, error) {
	if debt, ok := m[account]; ok {
		return new(uint256.Int).Set(debt), nil
	}
	return nil, nil
}

type riskFixture struct {
	engine  *Engine
	state   *memState
	ledgers mockLedgers
	oracle  *mockOracle
	rewards *mockRewards
}

func newRiskFixture() *riskFixture {
	f := &riskFixture{
		state:   newMemState(),
		ledgers: make(mockLedgers),
		oracle:  &mockOracle{prices: make(map[common.Address]fixedmath.Exp)},
		rewards: newMockRewards(),
	}
	engine := NewEngine()
	engine.SetState(f.state)
	engine.SetLedgerSource(f.ledgers)
	engine.SetOracle(f.oracle)
	engine.SetRewards(f.rewards)
	f.engine = engine
	return f
}

// listMarket supports a market with a ledger at a 1:1 exchange rate, an
// oracle price, and an optional collateral factor, all in basis points.
func (f *riskFixture) listMarket(t *testing.T, market common.Address, priceBps, collateralBps uint64) *mockLedger {
	t.Helper()
	if err := f.engine.SupportMarket(market); err != nil {
		t.Fatalf("support market %s: %v", market.Hex(), err)
	}
	ledger := newMockLedger()
	f.ledgers[market] = ledger
	if priceBps > 0 {
		f.oracle.prices[market] = fixedmath.ExpFromBps(priceBps)
	}
	if collateralBps > 0 {
		if err := f.engine.SetCollateralFactor(market, fixedmath.ExpFromBps(collateralBps)); err != nil {
			t.Fatalf("set collateral factor: %v", err)
		}
	}
	return ledger
}

func (f *riskFixture) enter(t *testing.T, account, market common.Address) {
	t.Helper()
	if err := f.engine.EnterMarket(account, market); err != nil {
		t.Fatalf("enter market %s: %v", market.Hex(), err)
	}
}

func addr(b byte) common.Address {
	return common.BytesToAddress([]byte{b})
}

func TestSetCloseFactorBounds(t *testing.T) {
	engine := NewEngine()
	if err := engine.SetCloseFactor(fixedmath.ExpFromBps(500)); !errors.Is(err, ErrInvalidCloseFactor) {
		t.Fatalf("expected ErrInvalidCloseFactor at the exclusive minimum, got %v", err)
	}
	if err := engine.SetCloseFactor(fixedmath.ExpFromBps(9_500)); !errors.Is(err, ErrInvalidCloseFactor) {
		t.Fatalf("expected ErrInvalidCloseFactor above the maximum, got %v", err)
	}
	if err := engine.SetCloseFactor(fixedmath.ExpFromBps(9_000)); err != nil {
		t.Fatalf("expected 0.9 to be accepted, got %v", err)
	}
	if err := engine.SetCloseFactor(fixedmath.ExpFromBps(501)); err != nil {
		t.Fatalf("expected a value just above the minimum to be accepted, got %v", err)
	}
}

func TestSetLiquidationIncentiveBounds(t *testing.T) {
	engine := NewEngine()
	if err := engine.SetLiquidationIncentive(fixedmath.ExpFromBps(9_999)); !errors.Is(err, ErrInvalidLiquidationIncentive) {
		t.Fatalf("expected rejection below 1.0, got %v", err)
	}
	if err := engine.SetLiquidationIncentive(fixedmath.ExpFromBps(15_001)); !errors.Is(err, ErrInvalidLiquidationIncentive) {
		t.Fatalf("expected rejection above 1.5, got %v", err)
	}
	if err := engine.SetLiquidationIncentive(fixedmath.ExpFromBps(10_000)); err != nil {
		t.Fatalf("expected 1.0 to be accepted, got %v", err)
	}
	if err := engine.SetLiquidationIncentive(fixedmath.ExpFromBps(15_000)); err != nil {
		t.Fatalf("expected 1.5 to be accepted, got %v", err)
	}
}

func TestSetMaxAssetsRejectsNonPositive(t *testing.T) {
	engine := NewEngine()
	if err := engine.SetMaxAssets(0); !errors.Is(err, ErrInvalidMaxAssets) {
		t.Fatalf("expected ErrInvalidMaxAssets, got %v", err)
	}
	if err := engine.SetMaxAssets(4); err != nil {
		t.Fatalf("set max assets: %v", err)
	}
}
