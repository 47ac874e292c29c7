// Package bank provides in-process implementations of the external
// collaborators the engines consume: per-market token ledgers, a price
// oracle, the reward token, and the stable-asset controller. The daemon
// wires these for single-process deployments; an integration replaces them
// with adapters onto its own ledgers.
package bank

import (
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"hesper/native/fixedmath"
)

var (
	// ErrInsufficientBalance is returned when a burn exceeds the account's
	// stable-asset balance.
	ErrInsufficientBalance = errors.New("bank: insufficient balance")
)

// Ledger is an in-memory token ledger for one market. All amounts are base
// units; the exchange rate and borrow index are 1e18-scale.
type Ledger struct {
	mu           sync.RWMutex
	exchangeRate fixedmath.Exp
	borrowIndex  fixedmath.Exp
	totalSupply  *uint256.Int
	totalBorrows *uint256.Int
	balances     map[common.Address]*uint256.Int
	borrows      map[common.Address]*uint256.Int
}

// NewLedger returns an empty ledger with the exchange rate and borrow index
// both at one.
func NewLedger() *Ledger {
	return &Ledger{
		exchangeRate: fixedmath.OneExp(),
		borrowIndex:  fixedmath.OneExp(),
		totalSupply:  uint256.NewInt(0),
		totalBorrows: uint256.NewInt(0),
		balances:     make(map[common.Address]*uint256.Int),
		borrows:      make(map[common.Address]*uint256.Int),
	}
}

// SetExchangeRate replaces the stored exchange rate.
func (l *Ledger) SetExchangeRate(rate fixedmath.Exp) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.exchangeRate = rate.Clone()
}

// SetBorrowIndex replaces the stored borrow index.
func (l *Ledger) SetBorrowIndex(index fixedmath.Exp) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.borrowIndex = index.Clone()
}

// Credit adds tokens to the account and to the total supply.
func (l *Ledger) Credit(account common.Address, amount *uint256.Int) {
	if amount == nil || amount.IsZero() {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] = add(l.balances[account], amount)
	l.totalSupply = add(l.totalSupply, amount)
}

// Debit removes tokens from the account and the total supply, clamping at
// the account balance.
func (l *Ledger) Debit(account common.Address, amount *uint256.Int) {
	if amount == nil || amount.IsZero() {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	actual := clamp(amount, l.balances[account])
	l.balances[account] = sub(l.balances[account], actual)
	l.totalSupply = sub(l.totalSupply, actual)
}

// AddBorrow records new borrowing for the account.
func (l *Ledger) AddBorrow(account common.Address, amount *uint256.Int) {
	if amount == nil || amount.IsZero() {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.borrows[account] = add(l.borrows[account], amount)
	l.totalBorrows = add(l.totalBorrows, amount)
}

// RepayBorrow reduces the account's borrow balance, clamping at the
// outstanding amount.
func (l *Ledger) RepayBorrow(account common.Address, amount *uint256.Int) {
	if amount == nil || amount.IsZero() {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	actual := clamp(amount, l.borrows[account])
	l.borrows[account] = sub(l.borrows[account], actual)
	l.totalBorrows = sub(l.totalBorrows, actual)
}

// AccountSnapshot returns the account's token balance, borrow balance, and
// the stored exchange rate in one consistent read.
func (l *Ledger) AccountSnapshot(account common.Address) (*uint256.Int, *uint256.Int, fixedmath.Exp, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return copyAmount(l.balances[account]), copyAmount(l.borrows[account]), l.exchangeRate.Clone(), nil
}

// TotalSupply returns the outstanding token supply.
func (l *Ledger) TotalSupply() *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return copyAmount(l.totalSupply)
}

// TotalBorrows returns the outstanding borrow total.
func (l *Ledger) TotalBorrows() *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return copyAmount(l.totalBorrows)
}

// BorrowIndex returns the stored borrow index.
func (l *Ledger) BorrowIndex() fixedmath.Exp {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.borrowIndex.Clone()
}

// ExchangeRateStored returns the stored exchange rate.
func (l *Ledger) ExchangeRateStored() fixedmath.Exp {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.exchangeRate.Clone()
}

// BalanceOf returns the account's token balance.
func (l *Ledger) BalanceOf(account common.Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return copyAmount(l.balances[account])
}

// BorrowBalanceStored returns the account's borrow balance.
func (l *Ledger) BorrowBalanceStored(account common.Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return copyAmount(l.borrows[account])
}

// Set resolves ledgers by market address.
type Set struct {
	mu      sync.RWMutex
	ledgers map[common.Address]*Ledger
}

// NewSet returns an empty ledger set.
func NewSet() *Set {
	return &Set{ledgers: make(map[common.Address]*Ledger)}
}

// Add registers a fresh ledger for the market and returns it. Adding an
// existing market returns the ledger already registered.
func (s *Set) Add(market common.Address) *Ledger {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ledger, ok := s.ledgers[market]; ok {
		return ledger
	}
	ledger := NewLedger()
	s.ledgers[market] = ledger
	return ledger
}

// Get returns the market's ledger, or nil when unknown.
func (s *Set) Get(market common.Address) *Ledger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledgers[market]
}

// Oracle is a static price table. Prices are 1e18-scale; a missing market
// prices at zero, which consumers treat as unavailable.
type Oracle struct {
	mu     sync.RWMutex
	prices map[common.Address]fixedmath.Exp
}

// NewOracle returns an oracle with no prices posted.
func NewOracle() *Oracle {
	return &Oracle{prices: make(map[common.Address]fixedmath.Exp)}
}

// SetPrice posts a price for the market's underlying asset.
func (o *Oracle) SetPrice(market common.Address, price fixedmath.Exp) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.prices[market] = price.Clone()
}

// GetUnderlyingPrice returns the posted price, or zero when none exists.
func (o *Oracle) GetUnderlyingPrice(market common.Address) fixedmath.Exp {
	o.mu.RLock()
	defer o.mu.RUnlock()
	price, ok := o.prices[market]
	if !ok {
		return fixedmath.ZeroExp()
	}
	return price.Clone()
}

// Token is the reward token ledger. Transfers are always drawn from the
// treasury account, matching the authority the reward distributor holds.
type Token struct {
	mu       sync.Mutex
	treasury common.Address
	balances map[common.Address]*uint256.Int
}

// NewToken returns a reward token whose transfers draw from treasury.
func NewToken(treasury common.Address) *Token {
	return &Token{
		treasury: treasury,
		balances: make(map[common.Address]*uint256.Int),
	}
}

// Fund credits the treasury.
func (t *Token) Fund(amount *uint256.Int) {
	if amount == nil || amount.IsZero() {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balances[t.treasury] = add(t.balances[t.treasury], amount)
}

// BalanceOf returns the holder's balance.
func (t *Token) BalanceOf(holder common.Address) *uint256.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return copyAmount(t.balances[holder])
}

// Transfer moves amount from the treasury to the recipient. It reports
// false, moving nothing, when the treasury balance does not cover it.
func (t *Token) Transfer(to common.Address, amount *uint256.Int) bool {
	if amount == nil || amount.IsZero() {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	treasury := t.balances[t.treasury]
	if treasury == nil || treasury.Lt(amount) {
		return false
	}
	t.balances[t.treasury] = sub(treasury, amount)
	t.balances[to] = add(t.balances[to], amount)
	return true
}

// StableController is the mint/burn authority for the pegged stable asset.
type StableController struct {
	mu          sync.Mutex
	totalSupply *uint256.Int
	balances    map[common.Address]*uint256.Int
}

// NewStableController returns a controller with zero supply.
func NewStableController() *StableController {
	return &StableController{
		totalSupply: uint256.NewInt(0),
		balances:    make(map[common.Address]*uint256.Int),
	}
}

// Mint credits freshly issued stable units to the account.
func (c *StableController) Mint(account common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances[account] = add(c.balances[account], amount)
	c.totalSupply = add(c.totalSupply, amount)
	return nil
}

// Burn destroys stable units held by the account.
func (c *StableController) Burn(account common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	balance := c.balances[account]
	if balance == nil || balance.Lt(amount) {
		return ErrInsufficientBalance
	}
	c.balances[account] = sub(balance, amount)
	c.totalSupply = sub(c.totalSupply, amount)
	return nil
}

// TotalSupply returns the outstanding stable supply.
func (c *StableController) TotalSupply() *uint256.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyAmount(c.totalSupply)
}

// BalanceOf returns the account's stable balance.
func (c *StableController) BalanceOf(account common.Address) *uint256.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyAmount(c.balances[account])
}

// VaultSink counts release notifications from the reward distributor.
type VaultSink struct {
	mu            sync.Mutex
	notifications int
}

// NewVaultSink returns a sink with no notifications recorded.
func NewVaultSink() *VaultSink {
	return &VaultSink{}
}

// NotifyPendingRewardsChanged records one notification.
func (v *VaultSink) NotifyPendingRewardsChanged() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.notifications++
}

// Notifications returns how many releases have been signalled.
func (v *VaultSink) Notifications() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.notifications
}

func add(a, b *uint256.Int) *uint256.Int {
	if a == nil {
		a = uint256.NewInt(0)
	}
	return new(uint256.Int).Add(a, b)
}

func sub(a, b *uint256.Int) *uint256.Int {
	if a == nil {
		a = uint256.NewInt(0)
	}
	return new(uint256.Int).Sub(a, b)
}

func clamp(amount, limit *uint256.Int) *uint256.Int {
	if limit == nil || limit.IsZero() {
		return uint256.NewInt(0)
	}
	if amount.Gt(limit) {
		return new(uint256.Int).Set(limit)
	}
	return new(uint256.Int).Set(amount)
}

func copyAmount(value *uint256.Int) *uint256.Int {
	if value == nil {
		return uint256.NewInt(0)
	}
	return new(uint256.Int).Set(value)
}
