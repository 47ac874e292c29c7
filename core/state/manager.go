// Package state persists the risk, flywheel, and stable module state in a
// key-value store. Rows are RLP encoded under keccak-hashed namespaced keys;
// a missing row reads back as the module's zero value.
package state

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"hesper/native/fixedmath"
	"hesper/native/flywheel"
	"hesper/native/risk"
	"hesper/storage"
)

// Manager is the single persistence surface shared by the engines. It is
// not safe for concurrent use; callers serialize access the same way block
// processing serializes state transitions.
type Manager struct {
	db storage.Database
}

// NewManager wraps a key-value backend.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func (m *Manager) load(key []byte, out interface{}) (bool, error) {
	data, err := m.db.Get(key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, fmt.Errorf("state: decode %T: %w", out, err)
	}
	return true, nil
}

func (m *Manager) store(key []byte, value interface{}) error {
	data, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("state: encode %T: %w", value, err)
	}
	return m.db.Put(key, data)
}

func (m *Manager) loadUint(key []byte) (*uint256.Int, error) {
	value := new(uint256.Int)
	ok, err := m.load(key, value)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return value, nil
}

func (m *Manager) storeUint(key []byte, value *uint256.Int) error {
	if value == nil || value.IsZero() {
		return m.db.Delete(key)
	}
	return m.store(key, value)
}

func (m *Manager) loadDouble(key []byte) (fixedmath.Double, error) {
	mantissa, err := m.loadUint(key)
	if err != nil {
		return fixedmath.ZeroDouble(), err
	}
	if mantissa == nil {
		return fixedmath.ZeroDouble(), nil
	}
	return fixedmath.NewDouble(mantissa), nil
}

// --- Market registry ---

// GetMarket loads market metadata, or nil when the market was never listed.
func (m *Manager) GetMarket(market common.Address) (*risk.Market, error) {
	row := new(risk.Market)
	ok, err := m.load(addrKey(marketPrefix, market), row)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return row, nil
}

// PutMarket stores market metadata.
func (m *Manager) PutMarket(market common.Address, meta *risk.Market) error {
	if meta == nil {
		return errors.New("state: nil market")
	}
	return m.store(addrKey(marketPrefix, market), meta)
}

// AllMarkets returns every market address ever listed, in listing order.
func (m *Manager) AllMarkets() ([]common.Address, error) {
	var list []common.Address
	if _, err := m.load(singletonKey(marketListPrefix), &list); err != nil {
		return nil, err
	}
	return list, nil
}

// AppendAllMarkets adds a market to the all-markets sequence.
func (m *Manager) AppendAllMarkets(market common.Address) error {
	list, err := m.AllMarkets()
	if err != nil {
		return err
	}
	list = append(list, market)
	return m.store(singletonKey(marketListPrefix), list)
}

// --- Memberships ---

// IsMember reports whether the account has entered the market.
func (m *Manager) IsMember(account, market common.Address) (bool, error) {
	_, err := m.db.Get(pairKey(memberFlagPrefix, account, market))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Memberships returns the markets the account has entered, in entry order.
func (m *Manager) Memberships(account common.Address) ([]common.Address, error) {
	var list []common.Address
	if _, err := m.load(addrKey(memberListPrefix, account), &list); err != nil {
		return nil, err
	}
	return list, nil
}

// AddMembership records the account as a member of the market. Adding an
// existing membership is a no-op, so the flag and the list stay in step.
func (m *Manager) AddMembership(account, market common.Address) error {
	member, err := m.IsMember(account, market)
	if err != nil {
		return err
	}
	if member {
		return nil
	}
	list, err := m.Memberships(account)
	if err != nil {
		return err
	}
	list = append(list, market)
	if err := m.store(addrKey(memberListPrefix, account), list); err != nil {
		return err
	}
	return m.db.Put(pairKey(memberFlagPrefix, account, market), []byte{1})
}

// RemoveMembership drops the account's membership in the market. The flag
// and the list are maintained together; a set flag without a matching list
// entry means the store is corrupt, which is unrecoverable.
func (m *Manager) RemoveMembership(account, market common.Address) error {
	member, err := m.IsMember(account, market)
	if err != nil {
		return err
	}
	if !member {
		return nil
	}
	list, err := m.Memberships(account)
	if err != nil {
		return err
	}
	found := -1
	for i, entry := range list {
		if entry == market {
			found = i
			break
		}
	}
	if found < 0 {
		panic(fmt.Sprintf("state: membership flag set for %s in %s but market missing from list", account.Hex(), market.Hex()))
	}
	list[found] = list[len(list)-1]
	list = list[:len(list)-1]
	if len(list) == 0 {
		if err := m.db.Delete(addrKey(memberListPrefix, account)); err != nil {
			return err
		}
	} else if err := m.store(addrKey(memberListPrefix, account), list); err != nil {
		return err
	}
	return m.db.Delete(pairKey(memberFlagPrefix, account, market))
}

// --- Flywheel ---

// RewardState loads a market's reward index pair, or nil when the market has
// never accrued.
func (m *Manager) RewardState(market common.Address) (*flywheel.MarketRewardState, error) {
	row := new(flywheel.MarketRewardState)
	ok, err := m.load(addrKey(rewardStatePrefix, market), row)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return row, nil
}

// PutRewardState stores a market's reward index pair.
func (m *Manager) PutRewardState(market common.Address, state *flywheel.MarketRewardState) error {
	if state == nil {
		return errors.New("state: nil reward state")
	}
	return m.store(addrKey(rewardStatePrefix, market), state)
}

// Speed loads a market's emission speed, or nil when unset.
func (m *Manager) Speed(market common.Address) (*uint256.Int, error) {
	return m.loadUint(addrKey(speedPrefix, market))
}

// PutSpeed stores a market's emission speed. A nil or zero speed clears the
// row.
func (m *Manager) PutSpeed(market common.Address, speed *uint256.Int) error {
	return m.storeUint(addrKey(speedPrefix, market), speed)
}

// SupplierIndex loads a supplier's last-seen supply index for the market.
func (m *Manager) SupplierIndex(market, account common.Address) (fixedmath.Double, error) {
	return m.loadDouble(pairKey(supplierIndexPrefix, market, account))
}

// PutSupplierIndex stores a supplier's index snapshot.
func (m *Manager) PutSupplierIndex(market, account common.Address, index fixedmath.Double) error {
	return m.store(pairKey(supplierIndexPrefix, market, account), index.Mantissa)
}

// BorrowerIndex loads a borrower's last-seen borrow index for the market.
func (m *Manager) BorrowerIndex(market, account common.Address) (fixedmath.Double, error) {
	return m.loadDouble(pairKey(borrowerIndexPrefix, market, account))
}

// PutBorrowerIndex stores a borrower's index snapshot.
func (m *Manager) PutBorrowerIndex(market, account common.Address, index fixedmath.Double) error {
	return m.store(pairKey(borrowerIndexPrefix, market, account), index.Mantissa)
}

// Accrued loads an account's earned-but-unpaid reward balance, or nil when
// nothing has accrued.
func (m *Manager) Accrued(account common.Address) (*uint256.Int, error) {
	return m.loadUint(addrKey(accruedPrefix, account))
}

// PutAccrued stores an account's accrued balance. Nil or zero clears the
// row, which is how a successful claim resets the account.
func (m *Manager) PutAccrued(account common.Address, amount *uint256.Int) error {
	return m.storeUint(addrKey(accruedPrefix, account), amount)
}

// StableMintState loads the stable minter reward track, or nil when it has
// never accrued.
func (m *Manager) StableMintState() (*flywheel.MintRewardState, error) {
	row := new(flywheel.MintRewardState)
	ok, err := m.load(singletonKey(stableMintPrefix), row)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return row, nil
}

// PutStableMintState stores the stable minter reward track.
func (m *Manager) PutStableMintState(state *flywheel.MintRewardState) error {
	if state == nil {
		return errors.New("state: nil stable mint state")
	}
	return m.store(singletonKey(stableMintPrefix), state)
}

// MinterIndex loads a minter's last-seen stable reward index.
func (m *Manager) MinterIndex(account common.Address) (fixedmath.Double, error) {
	return m.loadDouble(addrKey(minterIndexPrefix, account))
}

// PutMinterIndex stores a minter's index snapshot.
func (m *Manager) PutMinterIndex(account common.Address, index fixedmath.Double) error {
	return m.store(addrKey(minterIndexPrefix, account), index.Mantissa)
}

// VaultState loads the vault release schedule, or nil when unconfigured.
func (m *Manager) VaultState() (*flywheel.VaultReleaseState, error) {
	row := new(flywheel.VaultReleaseState)
	ok, err := m.load(singletonKey(vaultPrefix), row)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return row, nil
}

// PutVaultState stores the vault release schedule.
func (m *Manager) PutVaultState(state *flywheel.VaultReleaseState) error {
	if state == nil {
		return errors.New("state: nil vault state")
	}
	return m.store(singletonKey(vaultPrefix), state)
}

// --- Stable debt ---

// StableDebt loads an account's outstanding stable-asset debt, or nil when
// the account has never minted.
func (m *Manager) StableDebt(account common.Address) (*uint256.Int, error) {
	return m.loadUint(addrKey(stableDebtPrefix, account))
}

// PutStableDebt stores an account's stable-asset debt. Nil or zero clears
// the row.
func (m *Manager) PutStableDebt(account common.Address, amount *uint256.Int) error {
	return m.storeUint(addrKey(stableDebtPrefix, account), amount)
}
