package state

import (
	"errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"vexchain/core/types"
	"vexchain/crypto"
	"vexchain/native/amm"
	"vexchain/native/oracle"
	"vexchain/native/policy"
	"vexchain/native/savings"
	"vexchain/native/vault"
	"vexchain/storage"
)

// Manager provides typed access to every persisted economy record. Records
// are rlp-encoded and stored under keccak-hashed, prefixed keys; the
// backing store only needs get/insert semantics.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

var (
	ammPoolKey      = ethcrypto.Keccak256([]byte("economy/amm-pool"))
	vaultGlobalsKey = ethcrypto.Keccak256([]byte("economy/vault-globals"))
	debtIndexKey    = ethcrypto.Keccak256([]byte("economy/debt-index"))
	savingsPoolKey  = ethcrypto.Keccak256([]byte("economy/savings-pool"))
	oracleKey       = ethcrypto.Keccak256([]byte("economy/oracle"))
	policyKey       = ethcrypto.Keccak256([]byte("economy/policy"))

	accountPrefix = []byte("economy/account:")
	vaultPrefix   = []byte("economy/vault:")
	savingsPrefix = []byte("economy/savings:")
)

func prefixedKey(prefix, suffix []byte) []byte {
	buf := make([]byte, len(prefix)+len(suffix))
	copy(buf, prefix)
	copy(buf[len(prefix):], suffix)
	return ethcrypto.Keccak256(buf)
}

func (m *Manager) load(key []byte, out interface{}) (bool, error) {
	data, err := m.db.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, fmt.Errorf("state: decode record: %w", err)
	}
	return true, nil
}

func (m *Manager) store(key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("state: encode record: %w", err)
	}
	return m.db.Put(key, encoded)
}

// AmmPool loads the pool record, or nil before bootstrap.
func (m *Manager) AmmPool() (*amm.Pool, error) {
	pool := new(amm.Pool)
	ok, err := m.load(ammPoolKey, pool)
	if err != nil || !ok {
		return nil, err
	}
	return pool, nil
}

func (m *Manager) PutAmmPool(pool *amm.Pool) error {
	return m.store(ammPoolKey, pool)
}

// Vault loads the account's vault record, or nil when never created.
func (m *Manager) Vault(addr crypto.Address) (*vault.Vault, error) {
	v := new(vault.Vault)
	ok, err := m.load(prefixedKey(vaultPrefix, addr.Bytes()), v)
	if err != nil || !ok {
		return nil, err
	}
	return v, nil
}

func (m *Manager) PutVault(addr crypto.Address, v *vault.Vault) error {
	return m.store(prefixedKey(vaultPrefix, addr.Bytes()), v)
}

// VaultGlobals loads the pool-wide vault counters, or nil when unset.
func (m *Manager) VaultGlobals() (*vault.Globals, error) {
	g := new(vault.Globals)
	ok, err := m.load(vaultGlobalsKey, g)
	if err != nil || !ok {
		return nil, err
	}
	return g, nil
}

func (m *Manager) PutVaultGlobals(g *vault.Globals) error {
	return m.store(vaultGlobalsKey, g)
}

// DebtIndex loads the bounded largest-debtors index.
func (m *Manager) DebtIndex() ([]vault.DebtEntry, error) {
	var entries []vault.DebtEntry
	ok, err := m.load(debtIndexKey, &entries)
	if err != nil || !ok {
		return nil, err
	}
	return entries, nil
}

func (m *Manager) PutDebtIndex(entries []vault.DebtEntry) error {
	return m.store(debtIndexKey, entries)
}

// SavingsPool loads the singleton savings ledger, or nil when unset.
func (m *Manager) SavingsPool() (*savings.Pool, error) {
	pool := new(savings.Pool)
	ok, err := m.load(savingsPoolKey, pool)
	if err != nil || !ok {
		return nil, err
	}
	return pool, nil
}

func (m *Manager) PutSavingsPool(pool *savings.Pool) error {
	return m.store(savingsPoolKey, pool)
}

// SavingsBalance loads the account's savings position, or nil when unset.
func (m *Manager) SavingsBalance(addr crypto.Address) (*savings.Balance, error) {
	balance := new(savings.Balance)
	ok, err := m.load(prefixedKey(savingsPrefix, addr.Bytes()), balance)
	if err != nil || !ok {
		return nil, err
	}
	return balance, nil
}

func (m *Manager) PutSavingsBalance(addr crypto.Address, balance *savings.Balance) error {
	return m.store(prefixedKey(savingsPrefix, addr.Bytes()), balance)
}

// OracleState loads the latest pushed price, or nil when never set.
func (m *Manager) OracleState() (*oracle.State, error) {
	s := new(oracle.State)
	ok, err := m.load(oracleKey, s)
	if err != nil || !ok {
		return nil, err
	}
	return s, nil
}

func (m *Manager) PutOracleState(s *oracle.State) error {
	return m.store(oracleKey, s)
}

// Policy loads the governed risk configuration, or nil when no override
// has been written yet.
func (m *Manager) Policy() (*policy.State, error) {
	s := new(policy.State)
	ok, err := m.load(policyKey, s)
	if err != nil || !ok {
		return nil, err
	}
	return s, nil
}

func (m *Manager) PutPolicy(s *policy.State) error {
	return m.store(policyKey, s)
}

// GetAccount loads the account record, or nil when the address has never
// been touched.
func (m *Manager) GetAccount(addr crypto.Address) (*types.Account, error) {
	acc := new(types.Account)
	ok, err := m.load(prefixedKey(accountPrefix, addr.Bytes()), acc)
	if err != nil || !ok {
		return nil, err
	}
	return acc, nil
}

func (m *Manager) PutAccount(addr crypto.Address, acc *types.Account) error {
	return m.store(prefixedKey(accountPrefix, addr.Bytes()), acc)
}
