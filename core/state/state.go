// Package state implements the in-memory world state: accounts, balances,
// nonces, contract code, and the block history. A persistence layer may
// snapshot it; the core itself keeps everything in memory.
package state

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/jbino85/techgnosis/common"
	"github.com/jbino85/techgnosis/core/types"
)

// ErrInvalidStateTransition is wrapped by every state-level rejection:
// missing accounts, nonce mismatches, insufficient balances, and empty
// recipients.
var ErrInvalidStateTransition = errors.New("state: invalid state transition")

// Account is a single world-state entry. An account is a contract iff Code
// is non-nil.
type Account struct {
	Address     string
	Balance     uint64
	Nonce       uint64
	Code        []byte
	StorageRoot common.Hash
}

func newAccount(address string) *Account {
	return &Account{Address: address}
}

// IsContract reports whether the account holds deployed code.
func (a *Account) IsContract() bool { return a.Code != nil }

// Copy returns a deep copy of the account.
func (a *Account) Copy() *Account {
	cpy := *a
	cpy.Code = common.CopyBytes(a.Code)
	return &cpy
}

// StateDB is the replicated world state. Reads may run concurrently;
// mutation happens under the write lock, and block application goes through
// an Overlay so a failed block leaves the state untouched.
type StateDB struct {
	mu sync.RWMutex

	accounts map[string]*Account
	height   uint64
	root     common.Hash
	history  map[uint64]common.Hash
	receipts map[common.Hash]*types.Receipt
}

// New returns an empty state at height zero.
func New() *StateDB {
	return &StateDB{
		accounts: make(map[string]*Account),
		history:  make(map[uint64]common.Hash),
		receipts: make(map[common.Hash]*types.Receipt),
	}
}

// GetAccount returns a copy of the account, if it exists.
func (s *StateDB) GetAccount(address string) (*Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[address]
	if !ok {
		return nil, false
	}
	return acc.Copy(), true
}

// GetOrCreateAccount returns a copy of the account, creating it with zero
// balance and nonce if it does not exist.
func (s *StateDB) GetOrCreateAccount(address string) *Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreate(address).Copy()
}

func (s *StateDB) getOrCreate(address string) *Account {
	acc, ok := s.accounts[address]
	if !ok {
		acc = newAccount(address)
		s.accounts[address] = acc
	}
	return acc
}

// SetBalance unconditionally sets an account balance. This is the
// administrative path used by genesis allocation and tests.
func (s *StateDB) SetBalance(address string, balance uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getOrCreate(address).Balance = balance
}

// Transfer moves amount from one account to another, creating the recipient
// if needed. Nonces are untouched: the finalize pipeline bumps them once per
// accepted transaction.
func (s *StateDB) Transfer(from, to string, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return transfer(s.accounts, from, to, amount)
}

// transfer is the balance move of the direct path; the overlay performs the
// same checks in Overlay.Transfer. accounts is mutated in place.
func transfer(accounts map[string]*Account, from, to string, amount uint64) error {
	sender, ok := accounts[from]
	if !ok {
		return fmt.Errorf("%w: account not found: %s", ErrInvalidStateTransition, from)
	}
	if sender.Balance < amount {
		return fmt.Errorf("%w: insufficient balance: %d < %d", ErrInvalidStateTransition, sender.Balance, amount)
	}
	sender.Balance -= amount
	recipient, ok := accounts[to]
	if !ok {
		recipient = newAccount(to)
		accounts[to] = recipient
	}
	recipient.Balance += amount
	return nil
}

// DeployContract stores bytecode on the account at address, creating it if
// needed.
func (s *StateDB) DeployContract(address string, bytecode []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getOrCreate(address).Code = common.CopyBytes(bytecode)
}

// CommitBlock advances the chain tip: height increments, the block hash is
// recorded in history, and the state root is recomputed over the account
// map.
func (s *StateDB) CommitBlock(blockHash common.Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitBlock(blockHash)
}

func (s *StateDB) commitBlock(blockHash common.Hash) {
	s.height++
	s.history[s.height] = blockHash
	s.root = hashAccounts(s.accounts)
}

// ValidateTx pre-flights a transaction against the current state. It is the
// shared gate used by the proposer before batching and by validators before
// voting.
func (s *StateDB) ValidateTx(tx *types.Transaction) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	checkSender := func(sender string, nonce uint64) (*Account, error) {
		acc, ok := s.accounts[sender]
		if !ok {
			return nil, fmt.Errorf("%w: account not found: %s", ErrInvalidStateTransition, sender)
		}
		if acc.Nonce != nonce {
			return nil, fmt.Errorf("%w: nonce mismatch: expected %d, got %d", ErrInvalidStateTransition, acc.Nonce, nonce)
		}
		return acc, nil
	}

	switch {
	case tx.Type() == types.TransferTxType:
		p, _ := tx.AsTransfer()
		acc, err := checkSender(p.From, p.Nonce)
		if err != nil {
			return err
		}
		if acc.Balance < p.Amount {
			return fmt.Errorf("%w: insufficient balance: %d < %d", ErrInvalidStateTransition, acc.Balance, p.Amount)
		}
		if p.To == "" {
			return fmt.Errorf("%w: recipient cannot be empty", ErrInvalidStateTransition)
		}
		return nil

	case tx.Type() == types.DeployTxType || tx.Type() == types.CallTxType:
		_, err := checkSender(tx.Sender(), tx.Nonce())
		return err

	default:
		// Governance and inheritance claims have no state pre-flight;
		// policy-level checks happen at finalization.
		return nil
	}
}

// Root returns the current state root.
func (s *StateDB) Root() common.Hash {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root
}

// Height returns the current block height.
func (s *StateDB) Height() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.height
}

// BlockHash returns the recorded hash for a finalized height.
func (s *StateDB) BlockHash(number uint64) (common.Hash, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.history[number]
	return h, ok
}

// HeadHash returns the hash of the chain tip, or the zero hash at genesis.
func (s *StateDB) HeadHash() common.Hash {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history[s.height]
}

// Receipt returns the recorded receipt for a transaction hash.
func (s *StateDB) Receipt(txHash common.Hash) (*types.Receipt, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.receipts[txHash]
	return r, ok
}

// AccountCount returns the number of accounts in the state.
func (s *StateDB) AccountCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}

// rlpAccount is the canonical wire form of an account used for the state
// root.
type rlpAccount struct {
	Address     string
	Balance     uint64
	Nonce       uint64
	HasCode     bool
	Code        []byte
	StorageRoot common.Hash
}

// hashAccounts computes the state root: SHA-256 over the RLP encoding of
// the accounts sorted by address ascending. The sort is what keeps peers
// with identical content on identical roots.
func hashAccounts(accounts map[string]*Account) common.Hash {
	addrs := make([]string, 0, len(accounts))
	for addr := range accounts {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	list := make([]rlpAccount, len(addrs))
	for i, addr := range addrs {
		acc := accounts[addr]
		list[i] = rlpAccount{
			Address:     acc.Address,
			Balance:     acc.Balance,
			Nonce:       acc.Nonce,
			HasCode:     acc.Code != nil,
			Code:        acc.Code,
			StorageRoot: acc.StorageRoot,
		}
	}
	enc, err := rlp.EncodeToBytes(list)
	if err != nil {
		panic(fmt.Sprintf("state: encoding accounts for root: %v", err))
	}
	return common.BytesToHash(sha256Sum(enc))
}

func sha256Sum(b []byte) []byte {
	sum := sha256.Sum256(b)
	return sum[:]
}
