package state

import (
	"fmt"

	"github.com/jbino85/techgnosis/common"
	"github.com/jbino85/techgnosis/core/types"
)

// Overlay is a copy-on-write view used to apply a block as one logical
// transaction. Writes land in a scratch map; Commit folds them into the
// backing state and advances the tip. Dropping an uncommitted overlay
// reverts everything, so a failed finalize leaves the state untouched.
type Overlay struct {
	base     *StateDB
	dirty    map[string]*Account
	receipts []*types.Receipt
}

// NewOverlay opens a copy-on-write view over the state.
func (s *StateDB) NewOverlay() *Overlay {
	return &Overlay{
		base:  s,
		dirty: make(map[string]*Account),
	}
}

// account returns the scratch copy for address, pulling it from the base
// state on first touch. Returns nil for unknown addresses.
func (o *Overlay) account(address string) *Account {
	if acc, ok := o.dirty[address]; ok {
		return acc
	}
	base, ok := o.base.GetAccount(address)
	if !ok {
		return nil
	}
	o.dirty[address] = base
	return base
}

func (o *Overlay) getOrCreate(address string) *Account {
	if acc := o.account(address); acc != nil {
		return acc
	}
	acc := newAccount(address)
	o.dirty[address] = acc
	return acc
}

// GetAccount returns the overlay's view of an account.
func (o *Overlay) GetAccount(address string) (*Account, bool) {
	acc := o.account(address)
	if acc == nil {
		return nil, false
	}
	return acc, true
}

// Transfer moves amount inside the overlay.
func (o *Overlay) Transfer(from, to string, amount uint64) error {
	sender := o.account(from)
	if sender == nil {
		return fmt.Errorf("%w: account not found: %s", ErrInvalidStateTransition, from)
	}
	if sender.Balance < amount {
		return fmt.Errorf("%w: insufficient balance: %d < %d", ErrInvalidStateTransition, sender.Balance, amount)
	}
	sender.Balance -= amount
	o.getOrCreate(to).Balance += amount
	return nil
}

// DeployContract stores bytecode inside the overlay.
func (o *Overlay) DeployContract(address string, bytecode []byte) {
	o.getOrCreate(address).Code = common.CopyBytes(bytecode)
}

// BumpNonce increments the sender nonce inside the overlay.
func (o *Overlay) BumpNonce(address string) {
	o.getOrCreate(address).Nonce++
}

// AddReceipt stages a receipt for commit.
func (o *Overlay) AddReceipt(r *types.Receipt) {
	o.receipts = append(o.receipts, r)
}

// Commit folds the overlay into the backing state and advances the tip to
// blockHash. The overlay must not be used afterwards.
func (o *Overlay) Commit(blockHash common.Hash) {
	o.base.mu.Lock()
	defer o.base.mu.Unlock()
	for addr, acc := range o.dirty {
		o.base.accounts[addr] = acc
	}
	for _, r := range o.receipts {
		o.base.receipts[r.TxHash] = r
	}
	o.base.commitBlock(blockHash)
	o.dirty = nil
	o.receipts = nil
}
