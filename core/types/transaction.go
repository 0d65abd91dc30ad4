package types

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/jbino85/techgnosis/common"
)

// Transaction type tags. The tag is the first byte of the canonical encoding
// and must never be renumbered.
const (
	DeployTxType           = byte(0x00)
	CallTxType             = byte(0x01)
	TransferTxType         = byte(0x02)
	GovernanceTxType       = byte(0x03)
	InheritanceClaimTxType = byte(0x04)
)

var (
	ErrTxTypeNotSupported = errors.New("types: transaction type not supported")
	ErrShortTxData        = errors.New("types: transaction encoding too short")
)

// Transaction wraps one of the five transaction payloads. The canonical
// encoding is the type tag followed by the RLP encoding of the payload;
// the SHA-256 of those bytes is the transaction hash.
type Transaction struct {
	inner txData

	// cache of the canonical hash
	hash atomic.Pointer[common.Hash]
}

// txData is implemented by every transaction payload.
type txData interface {
	txType() byte
	copy() txData

	sender() string
	nonce() uint64
	gas() uint64
}

// NewTx wraps a payload in a Transaction.
func NewTx(inner txData) *Transaction {
	return &Transaction{inner: inner.copy()}
}

// Type returns the transaction type tag.
func (tx *Transaction) Type() byte { return tx.inner.txType() }

// Sender returns the address paying for and authorizing the transaction.
func (tx *Transaction) Sender() string { return tx.inner.sender() }

// Nonce returns the sender nonce carried for replay protection.
func (tx *Transaction) Nonce() uint64 { return tx.inner.nonce() }

// Gas returns the gas budget; zero for kinds that carry none.
func (tx *Transaction) Gas() uint64 { return tx.inner.gas() }

// Hash returns the SHA-256 of the canonical encoding. The result is cached.
func (tx *Transaction) Hash() common.Hash {
	if h := tx.hash.Load(); h != nil {
		return *h
	}
	enc, err := tx.MarshalBinary()
	if err != nil {
		// Payloads are plain structs; encoding cannot fail for a
		// transaction built through NewTx or DecodeTx.
		panic(fmt.Sprintf("types: hashing transaction: %v", err))
	}
	h := common.Hash(sha256.Sum256(enc))
	tx.hash.Store(&h)
	return h
}

// MarshalBinary returns the canonical encoding: tag byte || RLP(payload).
func (tx *Transaction) MarshalBinary() ([]byte, error) {
	body, err := rlp.EncodeToBytes(tx.inner)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, 1+len(body))
	out = append(out, tx.inner.txType())
	return append(out, body...), nil
}

// UnmarshalBinary decodes a canonical transaction encoding.
func (tx *Transaction) UnmarshalBinary(b []byte) error {
	if len(b) < 2 {
		return ErrShortTxData
	}
	var inner txData
	switch b[0] {
	case DeployTxType:
		inner = new(DeployTx)
	case CallTxType:
		inner = new(CallTx)
	case TransferTxType:
		inner = new(TransferTx)
	case GovernanceTxType:
		inner = new(GovernanceTx)
	case InheritanceClaimTxType:
		inner = new(InheritanceClaimTx)
	default:
		return fmt.Errorf("%w: tag 0x%02x", ErrTxTypeNotSupported, b[0])
	}
	if err := rlp.DecodeBytes(b[1:], inner); err != nil {
		return err
	}
	tx.inner = inner
	tx.hash.Store(nil)
	return nil
}

// DecodeTx decodes a canonical transaction encoding into a fresh Transaction.
func DecodeTx(b []byte) (*Transaction, error) {
	tx := new(Transaction)
	if err := tx.UnmarshalBinary(b); err != nil {
		return nil, err
	}
	return tx, nil
}

// EncodeRLP writes the canonical encoding as an RLP byte string, so that
// transactions nest inside larger RLP structures (blocks, wire messages).
func (tx *Transaction) EncodeRLP(w io.Writer) error {
	enc, err := tx.MarshalBinary()
	if err != nil {
		return err
	}
	return rlp.Encode(w, enc)
}

// DecodeRLP decodes a transaction from an RLP byte string.
func (tx *Transaction) DecodeRLP(s *rlp.Stream) error {
	b, err := s.Bytes()
	if err != nil {
		return err
	}
	return tx.UnmarshalBinary(b)
}

// The typed payload accessors below return the wrapped payload when the
// transaction is of the matching kind. The returned payload is shared with
// the transaction and must be treated as read-only.

func (tx *Transaction) AsDeploy() (*DeployTx, bool) {
	p, ok := tx.inner.(*DeployTx)
	return p, ok
}

func (tx *Transaction) AsCall() (*CallTx, bool) {
	p, ok := tx.inner.(*CallTx)
	return p, ok
}

func (tx *Transaction) AsTransfer() (*TransferTx, bool) {
	p, ok := tx.inner.(*TransferTx)
	return p, ok
}

func (tx *Transaction) AsGovernance() (*GovernanceTx, bool) {
	p, ok := tx.inner.(*GovernanceTx)
	return p, ok
}

func (tx *Transaction) AsInheritanceClaim() (*InheritanceClaimTx, bool) {
	p, ok := tx.inner.(*InheritanceClaimTx)
	return p, ok
}

// DeployTx deploys smart-contract bytecode.
type DeployTx struct {
	Bytecode []byte
	Sender   string
	Gas      uint64
	Nonce    uint64
}

func (tx *DeployTx) txType() byte   { return DeployTxType }
func (tx *DeployTx) sender() string { return tx.Sender }
func (tx *DeployTx) nonce() uint64  { return tx.Nonce }
func (tx *DeployTx) gas() uint64    { return tx.Gas }

func (tx *DeployTx) copy() txData {
	return &DeployTx{
		Bytecode: common.CopyBytes(tx.Bytecode),
		Sender:   tx.Sender,
		Gas:      tx.Gas,
		Nonce:    tx.Nonce,
	}
}

// CallTx invokes a function on a deployed contract.
type CallTx struct {
	Contract string
	Function string
	Args     [][]byte
	Sender   string
	Gas      uint64
	Nonce    uint64
}

func (tx *CallTx) txType() byte   { return CallTxType }
func (tx *CallTx) sender() string { return tx.Sender }
func (tx *CallTx) nonce() uint64  { return tx.Nonce }
func (tx *CallTx) gas() uint64    { return tx.Gas }

func (tx *CallTx) copy() txData {
	cpy := &CallTx{
		Contract: tx.Contract,
		Function: tx.Function,
		Args:     make([][]byte, len(tx.Args)),
		Sender:   tx.Sender,
		Gas:      tx.Gas,
		Nonce:    tx.Nonce,
	}
	for i, a := range tx.Args {
		cpy.Args[i] = common.CopyBytes(a)
	}
	return cpy
}

// TransferTx moves ase between two accounts.
type TransferTx struct {
	From   string
	To     string
	Amount uint64
	Nonce  uint64
}

func (tx *TransferTx) txType() byte   { return TransferTxType }
func (tx *TransferTx) sender() string { return tx.From }
func (tx *TransferTx) nonce() uint64  { return tx.Nonce }
func (tx *TransferTx) gas() uint64    { return 0 }

func (tx *TransferTx) copy() txData {
	cpy := *tx
	return &cpy
}

// GovernanceTx carries a council governance proposal. Action is a JSON
// action envelope dispatched through the gov registry at finalization.
type GovernanceTx struct {
	ProposalID string
	Action     []byte
	Proposer   string
	Nonce      uint64
}

func (tx *GovernanceTx) txType() byte   { return GovernanceTxType }
func (tx *GovernanceTx) sender() string { return tx.Proposer }
func (tx *GovernanceTx) nonce() uint64  { return tx.Nonce }
func (tx *GovernanceTx) gas() uint64    { return 0 }

func (tx *GovernanceTx) copy() txData {
	return &GovernanceTx{
		ProposalID: tx.ProposalID,
		Action:     common.CopyBytes(tx.Action),
		Proposer:   tx.Proposer,
		Nonce:      tx.Nonce,
	}
}

// InheritanceClaimTx claims one of the inheritance wallets.
type InheritanceClaimTx struct {
	WalletID uint16
	Claimant string
	Nonce    uint64
}

func (tx *InheritanceClaimTx) txType() byte   { return InheritanceClaimTxType }
func (tx *InheritanceClaimTx) sender() string { return tx.Claimant }
func (tx *InheritanceClaimTx) nonce() uint64  { return tx.Nonce }
func (tx *InheritanceClaimTx) gas() uint64    { return 0 }

func (tx *InheritanceClaimTx) copy() txData {
	cpy := *tx
	return &cpy
}

// Transactions is a list of transactions.
type Transactions []*Transaction

// Len returns the number of transactions in the list.
func (txs Transactions) Len() int { return len(txs) }
