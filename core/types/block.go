package types

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/jbino85/techgnosis/common"
	"github.com/jbino85/techgnosis/params"
)

// ErrInvalidStructure is wrapped by every structural block rejection.
var ErrInvalidStructure = errors.New("types: invalid block structure")

// Header is the block header. Signatures accumulate after proposal and are
// excluded from the header hash.
type Header struct {
	Number           uint64
	ParentHash       common.Hash
	Time             uint64 // milliseconds since epoch
	StateRoot        common.Hash
	TxRoot           common.Hash
	ValidatorSetHash uint64

	// Signatures maps validator address to an Ed25519 signature over the
	// header hash. Keys are unique by construction.
	Signatures map[string][]byte
}

// NewHeader builds a header with an empty signature map.
func NewHeader(number uint64, parent common.Hash, time uint64, stateRoot, txRoot common.Hash, vsetHash uint64) *Header {
	return &Header{
		Number:           number,
		ParentHash:       parent,
		Time:             time,
		StateRoot:        stateRoot,
		TxRoot:           txRoot,
		ValidatorSetHash: vsetHash,
		Signatures:       make(map[string][]byte),
	}
}

// Hash returns the SHA-256 of the little-endian encoding of
// number || parent || time || stateRoot || txRoot || validatorSetHash.
// Signatures never enter the hash, so it is stable while votes accumulate.
func (h *Header) Hash() common.Hash {
	var num [8]byte
	hasher := sha256.New()
	binary.LittleEndian.PutUint64(num[:], h.Number)
	hasher.Write(num[:])
	hasher.Write(h.ParentHash[:])
	binary.LittleEndian.PutUint64(num[:], h.Time)
	hasher.Write(num[:])
	hasher.Write(h.StateRoot[:])
	hasher.Write(h.TxRoot[:])
	binary.LittleEndian.PutUint64(num[:], h.ValidatorSetHash)
	hasher.Write(num[:])
	return common.BytesToHash(hasher.Sum(nil))
}

// AddSignature records a validator's signature over the header hash.
func (h *Header) AddSignature(validator string, sig []byte) {
	if h.Signatures == nil {
		h.Signatures = make(map[string][]byte)
	}
	h.Signatures[validator] = common.CopyBytes(sig)
}

// SignatureCount returns the number of distinct signers.
func (h *Header) SignatureCount() int { return len(h.Signatures) }

// Copy returns a deep copy of the header.
func (h *Header) Copy() *Header {
	cpy := *h
	cpy.Signatures = make(map[string][]byte, len(h.Signatures))
	for addr, sig := range h.Signatures {
		cpy.Signatures[addr] = common.CopyBytes(sig)
	}
	return &cpy
}

// headerSig is a single entry of the wire form of the signature map.
type headerSig struct {
	Validator string
	Sig       []byte
}

// extHeader is the wire representation of Header. The signature map is
// flattened into a list sorted by validator address so the encoding is
// deterministic across peers.
type extHeader struct {
	Number           uint64
	ParentHash       common.Hash
	Time             uint64
	StateRoot        common.Hash
	TxRoot           common.Hash
	ValidatorSetHash uint64
	Sigs             []headerSig
}

// EncodeRLP implements rlp.Encoder.
func (h *Header) EncodeRLP(w io.Writer) error {
	ext := extHeader{
		Number:           h.Number,
		ParentHash:       h.ParentHash,
		Time:             h.Time,
		StateRoot:        h.StateRoot,
		TxRoot:           h.TxRoot,
		ValidatorSetHash: h.ValidatorSetHash,
		Sigs:             make([]headerSig, 0, len(h.Signatures)),
	}
	for addr, sig := range h.Signatures {
		ext.Sigs = append(ext.Sigs, headerSig{Validator: addr, Sig: sig})
	}
	sort.Slice(ext.Sigs, func(i, j int) bool {
		return ext.Sigs[i].Validator < ext.Sigs[j].Validator
	})
	return rlp.Encode(w, &ext)
}

// DecodeRLP implements rlp.Decoder.
func (h *Header) DecodeRLP(s *rlp.Stream) error {
	var ext extHeader
	if err := s.Decode(&ext); err != nil {
		return err
	}
	h.Number = ext.Number
	h.ParentHash = ext.ParentHash
	h.Time = ext.Time
	h.StateRoot = ext.StateRoot
	h.TxRoot = ext.TxRoot
	h.ValidatorSetHash = ext.ValidatorSetHash
	h.Signatures = make(map[string][]byte, len(ext.Sigs))
	for _, e := range ext.Sigs {
		h.Signatures[e.Validator] = e.Sig
	}
	return nil
}

// Block is a header plus an ordered, non-empty transaction list. Once
// finalized a block is immutable and lives in the chain history.
type Block struct {
	Header       *Header
	Transactions Transactions
}

// NewBlock assembles a block from a header and transactions.
func NewBlock(header *Header, txs Transactions) *Block {
	return &Block{Header: header, Transactions: txs}
}

// Hash returns the header hash.
func (b *Block) Hash() common.Hash { return b.Header.Hash() }

// Number returns the block height.
func (b *Block) Number() uint64 { return b.Header.Number }

// TransactionCount returns the number of transactions in the block.
func (b *Block) TransactionCount() int { return len(b.Transactions) }

// VerifyStructure checks the block invariants: a positive block number, at
// least one transaction, and per-kind transaction preconditions.
func (b *Block) VerifyStructure() error {
	if b.Header.Number == 0 {
		return fmt.Errorf("%w: block number cannot be zero", ErrInvalidStructure)
	}
	if len(b.Transactions) == 0 {
		return fmt.Errorf("%w: block must contain at least one transaction", ErrInvalidStructure)
	}
	for i, tx := range b.Transactions {
		if err := verifyTransaction(tx); err != nil {
			return fmt.Errorf("transaction %d: %w", i, err)
		}
	}
	return nil
}

// verifyTransaction checks the structural preconditions of a single
// transaction.
func verifyTransaction(tx *Transaction) error {
	if tx.Sender() == "" {
		return fmt.Errorf("%w: transaction sender cannot be empty", ErrInvalidStructure)
	}
	switch p := tx.inner.(type) {
	case *DeployTx:
		if len(p.Bytecode) == 0 {
			return fmt.Errorf("%w: contract bytecode cannot be empty", ErrInvalidStructure)
		}
	case *CallTx:
		if p.Contract == "" {
			return fmt.Errorf("%w: contract address cannot be empty", ErrInvalidStructure)
		}
		if p.Function == "" {
			return fmt.Errorf("%w: function name cannot be empty", ErrInvalidStructure)
		}
	case *TransferTx:
		if p.From == "" || p.To == "" {
			return fmt.Errorf("%w: transfer addresses cannot be empty", ErrInvalidStructure)
		}
		if p.Amount == 0 {
			return fmt.Errorf("%w: transfer amount must be positive", ErrInvalidStructure)
		}
	case *InheritanceClaimTx:
		if p.WalletID >= params.InheritanceWalletCount {
			return fmt.Errorf("%w: inheritance wallet id %d out of range", ErrInvalidStructure, p.WalletID)
		}
	}
	return nil
}
