// Package node wires the consensus engine, validator set, crypto, and world
// state into a single chain participant.
package node

import (
	"sync"

	"github.com/jbino85/techgnosis/common"
	"github.com/jbino85/techgnosis/consensus/bft"
	"github.com/jbino85/techgnosis/core/state"
	"github.com/jbino85/techgnosis/core/types"
	"github.com/jbino85/techgnosis/crypto"
	"github.com/jbino85/techgnosis/log"
	"github.com/jbino85/techgnosis/osodb"
	"github.com/jbino85/techgnosis/params"
	"github.com/jbino85/techgnosis/protocol"
	"github.com/jbino85/techgnosis/validator"
)

// Node owns the single writable state instance of one chain. Reads run
// concurrently; block finalization takes the state exclusively.
type Node struct {
	id       string
	vset     *validator.ValidatorSet
	verifier *crypto.Verifier
	engine   *bft.Engine
	logger   log.Logger

	stateMu sync.RWMutex
	st      *state.StateDB

	archive *osodb.Store
}

// Option configures a Node at construction.
type Option func(*Node)

// WithArchive makes the node write finalized blocks through to store.
func WithArchive(store *osodb.Store) Option {
	return func(n *Node) { n.archive = store }
}

// WithConfig overrides the chain configuration.
func WithConfig(config *params.ChainConfig) Option {
	return func(n *Node) {
		n.engine = bft.New(n.id, n.vset, n.verifier, config)
	}
}

// New constructs a node. The validator set is built from validators and
// threshold; every member's public key is loaded into the verifier cache at
// startup. Validator-set errors propagate.
func New(id string, validators []validator.Validator, threshold uint64, opts ...Option) (*Node, error) {
	vset, err := validator.NewSet(validators, threshold)
	if err != nil {
		return nil, err
	}
	verifier := crypto.NewVerifier()
	for _, v := range vset.Validators() {
		if err := verifier.LoadPubkey(v.Address, v.PublicKey[:]); err != nil {
			return nil, err
		}
	}
	n := &Node{
		id:       id,
		vset:     vset,
		verifier: verifier,
		engine:   bft.New(id, vset, verifier, nil),
		logger:   log.Root().New("node", id),
		st:       state.New(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// ID returns the node's validator address.
func (n *Node) ID() string { return n.id }

// Engine exposes the consensus state machine to the external driver that
// paces rounds and feeds votes.
func (n *Node) Engine() *bft.Engine { return n.engine }

// ValidatorSet returns the node's validator set.
func (n *Node) ValidatorSet() *validator.ValidatorSet { return n.vset }

// State returns the node's world state for read-only use.
func (n *Node) State() *state.StateDB { return n.st }

// ProposeBlock asks the engine to assemble a candidate block over the
// current state.
func (n *Node) ProposeBlock(txs types.Transactions) (*types.Block, error) {
	n.stateMu.RLock()
	defer n.stateMu.RUnlock()
	return n.engine.ProposeBlock(n.st, txs)
}

// ValidateBlock checks an incoming block: structure, signature quorum, and
// state transitions against the pre-image state.
func (n *Node) ValidateBlock(block *types.Block) error {
	n.stateMu.RLock()
	defer n.stateMu.RUnlock()
	return n.engine.ValidateBlock(n.st, block)
}

// FinalizeBlock applies a block to the state and records it in history.
// When an archive is attached, the block is written through to disk.
func (n *Node) FinalizeBlock(block *types.Block) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	if err := n.engine.FinalizeBlock(n.st, block); err != nil {
		return err
	}
	if n.archive != nil {
		if err := n.archive.WriteBlock(block); err != nil {
			// The in-memory chain has advanced; archive write failures
			// are operational, not consensus-fatal.
			n.logger.Error("block archive write failed", "number", block.Number(), "err", err)
		}
	}
	return nil
}

// StateRoot returns the current state root.
func (n *Node) StateRoot() common.Hash {
	n.stateMu.RLock()
	defer n.stateMu.RUnlock()
	return n.st.Root()
}

// BlockHeight returns the current chain height.
func (n *Node) BlockHeight() uint64 {
	n.stateMu.RLock()
	defer n.stateMu.RUnlock()
	return n.st.Height()
}

// GetAccount returns a copy of an account from the world state.
func (n *Node) GetAccount(address string) (*state.Account, bool) {
	n.stateMu.RLock()
	defer n.stateMu.RUnlock()
	return n.st.GetAccount(address)
}

// ServeBlock answers a sync request for a finalized block from the archive.
// Without an attached archive it returns osodb.ErrNotFound.
func (n *Node) ServeBlock(number uint64) (*types.Block, error) {
	if n.archive == nil {
		return nil, osodb.ErrNotFound
	}
	return n.archive.ReadBlock(number)
}

// ServeStateUpdate answers a catch-up request with the transactions of one
// finalized block.
func (n *Node) ServeStateUpdate(number uint64) (*protocol.StateUpdate, error) {
	block, err := n.ServeBlock(number)
	if err != nil {
		return nil, err
	}
	return &protocol.StateUpdate{Number: number, Transactions: block.Transactions}, nil
}

// Heartbeat reports the node's chain view for the keep-alive path.
func (n *Node) Heartbeat() *protocol.Heartbeat {
	return &protocol.Heartbeat{BlockHeight: n.BlockHeight(), Round: n.engine.Round()}
}
