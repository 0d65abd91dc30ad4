package bft

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/jbino85/techgnosis/common"
	"github.com/jbino85/techgnosis/core/gov"
	"github.com/jbino85/techgnosis/core/state"
	"github.com/jbino85/techgnosis/core/types"
	"github.com/jbino85/techgnosis/crypto"
	"github.com/jbino85/techgnosis/log"
	"github.com/jbino85/techgnosis/params"
	"github.com/jbino85/techgnosis/validator"
)

// Engine is the per-node consensus state machine. Round, phase, and the
// vote tally are each guarded by an independent lock; lock scopes never
// nest, which keeps the engine deadlock-free under concurrent network
// handlers.
type Engine struct {
	nodeID   string
	vset     *validator.ValidatorSet
	verifier *crypto.Verifier
	config   *params.ChainConfig
	logger   log.Logger

	roundMu sync.RWMutex
	round   uint64

	phaseMu sync.RWMutex
	phase   Phase

	votesMu sync.RWMutex
	votes   *BlockVotes

	lockMu      sync.RWMutex
	lockedHash  *common.Hash
	lockedRound uint64
}

// New builds an engine for nodeID over a fixed validator set. A nil config
// selects the defaults.
func New(nodeID string, vset *validator.ValidatorSet, verifier *crypto.Verifier, config *params.ChainConfig) *Engine {
	if config == nil {
		config = params.DefaultChainConfig
	}
	return &Engine{
		nodeID:   nodeID,
		vset:     vset,
		verifier: verifier,
		config:   config,
		logger:   log.Root().New("node", nodeID),
		phase:    PhaseNewRound,
		votes:    NewBlockVotes(),
	}
}

// NodeID returns the local node's validator address.
func (e *Engine) NodeID() string { return e.nodeID }

// ValidatorSet returns the engine's validator set.
func (e *Engine) ValidatorSet() *validator.ValidatorSet { return e.vset }

// Round returns the current round number.
func (e *Engine) Round() uint64 {
	e.roundMu.RLock()
	defer e.roundMu.RUnlock()
	return e.round
}

// Phase returns the current phase.
func (e *Engine) Phase() Phase {
	e.phaseMu.RLock()
	defer e.phaseMu.RUnlock()
	return e.phase
}

func (e *Engine) setPhase(p Phase) {
	e.phaseMu.Lock()
	defer e.phaseMu.Unlock()
	e.phase = p
}

// ProposerAt returns the designated proposer for a round: round-robin over
// the set in construction order.
func (e *Engine) ProposerAt(round uint64) validator.Validator {
	return e.vset.At(int(round % uint64(e.vset.Len())))
}

// IsProposer reports whether the local node proposes in the current round.
func (e *Engine) IsProposer() bool {
	return e.ProposerAt(e.Round()).Address == e.nodeID
}

// ProposeBlock assembles an unsigned candidate block over the given state.
// Only the round's designated proposer may call it; every transaction must
// pass the state pre-flight.
func (e *Engine) ProposeBlock(st *state.StateDB, txs types.Transactions) (*types.Block, error) {
	if !e.IsProposer() {
		return nil, ErrNotProposer
	}
	for i, tx := range txs {
		if err := st.ValidateTx(tx); err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
	}

	txRoot := crypto.HashTxs(txs)
	if e.config.TxRootVersion >= params.TxRootMerkle {
		txRoot = crypto.MerkleRoot(txs)
	}
	header := types.NewHeader(
		st.Height()+1,
		st.HeadHash(),
		uint64(time.Now().UnixMilli()),
		st.Root(),
		txRoot,
		crypto.HashValidatorAddresses(e.vset.Addresses()),
	)
	block := types.NewBlock(header, txs)

	e.noteProposal(block.Hash())
	e.setPhase(PhasePropose)
	e.logger.Debug("proposed block", "number", header.Number, "txs", len(txs), "hash", block.Hash())
	return block, nil
}

// noteProposal records the candidate hash for the current round's tally.
func (e *Engine) noteProposal(h common.Hash) {
	e.votesMu.Lock()
	defer e.votesMu.Unlock()
	e.votes.SetBlockHash(h)
}

// ValidateBlock runs every check an incoming block must pass before this
// node votes for it: structure, a quorum of valid signatures, and the state
// pre-flight of every transaction against the pre-image state.
func (e *Engine) ValidateBlock(st *state.StateDB, block *types.Block) error {
	if err := block.VerifyStructure(); err != nil {
		return err
	}
	if err := e.verifier.VerifyBlockSignatures(block, e.vset); err != nil {
		return err
	}
	return e.validateStateTransitions(st, block)
}

// validateStateTransitions checks that every transaction would apply
// cleanly against the pre-image state. The chain only advances if the whole
// batch would succeed.
func (e *Engine) validateStateTransitions(st *state.StateDB, block *types.Block) error {
	for i, tx := range block.Transactions {
		if err := st.ValidateTx(tx); err != nil {
			return fmt.Errorf("transaction %d: %w", i, err)
		}
		if p, ok := tx.AsGovernance(); ok {
			a, err := gov.Decode(p.Action)
			if err != nil {
				return fmt.Errorf("transaction %d: %w", i, err)
			}
			if !gov.DefaultRegistry.Handles(a.Kind) {
				return fmt.Errorf("transaction %d: %w: %q", i, gov.ErrUnknownAction, a.Kind)
			}
		}
	}
	return nil
}

// FinalizeBlock applies a block to the state as one logical transaction.
// Transactions apply in list order into a copy-on-write overlay; any error
// discards the overlay and the state is untouched. On success the overlay
// commits, height advances, and the state root is recomputed — the root the
// NEXT proposal's header will commit to.
func (e *Engine) FinalizeBlock(st *state.StateDB, block *types.Block) error {
	ov := st.NewOverlay()
	blockNum := block.Header.Number

	for i, tx := range block.Transactions {
		var gasUsed uint64
		switch {
		case tx.Type() == types.TransferTxType:
			p, _ := tx.AsTransfer()
			if err := ov.Transfer(p.From, p.To, p.Amount); err != nil {
				return fmt.Errorf("transaction %d: %w", i, err)
			}

		case tx.Type() == types.DeployTxType:
			p, _ := tx.AsDeploy()
			addr := e.contractAddress(ov, p.Sender, blockNum)
			ov.DeployContract(addr, p.Bytecode)
			gasUsed = p.Gas

		case tx.Type() == types.CallTxType:
			// Execution is delegated to the external contract runtime;
			// the core records the gas budget and moves on.
			gasUsed = tx.Gas()

		case tx.Type() == types.GovernanceTxType:
			p, _ := tx.AsGovernance()
			ctx := &gov.Context{
				Proposer:    p.Proposer,
				ProposalID:  p.ProposalID,
				BlockNumber: blockNum,
			}
			if err := gov.DefaultRegistry.Dispatch(ctx, p.Action); err != nil {
				return fmt.Errorf("transaction %d: %w", i, err)
			}

		case tx.Type() == types.InheritanceClaimTxType:
			p, _ := tx.AsInheritanceClaim()
			if p.WalletID >= params.InheritanceWalletCount {
				return fmt.Errorf("transaction %d: %w: inheritance wallet id %d out of range",
					i, types.ErrInvalidStructure, p.WalletID)
			}
		}

		ov.BumpNonce(tx.Sender())
		ov.AddReceipt(&types.Receipt{
			TxHash:   tx.Hash(),
			BlockNum: blockNum,
			Status:   types.ReceiptStatusSuccess,
			GasUsed:  params.TxGas + gasUsed,
		})
	}

	blockHash := block.Hash()
	ov.Commit(blockHash)
	e.logger.Info("finalized block", "number", blockNum, "txs", len(block.Transactions), "hash", blockHash)
	return nil
}

// contractAddress derives the address for a freshly deployed contract:
// hex(SHA-256(sender || nonce))[:40]. The legacy sender_contract_height
// form stays available for existing deployments.
func (e *Engine) contractAddress(ov *state.Overlay, sender string, blockNum uint64) string {
	if e.config.LegacyContractAddr {
		return fmt.Sprintf("%s_contract_%d", sender, blockNum-1)
	}
	var nonce uint64
	if acc, ok := ov.GetAccount(sender); ok {
		nonce = acc.Nonce
	}
	var num [8]byte
	binary.LittleEndian.PutUint64(num[:], nonce)
	sum := sha256.Sum256(append([]byte(sender), num[:]...))
	return hex.EncodeToString(sum[:])[:40]
}

// ingestVote validates, authenticates, and tallies a vote. The phase the
// vote claims must match want.
func (e *Engine) ingestVote(v *Vote, want Phase) error {
	if err := validateVote(v); err != nil {
		return err
	}
	if v.Phase != want {
		return fmt.Errorf("%w: phase %s", ErrInvalidVote, v.Phase)
	}
	if v.Round != e.Round() {
		return fmt.Errorf("%w: have %d, want %d", ErrWrongRound, v.Round, e.Round())
	}
	if !e.vset.Contains(v.Validator) {
		return fmt.Errorf("%w: %s", ErrUnknownVoter, v.Validator)
	}
	digest := v.SigningDigest()
	if err := e.verifier.VerifySignature(v.Validator, digest[:], v.Signature); err != nil {
		return err
	}

	e.votesMu.Lock()
	if v.BlockHash != nil && e.votes.BlockHash() == nil {
		e.votes.SetBlockHash(*v.BlockHash)
	}
	if want == PhasePrevote {
		e.votes.AddPrevote(v.Validator, v.BlockHash)
	} else {
		e.votes.AddPrecommit(v.Validator, v.BlockHash)
	}
	e.votesMu.Unlock()

	e.setPhase(want)
	return nil
}

// AddPrevote authenticates and tallies a prevote for the current round.
// Observing a polka for a block other than the locked one at a higher round
// releases the lock.
func (e *Engine) AddPrevote(v *Vote) error {
	if err := e.ingestVote(v, PhasePrevote); err != nil {
		return err
	}
	e.maybeUnlock()
	return nil
}

// AddPrecommit authenticates and tallies a precommit for the current round.
// The local node's own non-nil precommit locks it onto that block.
func (e *Engine) AddPrecommit(v *Vote) error {
	if err := e.ingestVote(v, PhasePrecommit); err != nil {
		return err
	}
	if v.Validator == e.nodeID && v.BlockHash != nil {
		e.lock(v.Round, *v.BlockHash)
	}
	return nil
}

// HasPolka reports a prevote quorum for the current round.
func (e *Engine) HasPolka() bool {
	e.votesMu.RLock()
	defer e.votesMu.RUnlock()
	return e.votes.HasPolka(e.vset)
}

// HasCommit reports a precommit quorum for the current round.
func (e *Engine) HasCommit() bool {
	e.votesMu.RLock()
	defer e.votesMu.RUnlock()
	return e.votes.HasCommit(e.vset)
}

// Votes exposes the current tally under the callback; the tally must not
// escape it.
func (e *Engine) Votes(fn func(*BlockVotes)) {
	e.votesMu.RLock()
	defer e.votesMu.RUnlock()
	fn(e.votes)
}

// lock pins the node to a block it has precommitted.
func (e *Engine) lock(round uint64, h common.Hash) {
	e.lockMu.Lock()
	defer e.lockMu.Unlock()
	cpy := h
	e.lockedHash = &cpy
	e.lockedRound = round
}

// maybeUnlock releases the lock when the current round shows a polka for a
// different block at a round above the one the lock was taken in.
func (e *Engine) maybeUnlock() {
	e.votesMu.RLock()
	polka := e.votes.HasPolka(e.vset)
	candidate := e.votes.BlockHash()
	e.votesMu.RUnlock()
	if !polka || candidate == nil {
		return
	}
	round := e.Round()

	e.lockMu.Lock()
	defer e.lockMu.Unlock()
	if e.lockedHash != nil && *candidate != *e.lockedHash && round > e.lockedRound {
		e.lockedHash = nil
		e.lockedRound = 0
	}
}

// LockedBlock returns the block hash the node is locked on, if any, and the
// round the lock was taken in.
func (e *Engine) LockedBlock() (*common.Hash, uint64, bool) {
	e.lockMu.RLock()
	defer e.lockMu.RUnlock()
	if e.lockedHash == nil {
		return nil, 0, false
	}
	cpy := *e.lockedHash
	return &cpy, e.lockedRound, true
}

// PrevoteTarget returns the hash this node must prevote: the locked block
// while a lock is held, otherwise the proposal under consideration (nil for
// a nil-vote).
func (e *Engine) PrevoteTarget(proposal *common.Hash) *common.Hash {
	e.lockMu.RLock()
	defer e.lockMu.RUnlock()
	if e.lockedHash != nil {
		cpy := *e.lockedHash
		return &cpy
	}
	return proposal
}

// NextRound advances to the next round: the round counter increments, the
// phase resets, and the vote tally clears. Votes never persist across
// rounds; the lock does, by design.
func (e *Engine) NextRound() {
	e.roundMu.Lock()
	e.round++
	round := e.round
	e.roundMu.Unlock()

	e.setPhase(PhaseNewRound)

	e.votesMu.Lock()
	e.votes.Reset()
	e.votesMu.Unlock()

	e.logger.Debug("advanced round", "round", round)
}
