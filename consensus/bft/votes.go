package bft

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/jbino85/techgnosis/common"
	"github.com/jbino85/techgnosis/validator"
)

// BlockVotes accumulates the votes of one round. Prevotes and precommits
// are disjoint address sets; nil-votes are tallied separately from votes
// for the candidate block. A validator counts once per phase per round.
type BlockVotes struct {
	blockHash *common.Hash

	prevotes      mapset.Set[string]
	precommits    mapset.Set[string]
	nilPrevotes   mapset.Set[string]
	nilPrecommits mapset.Set[string]
}

// NewBlockVotes returns an empty tally.
func NewBlockVotes() *BlockVotes {
	return &BlockVotes{
		prevotes:      mapset.NewThreadUnsafeSet[string](),
		precommits:    mapset.NewThreadUnsafeSet[string](),
		nilPrevotes:   mapset.NewThreadUnsafeSet[string](),
		nilPrecommits: mapset.NewThreadUnsafeSet[string](),
	}
}

// SetBlockHash records the candidate block hash once it is known.
func (bv *BlockVotes) SetBlockHash(h common.Hash) {
	cpy := h
	bv.blockHash = &cpy
}

// BlockHash returns the candidate block hash, nil when no proposal has been
// recorded.
func (bv *BlockVotes) BlockHash() *common.Hash { return bv.blockHash }

// AddPrevote tallies a prevote. A nil hash is a nil-vote. Re-votes from the
// same validator are no-ops; the return reports whether the vote was new.
func (bv *BlockVotes) AddPrevote(validatorAddr string, blockHash *common.Hash) bool {
	if bv.prevotes.Contains(validatorAddr) || bv.nilPrevotes.Contains(validatorAddr) {
		return false
	}
	if blockHash == nil {
		return bv.nilPrevotes.Add(validatorAddr)
	}
	return bv.prevotes.Add(validatorAddr)
}

// AddPrecommit tallies a precommit; same rules as AddPrevote.
func (bv *BlockVotes) AddPrecommit(validatorAddr string, blockHash *common.Hash) bool {
	if bv.precommits.Contains(validatorAddr) || bv.nilPrecommits.Contains(validatorAddr) {
		return false
	}
	if blockHash == nil {
		return bv.nilPrecommits.Add(validatorAddr)
	}
	return bv.precommits.Add(validatorAddr)
}

// PrevoteCount returns the number of non-nil prevotes.
func (bv *BlockVotes) PrevoteCount() int { return bv.prevotes.Cardinality() }

// PrecommitCount returns the number of non-nil precommits.
func (bv *BlockVotes) PrecommitCount() int { return bv.precommits.Cardinality() }

// NilPrevoteCount returns the number of nil prevotes.
func (bv *BlockVotes) NilPrevoteCount() int { return bv.nilPrevotes.Cardinality() }

// NilPrecommitCount returns the number of nil precommits.
func (bv *BlockVotes) NilPrecommitCount() int { return bv.nilPrecommits.Cardinality() }

func sumPower(set mapset.Set[string], vset *validator.ValidatorSet) uint64 {
	var power uint64
	set.Each(func(addr string) bool {
		power += vset.Power(addr)
		return false
	})
	return power
}

// HasPolka reports a prevote quorum for the candidate block: accumulated
// voting power at or above the set threshold. With the default power of one
// this is a simple head count.
func (bv *BlockVotes) HasPolka(vset *validator.ValidatorSet) bool {
	return sumPower(bv.prevotes, vset) >= vset.Threshold()
}

// HasCommit reports a precommit quorum for the candidate block.
func (bv *BlockVotes) HasCommit(vset *validator.ValidatorSet) bool {
	return sumPower(bv.precommits, vset) >= vset.Threshold()
}

// HasNilPolka reports a prevote quorum of nil-votes, the signal that the
// round is dead and the driver should advance.
func (bv *BlockVotes) HasNilPolka(vset *validator.ValidatorSet) bool {
	return sumPower(bv.nilPrevotes, vset) >= vset.Threshold()
}

// Reset clears the tally for a new round.
func (bv *BlockVotes) Reset() {
	bv.blockHash = nil
	bv.prevotes.Clear()
	bv.precommits.Clear()
	bv.nilPrevotes.Clear()
	bv.nilPrecommits.Clear()
}
