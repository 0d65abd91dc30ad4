package bft

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/jbino85/techgnosis/common"
)

// Vote is a single prevote or precommit. A nil BlockHash is a nil-vote: the
// validator saw no acceptable proposal this round. The signature covers the
// canonical digest of (round, phase, block hash) and is verified before the
// vote is counted.
type Vote struct {
	Round     uint64
	Phase     Phase
	BlockHash *common.Hash
	Validator string
	Signature []byte
}

// SigningDigest returns the canonical digest a validator signs:
// SHA-256 over round (little-endian) || phase byte || nil marker || hash.
func (v *Vote) SigningDigest() common.Hash {
	var num [8]byte
	hasher := sha256.New()
	binary.LittleEndian.PutUint64(num[:], v.Round)
	hasher.Write(num[:])
	hasher.Write([]byte{byte(v.Phase)})
	if v.BlockHash == nil {
		hasher.Write([]byte{0x00})
	} else {
		hasher.Write([]byte{0x01})
		hasher.Write(v.BlockHash[:])
	}
	return common.BytesToHash(hasher.Sum(nil))
}

// VoteDigest computes the signing digest without building a Vote value.
// Harnesses use it to produce vote signatures.
func VoteDigest(round uint64, phase Phase, blockHash *common.Hash) common.Hash {
	v := Vote{Round: round, Phase: phase, BlockHash: blockHash}
	return v.SigningDigest()
}

func validateVote(v *Vote) error {
	if v == nil || v.Validator == "" {
		return ErrInvalidVote
	}
	if v.Phase != PhasePrevote && v.Phase != PhasePrecommit {
		return ErrInvalidVote
	}
	if len(v.Signature) == 0 {
		return ErrInvalidVote
	}
	return nil
}
