// Package crypto implements the chain's hashing rules and the Ed25519
// signature verification used by block finality.
package crypto

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/jbino85/techgnosis/common"
	"github.com/jbino85/techgnosis/core/types"
)

// HashHeader returns the canonical header hash.
func HashHeader(h *types.Header) common.Hash { return h.Hash() }

// HashTx returns the canonical transaction hash.
func HashTx(tx *types.Transaction) common.Hash { return tx.Hash() }

// HashTxs folds the transaction hashes into a serial hash chain:
//
//	H0 = SHA-256(hash(tx0) || "")
//	Hi = SHA-256(Hi-1 || hash(txi))
//
// For an empty list the result is the SHA-256 of the empty string; empty
// blocks are rejected structurally so that case is not reached on a live
// chain. The chain derivation is kept for wire compatibility; MerkleRoot is
// the successor derivation.
func HashTxs(txs types.Transactions) common.Hash {
	if len(txs) == 0 {
		return common.BytesToHash(hashPair(nil, nil))
	}
	first := txs[0].Hash()
	root := hashPair(first[:], nil)
	for _, tx := range txs[1:] {
		h := tx.Hash()
		root = hashPair(root, h[:])
	}
	return common.BytesToHash(root)
}

// MerkleRoot computes a pairwise Merkle root over the transaction hashes,
// duplicating the last leaf on odd counts.
func MerkleRoot(txs types.Transactions) common.Hash {
	if len(txs) == 0 {
		return common.BytesToHash(hashPair(nil, nil))
	}
	level := make([][]byte, len(txs))
	for i, tx := range txs {
		h := tx.Hash()
		level[i] = h.Bytes()
	}
	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([][]byte, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next[i/2] = hashPair(level[i], level[i+1])
		}
		level = next
	}
	return common.BytesToHash(level[0])
}

// HashValidatorAddresses digests the validator address sequence into the
// 64-bit validator-set hash committed in every header. Addresses are length
// prefixed so that ("ab","c") and ("a","bc") do not collide.
func HashValidatorAddresses(addrs []string) uint64 {
	var l [8]byte
	hasher := sha256.New()
	for _, addr := range addrs {
		binary.LittleEndian.PutUint64(l[:], uint64(len(addr)))
		hasher.Write(l[:])
		hasher.Write([]byte(addr))
	}
	return binary.LittleEndian.Uint64(hasher.Sum(nil)[:8])
}

func hashPair(left, right []byte) []byte {
	hasher := sha256.New()
	hasher.Write(left)
	hasher.Write(right)
	return hasher.Sum(nil)
}
