package crypto

import (
	stded25519 "crypto/ed25519"
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/jbino85/techgnosis/common"
	"github.com/jbino85/techgnosis/core/types"
	"github.com/jbino85/techgnosis/validator"
)

// Sentinel errors returned by signature verification.
var (
	ErrInvalidPublicKey  = errors.New("crypto: invalid public key")
	ErrUnknownValidator  = errors.New("crypto: unknown validator")
	ErrInvalidSignature  = errors.New("crypto: signature verification failed")
	ErrValidatorNotInSet = errors.New("crypto: validator not in set")
)

// InsufficientSignaturesError reports a block carrying fewer signatures than
// the finality threshold requires.
type InsufficientSignaturesError struct {
	Required uint64
	Actual   uint64
}

func (e *InsufficientSignaturesError) Error() string {
	return fmt.Sprintf("crypto: insufficient validator signatures: need %d, got %d", e.Required, e.Actual)
}

// inmemoryVerified bounds the cache of already-verified signatures.
const inmemoryVerified = 4096

// Verifier checks Ed25519 signatures against a cache of validator public
// keys loaded at startup. Verified (signer, header hash, signature) triples
// are kept in an ARC cache so that re-validating a circulating block skips
// the curve math.
type Verifier struct {
	mu      sync.RWMutex
	pubkeys map[string]stded25519.PublicKey

	verified *lru.ARCCache // "address\x00hash\x00sig" → struct{}{}
}

// NewVerifier returns an empty Verifier.
func NewVerifier() *Verifier {
	verified, _ := lru.NewARC(inmemoryVerified)
	return &Verifier{
		pubkeys:  make(map[string]stded25519.PublicKey),
		verified: verified,
	}
}

// LoadPubkey caches a validator's public key. The key must be exactly 32
// bytes.
func (v *Verifier) LoadPubkey(address string, pubkey []byte) error {
	if len(pubkey) != stded25519.PublicKeySize {
		return fmt.Errorf("%w: %d bytes", ErrInvalidPublicKey, len(pubkey))
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pubkeys[address] = common.CopyBytes(pubkey)
	return nil
}

// VerifySignature checks sig over message for the given validator address.
func (v *Verifier) VerifySignature(address string, message, sig []byte) error {
	v.mu.RLock()
	pubkey, ok := v.pubkeys[address]
	v.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownValidator, address)
	}
	if len(sig) != stded25519.SignatureSize {
		return fmt.Errorf("%w: malformed signature", ErrInvalidSignature)
	}
	if !stded25519.Verify(pubkey, message, sig) {
		return ErrInvalidSignature
	}
	return nil
}

// VerifyBlockSignatures checks that the block carries a quorum of valid
// signatures over its header hash:
//
//  1. the signature count must reach the set's threshold,
//  2. every signer must be a member of the set,
//  3. every signature must verify against the header hash.
func (v *Verifier) VerifyBlockSignatures(block *types.Block, vset *validator.ValidatorSet) error {
	required := vset.Threshold()
	actual := uint64(block.Header.SignatureCount())
	if actual < required {
		return &InsufficientSignaturesError{Required: required, Actual: actual}
	}

	hash := block.Header.Hash()
	for address, sig := range block.Header.Signatures {
		if !vset.Contains(address) {
			return fmt.Errorf("%w: %s", ErrValidatorNotInSet, address)
		}
		// The key must bind the exact signature bytes, or a cached hit for
		// a genuine signature would vouch for a corrupted one on the same
		// (signer, header) pair.
		key := address + "\x00" + string(hash[:]) + "\x00" + string(sig)
		if _, ok := v.verified.Get(key); ok {
			continue
		}
		if err := v.VerifySignature(address, hash[:], sig); err != nil {
			return err
		}
		v.verified.Add(key, struct{}{})
	}
	return nil
}

// Sign produces an Ed25519 signature with a raw private key. It exists for
// harnesses and tests; consensus nodes only ever verify.
func Sign(priv stded25519.PrivateKey, message []byte) []byte {
	return stded25519.Sign(priv, message)
}
