// Package validator implements the fixed council membership that gates
// block finality.
package validator

import (
	"errors"
	"fmt"

	"github.com/jbino85/techgnosis/params"
)

// Sentinel errors returned by set construction.
var (
	ErrEmptySet         = errors.New("validator: empty validator set")
	ErrDuplicate        = errors.New("validator: duplicate validator")
	ErrInvalidThreshold = errors.New("validator: threshold below the 2/3+1 minimum")
	ErrBadStandardSize  = errors.New("validator: standard set requires exactly 13 validators")
)

// PublicKeySize is the length of a validator Ed25519 public key.
const PublicKeySize = 32

// Validator is a single council member.
type Validator struct {
	Address     string
	PublicKey   [PublicKeySize]byte
	VotingPower uint64
}

// New returns a validator with the default voting power of one.
func New(address string, publicKey [PublicKeySize]byte) Validator {
	return Validator{Address: address, PublicKey: publicKey, VotingPower: 1}
}

// NewWithPower returns a validator with an explicit voting power.
func NewWithPower(address string, publicKey [PublicKeySize]byte, power uint64) Validator {
	return Validator{Address: address, PublicKey: publicKey, VotingPower: power}
}

// ValidatorSet is an immutable collection of validators with a finality
// threshold. Construction is the only mutation point.
type ValidatorSet struct {
	validators []Validator
	index      map[string]int
	threshold  uint64
	totalPower uint64
}

// NewSet constructs a validator set. The threshold must exceed two thirds of
// the total voting power.
func NewSet(validators []Validator, threshold uint64) (*ValidatorSet, error) {
	if len(validators) == 0 {
		return nil, ErrEmptySet
	}
	index := make(map[string]int, len(validators))
	var totalPower uint64
	for i, v := range validators {
		if _, ok := index[v.Address]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicate, v.Address)
		}
		index[v.Address] = i
		totalPower += v.VotingPower
	}
	if min := totalPower*2/3 + 1; threshold < min {
		return nil, fmt.Errorf("%w: %d < %d", ErrInvalidThreshold, threshold, min)
	}
	set := &ValidatorSet{
		validators: make([]Validator, len(validators)),
		index:      index,
		threshold:  threshold,
		totalPower: totalPower,
	}
	copy(set.validators, validators)
	return set, nil
}

// StandardSet constructs the standard council of twelve peers plus one
// distinguished peer, with the fixed threshold of nine.
func StandardSet(validators []Validator) (*ValidatorSet, error) {
	if len(validators) != params.StandardValidatorCount {
		return nil, fmt.Errorf("%w: got %d", ErrBadStandardSize, len(validators))
	}
	return NewSet(validators, params.StandardThreshold)
}

// Validators returns the members in construction order. The slice is shared
// and must be treated as read-only.
func (s *ValidatorSet) Validators() []Validator { return s.validators }

// At returns the validator at position i.
func (s *ValidatorSet) At(i int) Validator { return s.validators[i] }

// Contains reports set membership for an address.
func (s *ValidatorSet) Contains(address string) bool {
	_, ok := s.index[address]
	return ok
}

// Get returns the validator record for an address.
func (s *ValidatorSet) Get(address string) (Validator, bool) {
	i, ok := s.index[address]
	if !ok {
		return Validator{}, false
	}
	return s.validators[i], true
}

// Power returns the voting power of an address, zero for non-members.
func (s *ValidatorSet) Power(address string) uint64 {
	i, ok := s.index[address]
	if !ok {
		return 0
	}
	return s.validators[i].VotingPower
}

// Addresses returns the member addresses in construction order.
func (s *ValidatorSet) Addresses() []string {
	out := make([]string, len(s.validators))
	for i, v := range s.validators {
		out[i] = v.Address
	}
	return out
}

// Threshold returns the voting power required for finality.
func (s *ValidatorSet) Threshold() uint64 { return s.threshold }

// TotalVotingPower returns the summed voting power of all members.
func (s *ValidatorSet) TotalVotingPower() uint64 { return s.totalPower }

// Len returns the member count.
func (s *ValidatorSet) Len() int { return len(s.validators) }
