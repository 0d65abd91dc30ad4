package bft

import "errors"

// Sentinel errors returned by the consensus engine.
var (
	// ErrNotProposer rejects a proposal attempt by any node other than the
	// round's designated proposer.
	ErrNotProposer = errors.New("bft: only proposer can create blocks")

	// ErrInvalidVote rejects malformed votes before tallying.
	ErrInvalidVote = errors.New("bft: invalid vote")

	// ErrUnknownVoter rejects votes from addresses outside the set.
	ErrUnknownVoter = errors.New("bft: voter not in validator set")

	// ErrWrongRound rejects votes carrying a round other than the current
	// one; the external driver resubmits after catching up.
	ErrWrongRound = errors.New("bft: vote for wrong round")

	// ErrBlockValidation is wrapped by cross-block validation failures.
	ErrBlockValidation = errors.New("bft: block validation failed")

	// ErrFinalityViolation is wrapped by violations of already-final state.
	ErrFinalityViolation = errors.New("bft: finality violation")
)
