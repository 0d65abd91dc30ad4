// Package bft implements the round/phase state machine that coordinates
// block proposal and two-round voting among a fixed validator council.
package bft

// Phase is the position of the local node within a consensus round.
type Phase uint8

const (
	// PhaseNewRound: no proposal seen yet, vote sets empty.
	PhaseNewRound Phase = iota
	// PhasePropose: the round's proposer has broadcast a candidate block.
	PhasePropose
	// PhasePrevote: validators are broadcasting first-round votes.
	PhasePrevote
	// PhasePrecommit: a polka was observed, validators commit to finalizing.
	PhasePrecommit
	// PhaseCommit: a precommit quorum was observed, the block is final.
	PhaseCommit
)

func (p Phase) String() string {
	switch p {
	case PhaseNewRound:
		return "new-round"
	case PhasePropose:
		return "propose"
	case PhasePrevote:
		return "prevote"
	case PhasePrecommit:
		return "precommit"
	case PhaseCommit:
		return "commit"
	default:
		return "unknown"
	}
}
