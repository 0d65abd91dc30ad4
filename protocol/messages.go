// Package protocol defines the wire messages exchanged between consensus
// nodes and their deterministic binary codec. The transport that carries
// them is an external collaborator; only the format is fixed here.
package protocol

import (
	"github.com/jbino85/techgnosis/common"
	"github.com/jbino85/techgnosis/core/types"
)

// Payload kind bytes. Fixed on the wire; never renumber.
const (
	KindPropose       = byte(0x01)
	KindPrevote       = byte(0x02)
	KindPrecommit     = byte(0x03)
	KindRequestBlock  = byte(0x04)
	KindBlockResponse = byte(0x05)
	KindRequestState  = byte(0x06)
	KindStateUpdate   = byte(0x07)
	KindHeartbeat     = byte(0x08)
	KindError         = byte(0x09)
)

// Payload is implemented by every message body.
type Payload interface {
	Kind() byte
}

// Envelope wraps a payload with its sender and send time (ms since epoch).
type Envelope struct {
	Sender  string
	Time    uint64
	Payload Payload
}

// NewEnvelope builds an envelope around a payload.
func NewEnvelope(sender string, time uint64, payload Payload) *Envelope {
	return &Envelope{Sender: sender, Time: time, Payload: payload}
}

// Propose announces the round's candidate block.
type Propose struct {
	Round uint64
	Block *types.Block
}

func (*Propose) Kind() byte { return KindPropose }

// Prevote is a first-round vote. A nil BlockHash is a nil-vote.
type Prevote struct {
	Round     uint64
	BlockHash *common.Hash `rlp:"nil"`
}

func (*Prevote) Kind() byte { return KindPrevote }

// Precommit is a second-round vote. A nil BlockHash is a nil-vote.
type Precommit struct {
	Round     uint64
	BlockHash *common.Hash `rlp:"nil"`
}

func (*Precommit) Kind() byte { return KindPrecommit }

// RequestBlock asks a peer for a finalized block by height.
type RequestBlock struct {
	Number uint64
}

func (*RequestBlock) Kind() byte { return KindRequestBlock }

// BlockResponse answers a RequestBlock.
type BlockResponse struct {
	Block *types.Block
}

func (*BlockResponse) Kind() byte { return KindBlockResponse }

// RequestState asks a peer for the transactions needed to catch up from a
// given block.
type RequestState struct {
	FromBlock uint64
}

func (*RequestState) Kind() byte { return KindRequestState }

// StateUpdate answers a RequestState with the transactions of one block.
type StateUpdate struct {
	Number       uint64
	Transactions types.Transactions
}

func (*StateUpdate) Kind() byte { return KindStateUpdate }

// Heartbeat is the keep-alive carrying the peer's view of the chain.
type Heartbeat struct {
	BlockHeight uint64
	Round       uint64
}

func (*Heartbeat) Kind() byte { return KindHeartbeat }

// ErrorMsg reports a protocol-level failure to a peer.
type ErrorMsg struct {
	Code    uint32
	Message string
}

func (*ErrorMsg) Kind() byte { return KindError }
