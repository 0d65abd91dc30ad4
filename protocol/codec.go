package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
)

const (
	wirePrefix  = "OSO1"
	wireVersion = uint8(1)
)

var (
	ErrInvalidMessage = errors.New("protocol: invalid wire message")
	ErrUnknownKind    = errors.New("protocol: unknown payload kind")
)

// wireEnvelope is the RLP body that follows the prefix, version, and kind
// bytes.
type wireEnvelope struct {
	Sender  string
	Time    uint64
	Payload []byte
}

// Encode serialises an envelope to its deterministic wire form:
// "OSO1" || version || kind || RLP({sender, time, RLP(payload)}).
func Encode(env *Envelope) ([]byte, error) {
	if env == nil || env.Payload == nil {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidMessage)
	}
	payload, err := rlp.EncodeToBytes(env.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	body, err := rlp.EncodeToBytes(&wireEnvelope{
		Sender:  env.Sender,
		Time:    env.Time,
		Payload: payload,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	out := make([]byte, 0, len(wirePrefix)+2+len(body))
	out = append(out, wirePrefix...)
	out = append(out, wireVersion, env.Payload.Kind())
	return append(out, body...), nil
}

// Decode parses a wire message back into an envelope.
func Decode(data []byte) (*Envelope, error) {
	if len(data) <= len(wirePrefix)+2 || !bytes.Equal(data[:len(wirePrefix)], []byte(wirePrefix)) {
		return nil, ErrInvalidMessage
	}
	if data[len(wirePrefix)] != wireVersion {
		return nil, fmt.Errorf("%w: version %d", ErrInvalidMessage, data[len(wirePrefix)])
	}
	kind := data[len(wirePrefix)+1]

	var body wireEnvelope
	if err := rlp.DecodeBytes(data[len(wirePrefix)+2:], &body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	payload, err := decodePayload(kind, body.Payload)
	if err != nil {
		return nil, err
	}
	return &Envelope{Sender: body.Sender, Time: body.Time, Payload: payload}, nil
}

func decodePayload(kind byte, data []byte) (Payload, error) {
	var payload Payload
	switch kind {
	case KindPropose:
		payload = new(Propose)
	case KindPrevote:
		payload = new(Prevote)
	case KindPrecommit:
		payload = new(Precommit)
	case KindRequestBlock:
		payload = new(RequestBlock)
	case KindBlockResponse:
		payload = new(BlockResponse)
	case KindRequestState:
		payload = new(RequestState)
	case KindStateUpdate:
		payload = new(StateUpdate)
	case KindHeartbeat:
		payload = new(Heartbeat)
	case KindError:
		payload = new(ErrorMsg)
	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownKind, kind)
	}
	if err := rlp.DecodeBytes(data, payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return payload, nil
}

// kindName maps payload kinds to the names used by the JSON debug view.
func kindName(kind byte) string {
	switch kind {
	case KindPropose:
		return "propose"
	case KindPrevote:
		return "prevote"
	case KindPrecommit:
		return "precommit"
	case KindRequestBlock:
		return "request-block"
	case KindBlockResponse:
		return "block"
	case KindRequestState:
		return "request-state"
	case KindStateUpdate:
		return "state-update"
	case KindHeartbeat:
		return "heartbeat"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the envelope for humans. The binary codec is the
// canonical form; this view exists for logs and debugging only.
func (env *Envelope) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Sender  string      `json:"sender"`
		Time    uint64      `json:"timestamp"`
		Kind    string      `json:"kind"`
		Payload interface{} `json:"payload"`
	}{
		Sender:  env.Sender,
		Time:    env.Time,
		Kind:    kindName(env.Payload.Kind()),
		Payload: env.Payload,
	})
}
