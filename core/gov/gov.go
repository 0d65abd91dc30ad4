// Package gov implements the governance action protocol.
//
// A governance transaction carries a JSON-encoded Action in its Action
// field. Finalization decodes the envelope and dispatches it to a registered
// handler; actions no handler claims are rejected explicitly rather than
// silently accepted.
package gov

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ActionKind identifies the type of governance action.
type ActionKind string

const (
	// ActionTextProposal records a council statement with no state effect.
	ActionTextProposal ActionKind = "TEXT_PROPOSAL"
	// ActionParamUpdate proposes a protocol parameter change.
	ActionParamUpdate ActionKind = "PARAM_UPDATE"
)

var (
	// ErrInvalidAction is returned when the action bytes cannot be decoded.
	ErrInvalidAction = errors.New("gov: invalid governance action payload")
	// ErrUnknownAction is returned when no handler claims the action kind.
	ErrUnknownAction = errors.New("gov: unknown governance action")
)

// Action is the envelope carried in a governance transaction's action bytes.
type Action struct {
	Kind    ActionKind      `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Decode parses an Action from raw action bytes.
func Decode(data []byte) (*Action, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty action", ErrInvalidAction)
	}
	var a Action
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}
	if a.Kind == "" {
		return nil, fmt.Errorf("%w: missing action field", ErrInvalidAction)
	}
	return &a, nil
}

// Encode serialises an Action to JSON bytes suitable for a governance
// transaction.
func Encode(a *Action) ([]byte, error) {
	return json.Marshal(a)
}

// MakeAction creates and encodes an Action in one step.
func MakeAction(kind ActionKind, payload interface{}) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return Encode(&Action{Kind: kind, Payload: raw})
}

// DecodePayload unmarshals a.Payload into dst.
func DecodePayload(a *Action, dst interface{}) error {
	if len(a.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(a.Payload, dst)
}

// Context carries the information available to a governance handler.
type Context struct {
	Proposer    string
	ProposalID  string
	BlockNumber uint64
}

// Handler is implemented by governance sub-systems.
type Handler interface {
	CanHandle(kind ActionKind) bool
	Handle(ctx *Context, a *Action) error
}

// Registry holds registered handlers.
type Registry struct{ handlers []Handler }

// DefaultRegistry is the process-wide handler registry.
var DefaultRegistry = &Registry{}

// Register adds a handler to the registry.
func (r *Registry) Register(h Handler) { r.handlers = append(r.handlers, h) }

// Handles reports whether any registered handler claims the kind.
func (r *Registry) Handles(kind ActionKind) bool {
	for _, h := range r.handlers {
		if h.CanHandle(kind) {
			return true
		}
	}
	return false
}

// Dispatch decodes raw action bytes and routes them to the first handler
// that claims the kind.
func (r *Registry) Dispatch(ctx *Context, data []byte) error {
	a, err := Decode(data)
	if err != nil {
		return err
	}
	for _, h := range r.handlers {
		if h.CanHandle(a.Kind) {
			return h.Handle(ctx, a)
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownAction, a.Kind)
}

func init() {
	DefaultRegistry.Register(textHandler{})
}

// textHandler accepts text proposals; they carry no state effect beyond the
// sender's nonce bump.
type textHandler struct{}

func (textHandler) CanHandle(kind ActionKind) bool { return kind == ActionTextProposal }

func (textHandler) Handle(*Context, *Action) error { return nil }
