package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jbino85/techgnosis/common"
	"github.com/jbino85/techgnosis/core/types"
)

func testBlock() *types.Block {
	header := types.NewHeader(1, common.Hash{}, 1000, common.HexToHash("0x01"), common.HexToHash("0x02"), 7)
	header.AddSignature("council_1", []byte{0x01})
	tx := types.NewTx(&types.TransferTx{From: "alice", To: "bob", Amount: 100, Nonce: 0})
	return types.NewBlock(header, types.Transactions{tx})
}

func roundTrip(t *testing.T, env *Envelope) *Envelope {
	t.Helper()
	enc, err := Encode(env)
	require.NoError(t, err)
	dec, err := Decode(enc)
	require.NoError(t, err)
	require.Equal(t, env.Sender, dec.Sender)
	require.Equal(t, env.Time, dec.Time)
	require.Equal(t, env.Payload.Kind(), dec.Payload.Kind())
	return dec
}

func TestProposeRoundTrip(t *testing.T) {
	block := testBlock()
	dec := roundTrip(t, NewEnvelope("node_1", 1000, &Propose{Round: 3, Block: block}))
	p := dec.Payload.(*Propose)
	require.Equal(t, uint64(3), p.Round)
	require.Equal(t, block.Hash(), p.Block.Hash())
	require.Equal(t, 1, p.Block.TransactionCount())
}

func TestVoteRoundTrip(t *testing.T) {
	hash := common.HexToHash("0xb10c")
	dec := roundTrip(t, NewEnvelope("node_2", 2000, &Prevote{Round: 1, BlockHash: &hash}))
	require.Equal(t, hash, *dec.Payload.(*Prevote).BlockHash)

	dec = roundTrip(t, NewEnvelope("node_2", 2000, &Precommit{Round: 1, BlockHash: &hash}))
	require.Equal(t, hash, *dec.Payload.(*Precommit).BlockHash)
}

func TestNilVoteRoundTrip(t *testing.T) {
	dec := roundTrip(t, NewEnvelope("node_2", 2000, &Prevote{Round: 4}))
	require.Nil(t, dec.Payload.(*Prevote).BlockHash, "nil-vote must stay nil")

	dec = roundTrip(t, NewEnvelope("node_2", 2000, &Precommit{Round: 4}))
	require.Nil(t, dec.Payload.(*Precommit).BlockHash)
}

func TestSyncRoundTrips(t *testing.T) {
	dec := roundTrip(t, NewEnvelope("node_3", 1, &RequestBlock{Number: 9}))
	require.Equal(t, uint64(9), dec.Payload.(*RequestBlock).Number)

	block := testBlock()
	dec = roundTrip(t, NewEnvelope("node_3", 1, &BlockResponse{Block: block}))
	require.Equal(t, block.Hash(), dec.Payload.(*BlockResponse).Block.Hash())

	dec = roundTrip(t, NewEnvelope("node_3", 1, &RequestState{FromBlock: 5}))
	require.Equal(t, uint64(5), dec.Payload.(*RequestState).FromBlock)

	txs := types.Transactions{types.NewTx(&types.TransferTx{From: "a", To: "b", Amount: 1, Nonce: 0})}
	dec = roundTrip(t, NewEnvelope("node_3", 1, &StateUpdate{Number: 5, Transactions: txs}))
	su := dec.Payload.(*StateUpdate)
	require.Equal(t, uint64(5), su.Number)
	require.Equal(t, txs[0].Hash(), su.Transactions[0].Hash())
}

func TestHeartbeatAndError(t *testing.T) {
	dec := roundTrip(t, NewEnvelope("node_4", 1, &Heartbeat{BlockHeight: 10, Round: 2}))
	hb := dec.Payload.(*Heartbeat)
	require.Equal(t, uint64(10), hb.BlockHeight)
	require.Equal(t, uint64(2), hb.Round)

	dec = roundTrip(t, NewEnvelope("node_4", 1, &ErrorMsg{Code: 42, Message: "behind"}))
	em := dec.Payload.(*ErrorMsg)
	require.Equal(t, uint32(42), em.Code)
	require.Equal(t, "behind", em.Message)
}

func TestEncodingDeterministic(t *testing.T) {
	env := NewEnvelope("node_1", 1000, &Propose{Round: 3, Block: testBlock()})
	a, err := Encode(env)
	require.NoError(t, err)
	b, err := Encode(env)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode(nil)
	require.ErrorIs(t, err, ErrInvalidMessage)

	_, err = Decode([]byte("XXXX\x01\x01garbage"))
	require.ErrorIs(t, err, ErrInvalidMessage)

	// Wrong version.
	enc, err := Encode(NewEnvelope("n", 1, &Heartbeat{}))
	require.NoError(t, err)
	enc[4] = 0x7f
	_, err = Decode(enc)
	require.ErrorIs(t, err, ErrInvalidMessage)

	// Unknown kind.
	enc, err = Encode(NewEnvelope("n", 1, &Heartbeat{}))
	require.NoError(t, err)
	enc[5] = 0x7f
	_, err = Decode(enc)
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestJSONDebugView(t *testing.T) {
	hash := common.HexToHash("0xb10c")
	raw, err := json.Marshal(NewEnvelope("node_1", 1000, &Prevote{Round: 1, BlockHash: &hash}))
	require.NoError(t, err)

	var view map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &view))
	require.Equal(t, "node_1", view["sender"])
	require.Equal(t, "prevote", view["kind"])
	if _, hasPayload := view["payload"]; !hasPayload {
		t.Fatalf("debug view missing payload")
	}
}

func TestDecodeTruncated(t *testing.T) {
	enc, err := Encode(NewEnvelope("n", 1, &Heartbeat{BlockHeight: 1}))
	require.NoError(t, err)
	for cut := 1; cut < len(enc); cut += 3 {
		if _, err := Decode(enc[:cut]); err == nil {
			t.Fatalf("truncated message at %d decoded successfully", cut)
		}
	}
}
