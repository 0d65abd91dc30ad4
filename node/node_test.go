package node

import (
	stded25519 "crypto/ed25519"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/jbino85/techgnosis/consensus/bft"
	"github.com/jbino85/techgnosis/core/types"
	"github.com/jbino85/techgnosis/crypto"
	"github.com/jbino85/techgnosis/osodb"
	"github.com/jbino85/techgnosis/validator"
)

// testCouncil returns n validators with their signing keys.
func testCouncil(n int) ([]validator.Validator, map[string]stded25519.PrivateKey) {
	vals := make([]validator.Validator, n)
	privs := make(map[string]stded25519.PrivateKey, n)
	for i := range vals {
		seed := make([]byte, stded25519.SeedSize)
		seed[0] = byte(i + 1)
		priv := stded25519.NewKeyFromSeed(seed)
		pub := priv.Public().(stded25519.PublicKey)
		addr := fmt.Sprintf("v%d", i+1)
		var pk [validator.PublicKeySize]byte
		copy(pk[:], pub)
		vals[i] = validator.New(addr, pk)
		privs[addr] = priv
	}
	return vals, privs
}

func TestNewPropagatesSetErrors(t *testing.T) {
	vals, _ := testCouncil(2)
	if _, err := New("v1", vals, 1); !errors.Is(err, validator.ErrInvalidThreshold) {
		t.Fatalf("expected ErrInvalidThreshold, got: %v", err)
	}
	if _, err := New("v1", nil, 1); !errors.Is(err, validator.ErrEmptySet) {
		t.Fatalf("expected ErrEmptySet, got: %v", err)
	}
}

func TestNewLoadsPubkeys(t *testing.T) {
	vals, privs := testCouncil(3)
	n, err := New("v1", vals, 2)
	if err != nil {
		t.Fatalf("building node: %v", err)
	}
	// The vote path only works if the keys were cached at startup.
	hash := n.StateRoot()
	v := &bft.Vote{Round: 0, Phase: bft.PhasePrevote, BlockHash: &hash, Validator: "v2"}
	digest := v.SigningDigest()
	v.Signature = crypto.Sign(privs["v2"], digest[:])
	if err := n.Engine().AddPrevote(v); err != nil {
		t.Fatalf("vote rejected, pubkeys not loaded: %v", err)
	}
}

// TestBlockLifecycle drives the full propose → sign → validate → finalize
// pipeline for a basic transfer.
func TestBlockLifecycle(t *testing.T) {
	vals, privs := testCouncil(3)
	n, err := New("v1", vals, 2)
	if err != nil {
		t.Fatalf("building node: %v", err)
	}
	n.State().SetBalance("alice", 1000)

	tx := types.NewTx(&types.TransferTx{From: "alice", To: "bob", Amount: 100, Nonce: 0})
	block, err := n.ProposeBlock(types.Transactions{tx})
	if err != nil {
		t.Fatalf("proposing: %v", err)
	}

	// A quorum of validators signs the header hash.
	hash := block.Hash()
	block.Header.AddSignature("v1", crypto.Sign(privs["v1"], hash.Bytes()))
	block.Header.AddSignature("v2", crypto.Sign(privs["v2"], hash.Bytes()))

	if err := n.ValidateBlock(block); err != nil {
		t.Fatalf("validating: %v", err)
	}
	if err := n.FinalizeBlock(block); err != nil {
		t.Fatalf("finalizing: %v", err)
	}

	if got, want := n.BlockHeight(), uint64(1); got != want {
		t.Fatalf("unexpected height: have %d want %d", got, want)
	}
	alice, _ := n.GetAccount("alice")
	bob, _ := n.GetAccount("bob")
	if alice.Balance != 900 || alice.Nonce != 1 {
		t.Fatalf("unexpected sender state: balance=%d nonce=%d", alice.Balance, alice.Nonce)
	}
	if bob.Balance != 100 {
		t.Fatalf("unexpected recipient balance: %d", bob.Balance)
	}
	if n.StateRoot().IsZero() {
		t.Fatalf("state root not recomputed after finalize")
	}
}

func TestValidateRejectsUnsigned(t *testing.T) {
	vals, _ := testCouncil(3)
	n, err := New("v1", vals, 2)
	if err != nil {
		t.Fatalf("building node: %v", err)
	}
	n.State().SetBalance("alice", 1000)

	tx := types.NewTx(&types.TransferTx{From: "alice", To: "bob", Amount: 100, Nonce: 0})
	block, err := n.ProposeBlock(types.Transactions{tx})
	if err != nil {
		t.Fatalf("proposing: %v", err)
	}
	err = n.ValidateBlock(block)
	var insufficient *crypto.InsufficientSignaturesError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientSignaturesError, got: %v", err)
	}
	if insufficient.Required != 2 || insufficient.Actual != 0 {
		t.Fatalf("unexpected counts: %+v", insufficient)
	}
}

func TestFailedFinalizeLeavesStateUntouched(t *testing.T) {
	vals, _ := testCouncil(3)
	n, err := New("v1", vals, 2)
	if err != nil {
		t.Fatalf("building node: %v", err)
	}
	n.State().SetBalance("alice", 50)

	// Hand-built block bypassing the proposer pre-flight.
	header := types.NewHeader(1, n.StateRoot(), 1000, n.StateRoot(), n.StateRoot(), 0)
	block := types.NewBlock(header, types.Transactions{
		types.NewTx(&types.TransferTx{From: "alice", To: "bob", Amount: 100, Nonce: 0}),
	})
	if err := n.FinalizeBlock(block); err == nil {
		t.Fatalf("overdrawing block finalized")
	}
	alice, _ := n.GetAccount("alice")
	if alice.Balance != 50 || n.BlockHeight() != 0 {
		t.Fatalf("failed finalize leaked: balance=%d height=%d", alice.Balance, n.BlockHeight())
	}
}

func TestArchiveWriteThrough(t *testing.T) {
	store, err := osodb.Open(filepath.Join(t.TempDir(), "chain"))
	if err != nil {
		t.Fatalf("opening archive: %v", err)
	}
	defer store.Close()

	vals, privs := testCouncil(3)
	n, err := New("v1", vals, 2, WithArchive(store))
	if err != nil {
		t.Fatalf("building node: %v", err)
	}
	n.State().SetBalance("alice", 1000)

	tx := types.NewTx(&types.TransferTx{From: "alice", To: "bob", Amount: 100, Nonce: 0})
	block, err := n.ProposeBlock(types.Transactions{tx})
	if err != nil {
		t.Fatalf("proposing: %v", err)
	}
	hash := block.Hash()
	block.Header.AddSignature("v1", crypto.Sign(privs["v1"], hash.Bytes()))
	block.Header.AddSignature("v2", crypto.Sign(privs["v2"], hash.Bytes()))
	if err := n.FinalizeBlock(block); err != nil {
		t.Fatalf("finalizing: %v", err)
	}

	served, err := n.ServeBlock(1)
	if err != nil {
		t.Fatalf("serving block: %v", err)
	}
	if served.Hash() != block.Hash() {
		t.Fatalf("archive returned a different block")
	}

	update, err := n.ServeStateUpdate(1)
	if err != nil {
		t.Fatalf("serving state update: %v", err)
	}
	if update.Number != 1 || len(update.Transactions) != 1 || update.Transactions[0].Hash() != tx.Hash() {
		t.Fatalf("unexpected state update: %+v", update)
	}

	hb := n.Heartbeat()
	if hb.BlockHeight != 1 || hb.Round != 0 {
		t.Fatalf("unexpected heartbeat: %+v", hb)
	}
}

func TestServeBlockWithoutArchive(t *testing.T) {
	vals, _ := testCouncil(3)
	n, err := New("v1", vals, 2)
	if err != nil {
		t.Fatalf("building node: %v", err)
	}
	if _, err := n.ServeBlock(1); !errors.Is(err, osodb.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
}
