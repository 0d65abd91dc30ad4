// Package osodb provides an optional on-disk archive of finalized blocks.
// The consensus core runs entirely in memory; the archive is a write-through
// convenience for sync serving and restarts.
package osodb

import (
	"encoding/binary"
	"errors"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/jbino85/techgnosis/common"
	"github.com/jbino85/techgnosis/core/types"
)

// ErrNotFound is returned when the requested entry is not in the archive.
var ErrNotFound = errors.New("osodb: not found")

var (
	blockPrefix = []byte("b") // blockPrefix + num (8B BE) → RLP(block)
	hashPrefix  = []byte("h") // hashPrefix + num (8B BE) → block hash
)

// Store is a leveldb-backed block archive.
type Store struct {
	db *leveldb.DB
}

// Open opens (or creates) an archive at path.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func blockKey(number uint64) []byte {
	key := make([]byte, len(blockPrefix)+8)
	copy(key, blockPrefix)
	binary.BigEndian.PutUint64(key[len(blockPrefix):], number)
	return key
}

func hashKey(number uint64) []byte {
	key := make([]byte, len(hashPrefix)+8)
	copy(key, hashPrefix)
	binary.BigEndian.PutUint64(key[len(hashPrefix):], number)
	return key
}

// WriteBlock stores a finalized block and its canonical hash.
func (s *Store) WriteBlock(block *types.Block) error {
	enc, err := rlp.EncodeToBytes(block)
	if err != nil {
		return err
	}
	batch := new(leveldb.Batch)
	batch.Put(blockKey(block.Number()), enc)
	hash := block.Hash()
	batch.Put(hashKey(block.Number()), hash.Bytes())
	return s.db.Write(batch, nil)
}

// ReadBlock loads a block by height.
func (s *Store) ReadBlock(number uint64) (*types.Block, error) {
	enc, err := s.db.Get(blockKey(number), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	block := new(types.Block)
	if err := rlp.DecodeBytes(enc, block); err != nil {
		return nil, err
	}
	return block, nil
}

// ReadCanonicalHash loads the recorded hash for a height.
func (s *Store) ReadCanonicalHash(number uint64) (common.Hash, error) {
	raw, err := s.db.Get(hashKey(number), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return common.Hash{}, ErrNotFound
	}
	if err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(raw), nil
}
