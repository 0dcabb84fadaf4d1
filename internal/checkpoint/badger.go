package checkpoint

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"
)

const keyPrefix = "tail:"

// BadgerStore implements Store on a BadgerDB key-value database.
// Values are msgpack-encoded TailState records.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadgerStore opens (or creates) a database in dir. An empty dir opens
// an in-memory database.
func OpenBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint db: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// Load returns the saved state for fileIdentity.
func (s *BadgerStore) Load(_ context.Context, fileIdentity string) (TailState, error) {
	var st TailState
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + fileIdentity))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get checkpoint: %w", err)
		}
		return item.Value(func(val []byte) error {
			return msgpack.Unmarshal(val, &st)
		})
	})
	if err != nil {
		return TailState{}, err
	}
	return st, nil
}

// Save records state, replacing any previous value for the same file.
func (s *BadgerStore) Save(_ context.Context, state TailState) error {
	data, err := msgpack.Marshal(&state)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+state.FileIdentity), data)
	})
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
