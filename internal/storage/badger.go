package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	badger "github.com/dgraph-io/badger/v4"

	"coinforge/internal/model"
)

const snapshotKeyPrefix = "snapshot/"

// BadgerSnapshotStore keeps named snapshots in an embedded Badger database.
type BadgerSnapshotStore struct {
	db   *badger.DB
	name string
}

// OpenBadger opens (or creates) the database at dir. An empty dir opens an
// in-memory database.
func OpenBadger(dir, name string) (*BadgerSnapshotStore, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("snapshot name is required")
	}
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerSnapshotStore{db: db, name: name}, nil
}

func (s *BadgerSnapshotStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *BadgerSnapshotStore) key() []byte {
	return []byte(snapshotKeyPrefix + s.name)
}

func (s *BadgerSnapshotStore) Load(ctx context.Context) (model.Snapshot, bool, error) {
	var snap model.Snapshot
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key())
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &snap); err != nil {
				return fmt.Errorf("parse snapshot: %w", err)
			}
			found = true
			return nil
		})
	})
	if err != nil {
		return model.Snapshot{}, false, fmt.Errorf("load snapshot: %w", err)
	}
	return snap, found, nil
}

func (s *BadgerSnapshotStore) Save(ctx context.Context, snap model.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.key(), data)
	})
}
