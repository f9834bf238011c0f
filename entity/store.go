package entity

import (
	"encoding/binary"

	"go.etcd.io/bbolt"

	"github.com/xlnfinance/xln-sub008/ledger"
)

var snapshotBucket = []byte("entity_snapshots")

// EntityStore persists an opaque snapshot blob per entity ID. Nothing in
// this package dictates the blob's format; that's cmd/xlnd's choice
// (e.g. a gob-encoded Entity). Persistence itself is out of scope for
// the protocol (spec §1); this only specifies a swappable crash-
// recovery backend an embedding process may wire in.
type EntityStore interface {
	SaveSnapshot(id ledger.EntityID, data []byte) error
	LoadSnapshot(id ledger.EntityID) (data []byte, ok bool, err error)
}

// BoltEntityStore is an EntityStore backed by a single bbolt file, one
// key per entity ID in a fixed bucket. Grounded on the teacher's
// pktwallet/walletdb bdb driver: a single long-lived *bbolt.DB handle,
// one bucket per logical table, each access wrapped in its own
// View/Update transaction.
type BoltEntityStore struct {
	db *bbolt.DB
}

// OpenBoltEntityStore opens (creating if absent) the bbolt file at path
// and ensures the snapshot bucket exists.
func OpenBoltEntityStore(path string) (*BoltEntityStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(snapshotBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltEntityStore{db: db}, nil
}

func (s *BoltEntityStore) Close() error {
	return s.db.Close()
}

func (s *BoltEntityStore) SaveSnapshot(id ledger.EntityID, data []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(snapshotBucket).Put(entityKey(id), data)
	})
}

func (s *BoltEntityStore) LoadSnapshot(id ledger.EntityID) ([]byte, bool, error) {
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(snapshotBucket).Get(entityKey(id))
		if v == nil {
			return nil
		}
		// bbolt's returned slice is only valid inside this transaction.
		out = append([]byte{}, v...)
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, out != nil, nil
}

func entityKey(id ledger.EntityID) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(id))
	return b[:]
}
