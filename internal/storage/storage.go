// Package storage implements the single-version (key -> value,
// last-write timestamp) store consumed by the Serial, Locking and OCC
// schedulers (spec.md §4.1). It adds no locking of its own. Each of
// those three scheduler modes issues all writes from one goroutine
// (the serial loop, the locking finisher, the OCC validator); reads
// from worker goroutines can overlap those writes and rely on the
// internal read-write lock that btree.NewBTreeG enables by default.
package storage

import (
	"github.com/tidwall/btree"

	"ccproc/internal/txn"
)

type record struct {
	key   txn.Key
	value txn.Value
	ts    uint64
}

// Storage is the single-version key/value store. The backing
// container is a github.com/tidwall/btree.BTreeG, the same
// generic-ordered-container dependency the teacher's multi-version
// store uses — and keeps records ordered by key. Storage exposes no
// iteration over that order; the locking scheduler's key-sorted
// acquisition order comes from the Txn's own sorted ReadSet/WriteSet.
type Storage struct {
	tree *btree.BTreeG[record]
}

func New() *Storage {
	return &Storage{
		tree: btree.NewBTreeG(func(a, b record) bool { return a.key < b.key }),
	}
}

// InitStorage seeds keys 0..10^6 with value 0 and timestamp 0 so
// benchmark workloads find records (spec.md §4.1).
func (s *Storage) InitStorage() {
	for i := txn.Key(0); i <= 1_000_000; i++ {
		s.tree.Set(record{key: i, value: 0, ts: 0})
	}
}

// Read is a pure lookup.
func (s *Storage) Read(key txn.Key) (txn.Value, bool) {
	r, ok := s.tree.Get(record{key: key})
	if !ok {
		return 0, false
	}
	return r.value, true
}

// Write upserts value and sets the key's last-write timestamp to ts.
func (s *Storage) Write(key txn.Key, value txn.Value, ts uint64) {
	s.tree.Set(record{key: key, value: value, ts: ts})
}

// Timestamp returns 0 if the key is absent.
func (s *Storage) Timestamp(key txn.Key) uint64 {
	r, ok := s.tree.Get(record{key: key})
	if !ok {
		return 0
	}
	return r.ts
}
