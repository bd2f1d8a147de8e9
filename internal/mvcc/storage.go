// Package mvcc implements the multi-version storage consumed by the
// MVCC scheduler (spec.md §4.2): a newest-first version chain per
// key, each chain guarded by its own mutex. Callers must hold a key's
// mutex (via Lock/Unlock) around every chain inspection or mutation
// for that key — Read, CheckWrite and Write all assume the caller
// already holds it, exactly as spec.md requires.
package mvcc

import (
	"sync"

	"ccproc/internal/txn"
)

// version is (value, version_id, max_read_id) from spec.md §3.
// version_id is the unique_id of the writer; max_read_id is the
// greatest unique_id of any reader that has observed this version.
type version struct {
	value      txn.Value
	versionID  uint64
	maxReadID  uint64
}

type chain struct {
	mu       sync.Mutex
	versions []*version // newest-first
}

// Storage is the per-key version-chain store. The outer map is
// guarded by a RWMutex only for the insert-new-key path; once a
// chain exists its own mutex is what callers actually hold across
// Read/CheckWrite/Write, mirroring the teacher's MvStore.lock pattern
// of a coarse lock guarding container topology and finer-grained
// state guarding the entries themselves.
type Storage struct {
	mu     sync.RWMutex
	chains map[txn.Key]*chain
}

func New() *Storage {
	return &Storage{chains: make(map[txn.Key]*chain)}
}

// InitStorage seeds keys 0..10^6 with version 0 written at writer id 0,
// matching storage.Storage's seeding so benchmark workloads see the
// same initial state under either mode.
func (s *Storage) InitStorage() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := txn.Key(0); i <= 1_000_000; i++ {
		s.chains[i] = &chain{versions: []*version{{value: 0, versionID: 0, maxReadID: 0}}}
	}
}

func (s *Storage) chainFor(key txn.Key, createIfMissing bool) *chain {
	s.mu.RLock()
	c, ok := s.chains[key]
	s.mu.RUnlock()
	if ok {
		return c
	}
	if !createIfMissing {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok = s.chains[key]; ok {
		return c
	}
	c = &chain{}
	s.chains[key] = c
	return c
}

// Lock acquires the per-key mutex protecting key's version chain.
func (s *Storage) Lock(key txn.Key) {
	s.chainFor(key, true).mu.Lock()
}

// Unlock releases the per-key mutex protecting key's version chain.
func (s *Storage) Unlock(key txn.Key) {
	s.chainFor(key, true).mu.Unlock()
}

// Read selects the version with the greatest version_id <= readerID,
// updates its max_read_id to max(max_read_id, readerID), and returns
// its value. An absent key or empty chain reports not-found. The
// caller must hold key's mutex.
func (s *Storage) Read(key txn.Key, readerID uint64) (txn.Value, bool) {
	c := s.chainFor(key, false)
	if c == nil {
		return 0, false
	}

	v := latestAtOrBefore(c.versions, readerID)
	if v == nil {
		return 0, false
	}
	if readerID > v.maxReadID {
		v.maxReadID = readerID
	}
	return v.value, true
}

// CheckWrite reports whether a write by writerID may proceed: true
// iff the chain is empty, or the version V with the greatest
// version_id <= writerID has max_read_id <= writerID. The half of
// this check comparing max_read_id to writerID is the fix spec.md
// mandates over the source's incomplete version (spec.md §4.2, §9).
// The caller must hold key's mutex.
func (s *Storage) CheckWrite(key txn.Key, writerID uint64) bool {
	c := s.chainFor(key, false)
	if c == nil || len(c.versions) == 0 {
		return true
	}

	v := latestAtOrBefore(c.versions, writerID)
	if v == nil {
		// Every existing version is newer than writerID: there is no
		// version this write could legally shadow, so it must
		// restart with a larger id. Mirrors the source falling
		// through to its "valid_version->version_id_ > txn_unique_id"
		// rejection branch.
		return false
	}
	return v.maxReadID <= writerID
}

// Write pushes a new version at the head of key's chain. The caller
// must already hold key's mutex and must have called CheckWrite under
// that same held mutex and received true.
func (s *Storage) Write(key txn.Key, value txn.Value, writerID uint64) {
	c := s.chainFor(key, true)
	v := &version{value: value, versionID: writerID, maxReadID: writerID}
	c.versions = append([]*version{v}, c.versions...)
}

// latestAtOrBefore returns the version with the greatest version_id
// <= id, or nil if none qualifies. versions is newest-first but not
// guaranteed contiguous in id order (restarts can interleave ids out
// of chain-insertion order), so this scans rather than assuming the
// head qualifies.
func latestAtOrBefore(versions []*version, id uint64) *version {
	var best *version
	for _, v := range versions {
		if v.versionID <= id && (best == nil || v.versionID > best.versionID) {
			best = v
		}
	}
	return best
}
