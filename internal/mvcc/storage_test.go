package mvcc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadOfUnseededKeyIsNotFound(t *testing.T) {
	s := New()
	s.Lock(1)
	defer s.Unlock(1)

	_, ok := s.Read(1, 100)
	assert.False(t, ok)
}

func TestReadSelectsNewestVersionAtOrBeforeReaderID(t *testing.T) {
	s := New()
	const key = 1

	s.Lock(key)
	s.Write(key, 10, 5)  // version_id 5
	s.Write(key, 20, 15) // version_id 15, now head
	s.Unlock(key)

	s.Lock(key)
	v, ok := s.Read(key, 9) // between 5 and 15: sees the id-5 version
	s.Unlock(key)
	assert.True(t, ok)
	assert.Equal(t, uint64(10), v)

	s.Lock(key)
	v, ok = s.Read(key, 20) // at/after 15: sees the newest version
	s.Unlock(key)
	assert.True(t, ok)
	assert.Equal(t, uint64(20), v)
}

func TestCheckWriteRejectsWhenEveryVersionIsNewerThanWriter(t *testing.T) {
	s := New()
	const key = 1

	s.Lock(key)
	s.Write(key, 10, 50) // only version is at id 50
	ok := s.CheckWrite(key, 10)
	s.Unlock(key)

	// Writer id 10 has no version it could legally shadow (the sole
	// version was written by a larger id) — it must restart.
	assert.False(t, ok)
}

// TestCheckWriteRejectsWhenQualifyingVersionWasReadByALaterTxn is the
// fix spec.md mandates over the original source's incomplete check:
// a write must also fail if a reader with a larger id already
// observed the version it would shadow (Thomas write rule violation).
func TestCheckWriteRejectsWhenQualifyingVersionWasReadByALaterTxn(t *testing.T) {
	s := New()
	const key = 1

	s.Lock(key)
	s.Write(key, 10, 5) // version_id 5
	_, _ = s.Read(key, 50)
	ok := s.CheckWrite(key, 20) // writer 20 < reader 50 that already saw this version
	s.Unlock(key)

	assert.False(t, ok)
}

func TestCheckWriteAcceptsWhenQualifyingVersionWasOnlyReadByEarlierTxns(t *testing.T) {
	s := New()
	const key = 1

	s.Lock(key)
	s.Write(key, 10, 5)
	_, _ = s.Read(key, 8)
	ok := s.CheckWrite(key, 20)
	s.Unlock(key)

	assert.True(t, ok)
}

func TestCheckWriteOnEmptyChainAlwaysAccepts(t *testing.T) {
	s := New()
	s.Lock(1)
	ok := s.CheckWrite(1, 100)
	s.Unlock(1)
	assert.True(t, ok)
}

func TestWritePushesNewestVersionAtHead(t *testing.T) {
	s := New()
	const key = 1

	s.Lock(key)
	s.Write(key, 1, 1)
	s.Write(key, 2, 2)
	v, ok := s.Read(key, 100)
	s.Unlock(key)

	assert.True(t, ok)
	assert.Equal(t, uint64(2), v)
}
