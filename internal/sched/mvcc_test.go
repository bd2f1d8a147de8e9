package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ccproc/internal/txn"
)

// TestMVCCSchedulerSerializesConflictingWrites mirrors the other two
// scheduler tests: many concurrent increments of the same key, none
// lost, every one eventually committed (after however many
// CheckWrite-triggered restarts).
func TestMVCCSchedulerSerializesConflictingWrites(t *testing.T) {
	p := NewProcessor(Config{Mode: MVCC, NumWorkers: 8})
	defer p.Stop()

	const n = 40
	for i := 0; i < n; i++ {
		p.Submit(txn.New(0, []txn.Key{1}, []txn.Key{1}, incrementBy([]txn.Key{1}, 1)))
	}

	for i := 0; i < n; i++ {
		result := waitResult(t, p)
		assert.Equal(t, txn.StatusCommitted, result.Status)
	}

	p.mvccStorage.Lock(1)
	v, ok := p.mvccStorage.Read(1, ^uint64(0))
	p.mvccStorage.Unlock(1)
	require.True(t, ok)
	assert.Equal(t, txn.Value(n), v)
}

// TestMVCCSchedulerProgramAbortNeverWrites checks a txn whose program
// aborts never installs a version, regardless of CheckWrite.
func TestMVCCSchedulerProgramAbortNeverWrites(t *testing.T) {
	p := NewProcessor(Config{Mode: MVCC})
	defer p.Stop()

	p.Submit(txn.New(0, nil, []txn.Key{9}, alwaysAbort()))
	result := waitResult(t, p)
	assert.Equal(t, txn.StatusAborted, result.Status)

	p.mvccStorage.Lock(9)
	v, ok := p.mvccStorage.Read(9, ^uint64(0))
	p.mvccStorage.Unlock(9)
	require.True(t, ok)
	assert.Equal(t, txn.Value(0), v)
}
