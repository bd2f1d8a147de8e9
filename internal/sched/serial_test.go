package sched

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ccproc/internal/txn"
)

// incrementBy returns a Program that reads every key in keys, writes
// each back incremented by delta, and always commits.
func incrementBy(keys []txn.Key, delta txn.Value) txn.Program {
	return txn.ProgramFunc(func(reads map[txn.Key]txn.Value) (map[txn.Key]txn.Value, txn.TxnStatus) {
		writes := make(map[txn.Key]txn.Value, len(keys))
		for _, k := range keys {
			writes[k] = reads[k] + delta
		}
		return writes, txn.StatusCompletedC
	})
}

func alwaysAbort() txn.Program {
	return txn.ProgramFunc(func(map[txn.Key]txn.Value) (map[txn.Key]txn.Value, txn.TxnStatus) {
		return nil, txn.StatusCompletedA
	})
}

func TestSerialSchedulerCommitsSequentialIncrements(t *testing.T) {
	p := NewProcessor(Config{Mode: Serial, NumWorkers: 2})
	defer p.Stop()

	const n = 50
	for i := 0; i < n; i++ {
		p.Submit(txn.New(0, []txn.Key{1}, []txn.Key{1}, incrementBy([]txn.Key{1}, 1)))
	}

	for i := 0; i < n; i++ {
		result := waitResult(t, p)
		assert.Equal(t, txn.StatusCommitted, result.Status)
	}

	v, ok := p.storage.Read(1)
	require.True(t, ok)
	assert.Equal(t, txn.Value(n), v)
}

func TestSerialSchedulerAbortNeverAppliesWrites(t *testing.T) {
	p := NewProcessor(Config{Mode: Serial})
	defer p.Stop()

	p.Submit(txn.New(0, nil, []txn.Key{9}, alwaysAbort()))
	result := waitResult(t, p)
	assert.Equal(t, txn.StatusAborted, result.Status)

	v, ok := p.storage.Read(9)
	require.True(t, ok)
	assert.Equal(t, txn.Value(0), v)
}

// waitResult polls GetResult with a test-scoped timeout so a stuck
// scheduler fails the test instead of hanging the suite.
func waitResult(t *testing.T, p *Processor) *txn.Txn {
	t.Helper()
	done := make(chan *txn.Txn, 1)
	go func() { done <- p.GetResult() }()
	select {
	case r := <-done:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for result")
		return nil
	}
}
