package sched

import (
	"time"

	"go.uber.org/zap"

	"ccproc/internal/txn"
)

// runMVCCScheduler dispatches every request straight to the worker
// pool; there is no shared lock manager and no separate validator —
// each worker reads its own per-key-locked snapshot, runs the
// program, and validates+applies its own write set before reporting.
// Grounded on original_source/txn/txn_processor.cc's
// RunMVCCScheduler/MVCCExecuteTxn.
func (p *Processor) runMVCCScheduler() {
	for p.pool.Active() {
		t, ok := p.requests.Pop()
		if !ok {
			time.Sleep(time.Microsecond)
			continue
		}
		p.pool.RunTask(func() { p.mvccExecuteTxn(t) })
	}
}

// mvccExecuteTxn reads every key in t's read-set ∪ write-set under
// that key's own per-chain lock (released immediately after the
// read — no lock is held across the whole txn), runs the program,
// then validates and commits the write set key by key in sorted
// order, holding each key's lock across its CheckWrite+Write pair. A
// CheckWrite failure on any key releases every lock acquired during
// the commit phase so far and restarts t with a fresh unique_id.
func (p *Processor) mvccExecuteTxn(t *txn.Txn) {
	t.StartTime = p.clk.Now()

	reads := make(map[txn.Key]txn.Value)
	for _, key := range t.AllKeys() {
		p.mvccStorage.Lock(key)
		if v, ok := p.mvccStorage.Read(key, t.UniqueID); ok {
			reads[key] = v
		}
		p.mvccStorage.Unlock(key)
	}
	t.Reads = reads

	writes, status := t.Program.Run(t.Reads)
	t.Writes = writes
	t.Status = status

	if t.Status != txn.StatusCompletedC {
		if t.Status != txn.StatusCompletedA {
			// finishStatus panics on any other status; running it on a
			// goroutine of its own keeps the pool's recover from
			// swallowing that panic.
			go p.finishStatus(t)
			return
		}
		t.Status = txn.StatusAborted
		p.results.Push(t)
		return
	}

	held := make([]txn.Key, 0, len(t.WriteSet))
	for _, key := range t.WriteSet {
		p.mvccStorage.Lock(key)
		if !p.mvccStorage.CheckWrite(key, t.UniqueID) {
			p.mvccStorage.Unlock(key)
			for _, k := range held {
				p.mvccStorage.Unlock(k)
			}
			p.logger.Debug("mvcc check-write failed",
				zap.Uint64("unique_id", t.UniqueID),
				zap.Uint64("key", uint64(key)),
				zap.Error(txn.ErrValidationConflict))
			p.restart(t)
			return
		}
		held = append(held, key)
	}

	for _, key := range t.WriteSet {
		if v, ok := t.Writes[key]; ok {
			p.mvccStorage.Write(key, v, t.UniqueID)
		}
	}
	for _, key := range held {
		p.mvccStorage.Unlock(key)
	}

	t.Status = txn.StatusCommitted
	p.results.Push(t)
}
