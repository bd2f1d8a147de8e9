package sched

import (
	"time"

	"go.uber.org/zap"

	"ccproc/internal/txn"
)

// runOCCScheduler runs the optimistic scheduler: every txn executes
// against a private read set with no locking at all, then a single
// validator goroutine serially checks each one against storage before
// committing. Grounded on original_source/txn/txn_processor.cc's
// RunOCCScheduler, which likewise fans workers out across a pool and
// funnels validation through one dedicated thread.
func (p *Processor) runOCCScheduler() {
	go p.occValidator()

	for p.pool.Active() {
		t, ok := p.requests.Pop()
		if !ok {
			time.Sleep(time.Microsecond)
			continue
		}
		p.pool.RunTask(func() { p.executeTxn(t) })
	}
}

// occValidator drains the completed queue one txn at a time —
// serially, so there is never a race between reading storage
// timestamps and writing them — and validates each by comparing the
// last-write timestamp of every key in its read-set/write-set with
// the StartTime of its execution attempt.
func (p *Processor) occValidator() {
	for p.pool.Active() {
		t, ok := p.completed.Pop()
		if !ok {
			time.Sleep(time.Microsecond)
			continue
		}

		if t.Status == txn.StatusCompletedA {
			p.finishStatus(t)
			p.results.Push(t)
			continue
		}

		if !p.occValidate(t) {
			p.logger.Debug("occ validation failed",
				zap.Uint64("unique_id", t.UniqueID),
				zap.Error(txn.ErrValidationConflict))
			p.restart(t)
			continue
		}

		p.finishStatus(t)
		// finishStatus stamped the writes with t.UniqueID; restamp
		// them with the clock, read after the values are in storage,
		// so that occValidate compares like with like and any txn that
		// read the old values started before this timestamp.
		commitTime := p.clk.Now()
		for k, v := range t.Writes {
			p.storage.Write(k, v, commitTime)
		}
		p.results.Push(t)
	}
}

// occValidate reports whether every key t touched is still at the
// timestamp it was when t started — i.e. nothing t read or wrote has
// been overwritten by a txn that committed after t began.
func (p *Processor) occValidate(t *txn.Txn) bool {
	for _, key := range t.AllKeys() {
		if p.storage.Timestamp(key) > t.StartTime {
			return false
		}
	}
	return true
}
