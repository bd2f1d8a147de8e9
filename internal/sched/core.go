package sched

import (
	"go.uber.org/zap"

	"ccproc/internal/txn"
)

// executeTxn is the shared lifecycle helper spec.md §4.4 names
// ExecuteTxn: record start_time, read every key in read-set ∪
// write-set from storage into txn.reads, invoke txn.Run() (which
// populates writes and sets COMPLETED_C/COMPLETED_A), then push onto
// the completed queue. Used by Serial, Locking and OCC — MVCC has its
// own per-key-locked read phase (see mvcc.go).
func (p *Processor) executeTxn(t *txn.Txn) {
	t.StartTime = p.clk.Now()

	reads := make(map[txn.Key]txn.Value)
	for _, key := range t.AllKeys() {
		if v, ok := p.storage.Read(key); ok {
			reads[key] = v
		}
	}
	t.Reads = reads

	writes, status := t.Program.Run(t.Reads)
	t.Writes = writes
	t.Status = status

	p.completed.Push(t)
}

// applyWrites writes every buffered write out to storage at
// txn.UniqueID, per spec.md §4.4's ApplyWrites.
func (p *Processor) applyWrites(t *txn.Txn) {
	for k, v := range t.Writes {
		p.storage.Write(k, v, t.UniqueID)
	}
}

// finishStatus promotes a COMPLETED_C/COMPLETED_A txn to
// COMMITTED/ABORTED, applying writes on commit. Any other status at
// this point is a programmer error in Program.Run and is fatal, per
// spec.md §7's InvalidStatus category.
func (p *Processor) finishStatus(t *txn.Txn) {
	switch t.Status {
	case txn.StatusCompletedC:
		p.applyWrites(t)
		t.Status = txn.StatusCommitted
	case txn.StatusCompletedA:
		t.Status = txn.StatusAborted
	default:
		p.logger.Error("program returned an invalid status",
			zap.Uint64("unique_id", t.UniqueID),
			zap.String("status", string(t.Status)),
			zap.Error(txn.ErrInvalidStatus))
		panic(txn.ErrInvalidStatus)
	}
}
