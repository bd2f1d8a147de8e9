package sched

import "time"

// runSerialScheduler pops one request at a time, executes it fully,
// commits or aborts per its program's decision, and returns the
// result — single-threaded, trivially serializable. Grounded
// directly on original_source/txn/txn_processor.cc's
// RunSerialScheduler.
func (p *Processor) runSerialScheduler() {
	for p.pool.Active() {
		t, ok := p.requests.Pop()
		if !ok {
			time.Sleep(time.Microsecond)
			continue
		}

		p.executeTxn(t)
		// executeTxn pushed onto completed; drain it immediately —
		// Serial mode never runs two txns concurrently, so there is
		// always exactly one entry waiting here.
		t, _ = p.completed.Pop()

		p.finishStatus(t)
		p.results.Push(t)
	}
}
