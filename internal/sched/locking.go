package sched

import (
	"time"

	"go.uber.org/zap"

	"ccproc/internal/txn"
)

// runLockingScheduler pops requests off the queue and hands each one
// to the worker pool immediately — unlike Serial, several txns
// process concurrently, with the two-phase lock manager (and the
// scheduler mutex guarding it) serializing conflicting access.
// finishStatus runs in its own dedicated, unwrapped goroutine
// (lockingFinisher) rather than inside a pool-dispatched task, the
// same reason OCC's occValidator and Serial's own scheduler loop run
// it unwrapped: finishStatus panics on an invalid Program.Run status,
// and that panic must crash the process, not be swallowed by the
// pool's recover. Grounded on original_source/txn/txn_processor.cc's
// RunLockingScheduler, which does the same pop-and-dispatch.
func (p *Processor) runLockingScheduler() {
	go p.lockingFinisher()

	for p.pool.Active() {
		t, ok := p.requests.Pop()
		if !ok {
			time.Sleep(time.Microsecond)
			continue
		}
		p.pool.RunTask(func() { p.lockAndExecute(t) })
	}
}

// lockAndExecute acquires every lock t needs and runs it. A
// wound-wait loss (t.UniqueID discovered wounded while acquiring)
// rolls back whatever it held this attempt and re-queues t with a
// fresh unique_id via restart, the same recovery path OCC/MVCC use —
// unlike the mere wait case, a wounded victim cannot simply retry in
// place, since the spec's "re-queues with a new id" (spec.md §8 S3)
// requires a new id.
func (p *Processor) lockAndExecute(t *txn.Txn) {
	if !p.acquireLocks(t) {
		p.logger.Debug("wound-wait victim restarting",
			zap.Uint64("unique_id", t.UniqueID),
			zap.Error(txn.ErrLockConflict))
		p.restart(t)
		return
	}
	p.executeTxn(t)
}

// lockingFinisher drains the completed queue and promotes each txn's
// status, releasing its locks only after finishStatus returns — never
// before, since a panic there must leave the process in a crashing
// state, not a half-released lock table.
func (p *Processor) lockingFinisher() {
	for p.pool.Active() {
		t, ok := p.completed.Pop()
		if !ok {
			time.Sleep(time.Microsecond)
			continue
		}
		p.finishStatus(t)

		p.mu.Lock()
		p.releaseAllLocks(t)
		p.mu.Unlock()

		p.results.Push(t)
	}
}

// acquireLocks acquires every read-set lock (SHARED) then every
// write-set lock (EXCLUSIVE), each set walked in sorted key order, per
// spec.md §4.3. It returns false if t is wounded at any point during
// acquisition — checked before each key and once more after the last
// one — in which case every lock already held this attempt has been
// released before returning.
func (p *Processor) acquireLocks(t *txn.Txn) bool {
	held := make([]txn.Key, 0, len(t.ReadSet)+len(t.WriteSet))

	acquire := func(key txn.Key, exclusive bool) bool {
		if p.checkWounded(t) {
			return false
		}
		if !p.acquireOne(t, key, exclusive) {
			return false
		}
		held = append(held, key)
		return true
	}

	ok := true
	for _, key := range t.ReadSet {
		if !acquire(key, false) {
			ok = false
			break
		}
	}
	if ok {
		for _, key := range t.WriteSet {
			if !acquire(key, true) {
				ok = false
				break
			}
		}
	}
	if ok && p.checkWounded(t) {
		ok = false
	}

	if !ok {
		p.mu.Lock()
		for _, key := range held {
			p.lockMgr.Release(t.UniqueID, key)
		}
		p.mu.Unlock()
	}
	return ok
}

// acquireOne acquires a single lock on key, spinning on the wound-wait
// rule when it isn't granted immediately: t waits and re-polls while
// the current owners are older (smaller id) than t; every current
// owner younger than t is wounded — marked to restart at its next
// checkpoint — while t keeps waiting itself, since t is the older party
// and per spec.md §9's resolved direction the older party never
// restarts on this branch. t also checks its own wound flag on every
// spin, so it can be wounded out from under a wait the same way.
func (p *Processor) acquireOne(t *txn.Txn, key txn.Key, exclusive bool) bool {
	p.mu.Lock()
	var granted bool
	if exclusive {
		granted = p.lockMgr.WriteLock(t.UniqueID, uint64(key))
	} else {
		granted = p.lockMgr.ReadLock(t.UniqueID, uint64(key))
	}
	p.mu.Unlock()
	if granted {
		return true
	}

	for {
		if p.checkWounded(t) {
			p.mu.Lock()
			p.lockMgr.Release(t.UniqueID, uint64(key))
			p.mu.Unlock()
			return false
		}

		p.mu.Lock()
		_, owners := p.lockMgr.Status(uint64(key))
		granted = containsTxn(owners, t.UniqueID)
		if exclusive {
			// t's own SHARED request can make it an owner while its
			// EXCLUSIVE request still waits; only sole ownership grants
			// the write.
			granted = len(owners) == 1 && owners[0] == t.UniqueID
		}
		if granted {
			p.mu.Unlock()
			return true
		}
		if len(owners) == 0 {
			// Transiently empty between removal and promotion; keep
			// polling rather than treating this as an owner decision.
			p.mu.Unlock()
			time.Sleep(time.Microsecond)
			continue
		}
		for _, owner := range owners {
			if owner > t.UniqueID {
				p.wound(owner)
			}
		}
		p.mu.Unlock()
		time.Sleep(time.Microsecond)
	}
}

// releaseAllLocks releases every lock a finished txn held across its
// read-set and its write-set. A key in both sets can carry two
// requests (a SHARED one and an EXCLUSIVE one queued behind it), and
// each Release removes one, so the two sets are released separately.
// Caller must hold p.mu.
func (p *Processor) releaseAllLocks(t *txn.Txn) {
	for _, key := range t.ReadSet {
		p.lockMgr.Release(t.UniqueID, uint64(key))
	}
	for _, key := range t.WriteSet {
		p.lockMgr.Release(t.UniqueID, uint64(key))
	}
}

func containsTxn(owners []uint64, id uint64) bool {
	for _, o := range owners {
		if o == id {
			return true
		}
	}
	return false
}
