// Package lock implements the deterministic two-phase lock manager
// with wound-wait deadlock avoidance (spec.md §4.3). All four public
// methods are meant to be invoked by a caller holding one external
// mutex across each call (the scheduler's global mutex, per spec.md
// §4.3) — the manager itself does no internal locking, matching the
// source's LockManagerA, which is only ever touched while the
// TxnProcessor's own mutex is held.
package lock

import "container/list"

// Mode is SHARED or EXCLUSIVE, the strength of a single request, or
// UNLOCKED when reported by Status for a key with no queue at all.
type Mode int

const (
	Unlocked Mode = iota
	Shared
	Exclusive
)

// request is a (mode, txn id) pair sitting in a key's queue. Queue
// position encodes grant order, per spec.md §3's LockRequest
// invariant.
type request struct {
	mode Mode
	txn  uint64
}

// Manager is the lock table plus wait-set bookkeeping (spec.md §3's
// LockTable and WaitSet). ready is the output queue of txns whose
// last blocking lock has just been granted; Release appends to it.
type Manager struct {
	queues map[uint64]*list.List // key -> *list.List of request
	waits  map[uint64]int        // txn id -> outstanding lock count
	ready  []uint64
}

func New() *Manager {
	return &Manager{
		queues: make(map[uint64]*list.List),
		waits:  make(map[uint64]int),
	}
}

func (m *Manager) queueFor(key uint64) *list.List {
	q, ok := m.queues[key]
	if !ok {
		q = list.New()
		m.queues[key] = q
	}
	return q
}

// headMode reports the mode of the queue head, or false if the queue
// is empty.
func headMode(q *list.List) (Mode, bool) {
	if q.Len() == 0 {
		return 0, false
	}
	return q.Front().Value.(request).mode, true
}

// WriteLock attempts to grant txn an exclusive lock on key. Grant
// rules (spec.md §4.3):
//   - empty queue: insert EXCLUSIVE, granted.
//   - txn already the sole owner (SHARED alone, or EXCLUSIVE):
//     upgrade in place / idempotent, granted.
//   - otherwise: append EXCLUSIVE, bump the wait count, not granted.
func (m *Manager) WriteLock(txnID, key uint64) bool {
	q := m.queueFor(key)

	if q.Len() == 0 {
		q.PushBack(request{mode: Exclusive, txn: txnID})
		return true
	}

	if m.soleOwner(q, txnID) {
		m.upgradeInPlace(q, txnID)
		return true
	}

	q.PushBack(request{mode: Exclusive, txn: txnID})
	m.waits[txnID]++
	return false
}

// ReadLock attempts to grant txn a shared lock on key. Grant rules
// (spec.md §4.3):
//   - empty queue, or head is SHARED: insert SHARED at the end of the
//     SHARED prefix, ahead of any EXCLUSIVE request, granted.
//   - head is EXCLUSIVE (and txn isn't that owner): append SHARED,
//     bump the wait count, not granted.
func (m *Manager) ReadLock(txnID, key uint64) bool {
	q := m.queueFor(key)

	if q.Len() == 0 {
		q.PushBack(request{mode: Shared, txn: txnID})
		return true
	}

	if mode, _ := headMode(q); mode == Shared {
		m.insertIntoSharedPrefix(q, txnID)
		return true
	}

	// Head is EXCLUSIVE. If this txn is already that sole owner,
	// a ReadLock while holding EXCLUSIVE is a no-op grant.
	if q.Front().Value.(request).txn == txnID {
		return true
	}

	q.PushBack(request{mode: Shared, txn: txnID})
	m.waits[txnID]++
	return false
}

// soleOwner reports whether txnID is the current sole owner of q —
// either the lone SHARED owner or the EXCLUSIVE head.
func (m *Manager) soleOwner(q *list.List, txnID uint64) bool {
	mode, ok := headMode(q)
	if !ok {
		return false
	}
	if mode == Exclusive {
		return q.Front().Value.(request).txn == txnID
	}
	// SHARED head: owner set is every SHARED prefix entry. txnID is
	// the sole owner iff it's the only entry in that prefix.
	count := 0
	isOwner := false
	for e := q.Front(); e != nil; e = e.Next() {
		r := e.Value.(request)
		if r.mode != Shared {
			break
		}
		count++
		if r.txn == txnID {
			isOwner = true
		}
	}
	return count == 1 && isOwner
}

// upgradeInPlace converts txnID's existing sole-SHARED request into
// EXCLUSIVE without changing queue position.
func (m *Manager) upgradeInPlace(q *list.List, txnID uint64) {
	for e := q.Front(); e != nil; e = e.Next() {
		r := e.Value.(request)
		if r.txn == txnID {
			e.Value = request{mode: Exclusive, txn: txnID}
			return
		}
	}
}

// insertIntoSharedPrefix inserts a new SHARED request at the end of
// the existing SHARED prefix (i.e. right before the first EXCLUSIVE
// entry, or at the end of the queue if there is none).
func (m *Manager) insertIntoSharedPrefix(q *list.List, txnID uint64) {
	for e := q.Front(); e != nil; e = e.Next() {
		if e.Value.(request).mode == Exclusive {
			q.InsertBefore(request{mode: Shared, txn: txnID}, e)
			return
		}
	}
	q.PushBack(request{mode: Shared, txn: txnID})
}

// Release removes txn's request for key. Idempotent if txn holds no
// request for key. If the removed request was an owner and its
// removal exposes new owners at the head, each newly-granted txn's
// wait count is decremented; a waiter whose count reaches zero is
// appended to the ready queue exactly once (spec.md §4.3).
func (m *Manager) Release(txnID, key uint64) {
	q, ok := m.queues[key]
	if !ok {
		return
	}

	_, before := m.Status(key)
	wasOwner, idx := m.removeRequest(q, txnID)
	if idx == -1 {
		// txn held no request for key: idempotent no-op.
		return
	}

	if wasOwner {
		// Any entry of the SHARED prefix reports wasOwner, not only the
		// head. promoteNewOwners walks the new head either way and
		// grants only txns that were not already owners before.
		m.promoteNewOwners(q, before)
		return
	}

	// txn was merely queued as a waiter on this key — most likely
	// self-cancelling mid wound-wait rollback. Decrement its own
	// wait count without pushing it onto the ready queue: that queue
	// is reserved for txns some OTHER txn's release just unblocked.
	if c, ok := m.waits[txnID]; ok {
		if c <= 1 {
			delete(m.waits, txnID)
		} else {
			m.waits[txnID] = c - 1
		}
	}
}

// removeRequest deletes txn's entry from q, reporting whether it was
// an owner (in the EXCLUSIVE-head's sole slot, or in the SHARED
// prefix preceding any EXCLUSIVE entry) and its index in the
// pre-removal queue. index is -1 if txn held no request.
func (m *Manager) removeRequest(q *list.List, txnID uint64) (wasOwner bool, index int) {
	headIsExclusive := false
	if mode, ok := headMode(q); ok && mode == Exclusive {
		headIsExclusive = true
	}

	i := 0
	prefixOpen := true
	for e := q.Front(); e != nil; e = e.Next() {
		r := e.Value.(request)

		var owner bool
		if headIsExclusive {
			owner = i == 0
		} else {
			owner = prefixOpen && r.mode == Shared
			if r.mode == Exclusive {
				prefixOpen = false
			}
		}

		if r.txn == txnID {
			q.Remove(e)
			return owner, i
		}
		i++
	}
	return false, -1
}

// promoteNewOwners walks from the head after a removal, granting every
// owner of the new SHARED prefix (or the new EXCLUSIVE head) that is
// not in before, the owner list from just before the removal, and
// moving any txn whose wait count hits zero onto the ready queue.
func (m *Manager) promoteNewOwners(q *list.List, before []uint64) {
	mode, ok := headMode(q)
	if !ok {
		return
	}

	for e := q.Front(); e != nil; e = e.Next() {
		r := e.Value.(request)
		if mode == Shared && r.mode != Shared {
			break
		}
		if !containsID(before, r.txn) {
			m.grant(r.txn)
		}
		if mode == Exclusive {
			break
		}
	}
}

func containsID(ids []uint64, id uint64) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func (m *Manager) grant(txnID uint64) {
	count, waiting := m.waits[txnID]
	if !waiting || count == 0 {
		return
	}
	count--
	if count == 0 {
		delete(m.waits, txnID)
		m.ready = append(m.ready, txnID)
	} else {
		m.waits[txnID] = count
	}
}

// Status reports key's current owners: if the head is EXCLUSIVE,
// (EXCLUSIVE, [head.txn]); otherwise (SHARED, every SHARED owner in
// head order); an empty queue reports UNLOCKED.
func (m *Manager) Status(key uint64) (Mode, []uint64) {
	q, ok := m.queues[key]
	if !ok || q.Len() == 0 {
		return 0, nil
	}

	mode, _ := headMode(q)
	if mode == Exclusive {
		return Exclusive, []uint64{q.Front().Value.(request).txn}
	}

	var owners []uint64
	for e := q.Front(); e != nil; e = e.Next() {
		r := e.Value.(request)
		if r.mode != Shared {
			break
		}
		owners = append(owners, r.txn)
	}
	return Shared, owners
}

// DrainReady removes and returns every txn currently on the ready
// queue, in FIFO order.
func (m *Manager) DrainReady() []uint64 {
	if len(m.ready) == 0 {
		return nil
	}
	out := m.ready
	m.ready = nil
	return out
}
