package txn

import "sort"

// Txn is the unit of work the processor schedules. Fields mirror
// spec.md §3 directly: readset/writeset are fixed at construction and
// never mutated during execution; reads/writes are buffered per
// attempt and cleared on abort-and-restart; UniqueID is reassigned on
// OCC/MVCC restart (the old id is simply discarded, never reused).
type Txn struct {
	UniqueID uint64

	// ReadSet and WriteSet are stored pre-sorted so every scheduler
	// mode that needs a deterministic key order (the locking
	// scheduler's acquisition phase, the MVCC scheduler's write-lock
	// order) gets one for free without resorting on every attempt.
	ReadSet  []Key
	WriteSet []Key

	Reads  map[Key]Value
	Writes map[Key]Value

	Status TxnStatus

	// StartTime is recorded at the start of each execution attempt;
	// OCC uses it for validation, MVCC uses UniqueID instead (its
	// reader/writer ids double as logical timestamps).
	StartTime uint64

	Program Program
}

// New builds a Txn with the given read/write sets and program. id is
// the unique_id assigned at submission; callers restarting a txn
// should call Restart instead of constructing a new Txn, so that
// buffers are cleared the same way on every code path.
func New(id uint64, readSet, writeSet []Key, program Program) *Txn {
	t := &Txn{
		UniqueID: id,
		ReadSet:  sortedCopy(readSet),
		WriteSet: sortedCopy(writeSet),
		Program:  program,
		Status:   StatusIncomplete,
	}
	return t
}

func sortedCopy(keys []Key) []Key {
	out := make([]Key, len(keys))
	copy(out, keys)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Restart resets a txn to INCOMPLETE for a fresh attempt under a new
// unique_id, clearing the buffered reads and writes. ReadSet/WriteSet
// are untouched — they are fixed at submission per spec.md's
// invariant.
func (t *Txn) Restart(newID uint64) {
	t.UniqueID = newID
	t.Reads = nil
	t.Writes = nil
	t.Status = StatusIncomplete
}

// AllKeys returns the union of the read and write sets, in sorted
// order, for the "read-set ∪ write-set" iteration ExecuteTxn and the
// validators perform.
func (t *Txn) AllKeys() []Key {
	seen := make(map[Key]struct{}, len(t.ReadSet)+len(t.WriteSet))
	out := make([]Key, 0, len(t.ReadSet)+len(t.WriteSet))
	for _, k := range t.ReadSet {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	for _, k := range t.WriteSet {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
