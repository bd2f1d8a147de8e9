// Package txn holds the data model shared by every scheduler mode:
// the Txn object itself, its status/lock-mode enums, and the Program
// contract that a transaction's read-to-write logic must satisfy.
package txn

// Key and Value are opaque 64-bit integers. No ordering is required
// of them beyond equality and hashing, but internal/storage keeps
// them in a btree for free deterministic iteration.
type Key = uint64
type Value = uint64

// TxnStatus is a closed sum type over a transaction's lifecycle.
// Transitions are monotonic within a single attempt: Execute sets
// COMPLETED_C or COMPLETED_A, the scheduler promotes one of those to
// COMMITTED or ABORTED, and a restart resets back to INCOMPLETE.
type TxnStatus string

const (
	StatusIncomplete  TxnStatus = "INCOMPLETE"
	StatusCompletedC  TxnStatus = "COMPLETED_C"
	StatusCompletedA  TxnStatus = "COMPLETED_A"
	StatusCommitted   TxnStatus = "COMMITTED"
	StatusAborted     TxnStatus = "ABORTED"
)

// LockMode is a closed sum type over the two lock strengths, plus the
// absence of a lock. internal/lock's Manager.Status reports its own
// lock.Mode type, which has the same three values in the same order.
type LockMode int

const (
	Unlocked LockMode = iota
	Shared
	Exclusive
)

func (m LockMode) String() string {
	switch m {
	case Shared:
		return "SHARED"
	case Exclusive:
		return "EXCLUSIVE"
	default:
		return "UNLOCKED"
	}
}

// Program is the narrow contract for a transaction's "Run" logic: a
// pure function of the buffered reads that produces the buffered
// writes and a completion status. It must never touch storage or
// other transactions directly — the scheduler treats it as a black
// box and is the only thing permitted to call it.
type Program interface {
	Run(reads map[Key]Value) (writes map[Key]Value, status TxnStatus)
}

// ProgramFunc adapts a plain function to Program, for tests and the
// demo driver.
type ProgramFunc func(reads map[Key]Value) (map[Key]Value, TxnStatus)

func (f ProgramFunc) Run(reads map[Key]Value) (map[Key]Value, TxnStatus) {
	return f(reads)
}
