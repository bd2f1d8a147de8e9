package txn

import "errors"

// Sentinel errors, checked with errors.Is, following the pattern the
// teacher's pkg/txn/z_error.go uses throughout.
var (
	// ErrValidationConflict is raised internally by OCC/MVCC when a
	// commit attempt fails validation. It never escapes to the
	// client — the scheduler recovers by restarting the txn with a
	// fresh unique_id.
	ErrValidationConflict = errors.New("ccproc: validation conflict")

	// ErrLockConflict is raised internally by the locking scheduler
	// when wound-wait decides this txn must roll back. Recovered by
	// restarting the acquisition phase; never surfaced to the client.
	ErrLockConflict = errors.New("ccproc: lock conflict, rolling back")

	// ErrInvalidStatus means Run() returned neither COMPLETED_C nor
	// COMPLETED_A. This is a programmer error in the Program
	// implementation, not a runtime condition, and is fatal.
	ErrInvalidStatus = errors.New("ccproc: completed txn has invalid status")
)

// Program.Run returning StatusCompletedA is not an error in this
// package's sense — it surfaces as TxnStatus == StatusAborted on the
// txn returned from GetResult, matching spec.md's ProgramAbort
// category. No sentinel error is needed for it.
