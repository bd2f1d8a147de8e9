// Package ccproc is the public facade over the four interchangeable
// concurrency-control schedulers in internal/sched: submit a Txn,
// drain its result, pick whichever scheduler mode fits the workload.
// Grounded on dborchard-tiny-txn/cmd/driver's use of its pkg/db as a
// thin entry point in front of the real engine package.
package ccproc

import (
	"go.uber.org/zap"

	"ccproc/internal/clock"
	"ccproc/internal/sched"
	"ccproc/internal/txn"
)

// Re-exported so callers never need to import internal/sched or
// internal/txn directly.
type (
	Key   = txn.Key
	Value = txn.Value

	TxnStatus   = txn.TxnStatus
	Program     = txn.Program
	ProgramFunc = txn.ProgramFunc
	Txn         = txn.Txn

	Mode = sched.Mode
)

const (
	Serial  = sched.Serial
	Locking = sched.Locking
	OCC     = sched.OCC
	MVCC    = sched.MVCC
	POCC    = sched.POCC
)

const (
	StatusIncomplete = txn.StatusIncomplete
	StatusCompletedC = txn.StatusCompletedC
	StatusCompletedA = txn.StatusCompletedA
	StatusCommitted  = txn.StatusCommitted
	StatusAborted    = txn.StatusAborted
)

// Config configures a Processor. NumWorkers defaults to 8 when zero
// or negative; Logger defaults to a no-op logger; Clock defaults to
// the monotonic system source, clock.System.
type Config struct {
	Mode       Mode
	NumWorkers int
	Logger     *zap.Logger
	Clock      clock.Source
}

// Processor runs one scheduler mode over a shared pool of workers.
// Construct with New, submit work with Submit, drain completions with
// GetResult, and shut down with Stop.
type Processor struct {
	inner *sched.Processor
}

// New constructs and starts a Processor for cfg.Mode.
func New(cfg Config) *Processor {
	return &Processor{inner: sched.NewProcessor(sched.Config{
		Mode:       cfg.Mode,
		NumWorkers: cfg.NumWorkers,
		Logger:     cfg.Logger,
		Clock:      cfg.Clock,
	})}
}

// NewTxn builds a Txn ready for Submit: readSet and writeSet may be
// given in any order, and program is invoked with the stored values of
// the keys in their union once storage reads are in hand (a key absent
// from storage has no entry in that map).
func NewTxn(readSet, writeSet []Key, program Program) *Txn {
	return txn.New(0, readSet, writeSet, program)
}

// Submit assigns t a unique_id and enqueues it for scheduling.
// Non-blocking.
func (p *Processor) Submit(t *Txn) { p.inner.Submit(t) }

// GetResult blocks until the next completed txn is available and
// returns it, in completion order (not submission order).
func (p *Processor) GetResult() *Txn { return p.inner.GetResult() }

// Stop halts the scheduler and its worker pool.
func (p *Processor) Stop() { p.inner.Stop() }
