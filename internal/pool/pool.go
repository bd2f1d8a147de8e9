// Package pool is the fixed-size worker pool the scheduler dispatches
// onto (spec.md §5, §6's RunTask/Active contract). It is intentionally
// thin: a bounded task channel drained by N long-lived goroutines with
// WaitGroup shutdown, the same shape as
// froz-husain-PairDB/storage-node's internal/util/workerpool, minus
// its statistics counters — the spec's external-collaborator contract
// only names RunTask and Active.
package pool

import (
	"sync"

	"go.uber.org/zap"
)

// Pool runs submitted tasks on a fixed number of worker goroutines.
type Pool struct {
	tasks    chan func()
	stopCh   chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
	logger   *zap.Logger

	mu     sync.Mutex
	active bool
}

// New starts a pool of numWorkers goroutines. A nil logger defaults
// to zap.NewNop(), matching the Config zero-value-defaulting pattern
// the PairDB worker pool uses.
func New(numWorkers int, logger *zap.Logger) *Pool {
	if numWorkers <= 0 {
		numWorkers = 8
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Pool{
		tasks:  make(chan func(), numWorkers*4),
		stopCh: make(chan struct{}),
		logger: logger,
		active: true,
	}

	for i := 0; i < numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	return p
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopCh:
			return
		case task := <-p.tasks:
			p.safeRun(id, task)
		}
	}
}

func (p *Pool) safeRun(id int, task func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("task panicked", zap.Int("worker", id), zap.Any("panic", r))
		}
	}()
	task()
}

// RunTask enqueues fn for execution on some worker goroutine. It
// blocks only if the internal queue is momentarily full.
func (p *Pool) RunTask(fn func()) {
	select {
	case <-p.stopCh:
		return
	case p.tasks <- fn:
	}
}

// Active reports whether the pool still accepts work.
func (p *Pool) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Stop halts the pool and waits for in-flight tasks to finish.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.active = false
		p.mu.Unlock()
		close(p.stopCh)
	})
	p.wg.Wait()
}
