package main

import (
	"fmt"

	"ccproc"
	"ccproc/internal/logctx"
)

// incrementProgram returns a Program that adds delta to every key in
// keys, reading each one first and always committing.
func incrementProgram(keys []ccproc.Key, delta ccproc.Value) ccproc.Program {
	return ccproc.ProgramFunc(func(reads map[ccproc.Key]ccproc.Value) (map[ccproc.Key]ccproc.Value, ccproc.TxnStatus) {
		writes := make(map[ccproc.Key]ccproc.Value, len(keys))
		for _, k := range keys {
			writes[k] = reads[k] + delta
		}
		return writes, ccproc.StatusCompletedC
	})
}

func runMode(name string, mode ccproc.Mode, rounds int) {
	logger := logctx.New()
	defer func() { _ = logger.Sync() }()

	p := ccproc.New(ccproc.Config{Mode: mode, NumWorkers: 8, Logger: logger})
	defer p.Stop()

	for i := 0; i < rounds; i++ {
		keys := []ccproc.Key{uint64(i % 10), uint64((i + 1) % 10)}
		t := ccproc.NewTxn(keys, keys, incrementProgram(keys, 1))
		p.Submit(t)
	}

	committed, aborted := 0, 0
	for i := 0; i < rounds; i++ {
		result := p.GetResult()
		switch result.Status {
		case ccproc.StatusCommitted:
			committed++
		case ccproc.StatusAborted:
			aborted++
		}
	}

	fmt.Printf("%-8s committed=%d aborted=%d\n", name, committed, aborted)
}

func main() {
	runMode("serial", ccproc.Serial, 200)
	runMode("locking", ccproc.Locking, 200)
	runMode("occ", ccproc.OCC, 200)
	runMode("mvcc", ccproc.MVCC, 200)
}
