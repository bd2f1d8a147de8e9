// Package clock is the monotonic time source named in spec.md §6. No
// third-party monotonic-clock package appears anywhere in the example
// corpus (every repo that needs wall-clock ordering just calls
// time.Now()), so this stays on the standard library rather than
// adopting a dependency the corpus never reaches for.
package clock

import "time"

// Source produces monotonically non-decreasing timestamps.
type Source interface {
	Now() uint64
}

// System is the real monotonic clock: nanoseconds elapsed since the
// package was initialised, measured with time.Since on the monotonic
// reading time.Now() carries.
type System struct{}

var start = time.Now()

func (System) Now() uint64 {
	return uint64(time.Since(start))
}
