// Package interrupt holds the single process-wide interruption flag shared
// between the OS signal handler and every subprocess wrapper in the runtime
// adapter.
package interrupt

import "sync/atomic"

// Flag is a monotone boolean: once set, it never clears for the lifetime of
// a run. Reads and writes go through sync/atomic.Bool, which gives the
// acquire/release memory ordering the engine relies on so a subprocess
// wrapper running on the main goroutine observes a signal handler's write
// without reordering.
type Flag struct {
	set atomic.Bool
}

// New returns a fresh, unset Flag.
func New() *Flag {
	return &Flag{}
}

// Trip sets the flag. Called by the signal handler, and by a subprocess
// wrapper that detects its child died from the same signal.
func (f *Flag) Trip() {
	f.set.Store(true)
}

// IsSet reports whether the flag has been tripped.
func (f *Flag) IsSet() bool {
	return f.set.Load()
}
