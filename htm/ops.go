// Package htm is a hardware-transactional-memory facade: an optional,
// architecture-specific fast path that a caller may try before falling back
// to the software transactional engine in txn. It is an experiment, not a
// correctness surface. Run never blocks or retries, and a caller that gets
// ok == false must already have a software fallback ready.
//
// The default build (no htm_experimental build tag) never attempts hardware
// transactions; it exists so code written against this package compiles and
// runs identically everywhere, with HTM as a pure opt-in.
package htm

// BeginCode classifies the outcome of attempting to start a hardware
// transaction, mirroring the disjoint outcome bits _xbegin/__tstart report
// on x86's RTM and aarch64's TME.
type BeginCode int

const (
	// NotStarted means the backend never attempted a hardware transaction,
	// either because this build lacks HTM support or the CPU does not
	// advertise it. Callers always treat this the same as any other
	// non-started outcome: fall back to software.
	NotStarted BeginCode = iota
	Started
	Aborted
	Retryable
	Conflict
	CapacityExceeded
	Debug
)

func (c BeginCode) started() bool { return c == Started }

// ops is the per-architecture/per-build backend. Exactly one implementation
// is linked in depending on the htm_experimental build tag.
type ops interface {
	cpuSupport() bool
	begin() BeginCode
	commit()
}
