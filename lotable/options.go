package lotable

import (
	"time"

	"github.com/lever-go/stm/internal/hashing"
	"github.com/lever-go/stm/txn"
)

// ConflictRecorder receives one notification per shard transaction that
// lost the commit race and had to retry. stmmetrics.Collector satisfies
// this via its RecordLOTableConflict method; it is declared here rather
// than imported so lotable never depends on the OTel SDK directly.
type ConflictRecorder interface {
	RecordLOTableConflict()
}

// conflictAdapter bridges a ConflictRecorder into the txn.MetricsRecorder
// shape the underlying Manager expects, treating every retry as a conflict
// and ignoring terminal commit/abort outcomes.
type conflictAdapter struct{ r ConflictRecorder }

func (a conflictAdapter) RecordCommit(string) {}
func (a conflictAdapter) RecordAbort(string)  {}
func (a conflictAdapter) RecordRetry(string)  { a.r.RecordLOTableConflict() }

type config[K comparable] struct {
	isolation txn.Isolation
	timeout   time.Duration
	hasher    hashing.Hasher[K]
	metrics   ConflictRecorder
}

func defaultConfig[K comparable]() config[K] {
	return config[K]{
		isolation: txn.Serializable,
		timeout:   50 * time.Millisecond,
		hasher:    hashing.Default[K](),
	}
}

// Option configures a Table at construction time.
type Option[K comparable] func(*config[K])

// WithIsolation selects the isolation level every table operation's
// transaction runs under. Default is Serializable. ReadCommitted is not
// supported under the table's optimistic transactions; WithCapacity panics
// on it at construction time.
func WithIsolation[K comparable](iso txn.Isolation) Option[K] {
	return func(c *config[K]) { c.isolation = iso }
}

// WithTimeout sets the commit-phase write-lock acquisition timeout.
func WithTimeout[K comparable](d time.Duration) Option[K] {
	return func(c *config[K]) { c.timeout = d }
}

// WithHasher overrides the default hash/maphash-based shard hasher.
func WithHasher[K comparable](h hashing.Hasher[K]) Option[K] {
	return func(c *config[K]) { c.hasher = h }
}

// WithMetrics attaches a ConflictRecorder that every shard transaction
// reports retries to.
func WithMetrics[K comparable](r ConflictRecorder) Option[K] {
	return func(c *config[K]) { c.metrics = r }
}
