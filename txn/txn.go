package txn

import "github.com/agilira/go-timecache"

// Txn is one configured transactional attempt engine bound to a Manager.
// A Txn is not safe for concurrent use by multiple goroutines: exactly one
// attempt owns it at a time.
type Txn struct {
	mgr *Manager
	cfg Config

	state State
	rts   uint64

	// startedAt is a cached-clock diagnostic timestamp (nanoseconds), sampled
	// fresh on every attempt and surfaced in Label-tagged logging; never
	// consulted by the commit protocol itself.
	startedAt int64

	reads  readSet
	writes writeSet

	// callerAborted distinguishes a caller-initiated SetRollbackOnly/Rollback
	// (fatal, surfaced) from an internally-marked rollback caused by lock
	// contention observed during the body (transient, retried by Begin).
	callerAborted bool
}

// State reports the attempt's current lifecycle state.
func (t *Txn) State() State { return t.state }

// Label returns the opaque diagnostic label this Txn was configured with.
func (t *Txn) Label() string { return t.cfg.Label }

// Manager returns the Manager this Txn is bound to.
func (t *Txn) Manager() *Manager { return t.mgr }

// StartedAtNano returns the cached-clock timestamp (nanoseconds since the
// Unix epoch) the most recent attempt began at, for diagnostic logging.
func (t *Txn) StartedAtNano() int64 { return t.startedAt }

func (t *Txn) startAttempt() {
	t.state = Active
	t.rts = t.mgr.beginAttempt()
	t.startedAt = timecache.CachedTimeNano()
	t.reads = make(readSet)
	t.writes = make(writeSet)
	t.callerAborted = false
}

func (t *Txn) clearSets() {
	t.reads = make(readSet)
	t.writes = make(writeSet)
}

func (t *Txn) markRollback() {
	if t.state == Active {
		t.state = MarkedRollback
	}
}

// SetRollbackOnly marks the attempt to abort once the body returns. Unlike a
// lock-contention-triggered internal rollback, this is surfaced to the
// caller as Aborted and is never retried.
func (t *Txn) SetRollbackOnly() {
	if t.state == Active {
		t.state = MarkedRollback
	}
	t.callerAborted = true
}

// Rollback immediately marks the attempt RolledBack and fatal-aborts it.
func (t *Txn) Rollback() {
	t.state = RolledBack
	t.callerAborted = true
}

// Suspend parks the attempt: subsequent reads/writes return published data
// and do not modify the read/write sets.
func (t *Txn) Suspend() {
	if t.state == Active {
		t.state = Suspended
	}
}

// Resume reactivates a Suspended attempt.
func (t *Txn) Resume() {
	if t.state == Suspended {
		t.state = Active
	}
}

// readCore is the open-read step against the erased tvarCore surface;
// tvar.go's generic Read[T] wraps this with the typed snapshot.
func (t *Txn) readCore(core tvarCore, snapshot func() any) any {
	switch t.state {
	case Committed, Unknown:
		return snapshot()
	case Active:
		if e, ok := t.writes[core.tvarID()]; ok {
			return e.value
		}
		if core.isLocked() {
			t.markRollback()
			return snapshot()
		}
		t.reads[core.tvarID()] = &readEntry{
			tvar:         core,
			modrevAtRead: core.loadModRev(),
			stampAtRead:  core.loadStamp(),
		}
		return snapshot()
	case MarkedRollback:
		t.state = RollingBack
		return snapshot()
	case RollingBack, RolledBack, Suspended:
		return snapshot()
	default:
		return snapshot()
	}
}

// writeCore is the open-write step against the erased tvarCore surface.
func (t *Txn) writeCore(core tvarCore, newVal any, snapshot func() any) any {
	switch t.state {
	case Committed, Unknown:
		return snapshot()
	case Active:
		if e, ok := t.writes[core.tvarID()]; ok {
			e.value = newVal
			return newVal
		}
		if core.isLocked() {
			t.markRollback()
			return snapshot()
		}
		core.bumpModRev()
		t.writes[core.tvarID()] = &writeEntry{
			tvar:     core,
			value:    newVal,
			preStamp: core.loadStamp(),
		}
		return newVal
	case MarkedRollback, RollingBack, RolledBack, Suspended:
		return snapshot()
	default:
		return snapshot()
	}
}

// validateReadSet checks every TVar read during the attempt: not
// write-locked by another goroutine, and its stamp has not advanced past
// this attempt's read-timestamp.
func (t *Txn) validateReadSet() bool {
	for _, e := range t.reads {
		if e.tvar.isLocked() {
			return false
		}
		if e.tvar.loadStamp() > t.rts {
			return false
		}
	}
	return true
}

// checkIsolation applies the isolation-specific conflict rule, run after
// the basic stamp/lock checks in validateReadSet pass.
func (t *Txn) checkIsolation() bool {
	switch t.cfg.Isolation {
	case ReadCommitted:
		return true
	case RepeatableRead:
		return t.checkRepeatableRead()
	case Serializable:
		return t.checkRepeatableRead() && t.checkSerializableWrites()
	default:
		return true
	}
}

// checkRepeatableRead requires every TVar read during the attempt to still
// carry the modrev observed at read time, meaning no in-flight buffered writer
// raised it since. A TVar this attempt both read and wrote is excluded:
// its modrev was raised by our own buffering, and foreign interference on
// it is caught by the read-set stamp check performed under its commit lock.
func (t *Txn) checkRepeatableRead() bool {
	for id, e := range t.reads {
		if _, wrote := t.writes[id]; wrote {
			continue
		}
		if e.tvar.loadModRev() != e.modrevAtRead {
			return false
		}
	}
	return true
}

// checkSerializableWrites requires every write entry's pre-image stamp
// (captured when the write was buffered) to still equal the TVar's current
// stamp: no other goroutine committed a write to it since.
func (t *Txn) checkSerializableWrites() bool {
	for _, e := range t.writes {
		if e.preStamp != e.tvar.loadStamp() {
			return false
		}
	}
	return true
}

// attemptOutcome is the result of one pass through runAttempt.
type attemptOutcome int

const (
	outcomeCommitted attemptOutcome = iota
	outcomeRetry
	outcomeAborted
)

// runAttempt runs one attempt: the body, then validation, then either
// publication or rollback. Start is the caller's startAttempt. On a retry
// outcome err carries the transient conflict that caused it, for logging.
func runAttempt[R any](t *Txn, body func(*Txn) R) (result R, outcome attemptOutcome, err error) {
	defer func() {
		if p := recover(); p != nil {
			t.clearSets()
			panic(p)
		}
	}()

	result = body(t)

	if t.callerAborted {
		t.state = RolledBack
		t.clearSets()
		var zero R
		return zero, outcomeAborted, newAborted(t.cfg.Label)
	}

	if t.state != Active {
		// Lock-contention-triggered internal rollback: transient, retried.
		t.state = RolledBack
		t.clearSets()
		return result, outcomeRetry, t.transientConflict("write-locked by another goroutine during body")
	}

	t.state = Preparing

	if len(t.writes) == 0 {
		// Read-only attempt: still apply the ReadSet validation so a
		// concurrent writer invalidates stale reads, but there is nothing
		// to lock or publish.
		if !t.validateReadSet() || !t.checkIsolation() {
			t.state = RolledBack
			t.clearSets()
			return result, outcomeRetry, t.transientConflict("read-set validation failed")
		}
		t.state = Committed
		t.clearSets()
		return result, outcomeCommitted, nil
	}

	locks, ok := t.writes.tryLock(t.cfg.Timeout)
	if !ok {
		t.state = RolledBack
		t.clearSets()
		return result, outcomeRetry, t.transientConflict("write-lock acquisition timed out")
	}

	if !t.validateReadSet() || !t.checkIsolation() {
		releaseAll(locks)
		t.state = RolledBack
		t.clearSets()
		return result, outcomeRetry, t.transientConflict("validation failed under " + t.cfg.Isolation.String())
	}

	t.state = Committing
	wts := t.mgr.newWriteStamp()
	t.writes.publish(wts)
	releaseAll(locks)
	t.state = Committed
	t.clearSets()
	return result, outcomeCommitted, nil
}

func (t *Txn) transientConflict(reason string) error {
	return newTransientConflict(reason, map[string]interface{}{
		"label":     t.cfg.Label,
		"isolation": t.cfg.Isolation.String(),
		"rts":       t.rts,
	})
}

// Begin runs body to completion, retrying on every transient conflict
// (stamp violation, lock timeout, lock held by another goroutine,
// isolation-check failure) until it commits or the caller aborts via
// SetRollbackOnly/Rollback. There is no run-once variant: Begin always
// retries until a terminal outcome.
func Begin[R any](t *Txn, body func(*Txn) R) (R, error) {
	isolation := t.cfg.Isolation.String()
	for {
		t.startAttempt()
		result, outcome, err := runAttempt(t, body)
		switch outcome {
		case outcomeCommitted:
			if t.mgr.metrics != nil {
				t.mgr.metrics.RecordCommit(isolation)
			}
			return result, nil
		case outcomeAborted:
			if t.mgr.metrics != nil {
				t.mgr.metrics.RecordAbort(isolation)
			}
			t.mgr.logger.Warn("transaction aborted",
				"label", t.cfg.Label, "isolation", isolation, "started_at_ns", t.startedAt)
			var zero R
			return zero, err
		default:
			if t.mgr.metrics != nil {
				t.mgr.metrics.RecordRetry(isolation)
			}
			t.mgr.logger.Debug("transaction attempt retrying",
				"label", t.cfg.Label, "isolation", isolation, "started_at_ns", t.startedAt,
				"conflict", err)
			continue
		}
	}
}
