package txn

import (
	"sync/atomic"
	"time"

	"github.com/lever-go/stm/cell"
	"github.com/lever-go/stm/rwlock"
)

// tvarCore is the non-generic commit-path surface a TVar[T] exposes to the
// engine. The read/write sets hold TVars of arbitrary element types, so the
// bookkeeping is done against this interface while the typed value itself
// travels as `any` inside writeEntry/readEntry.
type tvarCore interface {
	tvarID() uint64
	tryLockWrite(timeout time.Duration) (rwlock.Unlocker, bool)
	isLocked() bool
	loadStamp() uint64
	loadModRev() uint64
	bumpModRev() uint64
	commitPublish(value any, wts uint64)
}

// TVar is a transactional variable: a cell holding the published value plus
// the identity, commit lock, version stamp, and modification revision the
// engine validates against.
type TVar[T any] struct {
	id     uint64
	data   *cell.Cell[T]
	lock   *rwlock.ReentrantRwLock
	stamp  atomic.Uint64
	modrev atomic.Uint64
}

// NewTVar installs v in a fresh cell and assigns a fresh id from mgr, with
// stamp and modrev initialized to the manager's current version clock value.
func NewTVar[T any](mgr *Manager, v T) *TVar[T] {
	tv := &TVar[T]{
		id:   mgr.dispenseTVarID(),
		data: cell.New(v),
		lock: rwlock.New(),
	}
	gvc := mgr.gvc()
	tv.stamp.Store(gvc)
	tv.modrev.Store(gvc)
	return tv
}

// GetData returns a non-transactional snapshot of the TVar's current value.
// It is the only way to observe a TVar outside a transaction attempt, and
// gives no consistency guarantee relative to any other TVar.
func (v *TVar[T]) GetData() T {
	return v.data.Get()
}

func (v *TVar[T]) tvarID() uint64 { return v.id }

func (v *TVar[T]) tryLockWrite(timeout time.Duration) (rwlock.Unlocker, bool) {
	return v.lock.TryWriteFor(timeout)
}

func (v *TVar[T]) isLocked() bool {
	return v.lock.IsLocked()
}

func (v *TVar[T]) loadStamp() uint64  { return v.stamp.Load() }
func (v *TVar[T]) loadModRev() uint64 { return v.modrev.Load() }
func (v *TVar[T]) bumpModRev() uint64 { return v.modrev.Add(1) }

// commitPublish installs value via the cell and raises stamp to wts. Called
// only while this TVar's commit lock is held by the calling goroutine.
func (v *TVar[T]) commitPublish(value any, wts uint64) {
	v.data.ReplaceWith(func(T) T { return value.(T) })
	v.stamp.Store(wts)
}

// Read observes v inside the attempt, returning the buffered value if this
// attempt already wrote v, otherwise the published snapshot. It is a
// package-level generic function rather than a method because Go methods
// cannot introduce type parameters beyond the receiver's own.
func Read[T any](t *Txn, v *TVar[T]) T {
	res := t.readCore(v, func() any { return v.GetData() })
	if val, ok := res.(T); ok {
		return val
	}
	return v.GetData()
}

// Write buffers newVal in the attempt's write set and returns it so callers
// can chain. Nothing is published until the attempt commits.
func Write[T any](t *Txn, v *TVar[T], newVal T) T {
	res := t.writeCore(v, newVal, func() any { return v.GetData() })
	if val, ok := res.(T); ok {
		return val
	}
	return newVal
}
