package txn

import (
	"sort"
	"time"

	"github.com/lever-go/stm/rwlock"
)

// readEntry records the TVar plus the modrev and stamp observed at read
// time. The modrev is what the RepeatableRead and Serializable conflict
// checks compare; the stamp is recorded but not consulted by any check.
type readEntry struct {
	tvar         tvarCore
	modrevAtRead uint64
	stampAtRead  uint64
}

// writeEntry records the buffered value plus the pre-image stamp observed
// when the write was first buffered; the Serializable check requires that
// stamp to still match the TVar at validation.
type writeEntry struct {
	tvar     tvarCore
	value    any
	preStamp uint64
}

// readSet and writeSet are per-Txn maps keyed by TVar id. An attempt belongs
// to exactly one goroutine, so plain Txn fields give the same isolation that
// thread-local storage would.
type readSet map[uint64]*readEntry

type writeSet map[uint64]*writeEntry

// tryLock acquires the write lock of every TVar in ws, in ascending TVar-id
// order so two committers can never hold locks in opposite order, each
// acquisition bounded by timeout. On the first failure it releases every
// lock already acquired and returns false.
func (ws writeSet) tryLock(timeout time.Duration) ([]rwlock.Unlocker, bool) {
	ids := make([]uint64, 0, len(ws))
	for id := range ws {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	held := make([]rwlock.Unlocker, 0, len(ids))
	for _, id := range ids {
		entry := ws[id]
		g, ok := entry.tvar.tryLockWrite(timeout)
		if !ok {
			for _, h := range held {
				h.Unlock()
			}
			return nil, false
		}
		held = append(held, g)
	}
	return held, true
}

// publish installs every buffered write at write-stamp wts. Called only
// while every lock returned by tryLock is still held.
func (ws writeSet) publish(wts uint64) {
	for _, entry := range ws {
		entry.tvar.commitPublish(entry.value, wts)
	}
}

func releaseAll(locks []rwlock.Unlocker) {
	for _, l := range locks {
		l.Unlock()
	}
}
