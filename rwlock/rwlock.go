// Package rwlock implements ReentrantRwLock, a reader/writer lock whose
// ownership is keyed on goroutine identity rather than on the lock value
// itself: a goroutine that already holds the writer (or is the lock's sole
// reader) may re-enter either mode without deadlocking itself. This is the
// primitive TVar uses to let commit validation and publication run on the
// same goroutine without a second, blocking acquisition.
package rwlock

import (
	"runtime"
	"sync"
	"time"

	"github.com/lever-go/stm/internal/goid"
)

// threadRef tracks how many times the owning goroutine has (re-)entered a
// mode.
type threadRef struct {
	id    int64
	count int
}

func newThreadRef(count int) *threadRef {
	return &threadRef{id: goid.Current(), count: count}
}

func (t *threadRef) isCurrent() bool { return goid.Current() == t.id }

func (t *threadRef) tryInc() bool {
	if !t.isCurrent() {
		return false
	}
	t.count++
	return true
}

func (t *threadRef) tryDec() bool {
	if !t.isCurrent() {
		return false
	}
	t.count--
	return true
}

func (t *threadRef) isPositive() bool { return t.count > 0 }

// container is the lock's bookkeeping state, guarded by an external mutex.
type container struct {
	writer  *threadRef
	readers []*threadRef
}

func (c *container) readersFromSingleThread() (single bool, holder *threadRef) {
	for _, r := range c.readers {
		if r.isPositive() {
			if holder != nil {
				return false, nil
			}
			holder = r
		}
	}
	return true, holder
}

func (c *container) readerForCurrent() *threadRef {
	id := goid.Current()
	for _, r := range c.readers {
		if r.id == id {
			return r
		}
	}
	r := &threadRef{id: id}
	c.readers = append(c.readers, r)
	return r
}

func (c *container) writerFromCurrent() bool {
	return c.writer != nil && c.writer.isCurrent()
}

func (c *container) tryLockRead() bool {
	if c.writer != nil && !c.writer.isCurrent() {
		return false
	}
	return c.readerForCurrent().tryInc()
}

func (c *container) tryReleaseRead() bool {
	ok := c.readerForCurrent().tryDec()
	c.pruneReaders()
	return ok
}

// pruneReaders drops fully-released reader refs so the bookkeeping list does
// not grow with every goroutine that ever touched the lock.
func (c *container) pruneReaders() {
	kept := c.readers[:0]
	for _, r := range c.readers {
		if r.isPositive() {
			kept = append(kept, r)
		}
	}
	c.readers = kept
}

func (c *container) tryLockWrite() bool {
	if c.writer != nil {
		return c.writer.tryInc()
	}
	single, holder := c.readersFromSingleThread()
	if !single {
		return false
	}
	if holder != nil && !holder.isCurrent() {
		return false
	}
	c.writer = newThreadRef(1)
	return true
}

func (c *container) tryReleaseWrite() bool {
	if c.writer == nil {
		return false
	}
	ok := c.writer.tryDec()
	if ok && !c.writer.isPositive() {
		c.writer = nil
	}
	return ok
}

// Unlocker releases a held read or write acquisition.
type Unlocker interface {
	Unlock()
}

// ReentrantRwLock is an identity-keyed reader/writer lock whose bookkeeping
// is guarded by an internal mutex. The zero value is ready to use.
type ReentrantRwLock struct {
	mu sync.Mutex
	c  container
}

// New returns a ready-to-use lock.
func New() *ReentrantRwLock {
	return &ReentrantRwLock{}
}

type readGuard struct{ l *ReentrantRwLock }

func (g *readGuard) Unlock() {
	g.l.mu.Lock()
	defer g.l.mu.Unlock()
	g.l.c.tryReleaseRead()
}

type writeGuard struct{ l *ReentrantRwLock }

func (g *writeGuard) Unlock() {
	g.l.mu.Lock()
	defer g.l.mu.Unlock()
	g.l.c.tryReleaseWrite()
}

// TryRead attempts to acquire (or re-enter) the reader side without blocking.
func (l *ReentrantRwLock) TryRead() (Unlocker, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.c.tryLockRead() {
		return &readGuard{l}, true
	}
	return nil, false
}

// Read blocks (yielding between attempts) until the reader side is acquired.
func (l *ReentrantRwLock) Read() Unlocker {
	for {
		if g, ok := l.TryRead(); ok {
			return g
		}
		runtime.Gosched()
	}
}

// TryWrite attempts to acquire (or re-enter) the writer side without
// blocking.
func (l *ReentrantRwLock) TryWrite() (Unlocker, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.c.tryLockWrite() {
		return &writeGuard{l}, true
	}
	return nil, false
}

// Write blocks (yielding between attempts) until the writer side is
// acquired.
func (l *ReentrantRwLock) Write() Unlocker {
	for {
		if g, ok := l.TryWrite(); ok {
			return g
		}
		runtime.Gosched()
	}
}

// TryWriteFor attempts to acquire the writer side, backing off until timeout
// elapses.
func (l *ReentrantRwLock) TryWriteFor(timeout time.Duration) (Unlocker, bool) {
	deadline := time.Now().Add(timeout)
	step := timeout / 10
	if step <= 0 {
		step = time.Microsecond
	}
	for {
		if g, ok := l.TryWrite(); ok {
			return g, true
		}
		if !time.Now().Before(deadline) {
			return nil, false
		}
		time.Sleep(step)
		runtime.Gosched()
	}
}

// IsWriterCurrent reports whether the calling goroutine currently holds the
// writer side.
func (l *ReentrantRwLock) IsWriterCurrent() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.c.writerFromCurrent()
}

// IsLocked reports whether a goroutine other than the caller currently holds
// the writer.
func (l *ReentrantRwLock) IsLocked() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.c.writer != nil && l.c.writer.isPositive() && !l.c.writer.isCurrent()
}
