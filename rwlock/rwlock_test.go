package rwlock_test

import (
	"testing"
	"time"

	"github.com/lever-go/stm/rwlock"
)

func TestReacquireWriteLock(t *testing.T) {
	l := rwlock.New()
	r1, ok := l.TryRead()
	if !ok {
		t.Fatal("first TryRead failed")
	}

	if _, ok := l.TryRead(); !ok {
		t.Fatal("same-goroutine re-entrant TryRead failed")
	}
	if _, ok := l.TryRead(); !ok {
		t.Fatal("same-goroutine re-entrant TryRead failed")
	}

	r1.Unlock()

	if _, ok := l.TryWrite(); !ok {
		t.Fatal("TryWrite should succeed once the only reader is this goroutine")
	}
	if _, ok := l.TryRead(); !ok {
		t.Fatal("writer-holding goroutine should be able to re-enter as reader")
	}
}

func TestReacquireWithoutDrop(t *testing.T) {
	l := rwlock.New()
	r := l.Read()

	if _, ok := l.TryRead(); !ok {
		t.Fatal("re-entrant read failed")
	}
	if _, ok := l.TryRead(); !ok {
		t.Fatal("re-entrant read failed")
	}
	if _, ok := l.TryWrite(); !ok {
		t.Fatal("promotion to writer failed while holding only own reads")
	}

	w := l.Write()
	_ = r
	_ = w
}

func TestWriterExcludesOtherGoroutine(t *testing.T) {
	l := rwlock.New()
	g, ok := l.TryWrite()
	if !ok {
		t.Fatal("initial TryWrite failed")
	}
	defer g.Unlock()

	done := make(chan bool, 1)
	go func() {
		_, ok := l.TryWrite()
		done <- ok
	}()

	select {
	case ok := <-done:
		if ok {
			t.Fatal("other goroutine should not acquire the writer")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for other goroutine")
	}
}

func TestTryWriteForTimesOut(t *testing.T) {
	l := rwlock.New()
	g, ok := l.TryWrite()
	if !ok {
		t.Fatal("initial TryWrite failed")
	}
	defer g.Unlock()

	done := make(chan bool, 1)
	go func() {
		_, ok := l.TryWriteFor(20 * time.Millisecond)
		done <- ok
	}()

	select {
	case ok := <-done:
		if ok {
			t.Fatal("expected timeout, got success")
		}
	case <-time.After(time.Second):
		t.Fatal("TryWriteFor did not return")
	}
}

func TestIsWriterCurrent(t *testing.T) {
	l := rwlock.New()
	if l.IsWriterCurrent() {
		t.Fatal("no writer yet")
	}
	g, ok := l.TryWrite()
	if !ok {
		t.Fatal("TryWrite failed")
	}
	defer g.Unlock()

	if !l.IsWriterCurrent() {
		t.Fatal("current goroutine should hold the writer")
	}
}
