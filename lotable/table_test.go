package lotable_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/lever-go/stm/lotable"
)

func TestInsertGetRemoveRoundTrip(t *testing.T) {
	tbl := lotable.WithCapacity[string, int](8)

	tbl.Insert("k", 1)
	if v, ok := tbl.Get("k"); !ok || v != 1 {
		t.Fatalf("Get() = (%d, %v), want (1, true)", v, ok)
	}

	tbl.Remove("k")
	if _, ok := tbl.Get("k"); ok {
		t.Fatal("Get() after Remove() should miss")
	}
}

func TestUpsertReplacesValue(t *testing.T) {
	tbl := lotable.WithCapacity[string, int](4)

	tbl.Insert("k", 1)
	tbl.Insert("k", 2)

	if v, ok := tbl.Get("k"); !ok || v != 2 {
		t.Fatalf("Get() = (%d, %v), want (2, true)", v, ok)
	}
}

func TestReplaceWith(t *testing.T) {
	tbl := lotable.WithCapacity[string, int](4)
	tbl.Insert("counter", 10)

	got := tbl.ReplaceWith("counter", func(old int, present bool) int {
		if !present {
			t.Fatal("expected counter to be present")
		}
		return old + 5
	})
	if got != 15 {
		t.Fatalf("ReplaceWith() = %d, want 15", got)
	}
}

// Concurrent readers and incrementing writers against a shared key: the
// final value must equal the number of writers, each of whose
// read-modify-write committed exactly once.
func TestConcurrentGetInsert(t *testing.T) {
	tbl := lotable.WithCapacity[string, int](16)

	const goroutines = 100
	var commits atomic.Int64
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				tbl.Get("d")
				return
			}
			tbl.Get("d")
			tbl.ReplaceWith("d", func(old int, present bool) int {
				return old + 1
			})
			commits.Add(1)
		}(i)
	}
	wg.Wait()

	final, ok := tbl.Get("d")
	if !ok {
		t.Fatal("expected key d to be present")
	}
	if int64(final) != commits.Load() {
		t.Fatalf("Get(\"d\") = %d, want %d (number of committed increments)", final, commits.Load())
	}
}

func TestLenKeysValues(t *testing.T) {
	tbl := lotable.WithCapacity[string, int](8)
	tbl.Insert("a", 1)
	tbl.Insert("b", 2)
	tbl.Insert("c", 3)

	if n := tbl.Len(); n != 3 {
		t.Fatalf("Len() = %d, want 3", n)
	}

	keys := tbl.Keys()
	if len(keys) != 3 {
		t.Fatalf("Keys() returned %d keys, want 3", len(keys))
	}

	values := tbl.Values()
	sum := 0
	for _, v := range values {
		sum += v
	}
	if sum != 6 {
		t.Fatalf("sum(Values()) = %d, want 6", sum)
	}

	tbl.Clear()
	if n := tbl.Len(); n != 0 {
		t.Fatalf("Len() after Clear() = %d, want 0", n)
	}
}
