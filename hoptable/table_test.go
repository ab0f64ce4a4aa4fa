package hoptable_test

import (
	"sync"
	"testing"

	"github.com/lever-go/stm/hoptable"
)

func TestInsertGetRemoveRoundTrip(t *testing.T) {
	tbl := hoptable.WithCapacity[string, int](1 << 10)

	if err := tbl.Insert("k", 1); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if v, ok := tbl.Get("k"); !ok || v != 1 {
		t.Fatalf("Get() = (%d, %v), want (1, true)", v, ok)
	}

	tbl.Remove("k")
	if _, ok := tbl.Get("k"); ok {
		t.Fatal("Get() after Remove() should miss")
	}
}

func TestUpsert(t *testing.T) {
	tbl := hoptable.WithCapacity[string, int](1 << 20)

	if err := tbl.Insert("k", 1); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := tbl.Insert("k", 2); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if v, ok := tbl.Get("k"); !ok || v != 2 {
		t.Fatalf("Get() = (%d, %v), want (2, true)", v, ok)
	}

	tbl.Remove("k")
	if _, ok := tbl.Get("k"); ok {
		t.Fatal("Get() after Remove() should miss")
	}
}

func TestGetNonexistentReturnsFalse(t *testing.T) {
	tbl := hoptable.WithCapacity[int, int](64)
	if _, ok := tbl.Get(12345); ok {
		t.Fatal("Get() on empty table should miss")
	}
}

func TestManyInsertsSurviveDisplacement(t *testing.T) {
	tbl := hoptable.WithCapacity[int, int](1 << 11)

	const n = 1000
	for i := 0; i < n; i++ {
		if err := tbl.Insert(i, i*i); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}
	for i := 0; i < n; i++ {
		v, ok := tbl.Get(i)
		if !ok {
			t.Fatalf("Get(%d) missing after insert", i)
		}
		if v != i*i {
			t.Fatalf("Get(%d) = %d, want %d", i, v, i*i)
		}
	}
}

// Filling a table past what displacement can absorb must surface a capacity
// error and leave every previously inserted key intact.
func TestCapacityFailureDoesNotCorrupt(t *testing.T) {
	tbl := hoptable.WithCapacity[int, int](16,
		hoptable.WithHopRange[int](4),
		hoptable.WithAddRange[int](8))

	inserted := make(map[int]int)
	var capErr error
	for i := 0; i < 256; i++ {
		err := tbl.Insert(i, i+1000)
		if err == nil {
			inserted[i] = i + 1000
			continue
		}
		if !hoptable.IsCapacity(err) {
			t.Fatalf("Insert(%d) error = %v, want a capacity error", i, err)
		}
		capErr = err
	}
	if capErr == nil {
		t.Fatal("expected at least one capacity failure filling a 16-slot table with 256 keys")
	}

	for k, want := range inserted {
		v, ok := tbl.Get(k)
		if !ok {
			t.Fatalf("Get(%d) missing after unrelated capacity failure", k)
		}
		if v != want {
			t.Fatalf("Get(%d) = %d, want %d", k, v, want)
		}
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	tbl := hoptable.WithCapacity[string, int](64)
	if err := tbl.Insert("k", 7); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if v, ok := tbl.Remove("k"); !ok || v != 7 {
		t.Fatalf("Remove() = (%d, %v), want (7, true)", v, ok)
	}
	if _, ok := tbl.Remove("k"); ok {
		t.Fatal("second Remove() should miss")
	}
}

func TestConcurrentGetDuringInsert(t *testing.T) {
	tbl := hoptable.WithCapacity[int, int](1 << 12)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			_ = tbl.Insert(i, i)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			if v, ok := tbl.Get(i); ok && v != i {
				t.Errorf("Get(%d) = %d, want %d or absent", i, v, i)
			}
		}
	}()
	wg.Wait()
}
