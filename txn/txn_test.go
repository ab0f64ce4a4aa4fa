package txn_test

import (
	"sync"
	"testing"
	"time"

	"github.com/lever-go/stm/txn"
)

func newTxn(t *testing.T, isolation txn.Isolation) (*txn.Manager, *txn.Txn) {
	t.Helper()
	mgr := txn.NewManager()
	tx, err := mgr.Build(txn.Config{
		Concurrency: txn.Optimistic,
		Isolation:   isolation,
		Timeout:     50 * time.Millisecond,
		Label:       t.Name(),
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return mgr, tx
}

func TestSingleThreadCounter(t *testing.T) {
	mgr, tx := newTxn(t, txn.RepeatableRead)
	v := txn.NewTVar(mgr, 100)

	_, err := txn.Begin(tx, func(t *txn.Txn) any {
		got := txn.Read(t, v)
		if got != 100 {
			panic("expected 100")
		}
		txn.Write(t, v, 101)
		return nil
	})
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	if got := v.GetData(); got != 101 {
		t.Fatalf("GetData() = %d, want 101", got)
	}
}

// Two goroutines race a serializable write to the same TVar: the final
// value must be one of the two written values.
func TestSerializableWriteRace(t *testing.T) {
	mgr := txn.NewManager()
	newTx := func() *txn.Txn {
		tx, err := mgr.Build(txn.Config{
			Concurrency: txn.Optimistic,
			Isolation:   txn.Serializable,
			Timeout:     100 * time.Millisecond,
		})
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		return tx
	}

	v := txn.NewTVar(mgr, 100)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		tx := newTx()
		_, _ = txn.Begin(tx, func(t *txn.Txn) any {
			txn.Read(t, v)
			txn.Write(t, v, 200)
			return nil
		})
	}()
	go func() {
		defer wg.Done()
		tx := newTx()
		_, _ = txn.Begin(tx, func(t *txn.Txn) any {
			txn.Read(t, v)
			txn.Write(t, v, 300)
			return nil
		})
	}()
	wg.Wait()

	final := v.GetData()
	if final != 200 && final != 300 {
		t.Fatalf("GetData() = %d, want 200 or 300", final)
	}
}

// Bank invariant under sustained concurrent transfers: transfers move 100
// between accounts only when the source pair holds at least 100, so the
// checker goroutines must never observe a negative pair sum.
func TestBankInvariant(t *testing.T) {
	mgr := txn.NewManager()
	a1 := txn.NewTVar(mgr, 50)
	a2 := txn.NewTVar(mgr, 50)
	b := txn.NewTVar(mgr, 0)

	newTx := func() *txn.Txn {
		tx, err := mgr.Build(txn.Config{
			Concurrency: txn.Optimistic,
			Isolation:   txn.Serializable,
			Timeout:     50 * time.Millisecond,
		})
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		return tx
	}

	const goroutines = 8
	const iterations = 100

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func(even bool) {
			defer wg.Done()
			tx := newTx()
			for i := 0; i < iterations; i++ {
				if even {
					_, _ = txn.Begin(tx, func(t *txn.Txn) any {
						x1 := txn.Read(t, a1)
						x2 := txn.Read(t, a2)
						if x1+x2 >= 100 {
							txn.Write(t, a1, x1-100)
							txn.Write(t, b, txn.Read(t, b)+100)
						}
						return nil
					})
				} else {
					_, _ = txn.Begin(tx, func(t *txn.Txn) any {
						x1 := txn.Read(t, a1)
						x2 := txn.Read(t, a2)
						bb := txn.Read(t, b)
						if x1+x2 < 0 {
							panic("invariant violated: A1+A2 < 0")
						}
						if bb == 200 {
							panic("invariant violated: B == 200")
						}
						return nil
					})
				}
			}
		}(g%2 == 0)
	}
	wg.Wait()

	if a1.GetData()+a2.GetData() < 0 {
		t.Fatal("final invariant violated: A1+A2 < 0")
	}
	if b.GetData() == 200 {
		t.Fatal("final invariant violated: B == 200")
	}
}

func TestConfigurationRejectsUnsupportedCombinations(t *testing.T) {
	mgr := txn.NewManager()

	if _, err := mgr.Build(txn.Config{Concurrency: txn.Optimistic, Isolation: txn.ReadCommitted}); !txn.IsConfigurationError(err) {
		t.Fatalf("expected configuration error for Optimistic+ReadCommitted, got %v", err)
	}
	if _, err := mgr.Build(txn.Config{Concurrency: txn.Pessimistic, Isolation: txn.Serializable}); !txn.IsConfigurationError(err) {
		t.Fatalf("expected configuration error for Pessimistic, got %v", err)
	}
}

func TestRollbackIsAbortedNotRetried(t *testing.T) {
	mgr, tx := newTxn(t, txn.Serializable)
	v := txn.NewTVar(mgr, 1)
	attempts := 0

	_, err := txn.Begin(tx, func(t *txn.Txn) any {
		attempts++
		txn.Write(t, v, 2)
		t.Rollback()
		return nil
	})
	if !txn.IsAborted(err) {
		t.Fatalf("expected aborted error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected exactly one attempt, got %d", attempts)
	}
	if v.GetData() != 1 {
		t.Fatalf("rolled-back write must not be published, got %d", v.GetData())
	}
}

func TestReadYourOwnWriteWithinAttempt(t *testing.T) {
	mgr, tx := newTxn(t, txn.RepeatableRead)
	v := txn.NewTVar(mgr, 0)

	_, err := txn.Begin(tx, func(t *txn.Txn) any {
		txn.Write(t, v, 42)
		if got := txn.Read(t, v); got != 42 {
			panic("expected to read own buffered write")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
}
