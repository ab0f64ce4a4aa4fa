package htm_test

import (
	"testing"

	"github.com/lever-go/stm/htm"
)

func TestRunReportsNotStartedByDefault(t *testing.T) {
	called := false
	_, ok := htm.Run(func() int {
		called = true
		return 1
	})
	if ok {
		t.Fatal("Run() ok = true, want false (no hardware backend linked in this build)")
	}
	if called {
		t.Fatal("Run() invoked f despite reporting ok = false")
	}
}

func TestSupportedDoesNotPanic(t *testing.T) {
	_ = htm.Supported()
}
