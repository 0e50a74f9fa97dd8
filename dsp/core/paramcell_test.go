package core

import (
	"sync"
	"testing"
)

func TestParamCellStoreLoad(t *testing.T) {
	var c ParamCell

	if got := c.Load(); got != 0 {
		t.Fatalf("zero value Load() = %v, want 0", got)
	}

	c.Store(0.75)
	if got := c.Load(); got != 0.75 {
		t.Fatalf("Load() = %v, want 0.75", got)
	}
}

func TestParamCellCrossGoroutine(t *testing.T) {
	var c ParamCell
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			c.Store(float64(i))
		}
	}()

	// Reader only ever observes fully published values.
	for i := 0; i < 1000; i++ {
		v := c.Load()
		if v != float64(int(v)) {
			t.Fatalf("torn read: %v", v)
		}
	}

	wg.Wait()

	if got := c.Load(); got != 999 {
		t.Fatalf("final Load() = %v, want 999", got)
	}
}
