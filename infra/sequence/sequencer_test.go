package sequence

import (
	"sync"
	"testing"
)

func TestNextIsMonotonic(t *testing.T) {
	s := New(0)
	for want := uint64(1); want <= 100; want++ {
		if got := s.Next(); got != want {
			t.Fatalf("Next() = %d, want %d", got, want)
		}
	}
	if s.Current() != 100 {
		t.Errorf("Current() = %d, want 100", s.Current())
	}
}

func TestResetForwardOnly(t *testing.T) {
	s := New(0)
	s.Reset(50)
	if s.Current() != 50 {
		t.Fatalf("Current() = %d after reset, want 50", s.Current())
	}
	s.Reset(10)
	if s.Current() != 50 {
		t.Errorf("reset moved backwards to %d", s.Current())
	}
	if s.Next() != 51 {
		t.Error("Next() should continue past the reset point")
	}
}

func TestConcurrentNextIsUnique(t *testing.T) {
	s := New(0)
	const workers = 8
	const per = 1000

	var wg sync.WaitGroup
	results := make([][]uint64, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			out := make([]uint64, 0, per)
			for i := 0; i < per; i++ {
				out = append(out, s.Next())
			}
			results[w] = out
		}(w)
	}
	wg.Wait()

	seen := make(map[uint64]bool, workers*per)
	for _, out := range results {
		for _, v := range out {
			if seen[v] {
				t.Fatalf("sequence %d issued twice", v)
			}
			seen[v] = true
		}
	}
	if len(seen) != workers*per {
		t.Errorf("issued %d sequences, want %d", len(seen), workers*per)
	}
}
