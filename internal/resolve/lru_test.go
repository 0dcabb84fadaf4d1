package resolve

import (
	"sync"
	"testing"
)

func TestLRU_Eviction(t *testing.T) {
	c := NewLRU[int, string](2)
	c.Add(1, "a")
	c.Add(2, "b")
	if _, ok := c.Get(1); !ok { // 1 becomes most recent
		t.Fatal("Get(1) ok = false")
	}
	c.Add(3, "c") // evicts 2

	if _, ok := c.Peek(2); ok {
		t.Error("Peek(2) ok = true, want evicted")
	}
	for _, k := range []int{1, 3} {
		if _, ok := c.Peek(k); !ok {
			t.Errorf("Peek(%d) ok = false, want present", k)
		}
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestLRU_Replace(t *testing.T) {
	c := NewLRU[int, string](2)
	c.Add(1, "a")
	c.Add(1, "z")
	if v, _ := c.Get(1); v != "z" {
		t.Errorf("Get(1) = %q, want z", v)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestLRU_Stats(t *testing.T) {
	c := NewLRU[int, int](4)
	c.Add(1, 1)
	c.Get(1)
	c.Get(2)
	c.Peek(1)
	hits, misses := c.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("Stats() = %d, %d, want 1, 1", hits, misses)
	}
}

func TestLRU_Concurrent(t *testing.T) {
	c := NewLRU[int, int](64)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				c.Add(i%128, g)
				c.Get(i % 97)
			}
		}(g)
	}
	wg.Wait()
	if c.Len() > 64 {
		t.Errorf("Len() = %d, want <= 64", c.Len())
	}
}
