package mysync

import (
	"sync"
	"testing"
)

func TestMutexGuardsValue(t *testing.T) {
	type counter struct{ n int }
	mu := NewMutex(&counter{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				mu.Do(func(c *counter) { c.n++ })
			}
		}()
	}
	wg.Wait()

	c, u := mu.RLock()
	defer u.RUnlock()
	if c.n != 8000 {
		t.Errorf("n=%d, want 8000", c.n)
	}
}
