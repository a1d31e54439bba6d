package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedTraceGenerator_ReturnsSameID(t *testing.T) {
	gen := NewFixedTraceGenerator("test-trace-123")

	assert.Equal(t, "test-trace-123", gen.Generate())
	assert.Equal(t, "test-trace-123", gen.Generate())
	assert.Equal(t, "test-trace-123", gen.Generate())
}

func TestFixedTraceGenerator_EmptyIDDefault(t *testing.T) {
	gen := NewFixedTraceGenerator("")
	assert.Equal(t, DefaultTraceID, gen.Generate())
}

func TestFixedTraceGenerator_ThreadSafe(t *testing.T) {
	gen := NewFixedTraceGenerator("thread-safe-id")

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				assert.Equal(t, "thread-safe-id", gen.Generate())
			}
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestSequentialTraceGenerator(t *testing.T) {
	gen := NewSequentialTraceGenerator("tr")

	assert.Equal(t, "tr-1", gen.Generate())
	assert.Equal(t, "tr-2", gen.Generate())
	assert.Equal(t, "tr-3", gen.Generate())
}

func TestSequentialTraceGenerator_Unique(t *testing.T) {
	gen := NewSequentialTraceGenerator("tr")

	var (
		mu   sync.Mutex
		seen = map[string]bool{}
		wg   sync.WaitGroup
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := gen.Generate()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 500)
}
