package provision

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSharedContextSerializes(t *testing.T) {
	shared := NewSharedContext(nil)

	var inside atomic.Int32
	var overlapped atomic.Bool
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				shared.Acquire()
				if inside.Add(1) != 1 {
					overlapped.Store(true)
				}
				inside.Add(-1)
				shared.Release()
			}
		}()
	}
	wg.Wait()

	assert.False(t, overlapped.Load(), "two holders inside the context at once")
}
