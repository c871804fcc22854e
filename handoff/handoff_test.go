package handoff

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTakeOnce(t *testing.T) {
	var s Slot[string]
	assert.False(t, s.Pending())

	_, ok := s.Take()
	assert.False(t, ok)

	s.Put("merged.pdf")
	assert.True(t, s.Pending())

	v, ok := s.Peek()
	assert.True(t, ok)
	assert.Equal(t, "merged.pdf", v)

	v, ok = s.Take()
	assert.True(t, ok)
	assert.Equal(t, "merged.pdf", v)

	_, ok = s.Take()
	assert.False(t, ok)
	assert.False(t, s.Pending())
}

func TestPutReplaces(t *testing.T) {
	var s Slot[int]
	s.Put(1)
	s.Put(2)

	v, ok := s.Take()
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestConcurrentTake(t *testing.T) {
	var s Slot[[]byte]
	s.Put([]byte("%PDF-1.7"))

	var taken atomic.Int32
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := s.Take(); ok {
				taken.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), taken.Load())
}
