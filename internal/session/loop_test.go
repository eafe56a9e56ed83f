package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopRunsInOrder(t *testing.T) {
	l := NewLoop()
	defer l.Close()

	var got []int
	for i := range 5 {
		l.Post(func() { got = append(got, i) })
	}
	require.NoError(t, l.Do(func() { got = append(got, 5) }))
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, got)
}

func TestLoopDoFromManyGoroutines(t *testing.T) {
	l := NewLoop()
	defer l.Close()

	n := 0
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.Do(func() { n++ }))
		}()
	}
	wg.Wait()
	require.NoError(t, l.Do(func() {}))
	assert.Equal(t, 50, n)
}

func TestLoopDoRecoversPanic(t *testing.T) {
	l := NewLoop()
	defer l.Close()

	err := l.Do(func() { panic("boom") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	l.Post(func() { panic("posted boom") })
	assert.NoError(t, l.Do(func() {}), "loop survives a panicking task")
}

func TestLoopAfterClose(t *testing.T) {
	l := NewLoop()
	l.Close()
	l.Close()

	assert.ErrorIs(t, l.Do(func() { t.Error("ran after close") }), ErrClosed)
	l.Post(func() { t.Error("ran after close") })
}
