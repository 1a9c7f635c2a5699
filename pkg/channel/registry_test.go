package channel

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_AddGetRemove(t *testing.T) {
	r := NewRegistry()

	ch, err := New("com1", 16, 64)
	require.NoError(t, err)
	require.NoError(t, r.Add(ch))

	got, ok := r.Get("com1")
	require.True(t, ok)
	assert.Same(t, ch, got)

	_, ok = r.Get("com2")
	assert.False(t, ok)

	ch.AddRange([]byte("pending"))
	assert.True(t, r.Remove("com1"))
	assert.Zero(t, ch.Len(), "removed channel is cleared")
	assert.False(t, r.Remove("com1"))
	assert.Zero(t, r.Len())
}

func TestRegistry_AtMostOnePerKey(t *testing.T) {
	r := NewRegistry()

	first, _ := New("k", 16, 64)
	second, _ := New("k", 16, 64)

	require.NoError(t, r.Add(first))
	assert.ErrorIs(t, r.Add(second), ErrExists)

	got, _ := r.Get("k")
	assert.Same(t, first, got)
}

func TestRegistry_Clear(t *testing.T) {
	r := NewRegistry()
	for _, key := range []string{"b", "a", "c"} {
		ch, _ := New(key, 16, 64)
		ch.AddRange([]byte(key))
		require.NoError(t, r.Add(ch))
	}

	assert.Equal(t, []string{"a", "b", "c"}, r.Keys())
	assert.Equal(t, []string{"a", "b", "c"}, r.Clear())
	assert.Zero(t, r.Len())
	assert.Empty(t, r.Clear())
}

func TestRegistry_ConcurrentDistinctKeys(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("conn-%d", i)
			ch, err := New(key, 16, 64)
			if !assert.NoError(t, err) {
				return
			}
			assert.NoError(t, r.Add(ch))
			_, ok := r.Get(key)
			assert.True(t, ok)
			if i%2 == 0 {
				assert.True(t, r.Remove(key))
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 16, r.Len())
}
