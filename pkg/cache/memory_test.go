package cache

import (
	"sync"
	"testing"

	"github.com/kerbaras/mangetsu/pkg/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryEvictsLeastRecentlyUsed(t *testing.T) {
	m, err := NewMemory[string, data.Manga](2)
	require.NoError(t, err)

	m.Add("a", data.Manga{URL: "a", Title: "A"})
	m.Add("b", data.Manga{URL: "b", Title: "B"})
	_, ok := m.Get("a")
	require.True(t, ok)

	evicted := m.Add("c", data.Manga{URL: "c", Title: "C"})
	assert.True(t, evicted)
	assert.True(t, m.Contains("a"))
	assert.False(t, m.Contains("b"))
	assert.Equal(t, 2, m.Len())
}

func TestMemoryReplacesEntry(t *testing.T) {
	m, err := NewMemory[string, data.Manga](0)
	require.NoError(t, err)

	m.Add("a", data.Manga{URL: "a", Title: "Old"})
	m.Add("a", data.Manga{URL: "a", Title: "New"})

	got, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, "New", got.Title)
	assert.Equal(t, []data.Manga{{URL: "a", Title: "New"}}, m.Values())
}

func TestMemoryConcurrentAccess(t *testing.T) {
	m, err := NewMemory[int, int](64)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Add(i*100+j, j)
				m.Get(j)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 64, m.Len())
}
