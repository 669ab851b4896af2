package partition_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basecamp-overlay/overlay/internal/model"
	"github.com/basecamp-overlay/overlay/internal/partition"
)

func openStore(t *testing.T, lo, hi int64) *partition.Store {
	t.Helper()
	s, err := partition.Open(t.Name(), lo, hi, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSeedThenGet(t *testing.T) {
	s := openStore(t, 0, 9)
	require.NoError(t, s.Seed())

	item, ok, err := s.Get(5)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(5), item.Key)
	assert.Equal(t, t.Name(), item.SourceNode)
}

func TestGetOutOfRangeIsAbsentNotError(t *testing.T) {
	s := openStore(t, 100, 199)
	require.NoError(t, s.Seed())

	_, ok, err := s.Get(50)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPutRejectsOutOfRangeKey(t *testing.T) {
	s := openStore(t, 100, 199)

	ok, err := s.Put(model.DataItem{Key: 50, Value: model.Value{Kind: model.ValueString, Str: "x"}})
	require.NoError(t, err)
	assert.False(t, ok, "write isolation: out-of-range key must never be stored")

	_, found, err := s.Get(50)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRangeYieldsKeyOrderedIntersection(t *testing.T) {
	s := openStore(t, 200, 399)
	require.NoError(t, s.Seed())

	items, err := s.Range(150, 250)
	require.NoError(t, err)
	require.Len(t, items, 51) // 200..250 inclusive
	for i, item := range items {
		assert.Equal(t, int64(200+i), item.Key)
	}
}

func TestAllYieldsFullInterval(t *testing.T) {
	s := openStore(t, 0, 19)
	require.NoError(t, s.Seed())

	items, err := s.All()
	require.NoError(t, err)
	assert.Len(t, items, 20)
}

func TestIdempotentExactRead(t *testing.T) {
	s := openStore(t, 0, 99)
	require.NoError(t, s.Seed())

	first, ok1, err1 := s.Get(42)
	second, ok2, err2 := s.Get(42)
	require.NoError(t, err1)
	require.NoError(t, err2)
	require.True(t, ok1)
	require.True(t, ok2)
	assert.Equal(t, first, second)
}

func TestConcurrentWritesToDistinctKeysAllSucceed(t *testing.T) {
	s := openStore(t, 0, 999)

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(key int64) {
			defer wg.Done()
			ok, err := s.Put(model.DataItem{Key: key, Value: model.Value{Kind: model.ValueString, Str: "x"}, SourceNode: "self"})
			assert.NoError(t, err)
			assert.True(t, ok)
		}(int64(i))
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		_, ok, err := s.Get(int64(i))
		require.NoError(t, err)
		assert.True(t, ok)
	}
}
