package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_Typed(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("storage.backend", "sqlite"))
	require.NoError(t, store.Set("chunking.min_tokens", int64(300)))
	require.NoError(t, store.Set("chunking.token_factor", 1.3))
	require.NoError(t, store.Set("logging.verbose", true))
	require.NoError(t, store.Set("ingest.include", []any{"**/*.pdf", 7, "*.md"}))

	assert.Equal(t, "sqlite", store.GetString("storage.backend"))
	assert.Equal(t, 300, store.GetInt("chunking.min_tokens"))
	assert.InDelta(t, 1.3, store.GetFloat("chunking.token_factor"), 1e-9)
	assert.InDelta(t, 300.0, store.GetFloat("chunking.min_tokens"), 1e-9)
	assert.True(t, store.GetBool("logging.verbose"))
	assert.Equal(t, []string{"**/*.pdf", "*.md"}, store.GetStringSlice("ingest.include"))
}

func TestConfigStore_MissingAndMistyped(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("chunking.min_tokens", "many"))

	_, ok := store.Get("absent")
	assert.False(t, ok)
	assert.Empty(t, store.GetString("absent"))
	assert.Zero(t, store.GetInt("chunking.min_tokens"))
	assert.Zero(t, store.GetFloat("chunking.min_tokens"))
	assert.False(t, store.GetBool("chunking.min_tokens"))
	assert.Nil(t, store.GetStringSlice("chunking.min_tokens"))
}

func TestConfigStore_LoadAndPath(t *testing.T) {
	store := NewConfigStore()
	assert.NoError(t, store.Load())
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := NewConfigStore()
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("k.%d", n)
			_ = store.Set(key, n)
			_ = store.GetInt(key)
		}(i)
	}
	wg.Wait()

	for i := range 20 {
		assert.Equal(t, i, store.GetInt(fmt.Sprintf("k.%d", i)))
	}
}
