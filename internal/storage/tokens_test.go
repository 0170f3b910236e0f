// internal/storage/tokens_test.go
package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestTokenStore_RoundTripAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "tokens.json")
	logger := zaptest.NewLogger(t)

	store, err := OpenTokenStore(path, logger)
	require.NoError(t, err)
	assert.False(t, store.Seen("0xAbC1"))

	require.NoError(t, store.MarkSeen("0xAbC1", "CAT"))
	assert.True(t, store.Seen("0xAbC1"))
	assert.True(t, store.Seen("0xabc1"), "lookup is case insensitive")

	reopened, err := OpenTokenStore(path, logger)
	require.NoError(t, err)
	assert.True(t, reopened.Seen("0xAbC1"))
	assert.Equal(t, 1, reopened.Len())
}

func TestTokenStore_CorruptFileStartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	store, err := OpenTokenStore(path, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, 0, store.Len())
}

func TestTokenStore_ClearsWhenFull(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	store, err := OpenTokenStore(path, zaptest.NewLogger(t))
	require.NoError(t, err)

	for i := 0; i < maxEntries; i++ {
		require.NoError(t, store.MarkSeen(addrForIndex(i), ""))
	}
	require.Equal(t, maxEntries, store.Len())

	require.NoError(t, store.MarkSeen("0xfresh", ""))
	assert.Equal(t, 1, store.Len())
	assert.True(t, store.Seen("0xfresh"))
	assert.False(t, store.Seen(addrForIndex(0)))
}

func addrForIndex(i int) string {
	return "0x" + string(rune('a'+i%26)) + string(rune('a'+(i/26)%26)) + string(rune('a'+(i/676)%26))
}
