package token

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()
	tok := New()
	assert.Len(t, tok, 64) // 32 字节 hex

	_, err := hex.DecodeString(tok)
	require.NoError(t, err)

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		v := New()
		_, dup := seen[v]
		require.False(t, dup)
		seen[v] = struct{}{}
	}
}
