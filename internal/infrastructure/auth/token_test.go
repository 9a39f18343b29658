package auth

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomTokenGenerator(t *testing.T) {
	g := NewRandomTokenGenerator()
	seen := make(map[string]struct{})

	for range 50 {
		tok, err := g.Generate()
		require.NoError(t, err)

		raw, err := hex.DecodeString(tok)
		require.NoError(t, err)
		assert.Len(t, raw, tokenBytes)

		_, dup := seen[tok]
		assert.False(t, dup, "token repeated")
		seen[tok] = struct{}{}
	}
}
