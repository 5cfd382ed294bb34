package kdf_test

import (
	"encoding/hex"
	"testing"

	"AuthVaultPlatform/internal/pkg/kdf"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKey_Deterministic(t *testing.T) {
	first := kdf.DeriveKey("intermediate-hash", "salt")
	second := kdf.DeriveKey("intermediate-hash", "salt")

	assert.Equal(t, first, second)

	raw, err := hex.DecodeString(first)
	require.NoError(t, err)
	assert.Len(t, raw, kdf.KeyLength)
}

func TestDeriveKey_DependsOnInputs(t *testing.T) {
	base := kdf.DeriveKey("intermediate-hash", "salt")

	assert.NotEqual(t, base, kdf.DeriveKey("other-hash", "salt"))
	assert.NotEqual(t, base, kdf.DeriveKey("intermediate-hash", "other-salt"))
}

func TestNewSalt(t *testing.T) {
	first, err := kdf.NewSalt()
	require.NoError(t, err)
	second, err := kdf.NewSalt()
	require.NoError(t, err)

	// Соль случайна и имеет фиксированную длину
	assert.NotEqual(t, first, second)

	raw, err := hex.DecodeString(first)
	require.NoError(t, err)
	assert.Len(t, raw, kdf.SaltLength)
}
