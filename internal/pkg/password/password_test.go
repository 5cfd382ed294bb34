package password_test

import (
	"testing"

	"AuthVaultPlatform/internal/pkg/password"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBcryptHasher_HashAndCheck(t *testing.T) {
	hasher := password.NewBcryptHasher(4) // минимальный cost для скорости тестов

	hash, err := hasher.Hash("secret123")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotEqual(t, "secret123", hash)

	assert.True(t, hasher.Check("secret123", hash))
	assert.False(t, hasher.Check("secret124", hash))
	assert.False(t, hasher.Check("", hash))
}

func TestBcryptHasher_HashesDiffer(t *testing.T) {
	hasher := password.NewBcryptHasher(4)

	first, err := hasher.Hash("secret123")
	require.NoError(t, err)
	second, err := hasher.Hash("secret123")
	require.NoError(t, err)

	// Соль делает хеши одного пароля разными
	assert.NotEqual(t, first, second)
	assert.True(t, hasher.Check("secret123", first))
	assert.True(t, hasher.Check("secret123", second))
}

func TestBcryptHasher_DefaultCost(t *testing.T) {
	hasher := password.NewBcryptHasher(0)

	hash, err := hasher.Hash("secret123")
	require.NoError(t, err)
	assert.True(t, hasher.Check("secret123", hash))
}

func TestBcryptHasher_Validate(t *testing.T) {
	hasher := password.NewBcryptHasher(4)

	tests := []struct {
		name     string
		password string
		want     bool
	}{
		{"валидный пароль", "Secret123", true},
		{"слишком короткий", "Se1", false},
		{"без цифр", "SecretPass", false},
		{"без заглавных", "secret123", false},
		{"без строчных", "SECRET123", false},
		{"юникод", "Пароль123", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hasher.Validate(tt.password))
		})
	}
}
