package kdf

import (
	"crypto/rand"
	"crypto/sha512"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// Параметры PBKDF2 для производных админских ключей
const (
	// Iterations количество итераций PBKDF2
	Iterations = 100000
	// KeyLength длина производного ключа в байтах
	KeyLength = 64
	// SaltLength длина случайной соли в байтах
	SaltLength = 64
)

// DeriveKey вычисляет производный ключ PBKDF2-SHA512 из промежуточного
// хеша и соли. Возвращает ключ в hex.
func DeriveKey(hash, salt string) string {
	key := pbkdf2.Key([]byte(hash), []byte(salt), Iterations, KeyLength, sha512.New)
	return hex.EncodeToString(key)
}

// NewSalt генерирует случайную соль и возвращает ее в hex.
// Соль используется как предъявительский токен администратора.
func NewSalt() (string, error) {
	salt := make([]byte, SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	return hex.EncodeToString(salt), nil
}
