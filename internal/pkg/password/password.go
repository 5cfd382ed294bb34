package password

import (
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// Hasher интерфейс для работы с паролями и другими секретами,
// сравниваемыми по медленному соленому хешу
type Hasher interface {
	Hash(secret string) (string, error)
	Check(candidate, hash string) bool
	Validate(secret string) bool
}

// BcryptHasher реализация Hasher с использованием bcrypt
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher создает новый BcryptHasher
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash хеширует секрет с использованием bcrypt
func (h *BcryptHasher) Hash(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Check проверяет, соответствует ли кандидат хешу.
// bcrypt.CompareHashAndPassword сравнивает за постоянное время и не
// завершается раньше на первом несовпадении.
func (h *BcryptHasher) Check(candidate, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(candidate))
	return err == nil
}

// Validate проверяет сложность пароля: минимум 8 символов,
// хотя бы одна цифра, одна заглавная и одна строчная буква
func (h *BcryptHasher) Validate(secret string) bool {
	if len(secret) < 8 {
		return false
	}

	hasDigit := false
	hasUpper := false
	hasLower := false

	for _, r := range secret {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		}
	}

	return hasDigit && hasUpper && hasLower
}
