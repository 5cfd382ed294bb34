package secrets

import (
	"bytes"
	"encoding/base64"
	"errors"
	"io"

	"filippo.io/age"
)

// ErrDecryptFailed возвращается при любом сбое расшифровки: неверный ключ,
// поврежденный или усеченный шифротекст, некорректный base64. Детали сбоя
// намеренно не раскрываются: расшифровка либо удалась целиком, либо нет.
var ErrDecryptFailed = errors.New("secret decrypt failed")

// Cipher шифрует и расшифровывает секреты арендатора симметрично,
// ключом служит предъявленный клиентом API ключ (passphrase для scrypt).
// Шифротекст хранится в base64.
type Cipher struct {
	workFactor int
}

// NewCipher создает новый Cipher с заданным фактором работы scrypt.
// Значения вне диапазона 8..22 заменяются значением по умолчанию.
func NewCipher(workFactor int) *Cipher {
	if workFactor < 8 || workFactor > 22 {
		workFactor = 15
	}
	return &Cipher{workFactor: workFactor}
}

// Encrypt шифрует plaintext ключом key и возвращает base64 шифротекст.
// Используется при создании арендатора и в тестах.
func (c *Cipher) Encrypt(plaintext, key string) (string, error) {
	if key == "" {
		return "", errors.New("encryption key is required")
	}

	recipient, err := age.NewScryptRecipient(key)
	if err != nil {
		return "", err
	}
	recipient.SetWorkFactor(c.workFactor)

	var buf bytes.Buffer
	writer, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return "", err
	}
	if _, err := io.WriteString(writer, plaintext); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Decrypt расшифровывает base64 шифротекст ключом key.
// Любой сбой (неверный ключ, мусор вместо шифротекста, нарушение
// целостности) возвращается как ErrDecryptFailed, частичный plaintext
// не возвращается никогда.
func (c *Cipher) Decrypt(ciphertext, key string) (string, error) {
	if ciphertext == "" || key == "" {
		return "", ErrDecryptFailed
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrDecryptFailed
	}

	identity, err := age.NewScryptIdentity(key)
	if err != nil {
		return "", ErrDecryptFailed
	}

	reader, err := age.Decrypt(bytes.NewReader(raw), identity)
	if err != nil {
		return "", ErrDecryptFailed
	}

	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return "", ErrDecryptFailed
	}

	return string(plaintext), nil
}
