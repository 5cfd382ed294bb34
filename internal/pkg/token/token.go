package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Ошибки проверки токена
var (
	// ErrExpired токен просрочен
	ErrExpired = errors.New("token expired")
	// ErrInvalidSignature подпись не совпадает с ожидаемым секретом
	ErrInvalidSignature = errors.New("token signature invalid")
	// ErrMalformed токен структурно некорректен
	ErrMalformed = errors.New("token malformed")
)

// Claims полезная нагрузка токена: идентификатор субъекта, имя пользователя
// и необязательный email. Access и refresh токены несут одинаковую форму
// claims; классы разделяются непересекающимися секретами арендатора,
// а не флагом в claims.
type Claims struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Codec подписывает и проверяет токены с истечением срока действия.
// Секрет передается в каждый вызов: подпись всегда выполняется
// расшифрованным секретом конкретного арендатора, глобального секрета нет,
// это и есть механизм изоляции доверия токенов между арендаторами.
type Codec interface {
	Issue(claims Claims, secret string, ttl time.Duration) (string, error)
	Verify(tokenString, secret string) (*Claims, error)
}

// JWTCodec реализация Codec поверх HS256 JWT
type JWTCodec struct{}

// NewJWTCodec создает новый JWTCodec
func NewJWTCodec() *JWTCodec {
	return &JWTCodec{}
}

// Issue подписывает claims секретом с заданным временем жизни
func (c *JWTCodec) Issue(claims Claims, secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("signing secret is required")
	}

	now := time.Now().UTC()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		Subject:   claims.ID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)
	return token.SignedString([]byte(secret))
}

// Verify проверяет подпись и срок действия токена указанным секретом.
// Сбои приводятся к ErrExpired, ErrInvalidSignature или ErrMalformed.
func (c *JWTCodec) Verify(tokenString, secret string) (*Claims, error) {
	parsedToken, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Принимаем только HMAC подписи
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrInvalidSignature
		default:
			return nil, ErrMalformed
		}
	}

	claims, ok := parsedToken.Claims.(*Claims)
	if !ok || !parsedToken.Valid {
		return nil, ErrMalformed
	}

	return claims, nil
}
