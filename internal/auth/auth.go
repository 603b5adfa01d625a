// Package auth - пароли операторов платформы и JWT для API.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const issuer = "mt-trader"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

// Claims - полезная нагрузка токена. Username дублирует Subject,
// фронтенд читает его напрямую из тела токена.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Service выпускает и проверяет токены операторов
type Service struct {
	jwtSecret []byte
	tokenTTL  time.Duration
}

func NewService(jwtSecret string, tokenTTL time.Duration) *Service {
	return &Service{
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
	}
}

// HashPassword хеширует пароль для профиля оператора
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(hash), nil
}

// VerifyPassword сверяет пароль с сохранённым хешем
func (s *Service) VerifyPassword(hashedPassword, password string) error {
	if bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) != nil {
		return ErrInvalidCredentials
	}

	return nil
}

// GenerateToken выпускает HS256 токен на tokenTTL
func (s *Service) GenerateToken(username string) (string, error) {
	now := time.Now()

	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

// ValidateToken проверяет подпись, срок и issuer токена
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return s.jwtSecret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Username == "" {
		claims.Username = claims.Subject
	}

	return claims, nil
}
