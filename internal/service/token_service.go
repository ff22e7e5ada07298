package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenService emite y valida tokens firmados (acceso y reseteo de contraseña).
type TokenService struct {
	secret    []byte
	accessTTL time.Duration
	resetTTL  time.Duration
	issuer    string
}

type tokenClaims struct {
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

var ErrInvalidToken = errors.New("invalid token")

const (
	tokenTypeAccess = "access"
	tokenTypeReset  = "reset"
)

func NewTokenService(secret string, accessTTL, resetTTL time.Duration) *TokenService {
	return &TokenService{
		secret:    []byte(secret),
		accessTTL: accessTTL,
		resetTTL:  resetTTL,
		issuer:    "accounts-api",
	}
}

// CreateAccessToken firma un bearer token con sub = id de usuario.
func (s *TokenService) CreateAccessToken(userID string) (string, error) {
	return s.signToken(userID, s.accessTTL, tokenTypeAccess, false)
}

// CreateResetToken firma un token de reseteo con sub = email y nbf = ahora.
func (s *TokenService) CreateResetToken(email string) (string, error) {
	return s.signToken(email, s.resetTTL, tokenTypeReset, true)
}

// VerifyAccessToken devuelve el id de usuario si el token es válido.
func (s *TokenService) VerifyAccessToken(token string) (string, error) {
	return s.verifyToken(token, tokenTypeAccess)
}

// VerifyResetToken devuelve el email si el token es válido.
func (s *TokenService) VerifyResetToken(token string) (string, error) {
	return s.verifyToken(token, tokenTypeReset)
}

func (s *TokenService) signToken(subject string, ttl time.Duration, tokenType string, notBefore bool) (string, error) {
	if len(s.secret) == 0 || strings.TrimSpace(subject) == "" {
		return "", ErrInvalidToken
	}
	now := time.Now().UTC()
	claims := tokenClaims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if notBefore {
		claims.NotBefore = jwt.NewNumericDate(now)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *TokenService) verifyToken(tokenString, wantType string) (string, error) {
	if len(s.secret) == 0 || strings.TrimSpace(tokenString) == "" {
		return "", ErrInvalidToken
	}
	var claims tokenClaims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return "", ErrInvalidToken
	}
	if claims.TokenType != wantType || claims.Issuer != s.issuer {
		return "", ErrInvalidToken
	}
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return "", ErrInvalidToken
	}
	return subject, nil
}
