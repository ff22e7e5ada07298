package sso

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"accounts-api/internal/domain"
)

var (
	ErrUnknownProvider = errors.New("unknown sso provider")
	ErrProviderError   = errors.New("sso provider exchange failed")
	ErrMissingEmail    = errors.New("email attribute missing in provider response")
)

// UserResolver mapea el email del provider a una cuenta local.
type UserResolver interface {
	GetOrCreate(ctx context.Context, email, firstName, lastName string) (domain.User, error)
}

// TokenIssuer emite el bearer token local al finalizar el login.
type TokenIssuer interface {
	CreateAccessToken(userID string) (string, error)
}

// Service ejecuta el protocolo de login federado, común a todos los providers.
type Service struct {
	logger      *zap.Logger
	users       UserResolver
	tokens      TokenIssuer
	frontendURL string
	providers   map[string]Provider
}

func NewService(logger *zap.Logger, users UserResolver, tokens TokenIssuer, frontendURL string) *Service {
	return &Service{
		logger:      logger,
		users:       users,
		tokens:      tokens,
		frontendURL: frontendURL,
		providers:   make(map[string]Provider),
	}
}

// Register agrega un provider configurado.
func (s *Service) Register(p Provider) {
	s.providers[p.Name()] = p
}

// Initiate devuelve la URL de autorización del provider con el state armado.
func (s *Service) Initiate(providerName, next string) (string, error) {
	provider, ok := s.providers[providerName]
	if !ok {
		return "", ErrUnknownProvider
	}
	if strings.TrimSpace(next) == "" {
		next = s.frontendURL
	}
	return provider.AuthCodeURL(EncodeState(next)), nil
}

// Callback procesa la vuelta del provider y devuelve siempre una URL de
// redirección: el destino con token en el caso feliz, o el frontend por
// defecto ante cualquier falla. Los errores nunca llegan al navegador.
func (s *Service) Callback(ctx context.Context, providerName, code, state string) string {
	redirectURL, err := s.callback(ctx, providerName, code, state)
	if err != nil {
		s.logger.Error("sso callback failed",
			zap.String("provider", providerName),
			zap.Error(err),
		)
		return s.frontendURL
	}
	return redirectURL
}

func (s *Service) callback(ctx context.Context, providerName, code, state string) (string, error) {
	provider, ok := s.providers[providerName]
	if !ok {
		return "", ErrUnknownProvider
	}

	next, err := DecodeState(state)
	if err != nil {
		return "", err
	}

	token, err := provider.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderError, err)
	}
	if !token.Valid() {
		return "", fmt.Errorf("%w: no access token returned", ErrProviderError)
	}

	profile, err := provider.Profile(ctx, token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderError, err)
	}
	if profile.Email == "" {
		return "", ErrMissingEmail
	}

	user, err := s.users.GetOrCreate(ctx, profile.Email, profile.FirstName, profile.LastName)
	if err != nil {
		return "", err
	}

	accessToken, err := s.tokens.CreateAccessToken(user.ID)
	if err != nil {
		return "", err
	}
	return appendToken(next, accessToken), nil
}

func appendToken(next, token string) string {
	separator := "?"
	if strings.Contains(next, "?") {
		separator = "&"
	}
	return next + separator + "token=" + token
}
