package sso

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

// Profile son los datos mínimos que extraemos del identity provider.
type Profile struct {
	Email     string
	FirstName string
	LastName  string
}

// Provider abstrae el intercambio OAuth de cada identity provider. Cada
// variante aporta endpoints, credenciales y el mapeo del perfil.
type Provider interface {
	Name() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	Profile(ctx context.Context, token *oauth2.Token) (Profile, error)
}

var defaultScopes = []string{"openid", "email", "profile"}

// oauthProvider cubre providers con intercambio manual de code y userinfo
// endpoint plano (LinkedIn, Okta).
type oauthProvider struct {
	name        string
	cfg         *oauth2.Config
	userinfoURL string
}

func (p *oauthProvider) Name() string { return p.name }

func (p *oauthProvider) AuthCodeURL(state string) string {
	return p.cfg.AuthCodeURL(state)
}

func (p *oauthProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return p.cfg.Exchange(ctx, code)
}

func (p *oauthProvider) Profile(ctx context.Context, token *oauth2.Token) (Profile, error) {
	return fetchUserinfo(ctx, p.cfg.Client(ctx, token), p.userinfoURL)
}

// oidcProvider verifica además el id_token del intercambio (Google, Microsoft).
type oidcProvider struct {
	oauthProvider
	verifier *oidc.IDTokenVerifier
}

func (p *oidcProvider) Profile(ctx context.Context, token *oauth2.Token) (Profile, error) {
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return Profile{}, fmt.Errorf("missing id_token in %s response", p.name)
	}
	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return Profile{}, fmt.Errorf("verify %s id_token: %w", p.name, err)
	}
	var claims profileClaims
	if err := idToken.Claims(&claims); err != nil {
		return Profile{}, fmt.Errorf("parse %s claims: %w", p.name, err)
	}
	profile := claims.toProfile()
	if profile.Email == "" && p.userinfoURL != "" {
		// Algunos tenants no incluyen email en el id_token.
		return fetchUserinfo(ctx, p.cfg.Client(ctx, token), p.userinfoURL)
	}
	return profile, nil
}

type profileClaims struct {
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
}

func (c profileClaims) toProfile() Profile {
	return Profile{
		Email:     strings.TrimSpace(c.Email),
		FirstName: strings.TrimSpace(c.GivenName),
		LastName:  strings.TrimSpace(c.FamilyName),
	}
}

func fetchUserinfo(ctx context.Context, client *http.Client, userinfoURL string) (Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, userinfoURL, nil)
	if err != nil {
		return Profile{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Profile{}, fmt.Errorf("userinfo returned %d: %s", resp.StatusCode, string(body))
	}

	var claims profileClaims
	if err := json.NewDecoder(resp.Body).Decode(&claims); err != nil {
		return Profile{}, fmt.Errorf("decode userinfo: %w", err)
	}
	return claims.toProfile(), nil
}

// NewGoogle construye el provider de Google con discovery OIDC.
func NewGoogle(ctx context.Context, clientID, clientSecret, redirectURL string) (Provider, error) {
	return newOIDCProvider(ctx, "google", "https://accounts.google.com", clientID, clientSecret, redirectURL, false)
}

// NewMicrosoft construye el provider de Microsoft para el tenant dado.
func NewMicrosoft(ctx context.Context, clientID, clientSecret, tenant, redirectURL string) (Provider, error) {
	issuer := fmt.Sprintf("https://login.microsoftonline.com/%s/v2.0", tenant)
	// Con tenant "common" el issuer del discovery es por-tenant y no coincide.
	skipIssuerCheck := tenant == "common" || tenant == "organizations" || tenant == "consumers"
	return newOIDCProvider(ctx, "microsoft", issuer, clientID, clientSecret, redirectURL, skipIssuerCheck)
}

func newOIDCProvider(ctx context.Context, name, issuer, clientID, clientSecret, redirectURL string, skipIssuerCheck bool) (Provider, error) {
	discovered, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("discover %s provider: %w", name, err)
	}
	verifier := discovered.Verifier(&oidc.Config{
		ClientID:        clientID,
		SkipIssuerCheck: skipIssuerCheck,
	})

	var userinfoURL string
	var metadata struct {
		UserinfoEndpoint string `json:"userinfo_endpoint"`
	}
	if err := discovered.Claims(&metadata); err == nil {
		userinfoURL = metadata.UserinfoEndpoint
	}

	return &oidcProvider{
		oauthProvider: oauthProvider{
			name: name,
			cfg: &oauth2.Config{
				ClientID:     clientID,
				ClientSecret: clientSecret,
				Endpoint:     discovered.Endpoint(),
				RedirectURL:  redirectURL,
				Scopes:       defaultScopes,
			},
			userinfoURL: userinfoURL,
		},
		verifier: verifier,
	}, nil
}

// NewLinkedIn construye el provider de LinkedIn (intercambio manual).
func NewLinkedIn(clientID, clientSecret, redirectURL string) Provider {
	return &oauthProvider{
		name: "linkedin",
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     endpoints.LinkedIn,
			RedirectURL:  redirectURL,
			Scopes:       defaultScopes,
		},
		userinfoURL: "https://api.linkedin.com/v2/userinfo",
	}
}

// NewOkta construye el provider de Okta contra el dominio de la organización.
func NewOkta(baseURL, clientID, clientSecret, redirectURL string) Provider {
	base := strings.TrimSuffix(baseURL, "/")
	if !strings.HasPrefix(base, "https://") && !strings.HasPrefix(base, "http://") {
		base = "https://" + base
	}
	return &oauthProvider{
		name: "okta",
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  base + "/oauth2/v1/authorize",
				TokenURL: base + "/oauth2/v1/token",
			},
			RedirectURL: redirectURL,
			Scopes:      defaultScopes,
		},
		userinfoURL: base + "/oauth2/v1/userinfo",
	}
}
