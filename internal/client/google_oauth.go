package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/optifit/backend/internal/config"
	"github.com/optifit/backend/internal/model"
	"golang.org/x/oauth2"
)

const ProviderGoogle = "google"

type GoogleOAuthClient struct {
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

type googleClaims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
}

// NewGoogleOAuthClient discovers the issuer's endpoints and signing keys.
func NewGoogleOAuthClient(ctx context.Context, cfg config.OAuthConfig) (*GoogleOAuthClient, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("missing GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET/GOOGLE_REDIRECT_URL")
	}
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to discover oidc provider: %w", err)
	}

	return &GoogleOAuthClient{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
	}, nil
}

func (c *GoogleOAuthClient) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// Exchange trades the authorization code for tokens and returns the identity
// asserted by the verified ID token.
func (c *GoogleOAuthClient) Exchange(ctx context.Context, code string) (*model.ExternalIdentity, error) {
	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, errors.New("token response has no id_token")
	}

	idToken, err := c.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify id_token: %w", err)
	}

	var claims googleClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse id_token claims: %w", err)
	}
	return identityFromClaims(claims)
}

func identityFromClaims(claims googleClaims) (*model.ExternalIdentity, error) {
	if claims.Subject == "" {
		return nil, errors.New("id_token has no subject")
	}
	if claims.Email == "" || !claims.EmailVerified {
		return nil, errors.New("id_token email missing or unverified")
	}
	return &model.ExternalIdentity{
		Provider:   ProviderGoogle,
		ExternalID: claims.Subject,
		Email:      claims.Email,
		GivenName:  claims.GivenName,
		FamilyName: claims.FamilyName,
	}, nil
}
