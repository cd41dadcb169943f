package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/optifit/backend/internal/db"
	"github.com/optifit/backend/internal/model"
)

const (
	minPasswordLength = 6
	maxPasswordLength = 72
	maxEmailLength    = 254
)

type credentialStore interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByExternalID(ctx context.Context, externalID string) (*model.User, error)
	CreateUser(ctx context.Context, in model.NewUser) (*model.User, error)
	CreateUserWithActivity(ctx context.Context, in model.NewUser, eventType string, data map[string]any) (*model.User, error)
	LinkExternalID(ctx context.Context, id, externalID string) (*model.User, error)
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
}

type activityRecorder interface {
	InsertActivityLog(ctx context.Context, userID, eventType string, data map[string]any) error
}

type authRepository interface {
	credentialStore
	activityRecorder
}

// ExternalProvider runs the OAuth authorization-code flow against an
// identity provider.
type ExternalProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*model.ExternalIdentity, error)
}

type AuthMetrics interface {
	RecordAuthEvent(event, outcome string)
}

type noopMetrics struct{}

func (noopMetrics) RecordAuthEvent(string, string) {}

// LoginMeta is request context supplied by the transport layer.
type LoginMeta struct {
	IP        string
	UserAgent string
}

type LoginInput struct {
	Email    string
	Password string
	LoginMeta
}

type AuthService struct {
	repo     authRepository
	tokens   *TokenService
	hasher   *PasswordHasher
	provider ExternalProvider
	metrics  AuthMetrics
}

// NewAuthService wires the authentication flows. provider may be nil when no
// external login is configured.
func NewAuthService(repo authRepository, tokens *TokenService, hasher *PasswordHasher, provider ExternalProvider, metrics AuthMetrics) *AuthService {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &AuthService{
		repo:     repo,
		tokens:   tokens,
		hasher:   hasher,
		provider: provider,
		metrics:  metrics,
	}
}

func (s *AuthService) ExternalEnabled() bool {
	return s.provider != nil
}

func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (*model.AuthResult, error) {
	result, err := s.register(ctx, req)
	s.metrics.RecordAuthEvent(model.ActivityRegister, outcome(err))
	return result, err
}

func (s *AuthService) register(ctx context.Context, req model.RegisterRequest) (*model.AuthResult, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}

	_, err = s.repo.GetUserByEmail(ctx, email)
	if err == nil {
		return nil, ErrConflict
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.CreateUserWithActivity(ctx, model.NewUser{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Phone:        strings.TrimSpace(req.Phone),
		Location:     strings.TrimSpace(req.Location),
	}, model.ActivityRegister, map[string]any{
		"timestamp": s.tokens.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		if errors.Is(err, db.ErrConflict) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.issueTokens(user)
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*model.AuthResult, error) {
	result, err := s.login(ctx, in)
	s.metrics.RecordAuthEvent(model.ActivityLogin, outcome(err))
	return result, err
}

func (s *AuthService) login(ctx context.Context, in LoginInput) (*model.AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := s.hasher.Compare(user.PasswordHash, in.Password); err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	if err := s.recordLogin(ctx, user, "password", in.LoginMeta); err != nil {
		return nil, err
	}
	return s.issueTokens(user)
}

// ExternalLogin resolves a provider identity to a local one. The external id
// always wins over the email so a reused address cannot take over an already
// linked account.
func (s *AuthService) ExternalLogin(ctx context.Context, identity model.ExternalIdentity, meta LoginMeta) (*model.AuthResult, error) {
	result, err := s.externalLogin(ctx, identity, meta)
	s.metrics.RecordAuthEvent("external_login", outcome(err))
	return result, err
}

func (s *AuthService) externalLogin(ctx context.Context, identity model.ExternalIdentity, meta LoginMeta) (*model.AuthResult, error) {
	if strings.TrimSpace(identity.ExternalID) == "" {
		return nil, ErrInvalidInput
	}
	email, err := normalizeEmail(identity.Email)
	if err != nil {
		return nil, err
	}
	identity.Email = email

	user, err := s.resolveExternal(ctx, identity, true)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUnauthorized
	}

	if err := s.recordLogin(ctx, user, identity.Provider, meta); err != nil {
		return nil, err
	}
	return s.issueTokens(user)
}

func (s *AuthService) resolveExternal(ctx context.Context, identity model.ExternalIdentity, allowCreate bool) (*model.User, error) {
	user, err := s.repo.GetUserByExternalID(ctx, identity.ExternalID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}

	user, err = s.repo.GetUserByEmail(ctx, identity.Email)
	if err == nil {
		if user.ExternalID != nil && *user.ExternalID != identity.ExternalID {
			return nil, ErrConflict
		}
		if !user.IsActive {
			return nil, ErrUnauthorized
		}
		linked, err := s.repo.LinkExternalID(ctx, user.ID, identity.ExternalID)
		if errors.Is(err, db.ErrConflict) {
			return nil, ErrConflict
		}
		return linked, err
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}
	if !allowCreate {
		return nil, ErrConflict
	}

	hash, err := s.hasher.Hash(placeholderPassword())
	if err != nil {
		return nil, err
	}
	externalID := identity.ExternalID
	user, err = s.repo.CreateUser(ctx, model.NewUser{
		Email:        identity.Email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(identity.GivenName),
		LastName:     strings.TrimSpace(identity.FamilyName),
		ExternalID:   &externalID,
	})
	if errors.Is(err, db.ErrConflict) {
		// Lost a race with a concurrent first login; the winner's row is
		// now visible.
		return s.resolveExternal(ctx, identity, false)
	}
	return user, err
}

func (s *AuthService) ExternalAuthURL(state string) (string, error) {
	if s.provider == nil {
		return "", ErrExternalDisabled
	}
	if strings.TrimSpace(state) == "" {
		return "", ErrInvalidInput
	}
	return s.provider.AuthCodeURL(state), nil
}

func (s *AuthService) ExternalCallback(ctx context.Context, code string, meta LoginMeta) (*model.AuthResult, error) {
	if s.provider == nil {
		return nil, ErrExternalDisabled
	}
	if strings.TrimSpace(code) == "" {
		return nil, ErrInvalidInput
	}

	identity, err := s.provider.Exchange(ctx, code)
	if err != nil {
		s.metrics.RecordAuthEvent("external_login", "failure")
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return s.ExternalLogin(ctx, *identity, meta)
}

// Refresh mints a new token pair. The presented refresh token stays valid
// until it expires.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*model.TokenPair, error) {
	pair, err := s.refresh(ctx, refreshToken)
	s.metrics.RecordAuthEvent("refresh", outcome(err))
	return pair, err
}

func (s *AuthService) refresh(ctx context.Context, refreshToken string) (*model.TokenPair, error) {
	claims, err := s.tokens.Verify(strings.TrimSpace(refreshToken))
	if err != nil || claims.Kind != TokenKindRefresh {
		return nil, ErrUnauthorized
	}

	user, err := s.repo.GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUnauthorized
	}

	result, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}
	return &model.TokenPair{
		AccessToken:  result.Token,
		RefreshToken: result.RefreshToken,
		ExpiresIn:    result.ExpiresIn,
	}, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID string, req model.ChangePasswordRequest) error {
	if req.CurrentPassword == "" {
		return ErrInvalidInput
	}
	if err := validatePassword(req.NewPassword); err != nil {
		return err
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if err := s.hasher.Compare(user.PasswordHash, req.CurrentPassword); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return err
	}
	return s.repo.InsertActivityLog(ctx, user.ID, model.ActivityPasswordChange, map[string]any{
		"timestamp": s.tokens.now().UTC().Format(time.RFC3339),
	})
}

func (s *AuthService) recordLogin(ctx context.Context, user *model.User, method string, meta LoginMeta) error {
	data := map[string]any{
		"timestamp": s.tokens.now().UTC().Format(time.RFC3339),
		"method":    method,
	}
	if meta.IP != "" {
		data["ip"] = meta.IP
	}
	if meta.UserAgent != "" {
		data["userAgent"] = meta.UserAgent
	}
	if err := s.repo.InsertActivityLog(ctx, user.ID, model.ActivityLogin, data); err != nil {
		return fmt.Errorf("record login activity: %w", err)
	}
	return nil
}

func (s *AuthService) issueTokens(user *model.User) (*model.AuthResult, error) {
	accessToken, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.tokens.IssueRefreshToken(user)
	if err != nil {
		return nil, err
	}
	return &model.AuthResult{
		Token:        accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
		User:         user.Public(),
	}, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" || len(email) > maxEmailLength {
		return "", ErrInvalidInput
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidInput
	}
	return email, nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return ErrInvalidInput
	}
	return nil
}

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// ParseSameSite maps the configured cookie policy onto http.SameSite.
func ParseSameSite(value string) (http.SameSite, error) {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return http.SameSiteLaxMode, nil
	}
	switch value {
	case "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, ErrInvalidInput
	}
}
