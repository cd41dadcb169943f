package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/optifit/backend/internal/model"
)

const (
	TokenKindAccess  = "access"
	TokenKindRefresh = "refresh"

	MinSecretLength = 32
)

type TokenConfig struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

type Claims struct {
	Email string `json:"email"`
	Kind  string `json:"kind"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies stateless HS256 session tokens. It holds no
// mutable state and is safe for concurrent use.
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	parser     *jwt.Parser
}

func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("%w: JWT_SECRET must be at least %d bytes", ErrMisconfigured, MinSecretLength)
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, fmt.Errorf("%w: token TTLs must be positive", ErrMisconfigured)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)

	return &TokenService{
		secret:     secret,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(now),
		),
	}, nil
}

func (s *TokenService) AccessTTL() time.Duration {
	return s.accessTTL
}

func (s *TokenService) IssueAccessToken(user *model.User) (string, error) {
	return s.issue(user, TokenKindAccess, s.accessTTL)
}

func (s *TokenService) IssueRefreshToken(user *model.User) (string, error) {
	return s.issue(user, TokenKindRefresh, s.refreshTTL)
}

// Verify checks signature, algorithm and expiry. Every failure is reported as
// ErrInvalidToken.
func (s *TokenService) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := s.parser.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyAccess verifies the token and requires it to be an access token.
func (s *TokenService) VerifyAccess(tokenStr string) (*model.AuthClaims, error) {
	claims, err := s.Verify(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.Kind != TokenKindAccess {
		return nil, ErrInvalidToken
	}
	return &model.AuthClaims{UserID: claims.Subject, Email: claims.Email}, nil
}

// Decode reads the claims without checking the signature or expiry. The
// result must never be used to authorize a request.
func (s *TokenService) Decode(tokenStr string) *Claims {
	claims := &Claims{}
	if _, _, err := s.parser.ParseUnverified(tokenStr, claims); err != nil {
		return nil
	}
	return claims
}

func (s *TokenService) issue(user *model.User, kind string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		Email: user.Email,
		Kind:  kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, nil
}
