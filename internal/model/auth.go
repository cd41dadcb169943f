package model

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	Location  string `json:"location"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// AuthResult is returned by register, login and external login.
type AuthResult struct {
	Token        string     `json:"token"`
	RefreshToken string     `json:"refreshToken"`
	ExpiresIn    int64      `json:"expiresIn"`
	User         PublicUser `json:"user"`
}

// TokenPair is returned by refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// AuthClaims is the verified identity attached to a request by the guard.
type AuthClaims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// ExternalIdentity is what an OAuth provider reports about a principal.
type ExternalIdentity struct {
	Provider   string
	ExternalID string
	Email      string
	GivenName  string
	FamilyName string
}
