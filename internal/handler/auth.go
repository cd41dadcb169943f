package handler

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/optifit/backend/internal/model"
	"github.com/optifit/backend/internal/service"
)

const (
	oauthStateCookieName = "optifit_oauth_state"
	oauthStateMaxAge     = 600
)

type CookieConfig struct {
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

type AuthHandler struct {
	svc    *service.AuthService
	cookie CookieConfig
}

func NewAuthHandler(svc *service.AuthService, cookie CookieConfig) *AuthHandler {
	if cookie.Path == "" {
		cookie.Path = "/"
	}
	return &AuthHandler{svc: svc, cookie: cookie}
}

// Register godoc
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.RegisterRequest true "Email, password and profile"
// @Success 201 {object} model.AuthResult
// @Failure 400 {object} model.ErrorResponse
// @Failure 409 {object} model.ErrorResponse
// @Failure 429 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	result, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// Login godoc
// @Summary Login with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.LoginRequest true "Email and password"
// @Success 200 {object} model.AuthResult
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 429 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	result, err := h.svc.Login(c.Request.Context(), service.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		LoginMeta: loginMeta(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ExternalStart godoc
// @Summary Start Google login
// @Description Redirects to the identity provider and sets a short-lived state cookie.
// @Tags auth
// @Success 302
// @Failure 503 {object} model.ErrorResponse
// @Router /api/v1/auth/external [get]
func (h *AuthHandler) ExternalStart(c *gin.Context) {
	state := uuid.NewString()
	url, err := h.svc.ExternalAuthURL(state)
	if err != nil {
		writeError(c, err)
		return
	}

	h.setStateCookie(c, state, oauthStateMaxAge)
	c.Redirect(http.StatusFound, url)
}

// ExternalCallback godoc
// @Summary Complete Google login
// @Tags auth
// @Produce json
// @Param code query string true "Authorization code"
// @Param state query string true "State issued by /auth/external"
// @Success 200 {object} model.AuthResult
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 503 {object} model.ErrorResponse
// @Router /api/v1/auth/external/callback [get]
func (h *AuthHandler) ExternalCallback(c *gin.Context) {
	if !h.svc.ExternalEnabled() {
		writeError(c, service.ErrExternalDisabled)
		return
	}

	expected, _ := c.Cookie(oauthStateCookieName)
	h.setStateCookie(c, "", -1)

	state := c.Query("state")
	if c.Query("error") != "" || expected == "" || subtle.ConstantTimeCompare([]byte(state), []byte(expected)) != 1 {
		writeError(c, service.ErrUnauthorized)
		return
	}

	result, err := h.svc.ExternalCallback(c.Request.Context(), c.Query("code"), loginMeta(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Refresh godoc
// @Summary Mint a new token pair
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.RefreshRequest true "Refresh token"
// @Success 200 {object} model.TokenPair
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 429 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req model.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	pair, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// Me godoc
// @Summary Get the authenticated identity
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.AuthClaims
// @Failure 401 {object} model.ErrorResponse
// @Router /api/v1/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	c.JSON(http.StatusOK, claims)
}

func (h *AuthHandler) setStateCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(h.cookie.SameSite)
	c.SetCookie(oauthStateCookieName, value, maxAge, h.cookie.Path, h.cookie.Domain, h.cookie.Secure, true)
}

func loginMeta(c *gin.Context) service.LoginMeta {
	return service.LoginMeta{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}
