package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/optifit/backend/internal/model"
	"github.com/optifit/backend/internal/service"
)

type UserHandler struct {
	users *service.UserService
	auth  *service.AuthService
}

func NewUserHandler(users *service.UserService, auth *service.AuthService) *UserHandler {
	return &UserHandler{users: users, auth: auth}
}

// GetProfile godoc
// @Summary Get the caller's profile
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.PublicUser
// @Failure 401 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /api/v1/users/profile [get]
func (h *UserHandler) GetProfile(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	profile, err := h.users.GetProfile(c.Request.Context(), claims.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateProfile godoc
// @Summary Update the caller's profile
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.UserUpdate true "Fields to change"
// @Success 200 {object} model.PublicUser
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /api/v1/users/profile [put]
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req model.UserUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	profile, err := h.users.UpdateProfile(c.Request.Context(), claims.UserID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// GetPreferences godoc
// @Summary Get the caller's preferences
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} model.ErrorResponse
// @Router /api/v1/users/preferences [get]
func (h *UserHandler) GetPreferences(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	prefs, err := h.users.GetPreferences(c.Request.Context(), claims.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, prefs)
}

// UpdatePreferences godoc
// @Summary Merge keys into the caller's preferences
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body map[string]interface{} true "Preference keys"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /api/v1/users/preferences [put]
func (h *UserHandler) UpdatePreferences(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req map[string]any
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	prefs, err := h.users.UpdatePreferences(c.Request.Context(), claims.UserID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, prefs)
}

// Validate godoc
// @Summary Check that the caller's identity exists and is active
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.ValidateUserResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /api/v1/users/validate [get]
func (h *UserHandler) Validate(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	valid, err := h.users.Validate(c.Request.Context(), claims.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.ValidateUserResponse{Valid: valid})
}

// Activity godoc
// @Summary List the caller's recent activity
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Max entries (default 50)"
// @Success 200 {array} model.ActivityLog
// @Failure 401 {object} model.ErrorResponse
// @Router /api/v1/users/activity [get]
func (h *UserHandler) Activity(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c)
			return
		}
		limit = parsed
	}
	logs, err := h.users.Activity(c.Request.Context(), claims.UserID, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

// ChangePassword godoc
// @Summary Change the caller's password
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.ChangePasswordRequest true "Current and new password"
// @Success 200 {object} model.StatusResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /api/v1/users/password [put]
func (h *UserHandler) ChangePassword(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req model.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	if err := h.auth.ChangePassword(c.Request.Context(), claims.UserID, req); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.StatusResponse{Status: "password_changed"})
}

// Deactivate godoc
// @Summary Deactivate the caller's account
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.StatusResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /api/v1/users/me [delete]
func (h *UserHandler) Deactivate(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	if err := h.users.Deactivate(c.Request.Context(), claims.UserID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.StatusResponse{Status: "deactivated"})
}
