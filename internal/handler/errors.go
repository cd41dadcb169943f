package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/optifit/backend/internal/model"
	"github.com/optifit/backend/internal/service"
)

// writeError maps service errors onto HTTP responses. Details of unexpected
// errors are logged and never sent to the client.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: "invalid email or password"})
	case errors.Is(err, service.ErrInvalidToken), errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: "unauthorized"})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "not found"})
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, model.ErrorResponse{Error: "user already exists"})
	case errors.Is(err, service.ErrExternalDisabled):
		c.JSON(http.StatusServiceUnavailable, model.ErrorResponse{Error: "service unavailable"})
	default:
		slog.ErrorContext(c.Request.Context(), "request failed",
			slog.String("method", c.Request.Method),
			slog.String("route", c.FullPath()),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "server error"})
	}
}

func badRequest(c *gin.Context) {
	c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid request"})
}
