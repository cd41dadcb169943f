package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/optifit/backend/internal/model"
	"github.com/optifit/backend/internal/service"
)

type ChatHandler struct {
	svc *service.ChatService
}

func NewChatHandler(svc *service.ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// Chat godoc
// @Summary Ask the wellness assistant
// @Tags ai
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.ChatRequest true "Question"
// @Success 200 {object} model.ChatResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 503 {object} model.ErrorResponse
// @Router /api/v1/ai/chat [post]
func (h *ChatHandler) Chat(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	resp, err := h.svc.Chat(c.Request.Context(), claims.UserID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
