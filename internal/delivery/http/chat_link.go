package http

import (
	"fmt"
	"net/http"

	"stock-forecast/internal/dto"
	"stock-forecast/internal/model"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupChatLink(v1 *echo.Group) {
	v1.POST("/chat-link/token", h.IssueChatLinkToken, h.RequireBearer)
}

func (h *HttpAPIHandler) toChatLinkTokenResponse(t *model.ChatLinkToken) dto.ChatLinkTokenResponse {
	resp := dto.ChatLinkTokenResponse{
		Token:     t.Token,
		ExpiresAt: t.ExpiresAt,
	}
	if h.cfg.ChatLink.BotUsername != "" {
		resp.DeepLink = fmt.Sprintf("https://t.me/%s?start=%s", h.cfg.ChatLink.BotUsername, t.Token)
	}
	return resp
}

func (h *HttpAPIHandler) IssueChatLinkToken(c echo.Context) error {
	token, err := h.service.IdentityService.IssueLinkToken(c.Request().Context(), currentUser(c).ID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, dto.NewCreatedResponse("send /start <token> to the bot", h.toChatLinkTokenResponse(token)))
}
