package http

import (
	"net/http"

	"stock-forecast/internal/dto"
	"stock-forecast/internal/model"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupAuth(v1 *echo.Group) {
	v1.POST("/register", h.Register)
	v1.POST("/token", h.Token)
	v1.GET("/me", h.Me, h.RequireBearer)
}

func toUserResponse(u *model.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

func (h *HttpAPIHandler) Register(c echo.Context) error {
	var req dto.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid request body"))
	}

	user, err := h.service.AuthService.Register(c.Request().Context(), req)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusCreated, dto.NewCreatedResponse("registered", toUserResponse(user)))
}

func (h *HttpAPIHandler) Token(c echo.Context) error {
	var req dto.TokenRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid request body"))
	}
	if err := h.validator.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewValidationResponse(err))
	}

	user, err := h.service.AuthService.Authenticate(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return errorResponse(c, err)
	}

	token, err := h.service.AuthService.IssueToken(user)
	if err != nil {
		h.log.ErrorContext(c.Request().Context(), "Failed to issue token")
		return c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(http.StatusInternalServerError, "failed to issue token"))
	}

	return c.JSON(http.StatusOK, token)
}

func (h *HttpAPIHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("ok", toUserResponse(currentUser(c))))
}
