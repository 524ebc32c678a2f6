package http

import (
	"errors"
	"net/http"

	"stock-forecast/internal/dto"
	"stock-forecast/internal/model"
	"stock-forecast/internal/service"
	"stock-forecast/pkg/common"
	"stock-forecast/pkg/logger"

	"github.com/labstack/echo/v4"
)

const dashboardHistoryLimit = 20

type authPage struct {
	Flash    string
	Username string
}

type indexPage struct {
	Flash       string
	User        *model.User
	Usage       *dto.QuotaUsage
	Latest      *model.Prediction
	Predictions []model.Prediction
	BotUsername string
}

func (h *HttpAPIHandler) SetupDashboard() error {
	renderer, err := NewTemplateRenderer(h.templateFuncs())
	if err != nil {
		return err
	}
	h.echo.Renderer = renderer

	h.echo.GET("/login", h.LoginPage)
	h.echo.POST("/login", h.Login)
	h.echo.GET("/register", h.RegisterPage)
	h.echo.POST("/register", h.RegisterForm)
	h.echo.POST("/logout", h.Logout)

	h.echo.GET("/", h.Index, h.RequireSession)
	h.echo.POST("/predict", h.PredictForm, h.RequireSession)
	h.echo.POST("/link-token", h.LinkTokenForm, h.RequireSession)
	return nil
}

// RequireSession resolves the user from the session cookie or redirects to the login page.
func (h *HttpAPIHandler) RequireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		data, err := h.sessions.GetSession(c.Request())
		if err != nil {
			return c.Redirect(http.StatusSeeOther, "/login")
		}

		user, err := h.service.AuthService.GetUser(c.Request().Context(), data.UserID)
		if err != nil {
			h.sessions.ClearSession(c.Response())
			return c.Redirect(http.StatusSeeOther, "/login")
		}

		c.Set(common.CONTEXT_KEY_USER, user)
		return next(c)
	}
}

func (h *HttpAPIHandler) redirectWithFlash(c echo.Context, to, message string) error {
	if err := h.sessions.SetFlash(c.Response(), message); err != nil {
		h.log.WarnContext(c.Request().Context(), "Failed to set flash", logger.ErrorField(err))
	}
	return c.Redirect(http.StatusSeeOther, to)
}

func (h *HttpAPIHandler) LoginPage(c echo.Context) error {
	return c.Render(http.StatusOK, "login.html", authPage{Flash: h.sessions.PopFlash(c.Response(), c.Request())})
}

func (h *HttpAPIHandler) Login(c echo.Context) error {
	var req dto.TokenRequest
	if err := c.Bind(&req); err != nil {
		return h.redirectWithFlash(c, "/login", "invalid form")
	}

	user, err := h.service.AuthService.Authenticate(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return h.redirectWithFlash(c, "/login", service.Message(err))
	}

	if err := h.sessions.SetSession(c.Response(), user.ID); err != nil {
		h.log.ErrorContext(c.Request().Context(), "Failed to set session", logger.ErrorField(err))
		return h.redirectWithFlash(c, "/login", service.Message(err))
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

func (h *HttpAPIHandler) RegisterPage(c echo.Context) error {
	return c.Render(http.StatusOK, "register.html", authPage{Flash: h.sessions.PopFlash(c.Response(), c.Request())})
}

func (h *HttpAPIHandler) RegisterForm(c echo.Context) error {
	var req dto.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return h.redirectWithFlash(c, "/register", "invalid form")
	}

	user, err := h.service.AuthService.Register(c.Request().Context(), req)
	if err != nil {
		return h.redirectWithFlash(c, "/register", service.Message(err))
	}

	if err := h.sessions.SetSession(c.Response(), user.ID); err != nil {
		h.log.ErrorContext(c.Request().Context(), "Failed to set session", logger.ErrorField(err))
		return h.redirectWithFlash(c, "/login", "account created, please log in")
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

func (h *HttpAPIHandler) Logout(c echo.Context) error {
	h.sessions.ClearSession(c.Response())
	return c.Redirect(http.StatusSeeOther, "/login")
}

func (h *HttpAPIHandler) Index(c echo.Context) error {
	ctx := c.Request().Context()
	user := currentUser(c)

	page := indexPage{
		Flash:       h.sessions.PopFlash(c.Response(), c.Request()),
		User:        user,
		BotUsername: h.cfg.ChatLink.BotUsername,
	}

	usage, err := h.service.PredictionService.Usage(ctx, user.ID)
	if err != nil {
		return errorResponse(c, err)
	}
	page.Usage = usage

	predictions, err := h.service.PredictionService.ListPredictions(ctx, user.ID, "", dashboardHistoryLimit)
	if err != nil {
		return errorResponse(c, err)
	}
	page.Predictions = predictions

	latest, err := h.service.PredictionService.LatestPrediction(ctx, user.ID)
	switch {
	case err == nil:
		page.Latest = latest
	case errors.Is(err, service.ErrNotFound):
	default:
		return errorResponse(c, err)
	}

	return c.Render(http.StatusOK, "index.html", page)
}

func (h *HttpAPIHandler) PredictForm(c echo.Context) error {
	var req dto.PredictionRequest
	if err := c.Bind(&req); err != nil {
		return h.redirectWithFlash(c, "/", "invalid form")
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.service.PredictionService.RequestPrediction(ctx, currentUser(c).ID, req.Ticker)
	if err != nil {
		return h.redirectWithFlash(c, "/", service.Message(err))
	}
	return h.redirectWithFlash(c, "/", "Predicted next close for "+result.Ticker+" is ready")
}

func (h *HttpAPIHandler) LinkTokenForm(c echo.Context) error {
	token, err := h.service.IdentityService.IssueLinkToken(c.Request().Context(), currentUser(c).ID)
	if err != nil {
		return h.redirectWithFlash(c, "/", service.Message(err))
	}

	resp := h.toChatLinkTokenResponse(token)
	message := "Send /start " + resp.Token + " to the bot to link your chat"
	if resp.DeepLink != "" {
		message += " or open " + resp.DeepLink
	}
	return h.redirectWithFlash(c, "/", message)
}
