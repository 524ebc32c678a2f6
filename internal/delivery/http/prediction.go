package http

import (
	"net/http"

	"stock-forecast/internal/dto"
	"stock-forecast/internal/model"
	"stock-forecast/pkg/logger"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupPredictions(v1 *echo.Group) {
	v1.POST("/predictions", h.CreatePrediction, h.RequireBearer)
	v1.GET("/predictions", h.ListPredictions, h.RequireBearer)
	v1.GET("/predictions/latest", h.LatestPrediction, h.RequireBearer)
	v1.GET("/quota", h.Quota, h.RequireBearer)
}

func (h *HttpAPIHandler) CreatePrediction(c echo.Context) error {
	var req dto.PredictionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid request body"))
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	user := currentUser(c)
	result, err := h.service.PredictionService.RequestPrediction(ctx, user.ID, req.Ticker)
	if err != nil {
		h.log.InfoContext(ctx, "Prediction rejected",
			logger.UintField("user_id", user.ID),
			logger.StringField("ticker", req.Ticker),
			logger.ErrorField(err))
		return errorResponse(c, err)
	}

	resp := h.toPredictionResponse(model.Prediction{
		ID:                result.ID,
		Ticker:            result.Ticker,
		PredictedPrice:    result.PredictedPrice,
		HistoryChartPath:  result.HistoryChart,
		ForecastChartPath: result.ForecastChart,
		CreatedAt:         result.CreatedAt,
	})
	return c.JSON(http.StatusCreated, dto.NewCreatedResponse("prediction created", resp))
}

func (h *HttpAPIHandler) ListPredictions(c echo.Context) error {
	var query dto.ListPredictionsQuery
	if err := c.Bind(&query); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid query"))
	}

	predictions, err := h.service.PredictionService.ListPredictions(c.Request().Context(), currentUser(c).ID, query.Ticker, 0)
	if err != nil {
		return errorResponse(c, err)
	}

	resp := make([]dto.PredictionResponse, 0, len(predictions))
	for _, p := range predictions {
		resp = append(resp, h.toPredictionResponse(p))
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("ok", resp))
}

func (h *HttpAPIHandler) LatestPrediction(c echo.Context) error {
	prediction, err := h.service.PredictionService.LatestPrediction(c.Request().Context(), currentUser(c).ID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("ok", h.toPredictionResponse(*prediction)))
}

func (h *HttpAPIHandler) Quota(c echo.Context) error {
	usage, err := h.service.PredictionService.Usage(c.Request().Context(), currentUser(c).ID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("ok", usage))
}
