package http

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"stock-forecast/internal/dto"
	"stock-forecast/pkg/common"
	"stock-forecast/pkg/logger"

	"github.com/labstack/echo/v4"
)

const (
	signatureHeader     = "X-Signature"
	maxWebhookBodyBytes = 64 << 10
)

func (h *HttpAPIHandler) SetupPayments(v1 *echo.Group) {
	v1.POST("/payments/webhook", h.PaymentWebhook)
}

// SignPayload returns the hex HMAC-SHA256 the gateway sends in X-Signature.
func SignPayload(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (h *HttpAPIHandler) validSignature(body []byte, signature string) bool {
	expected := SignPayload(h.cfg.Payment.WebhookSecret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (h *HttpAPIHandler) PaymentWebhook(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBodyBytes))
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("cannot read body"))
	}

	if !h.validSignature(body, c.Request().Header.Get(signatureHeader)) {
		h.log.WarnContext(ctx, "Payment webhook with invalid signature", logger.StringField("ip", c.RealIP()))
		return c.JSON(http.StatusUnauthorized, dto.NewErrorResponse(http.StatusUnauthorized, "invalid signature"))
	}

	var req dto.PaymentWebhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid JSON body"))
	}
	if err := h.validator.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewValidationResponse(err))
	}

	if req.Status != dto.PaymentStatusPaid {
		h.log.InfoContext(ctx, "Ignoring payment event",
			logger.StringField("event_id", req.EventID),
			logger.StringField("status", req.Status))
		return c.JSON(http.StatusAccepted, dto.NewBaseResponse(http.StatusAccepted, "ignored", nil))
	}

	err = h.service.SubscriptionService.ConfirmPayment(ctx, dto.PaymentConfirmation{
		EventID:  req.EventID,
		UserID:   req.UserID,
		Source:   common.PAYMENT_SOURCE_WEB,
		Amount:   req.Amount,
		Currency: req.Currency,
	})
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse("subscription activated", nil))
}
