package handlers

import (
	"errors"
	"io"
	"net/http"

	"plumbline/internal/common"
	"plumbline/internal/webhooks"

	"github.com/labstack/echo/v4"
)

// SignatureHeader carries the hex HMAC of the raw request body
const SignatureHeader = "X-Mollie-Signature"

// maxWebhookBody bounds how much of a delivery we are willing to buffer
const maxWebhookBody = 1 << 20

// WebhookHandlers receives provider callbacks. These endpoints sit outside
// the authenticated API surface; the HMAC signature is the only credential.
type WebhookHandlers struct {
	webhookService *webhooks.Service
}

func NewWebhookHandlers(webhookService *webhooks.Service) *WebhookHandlers {
	return &WebhookHandlers{webhookService: webhookService}
}

// HandleMollie handles POST /webhooks/mollie
func (h *WebhookHandlers) HandleMollie(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return common.SendClientError(c, "Failed to read request body")
	}

	signature := c.Request().Header.Get(SignatureHeader)
	result, err := h.webhookService.HandleDelivery(ctx, body, signature)
	if err != nil {
		if errors.Is(err, common.ErrInvalidSignature) {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid signature"})
		}
		if errors.Is(err, common.ErrTransientStore) {
			// 5xx tells the provider to redeliver later
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Temporarily unavailable"})
		}
		return common.SendClientError(c, err.Error())
	}

	return c.JSON(http.StatusOK, result)
}
