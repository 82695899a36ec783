package payment

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/meistersol/bookingbot/pkg/logger"
)

const signatureHeader = "X-Razorpay-Signature"

// Gateway is the payment-service surface the webhook needs.
type Gateway interface {
	VerifySignature(body []byte, signature string) bool
	ProcessWebhookEvent(ctx context.Context, event, gatewayID, paymentID string) error
}

// event mirrors the Razorpay webhook envelope down to the ids this service
// reads.
type event struct {
	Event   string `json:"event"`
	Payload struct {
		PaymentLink struct {
			Entity struct {
				ID string `json:"id"`
			} `json:"entity"`
		} `json:"payment_link"`
		Payment struct {
			Entity struct {
				ID string `json:"id"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// Handler terminates the payment gateway webhook. The signature over the raw
// body is checked before anything is parsed or applied.
type Handler struct {
	gateway Gateway
	logger  *logger.Logger
}

func NewHandler(gateway Gateway, log *logger.Logger) *Handler {
	return &Handler{gateway: gateway, logger: log}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/payment/webhook", h.Receive)
}

func (h *Handler) Receive(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	if !h.gateway.VerifySignature(body, c.GetHeader(signatureHeader)) {
		h.logger.Warn("rejected payment webhook with bad signature", map[string]interface{}{
			"client_ip": c.ClientIP(),
		})
		c.Status(http.StatusUnauthorized)
		return
	}

	var evt event
	if err := json.Unmarshal(body, &evt); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	if err := h.gateway.ProcessWebhookEvent(c.Request.Context(), evt.Event,
		evt.Payload.PaymentLink.Entity.ID, evt.Payload.Payment.Entity.ID); err != nil {
		h.logger.Error(err, "failed to process payment webhook", map[string]interface{}{
			"event": evt.Event,
		})
		// 200 regardless: the gateway retries on non-2xx and the update is
		// idempotent, but repeated retries of a permanently failing event
		// only add noise.
		c.Status(http.StatusOK)
		return
	}
	c.Status(http.StatusOK)
}
