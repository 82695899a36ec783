package webhook

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/meistersol/bookingbot/internal/gateway/whatsapp"
	"github.com/meistersol/bookingbot/internal/model"
	"github.com/meistersol/bookingbot/pkg/logger"
)

// Conversation is the inbound side of the conversation service.
type Conversation interface {
	HandleInbound(ctx context.Context, msg model.InboundMessage)
}

// Handler terminates the WhatsApp webhook: subscription verification on GET,
// event delivery on POST.
type Handler struct {
	conversation Conversation
	verifyToken  string
	logger       *logger.Logger
}

func NewHandler(conversation Conversation, verifyToken string, log *logger.Logger) *Handler {
	return &Handler{
		conversation: conversation,
		verifyToken:  verifyToken,
		logger:       log,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/webhook", h.Verify)
	r.POST("/webhook", h.Receive)
}

// Verify answers the Cloud API subscription handshake.
func (h *Handler) Verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token == h.verifyToken {
		c.String(http.StatusOK, challenge)
		return
	}
	c.Status(http.StatusForbidden)
}

// Receive normalizes the notification and feeds each message through the
// conversation. Replies for one appointment are serialized inside the
// service, so messages are processed in arrival order before the 200 goes
// back.
func (h *Handler) Receive(c *gin.Context) {
	var notification whatsapp.Notification
	if err := c.ShouldBindJSON(&notification); err != nil {
		h.logger.Warn("discarding malformed webhook payload", map[string]interface{}{
			"error": err.Error(),
		})
		c.Status(http.StatusOK)
		return
	}

	for _, msg := range notification.Normalize() {
		h.conversation.HandleInbound(c.Request.Context(), msg)
	}
	c.Status(http.StatusOK)
}
