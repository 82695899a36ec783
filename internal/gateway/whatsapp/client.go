package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/meistersol/bookingbot/internal/model"
	"github.com/meistersol/bookingbot/pkg/logger"
	"github.com/meistersol/bookingbot/pkg/metrics"
)

// Cloud API caps an interactive list at ten rows and a row title at 24
// characters.
const (
	maxListRows   = 10
	maxRowTitle   = 24
	maxButtonRows = 3
)

// Config holds the Cloud API connection parameters.
type Config struct {
	BaseURL       string
	APIVersion    string
	PhoneNumberID string
	AccessToken   string
	Timeout       time.Duration
}

// Client sends messages through the WhatsApp Cloud API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func New(cfg Config, log *logger.Logger, m *metrics.Metrics) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://graph.facebook.com"
	}
	version := cfg.APIVersion
	if version == "" {
		version = "v17.0"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: fmt.Sprintf("%s/%s/%s/messages", base, version, cfg.PhoneNumberID),
		token:   cfg.AccessToken,
		http:    &http.Client{Timeout: timeout},
		logger:  log,
		metrics: m,
	}
}

type textPayload struct {
	Body string `json:"body"`
}

type interactivePayload struct {
	Type   string          `json:"type"`
	Header *header         `json:"header,omitempty"`
	Body   *textPayload    `json:"body,omitempty"`
	Action json.RawMessage `json:"action"`
}

type header struct {
	Type  string `json:"type"`
	Text  string `json:"text,omitempty"`
	Image *media `json:"image,omitempty"`
}

type media struct {
	Link    string `json:"link"`
	Caption string `json:"caption,omitempty"`
}

type listRow struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type listSection struct {
	Title string    `json:"title,omitempty"`
	Rows  []listRow `json:"rows"`
}

type listAction struct {
	Button   string        `json:"button"`
	Sections []listSection `json:"sections"`
}

type replyButton struct {
	Type  string  `json:"type"`
	Reply listRow `json:"reply"`
}

type buttonAction struct {
	Buttons []replyButton `json:"buttons"`
}

type outbound struct {
	MessagingProduct string              `json:"messaging_product"`
	RecipientType    string              `json:"recipient_type"`
	To               string              `json:"to"`
	Type             string              `json:"type"`
	Text             *textPayload        `json:"text,omitempty"`
	Image            *media              `json:"image,omitempty"`
	Interactive      *interactivePayload `json:"interactive,omitempty"`
}

// SendText sends a plain text message.
func (c *Client) SendText(ctx context.Context, to, body string) error {
	msg := outbound{
		Type: "text",
		Text: &textPayload{Body: body},
	}
	return c.send(ctx, to, "text", msg)
}

// SendImage sends an image by URL with an optional caption.
func (c *Client) SendImage(ctx context.Context, to, link, caption string) error {
	msg := outbound{
		Type:  "image",
		Image: &media{Link: link, Caption: caption},
	}
	return c.send(ctx, to, "image", msg)
}

// SendList sends an interactive list. Options beyond the Cloud API row cap are
// dropped; titles are truncated to the row title cap.
func (c *Client) SendList(ctx context.Context, to, headerText, body, buttonLabel string, options []model.ReplyOption) error {
	if len(options) > maxListRows {
		options = options[:maxListRows]
	}
	rows := make([]listRow, 0, len(options))
	for _, opt := range options {
		rows = append(rows, listRow{ID: opt.ID, Title: truncate(opt.Title, maxRowTitle)})
	}
	if buttonLabel == "" {
		buttonLabel = "Select"
	}
	action, err := json.Marshal(listAction{
		Button:   buttonLabel,
		Sections: []listSection{{Rows: rows}},
	})
	if err != nil {
		return fmt.Errorf("failed to encode list action: %w", err)
	}

	interactive := &interactivePayload{
		Type:   "list",
		Body:   &textPayload{Body: body},
		Action: action,
	}
	if headerText != "" {
		interactive.Header = &header{Type: "text", Text: headerText}
	}
	msg := outbound{Type: "interactive", Interactive: interactive}
	return c.send(ctx, to, "list", msg)
}

// SendButtons sends up to three reply buttons.
func (c *Client) SendButtons(ctx context.Context, to, body string, options []model.ReplyOption) error {
	if len(options) > maxButtonRows {
		options = options[:maxButtonRows]
	}
	buttons := make([]replyButton, 0, len(options))
	for _, opt := range options {
		buttons = append(buttons, replyButton{
			Type:  "reply",
			Reply: listRow{ID: opt.ID, Title: truncate(opt.Title, maxRowTitle)},
		})
	}
	action, err := json.Marshal(buttonAction{Buttons: buttons})
	if err != nil {
		return fmt.Errorf("failed to encode button action: %w", err)
	}

	msg := outbound{
		Type: "interactive",
		Interactive: &interactivePayload{
			Type:   "button",
			Body:   &textPayload{Body: body},
			Action: action,
		},
	}
	return c.send(ctx, to, "button", msg)
}

// SendButtonsWithImage sends reply buttons under an image header.
func (c *Client) SendButtonsWithImage(ctx context.Context, to, imageLink, body string, options []model.ReplyOption) error {
	if len(options) > maxButtonRows {
		options = options[:maxButtonRows]
	}
	buttons := make([]replyButton, 0, len(options))
	for _, opt := range options {
		buttons = append(buttons, replyButton{
			Type:  "reply",
			Reply: listRow{ID: opt.ID, Title: truncate(opt.Title, maxRowTitle)},
		})
	}
	action, err := json.Marshal(buttonAction{Buttons: buttons})
	if err != nil {
		return fmt.Errorf("failed to encode button action: %w", err)
	}

	msg := outbound{
		Type: "interactive",
		Interactive: &interactivePayload{
			Type:   "button",
			Header: &header{Type: "image", Image: &media{Link: imageLink}},
			Body:   &textPayload{Body: body},
			Action: action,
		},
	}
	return c.send(ctx, to, "button_image", msg)
}

func (c *Client) send(ctx context.Context, to, kind string, msg outbound) error {
	msg.MessagingProduct = "whatsapp"
	msg.RecipientType = "individual"
	msg.To = to

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode outbound message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	start := time.Now()
	resp, err := c.http.Do(req)
	if c.metrics != nil {
		c.metrics.GatewayLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		c.countFailure(kind)
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.countFailure(kind)
		c.logger.Error(nil, "gateway rejected message", map[string]interface{}{
			"status": resp.StatusCode,
			"kind":   kind,
			"body":   string(body),
		})
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	if c.metrics != nil {
		c.metrics.GatewaySends.WithLabelValues(kind).Inc()
	}
	return nil
}

func (c *Client) countFailure(kind string) {
	if c.metrics != nil {
		c.metrics.GatewayFailures.WithLabelValues(kind).Inc()
	}
}

// truncate caps a title at max characters, never splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
