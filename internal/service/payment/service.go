package payment

import (
	"context"
	"fmt"
	"time"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"

	"github.com/meistersol/bookingbot/internal/cache"
	"github.com/meistersol/bookingbot/internal/model"
	"github.com/meistersol/bookingbot/internal/repository"
	"github.com/meistersol/bookingbot/pkg/apperror"
	"github.com/meistersol/bookingbot/pkg/logger"
	"github.com/meistersol/bookingbot/pkg/metrics"
)

// GatewayAPI is the slice of the Razorpay SDK the service uses; tests swap in
// a stub through NewServiceWithGateway.
type GatewayAPI interface {
	CreateLink(data map[string]interface{}) (map[string]interface{}, error)
	FetchLink(id string) (map[string]interface{}, error)
}

// dedupeStore is the cache slice webhook deduplication uses.
type dedupeStore interface {
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}

type razorpayAPI struct {
	client *razorpay.Client
}

func (r *razorpayAPI) CreateLink(data map[string]interface{}) (map[string]interface{}, error) {
	return r.client.PaymentLink.Create(data, nil)
}

func (r *razorpayAPI) FetchLink(id string) (map[string]interface{}, error) {
	return r.client.PaymentLink.Fetch(id, nil, nil)
}

// Hooks are the conversation-side reactions to asynchronous payment
// transitions.
type Hooks interface {
	PaymentPaid(ctx context.Context, txn *model.Transaction)
	PaymentExpired(ctx context.Context, txn *model.Transaction)
}

// Config holds the payment gateway parameters.
type Config struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	Currency      string
	LinkExpiry    time.Duration
	PollInterval  time.Duration
}

// Link is the outcome of creating a payment request.
type Link struct {
	GatewayID string
	ShortURL  string
	ExpiresAt time.Time
}

// Service creates payment links and tracks their transactions. Each pending
// link gets its own cancellable poller; webhook deliveries and pollers race on
// the same transaction and settle through conditional status transitions.
type Service struct {
	api     GatewayAPI
	txns    repository.TransactionRepository
	dedupe  dedupeStore
	hooks   Hooks
	cfg     Config
	logger  *logger.Logger
	metrics *metrics.Metrics
	pollers *pollerRegistry
}

func NewService(cfg Config, txns repository.TransactionRepository, redis *cache.Redis, log *logger.Logger, m *metrics.Metrics) *Service {
	return NewServiceWithGateway(cfg, &razorpayAPI{client: razorpay.NewClient(cfg.KeyID, cfg.KeySecret)}, txns, redis, log, m)
}

// NewServiceWithGateway wires an explicit gateway implementation instead of
// the Razorpay-backed one.
func NewServiceWithGateway(cfg Config, api GatewayAPI, txns repository.TransactionRepository, redis *cache.Redis, log *logger.Logger, m *metrics.Metrics) *Service {
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	if cfg.LinkExpiry <= 0 {
		cfg.LinkExpiry = 10 * time.Minute
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 60 * time.Second
	}
	s := &Service{
		api:     api,
		txns:    txns,
		cfg:     cfg,
		logger:  log,
		metrics: m,
		pollers: newPollerRegistry(),
	}
	if redis != nil {
		s.dedupe = redis
	}
	return s
}

// SetHooks registers the conversation-side reactions. Must be called before
// any link is created.
func (s *Service) SetHooks(hooks Hooks) {
	s.hooks = hooks
}

// LinkExpiry is the configured payment window.
func (s *Service) LinkExpiry() time.Duration {
	return s.cfg.LinkExpiry
}

// CreateLink creates a payment link for the appointment's fee, persists the
// pending transaction and starts its status poller.
func (s *Service) CreateLink(ctx context.Context, appointmentID int64, poc *model.POC, user *model.User) (*Link, error) {
	expiresAt := time.Now().Add(s.cfg.LinkExpiry)

	data := map[string]interface{}{
		"amount":      poc.Fee * 100,
		"currency":    s.cfg.Currency,
		"description": fmt.Sprintf("Appointment with %s", poc.Name),
		"customer": map[string]interface{}{
			"name":    stringOrEmpty(user.Name),
			"email":   stringOrEmpty(user.Email),
			"contact": user.ContactNumber,
		},
		"notify": map[string]interface{}{
			"sms":   true,
			"email": true,
		},
		"notes": map[string]interface{}{
			"from": user.ContactNumber,
		},
		"expire_by": expiresAt.Unix(),
	}

	body, err := s.api.CreateLink(data)
	if err != nil {
		return nil, apperror.External("failed to create payment link", err)
	}
	gatewayID, _ := body["id"].(string)
	shortURL, _ := body["short_url"].(string)
	if gatewayID == "" {
		return nil, apperror.External("payment gateway returned no link id", nil)
	}

	if err := s.txns.Create(ctx, appointmentID, gatewayID, expiresAt); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.PaymentLinksCreated.Inc()
	}

	s.startPoller(gatewayID)
	return &Link{GatewayID: gatewayID, ShortURL: shortURL, ExpiresAt: expiresAt}, nil
}

// MarkPayLater records the pay-at-counter choice and stops the poller. The
// transition only applies while the transaction is still pending, so a payment
// that already landed wins.
func (s *Service) MarkPayLater(ctx context.Context, gatewayID string) (bool, error) {
	moved, err := s.txns.UpdateStatusIf(ctx, gatewayID, model.TransactionPending, model.TransactionPayLater)
	if err != nil {
		return false, err
	}
	if moved {
		s.pollers.cancel(gatewayID)
	}
	return moved, nil
}

// ProcessWebhookEvent applies one verified gateway event. Deliveries are
// deduplicated per payment id. The dedupe key is claimed only after the
// transaction lookup succeeds and is released when applying the event fails,
// so a transiently failed delivery stays retryable.
func (s *Service) ProcessWebhookEvent(ctx context.Context, event, gatewayID, paymentID string) error {
	txn, err := s.txns.GetByGatewayID(ctx, gatewayID)
	if err != nil {
		s.countWebhook(event, "unknown")
		return err
	}

	claimed := false
	dedupeKey := "payment:webhook:" + paymentID
	if s.dedupe != nil && paymentID != "" {
		won, err := s.dedupe.SetNX(ctx, dedupeKey, event, 24*time.Hour)
		if err != nil {
			return err
		}
		if !won {
			s.countWebhook(event, "duplicate")
			return nil
		}
		claimed = true
	}

	if err := s.applyEvent(ctx, event, gatewayID, paymentID, txn); err != nil {
		if claimed {
			if delErr := s.dedupe.Delete(ctx, dedupeKey); delErr != nil {
				s.logger.Error(delErr, "failed to release webhook dedupe key", map[string]interface{}{
					"payment_id": paymentID,
				})
			}
		}
		return err
	}
	return nil
}

func (s *Service) applyEvent(ctx context.Context, event, gatewayID, paymentID string, txn *model.Transaction) error {
	switch event {
	case "payment_link.paid":
		if paymentID != "" {
			if err := s.txns.SetPaymentID(ctx, gatewayID, paymentID); err != nil {
				return err
			}
		}
		moved, err := s.txns.UpdateStatusIf(ctx, gatewayID, model.TransactionPending, model.TransactionPaid)
		if err != nil {
			return err
		}
		if moved {
			s.pollers.cancel(gatewayID)
			s.countWebhook(event, "applied")
			if s.hooks != nil {
				s.hooks.PaymentPaid(ctx, txn)
			}
		} else {
			s.countWebhook(event, "stale")
		}
	case "payment_link.cancelled":
		moved, err := s.txns.UpdateStatusIf(ctx, gatewayID, model.TransactionPending, model.TransactionCancelled)
		if err != nil {
			return err
		}
		if moved {
			s.pollers.cancel(gatewayID)
			s.countWebhook(event, "applied")
		} else {
			s.countWebhook(event, "stale")
		}
	default:
		s.countWebhook(event, "ignored")
	}
	return nil
}

// VerifySignature checks the gateway's HMAC over the raw webhook body.
func (s *Service) VerifySignature(body []byte, signature string) bool {
	return utils.VerifyWebhookSignature(string(body), signature, s.cfg.WebhookSecret)
}

// ResumePending restores monitoring after a restart. Overdue pending
// transactions are expired outright; the rest get their pollers back.
func (s *Service) ResumePending(ctx context.Context) error {
	pending, err := s.txns.ListPending(ctx)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, txn := range pending {
		if txn.Expired(now) {
			if _, err := s.txns.UpdateStatusIf(ctx, txn.GatewayID, model.TransactionPending, model.TransactionExpired); err != nil {
				s.logger.Error(err, "failed to expire overdue transaction", map[string]interface{}{
					"transaction_id": txn.GatewayID,
				})
			}
			continue
		}
		s.startPoller(txn.GatewayID)
	}
	return nil
}

// Shutdown stops every running poller.
func (s *Service) Shutdown() {
	s.pollers.cancelAll()
}

func (s *Service) countWebhook(event, status string) {
	if s.metrics != nil {
		s.metrics.PaymentWebhooks.WithLabelValues(event, status).Inc()
	}
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
