package payment

import (
	"context"
	"sync"
	"time"

	"github.com/meistersol/bookingbot/internal/model"
)

// pollerRegistry tracks the cancel functions of running pollers keyed by
// gateway link id. A second start for the same link replaces the first.
type pollerRegistry struct {
	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func newPollerRegistry() *pollerRegistry {
	return &pollerRegistry{cancels: make(map[string]context.CancelFunc)}
}

func (r *pollerRegistry) add(gatewayID string, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.cancels[gatewayID]; ok {
		prev()
	}
	r.cancels[gatewayID] = cancel
}

func (r *pollerRegistry) cancel(gatewayID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cancel, ok := r.cancels[gatewayID]; ok {
		cancel()
		delete(r.cancels, gatewayID)
	}
}

func (r *pollerRegistry) remove(gatewayID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cancels, gatewayID)
}

func (r *pollerRegistry) cancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, cancel := range r.cancels {
		cancel()
		delete(r.cancels, id)
	}
}

// startPoller runs the recurring status check for one payment link. The
// poller is the fallback for missed webhooks; it stops the moment the
// transaction leaves pending, on expiry, or when the registry cancels it.
func (s *Service) startPoller(gatewayID string) {
	ctx, cancel := context.WithCancel(context.Background())
	s.pollers.add(gatewayID, cancel)

	if s.metrics != nil {
		s.metrics.ActivePollers.Inc()
	}

	go func() {
		defer func() {
			s.pollers.remove(gatewayID)
			if s.metrics != nil {
				s.metrics.ActivePollers.Dec()
			}
		}()

		ticker := time.NewTicker(s.cfg.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if done := s.pollOnce(ctx, gatewayID); done {
					return
				}
			}
		}
	}()
}

// pollOnce checks one transaction and reports whether the poller should stop.
func (s *Service) pollOnce(ctx context.Context, gatewayID string) bool {
	txn, err := s.txns.GetByGatewayID(ctx, gatewayID)
	if err != nil {
		s.logger.Error(err, "poller failed to load transaction", map[string]interface{}{
			"transaction_id": gatewayID,
		})
		return false
	}
	if txn.Status != model.TransactionPending {
		return true
	}

	if txn.Expired(time.Now()) {
		moved, err := s.txns.UpdateStatusIf(ctx, gatewayID, model.TransactionPending, model.TransactionExpired)
		if err != nil {
			s.logger.Error(err, "failed to expire transaction", map[string]interface{}{
				"transaction_id": gatewayID,
			})
			return false
		}
		if moved && s.hooks != nil {
			s.hooks.PaymentExpired(ctx, txn)
		}
		return true
	}

	body, err := s.api.FetchLink(gatewayID)
	if err != nil {
		s.logger.Error(err, "failed to fetch payment link status", map[string]interface{}{
			"transaction_id": gatewayID,
		})
		return false
	}

	switch status, _ := body["status"].(string); status {
	case "paid":
		moved, err := s.txns.UpdateStatusIf(ctx, gatewayID, model.TransactionPending, model.TransactionPaid)
		if err != nil {
			s.logger.Error(err, "failed to mark transaction paid", map[string]interface{}{
				"transaction_id": gatewayID,
			})
			return false
		}
		if moved && s.hooks != nil {
			s.hooks.PaymentPaid(ctx, txn)
		}
		return true
	case "cancelled", "expired":
		if _, err := s.txns.UpdateStatusIf(ctx, gatewayID, model.TransactionPending, model.TransactionCancelled); err != nil {
			s.logger.Error(err, "failed to mark transaction cancelled", map[string]interface{}{
				"transaction_id": gatewayID,
			})
			return false
		}
		return true
	default:
		return false
	}
}
