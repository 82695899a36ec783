package payment

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meistersol/bookingbot/internal/model"
	"github.com/meistersol/bookingbot/internal/repository"
	"github.com/meistersol/bookingbot/pkg/apperror"
	"github.com/meistersol/bookingbot/pkg/logger"
)

type stubGateway struct {
	created    []map[string]interface{}
	createBody map[string]interface{}
	createErr  error
	fetchBody  map[string]interface{}
	fetchErr   error
}

func (s *stubGateway) CreateLink(data map[string]interface{}) (map[string]interface{}, error) {
	s.created = append(s.created, data)
	return s.createBody, s.createErr
}

func (s *stubGateway) FetchLink(string) (map[string]interface{}, error) {
	return s.fetchBody, s.fetchErr
}

type memTxns struct {
	txns       map[string]*model.Transaction
	paymentIDs map[string]string
}

func newMemTxns() *memTxns {
	return &memTxns{txns: map[string]*model.Transaction{}, paymentIDs: map[string]string{}}
}

func (m *memTxns) Create(_ context.Context, appointmentID int64, gatewayID string, expiresAt time.Time) error {
	m.txns[gatewayID] = &model.Transaction{
		AppointmentID: appointmentID,
		GatewayID:     gatewayID,
		Status:        model.TransactionPending,
		ExpiresAt:     expiresAt,
	}
	return nil
}

func (m *memTxns) GetByGatewayID(_ context.Context, gatewayID string) (*model.Transaction, error) {
	txn, ok := m.txns[gatewayID]
	if !ok {
		return nil, apperror.NotFound("transaction", nil)
	}
	copied := *txn
	return &copied, nil
}

func (m *memTxns) UpdateStatus(_ context.Context, gatewayID string, status model.TransactionStatus) error {
	m.txns[gatewayID].Status = status
	return nil
}

func (m *memTxns) UpdateStatusIf(_ context.Context, gatewayID string, from, to model.TransactionStatus) (bool, error) {
	txn, ok := m.txns[gatewayID]
	if !ok || txn.Status != from {
		return false, nil
	}
	txn.Status = to
	return true, nil
}

func (m *memTxns) SetPaymentID(_ context.Context, gatewayID, paymentID string) error {
	m.paymentIDs[gatewayID] = paymentID
	return nil
}

func (m *memTxns) ListPending(_ context.Context) ([]*model.Transaction, error) {
	var out []*model.Transaction
	for _, txn := range m.txns {
		if txn.Status == model.TransactionPending {
			copied := *txn
			out = append(out, &copied)
		}
	}
	return out, nil
}

// flakyTxns injects transient failures in front of a memTxns.
type flakyTxns struct {
	*memTxns
	getFailures    int
	updateFailures int
}

func (f *flakyTxns) GetByGatewayID(ctx context.Context, gatewayID string) (*model.Transaction, error) {
	if f.getFailures > 0 {
		f.getFailures--
		return nil, fmt.Errorf("transient lookup failure")
	}
	return f.memTxns.GetByGatewayID(ctx, gatewayID)
}

func (f *flakyTxns) UpdateStatusIf(ctx context.Context, gatewayID string, from, to model.TransactionStatus) (bool, error) {
	if f.updateFailures > 0 {
		f.updateFailures--
		return false, fmt.Errorf("transient update failure")
	}
	return f.memTxns.UpdateStatusIf(ctx, gatewayID, from, to)
}

type memDedupe struct {
	keys map[string]string
}

func newMemDedupe() *memDedupe {
	return &memDedupe{keys: map[string]string{}}
}

func (d *memDedupe) SetNX(_ context.Context, key, value string, _ time.Duration) (bool, error) {
	if _, ok := d.keys[key]; ok {
		return false, nil
	}
	d.keys[key] = value
	return true, nil
}

func (d *memDedupe) Delete(_ context.Context, key string) error {
	delete(d.keys, key)
	return nil
}

type recorderHooks struct {
	paid    []string
	expired []string
}

func (h *recorderHooks) PaymentPaid(_ context.Context, txn *model.Transaction) {
	h.paid = append(h.paid, txn.GatewayID)
}

func (h *recorderHooks) PaymentExpired(_ context.Context, txn *model.Transaction) {
	h.expired = append(h.expired, txn.GatewayID)
}

func newTestService(api GatewayAPI, txns repository.TransactionRepository) (*Service, *recorderHooks) {
	hooks := &recorderHooks{}
	svc := &Service{
		api:  api,
		txns: txns,
		cfg: Config{
			Currency:     "INR",
			LinkExpiry:   10 * time.Minute,
			PollInterval: time.Hour,
		},
		logger:  logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard}),
		pollers: newPollerRegistry(),
	}
	svc.SetHooks(hooks)
	return svc, hooks
}

func TestCreateLinkPersistsPendingTransaction(t *testing.T) {
	api := &stubGateway{createBody: map[string]interface{}{
		"id":        "plink_1",
		"short_url": "https://rzp.io/l/abc",
	}}
	txns := newMemTxns()
	svc, _ := newTestService(api, txns)
	defer svc.Shutdown()

	name, email := "Asha", "asha@example.com"
	poc := &model.POC{ID: 7, Name: "Dr. Rao", Fee: 500}
	user := &model.User{ContactNumber: "919900112233", Name: &name, Email: &email}

	link, err := svc.CreateLink(context.Background(), 99, poc, user)
	require.NoError(t, err)
	assert.Equal(t, "plink_1", link.GatewayID)
	assert.Equal(t, "https://rzp.io/l/abc", link.ShortURL)

	require.Len(t, api.created, 1)
	assert.Equal(t, int64(50000), api.created[0]["amount"])
	assert.Equal(t, "INR", api.created[0]["currency"])

	txn := txns.txns["plink_1"]
	require.NotNil(t, txn)
	assert.Equal(t, int64(99), txn.AppointmentID)
	assert.Equal(t, model.TransactionPending, txn.Status)

	svc.pollers.mu.Lock()
	_, running := svc.pollers.cancels["plink_1"]
	svc.pollers.mu.Unlock()
	assert.True(t, running)
}

func TestCreateLinkWithoutIDFails(t *testing.T) {
	api := &stubGateway{createBody: map[string]interface{}{"short_url": "https://rzp.io/l/abc"}}
	svc, _ := newTestService(api, newMemTxns())

	_, err := svc.CreateLink(context.Background(), 99, &model.POC{Fee: 500}, &model.User{})
	assert.True(t, apperror.IsCode(err, apperror.CodeExternal))
}

func TestWebhookPaidAppliesOnceAndFiresHook(t *testing.T) {
	txns := newMemTxns()
	require.NoError(t, txns.Create(context.Background(), 99, "plink_1", time.Now().Add(time.Hour)))
	svc, hooks := newTestService(&stubGateway{}, txns)

	err := svc.ProcessWebhookEvent(context.Background(), "payment_link.paid", "plink_1", "pay_1")
	require.NoError(t, err)
	assert.Equal(t, model.TransactionPaid, txns.txns["plink_1"].Status)
	assert.Equal(t, "pay_1", txns.paymentIDs["plink_1"])
	assert.Equal(t, []string{"plink_1"}, hooks.paid)

	// A retried delivery finds the transaction already paid: no second hook.
	err = svc.ProcessWebhookEvent(context.Background(), "payment_link.paid", "plink_1", "pay_2")
	require.NoError(t, err)
	assert.Len(t, hooks.paid, 1)
}

func TestWebhookPaidLosesToPayLater(t *testing.T) {
	txns := newMemTxns()
	require.NoError(t, txns.Create(context.Background(), 99, "plink_1", time.Now().Add(time.Hour)))
	txns.txns["plink_1"].Status = model.TransactionPayLater
	svc, hooks := newTestService(&stubGateway{}, txns)

	err := svc.ProcessWebhookEvent(context.Background(), "payment_link.paid", "plink_1", "pay_1")
	require.NoError(t, err)
	assert.Equal(t, model.TransactionPayLater, txns.txns["plink_1"].Status)
	assert.Empty(t, hooks.paid)
}

func TestWebhookCancelled(t *testing.T) {
	txns := newMemTxns()
	require.NoError(t, txns.Create(context.Background(), 99, "plink_1", time.Now().Add(time.Hour)))
	svc, hooks := newTestService(&stubGateway{}, txns)

	err := svc.ProcessWebhookEvent(context.Background(), "payment_link.cancelled", "plink_1", "")
	require.NoError(t, err)
	assert.Equal(t, model.TransactionCancelled, txns.txns["plink_1"].Status)
	assert.Empty(t, hooks.paid)
}

func TestWebhookUnknownTransaction(t *testing.T) {
	svc, _ := newTestService(&stubGateway{}, newMemTxns())

	err := svc.ProcessWebhookEvent(context.Background(), "payment_link.paid", "plink_missing", "pay_1")
	assert.True(t, apperror.IsNotFound(err))
}

func TestWebhookDuplicateDeliveryIsDropped(t *testing.T) {
	txns := newMemTxns()
	require.NoError(t, txns.Create(context.Background(), 99, "plink_1", time.Now().Add(time.Hour)))
	svc, hooks := newTestService(&stubGateway{}, txns)
	svc.dedupe = newMemDedupe()

	require.NoError(t, svc.ProcessWebhookEvent(context.Background(), "payment_link.paid", "plink_1", "pay_1"))
	require.NoError(t, svc.ProcessWebhookEvent(context.Background(), "payment_link.paid", "plink_1", "pay_1"))

	assert.Equal(t, model.TransactionPaid, txns.txns["plink_1"].Status)
	assert.Len(t, hooks.paid, 1)
}

func TestWebhookLookupFailureBurnsNoDedupeKey(t *testing.T) {
	txns := newMemTxns()
	require.NoError(t, txns.Create(context.Background(), 99, "plink_1", time.Now().Add(time.Hour)))
	flaky := &flakyTxns{memTxns: txns, getFailures: 1}
	svc, hooks := newTestService(&stubGateway{}, flaky)
	dedupe := newMemDedupe()
	svc.dedupe = dedupe

	err := svc.ProcessWebhookEvent(context.Background(), "payment_link.paid", "plink_1", "pay_1")
	require.Error(t, err)
	assert.Empty(t, dedupe.keys)
	assert.Equal(t, model.TransactionPending, txns.txns["plink_1"].Status)

	// The gateway's retry of the same delivery must still land.
	require.NoError(t, svc.ProcessWebhookEvent(context.Background(), "payment_link.paid", "plink_1", "pay_1"))
	assert.Equal(t, model.TransactionPaid, txns.txns["plink_1"].Status)
	assert.Equal(t, []string{"plink_1"}, hooks.paid)
}

func TestWebhookReleasesDedupeKeyWhenApplyFails(t *testing.T) {
	txns := newMemTxns()
	require.NoError(t, txns.Create(context.Background(), 99, "plink_1", time.Now().Add(time.Hour)))
	flaky := &flakyTxns{memTxns: txns, updateFailures: 1}
	svc, hooks := newTestService(&stubGateway{}, flaky)
	dedupe := newMemDedupe()
	svc.dedupe = dedupe

	err := svc.ProcessWebhookEvent(context.Background(), "payment_link.paid", "plink_1", "pay_1")
	require.Error(t, err)
	assert.Empty(t, dedupe.keys)

	require.NoError(t, svc.ProcessWebhookEvent(context.Background(), "payment_link.paid", "plink_1", "pay_1"))
	assert.Equal(t, model.TransactionPaid, txns.txns["plink_1"].Status)
	assert.Len(t, hooks.paid, 1)
	assert.Len(t, dedupe.keys, 1)
}

func TestMarkPayLaterOnlyWhilePending(t *testing.T) {
	txns := newMemTxns()
	require.NoError(t, txns.Create(context.Background(), 99, "plink_1", time.Now().Add(time.Hour)))
	svc, _ := newTestService(&stubGateway{}, txns)

	moved, err := svc.MarkPayLater(context.Background(), "plink_1")
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, model.TransactionPayLater, txns.txns["plink_1"].Status)

	moved, err = svc.MarkPayLater(context.Background(), "plink_1")
	require.NoError(t, err)
	assert.False(t, moved)
}

func TestPollOnceExpiresOverdueTransaction(t *testing.T) {
	txns := newMemTxns()
	require.NoError(t, txns.Create(context.Background(), 99, "plink_1", time.Now().Add(-time.Minute)))
	svc, hooks := newTestService(&stubGateway{}, txns)

	done := svc.pollOnce(context.Background(), "plink_1")
	assert.True(t, done)
	assert.Equal(t, model.TransactionExpired, txns.txns["plink_1"].Status)
	assert.Equal(t, []string{"plink_1"}, hooks.expired)
}

func TestPollOncePicksUpMissedPayment(t *testing.T) {
	txns := newMemTxns()
	require.NoError(t, txns.Create(context.Background(), 99, "plink_1", time.Now().Add(time.Hour)))
	api := &stubGateway{fetchBody: map[string]interface{}{"status": "paid"}}
	svc, hooks := newTestService(api, txns)

	done := svc.pollOnce(context.Background(), "plink_1")
	assert.True(t, done)
	assert.Equal(t, model.TransactionPaid, txns.txns["plink_1"].Status)
	assert.Equal(t, []string{"plink_1"}, hooks.paid)
}

func TestPollOnceKeepsWaitingWhileCreated(t *testing.T) {
	txns := newMemTxns()
	require.NoError(t, txns.Create(context.Background(), 99, "plink_1", time.Now().Add(time.Hour)))
	api := &stubGateway{fetchBody: map[string]interface{}{"status": "created"}}
	svc, _ := newTestService(api, txns)

	assert.False(t, svc.pollOnce(context.Background(), "plink_1"))
	assert.Equal(t, model.TransactionPending, txns.txns["plink_1"].Status)
}

func TestPollOnceStopsForSettledTransaction(t *testing.T) {
	txns := newMemTxns()
	require.NoError(t, txns.Create(context.Background(), 99, "plink_1", time.Now().Add(time.Hour)))
	txns.txns["plink_1"].Status = model.TransactionPaid
	svc, hooks := newTestService(&stubGateway{}, txns)

	assert.True(t, svc.pollOnce(context.Background(), "plink_1"))
	assert.Empty(t, hooks.paid)
}

func TestResumePendingExpiresOverdueAndRestartsRest(t *testing.T) {
	txns := newMemTxns()
	require.NoError(t, txns.Create(context.Background(), 1, "plink_overdue", time.Now().Add(-time.Minute)))
	require.NoError(t, txns.Create(context.Background(), 2, "plink_live", time.Now().Add(time.Hour)))
	svc, _ := newTestService(&stubGateway{}, txns)
	defer svc.Shutdown()

	require.NoError(t, svc.ResumePending(context.Background()))

	assert.Equal(t, model.TransactionExpired, txns.txns["plink_overdue"].Status)
	assert.Equal(t, model.TransactionPending, txns.txns["plink_live"].Status)

	svc.pollers.mu.Lock()
	_, overdueRunning := svc.pollers.cancels["plink_overdue"]
	_, liveRunning := svc.pollers.cancels["plink_live"]
	svc.pollers.mu.Unlock()
	assert.False(t, overdueRunning)
	assert.True(t, liveRunning)
}
