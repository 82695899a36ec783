package model

import "time"

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionPaid      TransactionStatus = "paid"
	TransactionPayLater  TransactionStatus = "pay_later"
	TransactionCancelled TransactionStatus = "cancelled"
	TransactionExpired   TransactionStatus = "expired"
)

// Transaction is one payment attempt tied to an appointment. GatewayID is the
// payment gateway's payment-link identifier; PaymentID arrives with the paid
// webhook.
type Transaction struct {
	ID            int64             `db:"transaction_pk" json:"transaction_pk"`
	AppointmentID int64             `db:"appointment_id" json:"appointment_id"`
	GatewayID     string            `db:"transaction_id" json:"transaction_id"`
	PaymentID     *string           `db:"payment_id" json:"payment_id,omitempty"`
	Status        TransactionStatus `db:"status" json:"status"`
	ExpiresAt     time.Time         `db:"expires_at" json:"expires_at"`
	CreatedAt     time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time         `db:"updated_at" json:"updated_at"`
}

// Expired reports whether the transaction's payment window has closed.
func (t *Transaction) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
