package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/meistersol/bookingbot/internal/model"
	"github.com/meistersol/bookingbot/pkg/apperror"
)

const transactionSelect = `
	SELECT transaction_pk, appointment_id, transaction_id, payment_id, status,
		   expires_at, created_at, updated_at
	FROM transactions
`

func (r *transactionRepository) Create(ctx context.Context, appointmentID int64, gatewayID string, expiresAt time.Time) error {
	query := `
		INSERT INTO transactions (appointment_id, transaction_id, status, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
	`
	if _, err := r.db.ExecContext(ctx, query, appointmentID, gatewayID, model.TransactionPending, expiresAt); err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *transactionRepository) GetByGatewayID(ctx context.Context, gatewayID string) (*model.Transaction, error) {
	var txn model.Transaction
	err := r.db.GetContext(ctx, &txn, transactionSelect+` WHERE transaction_id = $1`, gatewayID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("transaction", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &txn, nil
}

func (r *transactionRepository) UpdateStatus(ctx context.Context, gatewayID string, status model.TransactionStatus) error {
	query := `
		UPDATE transactions
		SET status = $1, updated_at = NOW()
		WHERE transaction_id = $2
	`
	result, err := r.db.ExecContext(ctx, query, status, gatewayID)
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("transaction", nil)
	}
	return nil
}

// UpdateStatusIf transitions the transaction only from the expected status.
// The conditional update makes webhook and poller racing on the same
// transaction settle on exactly one winner.
func (r *transactionRepository) UpdateStatusIf(ctx context.Context, gatewayID string, from, to model.TransactionStatus) (bool, error) {
	query := `
		UPDATE transactions
		SET status = $1, updated_at = NOW()
		WHERE transaction_id = $2 AND status = $3
	`
	result, err := r.db.ExecContext(ctx, query, to, gatewayID, from)
	if err != nil {
		return false, fmt.Errorf("failed to transition transaction status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *transactionRepository) SetPaymentID(ctx context.Context, gatewayID, paymentID string) error {
	query := `
		UPDATE transactions
		SET payment_id = $1, updated_at = NOW()
		WHERE transaction_id = $2
	`
	if _, err := r.db.ExecContext(ctx, query, paymentID, gatewayID); err != nil {
		return fmt.Errorf("failed to set payment id: %w", err)
	}
	return nil
}

func (r *transactionRepository) ListPending(ctx context.Context) ([]*model.Transaction, error) {
	var txns []*model.Transaction
	err := r.db.SelectContext(ctx, &txns, transactionSelect+` WHERE status = $1 ORDER BY created_at ASC`,
		model.TransactionPending)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending transactions: %w", err)
	}
	return txns, nil
}
