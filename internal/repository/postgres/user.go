package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/meistersol/bookingbot/internal/model"
	"github.com/meistersol/bookingbot/pkg/apperror"
)

// Columns the registration flow may set on a user. Field names arrive from
// conversation state, so they go through a whitelist before touching SQL.
var userColumns = map[string]string{
	"User_Name":     "user_name",
	"User_Email":    "user_email",
	"User_Location": "user_location",
}

func (r *userRepository) GetByContact(ctx context.Context, contact string) (*model.User, error) {
	query := `
		SELECT user_id, client_id, user_contact, user_name, user_email,
			   user_location, created_at, updated_at
		FROM users
		WHERE user_contact = $1
	`
	var user model.User
	err := r.db.GetContext(ctx, &user, query, contact)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("user", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (r *userRepository) Get(ctx context.Context, id int64) (*model.User, error) {
	query := `
		SELECT user_id, client_id, user_contact, user_name, user_email,
			   user_location, created_at, updated_at
		FROM users
		WHERE user_id = $1
	`
	var user model.User
	err := r.db.GetContext(ctx, &user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("user", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, contact string, clientID int64) error {
	query := `
		INSERT INTO users (user_contact, client_id, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (user_contact) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, contact, clientID); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepository) UpdateField(ctx context.Context, contact, field, value string) error {
	column, ok := userColumns[field]
	if !ok {
		return fmt.Errorf("unknown user field %q", field)
	}
	query := fmt.Sprintf(`
		UPDATE users
		SET %s = $1, updated_at = NOW()
		WHERE user_contact = $2
	`, column)
	result, err := r.db.ExecContext(ctx, query, value, contact)
	if err != nil {
		return fmt.Errorf("failed to update user field: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("user", nil)
	}
	return nil
}
