package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/meistersol/bookingbot/internal/model"
	"github.com/meistersol/bookingbot/pkg/apperror"
)

type clientRow struct {
	ID            int64     `db:"client_id"`
	Name          string    `db:"client_name"`
	ContactNumber string    `db:"contact_number"`
	Email         string    `db:"email"`
	LocationURL   string    `db:"location_url"`
	Settings      []byte    `db:"settings"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (r clientRow) toModel() (*model.Client, error) {
	client := &model.Client{
		ID:            r.ID,
		Name:          r.Name,
		ContactNumber: r.ContactNumber,
		Email:         r.Email,
		LocationURL:   r.LocationURL,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if len(r.Settings) > 0 {
		if err := json.Unmarshal(r.Settings, &client.Settings); err != nil {
			return nil, fmt.Errorf("failed to decode client settings: %w", err)
		}
	}
	return client, nil
}

func (r *clientRepository) GetByContactNumber(ctx context.Context, number string) (*model.Client, error) {
	query := `
		SELECT client_id, client_name, contact_number, email, location_url,
			   settings, created_at, updated_at
		FROM clients
		WHERE contact_number = $1
	`
	var row clientRow
	err := r.db.GetContext(ctx, &row, query, number)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("client", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client by number: %w", err)
	}
	return row.toModel()
}

func (r *clientRepository) Get(ctx context.Context, id int64) (*model.Client, error) {
	query := `
		SELECT client_id, client_name, contact_number, email, location_url,
			   settings, created_at, updated_at
		FROM clients
		WHERE client_id = $1
	`
	var row clientRow
	err := r.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("client", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return row.toModel()
}
