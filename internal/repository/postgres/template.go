package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/meistersol/bookingbot/pkg/apperror"
)

func (r *templateRepository) Get(ctx context.Context, clientID int64, name string) (string, error) {
	query := `
		SELECT body
		FROM message_templates
		WHERE client_id = $1 AND template_name = $2
	`
	var body string
	err := r.db.GetContext(ctx, &body, query, clientID, name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperror.NotFound("template", err)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get template %s: %w", name, err)
	}
	return body, nil
}
