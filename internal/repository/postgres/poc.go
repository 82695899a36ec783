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

type pocRow struct {
	ID             int64     `db:"poc_id"`
	ClientID       int64     `db:"client_id"`
	Name           string    `db:"poc_name"`
	Specialization string    `db:"specialization"`
	ContactNumber  string    `db:"contact_number"`
	MeetLink       string    `db:"meet_link"`
	Fee            int64     `db:"fee"`
	BranchID       int64     `db:"branch_id"`
	Settings       []byte    `db:"settings"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func (r pocRow) toModel() (*model.POC, error) {
	poc := &model.POC{
		ID:             r.ID,
		ClientID:       r.ClientID,
		Name:           r.Name,
		Specialization: r.Specialization,
		ContactNumber:  r.ContactNumber,
		MeetLink:       r.MeetLink,
		Fee:            r.Fee,
		BranchID:       r.BranchID,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if len(r.Settings) > 0 {
		if err := json.Unmarshal(r.Settings, &poc.Settings); err != nil {
			return nil, fmt.Errorf("failed to decode poc settings: %w", err)
		}
	}
	return poc, nil
}

const pocSelect = `
	SELECT poc_id, client_id, poc_name, specialization, contact_number,
		   meet_link, fee, branch_id, settings, created_at, updated_at
	FROM pocs
`

func (r *pocRepository) Get(ctx context.Context, id int64) (*model.POC, error) {
	var row pocRow
	err := r.db.GetContext(ctx, &row, pocSelect+` WHERE poc_id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("poc", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get poc: %w", err)
	}
	return row.toModel()
}

// Options projects POC rows into the shared menu-option shape. Department
// matches case-insensitively as a substring; a recorded branch keeps POCs of
// that branch plus branch 0 ("any branch").
func (r *pocRepository) Options(ctx context.Context, clientID, menuID int64, department string, branch int64) ([]model.MenuOption, error) {
	query := `
		SELECT client_id,
			   $1::bigint AS menu_id,
			   poc_id::text AS item_id,
			   poc_name AS label
		FROM pocs
		WHERE client_id = $2
	`
	args := []interface{}{menuID, clientID}
	argCount := 3

	if department != "" {
		query += fmt.Sprintf(" AND specialization ILIKE $%d", argCount)
		args = append(args, "%"+department+"%")
		argCount++
	}
	if branch != 0 {
		query += fmt.Sprintf(" AND (branch_id = $%d OR branch_id = 0)", argCount)
		args = append(args, branch)
		argCount++
	}
	query += " ORDER BY poc_id ASC LIMIT 10"

	var options []model.MenuOption
	if err := r.db.SelectContext(ctx, &options, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list poc options: %w", err)
	}
	return options, nil
}

func (r *pocRepository) FirstBySpecialization(ctx context.Context, clientID int64, specialization string) (*model.POC, error) {
	var row pocRow
	err := r.db.GetContext(ctx, &row, pocSelect+`
		WHERE client_id = $1 AND specialization = $2
		ORDER BY poc_id ASC
		LIMIT 1`, clientID, specialization)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("poc", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get poc by specialization: %w", err)
	}
	return row.toModel()
}
