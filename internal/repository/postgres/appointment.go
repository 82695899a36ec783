package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/meistersol/bookingbot/internal/model"
	"github.com/meistersol/bookingbot/pkg/apperror"
)

// Conversation fields that mirror into a typed column alongside the JSON
// snapshot. Field names arrive from menu action descriptors, so they go
// through this whitelist before touching SQL.
var appointmentColumns = map[string]string{
	"Appointment_Date": "appointment_date",
	"Appointment_Time": "appointment_time",
	"Appointment_Type": "appointment_type",
	"Status":           "status",
	"Payment_Status":   "payment_status",
}

const appointmentSelect = `
	SELECT appointment_id, client_id, user_id, poc_id,
		   to_char(appointment_date, 'YYYY-MM-DD') AS appointment_date,
		   appointment_time::text AS appointment_time,
		   appointment_type, status, is_active, payment_status, state,
		   created_at, updated_at
	FROM appointments
`

func (r *appointmentRepository) Create(ctx context.Context, clientID, userID int64) (int64, error) {
	query := `
		INSERT INTO appointments (client_id, user_id, status, is_active, state, created_at, updated_at)
		VALUES ($1, $2, $3, TRUE, '{}'::jsonb, NOW(), NOW())
		RETURNING appointment_id
	`
	var id int64
	err := r.db.GetContext(ctx, &id, query, clientID, userID, model.AppointmentStatusPending)
	if err != nil {
		return 0, fmt.Errorf("failed to create appointment: %w", err)
	}
	return id, nil
}

func (r *appointmentRepository) Get(ctx context.Context, id int64) (*model.Appointment, error) {
	var appt model.Appointment
	err := r.db.GetContext(ctx, &appt, appointmentSelect+` WHERE appointment_id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("appointment", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appt, nil
}

// PatchField persists one collected conversation field. The typed column (when
// the field has one) and the JSON snapshot entry are set in a single UPDATE so
// the two can never disagree. Records already superseded by a reschedule are
// left untouched.
//
// "Poc_name" is the special case: the selection carries the POC id as the item
// id and the POC name as the label, and both land on the record at once.
func (r *appointmentRepository) PatchField(ctx context.Context, id int64, field, value, selectID string) error {
	if field == "Poc_name" {
		pocID, err := strconv.ParseInt(selectID, 10, 64)
		if err != nil {
			return apperror.Validation(fmt.Sprintf("invalid poc id %q", selectID), err)
		}
		query := `
			UPDATE appointments
			SET poc_id = $1,
				state = jsonb_set(jsonb_set(COALESCE(state, '{}'::jsonb),
					'{Poc_name}', to_jsonb($2::text)),
					'{Poc_ID}', to_jsonb($1::bigint)),
				updated_at = NOW()
			WHERE appointment_id = $3 AND status <> $4
		`
		if _, err := r.db.ExecContext(ctx, query, pocID, value, id, model.AppointmentStatusRescheduled); err != nil {
			return fmt.Errorf("failed to patch poc: %w", err)
		}
		return nil
	}

	encoded, err := encodeStateValue(field, value)
	if err != nil {
		return err
	}

	if model.IsJSONOnlyField(field) {
		query := `
			UPDATE appointments
			SET state = jsonb_set(COALESCE(state, '{}'::jsonb), ARRAY[$1], $2::jsonb),
				updated_at = NOW()
			WHERE appointment_id = $3 AND status <> $4
		`
		if _, err := r.db.ExecContext(ctx, query, field, encoded, id, model.AppointmentStatusRescheduled); err != nil {
			return fmt.Errorf("failed to patch field %s: %w", field, err)
		}
		return nil
	}

	column, ok := appointmentColumns[field]
	if !ok {
		return fmt.Errorf("unknown appointment field %q", field)
	}
	query := fmt.Sprintf(`
		UPDATE appointments
		SET %s = $1,
			state = jsonb_set(COALESCE(state, '{}'::jsonb), ARRAY[$2], $3::jsonb),
			updated_at = NOW()
		WHERE appointment_id = $4 AND status <> $5
	`, column)
	if _, err := r.db.ExecContext(ctx, query, value, field, encoded, id, model.AppointmentStatusRescheduled); err != nil {
		return fmt.Errorf("failed to patch field %s: %w", field, err)
	}
	return nil
}

// PatchJSON sets one snapshot key without touching typed columns. Unlike
// PatchField it applies regardless of status, so slot bookkeeping can still be
// recorded on superseded records.
func (r *appointmentRepository) PatchJSON(ctx context.Context, id int64, key string, value interface{}) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode state value: %w", err)
	}
	query := `
		UPDATE appointments
		SET state = jsonb_set(COALESCE(state, '{}'::jsonb), ARRAY[$1], $2::jsonb),
			updated_at = NOW()
		WHERE appointment_id = $3
	`
	if _, err := r.db.ExecContext(ctx, query, key, encoded, id); err != nil {
		return fmt.Errorf("failed to patch state key %s: %w", key, err)
	}
	return nil
}

// SetStatusInactive closes a record: typed status, cleared active flag and the
// mirrored Status snapshot key move together.
func (r *appointmentRepository) SetStatusInactive(ctx context.Context, id int64, status model.AppointmentStatus) error {
	query := `
		UPDATE appointments
		SET status = $1,
			is_active = FALSE,
			state = jsonb_set(COALESCE(state, '{}'::jsonb), '{Status}', to_jsonb($1::text)),
			updated_at = NOW()
		WHERE appointment_id = $2
	`
	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to close appointment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("appointment", nil)
	}
	return nil
}

func (r *appointmentRepository) State(ctx context.Context, id int64) (model.AppointmentState, error) {
	var raw []byte
	err := r.db.GetContext(ctx, &raw, `SELECT state FROM appointments WHERE appointment_id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.AppointmentState{}, apperror.NotFound("appointment", err)
	}
	if err != nil {
		return model.AppointmentState{}, fmt.Errorf("failed to get appointment state: %w", err)
	}
	appt := model.Appointment{RawState: raw}
	st, err := appt.State()
	if err != nil {
		return model.AppointmentState{}, fmt.Errorf("failed to decode appointment state: %w", err)
	}
	return st, nil
}

// ActiveForUser returns the user's upcoming confirmed appointments that can
// still be cancelled or rescheduled. Emergency bookings never qualify.
func (r *appointmentRepository) ActiveForUser(ctx context.Context, userID int64, now time.Time) ([]*model.Appointment, error) {
	query := appointmentSelect + `
		WHERE user_id = $1
		  AND is_active = TRUE
		  AND status = $2
		  AND appointment_type IS NOT NULL
		  AND appointment_type <> $3
		  AND appointment_date IS NOT NULL
		  AND (appointment_date > $4::date
			   OR (appointment_date = $4::date AND appointment_time >= $5::time))
		ORDER BY appointment_date ASC, appointment_time ASC
		LIMIT 10
	`
	var appts []*model.Appointment
	err := r.db.SelectContext(ctx, &appts, query,
		userID, model.AppointmentStatusConfirmed, model.KindEmergency,
		now.Format(model.DateLayout), now.Format(model.TimeLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to list active appointments: %w", err)
	}
	return appts, nil
}

// encodeStateValue renders a conversation value as the JSON the typed snapshot
// expects. Branch is numeric in the snapshot; everything else stays a string.
func encodeStateValue(field, value string) ([]byte, error) {
	if field == "Branch" {
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, apperror.Validation(fmt.Sprintf("invalid branch %q", value), err)
		}
		return json.Marshal(n)
	}
	return json.Marshal(value)
}
