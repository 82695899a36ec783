package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/meistersol/bookingbot/internal/model"
)

// AvailableDates returns the distinct future dates on which the POC still has
// an unblocked slot with remaining capacity. Today qualifies only while some
// slot today starts at or after the current time. Capped at 10; truncation is
// silent.
func (r *slotRepository) AvailableDates(ctx context.Context, clientID, menuID, pocID int64, now time.Time) ([]model.MenuOption, error) {
	query := `
		SELECT DISTINCT schedule_date
		FROM poc_available_slots
		WHERE poc_id = $1
		  AND schedule_date >= $2::date
		  AND appointments_per_slot > 0
		  AND active_status = 'unblocked'
		  AND (schedule_date > $2::date OR start_time >= $3::time)
		ORDER BY schedule_date ASC
		LIMIT 10
	`
	var dates []time.Time
	err := r.db.SelectContext(ctx, &dates, query,
		pocID, now.Format(model.DateLayout), now.Format(model.TimeLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to list available dates: %w", err)
	}

	options := make([]model.MenuOption, 0, len(dates))
	for _, d := range dates {
		options = append(options, model.MenuOption{
			ClientID: clientID,
			MenuID:   menuID,
			ItemID:   fmt.Sprintf("%d-%s", pocID, d.Format(model.DateLayout)),
			Label:    d.Format(model.DateLabelLayout),
		})
	}
	return options, nil
}

// AvailableTimes returns the bookable start times of one POC on one date,
// excluding past times when the date is today. Capped at 10.
func (r *slotRepository) AvailableTimes(ctx context.Context, clientID, menuID, pocID int64, date string, now time.Time) ([]model.MenuOption, error) {
	query := `
		SELECT start_time
		FROM poc_available_slots
		WHERE poc_id = $1
		  AND schedule_date = $2::date
		  AND appointments_per_slot > 0
		  AND active_status = 'unblocked'
		  AND (schedule_date > $3::date OR start_time >= $4::time)
		ORDER BY start_time ASC
		LIMIT 10
	`
	var times []string
	err := r.db.SelectContext(ctx, &times, query,
		pocID, date, now.Format(model.DateLayout), now.Format(model.TimeLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to list available times: %w", err)
	}

	options := make([]model.MenuOption, 0, len(times))
	for _, t := range times {
		options = append(options, model.MenuOption{
			ClientID: clientID,
			MenuID:   menuID,
			ItemID:   fmt.Sprintf("%d-%s-%s", pocID, date, t),
			Label:    t,
		})
	}
	return options, nil
}

// Reserve decrements remaining capacity iff the slot exists, is unblocked and
// has capacity left. The conditional update is the only thing standing
// between two concurrent bookings and the last remaining unit, so it must
// stay a single statement.
func (r *slotRepository) Reserve(ctx context.Context, pocID int64, date, startTime string) (bool, error) {
	query := `
		UPDATE poc_available_slots
		SET appointments_per_slot = appointments_per_slot - 1
		WHERE poc_id = $1
		  AND schedule_date = $2::date
		  AND start_time = $3::time
		  AND appointments_per_slot > 0
		  AND active_status = 'unblocked'
	`
	result, err := r.db.ExecContext(ctx, query, pocID, date, startTime)
	if err != nil {
		return false, fmt.Errorf("failed to reserve slot: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

// Release increments remaining capacity unconditionally. Calling it twice for
// one reservation inflates capacity; callers guard with the appointment
// state's Slot_Consumed/Slot_Released flags so each reservation is released
// exactly once.
func (r *slotRepository) Release(ctx context.Context, pocID int64, date, startTime string) error {
	query := `
		UPDATE poc_available_slots
		SET appointments_per_slot = appointments_per_slot + 1
		WHERE poc_id = $1
		  AND schedule_date = $2::date
		  AND start_time = $3::time
	`
	if _, err := r.db.ExecContext(ctx, query, pocID, date, startTime); err != nil {
		return fmt.Errorf("failed to release slot: %w", err)
	}
	return nil
}
