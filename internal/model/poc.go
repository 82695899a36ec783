package model

import "time"

// POCSettings is the provider's notification preference blob.
type POCSettings struct {
	BookedMessage bool `json:"bookedMessage"`
}

// POC is a bookable point of contact (e.g. a doctor) scoped to a client.
type POC struct {
	ID             int64       `db:"poc_id" json:"poc_id"`
	ClientID       int64       `db:"client_id" json:"client_id"`
	Name           string      `db:"poc_name" json:"poc_name"`
	Specialization string      `db:"specialization" json:"specialization"`
	ContactNumber  string      `db:"contact_number" json:"contact_number"`
	MeetLink       string      `db:"meet_link" json:"meet_link"`
	Fee            int64       `db:"fee" json:"fee"`
	BranchID       int64       `db:"branch_id" json:"branch_id"`
	Settings       POCSettings `db:"-" json:"settings"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updated_at"`
}

// POCSchedule is one recurring weekly template row from which concrete slots
// are materialized by an external batch process.
type POCSchedule struct {
	ID              int64  `db:"schedule_id" json:"schedule_id"`
	POCID           int64  `db:"poc_id" json:"poc_id"`
	DayOfWeek       string `db:"day_of_week" json:"day_of_week"`
	StartTime       string `db:"start_time" json:"start_time"`
	EndTime         string `db:"end_time" json:"end_time"`
	SlotDuration    int    `db:"slot_duration_minutes" json:"slot_duration_minutes"`
	PerSlotCapacity int    `db:"appointments_per_slot" json:"appointments_per_slot"`
}

// AvailableSlot is a concrete (POC, date, start time) unit of capacity.
// Remaining never goes negative: the ledger decrements through a conditional
// update only.
type AvailableSlot struct {
	ID        int64  `db:"slot_id" json:"slot_id"`
	POCID     int64  `db:"poc_id" json:"poc_id"`
	Date      string `db:"schedule_date" json:"schedule_date"`
	StartTime string `db:"start_time" json:"start_time"`
	Remaining int    `db:"appointments_per_slot" json:"appointments_per_slot"`
	Status    string `db:"active_status" json:"active_status"`
}

// Slot active statuses.
const (
	SlotUnblocked = "unblocked"
	SlotBlocked   = "blocked"
)
