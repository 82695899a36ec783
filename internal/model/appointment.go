package model

import (
	"encoding/json"
	"time"
)

type AppointmentStatus string

const (
	AppointmentStatusPending     AppointmentStatus = "Pending"
	AppointmentStatusConfirmed   AppointmentStatus = "Confirmed"
	AppointmentStatusCancelled   AppointmentStatus = "Cancelled"
	AppointmentStatusRescheduled AppointmentStatus = "Rescheduled"
	AppointmentStatusAvailed     AppointmentStatus = "Availed"
)

// Appointment kinds with special handling. Emergency appointments never
// consume slot capacity; tele consultations skip the pay-at-counter shortcut.
const (
	KindEmergency = "Emergency"
	KindDirect    = "Direct Consultation"
	KindTele      = "Tele Consultation"
)

// Canonical date/time layouts used in slot keys, item ids and the state
// snapshot.
const (
	DateLayout      = "2006-01-02"
	TimeLayout      = "15:04:05"
	DateLabelLayout = "02 - Jan (Mon)"
)

// Appointment is one booking attempt. The typed columns hold the fields other
// queries filter on; State mirrors every collected field as the conversation
// progresses and is the authoritative snapshot for slot release.
type Appointment struct {
	ID            int64             `db:"appointment_id" json:"appointment_id"`
	ClientID      int64             `db:"client_id" json:"client_id"`
	UserID        int64             `db:"user_id" json:"user_id"`
	POCID         *int64            `db:"poc_id" json:"poc_id,omitempty"`
	Date          *string           `db:"appointment_date" json:"appointment_date,omitempty"`
	Time          *string           `db:"appointment_time" json:"appointment_time,omitempty"`
	Kind          *string           `db:"appointment_type" json:"appointment_type,omitempty"`
	Status        AppointmentStatus `db:"status" json:"status"`
	IsActive      bool              `db:"is_active" json:"is_active"`
	PaymentStatus *string           `db:"payment_status" json:"payment_status,omitempty"`
	RawState      []byte            `db:"state" json:"-"`
	CreatedAt     time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time         `db:"updated_at" json:"updated_at"`
}

// AppointmentState is the typed form of the JSON side-channel. It is the
// in-memory representation; JSON only exists at the storage boundary. Key
// names match the conversation field names the menu actions persist under.
type AppointmentState struct {
	Department      string `json:"Department,omitempty"`
	POCID           int64  `json:"Poc_ID,omitempty"`
	POCName         string `json:"Poc_name,omitempty"`
	Kind            string `json:"Appointment_Type,omitempty"`
	Date            string `json:"Appointment_Date,omitempty"`
	Time            string `json:"Appointment_Time,omitempty"`
	Branch          int64  `json:"Branch,omitempty"`
	ConfirmStatus   string `json:"Confirm_Status,omitempty"`
	EmergencyReason string `json:"Emergency_Reason,omitempty"`
	Function        string `json:"Appointment_Function,omitempty"`
	FinalizeStatus  string `json:"Finalize_Status,omitempty"`
	PaymentStatus   string `json:"Payment_Status,omitempty"`
	Status          string `json:"Status,omitempty"`

	// Slot bookkeeping guards: a reservation is released at most once, using
	// the POC/date/time above as the ledger key.
	SlotConsumed bool `json:"Slot_Consumed,omitempty"`
	SlotReleased bool `json:"Slot_Released,omitempty"`
}

// State decodes the JSON snapshot. A missing or empty blob yields a zero
// state.
func (a *Appointment) State() (AppointmentState, error) {
	var st AppointmentState
	if len(a.RawState) == 0 {
		return st, nil
	}
	if err := json.Unmarshal(a.RawState, &st); err != nil {
		return AppointmentState{}, err
	}
	return st, nil
}

// Placeholders returns the state as a template substitution map.
func (s AppointmentState) Placeholders() map[string]string {
	m := map[string]string{
		"Department":       s.Department,
		"POC":              s.POCName,
		"Appointment_Type": s.Kind,
		"Appointment_Date": s.Date,
		"Appointment_Time": s.Time,
		"Emergency_Reason": s.EmergencyReason,
	}
	return m
}

// Appointment fields that live only in the JSON side-channel; every other
// field the dispatcher persists also maps to a typed column.
var jsonOnlyFields = map[string]bool{
	"Department":           true,
	"Confirm_Status":       true,
	"Emergency_Reason":     true,
	"Appointment_Function": true,
	"Finalize_Status":      true,
	"Branch":               true,
}

// IsJSONOnlyField reports whether the named conversation field has no typed
// column.
func IsJSONOnlyField(field string) bool {
	return jsonOnlyFields[field]
}
