package model

import "strings"

// ActionOp names the side-effecting operation a menu node triggers when it is
// entered. The set mirrors the operations configured in the menu table.
type ActionOp string

const (
	OpNone                ActionOp = ""
	OpList                ActionOp = "LIST"
	OpPOC                 ActionOp = "POC"
	OpDatesDirect         ActionOp = "FETCH_AVAILABLE_DATES_DIRECT"
	OpDatesFromKind       ActionOp = "FETCH_AVAILABLE_DATES_CHECKUP"
	OpTimesDirect         ActionOp = "FETCH_AVAILABLE_TIMES_DIRECT"
	OpConfirm             ActionOp = "CONFIRM"
	OpPayment             ActionOp = "PAYMENT"
	OpFinalize            ActionOp = "FINALIZE"
	OpAppointments        ActionOp = "FETCH_APPOINTMENT_DETAILS"
	OpFinalizeCancel      ActionOp = "FINALIZE_CANCEL"
	OpAppointmentsResched ActionOp = "FETCH_APPOINTMENT_DETAILS_RESCHEDULE"
	OpRescheduleDate      ActionOp = "RESCHEDULE_DATE"
	OpConfirmReschedule   ActionOp = "CONFIRM_RESCHEDULE"
	OpFinalizeReschedule  ActionOp = "FINALIZE_RESCHEDULE"
)

// Action is the parsed form of a menu node's tilde-delimited action
// descriptor "Field~OP~Arg". Field names the appointment field the user's
// selection is persisted under before the operation runs; Arg is
// operation-specific (a list key, a template name, or a payment variant).
type Action struct {
	Field string
	Op    ActionOp
	Arg   string
}

// IsZero reports whether the node carries no action.
func (a Action) IsZero() bool {
	return a.Field == "" && a.Op == OpNone && a.Arg == ""
}

// ParseAction splits a stored action descriptor into its typed form. Empty
// descriptors yield a zero Action.
func ParseAction(descriptor string) Action {
	if descriptor == "" {
		return Action{}
	}
	parts := strings.Split(descriptor, "~")
	a := Action{Field: parts[0]}
	if len(parts) > 1 {
		a.Op = ActionOp(parts[1])
	}
	if len(parts) > 2 {
		a.Arg = parts[2]
	}
	return a
}

// MenuNode is one level of a client's configurable conversation tree.
// Children of a node are totally ordered by DisplayOrder; ties break on ID.
type MenuNode struct {
	ID            int64  `db:"menu_id" json:"menu_id"`
	ClientID      int64  `db:"client_id" json:"client_id"`
	ParentID      int64  `db:"parent_menu_id" json:"parent_menu_id"`
	DisplayOrder  int    `db:"display_order" json:"display_order"`
	Language      string `db:"language" json:"language"`
	Name          string `db:"menu_name" json:"menu_name"`
	HeaderMessage string `db:"header_message" json:"header_message"`
	RawAction     string `db:"action" json:"action"`

	Action Action `db:"-" json:"-"`
}

// MenuOption is the shared projection every resolver produces: static menu
// children, list values, POC rows, available dates and times all collapse to
// this shape so the dispatcher and the presentation layer never need to tell
// them apart.
type MenuOption struct {
	ClientID int64  `db:"client_id"`
	MenuID   int64  `db:"menu_id"`
	ItemID   string `db:"item_id"`
	Label    string `db:"label"`

	// AppointmentID is set when the option refers to a specific appointment
	// (cancel/reschedule listings); zero otherwise.
	AppointmentID int64 `db:"-"`
}

// Control values a user reply may carry instead of a selection; these skip
// the write-before-read persist step.
const (
	ControlBack       = "Back"
	ControlCancel     = "Cancel Appointment"
	ControlReschedule = "Reschedule"
)

// IsControlValue reports whether the reply text is one of the three control
// values.
func IsControlValue(text string) bool {
	return text == ControlBack || text == ControlCancel || text == ControlReschedule
}
