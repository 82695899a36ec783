package repository

import (
	"context"
	"time"

	"github.com/meistersol/bookingbot/internal/model"
)

// All repository interfaces in one file
type (
	// ClientRepository resolves tenants.
	ClientRepository interface {
		GetByContactNumber(ctx context.Context, number string) (*model.Client, error)
		Get(ctx context.Context, id int64) (*model.Client, error)
	}

	// UserRepository handles end-customer records.
	UserRepository interface {
		GetByContact(ctx context.Context, contact string) (*model.User, error)
		Get(ctx context.Context, id int64) (*model.User, error)
		Create(ctx context.Context, contact string, clientID int64) error
		UpdateField(ctx context.Context, contact, field, value string) error
	}

	// MenuRepository reads the configurable conversation tree and the
	// client-scoped list values.
	MenuRepository interface {
		Node(ctx context.Context, clientID, menuID int64, language string) (*model.MenuNode, error)
		Children(ctx context.Context, clientID, parentID int64, language string) ([]*model.MenuNode, error)
		ListOptions(ctx context.Context, clientID, menuID int64, key, language string) ([]model.MenuOption, error)
		ListValue(ctx context.Context, clientID int64, key, language string) (string, error)
	}

	// POCRepository reads bookable points of contact.
	POCRepository interface {
		Get(ctx context.Context, id int64) (*model.POC, error)
		Options(ctx context.Context, clientID, menuID int64, department string, branch int64) ([]model.MenuOption, error)
		FirstBySpecialization(ctx context.Context, clientID int64, specialization string) (*model.POC, error)
	}

	// SlotRepository is the slot ledger plus its availability projections.
	// Reserve is a single atomic conditional decrement; Release increments
	// unconditionally and is guarded at call sites.
	SlotRepository interface {
		AvailableDates(ctx context.Context, clientID, menuID, pocID int64, now time.Time) ([]model.MenuOption, error)
		AvailableTimes(ctx context.Context, clientID, menuID, pocID int64, date string, now time.Time) ([]model.MenuOption, error)
		Reserve(ctx context.Context, pocID int64, date, startTime string) (bool, error)
		Release(ctx context.Context, pocID int64, date, startTime string) error
	}

	// AppointmentRepository stores booking attempts. PatchField applies the
	// typed column and the JSON mirror in one statement.
	AppointmentRepository interface {
		Create(ctx context.Context, clientID, userID int64) (int64, error)
		Get(ctx context.Context, id int64) (*model.Appointment, error)
		PatchField(ctx context.Context, id int64, field, value, selectID string) error
		PatchJSON(ctx context.Context, id int64, key string, value interface{}) error
		SetStatusInactive(ctx context.Context, id int64, status model.AppointmentStatus) error
		State(ctx context.Context, id int64) (model.AppointmentState, error)
		ActiveForUser(ctx context.Context, userID int64, now time.Time) ([]*model.Appointment, error)
	}

	// TemplateRepository reads persisted message templates.
	TemplateRepository interface {
		Get(ctx context.Context, clientID int64, name string) (string, error)
	}

	// TransactionRepository stores payment attempts.
	TransactionRepository interface {
		Create(ctx context.Context, appointmentID int64, gatewayID string, expiresAt time.Time) error
		GetByGatewayID(ctx context.Context, gatewayID string) (*model.Transaction, error)
		UpdateStatus(ctx context.Context, gatewayID string, status model.TransactionStatus) error
		UpdateStatusIf(ctx context.Context, gatewayID string, from, to model.TransactionStatus) (bool, error)
		SetPaymentID(ctx context.Context, gatewayID, paymentID string) error
		ListPending(ctx context.Context) ([]*model.Transaction, error)
	}
)
