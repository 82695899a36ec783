package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meistersol/bookingbot/internal/model"
	"github.com/meistersol/bookingbot/pkg/apperror"
)

func TestCreateReturnsNewID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &appointmentRepository{db: db}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO appointments")).
		WithArgs(int64(3), int64(21), model.AppointmentStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"appointment_id"}).AddRow(99))

	id, err := repo.Create(context.Background(), 3, 21)
	require.NoError(t, err)
	assert.Equal(t, int64(99), id)
}

func TestPatchFieldTypedColumnAndJSONTogether(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &appointmentRepository{db: db}

	// One statement carries both the typed column and the jsonb mirror.
	mock.ExpectExec(`UPDATE appointments\s+SET appointment_date = \$1,\s+state = jsonb_set`).
		WithArgs("2026-09-15", "Appointment_Date", []byte(`"2026-09-15"`), int64(99), model.AppointmentStatusRescheduled).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.PatchField(context.Background(), 99, "Appointment_Date", "2026-09-15", "")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPatchFieldJSONOnly(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &appointmentRepository{db: db}

	mock.ExpectExec(regexp.QuoteMeta("SET state = jsonb_set")).
		WithArgs("Department", []byte(`"Cardiology"`), int64(99), model.AppointmentStatusRescheduled).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.PatchField(context.Background(), 99, "Department", "Cardiology", "")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPatchFieldBranchStoredAsNumber(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &appointmentRepository{db: db}

	mock.ExpectExec(regexp.QuoteMeta("SET state = jsonb_set")).
		WithArgs("Branch", []byte(`2`), int64(99), model.AppointmentStatusRescheduled).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.PatchField(context.Background(), 99, "Branch", "2", "")
	require.NoError(t, err)
}

func TestPatchFieldPOCSetsIDAndName(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &appointmentRepository{db: db}

	mock.ExpectExec(regexp.QuoteMeta("SET poc_id = $1")).
		WithArgs(int64(7), "Dr. Rao", int64(99), model.AppointmentStatusRescheduled).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.PatchField(context.Background(), 99, "Poc_name", "Dr. Rao", "7")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPatchFieldRejectsBadPOCID(t *testing.T) {
	db, _ := newMockDB(t)
	repo := &appointmentRepository{db: db}

	err := repo.PatchField(context.Background(), 99, "Poc_name", "Dr. Rao", "not-a-number")
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestPatchFieldUnknownField(t *testing.T) {
	db, _ := newMockDB(t)
	repo := &appointmentRepository{db: db}

	err := repo.PatchField(context.Background(), 99, "Shoe_Size", "42", "")
	assert.Error(t, err)
}

func TestSetStatusInactiveNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &appointmentRepository{db: db}

	mock.ExpectExec(regexp.QuoteMeta("is_active = FALSE")).
		WithArgs(model.AppointmentStatusCancelled, int64(404)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetStatusInactive(context.Background(), 404, model.AppointmentStatusCancelled)
	assert.True(t, apperror.IsNotFound(err))
}

func TestStateDecodesSnapshot(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &appointmentRepository{db: db}

	raw := `{"Department":"Cardiology","Poc_ID":7,"Appointment_Date":"2026-09-15","Slot_Consumed":true}`
	mock.ExpectQuery(regexp.QuoteMeta("SELECT state FROM appointments")).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"state"}).AddRow([]byte(raw)))

	state, err := repo.State(context.Background(), 99)
	require.NoError(t, err)
	assert.Equal(t, "Cardiology", state.Department)
	assert.Equal(t, int64(7), state.POCID)
	assert.True(t, state.SlotConsumed)
	assert.False(t, state.SlotReleased)
}

func TestActiveForUserExcludesEmergency(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &appointmentRepository{db: db}

	mock.ExpectQuery(`appointment_type <> \$3`).
		WillReturnRows(sqlmock.NewRows([]string{
			"appointment_id", "client_id", "user_id", "poc_id",
			"appointment_date", "appointment_time", "appointment_type",
			"status", "is_active", "payment_status", "state", "created_at", "updated_at",
		}))

	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	appts, err := repo.ActiveForUser(context.Background(), 21, now)
	require.NoError(t, err)
	assert.Empty(t, appts)
	assert.NoError(t, mock.ExpectationsWereMet())
}
