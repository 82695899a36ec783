package postgres

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meistersol/bookingbot/internal/model"
	"github.com/meistersol/bookingbot/pkg/apperror"
)

func TestChildrenOrdersByDisplayOrder(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &menuRepository{db: db}

	rows := sqlmock.NewRows([]string{
		"menu_id", "client_id", "parent_menu_id", "display_order", "language",
		"menu_name", "header_message", "action",
	}).
		AddRow(11, 3, 10, 1, "en", "Department", "Choose a department", "Department~LIST~DEPARTMENT").
		AddRow(12, 3, 10, 2, "en", "Doctor", "Choose a doctor", "Poc_name~POC~")

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY display_order ASC, menu_id ASC")).
		WithArgs(int64(3), "en", int64(10)).
		WillReturnRows(rows)

	nodes, err := repo.Children(context.Background(), 3, 10, "en")
	require.NoError(t, err)
	require.Len(t, nodes, 2)

	assert.Equal(t, "Department", nodes[0].Name)
	assert.Equal(t, model.OpList, nodes[0].Action.Op)
	assert.Equal(t, "DEPARTMENT", nodes[0].Action.Arg)
	assert.Equal(t, model.OpPOC, nodes[1].Action.Op)
	assert.Equal(t, "Poc_name", nodes[1].Action.Field)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNodeParsesAction(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &menuRepository{db: db}

	rows := sqlmock.NewRows([]string{
		"menu_id", "client_id", "parent_menu_id", "display_order", "language",
		"menu_name", "header_message", "action",
	}).AddRow(14, 3, 13, 1, "en", "Pick a time", "Available times", "Appointment_Time~CONFIRM~APPOINTMENT_SUMMARY")

	mock.ExpectQuery(regexp.QuoteMeta("WHERE client_id = $1 AND language = $2 AND menu_id = $3")).
		WithArgs(int64(3), "en", int64(14)).
		WillReturnRows(rows)

	node, err := repo.Node(context.Background(), 3, 14, "en")
	require.NoError(t, err)
	assert.Equal(t, model.OpConfirm, node.Action.Op)
	assert.Equal(t, "Appointment_Time", node.Action.Field)
	assert.Equal(t, "APPOINTMENT_SUMMARY", node.Action.Arg)
}

func TestNodeNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &menuRepository{db: db}

	mock.ExpectQuery("FROM menus").
		WithArgs(int64(3), "en", int64(999)).
		WillReturnRows(sqlmock.NewRows([]string{"menu_id"}))

	_, err := repo.Node(context.Background(), 3, 999, "en")
	assert.True(t, apperror.IsNotFound(err))
}

func TestListOptionsScopesAndCaps(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &menuRepository{db: db}

	rows := sqlmock.NewRows([]string{"client_id", "menu_id", "item_id", "label"}).
		AddRow(3, 11, "1", "Cardiology").
		AddRow(3, 11, "2", "Dermatology")

	mock.ExpectQuery(regexp.QuoteMeta("LIMIT 10")).
		WithArgs(int64(11), int64(3), "DEPARTMENT", "en").
		WillReturnRows(rows)

	options, err := repo.ListOptions(context.Background(), 3, 11, "DEPARTMENT", "en")
	require.NoError(t, err)
	require.Len(t, options, 2)
	assert.Equal(t, "Cardiology", options[0].Label)
	assert.Equal(t, int64(11), options[0].MenuID)
}

func TestListValueNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &menuRepository{db: db}

	mock.ExpectQuery("FROM list_items").
		WithArgs(int64(3), "GREETINGS", "en").
		WillReturnRows(sqlmock.NewRows([]string{"value_name"}))

	_, err := repo.ListValue(context.Background(), 3, "GREETINGS", "en")
	assert.True(t, apperror.IsNotFound(err))
}
