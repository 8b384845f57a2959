package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tenant-ticketing/internal/model"
)

var eventCols = []string{"id", "tenant_id", "title", "description", "location", "image_url", "category",
	"date", "duration", "reservation_fee", "active", "extra", "created_at"}

func TestFindEvent_NullDateUsesIsNull(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE tenant_id = ? AND title = ? AND date IS NULL")).
		WithArgs("tenant-a", "Jazz Night").
		WillReturnRows(sqlmock.NewRows(eventCols).
			AddRow(int64(5), "tenant-a", "Jazz Night", nil, "Club", nil, nil, nil, nil, 0.0, true, nil, created))

	ev, err := store.FindEvent(context.Background(), "tenant-a", "Jazz Night", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(5), ev.ID)
	assert.Nil(t, ev.Date)
	assert.Equal(t, "Club", ev.Location)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindEvent_MissingIsNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	date := time.Date(2026, 3, 1, 21, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("AND date = ?")).
		WithArgs("tenant-a", "Jazz Night", date).
		WillReturnRows(sqlmock.NewRows(eventCols))

	_, err := store.FindEvent(context.Background(), "tenant-a", "Jazz Night", &date)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListSiblings_OrderedByID(t *testing.T) {
	store, mock := newMockStore(t)
	d := time.Date(2026, 3, 1, 21, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE tenant_id = ? AND title = ? ORDER BY id")).
		WithArgs("tenant-a", "Jazz Night").
		WillReturnRows(sqlmock.NewRows(eventCols).
			AddRow(int64(1), "tenant-a", "Jazz Night", "desc", nil, nil, nil, d, "2h", 10.0, true, []byte(`{"age":18}`), d).
			AddRow(int64(4), "tenant-a", "Jazz Night", "desc", nil, nil, nil, nil, "2h", 10.0, false, nil, d))

	sibs, err := store.ListSiblings(context.Background(), "tenant-a", "Jazz Night")
	require.NoError(t, err)
	require.Len(t, sibs, 2)
	assert.Equal(t, int64(1), sibs[0].ID)
	require.NotNil(t, sibs[0].Date)
	assert.True(t, sibs[0].Date.Equal(d))
	assert.JSONEq(t, `{"age":18}`, string(sibs[0].Extra))
	assert.Nil(t, sibs[1].Date)
	assert.False(t, sibs[1].Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteTicketType_ConflictWhileReserved(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM ticket_types WHERE id = ? AND NOT EXISTS")).
		WithArgs(int64(9), int64(9)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM ticket_types tt WHERE tt.id = ?")).WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "event_id", "name", "price", "stock", "capacity"}).
			AddRow(int64(9), int64(1), "General", 10.0, 3, 5))

	err := store.DeleteTicketType(context.Background(), 9)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTx_RollsBackOnError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM event_instances WHERE id = ?")).
		WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.InTx(context.Background(), func(tx Store) error {
		return tx.DeleteEvent(context.Background(), 3)
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAccount_DuplicateEmail(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO accounts")).
		WithArgs(sqlmock.AnyArg(), "owner@example.com", "hash").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err := store.CreateAccount(context.Background(), &model.Account{Email: " Owner@Example.com ", PasswordHash: "hash"})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}
