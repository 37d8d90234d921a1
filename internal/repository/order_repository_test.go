package repository

import (
    "context"
    "regexp"
    "testing"
    "time"

    sqlmock "github.com/DATA-DOG/go-sqlmock"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/printhub/printhub/internal/model"
)

func newOrderRepo(t *testing.T) (*OrderRepo, sqlmock.Sqlmock) {
    t.Helper()
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    t.Cleanup(func() { _ = db.Close() })
    return NewOrderRepo(db), mock
}

func TestCancelOwnPrintingOrder(t *testing.T) {
    r, mock := newOrderRepo(t)
    started := time.Now().UTC().Add(-time.Minute)

    mock.ExpectBegin()
    mock.ExpectQuery(regexp.QuoteMeta("SELECT user_id, status, started_printing_at FROM orders WHERE id=? FOR UPDATE")).
        WithArgs(uint64(10)).
        WillReturnRows(sqlmock.NewRows([]string{"user_id", "status", "started_printing_at"}).
            AddRow(1, model.OrderPrinting, started))
    mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status=?, completed_at=UTC_TIMESTAMP() WHERE id=?")).
        WithArgs(model.OrderCancelled, uint64(10)).
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectCommit()

    require.NoError(t, r.Cancel(context.Background(), 10, 1))
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelSomeoneElsesOrder(t *testing.T) {
    r, mock := newOrderRepo(t)

    mock.ExpectBegin()
    mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
        WithArgs(uint64(10)).
        WillReturnRows(sqlmock.NewRows([]string{"user_id", "status", "started_printing_at"}).
            AddRow(2, model.OrderPrinting, nil))
    mock.ExpectRollback()

    err := r.Cancel(context.Background(), 10, 1)
    assert.ErrorIs(t, err, ErrForbidden)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelCompletedOrder(t *testing.T) {
    r, mock := newOrderRepo(t)

    mock.ExpectBegin()
    mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
        WithArgs(uint64(10)).
        WillReturnRows(sqlmock.NewRows([]string{"user_id", "status", "started_printing_at"}).
            AddRow(1, model.OrderReady, time.Now().UTC()))
    mock.ExpectRollback()

    err := r.Cancel(context.Background(), 10, 1)
    assert.ErrorIs(t, err, ErrConflict)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkReadyTxIsIdempotent(t *testing.T) {
    r, mock := newOrderRepo(t)

    mock.ExpectBegin()
    tx, err := r.DB().BeginTx(context.Background(), nil)
    require.NoError(t, err)

    // Second refresh finds the status predicate no longer matching.
    mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status=?, completed_at=UTC_TIMESTAMP() WHERE id=? AND status=?")).
        WithArgs(model.OrderReady, uint64(10), model.OrderPrinting).
        WillReturnResult(sqlmock.NewResult(0, 0))

    flipped, err := r.MarkReadyTx(context.Background(), tx, 10)
    require.NoError(t, err)
    assert.False(t, flipped)
    assert.NoError(t, mock.ExpectationsWereMet())
}
