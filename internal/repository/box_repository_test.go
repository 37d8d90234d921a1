package repository

import (
    "context"
    "database/sql"
    "errors"
    "regexp"
    "testing"
    "time"

    sqlmock "github.com/DATA-DOG/go-sqlmock"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func newBoxRepo(t *testing.T) (*BoxRepo, sqlmock.Sqlmock) {
    t.Helper()
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    t.Cleanup(func() { _ = db.Close() })
    return NewBoxRepo(db), mock
}

func beginTx(t *testing.T, r *BoxRepo, mock sqlmock.Sqlmock) *sql.Tx {
    t.Helper()
    mock.ExpectBegin()
    tx, err := r.DB().BeginTx(context.Background(), nil)
    require.NoError(t, err)
    return tx
}

func TestMarkUnavailableTxWins(t *testing.T) {
    r, mock := newBoxRepo(t)
    tx := beginTx(t, r, mock)
    mock.ExpectExec(regexp.QuoteMeta("UPDATE boxes SET is_available = 0 WHERE id = ? AND is_available = 1")).
        WithArgs(uint64(3)).
        WillReturnResult(sqlmock.NewResult(0, 1))

    assert.NoError(t, r.MarkUnavailableTx(context.Background(), tx, 3))
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkUnavailableTxLoses(t *testing.T) {
    r, mock := newBoxRepo(t)
    tx := beginTx(t, r, mock)
    mock.ExpectExec(regexp.QuoteMeta("UPDATE boxes SET is_available = 0")).
        WithArgs(uint64(3)).
        WillReturnResult(sqlmock.NewResult(0, 0))

    err := r.MarkUnavailableTx(context.Background(), tx, 3)
    assert.ErrorIs(t, err, ErrBoxUnavailable)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBoxDuplicatePhysicalID(t *testing.T) {
    r, mock := newBoxRepo(t)
    mock.ExpectExec(regexp.QuoteMeta("INSERT INTO boxes")).
        WithArgs("Box A", "Lobby", uint64(9001)).
        WillReturnError(errors.New("Error 1062: Duplicate entry '9001' for key 'boxes.physical_id'"))

    _, err := r.Create(context.Background(), "Box A", "Lobby", 9001)
    assert.ErrorIs(t, err, ErrConflict)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetAvailabilityMissingBox(t *testing.T) {
    r, mock := newBoxRepo(t)
    mock.ExpectExec(regexp.QuoteMeta("UPDATE boxes SET is_available = 1 WHERE id = ?")).
        WithArgs(uint64(404)).
        WillReturnResult(sqlmock.NewResult(0, 0))

    err := r.ResetAvailability(context.Background(), 404)
    assert.ErrorIs(t, err, sql.ErrNoRows)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHasAccess(t *testing.T) {
    r, mock := newBoxRepo(t)
    mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM box_access WHERE box_id=? AND user_id=?")).
        WithArgs(uint64(3), uint64(1)).
        WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
    ok, err := r.HasAccess(context.Background(), 3, 1)
    require.NoError(t, err)
    assert.True(t, ok)

    mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM box_access")).
        WithArgs(uint64(3), uint64(2)).
        WillReturnError(sql.ErrNoRows)
    ok, err = r.HasAccess(context.Background(), 3, 2)
    require.NoError(t, err)
    assert.False(t, ok)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrantAccessTwice(t *testing.T) {
    r, mock := newBoxRepo(t)
    mock.ExpectExec(regexp.QuoteMeta("INSERT INTO box_access (box_id, user_id) VALUES (?,?)")).
        WithArgs(uint64(3), uint64(1)).
        WillReturnError(errors.New("Error 1062: Duplicate entry '3-1' for key 'box_access.PRIMARY'"))

    err := r.GrantAccess(context.Background(), 3, 1)
    assert.ErrorIs(t, err, ErrAlreadyAuthorized)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateBoxCannotTouchAvailability(t *testing.T) {
    r, mock := newBoxRepo(t)
    name := "Renamed"
    mock.ExpectExec(regexp.QuoteMeta("UPDATE boxes SET name=? WHERE id=?")).
        WithArgs(name, uint64(3)).
        WillReturnResult(sqlmock.NewResult(0, 1))

    require.NoError(t, r.Update(context.Background(), 3, BoxUpdate{Name: &name}))
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListForUser(t *testing.T) {
    r, mock := newBoxRepo(t)
    now := time.Now().UTC()
    rows := sqlmock.NewRows([]string{"id", "name", "location", "physical_id", "is_available", "created_at", "updated_at"}).
        AddRow(1, "Box A", "Lobby", 9001, true, now, now).
        AddRow(2, "Box B", "Floor 2", 9002, false, now, now)
    mock.ExpectQuery("JOIN box_access").
        WithArgs(uint64(7)).
        WillReturnRows(rows)

    boxes, err := r.ListForUser(context.Background(), 7)
    require.NoError(t, err)
    require.Len(t, boxes, 2)
    assert.Equal(t, "Box B", boxes[1].Name)
    assert.False(t, boxes[1].IsAvailable)
    assert.NoError(t, mock.ExpectationsWereMet())
}
