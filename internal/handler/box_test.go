package handler

import (
    "database/sql"
    "net/http"
    "net/http/httptest"
    "regexp"
    "testing"
    "time"

    sqlmock "github.com/DATA-DOG/go-sqlmock"
    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/printhub/printhub/internal/repository"
    "github.com/printhub/printhub/internal/service"
)

func newBoxHandler(t *testing.T) (*BoxHandler, sqlmock.Sqlmock) {
    t.Helper()
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    t.Cleanup(func() { _ = db.Close() })
    users := repository.NewUserRepo(db)
    boxes := repository.NewBoxRepo(db)
    unlocks := repository.NewUnlockRepo(db)
    return NewBoxHandler(boxes, users, unlocks, service.NewUnlockService(users, boxes, unlocks)), mock
}

// unlockRequest builds an authenticated POST /v1/boxes/:id/unlock
// context the way JWTAuth leaves it: user_id as float64.
func unlockRequest(userID float64, boxID string) (echo.Context, *httptest.ResponseRecorder) {
    e := echo.New()
    req := httptest.NewRequest(http.MethodPost, "/v1/boxes/"+boxID+"/unlock", nil)
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)
    c.SetPath("/v1/boxes/:id/unlock")
    c.SetParamNames("id")
    c.SetParamValues(boxID)
    c.Set("user_id", userID)
    c.Set("role", RoleUser)
    return c, rec
}

func mockUserRow(mock sqlmock.Sqlmock, id uint64) {
    now := time.Now().UTC()
    mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id=?")).
        WithArgs(id).
        WillReturnRows(sqlmock.NewRows([]string{"id", "first_name", "last_name", "username", "email", "password_hash", "role", "created_at", "updated_at"}).
            AddRow(id, "Ada", "Lovelace", "ada", "ada@example.com", "x", "USER", now, now))
}

func mockBoxRow(mock sqlmock.Sqlmock, id uint64) {
    now := time.Now().UTC()
    mock.ExpectQuery(regexp.QuoteMeta("FROM boxes WHERE id=?")).
        WithArgs(id).
        WillReturnRows(sqlmock.NewRows([]string{"id", "name", "location", "physical_id", "is_available", "created_at", "updated_at"}).
            AddRow(id, "Box A", "Lobby", 9001, true, now, now))
}

func TestRequestUnlockUnknownBoxIs404(t *testing.T) {
    h, mock := newBoxHandler(t)
    mockUserRow(mock, 1)
    mock.ExpectQuery(regexp.QuoteMeta("FROM boxes WHERE id=?")).
        WithArgs(uint64(77)).WillReturnError(sql.ErrNoRows)

    c, rec := unlockRequest(1, "77")
    require.NoError(t, h.RequestUnlock(c))
    assert.Equal(t, http.StatusNotFound, rec.Code)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestUnlockWithoutAccessIs403(t *testing.T) {
    h, mock := newBoxHandler(t)
    mockUserRow(mock, 2)
    mockBoxRow(mock, 5)
    mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM box_access")).
        WithArgs(uint64(5), uint64(2)).
        WillReturnError(sql.ErrNoRows)
    mock.ExpectExec(regexp.QuoteMeta("INSERT INTO unlocks")).
        WithArgs(uint64(2), uint64(5), false).
        WillReturnResult(sqlmock.NewResult(9, 1))
    mock.ExpectQuery(regexp.QuoteMeta("FROM unlocks WHERE id=?")).
        WithArgs(int64(9)).
        WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "box_id", "success", "created_at"}).
            AddRow(9, 2, 5, false, time.Now().UTC()))

    c, rec := unlockRequest(2, "5")
    require.NoError(t, h.RequestUnlock(c))
    assert.Equal(t, http.StatusForbidden, rec.Code)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestUnlockTakenBoxIs409(t *testing.T) {
    h, mock := newBoxHandler(t)
    mockUserRow(mock, 1)
    mockBoxRow(mock, 5)
    mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM box_access")).
        WithArgs(uint64(5), uint64(1)).
        WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
    mock.ExpectBegin()
    mock.ExpectExec(regexp.QuoteMeta("UPDATE boxes SET is_available = 0")).
        WithArgs(uint64(5)).
        WillReturnResult(sqlmock.NewResult(0, 0))
    mock.ExpectRollback()

    c, rec := unlockRequest(1, "5")
    require.NoError(t, h.RequestUnlock(c))
    assert.Equal(t, http.StatusConflict, rec.Code)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestUnlockBadIDIs400(t *testing.T) {
    h, mock := newBoxHandler(t)
    c, rec := unlockRequest(1, "abc")
    require.NoError(t, h.RequestUnlock(c))
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetAvailabilityHandler(t *testing.T) {
    h, mock := newBoxHandler(t)
    mock.ExpectExec(regexp.QuoteMeta("UPDATE boxes SET is_available = 1 WHERE id = ?")).
        WithArgs(uint64(5)).
        WillReturnResult(sqlmock.NewResult(0, 1))

    e := echo.New()
    req := httptest.NewRequest(http.MethodPost, "/v1/boxes/5/reset", nil)
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)
    c.SetParamNames("id")
    c.SetParamValues("5")
    require.NoError(t, h.ResetAvailability(c))
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.NoError(t, mock.ExpectationsWereMet())
}
