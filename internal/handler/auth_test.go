package handler

import (
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "regexp"
    "strings"
    "testing"
    "time"

    sqlmock "github.com/DATA-DOG/go-sqlmock"
    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/printhub/printhub/internal/config"
    "github.com/printhub/printhub/internal/repository"
    "github.com/printhub/printhub/internal/utils"
)

func newAuthHandler(t *testing.T) (*AuthHandler, sqlmock.Sqlmock) {
    t.Helper()
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    t.Cleanup(func() { _ = db.Close() })
    cfg := config.Config{JWTSecret: "test-secret", AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: 4}
    return NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db)), mock
}

func refreshRequest(raw string) (echo.Context, *httptest.ResponseRecorder) {
    e := echo.New()
    req := httptest.NewRequest(http.MethodPost, "/v1/auth/refresh", strings.NewReader(`{"refresh_token":"`+raw+`"}`))
    req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    rec := httptest.NewRecorder()
    return e.NewContext(req, rec), rec
}

// A presented refresh token must be revoked before the replacement
// pair is stored. The expectations are ordered, so dropping the
// revoke or reordering it after the insert fails the test.
func TestRefreshRotatesPresentedToken(t *testing.T) {
    h, mock := newAuthHandler(t)
    raw := "old-refresh-token"
    hash := utils.HashRefreshRaw(raw)
    future := time.Now().UTC().Add(24 * time.Hour)

    mock.ExpectQuery(regexp.QuoteMeta("SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=?")).
        WithArgs(hash).
        WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at", "revoked_at"}).
            AddRow(7, future, nil))
    mockUserRow(mock, 7)
    mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens SET revoked_at=NOW() WHERE token_hash=? AND revoked_at IS NULL")).
        WithArgs(hash).
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectExec(regexp.QuoteMeta("INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)")).
        WithArgs(uint64(7), sqlmock.AnyArg(), sqlmock.AnyArg()).
        WillReturnResult(sqlmock.NewResult(1, 1))

    c, rec := refreshRequest(raw)
    require.NoError(t, h.Refresh(c))
    assert.Equal(t, http.StatusOK, rec.Code)

    var resp authResp
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
    assert.NotEmpty(t, resp.Access.Token)
    assert.NotEmpty(t, resp.Refresh.Token)
    assert.NotEqual(t, raw, resp.Refresh.Token)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshRejectsRevokedToken(t *testing.T) {
    h, mock := newAuthHandler(t)
    raw := "revoked-refresh-token"
    now := time.Now().UTC()

    mock.ExpectQuery(regexp.QuoteMeta("SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=?")).
        WithArgs(utils.HashRefreshRaw(raw)).
        WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at", "revoked_at"}).
            AddRow(7, now.Add(24*time.Hour), now))

    c, rec := refreshRequest(raw)
    require.NoError(t, h.Refresh(c))
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
    assert.NoError(t, mock.ExpectationsWereMet())
}
