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

func newUserRepo(t *testing.T) (*UserRepo, sqlmock.Sqlmock) {
    t.Helper()
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    t.Cleanup(func() { _ = db.Close() })
    return NewUserRepo(db), mock
}

func TestCreateUserNormalizesAndHashes(t *testing.T) {
    r, mock := newUserRepo(t)
    mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
        WithArgs("Ada", "Lovelace", "ada", "ada@example.com", sqlmock.AnyArg(), "USER").
        WillReturnResult(sqlmock.NewResult(1, 1))

    id, err := r.Create(context.Background(), "Ada", "Lovelace", "  ADA ", " Ada@Example.COM ", "hunter22", "USER", 4)
    require.NoError(t, err)
    assert.Equal(t, uint64(1), id)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserDuplicateEmail(t *testing.T) {
    r, mock := newUserRepo(t)
    mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
        WillReturnError(errors.New("Error 1062: Duplicate entry 'ada@example.com' for key 'users.email'"))

    _, err := r.Create(context.Background(), "Ada", "Lovelace", "ada2", "ada@example.com", "hunter22", "USER", 4)
    assert.ErrorIs(t, err, ErrEmailExists)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserDuplicateUsername(t *testing.T) {
    r, mock := newUserRepo(t)
    mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
        WillReturnError(errors.New("Error 1062: Duplicate entry 'ada' for key 'users.username'"))

    _, err := r.Create(context.Background(), "Ada", "Lovelace", "ada", "other@example.com", "hunter22", "USER", 4)
    assert.ErrorIs(t, err, ErrUsernameExists)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateUserMissing(t *testing.T) {
    r, mock := newUserRepo(t)
    email := "new@example.com"
    mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET email=? WHERE id=?")).
        WithArgs(email, uint64(404)).
        WillReturnResult(sqlmock.NewResult(0, 0))

    err := r.Update(context.Background(), 404, UserUpdate{Email: &email}, 4)
    assert.ErrorIs(t, err, sql.ErrNoRows)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateRefreshRejectsRevokedAndExpired(t *testing.T) {
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    t.Cleanup(func() { _ = db.Close() })
    r := NewTokenRepo(db)
    now := time.Now().UTC()

    // Revoked token.
    mock.ExpectQuery(regexp.QuoteMeta("FROM refresh_tokens WHERE token_hash=?")).
        WithArgs("hash-a").
        WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at", "revoked_at"}).
            AddRow(1, now.Add(time.Hour), now.Add(-time.Minute)))
    _, err = r.ValidateRefresh(context.Background(), "hash-a")
    assert.ErrorIs(t, err, sql.ErrNoRows)

    // Expired token.
    mock.ExpectQuery(regexp.QuoteMeta("FROM refresh_tokens WHERE token_hash=?")).
        WithArgs("hash-b").
        WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at", "revoked_at"}).
            AddRow(1, now.Add(-time.Hour), nil))
    _, err = r.ValidateRefresh(context.Background(), "hash-b")
    assert.ErrorIs(t, err, sql.ErrNoRows)

    // Live token.
    mock.ExpectQuery(regexp.QuoteMeta("FROM refresh_tokens WHERE token_hash=?")).
        WithArgs("hash-c").
        WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at", "revoked_at"}).
            AddRow(7, now.Add(time.Hour), nil))
    uid, err := r.ValidateRefresh(context.Background(), "hash-c")
    require.NoError(t, err)
    assert.Equal(t, uint64(7), uid)
    assert.NoError(t, mock.ExpectationsWereMet())
}
