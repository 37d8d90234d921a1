package repository

import (
    "context"
    "regexp"
    "testing"
    "time"

    sqlmock "github.com/DATA-DOG/go-sqlmock"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func newPrintModelRepo(t *testing.T) (*PrintModelRepo, sqlmock.Sqlmock) {
    t.Helper()
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    t.Cleanup(func() { _ = db.Close() })
    return NewPrintModelRepo(db), mock
}

// Timestamps come out formatted the same way as every other repo:
// UTC RFC3339, regardless of the driver's time zone.
func TestPrintModelCreatedAtIsRFC3339(t *testing.T) {
    repo, mock := newPrintModelRepo(t)
    loc := time.FixedZone("UTC+2", 2*60*60)
    created := time.Date(2026, 5, 4, 14, 30, 0, 0, loc)

    mock.ExpectQuery(regexp.QuoteMeta("FROM print_models WHERE id=?")).
        WithArgs(uint64(3)).
        WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "price_cents", "estimated_print_min", "created_by", "created_at"}).
            AddRow(3, "Benchy", "calibration boat", 1500, 90, nil, created))
    mock.ExpectQuery(regexp.QuoteMeta("SELECT url FROM print_model_images")).
        WithArgs(uint64(3)).
        WillReturnRows(sqlmock.NewRows([]string{"url"}))

    det, err := repo.GetByID(context.Background(), 3)
    require.NoError(t, err)
    assert.Equal(t, "2026-05-04T12:30:00Z", det.CreatedAt)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPrintModelListFormatsCreatedAt(t *testing.T) {
    repo, mock := newPrintModelRepo(t)
    created := time.Date(2026, 5, 4, 12, 30, 0, 0, time.UTC)

    mock.ExpectQuery(regexp.QuoteMeta("FROM print_models ORDER BY created_at DESC")).
        WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "price_cents", "estimated_print_min", "created_by", "created_at"}).
            AddRow(3, "Benchy", "", 1500, 90, 2, created))
    mock.ExpectQuery(regexp.QuoteMeta("SELECT model_id, url FROM print_model_images")).
        WithArgs(uint64(3)).
        WillReturnRows(sqlmock.NewRows([]string{"model_id", "url"}).AddRow(3, "https://cdn.example.com/benchy.png"))

    details, err := repo.List(context.Background())
    require.NoError(t, err)
    require.Len(t, details, 1)
    assert.Equal(t, "2026-05-04T12:30:00Z", details[0].CreatedAt)
    assert.Equal(t, []string{"https://cdn.example.com/benchy.png"}, details[0].Images)
    assert.NoError(t, mock.ExpectationsWereMet())
}
