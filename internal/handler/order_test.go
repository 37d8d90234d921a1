package handler

import (
    "database/sql"
    "net/http"
    "net/http/httptest"
    "regexp"
    "strings"
    "testing"

    sqlmock "github.com/DATA-DOG/go-sqlmock"
    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/printhub/printhub/internal/repository"
    "github.com/printhub/printhub/internal/service"
)

func newOrderHandler(t *testing.T) (*OrderHandler, sqlmock.Sqlmock) {
    t.Helper()
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    t.Cleanup(func() { _ = db.Close() })
    orders := repository.NewOrderRepo(db)
    models := repository.NewPrintModelRepo(db)
    boxes := repository.NewBoxRepo(db)
    return NewOrderHandler(orders, models, boxes, service.NewOrderService(orders, boxes)), mock
}

func adminOrderUpdate(orderID, body string) (echo.Context, *httptest.ResponseRecorder) {
    e := echo.New()
    req := httptest.NewRequest(http.MethodPatch, "/v1/orders/"+orderID, strings.NewReader(body))
    req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)
    c.SetPath("/v1/orders/:id")
    c.SetParamNames("id")
    c.SetParamValues(orderID)
    c.Set("user_id", float64(1))
    c.Set("role", RoleAdmin)
    return c, rec
}

func TestAdminUpdateRejectsUnknownStatus(t *testing.T) {
    h, mock := newOrderHandler(t)
    c, rec := adminOrderUpdate("4", `{"status":"SHIPPED"}`)
    require.NoError(t, h.AdminUpdate(c))
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminUpdateUnknownModelIs404(t *testing.T) {
    h, mock := newOrderHandler(t)
    mock.ExpectQuery(regexp.QuoteMeta("FROM print_models WHERE id=?")).
        WithArgs(uint64(99)).WillReturnError(sql.ErrNoRows)

    c, rec := adminOrderUpdate("4", `{"model_id":99}`)
    require.NoError(t, h.AdminUpdate(c))
    assert.Equal(t, http.StatusNotFound, rec.Code)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminUpdateUnknownBoxIs404(t *testing.T) {
    h, mock := newOrderHandler(t)
    mock.ExpectQuery(regexp.QuoteMeta("FROM boxes WHERE id=?")).
        WithArgs(uint64(42)).WillReturnError(sql.ErrNoRows)

    c, rec := adminOrderUpdate("4", `{"box_id":42,"status":"ready"}`)
    require.NoError(t, h.AdminUpdate(c))
    assert.Equal(t, http.StatusNotFound, rec.Code)
    assert.NoError(t, mock.ExpectationsWereMet())
}
