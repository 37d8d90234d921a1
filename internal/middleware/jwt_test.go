package middleware

import (
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/printhub/printhub/internal/utils"
)

const testSecret = "test-secret"

func runJWT(t *testing.T, authHeader string) (*httptest.ResponseRecorder, echo.Context) {
    t.Helper()
    e := echo.New()
    req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
    if authHeader != "" {
        req.Header.Set("Authorization", authHeader)
    }
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)
    handler := JWTAuth(testSecret)(func(c echo.Context) error {
        return c.NoContent(http.StatusOK)
    })
    require.NoError(t, handler(c))
    return rec, c
}

func TestJWTAuthAcceptsValidToken(t *testing.T) {
    tok, err := utils.NewAccessToken(testSecret, 42, "USER", 5)
    require.NoError(t, err)

    rec, c := runJWT(t, "Bearer "+tok.Token)
    assert.Equal(t, http.StatusOK, rec.Code)
    // Claims round-trip through jwt.MapClaims as float64.
    assert.Equal(t, float64(42), c.Get("user_id"))
    assert.Equal(t, "USER", c.Get("role"))
}

func TestJWTAuthRejectsMissingHeader(t *testing.T) {
    rec, _ := runJWT(t, "")
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthRejectsWrongSecret(t *testing.T) {
    tok, err := utils.NewAccessToken("other-secret", 42, "USER", 5)
    require.NoError(t, err)

    rec, _ := runJWT(t, "Bearer "+tok.Token)
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
    e := echo.New()
    next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
    mw := RequireRole("ADMIN")(next)

    req := httptest.NewRequest(http.MethodGet, "/v1/users", nil)
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)
    c.Set("role", "ADMIN")
    require.NoError(t, mw(c))
    assert.Equal(t, http.StatusOK, rec.Code)

    rec = httptest.NewRecorder()
    c = e.NewContext(req, rec)
    c.Set("role", "USER")
    require.NoError(t, mw(c))
    assert.Equal(t, http.StatusForbidden, rec.Code)

    // Missing role claim is treated the same as a wrong one.
    rec = httptest.NewRecorder()
    c = e.NewContext(req, rec)
    require.NoError(t, mw(c))
    assert.Equal(t, http.StatusForbidden, rec.Code)
}
