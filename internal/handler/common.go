package handler // handler defines http handlers

import (
    "errors"  // errors provides sentinel values used in getUserID
    "strconv" // strconv converts strings to numeric types
    "strings" // strings provides trimming and case helpers

    "github.com/labstack/echo/v4" // echo defines request context types
)

// Role names as stored in users.role and carried in the JWT "role" claim.
const (
    RoleUser  = "USER"
    RoleAdmin = "ADMIN"
)

// getUserID extracts the user_id from echo.Context and converts it to uint64
func getUserID(c echo.Context) (uint64, error) {
    v := c.Get("user_id")
    switch t := v.(type) {
    case uint64:
        return t, nil
    case int:
        return uint64(t), nil
    case int64:
        return uint64(t), nil
    case float64:
        return uint64(t), nil
    case string:
        if n, err := strconv.ParseUint(t, 10, 64); err == nil {
            return n, nil
        }
    }
    return 0, errors.New("invalid user_id in context")
}

// isAdmin reports whether the authenticated caller holds the ADMIN role.
func isAdmin(c echo.Context) bool {
    role, _ := c.Get("role").(string)
    return strings.EqualFold(role, RoleAdmin)
}

// pathID parses a positive numeric path parameter; 0 signals a bad value.
func pathID(c echo.Context, name string) uint64 {
    n, err := strconv.ParseUint(c.Param(name), 10, 64)
    if err != nil {
        return 0
    }
    return n
}
