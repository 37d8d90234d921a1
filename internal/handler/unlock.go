package handler

import (
    "database/sql"
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/printhub/printhub/internal/repository"
)

// UnlockHandler serves the admin view of the unlock ledger. Ledger
// rows are append-only from the application's point of view; the only
// mutation offered here is deletion for data retention.
type UnlockHandler struct {
    Unlocks *repository.UnlockRepo
}

// NewUnlockHandler constructs an UnlockHandler.
func NewUnlockHandler(unlocks *repository.UnlockRepo) *UnlockHandler {
    if unlocks == nil {
        panic("nil repository passed to NewUnlockHandler")
    }
    return &UnlockHandler{Unlocks: unlocks}
}

// List handles GET /v1/unlocks (admin): the full ledger, newest first.
func (h *UnlockHandler) List(c echo.Context) error {
    unlocks, err := h.Unlocks.List(c.Request().Context())
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load unlocks"})
    }
    items := make([]unlockPart, 0, len(unlocks))
    for _, u := range unlocks {
        items = append(items, toUnlockPart(u))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Show handles GET /v1/unlocks/:id (admin).
func (h *UnlockHandler) Show(c echo.Context) error {
    id := pathID(c, "id")
    if id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid unlock id"})
    }
    u, err := h.Unlocks.GetByID(c.Request().Context(), id)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "unlock not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load unlock"})
    }
    return c.JSON(http.StatusOK, echo.Map{"unlock": toUnlockPart(u)})
}

// Delete handles DELETE /v1/unlocks/:id (admin).
func (h *UnlockHandler) Delete(c echo.Context) error {
    id := pathID(c, "id")
    if id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid unlock id"})
    }
    if err := h.Unlocks.Delete(c.Request().Context(), id); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "unlock not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete unlock"})
    }
    return c.NoContent(http.StatusNoContent)
}
