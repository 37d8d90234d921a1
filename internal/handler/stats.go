package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/printhub/printhub/internal/repository"
)

// StatsHandler serves the admin dashboard aggregates.
type StatsHandler struct {
    Stats *repository.StatsRepo
}

// NewStatsHandler constructs a StatsHandler.
func NewStatsHandler(stats *repository.StatsRepo) *StatsHandler {
    if stats == nil {
        panic("nil repository passed to NewStatsHandler")
    }
    return &StatsHandler{Stats: stats}
}

// Overview handles GET /v1/stats/overview (admin).
func (h *StatsHandler) Overview(c echo.Context) error {
    o, err := h.Stats.GetOverview(c.Request().Context())
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to compute overview"})
    }
    return c.JSON(http.StatusOK, o)
}

// TopModels handles GET /v1/stats/top-models (admin): the five most
// ordered models.
func (h *StatsHandler) TopModels(c echo.Context) error {
    items, err := h.Stats.TopModels(c.Request().Context(), 5)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to compute top models"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// RecentOrders handles GET /v1/stats/recent-orders (admin): the five
// latest orders.
func (h *StatsHandler) RecentOrders(c echo.Context) error {
    items, err := h.Stats.RecentOrders(c.Request().Context(), 5)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to compute recent orders"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}
