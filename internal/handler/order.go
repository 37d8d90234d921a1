package handler

import (
    "database/sql"
    "errors"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/printhub/printhub/internal/model"
    "github.com/printhub/printhub/internal/repository"
    "github.com/printhub/printhub/internal/service"
)

// OrderHandler serves the order endpoints. Reads pass through
// service.OrderService.Refresh first so a printing order whose
// estimated time has elapsed shows up as READY without a background
// scheduler.
type OrderHandler struct {
    Orders  *repository.OrderRepo
    Models  *repository.PrintModelRepo
    Boxes   *repository.BoxRepo
    Service *service.OrderService
}

// NewOrderHandler constructs an OrderHandler.
func NewOrderHandler(orders *repository.OrderRepo, models *repository.PrintModelRepo, boxes *repository.BoxRepo, svc *service.OrderService) *OrderHandler {
    if orders == nil || models == nil || boxes == nil || svc == nil {
        panic("nil dependency passed to NewOrderHandler")
    }
    return &OrderHandler{Orders: orders, Models: models, Boxes: boxes, Service: svc}
}

// Create handles POST /v1/orders. New orders go straight to PRINTING
// with started_printing_at stamped server-side.
func (h *OrderHandler) Create(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var body struct {
        ModelID uint64  `json:"model_id"`
        BoxID   *uint64 `json:"box_id"`
    }
    if err := c.Bind(&body); err != nil || body.ModelID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "model_id is required"})
    }
    ctx := c.Request().Context()
    if _, err := h.Models.GetByID(ctx, body.ModelID); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "model not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load model"})
    }
    if body.BoxID != nil {
        if _, err := h.Boxes.GetByID(ctx, *body.BoxID); err != nil {
            if errors.Is(err, sql.ErrNoRows) {
                return c.JSON(http.StatusNotFound, echo.Map{"error": "box not found"})
            }
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load box"})
        }
    }
    id, err := h.Orders.Create(ctx, body.ModelID, userID, body.BoxID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create order"})
    }
    det, err := h.Orders.GetDetail(ctx, id)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load order"})
    }
    return c.JSON(http.StatusCreated, echo.Map{"order": det})
}

// ListMine handles GET /v1/my/orders.
func (h *OrderHandler) ListMine(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    ctx := c.Request().Context()
    details, err := h.Orders.ListByUser(ctx, userID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load orders"})
    }
    h.Service.RefreshAll(ctx, details)
    details, err = h.Orders.ListByUser(ctx, userID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load orders"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": details})
}

// Show handles GET /v1/orders/:id. Owners see their own orders;
// admins see everything.
func (h *OrderHandler) Show(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id := pathID(c, "id")
    if id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
    }
    ctx := c.Request().Context()
    if err := h.Service.Refresh(ctx, id); err != nil && !errors.Is(err, sql.ErrNoRows) {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to refresh order"})
    }
    det, err := h.Orders.GetDetail(ctx, id)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load order"})
    }
    if det.UserID != userID && !isAdmin(c) {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "not your order"})
    }
    return c.JSON(http.StatusOK, echo.Map{"order": det})
}

// Cancel handles POST /v1/orders/:id/cancel. Only the orderer may
// cancel, and only while the order is still PENDING or PRINTING.
func (h *OrderHandler) Cancel(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id := pathID(c, "id")
    if id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
    }
    ctx := c.Request().Context()
    if err := h.Orders.Cancel(ctx, id, userID); err != nil {
        switch {
        case errors.Is(err, sql.ErrNoRows):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
        case errors.Is(err, repository.ErrForbidden):
            return c.JSON(http.StatusForbidden, echo.Map{"error": "not your order"})
        case errors.Is(err, repository.ErrConflict):
            return c.JSON(http.StatusConflict, echo.Map{"error": "order can no longer be cancelled"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to cancel order"})
    }
    det, err := h.Orders.GetDetail(ctx, id)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load order"})
    }
    return c.JSON(http.StatusOK, echo.Map{"order": det})
}

// ListAll handles GET /v1/orders (admin).
func (h *OrderHandler) ListAll(c echo.Context) error {
    ctx := c.Request().Context()
    details, err := h.Orders.List(ctx)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load orders"})
    }
    h.Service.RefreshAll(ctx, details)
    details, err = h.Orders.List(ctx)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load orders"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": details})
}

// AdminUpdate handles PATCH /v1/orders/:id (admin). The status must
// be a known one and referenced models and boxes must exist. Moving
// an order to READY requires an assigned box; the access grant
// happens in the same transaction inside the service.
func (h *OrderHandler) AdminUpdate(c echo.Context) error {
    id := pathID(c, "id")
    if id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
    }
    var body struct {
        ModelID *uint64 `json:"model_id"`
        BoxID   *uint64 `json:"box_id"`
        Status  *string `json:"status"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.Status != nil {
        st := strings.ToUpper(strings.TrimSpace(*body.Status))
        switch st {
        case model.OrderPending, model.OrderPrinting, model.OrderReady, model.OrderCancelled:
            body.Status = &st
        default:
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown order status"})
        }
    }
    ctx := c.Request().Context()
    if body.ModelID != nil {
        if _, err := h.Models.GetByID(ctx, *body.ModelID); err != nil {
            if errors.Is(err, sql.ErrNoRows) {
                return c.JSON(http.StatusNotFound, echo.Map{"error": "model not found"})
            }
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load model"})
        }
    }
    if body.BoxID != nil {
        if _, err := h.Boxes.GetByID(ctx, *body.BoxID); err != nil {
            if errors.Is(err, sql.ErrNoRows) {
                return c.JSON(http.StatusNotFound, echo.Map{"error": "box not found"})
            }
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load box"})
        }
    }
    upd := repository.OrderUpdate{ModelID: body.ModelID, BoxID: body.BoxID, Status: body.Status}
    if err := h.Service.AdminUpdate(ctx, id, upd); err != nil {
        switch {
        case errors.Is(err, sql.ErrNoRows):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
        case errors.Is(err, repository.ErrConflict):
            return c.JSON(http.StatusConflict, echo.Map{"error": "a READY order needs an assigned box"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update order"})
    }
    det, err := h.Orders.GetDetail(ctx, id)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load order"})
    }
    return c.JSON(http.StatusOK, echo.Map{"order": det})
}

// Delete handles DELETE /v1/orders/:id (admin).
func (h *OrderHandler) Delete(c echo.Context) error {
    id := pathID(c, "id")
    if id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
    }
    if err := h.Orders.Delete(c.Request().Context(), id); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete order"})
    }
    return c.NoContent(http.StatusNoContent)
}
