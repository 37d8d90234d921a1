package handler

import (
    "database/sql" // for sentinel errors returned from repository
    "errors"       // for errors.Is comparisons
    "net/http"     // HTTP status codes
    "time"         // timestamps for published events

    "github.com/labstack/echo/v4" // Echo web framework

    "github.com/printhub/printhub/internal/model"
    "github.com/printhub/printhub/internal/queue"
    "github.com/printhub/printhub/internal/repository"
    "github.com/printhub/printhub/internal/service"
)

// BoxHandler groups the repositories and the unlock service behind the
// box endpoints. All methods assume that JWT authentication and role
// validation have already been performed by middleware.
type BoxHandler struct {
    Boxes   *repository.BoxRepo
    Users   *repository.UserRepo
    Unlocks *repository.UnlockRepo
    Unlock  *service.UnlockService
}

// NewBoxHandler constructs a BoxHandler. All dependencies must be non-nil.
func NewBoxHandler(boxes *repository.BoxRepo, users *repository.UserRepo, unlocks *repository.UnlockRepo, unlock *service.UnlockService) *BoxHandler {
    if boxes == nil || users == nil || unlocks == nil || unlock == nil {
        panic("nil dependency passed to NewBoxHandler")
    }
    return &BoxHandler{Boxes: boxes, Users: users, Unlocks: unlocks, Unlock: unlock}
}

// boxPart is the JSON shape of a box in responses.
type boxPart struct {
    ID          uint64 `json:"id"`
    Name        string `json:"name"`
    Location    string `json:"location"`
    PhysicalID  uint64 `json:"physical_id"`
    IsAvailable bool   `json:"is_available"`
    CreatedAt   string `json:"created_at"`
}

func toBoxPart(b model.Box) boxPart {
    return boxPart{
        ID:          b.ID,
        Name:        b.Name,
        Location:    b.Location,
        PhysicalID:  b.PhysicalID,
        IsAvailable: b.IsAvailable,
        CreatedAt:   b.CreatedAt.UTC().Format(time.RFC3339),
    }
}

// unlockPart is the JSON shape of a ledger row in responses.
type unlockPart struct {
    ID        uint64 `json:"id"`
    UserID    uint64 `json:"user_id"`
    BoxID     uint64 `json:"box_id"`
    Success   bool   `json:"success"`
    CreatedAt string `json:"created_at"`
}

func toUnlockPart(u model.Unlock) unlockPart {
    return unlockPart{
        ID:        u.ID,
        UserID:    u.UserID,
        BoxID:     u.BoxID,
        Success:   u.Success,
        CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
    }
}

// List handles GET /v1/boxes.
func (h *BoxHandler) List(c echo.Context) error {
    boxes, err := h.Boxes.List(c.Request().Context())
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load boxes"})
    }
    items := make([]boxPart, 0, len(boxes))
    for _, b := range boxes {
        items = append(items, toBoxPart(b))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Show handles GET /v1/boxes/:id. The response includes the box's
// access list (user IDs allowed to open it).
func (h *BoxHandler) Show(c echo.Context) error {
    id := pathID(c, "id")
    if id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid box id"})
    }
    ctx := c.Request().Context()
    box, err := h.Boxes.GetByID(ctx, id)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "box not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load box"})
    }
    access, err := h.Boxes.ListAccess(ctx, id)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load access list"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "box":              toBoxPart(box),
        "authorized_users": access,
    })
}

// Create handles POST /v1/boxes (admin).
func (h *BoxHandler) Create(c echo.Context) error {
    var body struct {
        Name       string `json:"name"`
        Location   string `json:"location"`
        PhysicalID uint64 `json:"physical_id"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.Name == "" || body.PhysicalID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and physical_id are required"})
    }
    box, err := h.Boxes.Create(c.Request().Context(), body.Name, body.Location, body.PhysicalID)
    if err != nil {
        if errors.Is(err, repository.ErrConflict) {
            return c.JSON(http.StatusConflict, echo.Map{"error": "physical_id already in use"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create box"})
    }
    return c.JSON(http.StatusCreated, echo.Map{"box": toBoxPart(box)})
}

// Update handles PATCH /v1/boxes/:id (admin).
func (h *BoxHandler) Update(c echo.Context) error {
    id := pathID(c, "id")
    if id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid box id"})
    }
    var body struct {
        Name       *string `json:"name"`
        Location   *string `json:"location"`
        PhysicalID *uint64 `json:"physical_id"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    ctx := c.Request().Context()
    err := h.Boxes.Update(ctx, id, repository.BoxUpdate{Name: body.Name, Location: body.Location, PhysicalID: body.PhysicalID})
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "box not found"})
        }
        if errors.Is(err, repository.ErrConflict) {
            return c.JSON(http.StatusConflict, echo.Map{"error": "physical_id already in use"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update box"})
    }
    box, err := h.Boxes.GetByID(ctx, id)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load box"})
    }
    return c.JSON(http.StatusOK, echo.Map{"box": toBoxPart(box)})
}

// Delete handles DELETE /v1/boxes/:id (admin).
func (h *BoxHandler) Delete(c echo.Context) error {
    id := pathID(c, "id")
    if id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid box id"})
    }
    if err := h.Boxes.Delete(c.Request().Context(), id); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "box not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete box"})
    }
    return c.NoContent(http.StatusNoContent)
}

// GrantAccess handles POST /v1/boxes/:id/access (admin). It adds a
// user to the box's access list.
func (h *BoxHandler) GrantAccess(c echo.Context) error {
    id := pathID(c, "id")
    if id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid box id"})
    }
    var body struct {
        UserID uint64 `json:"user_id"`
    }
    if err := c.Bind(&body); err != nil || body.UserID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id is required"})
    }
    ctx := c.Request().Context()
    if _, err := h.Boxes.GetByID(ctx, id); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "box not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load box"})
    }
    if _, err := h.Users.GetByID(ctx, body.UserID); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load user"})
    }
    if err := h.Boxes.GrantAccess(ctx, id, body.UserID); err != nil {
        if errors.Is(err, repository.ErrAlreadyAuthorized) {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "user is already authorized for this box"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to grant access"})
    }
    return c.JSON(http.StatusOK, echo.Map{"granted": true})
}

// RevokeAccess handles DELETE /v1/boxes/:id/access/:userID (admin).
func (h *BoxHandler) RevokeAccess(c echo.Context) error {
    id := pathID(c, "id")
    userID := pathID(c, "userID")
    if id == 0 || userID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid box or user id"})
    }
    if err := h.Boxes.RevokeAccess(c.Request().Context(), id, userID); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "no such access grant"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to revoke access"})
    }
    return c.NoContent(http.StatusNoContent)
}

// CheckAccess handles POST /v1/boxes/check-access. Box hardware posts
// either an internal box_id or its physical_id together with a
// user_id; the response is a bare authorization verdict.
func (h *BoxHandler) CheckAccess(c echo.Context) error {
    var body struct {
        UserID     uint64  `json:"user_id"`
        BoxID      *uint64 `json:"box_id"`
        PhysicalID *uint64 `json:"physical_id"`
    }
    if err := c.Bind(&body); err != nil || body.UserID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id is required"})
    }
    if body.BoxID == nil && body.PhysicalID == nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "box_id or physical_id is required"})
    }
    ok, err := h.Unlock.CheckAccess(c.Request().Context(), body.UserID, body.BoxID, body.PhysicalID)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "box not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to check access"})
    }
    return c.JSON(http.StatusOK, echo.Map{"authorized": ok})
}

// RequestUnlock handles POST /v1/boxes/:id/unlock, the contended
// path. The heavy lifting lives in service.UnlockService; this
// handler only maps outcomes to HTTP statuses and publishes the
// broker event for winners.
func (h *BoxHandler) RequestUnlock(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    boxID := pathID(c, "id")
    if boxID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid box id"})
    }
    ctx := c.Request().Context()
    res, err := h.Unlock.AttemptUnlock(ctx, userID, boxID)
    if err != nil {
        switch {
        case errors.Is(err, sql.ErrNoRows):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "user or box not found"})
        case errors.Is(err, repository.ErrForbidden):
            return c.JSON(http.StatusForbidden, echo.Map{"error": "user is not authorized to unlock this box"})
        case errors.Is(err, repository.ErrBoxUnavailable):
            return c.JSON(http.StatusConflict, echo.Map{"error": "box is not available"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "unlock failed"})
    }

    // Best effort: the unlock has committed, a broker outage must not
    // turn it into an error response.
    username := ""
    if u, uerr := h.Users.GetByID(ctx, userID); uerr == nil {
        username = u.Username
    }
    _ = service.PublishBoxUnlocked(ctx, queue.BoxUnlockedEvent{
        UnlockID:   res.Unlock.ID,
        UserID:     userID,
        Username:   username,
        BoxID:      res.Box.ID,
        BoxName:    res.Box.Name,
        PhysicalID: res.Box.PhysicalID,
        Location:   res.Box.Location,
        UnlockedAt: res.Unlock.CreatedAt.UTC().Format(time.RFC3339),
    })

    return c.JSON(http.StatusOK, echo.Map{
        "box":    toBoxPart(res.Box),
        "unlock": toUnlockPart(res.Unlock),
    })
}

// ResetAvailability handles POST /v1/boxes/:id/reset (admin). The box
// door has been closed again; mark it openable.
func (h *BoxHandler) ResetAvailability(c echo.Context) error {
    id := pathID(c, "id")
    if id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid box id"})
    }
    if err := h.Boxes.ResetAvailability(c.Request().Context(), id); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "box not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to reset box"})
    }
    return c.JSON(http.StatusOK, echo.Map{"reset": true})
}

// History handles GET /v1/boxes/:id/unlocks (admin): the box's
// unlock ledger, newest first.
func (h *BoxHandler) History(c echo.Context) error {
    id := pathID(c, "id")
    if id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid box id"})
    }
    ctx := c.Request().Context()
    if _, err := h.Boxes.GetByID(ctx, id); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "box not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load box"})
    }
    unlocks, err := h.Unlocks.ListByBox(ctx, id)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load unlock history"})
    }
    items := make([]unlockPart, 0, len(unlocks))
    for _, u := range unlocks {
        items = append(items, toUnlockPart(u))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}
