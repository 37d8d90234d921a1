package handler

import (
    "database/sql"
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/printhub/printhub/internal/config"
    "github.com/printhub/printhub/internal/model"
    "github.com/printhub/printhub/internal/repository"
)

// UserHandler serves the admin user management endpoints and the
// self-service profile endpoints under /v1/me and /v1/my.
type UserHandler struct {
    Cfg     config.Config
    Users   *repository.UserRepo
    Tokens  *repository.TokenRepo
    Boxes   *repository.BoxRepo
    Unlocks *repository.UnlockRepo
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(cfg config.Config, users *repository.UserRepo, tokens *repository.TokenRepo, boxes *repository.BoxRepo, unlocks *repository.UnlockRepo) *UserHandler {
    if users == nil || tokens == nil || boxes == nil || unlocks == nil {
        panic("nil dependency passed to NewUserHandler")
    }
    return &UserHandler{Cfg: cfg, Users: users, Tokens: tokens, Boxes: boxes, Unlocks: unlocks}
}

// userProfile is the JSON shape of a user in responses. The password
// hash never leaves the repository layer.
type userProfile struct {
    ID        uint64 `json:"id"`
    FirstName string `json:"first_name"`
    LastName  string `json:"last_name"`
    Username  string `json:"username"`
    Email     string `json:"email"`
    Role      string `json:"role"`
    CreatedAt string `json:"created_at"`
}

func toUserProfile(u model.User) userProfile {
    return userProfile{
        ID:        u.ID,
        FirstName: u.FirstName,
        LastName:  u.LastName,
        Username:  u.Username,
        Email:     u.Email,
        Role:      u.Role,
        CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
    }
}

// List handles GET /v1/users (admin).
func (h *UserHandler) List(c echo.Context) error {
    users, err := h.Users.List(c.Request().Context())
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load users"})
    }
    items := make([]userProfile, 0, len(users))
    for _, u := range users {
        items = append(items, toUserProfile(u))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Show handles GET /v1/users/:id (admin).
func (h *UserHandler) Show(c echo.Context) error {
    id := pathID(c, "id")
    if id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
    }
    u, err := h.Users.GetByID(c.Request().Context(), id)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load user"})
    }
    return c.JSON(http.StatusOK, echo.Map{"user": toUserProfile(u)})
}

// userUpdateReq is shared by the admin update and the self-service
// update; only admins may change roles.
type userUpdateReq struct {
    FirstName *string `json:"first_name"`
    LastName  *string `json:"last_name"`
    Email     *string `json:"email"`
    Password  *string `json:"password"`
    Role      *string `json:"role"`
}

func (h *UserHandler) applyUpdate(c echo.Context, id uint64, req userUpdateReq, allowRole bool) error {
    if req.Role != nil {
        if !allowRole {
            return c.JSON(http.StatusForbidden, echo.Map{"error": "only admins may change roles"})
        }
        if *req.Role != RoleUser && *req.Role != RoleAdmin {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role"})
        }
    }
    if req.Password != nil && len(*req.Password) < 8 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 8 characters"})
    }
    ctx := c.Request().Context()
    upd := repository.UserUpdate{
        FirstName: req.FirstName,
        LastName:  req.LastName,
        Email:     req.Email,
        Password:  req.Password,
        Role:      req.Role,
    }
    if err := h.Users.Update(ctx, id, upd, h.Cfg.BcryptCost); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
        }
        if errors.Is(err, repository.ErrEmailExists) {
            return c.JSON(http.StatusConflict, echo.Map{"error": "email already in use"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update user"})
    }
    u, err := h.Users.GetByID(ctx, id)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load user"})
    }
    return c.JSON(http.StatusOK, echo.Map{"user": toUserProfile(u)})
}

// AdminUpdate handles PATCH /v1/users/:id (admin).
func (h *UserHandler) AdminUpdate(c echo.Context) error {
    id := pathID(c, "id")
    if id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
    }
    var req userUpdateReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    return h.applyUpdate(c, id, req, true)
}

// Delete handles DELETE /v1/users/:id (admin). Refresh tokens are
// revoked before the row goes, so a deleted user cannot mint new
// access tokens.
func (h *UserHandler) Delete(c echo.Context) error {
    id := pathID(c, "id")
    if id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
    }
    ctx := c.Request().Context()
    _ = h.Tokens.RevokeAllForUser(ctx, id)
    if err := h.Users.Delete(ctx, id); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete user"})
    }
    return c.NoContent(http.StatusNoContent)
}

// UserUnlocks handles GET /v1/users/:id/unlocks (admin).
func (h *UserHandler) UserUnlocks(c echo.Context) error {
    id := pathID(c, "id")
    if id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
    }
    return h.renderUnlocks(c, id)
}

// UserBoxes handles GET /v1/users/:id/boxes (admin).
func (h *UserHandler) UserBoxes(c echo.Context) error {
    id := pathID(c, "id")
    if id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
    }
    return h.renderBoxes(c, id)
}

// UpdateMe handles PATCH /v1/me. Role changes are rejected here.
func (h *UserHandler) UpdateMe(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req userUpdateReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    return h.applyUpdate(c, userID, req, false)
}

// DeleteMe handles DELETE /v1/me: account self-deletion.
func (h *UserHandler) DeleteMe(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    ctx := c.Request().Context()
    _ = h.Tokens.RevokeAllForUser(ctx, userID)
    if err := h.Users.Delete(ctx, userID); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete account"})
    }
    return c.NoContent(http.StatusNoContent)
}

// MyUnlocks handles GET /v1/my/unlocks: the caller's unlock history.
func (h *UserHandler) MyUnlocks(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    return h.renderUnlocks(c, userID)
}

// MyBoxes handles GET /v1/my/boxes: the boxes the caller may open.
func (h *UserHandler) MyBoxes(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    return h.renderBoxes(c, userID)
}

func (h *UserHandler) renderUnlocks(c echo.Context, userID uint64) error {
    unlocks, err := h.Unlocks.ListByUser(c.Request().Context(), userID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load unlock history"})
    }
    items := make([]unlockPart, 0, len(unlocks))
    for _, u := range unlocks {
        items = append(items, toUnlockPart(u))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

func (h *UserHandler) renderBoxes(c echo.Context, userID uint64) error {
    boxes, err := h.Boxes.ListForUser(c.Request().Context(), userID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load boxes"})
    }
    items := make([]boxPart, 0, len(boxes))
    for _, b := range boxes {
        items = append(items, toBoxPart(b))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}
