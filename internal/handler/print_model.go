package handler

import (
    "database/sql"
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/printhub/printhub/internal/model"
    "github.com/printhub/printhub/internal/repository"
)

// PrintModelHandler serves the public catalogue reads and the admin
// catalogue management endpoints.
type PrintModelHandler struct {
    Models *repository.PrintModelRepo
}

// NewPrintModelHandler constructs a PrintModelHandler.
func NewPrintModelHandler(models *repository.PrintModelRepo) *PrintModelHandler {
    if models == nil {
        panic("nil repository passed to NewPrintModelHandler")
    }
    return &PrintModelHandler{Models: models}
}

// List handles GET /v1/models (public, cacheable).
func (h *PrintModelHandler) List(c echo.Context) error {
    models, err := h.Models.List(c.Request().Context())
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load models"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": models})
}

// Show handles GET /v1/models/:id (public, cacheable).
func (h *PrintModelHandler) Show(c echo.Context) error {
    id := pathID(c, "id")
    if id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid model id"})
    }
    det, err := h.Models.GetByID(c.Request().Context(), id)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "model not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load model"})
    }
    return c.JSON(http.StatusOK, echo.Map{"model": det})
}

// Create handles POST /v1/models (admin).
func (h *PrintModelHandler) Create(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var body struct {
        Name              string   `json:"name"`
        Description       string   `json:"description"`
        PriceCents        uint32   `json:"price_cents"`
        EstimatedPrintMin uint32   `json:"estimated_print_min"`
        Images            []string `json:"images"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.Name == "" || body.EstimatedPrintMin == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and estimated_print_min are required"})
    }
    det, err := h.Models.Create(c.Request().Context(), model.PrintModel{
        Name:              body.Name,
        Description:       body.Description,
        PriceCents:        body.PriceCents,
        EstimatedPrintMin: body.EstimatedPrintMin,
        CreatedBy:         &userID,
    }, body.Images)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create model"})
    }
    return c.JSON(http.StatusCreated, echo.Map{"model": det})
}

// Update handles PATCH /v1/models/:id (admin). A non-nil images array
// replaces the whole image list.
func (h *PrintModelHandler) Update(c echo.Context) error {
    id := pathID(c, "id")
    if id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid model id"})
    }
    var body struct {
        Name              *string  `json:"name"`
        Description       *string  `json:"description"`
        PriceCents        *uint32  `json:"price_cents"`
        EstimatedPrintMin *uint32  `json:"estimated_print_min"`
        Images            []string `json:"images"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    ctx := c.Request().Context()
    err := h.Models.Update(ctx, id, repository.PrintModelUpdate{
        Name:              body.Name,
        Description:       body.Description,
        PriceCents:        body.PriceCents,
        EstimatedPrintMin: body.EstimatedPrintMin,
        Images:            body.Images,
    })
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "model not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update model"})
    }
    det, err := h.Models.GetByID(ctx, id)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load model"})
    }
    return c.JSON(http.StatusOK, echo.Map{"model": det})
}

// Delete handles DELETE /v1/models/:id (admin).
func (h *PrintModelHandler) Delete(c echo.Context) error {
    id := pathID(c, "id")
    if id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid model id"})
    }
    if err := h.Models.Delete(c.Request().Context(), id); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "model not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete model"})
    }
    return c.NoContent(http.StatusNoContent)
}
