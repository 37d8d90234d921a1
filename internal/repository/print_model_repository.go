package repository

import (
    "context"
    "database/sql"
    "strings"
    "time"

    "github.com/printhub/printhub/internal/model"
)

// PrintModelRepo provides CRUD operations for print models and their
// image URLs. Images live in the print_model_images side table and
// are always loaded together with the model.
type PrintModelRepo struct {
    db *sql.DB
}

// NewPrintModelRepo returns a new PrintModelRepo bound to the given database.
func NewPrintModelRepo(db *sql.DB) *PrintModelRepo { return &PrintModelRepo{db: db} }

// PrintModelDetail is the shape returned to handlers: the catalogue
// row plus its ordered image URLs.
type PrintModelDetail struct {
    ID                uint64   `json:"id"`
    Name              string   `json:"name"`
    Description       string   `json:"description,omitempty"`
    PriceCents        uint32   `json:"price_cents"`
    EstimatedPrintMin uint32   `json:"estimated_print_min"`
    CreatedBy         *uint64  `json:"created_by,omitempty"`
    CreatedAt         string   `json:"created_at"`
    Images            []string `json:"images"`
}

const printModelCols = "id, name, description, price_cents, estimated_print_min, created_by, created_at"

// Create inserts a model and its images in one transaction and
// returns the stored detail.
func (r *PrintModelRepo) Create(ctx context.Context, m model.PrintModel, images []string) (*PrintModelDetail, error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    res, err := tx.ExecContext(ctx,
        "INSERT INTO print_models (name, description, price_cents, estimated_print_min, created_by) VALUES (?,?,?,?,?)",
        m.Name, m.Description, m.PriceCents, m.EstimatedPrintMin, m.CreatedBy)
    if err != nil {
        return nil, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return nil, err
    }
    if err := insertImagesTx(ctx, tx, uint64(id), images); err != nil {
        return nil, err
    }
    if err := tx.Commit(); err != nil {
        return nil, err
    }
    committed = true
    return r.GetByID(ctx, uint64(id))
}

func insertImagesTx(ctx context.Context, tx *sql.Tx, modelID uint64, images []string) error {
    if len(images) == 0 {
        return nil
    }
    query := "INSERT INTO print_model_images (model_id, url, position) VALUES "
    args := make([]interface{}, 0, len(images)*3)
    for i, url := range images {
        if i > 0 {
            query += ","
        }
        query += "(?, ?, ?)"
        args = append(args, modelID, url, i)
    }
    _, err := tx.ExecContext(ctx, query, args...)
    return err
}

// GetByID loads a model and its images. sql.ErrNoRows when missing.
func (r *PrintModelRepo) GetByID(ctx context.Context, id uint64) (*PrintModelDetail, error) {
    var det PrintModelDetail
    var createdBy sql.NullInt64
    var createdAt time.Time
    err := r.db.QueryRowContext(ctx,
        "SELECT "+printModelCols+" FROM print_models WHERE id=? LIMIT 1", id).
        Scan(&det.ID, &det.Name, &det.Description, &det.PriceCents, &det.EstimatedPrintMin, &createdBy, &createdAt)
    if err != nil {
        return nil, err
    }
    det.CreatedAt = createdAt.UTC().Format(time.RFC3339)
    if createdBy.Valid {
        cb := uint64(createdBy.Int64)
        det.CreatedBy = &cb
    }
    det.Images, err = r.listImages(ctx, id)
    if err != nil {
        return nil, err
    }
    return &det, nil
}

func (r *PrintModelRepo) listImages(ctx context.Context, modelID uint64) ([]string, error) {
    rows, err := r.db.QueryContext(ctx,
        "SELECT url FROM print_model_images WHERE model_id=? ORDER BY position", modelID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    images := make([]string, 0)
    for rows.Next() {
        var url string
        if err := rows.Scan(&url); err != nil {
            return nil, err
        }
        images = append(images, url)
    }
    return images, rows.Err()
}

// List returns the whole catalogue, newest first, with images
// populated in a single follow-up query.
func (r *PrintModelRepo) List(ctx context.Context) ([]PrintModelDetail, error) {
    rows, err := r.db.QueryContext(ctx,
        "SELECT "+printModelCols+" FROM print_models ORDER BY created_at DESC, id DESC")
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    details := make([]PrintModelDetail, 0)
    index := make(map[uint64]int)
    for rows.Next() {
        var det PrintModelDetail
        var createdBy sql.NullInt64
        var createdAt time.Time
        if err := rows.Scan(&det.ID, &det.Name, &det.Description, &det.PriceCents, &det.EstimatedPrintMin, &createdBy, &createdAt); err != nil {
            return nil, err
        }
        det.CreatedAt = createdAt.UTC().Format(time.RFC3339)
        if createdBy.Valid {
            cb := uint64(createdBy.Int64)
            det.CreatedBy = &cb
        }
        det.Images = []string{}
        index[det.ID] = len(details)
        details = append(details, det)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    if len(details) == 0 {
        return details, nil
    }
    ids := make([]interface{}, 0, len(details))
    placeholders := make([]string, 0, len(details))
    for _, d := range details {
        ids = append(ids, d.ID)
        placeholders = append(placeholders, "?")
    }
    imgQuery := `SELECT model_id, url FROM print_model_images
                 WHERE model_id IN (` + strings.Join(placeholders, ",") + `)
                 ORDER BY model_id, position`
    irows, err := r.db.QueryContext(ctx, imgQuery, ids...)
    if err != nil {
        return nil, err
    }
    defer irows.Close()
    for irows.Next() {
        var mid uint64
        var url string
        if err := irows.Scan(&mid, &url); err != nil {
            return nil, err
        }
        if idx, ok := index[mid]; ok {
            details[idx].Images = append(details[idx].Images, url)
        }
    }
    return details, irows.Err()
}

// PrintModelUpdate carries the optional fields of a partial update.
// A non-nil Images replaces the whole image list.
type PrintModelUpdate struct {
    Name              *string
    Description       *string
    PriceCents        *uint32
    EstimatedPrintMin *uint32
    Images            []string
}

// Update applies a partial update to a model and, when Images is
// non-nil, swaps its image list inside the same transaction.
func (r *PrintModelRepo) Update(ctx context.Context, id uint64, upd PrintModelUpdate) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    // Confirm existence first so missing models surface as not-found
    // even when only the images change.
    var one int
    if err := tx.QueryRowContext(ctx, "SELECT 1 FROM print_models WHERE id=? LIMIT 1", id).Scan(&one); err != nil {
        return err
    }
    sets := make([]string, 0, 4)
    args := make([]interface{}, 0, 5)
    if upd.Name != nil {
        sets = append(sets, "name=?")
        args = append(args, *upd.Name)
    }
    if upd.Description != nil {
        sets = append(sets, "description=?")
        args = append(args, *upd.Description)
    }
    if upd.PriceCents != nil {
        sets = append(sets, "price_cents=?")
        args = append(args, *upd.PriceCents)
    }
    if upd.EstimatedPrintMin != nil {
        sets = append(sets, "estimated_print_min=?")
        args = append(args, *upd.EstimatedPrintMin)
    }
    if len(sets) > 0 {
        args = append(args, id)
        if _, err := tx.ExecContext(ctx,
            "UPDATE print_models SET "+strings.Join(sets, ",")+" WHERE id=?", args...); err != nil {
            return err
        }
    }
    if upd.Images != nil {
        if _, err := tx.ExecContext(ctx, "DELETE FROM print_model_images WHERE model_id=?", id); err != nil {
            return err
        }
        if err := insertImagesTx(ctx, tx, id, upd.Images); err != nil {
            return err
        }
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// Delete removes a model and, via foreign keys, its images.
func (r *PrintModelRepo) Delete(ctx context.Context, id uint64) error {
    res, err := r.db.ExecContext(ctx, "DELETE FROM print_models WHERE id=?", id)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return sql.ErrNoRows
    }
    return nil
}
