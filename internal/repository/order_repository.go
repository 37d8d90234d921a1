package repository

import (
    "context"
    "database/sql"
    "strings"
    "time"

    "github.com/printhub/printhub/internal/model"
)

// OrderRepo provides CRUD operations for print orders. Orders join
// against print_models, users and boxes so handlers can render a full
// picture without extra round-trips.
type OrderRepo struct {
    db *sql.DB
}

// NewOrderRepo returns a new OrderRepo bound to the given database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

// DB exposes the underlying handle so the order service can open
// transactions spanning orders and box_access.
func (r *OrderRepo) DB() *sql.DB { return r.db }

// OrderDetail is the shape returned to handlers: the order row plus
// the related model, user and box display fields.
type OrderDetail struct {
    ID                uint64  `json:"id"`
    Status            string  `json:"status"`
    ModelID           uint64  `json:"model_id"`
    ModelName         string  `json:"model_name"`
    EstimatedPrintMin uint32  `json:"estimated_print_min"`
    UserID            uint64  `json:"user_id"`
    Username          string  `json:"username"`
    BoxID             *uint64 `json:"box_id,omitempty"`
    BoxName           *string `json:"box_name,omitempty"`
    BoxLocation       *string `json:"box_location,omitempty"`
    CreatedAt         string  `json:"created_at"`
    StartedPrintingAt *string `json:"started_printing_at,omitempty"`
    CompletedAt       *string `json:"completed_at,omitempty"`
}

const orderDetailQuery = `SELECT o.id, o.status, o.model_id, m.name, m.estimated_print_min,
       o.user_id, u.username, o.box_id, b.name, b.location,
       o.created_at, o.started_printing_at, o.completed_at
FROM orders o
JOIN print_models m ON m.id = o.model_id
JOIN users u ON u.id = o.user_id
LEFT JOIN boxes b ON b.id = o.box_id`

func scanOrderDetail(scan func(...interface{}) error) (OrderDetail, error) {
    var d OrderDetail
    var boxID sql.NullInt64
    var boxName, boxLocation sql.NullString
    var createdAt time.Time
    var startedAt, completedAt sql.NullTime
    err := scan(&d.ID, &d.Status, &d.ModelID, &d.ModelName, &d.EstimatedPrintMin,
        &d.UserID, &d.Username, &boxID, &boxName, &boxLocation,
        &createdAt, &startedAt, &completedAt)
    if err != nil {
        return d, err
    }
    d.CreatedAt = createdAt.UTC().Format(time.RFC3339)
    if boxID.Valid {
        id := uint64(boxID.Int64)
        d.BoxID = &id
    }
    if boxName.Valid {
        n := boxName.String
        d.BoxName = &n
    }
    if boxLocation.Valid {
        l := boxLocation.String
        d.BoxLocation = &l
    }
    if startedAt.Valid {
        iso := startedAt.Time.UTC().Format(time.RFC3339)
        d.StartedPrintingAt = &iso
    }
    if completedAt.Valid {
        iso := completedAt.Time.UTC().Format(time.RFC3339)
        d.CompletedAt = &iso
    }
    return d, nil
}

// Create inserts an order that starts printing immediately and
// returns its id.
func (r *OrderRepo) Create(ctx context.Context, modelID, userID uint64, boxID *uint64) (uint64, error) {
    res, err := r.db.ExecContext(ctx,
        "INSERT INTO orders (model_id, user_id, box_id, status, started_printing_at) VALUES (?,?,?,?,UTC_TIMESTAMP())",
        modelID, userID, boxID, model.OrderPrinting)
    if err != nil {
        return 0, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return 0, err
    }
    return uint64(id), nil
}

// GetDetail loads one order with its related display fields.
func (r *OrderRepo) GetDetail(ctx context.Context, id uint64) (OrderDetail, error) {
    row := r.db.QueryRowContext(ctx, orderDetailQuery+" WHERE o.id = ?", id)
    return scanOrderDetail(row.Scan)
}

func (r *OrderRepo) queryDetails(ctx context.Context, q string, args ...interface{}) ([]OrderDetail, error) {
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    details := make([]OrderDetail, 0)
    for rows.Next() {
        d, err := scanOrderDetail(rows.Scan)
        if err != nil {
            return nil, err
        }
        details = append(details, d)
    }
    return details, rows.Err()
}

// List returns all orders, newest first.
func (r *OrderRepo) List(ctx context.Context) ([]OrderDetail, error) {
    return r.queryDetails(ctx, orderDetailQuery+" ORDER BY o.created_at DESC, o.id DESC")
}

// ListByUser returns one user's orders, newest first.
func (r *OrderRepo) ListByUser(ctx context.Context, userID uint64) ([]OrderDetail, error) {
    return r.queryDetails(ctx, orderDetailQuery+" WHERE o.user_id = ? ORDER BY o.created_at DESC, o.id DESC", userID)
}

// PrintingState is the snapshot the order service needs to decide
// whether a printing order is due for completion.
type PrintingState struct {
    UserID            uint64
    BoxID             *uint64
    Status            string
    StartedPrintingAt *time.Time
    EstimatedPrintMin uint32
}

// GetPrintingStateTx loads the completion-relevant fields of an order
// under FOR UPDATE so two concurrent refreshes cannot both flip the
// same order to READY.
func (r *OrderRepo) GetPrintingStateTx(ctx context.Context, tx *sql.Tx, orderID uint64) (PrintingState, error) {
    const q = `SELECT o.user_id, o.box_id, o.status, o.started_printing_at, m.estimated_print_min
               FROM orders o
               JOIN print_models m ON m.id = o.model_id
               WHERE o.id = ? FOR UPDATE`
    var st PrintingState
    var boxID sql.NullInt64
    var startedAt sql.NullTime
    err := tx.QueryRowContext(ctx, q, orderID).Scan(&st.UserID, &boxID, &st.Status, &startedAt, &st.EstimatedPrintMin)
    if err != nil {
        return st, err
    }
    if boxID.Valid {
        id := uint64(boxID.Int64)
        st.BoxID = &id
    }
    if startedAt.Valid {
        t := startedAt.Time.UTC()
        st.StartedPrintingAt = &t
    }
    return st, nil
}

// MarkReadyTx flips a PRINTING order to READY and stamps completion.
// The status predicate keeps the transition idempotent: a second
// concurrent refresh matches no row and changes nothing.
func (r *OrderRepo) MarkReadyTx(ctx context.Context, tx *sql.Tx, orderID uint64) (bool, error) {
    res, err := tx.ExecContext(ctx,
        "UPDATE orders SET status=?, completed_at=UTC_TIMESTAMP() WHERE id=? AND status=?",
        model.OrderReady, orderID, model.OrderPrinting)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    return n == 1, nil
}

// Cancel cancels an order on behalf of its owner. Only PENDING and
// PRINTING orders may be cancelled; a printing order gets its
// completed_at stamped with the cancellation time.
func (r *OrderRepo) Cancel(ctx context.Context, orderID, userID uint64) error {
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
    var ownerID uint64
    var status string
    var startedAt sql.NullTime
    err = tx.QueryRowContext(ctx,
        "SELECT user_id, status, started_printing_at FROM orders WHERE id=? FOR UPDATE", orderID).
        Scan(&ownerID, &status, &startedAt)
    if err != nil {
        return err
    }
    if ownerID != userID {
        return ErrForbidden
    }
    if status != model.OrderPending && status != model.OrderPrinting {
        return ErrConflict
    }
    if startedAt.Valid {
        _, err = tx.ExecContext(ctx,
            "UPDATE orders SET status=?, completed_at=UTC_TIMESTAMP() WHERE id=?",
            model.OrderCancelled, orderID)
    } else {
        _, err = tx.ExecContext(ctx,
            "UPDATE orders SET status=? WHERE id=?", model.OrderCancelled, orderID)
    }
    if err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// OrderUpdate carries the optional fields of an admin order update.
type OrderUpdate struct {
    ModelID *uint64
    BoxID   *uint64
    Status  *string
}

// AdminUpdateTx applies a partial admin update inside the provided
// transaction. The caller (order service) is responsible for granting
// box access when the update transitions an order to READY.
func (r *OrderRepo) AdminUpdateTx(ctx context.Context, tx *sql.Tx, orderID uint64, upd OrderUpdate) error {
    sets := make([]string, 0, 4)
    args := make([]interface{}, 0, 5)
    if upd.ModelID != nil {
        sets = append(sets, "model_id=?")
        args = append(args, *upd.ModelID)
    }
    if upd.BoxID != nil {
        sets = append(sets, "box_id=?")
        args = append(args, *upd.BoxID)
    }
    if upd.Status != nil {
        sets = append(sets, "status=?")
        args = append(args, *upd.Status)
        switch *upd.Status {
        case model.OrderPrinting:
            sets = append(sets, "started_printing_at=COALESCE(started_printing_at, UTC_TIMESTAMP())")
        case model.OrderReady, model.OrderCancelled:
            sets = append(sets, "completed_at=COALESCE(completed_at, UTC_TIMESTAMP())")
        }
    }
    if len(sets) == 0 {
        return nil
    }
    args = append(args, orderID)
    _, err := tx.ExecContext(ctx,
        "UPDATE orders SET "+strings.Join(sets, ",")+" WHERE id=?", args...)
    return err
}

// Delete removes an order. Returns sql.ErrNoRows when it does not exist.
func (r *OrderRepo) Delete(ctx context.Context, id uint64) error {
    res, err := r.db.ExecContext(ctx, "DELETE FROM orders WHERE id=?", id)
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
