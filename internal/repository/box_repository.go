package repository

import (
    "context"
    "database/sql"
    "strings"

    "github.com/printhub/printhub/internal/model"
)

// BoxRepo provides data access to the boxes and box_access tables.
// The box_access table holds the set of users permitted to open each
// box. The is_available column of boxes is the only field mutated
// under contention; it must never be written outside MarkUnavailableTx
// and ResetAvailability.
type BoxRepo struct {
    db *sql.DB
}

// NewBoxRepo returns a new BoxRepo bound to the given database.
func NewBoxRepo(db *sql.DB) *BoxRepo { return &BoxRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions
// spanning several repositories.
func (r *BoxRepo) DB() *sql.DB { return r.db }

const boxCols = "id, name, location, physical_id, is_available, created_at, updated_at"

func scanBox(row *sql.Row) (model.Box, error) {
    var b model.Box
    err := row.Scan(&b.ID, &b.Name, &b.Location, &b.PhysicalID, &b.IsAvailable, &b.CreatedAt, &b.UpdatedAt)
    return b, err
}

// Create inserts a new box. New boxes start available (door closed).
// A duplicate physical_id is reported as ErrConflict.
func (r *BoxRepo) Create(ctx context.Context, name, location string, physicalID uint64) (model.Box, error) {
    res, err := r.db.ExecContext(ctx,
        "INSERT INTO boxes (name, location, physical_id, is_available) VALUES (?,?,?,1)",
        name, location, physicalID)
    if err != nil {
        if strings.Contains(strings.ToLower(err.Error()), "1062") {
            return model.Box{}, ErrConflict
        }
        return model.Box{}, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return model.Box{}, err
    }
    return r.GetByID(ctx, uint64(id))
}

// GetByID fetches one box. sql.ErrNoRows is returned when the box
// does not exist.
func (r *BoxRepo) GetByID(ctx context.Context, id uint64) (model.Box, error) {
    return scanBox(r.db.QueryRowContext(ctx,
        "SELECT "+boxCols+" FROM boxes WHERE id=? LIMIT 1", id))
}

// GetByPhysicalID fetches a box by the identifier printed on the
// hardware unit. Used by check-access requests coming from the boxes
// themselves.
func (r *BoxRepo) GetByPhysicalID(ctx context.Context, physicalID uint64) (model.Box, error) {
    return scanBox(r.db.QueryRowContext(ctx,
        "SELECT "+boxCols+" FROM boxes WHERE physical_id=? LIMIT 1", physicalID))
}

// List returns all boxes ordered by id.
func (r *BoxRepo) List(ctx context.Context) ([]model.Box, error) {
    rows, err := r.db.QueryContext(ctx, "SELECT "+boxCols+" FROM boxes ORDER BY id")
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    boxes := make([]model.Box, 0)
    for rows.Next() {
        var b model.Box
        if err := rows.Scan(&b.ID, &b.Name, &b.Location, &b.PhysicalID, &b.IsAvailable, &b.CreatedAt, &b.UpdatedAt); err != nil {
            return nil, err
        }
        boxes = append(boxes, b)
    }
    return boxes, rows.Err()
}

// ListForUser returns the boxes a user is allowed to open.
func (r *BoxRepo) ListForUser(ctx context.Context, userID uint64) ([]model.Box, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT b.id, b.name, b.location, b.physical_id, b.is_available, b.created_at, b.updated_at
         FROM boxes b
         JOIN box_access a ON a.box_id = b.id
         WHERE a.user_id = ?
         ORDER BY b.id`, userID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    boxes := make([]model.Box, 0)
    for rows.Next() {
        var b model.Box
        if err := rows.Scan(&b.ID, &b.Name, &b.Location, &b.PhysicalID, &b.IsAvailable, &b.CreatedAt, &b.UpdatedAt); err != nil {
            return nil, err
        }
        boxes = append(boxes, b)
    }
    return boxes, rows.Err()
}

// BoxUpdate carries the optional fields of a partial box update.
type BoxUpdate struct {
    Name       *string
    Location   *string
    PhysicalID *uint64
}

// Update applies a partial update. It deliberately cannot touch
// is_available; see MarkUnavailableTx and ResetAvailability.
func (r *BoxRepo) Update(ctx context.Context, id uint64, upd BoxUpdate) error {
    sets := make([]string, 0, 3)
    args := make([]interface{}, 0, 4)
    if upd.Name != nil {
        sets = append(sets, "name=?")
        args = append(args, *upd.Name)
    }
    if upd.Location != nil {
        sets = append(sets, "location=?")
        args = append(args, *upd.Location)
    }
    if upd.PhysicalID != nil {
        sets = append(sets, "physical_id=?")
        args = append(args, *upd.PhysicalID)
    }
    if len(sets) == 0 {
        return nil
    }
    args = append(args, id)
    res, err := r.db.ExecContext(ctx,
        "UPDATE boxes SET "+strings.Join(sets, ",")+" WHERE id=?", args...)
    if err != nil {
        if strings.Contains(strings.ToLower(err.Error()), "1062") {
            return ErrConflict
        }
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

// Delete removes a box and, via foreign keys, its access list.
func (r *BoxRepo) Delete(ctx context.Context, id uint64) error {
    res, err := r.db.ExecContext(ctx, "DELETE FROM boxes WHERE id=?", id)
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

// MarkUnavailableTx performs the atomic conditional update at the
// heart of the unlock protocol: flip is_available to 0 only if it is
// currently 1. The single UPDATE statement is the compare-and-set; of
// all transactions racing on the same box, exactly one observes
// RowsAffected == 1. Losers get ErrBoxUnavailable and must roll back.
func (r *BoxRepo) MarkUnavailableTx(ctx context.Context, tx *sql.Tx, boxID uint64) error {
    res, err := tx.ExecContext(ctx,
        "UPDATE boxes SET is_available = 0 WHERE id = ? AND is_available = 1", boxID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrBoxUnavailable
    }
    return nil
}

// ResetAvailability closes the loop after a physical pickup: an admin
// (or the box hardware reporting its door closed) marks the box
// available again. Returns sql.ErrNoRows when the box does not exist.
func (r *BoxRepo) ResetAvailability(ctx context.Context, boxID uint64) error {
    res, err := r.db.ExecContext(ctx,
        "UPDATE boxes SET is_available = 1 WHERE id = ?", boxID)
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

// HasAccess reports whether the user appears in the box's access list.
func (r *BoxRepo) HasAccess(ctx context.Context, boxID, userID uint64) (bool, error) {
    var one int
    err := r.db.QueryRowContext(ctx,
        "SELECT 1 FROM box_access WHERE box_id=? AND user_id=? LIMIT 1",
        boxID, userID).Scan(&one)
    if err == sql.ErrNoRows {
        return false, nil
    }
    if err != nil {
        return false, err
    }
    return true, nil
}

// GrantAccess adds a user to a box's access list. Granting twice is
// reported as ErrAlreadyAuthorized.
func (r *BoxRepo) GrantAccess(ctx context.Context, boxID, userID uint64) error {
    _, err := r.db.ExecContext(ctx,
        "INSERT INTO box_access (box_id, user_id) VALUES (?,?)", boxID, userID)
    if err != nil && strings.Contains(strings.ToLower(err.Error()), "1062") {
        return ErrAlreadyAuthorized
    }
    return err
}

// GrantAccessTx is the transactional variant used when an order
// completes: the orderer gains pickup access in the same transaction
// that flips the order to READY. The INSERT IGNORE makes the grant
// idempotent.
func (r *BoxRepo) GrantAccessTx(ctx context.Context, tx *sql.Tx, boxID, userID uint64) error {
    _, err := tx.ExecContext(ctx,
        "INSERT IGNORE INTO box_access (box_id, user_id) VALUES (?,?)", boxID, userID)
    return err
}

// RevokeAccess removes a user from a box's access list. Returns
// sql.ErrNoRows when no such grant exists.
func (r *BoxRepo) RevokeAccess(ctx context.Context, boxID, userID uint64) error {
    res, err := r.db.ExecContext(ctx,
        "DELETE FROM box_access WHERE box_id=? AND user_id=?", boxID, userID)
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

// ListAccess returns the IDs of all users allowed to open a box.
func (r *BoxRepo) ListAccess(ctx context.Context, boxID uint64) ([]uint64, error) {
    rows, err := r.db.QueryContext(ctx,
        "SELECT user_id FROM box_access WHERE box_id=? ORDER BY user_id", boxID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    ids := make([]uint64, 0)
    for rows.Next() {
        var id uint64
        if err := rows.Scan(&id); err != nil {
            return nil, err
        }
        ids = append(ids, id)
    }
    return ids, rows.Err()
}
