package repository

import (
    "context"
    "database/sql"

    "github.com/printhub/printhub/internal/model"
)

// UnlockRepo provides append and query access to the unlocks table.
// The ledger is append-only from the application's point of view; the
// only mutation offered is an admin delete for data hygiene.
type UnlockRepo struct {
    db *sql.DB
}

// NewUnlockRepo returns a new UnlockRepo bound to the given database.
func NewUnlockRepo(db *sql.DB) *UnlockRepo { return &UnlockRepo{db: db} }

const unlockCols = "id, user_id, box_id, success, created_at"

// CreateTx appends a ledger row within the scope of an existing
// transaction. The unlock protocol uses this for winning attempts so
// the row commits (or rolls back) together with the box's
// availability flip. The created row is read back so the caller gets
// the database-assigned id and timestamp.
func (r *UnlockRepo) CreateTx(ctx context.Context, tx *sql.Tx, userID, boxID uint64, success bool) (model.Unlock, error) {
    res, err := tx.ExecContext(ctx,
        "INSERT INTO unlocks (user_id, box_id, success) VALUES (?,?,?)",
        userID, boxID, success)
    if err != nil {
        return model.Unlock{}, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return model.Unlock{}, err
    }
    var u model.Unlock
    err = tx.QueryRowContext(ctx,
        "SELECT "+unlockCols+" FROM unlocks WHERE id=?", id).
        Scan(&u.ID, &u.UserID, &u.BoxID, &u.Success, &u.CreatedAt)
    return u, err
}

// Create appends a ledger row outside any transaction. Used for
// refused attempts, which have no box mutation to be atomic with.
func (r *UnlockRepo) Create(ctx context.Context, userID, boxID uint64, success bool) (model.Unlock, error) {
    res, err := r.db.ExecContext(ctx,
        "INSERT INTO unlocks (user_id, box_id, success) VALUES (?,?,?)",
        userID, boxID, success)
    if err != nil {
        return model.Unlock{}, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return model.Unlock{}, err
    }
    var u model.Unlock
    err = r.db.QueryRowContext(ctx,
        "SELECT "+unlockCols+" FROM unlocks WHERE id=?", id).
        Scan(&u.ID, &u.UserID, &u.BoxID, &u.Success, &u.CreatedAt)
    return u, err
}

// GetByID fetches a single ledger row.
func (r *UnlockRepo) GetByID(ctx context.Context, id uint64) (model.Unlock, error) {
    var u model.Unlock
    err := r.db.QueryRowContext(ctx,
        "SELECT "+unlockCols+" FROM unlocks WHERE id=? LIMIT 1", id).
        Scan(&u.ID, &u.UserID, &u.BoxID, &u.Success, &u.CreatedAt)
    return u, err
}

func (r *UnlockRepo) queryMany(ctx context.Context, q string, args ...interface{}) ([]model.Unlock, error) {
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    unlocks := make([]model.Unlock, 0)
    for rows.Next() {
        var u model.Unlock
        if err := rows.Scan(&u.ID, &u.UserID, &u.BoxID, &u.Success, &u.CreatedAt); err != nil {
            return nil, err
        }
        unlocks = append(unlocks, u)
    }
    return unlocks, rows.Err()
}

// List returns the full ledger, newest first.
func (r *UnlockRepo) List(ctx context.Context) ([]model.Unlock, error) {
    return r.queryMany(ctx, "SELECT "+unlockCols+" FROM unlocks ORDER BY created_at DESC, id DESC")
}

// ListByUser returns a user's unlock history, newest first.
func (r *UnlockRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Unlock, error) {
    return r.queryMany(ctx,
        "SELECT "+unlockCols+" FROM unlocks WHERE user_id=? ORDER BY created_at DESC, id DESC", userID)
}

// ListByBox returns a box's unlock history, newest first.
func (r *UnlockRepo) ListByBox(ctx context.Context, boxID uint64) ([]model.Unlock, error) {
    return r.queryMany(ctx,
        "SELECT "+unlockCols+" FROM unlocks WHERE box_id=? ORDER BY created_at DESC, id DESC", boxID)
}

// Delete removes a ledger row. Admin only; returns sql.ErrNoRows when
// the row does not exist.
func (r *UnlockRepo) Delete(ctx context.Context, id uint64) error {
    res, err := r.db.ExecContext(ctx, "DELETE FROM unlocks WHERE id=?", id)
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
