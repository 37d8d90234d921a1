package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/printhub/printhub/internal/model"
)

// StatsRepo aggregates reporting queries for the admin dashboard.
type StatsRepo struct {
    db *sql.DB
}

// NewStatsRepo returns a new StatsRepo bound to the given database.
func NewStatsRepo(db *sql.DB) *StatsRepo { return &StatsRepo{db: db} }

// Overview groups the headline numbers shown on the admin dashboard.
// AvailableBoxes counts boxes not tied to an active (pending or
// printing) order; revenue sums the model price of every order that
// reached READY.
type Overview struct {
    TotalOrders       uint64 `json:"total_orders"`
    UserCount         uint64 `json:"user_count"`
    AvailableBoxes    uint64 `json:"available_boxes"`
    TotalRevenueCents uint64 `json:"total_revenue_cents"`
}

// GetOverview computes the dashboard headline numbers.
func (r *StatsRepo) GetOverview(ctx context.Context) (Overview, error) {
    var o Overview
    if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders").Scan(&o.TotalOrders); err != nil {
        return o, err
    }
    if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&o.UserCount); err != nil {
        return o, err
    }
    const busyQ = `SELECT (SELECT COUNT(*) FROM boxes) -
                          (SELECT COUNT(DISTINCT box_id) FROM orders
                           WHERE box_id IS NOT NULL AND status IN (?, ?))`
    if err := r.db.QueryRowContext(ctx, busyQ, model.OrderPending, model.OrderPrinting).Scan(&o.AvailableBoxes); err != nil {
        return o, err
    }
    const revQ = `SELECT COALESCE(SUM(m.price_cents), 0)
                  FROM orders o
                  JOIN print_models m ON m.id = o.model_id
                  WHERE o.status = ?`
    var revenue sql.NullInt64
    if err := r.db.QueryRowContext(ctx, revQ, model.OrderReady).Scan(&revenue); err != nil {
        return o, err
    }
    if revenue.Valid {
        o.TotalRevenueCents = uint64(revenue.Int64)
    }
    return o, nil
}

// TopModel pairs a model name with how often it was ordered.
type TopModel struct {
    Name       string `json:"name"`
    OrderCount uint64 `json:"order_count"`
}

// TopModels returns the most ordered models, descending, capped at limit.
func (r *StatsRepo) TopModels(ctx context.Context, limit int) ([]TopModel, error) {
    const q = `SELECT m.name, COUNT(*) AS order_count
               FROM orders o
               JOIN print_models m ON m.id = o.model_id
               GROUP BY o.model_id, m.name
               ORDER BY order_count DESC
               LIMIT ?`
    rows, err := r.db.QueryContext(ctx, q, limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]TopModel, 0, limit)
    for rows.Next() {
        var t TopModel
        if err := rows.Scan(&t.Name, &t.OrderCount); err != nil {
            return nil, err
        }
        out = append(out, t)
    }
    return out, rows.Err()
}

// RecentOrder is a compact row for the dashboard's latest-orders list.
type RecentOrder struct {
    ID        uint64 `json:"id"`
    ModelName string `json:"model_name"`
    Username  string `json:"username"`
    Status    string `json:"status"`
    CreatedAt string `json:"created_at"`
}

// RecentOrders returns the latest orders, capped at limit.
func (r *StatsRepo) RecentOrders(ctx context.Context, limit int) ([]RecentOrder, error) {
    const q = `SELECT o.id, m.name, u.username, o.status, o.created_at
               FROM orders o
               JOIN print_models m ON m.id = o.model_id
               JOIN users u ON u.id = o.user_id
               ORDER BY o.created_at DESC, o.id DESC
               LIMIT ?`
    rows, err := r.db.QueryContext(ctx, q, limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]RecentOrder, 0, limit)
    for rows.Next() {
        var ro RecentOrder
        var createdAt time.Time
        if err := rows.Scan(&ro.ID, &ro.ModelName, &ro.Username, &ro.Status, &createdAt); err != nil {
            return nil, err
        }
        ro.CreatedAt = createdAt.UTC().Format(time.RFC3339)
        out = append(out, ro)
    }
    return out, rows.Err()
}
