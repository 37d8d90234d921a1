package service

import (
    "context"
    "time"

    "github.com/printhub/printhub/internal/model"
    "github.com/printhub/printhub/internal/repository"
)

// OrderService owns the order lifecycle rules that involve both the
// orders table and box access: auto-completing prints whose estimated
// time has elapsed, and admin status transitions. Completion and the
// pickup-access grant always commit together.
type OrderService struct {
    Orders *repository.OrderRepo
    Boxes  *repository.BoxRepo
}

// NewOrderService constructs an OrderService. Dependencies must be non-nil.
func NewOrderService(orders *repository.OrderRepo, boxes *repository.BoxRepo) *OrderService {
    if orders == nil || boxes == nil {
        panic("nil repository passed to NewOrderService")
    }
    return &OrderService{Orders: orders, Boxes: boxes}
}

// Refresh checks whether a printing order's estimated time has
// elapsed and, if so, flips it to READY and grants the orderer pickup
// access on the assigned box, both in one transaction. Orders in any
// other state pass through untouched. Safe to call on every read; the
// FOR UPDATE snapshot plus the status predicate in MarkReadyTx keep
// concurrent refreshes from completing the same order twice.
func (s *OrderService) Refresh(ctx context.Context, orderID uint64) error {
    tx, err := s.Orders.DB().BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    st, err := s.Orders.GetPrintingStateTx(ctx, tx, orderID)
    if err != nil {
        return err
    }
    if st.Status != model.OrderPrinting || st.StartedPrintingAt == nil {
        return nil
    }
    due := st.StartedPrintingAt.Add(time.Duration(st.EstimatedPrintMin) * time.Minute)
    if time.Now().UTC().Before(due) {
        return nil
    }
    flipped, err := s.Orders.MarkReadyTx(ctx, tx, orderID)
    if err != nil {
        return err
    }
    if flipped && st.BoxID != nil {
        if err := s.Boxes.GrantAccessTx(ctx, tx, *st.BoxID, st.UserID); err != nil {
            return err
        }
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// RefreshAll runs Refresh over a list of order details, tolerating
// per-order failures so one broken row cannot block a listing.
func (s *OrderService) RefreshAll(ctx context.Context, details []repository.OrderDetail) {
    for _, d := range details {
        if d.Status == model.OrderPrinting {
            _ = s.Refresh(ctx, d.ID)
        }
    }
}

// AdminUpdate applies an admin's partial order update. A transition
// to READY requires an assigned box (either already on the order or
// part of this update) and grants the orderer pickup access in the
// same transaction. Returns sql.ErrNoRows for a missing order and
// repository.ErrConflict for a READY transition without a box.
func (s *OrderService) AdminUpdate(ctx context.Context, orderID uint64, upd repository.OrderUpdate) error {
    tx, err := s.Orders.DB().BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    st, err := s.Orders.GetPrintingStateTx(ctx, tx, orderID)
    if err != nil {
        return err
    }
    toReady := upd.Status != nil && *upd.Status == model.OrderReady
    boxID := st.BoxID
    if upd.BoxID != nil {
        boxID = upd.BoxID
    }
    if toReady && boxID == nil {
        return repository.ErrConflict
    }
    if err := s.Orders.AdminUpdateTx(ctx, tx, orderID, upd); err != nil {
        return err
    }
    if toReady {
        if err := s.Boxes.GrantAccessTx(ctx, tx, *boxID, st.UserID); err != nil {
            return err
        }
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}
