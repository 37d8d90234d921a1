package model

import "time"

// Unlock is a single row of the append-only unlock ledger.  One record
// is written per recorded unlock attempt: success is true when the
// attempt won the box's availability flag, false when the attempt was
// refused for lack of authorization.  Ledger rows are never updated
// after creation.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – user who requested the unlock.
//  BoxID     – box the unlock was requested for.
//  Success   – whether the box was actually opened.
//  CreatedAt – when the attempt happened.
type Unlock struct {
    ID        uint64    // unlocks.id
    UserID    uint64    // unlocks.user_id
    BoxID     uint64    // unlocks.box_id
    Success   bool      // unlocks.success
    CreatedAt time.Time // unlocks.created_at
}
