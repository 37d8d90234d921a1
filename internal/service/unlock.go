// Package service holds the business logic that spans more than one
// repository: the box unlock protocol, the order lifecycle and the
// broker publisher.
package service

import (
    "context"
    "errors"
    "log"

    "github.com/printhub/printhub/internal/model"
    "github.com/printhub/printhub/internal/repository"
)

// UnlockService decides whether a user may open a box and performs
// the open as one atomic transition. Correctness under concurrent
// requests is delegated entirely to the database: the availability
// flip is a single conditional UPDATE (see BoxRepo.MarkUnavailableTx)
// and the ledger row for a winning attempt commits in the same
// transaction. There is no in-process locking and no retry loop;
// losers fail fast with ErrBoxUnavailable.
type UnlockService struct {
    Users   *repository.UserRepo
    Boxes   *repository.BoxRepo
    Unlocks *repository.UnlockRepo
}

// NewUnlockService constructs an UnlockService. All dependencies must
// be non-nil.
func NewUnlockService(users *repository.UserRepo, boxes *repository.BoxRepo, unlocks *repository.UnlockRepo) *UnlockService {
    if users == nil || boxes == nil || unlocks == nil {
        panic("nil repository passed to NewUnlockService")
    }
    return &UnlockService{Users: users, Boxes: boxes, Unlocks: unlocks}
}

// UnlockResult carries the outcome of a winning unlock attempt: the
// box in its new (unavailable) state and the ledger row recording the
// open.
type UnlockResult struct {
    Box    model.Box
    Unlock model.Unlock
}

// AttemptUnlock runs the unlock protocol for one (user, box) pair.
//
// Errors:
//   - sql.ErrNoRows when the user or the box does not exist; nothing
//     is mutated or recorded.
//   - repository.ErrForbidden when the user is not in the box's access
//     list; the box is untouched and a success=false ledger row is
//     appended.
//   - repository.ErrBoxUnavailable when the conditional update found
//     the box already open; the transaction is rolled back and no
//     ledger row is written.
//
// Any other error means the transaction was aborted; the box's
// availability is unchanged.
func (s *UnlockService) AttemptUnlock(ctx context.Context, userID, boxID uint64) (*UnlockResult, error) {
    if _, err := s.Users.GetByID(ctx, userID); err != nil {
        return nil, err
    }
    box, err := s.Boxes.GetByID(ctx, boxID)
    if err != nil {
        return nil, err
    }

    ok, err := s.Boxes.HasAccess(ctx, boxID, userID)
    if err != nil {
        return nil, err
    }
    if !ok {
        // Refused attempts are ledgered too, outside the transaction:
        // there is no box mutation for the row to be atomic with, and
        // the refusal stands even if the ledger write fails.
        if _, recErr := s.Unlocks.Create(ctx, userID, boxID, false); recErr != nil {
            log.Printf("unlock: recording refused attempt user=%d box=%d: %v", userID, boxID, recErr)
        }
        return nil, repository.ErrForbidden
    }

    tx, err := s.Boxes.DB().BeginTx(ctx, nil)
    if err != nil {
        return nil, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    if err := s.Boxes.MarkUnavailableTx(ctx, tx, boxID); err != nil {
        return nil, err
    }
    rec, err := s.Unlocks.CreateTx(ctx, tx, userID, boxID, true)
    if err != nil {
        return nil, err
    }
    if err := tx.Commit(); err != nil {
        return nil, err
    }
    committed = true

    box.IsAvailable = false
    return &UnlockResult{Box: box, Unlock: rec}, nil
}

// CheckAccess is the flat membership test used by the box hardware:
// it resolves a box by internal or physical id and reports whether
// the user may open it. No state is touched.
func (s *UnlockService) CheckAccess(ctx context.Context, userID uint64, boxID, physicalID *uint64) (bool, error) {
    var box model.Box
    var err error
    switch {
    case boxID != nil:
        box, err = s.Boxes.GetByID(ctx, *boxID)
    case physicalID != nil:
        box, err = s.Boxes.GetByPhysicalID(ctx, *physicalID)
    default:
        return false, errors.New("box_id or physical_id required")
    }
    if err != nil {
        return false, err
    }
    return s.Boxes.HasAccess(ctx, box.ID, userID)
}
