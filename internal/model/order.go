package model

import "time"

// Order statuses.  An order starts PRINTING (the printer begins
// immediately), flips to READY once the model's estimated print time
// has elapsed, and may be CANCELLED by its owner while still PENDING or
// PRINTING.
const (
    OrderPending   = "PENDING"
    OrderPrinting  = "PRINTING"
    OrderReady     = "READY"
    OrderCancelled = "CANCELLED"
)

// Order records a user's request to print a model and, once the print
// is finished, which box holds the result for pickup.
//
// Fields:
//  ID                – primary key identifier.
//  ModelID           – print model being printed.
//  UserID            – user who placed the order.
//  BoxID             – box assigned for pickup (nullable until assigned).
//  Status            – one of the Order* constants above.
//  CreatedAt         – creation timestamp.
//  StartedPrintingAt – when printing began (nullable).
//  CompletedAt       – when the order became READY or was cancelled
//                      mid-print (nullable).
type Order struct {
    ID                uint64     // orders.id
    ModelID           uint64     // orders.model_id
    UserID            uint64     // orders.user_id
    BoxID             *uint64    // orders.box_id (nullable)
    Status            string     // orders.status
    CreatedAt         time.Time  // orders.created_at
    StartedPrintingAt *time.Time // orders.started_printing_at (nullable)
    CompletedAt       *time.Time // orders.completed_at (nullable)
}
