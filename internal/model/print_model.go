package model

import "time"

// PrintModel is a 3D model offered in the catalogue.  Users browse
// print models and order physical prints of them.  Images are stored
// as plain URLs in a side table.
//
// Fields:
//  ID                – primary key identifier.
//  Name              – display name of the model.
//  Description       – optional free-form description.
//  PriceCents        – price of one print in cents.
//  EstimatedPrintMin – estimated print duration in minutes, used to
//                      auto-complete orders.
//  CreatedBy         – user who added the model (nullable).
//  CreatedAt         – timestamp of creation.
type PrintModel struct {
    ID                uint64    // print_models.id
    Name              string    // print_models.name
    Description       string    // print_models.description
    PriceCents        uint32    // print_models.price_cents
    EstimatedPrintMin uint32    // print_models.estimated_print_min
    CreatedBy         *uint64   // print_models.created_by (nullable)
    CreatedAt         time.Time // print_models.created_at
}
