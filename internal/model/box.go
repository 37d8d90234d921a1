package model

import "time"

// Box represents a networked pickup locker housing a 3D printer.
// The IsAvailable flag is the single piece of state contended over by
// concurrent unlock requests: true means the door is closed and may be
// opened, false means it is currently open.  The flag must only be
// flipped true→false through the conditional update in the box
// repository, never through a plain read-modify-write.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – human readable name of the box.
//  Location    – where the box is installed.
//  PhysicalID  – unique identifier printed on the hardware unit.
//  IsAvailable – true when closed/openable, false while open.
//  CreatedAt   – timestamp of creation.
//  UpdatedAt   – timestamp of last update.
type Box struct {
    ID          uint64    // boxes.id
    Name        string    // boxes.name
    Location    string    // boxes.location
    PhysicalID  uint64    // boxes.physical_id
    IsAvailable bool      // boxes.is_available
    CreatedAt   time.Time // boxes.created_at
    UpdatedAt   time.Time // boxes.updated_at
}
