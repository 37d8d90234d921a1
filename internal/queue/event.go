// Package queue defines message payloads exchanged over the message broker.
package queue

// BoxUnlockedEvent is published after a box unlock commits. It carries
// enough information for downstream consumers to log, notify, or drive
// analytics without querying the primary database.
type BoxUnlockedEvent struct {
    UnlockID   uint64 `json:"unlock_id"`
    UserID     uint64 `json:"user_id"`
    Username   string `json:"username"`
    BoxID      uint64 `json:"box_id"`
    BoxName    string `json:"box_name"`
    PhysicalID uint64 `json:"physical_id"`
    Location   string `json:"location"`
    UnlockedAt string `json:"unlocked_at"`
}
