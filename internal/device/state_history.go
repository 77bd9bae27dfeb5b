package device

import (
	"context"
	"time"
)

// State history source values.
const (
	StateHistorySourceCommand = "command"
	StateHistorySourceRestore = "restore"
	StateHistorySourceRefresh = "refresh"
)

// StateHistoryEntry is one published representation of a device.
type StateHistoryEntry struct {
	ID       int64  `json:"id"`
	DeviceID string `json:"device_id"`
	State    State  `json:"state"`

	// Source is how the state was produced (command, restore, refresh).
	Source string `json:"source"`

	CreatedAt time.Time `json:"created_at"`
}

// StateHistoryRepository stores and retrieves device state history.
//
// Implementations must be safe for concurrent use and store UTC timestamps.
type StateHistoryRepository interface {
	// RecordStateChange appends a state snapshot for the device.
	RecordStateChange(ctx context.Context, deviceID string, state State, source string) error

	// GetHistory returns entries newest first. Implementations may clamp limit.
	GetHistory(ctx context.Context, deviceID string, limit int) ([]StateHistoryEntry, error)
}
