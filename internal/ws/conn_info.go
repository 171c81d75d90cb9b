package ws

import "time"

// ConnInfo carries per-connection identity and trace metadata for
// lifecycle events and metrics.
type ConnInfo struct {
	ConnID      string
	UserID      int
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
