// Package events fans lifecycle notifications from the catalog out to the
// worker's realtime transports.
package events

import "github.com/agentstation/utc"

// Type names a lifecycle notification.
type Type string

// Notification types.
const (
	SyncStarted   Type = "sync.started"
	SyncProgress  Type = "sync.progress"
	SyncFinished  Type = "sync.finished"
	Merged        Type = "canonical.merged"
	Transitioned  Type = "event.transitioned"
	SweepFinished Type = "sweep.finished"

	ClientConnected Type = "client.connected"
)

// Event is one notification.
type Event struct {
	Type      Type      `json:"type"`
	Timestamp utc.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Subscriber receives every published event. Send must not block.
type Subscriber interface {
	Send(Event) error
	Close() error
}
