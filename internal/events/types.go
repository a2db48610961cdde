// internal/events/types.go
package events

import (
	"time"
)

// EventType represents the type of event.
type EventType string

const (
	// Launch events
	TokenLaunchDetected EventType = "token.launch_detected"

	// Monitoring lifecycle events
	MonitoringStarted EventType = "monitoring.started"
	MonitoringStopped EventType = "monitoring.stopped"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// TokenLaunchDetectedEvent is emitted once per tracked lifetime of a mint,
// when accumulated inflow crosses the confirmation threshold. The payload is
// an immutable snapshot, not a reference into tracker state.
type TokenLaunchDetectedEvent struct {
	BaseEvent
	Mint             string    `json:"mint"`
	DetectedAt       time.Time `json:"detected_at"`
	AccumulatedSOL   float64   `json:"accumulated_sol"`
	TransactionCount int       `json:"transaction_count"`
	Source           string    `json:"source"`
}

// MonitoringStartedEvent is emitted when the detector starts polling.
type MonitoringStartedEvent struct {
	BaseEvent
	ProgramAddress string
}

// MonitoringStoppedEvent is emitted when the detector shuts down.
type MonitoringStoppedEvent struct {
	BaseEvent
	ProgramAddress string
	Reason         string // "stopped", "context_cancelled"
}
