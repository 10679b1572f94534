package registry

import (
	"strconv"
	"time"
)

// Handle correlates an initiated call with its completion callback.
// Handle 0 is reserved and never issued.
type Handle uint32

func (h Handle) String() string {
	return strconv.FormatUint(uint64(h), 10)
}

// Decoder converts the payload fields of a successful completion into the
// call's result shape.
type Decoder[T any] func(fields []string) (T, error)

// EventType identifies a pending-call lifecycle transition.
type EventType uint8

const (
	EventBegun EventType = iota
	EventCompleted
	EventFailed
	EventCancelled
	EventReleased
	EventAnomaly
	EventClosed
)

func (t EventType) String() string {
	switch t {
	case EventBegun:
		return "begun"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	case EventCancelled:
		return "cancelled"
	case EventReleased:
		return "released"
	case EventAnomaly:
		return "anomaly"
	case EventClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event represents a pending-call lifecycle event.
type Event struct {
	Err    error
	Label  string
	Handle Handle
	Type   EventType
}

// Observer receives notifications about pending-call lifecycle events.
// Observers are called outside the table lock but must not block.
// Unsubscribe matches observers with ==, so they must be comparable; use a
// pointer.
type Observer interface {
	OnCallEvent(Event)
}

// Entry is a point-in-time view of an outstanding call.
type Entry struct {
	Started time.Time
	Label   string
	Age     time.Duration
	Handle  Handle
}

// Stats holds cumulative counters for a registry.
type Stats struct {
	Begun       uint64
	Completed   uint64
	Failed      uint64
	Cancelled   uint64
	Closed      uint64
	Released    uint64
	Anomalies   uint64
	Outstanding int
}

// Config holds registry configuration.
type Config struct {
	// MaxAge reclaims entries that have been outstanding longer than this,
	// failing them with a timeout. 0 disables reclamation.
	MaxAge time.Duration

	// ReapInterval is how often Run scans for expired entries.
	// 0 means MaxAge/4, floored at 10ms.
	ReapInterval time.Duration
}

func (c Config) reapInterval() time.Duration {
	if c.ReapInterval > 0 {
		return c.ReapInterval
	}
	d := c.MaxAge / 4
	if d < 10*time.Millisecond {
		d = 10 * time.Millisecond
	}
	return d
}
