// Package notify raises desktop notifications over the freedesktop
// D-Bus interface and watches the engine for track changes.
package notify

// Urgency is the freedesktop urgency hint.
type Urgency byte

const (
	UrgencyLow Urgency = iota
	UrgencyNormal
	UrgencyCritical
)

// Notification describes one popup. ReplacesID chains updates: pass the
// ID returned by an earlier Notify to swap that popup in place instead
// of stacking a new one.
type Notification struct {
	Title      string
	Body       string
	Icon       string // file path or themed icon name
	Timeout    int32  // milliseconds; -1 leaves expiry to the server
	ReplacesID uint32
	Urgency    Urgency
}

// Notifier delivers notifications to the desktop environment.
type Notifier interface {
	// Notify shows the notification and returns the server-assigned ID,
	// or 0 when delivery is unavailable.
	Notify(n Notification) (uint32, error)
	// Dismiss withdraws a previously shown notification.
	Dismiss(id uint32) error
}

// noopNotifier swallows everything. Used when no notification service
// is reachable and on platforms without one.
type noopNotifier struct{}

func (noopNotifier) Notify(Notification) (uint32, error) { return 0, nil }
func (noopNotifier) Dismiss(uint32) error                { return nil }
