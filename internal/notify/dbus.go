//go:build linux

package notify

import (
	"github.com/godbus/dbus/v5"
)

const (
	notifDest  = "org.freedesktop.Notifications"
	notifPath  = "/org/freedesktop/Notifications"
	notifIface = "org.freedesktop.Notifications"
)

type dbusNotifier struct {
	obj dbus.BusObject
}

// New connects to the session bus and returns a Notifier backed by the
// org.freedesktop.Notifications service. Without a session bus it
// degrades to a no-op notifier rather than failing startup.
func New() (Notifier, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return noopNotifier{}, nil //nolint:nilerr // headless runs just lose popups
	}
	return &dbusNotifier{obj: conn.Object(notifDest, notifPath)}, nil
}

func (n *dbusNotifier) Notify(notif Notification) (uint32, error) {
	// Notify(app_name, replaces_id, app_icon, summary, body, actions,
	// hints, expire_timeout) -> id
	call := n.obj.Call(notifIface+".Notify", 0,
		"Undertow",
		notif.ReplacesID,
		notif.Icon,
		notif.Title,
		notif.Body,
		[]string{},
		map[string]dbus.Variant{
			"urgency":       dbus.MakeVariant(byte(notif.Urgency)),
			"desktop-entry": dbus.MakeVariant("undertow"),
		},
		notif.Timeout,
	)
	if call.Err != nil {
		return 0, call.Err
	}

	var id uint32
	if err := call.Store(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (n *dbusNotifier) Dismiss(id uint32) error {
	return n.obj.Call(notifIface+".CloseNotification", 0, id).Err
}
