//go:build !linux

package notify

// New returns a no-op notifier; desktop notifications are Linux-only.
func New() (Notifier, error) {
	return noopNotifier{}, nil
}
