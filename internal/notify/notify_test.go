package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUrgency_MatchesFreedesktopHintValues(t *testing.T) {
	assert.EqualValues(t, 0, UrgencyLow)
	assert.EqualValues(t, 1, UrgencyNormal)
	assert.EqualValues(t, 2, UrgencyCritical)
}

func TestNotification_ZeroValueIsFreshLowUrgencyPopup(t *testing.T) {
	var n Notification

	assert.Equal(t, UrgencyLow, n.Urgency)
	assert.Zero(t, n.ReplacesID, "zero ReplacesID must mean a new popup")
}

func TestNoopNotifier(t *testing.T) {
	var n Notifier = noopNotifier{}

	id, err := n.Notify(Notification{Title: "x"})
	assert.NoError(t, err)
	assert.Zero(t, id)
	assert.NoError(t, n.Dismiss(0))
}
