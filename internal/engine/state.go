package engine

// State represents the transport state machine.
//
// Valid transitions:
//   - Idle    → Loading (Start)
//   - Loading → Playing (asset ready)
//   - Loading → Loading (asset missing, auto-advance)
//   - Loading → Paused  (session restore)
//   - Loading → Ended   (queue exhausted)
//   - Playing → Paused  (Pause / interruption)
//   - Paused  → Playing (Play)
//   - Playing/Paused → Loading (Next / Previous / natural end)
//   - Playing → Ended   (natural end with nothing left)
//   - any     → Idle    (Clear)
//
// Seek keeps the state, changing only the position. Invalid commands for
// the current state are ignored and logged.
type State int

const (
	StateIdle State = iota
	StateLoading
	StatePlaying
	StatePaused
	StateEnded
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateLoading:
		return "Loading"
	case StatePlaying:
		return "Playing"
	case StatePaused:
		return "Paused"
	case StateEnded:
		return "Ended"
	default:
		return "Unknown"
	}
}

// IsActive returns true if an item is loaded or being loaded.
func (s State) IsActive() bool {
	return s == StateLoading || s == StatePlaying || s == StatePaused
}

// IsTerminal returns true for the states with no current item.
func (s State) IsTerminal() bool {
	return s == StateIdle || s == StateEnded
}
