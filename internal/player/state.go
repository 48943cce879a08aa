package player

// State represents an engine's playback state machine.
//
// Valid transitions:
//   - Stopped → Playing (start)
//   - Playing → Paused  (Pause)
//   - Playing → Stopped (Stop)
//   - Playing → Ended   (resource ran out)
//   - Paused  → Playing (Resume)
//   - Paused  → Stopped (Stop)
//
// Invalid transitions are ignored by engines, never reported as errors.
type State int

const (
	Stopped State = iota
	Playing
	Paused
	Ended
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case Stopped:
		return "Stopped"
	case Playing:
		return "Playing"
	case Paused:
		return "Paused"
	case Ended:
		return "Ended"
	default:
		return "Unknown"
	}
}

// IsActive returns true while the engine holds a resource (Playing or
// Paused).
func (s State) IsActive() bool {
	return s == Playing || s == Paused
}
