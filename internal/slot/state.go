package slot

// State is the lifecycle state of a player slot.
//
// Valid transitions:
//   - Inactive → Stopped (slot opened)
//   - Stopped  → Playing (engine bound)
//   - Playing  → Stopped (engine stopped or failed)
//   - Stopped  → Inactive (slot released)
//
// A slot in Stopped state is still owned by its player context; only
// Inactive slots (and Stopped slots whose engine is gone) can be handed
// to a new context.
type State int

const (
	Inactive State = iota
	Stopped
	Playing
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Inactive:
		return "Inactive"
	case Stopped:
		return "Stopped"
	case Playing:
		return "Playing"
	default:
		return "Unknown"
	}
}

// IsActive returns true unless the slot is Inactive.
func (s State) IsActive() bool {
	return s != Inactive
}
