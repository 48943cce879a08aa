package playlist

// PlayMode decides the traversal order of a playlist.
type PlayMode int

const (
	// Continuous plays entries in insertion order.
	Continuous PlayMode = iota
	// Shuffle plays entries in a random permutation computed once per
	// shuffle session. The stored entry order is not touched.
	Shuffle
)

// String returns the play mode name.
func (m PlayMode) String() string {
	switch m {
	case Continuous:
		return "Continuous"
	case Shuffle:
		return "Shuffle"
	default:
		return "Unknown"
	}
}

// RepeatMode decides what happens at the end of the play order.
type RepeatMode int

const (
	// RepeatNone stops after the last entry.
	RepeatNone RepeatMode = iota
	// RepeatOne repeats the current entry forever.
	RepeatOne
	// RepeatAll wraps around to the start of the play order.
	RepeatAll
)

// String returns the repeat mode name.
func (m RepeatMode) String() string {
	switch m {
	case RepeatNone:
		return "None"
	case RepeatOne:
		return "One"
	case RepeatAll:
		return "All"
	default:
		return "Unknown"
	}
}
