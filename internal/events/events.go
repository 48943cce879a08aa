// Package events implements the asynchronous notification channel of the
// player orchestration core. State changes are raised from UI threads,
// engine callback threads and the orchestrator itself; the bus decouples
// delivery from the raising thread while preserving the order in which
// events were published.
package events

import "github.com/google/uuid"

// Type identifies a notification.
type Type int

const (
	// Player-level events, raised by a slot controller for its bound
	// engine. Tagged with the slot index and activation sequence.
	PlayerStarted Type = iota
	PlayerStateReady
	PlayerStopped
	PlayerEnded
	PlaybackStateChanged
	PlayerError
	RequestNextItem

	// Slot-level events, raised by the slot manager.
	PlayerSlotActivated
	PlayerSlotDeactivated
	PlayerSlotStarted
	PlayerSlotsChanged
	AudioSlotChanged
	PlayersMuted
	PlayersResetMute
	VolumeChanged

	// Context-level events, raised by the context manager.
	CurrentPlayerChanged
	PlaylistAdvance
	PlaylistPropertiesChanged
)

// String returns the event type name.
func (t Type) String() string {
	switch t {
	case PlayerStarted:
		return "PlayerStarted"
	case PlayerStateReady:
		return "PlayerStateReady"
	case PlayerStopped:
		return "PlayerStopped"
	case PlayerEnded:
		return "PlayerEnded"
	case PlaybackStateChanged:
		return "PlaybackStateChanged"
	case PlayerError:
		return "PlayerError"
	case RequestNextItem:
		return "RequestNextItem"
	case PlayerSlotActivated:
		return "PlayerSlotActivated"
	case PlayerSlotDeactivated:
		return "PlayerSlotDeactivated"
	case PlayerSlotStarted:
		return "PlayerSlotStarted"
	case PlayerSlotsChanged:
		return "PlayerSlotsChanged"
	case AudioSlotChanged:
		return "AudioSlotChanged"
	case PlayersMuted:
		return "PlayersMuted"
	case PlayersResetMute:
		return "PlayersResetMute"
	case VolumeChanged:
		return "VolumeChanged"
	case CurrentPlayerChanged:
		return "CurrentPlayerChanged"
	case PlaylistAdvance:
		return "PlaylistAdvance"
	case PlaylistPropertiesChanged:
		return "PlaylistPropertiesChanged"
	default:
		return "Unknown"
	}
}

// Message is one notification. SlotIndex is -1 for events that are not
// slot-scoped. Sequence carries the slot's activation sequence valid when
// the event was raised; a consumer holding a newer sequence for the same
// slot must discard the event as stale.
type Message struct {
	Type      Type
	SlotIndex int
	Sequence  uint64
	ContextID uuid.UUID
	Err       error
}
