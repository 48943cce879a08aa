package slot

import "errors"

var (
	// ErrNoFreeSlot is returned when both slots are occupied and none
	// can be handed to a new player.
	ErrNoFreeSlot = errors.New("slot: no free player slot")
	// ErrNoEngine is returned when no registered builder accepted the
	// resource.
	ErrNoEngine = errors.New("slot: no player engine accepted the resource")
)
