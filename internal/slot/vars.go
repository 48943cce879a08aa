package slot

import "time"

// VarKey identifies a context variable stored on a slot controller.
// Variables ride the slot through SwitchSlots and survive engine
// rebinds; they are cleared when the slot is released.
type VarKey int

const (
	// VarPlayerContext holds the player context currently bound to the
	// slot, stored as an opaque value so this package stays independent
	// of the context layer above it.
	VarPlayerContext VarKey = iota
	// VarResumePosition holds the playback position to restore when the
	// same resource is reopened.
	VarResumePosition
	// VarSubtitleTrack holds the selected subtitle track name.
	VarSubtitleTrack
	// VarPlaybackRate holds the last requested playback rate in percent.
	VarPlaybackRate
)

type varKind int

const (
	varString varKind = iota
	varInt
	varDuration
	varOpaque
)

// Var is a small tagged-union value for slot context variables.
type Var struct {
	kind varKind
	s    string
	i    int
	d    time.Duration
	o    any
}

func StringVar(s string) Var        { return Var{kind: varString, s: s} }
func IntVar(i int) Var              { return Var{kind: varInt, i: i} }
func DurationVar(d time.Duration) Var { return Var{kind: varDuration, d: d} }
func OpaqueVar(v any) Var           { return Var{kind: varOpaque, o: v} }

// Str returns the string value, or "" if the variable holds another kind.
func (v Var) Str() string {
	if v.kind != varString {
		return ""
	}
	return v.s
}

// Int returns the int value, or 0 if the variable holds another kind.
func (v Var) Int() int {
	if v.kind != varInt {
		return 0
	}
	return v.i
}

// Duration returns the duration value, or 0 if the variable holds
// another kind.
func (v Var) Duration() time.Duration {
	if v.kind != varDuration {
		return 0
	}
	return v.d
}

// Opaque returns the opaque value, or nil if the variable holds another
// kind.
func (v Var) Opaque() any {
	if v.kind != varOpaque {
		return nil
	}
	return v.o
}
