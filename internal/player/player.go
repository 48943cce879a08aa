// Package player defines the contract between the orchestration core and
// concrete playback engines. Engines live in external packages (plugins,
// wrappers around native players); the core only ever talks to them through
// the interfaces below.
package player

import "time"

// MediaType classifies what an engine renders.
type MediaType int

const (
	TypeNone MediaType = iota
	TypeAudio
	TypeVideo
)

// String returns the media type name.
func (t MediaType) String() string {
	switch t {
	case TypeAudio:
		return "Audio"
	case TypeVideo:
		return "Video"
	case TypeNone:
		return "None"
	default:
		return "Unknown"
	}
}

// Capability is a bit in an engine's declared capability set. Engines
// declare their capabilities once at construction; the core caches the set
// at bind time and never probes per call.
type Capability uint32

const (
	// CanPause: the engine implements PlaybackControl.
	CanPause Capability = 1 << iota
	// CanSeek: PlaybackControl.SetPosition is honored.
	CanSeek
	// CanVolume: the engine implements VolumeControl.
	CanVolume
	// CanReuse: the engine implements Reusable and accepts follow-up
	// resources without being rebuilt.
	CanReuse
	// CanCrossfade: the engine blends into the next resource on hand-off.
	CanCrossfade
	// CanSubtitles: the engine implements SubtitleControl.
	CanSubtitles
	// CanRate: the engine implements RateControl.
	CanRate
)

// Has reports whether all bits of want are present in c.
func (c Capability) Has(want Capability) bool {
	return c&want == want
}

// Engine is one active playback engine instance, exclusively owned by a
// single slot while bound. Stop must be idempotent.
type Engine interface {
	Name() string
	MediaType() MediaType
	State() State
	Capabilities() Capability
	Stop()
}

// Builder constructs engines for media resources.
//
// TryBuild returns (nil, nil) when the builder simply cannot play the
// resource; that is a non-match, not an error. It may block on I/O while
// probing the resource, so the core never calls it from a notification
// delivery path.
type Builder interface {
	TryBuild(locator, mimeType string) (Engine, error)
}

// PlaybackControl is the optional transport surface (CanPause/CanSeek).
type PlaybackControl interface {
	Pause()
	Resume()
	Restart()
	Position() time.Duration
	Duration() time.Duration
	SetPosition(time.Duration)
}

// VolumeControl is the optional audio surface (CanVolume). Volume is
// 0..100.
type VolumeControl interface {
	SetVolume(volume int)
	SetMuted(muted bool)
}

// Reusable is implemented by engines that can switch to the next resource
// in place (CanReuse), avoiding an engine rebuild on playlist advance.
// NextResource returns false if the engine cannot play the given resource,
// in which case the slot falls back to a full rebuild.
type Reusable interface {
	NextResource(locator, mimeType string) bool
}

// SubtitleControl is the optional subtitle surface (CanSubtitles).
type SubtitleControl interface {
	Subtitles() []string
	SetSubtitle(name string) bool
}

// RateControl is the optional playback-rate surface (CanRate).
type RateControl interface {
	Rate() float64
	SetRate(rate float64) bool
}

// EventCallbacks carries the callbacks a slot registers on an engine at
// bind time. Engines invoke them from their own threads; all of them are
// optional and may be nil.
type EventCallbacks struct {
	OnStarted      func()
	OnStateReady   func()
	OnStopped      func()
	OnEnded        func()
	OnStateChanged func()
	OnError        func(err error)
	// OnRequestNext is only fired by CanReuse engines that want the next
	// resource ahead of time (gapless hand-off).
	OnRequestNext func()
}

// EventSource is implemented by engines that report runtime events.
// ResetEvents detaches all callbacks; the engine must not invoke a
// callback after ResetEvents returns.
type EventSource interface {
	InitEvents(cb EventCallbacks)
	ResetEvents()
}
