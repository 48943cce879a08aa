package playback

import (
	"time"

	"github.com/google/uuid"

	"github.com/ltreguier/greenroom/internal/player"
	"github.com/ltreguier/greenroom/internal/playlist"
	"github.com/ltreguier/greenroom/internal/slot"
)

// AVType classifies a player context by the kind of media it plays.
type AVType int

const (
	AVNone AVType = iota
	AVAudio
	AVVideo
)

// String returns the media class name.
func (t AVType) String() string {
	switch t {
	case AVAudio:
		return "Audio"
	case AVVideo:
		return "Video"
	default:
		return "None"
	}
}

// seekStep is the position change applied by SeekForward and
// SeekBackward.
const seekStep = 10 * time.Second

// Context is a logical playback session owned by a client module: a
// playlist bound to a player slot, plus the behavior flags the client
// chose when opening it. A context stays usable across engine rebinds
// it issues itself (playlist advance, item switch); it becomes invalid
// as soon as its slot is released or foreign playback rebinds the slot.
//
// Transport operations on an invalid context are no-ops, as are
// operations requiring a capability the bound engine did not declare.
// All mutable state is guarded by the owning Manager's lock.
type Context struct {
	id       uuid.UUID
	moduleID string
	name     string
	avType   AVType

	mgr  *Manager
	slot *slot.Controller

	// seq tracks the slot's activation sequence as of the last engine
	// bind this context issued; the context is valid while it matches.
	seq uint64

	playlist          *playlist.Playlist
	closeWhenFinished bool

	// Workflow anchors of the owning client module.
	currentlyPlayingStateID uuid.UUID
	fullscreenStateID       uuid.UUID
}

func newContext(mgr *Manager, moduleID, name string, avType AVType, c *slot.Controller,
	currentlyPlayingStateID, fullscreenStateID uuid.UUID) *Context {
	ctx := &Context{
		id:                      uuid.New(),
		moduleID:                moduleID,
		name:                    name,
		avType:                  avType,
		mgr:                     mgr,
		slot:                    c,
		seq:                     c.Sequence(),
		playlist:                playlist.New(),
		currentlyPlayingStateID: currentlyPlayingStateID,
		fullscreenStateID:       fullscreenStateID,
	}
	ctx.playlist.SetOnChanged(func() { mgr.notifyPlaylistChanged(ctx) })
	return ctx
}

// ID returns the context's unique id.
func (ctx *Context) ID() uuid.UUID { return ctx.id }

// ModuleID returns the id of the client module that opened the context.
func (ctx *Context) ModuleID() string { return ctx.moduleID }

// Name returns the display name given when the context was opened.
func (ctx *Context) Name() string { return ctx.name }

// AVType returns the context's media class.
func (ctx *Context) AVType() AVType { return ctx.avType }

// CurrentlyPlayingStateID returns the workflow state to show for the
// context's "currently playing" screen.
func (ctx *Context) CurrentlyPlayingStateID() uuid.UUID { return ctx.currentlyPlayingStateID }

// FullscreenContentStateID returns the workflow state to show for the
// context's fullscreen content screen.
func (ctx *Context) FullscreenContentStateID() uuid.UUID { return ctx.fullscreenStateID }

// Playlist returns the context's playlist. The playlist is not
// goroutine-safe on its own; use EditPlaylist for concurrent access.
func (ctx *Context) Playlist() *playlist.Playlist { return ctx.playlist }

// EditPlaylist runs fn with the playlist under the manager lock. All
// playlist mutations from outside the playback package go through here.
func (ctx *Context) EditPlaylist(fn func(*playlist.Playlist)) {
	ctx.mgr.mu.Lock()
	defer ctx.mgr.mu.Unlock()
	fn(ctx.playlist)
}

// CloseWhenFinished reports whether the context closes itself once its
// playlist is exhausted.
func (ctx *Context) CloseWhenFinished() bool {
	ctx.mgr.mu.Lock()
	defer ctx.mgr.mu.Unlock()
	return ctx.closeWhenFinished
}

// SetCloseWhenFinished controls whether the context closes itself once
// its playlist is exhausted.
func (ctx *Context) SetCloseWhenFinished(close bool) {
	ctx.mgr.mu.Lock()
	defer ctx.mgr.mu.Unlock()
	ctx.closeWhenFinished = close
}

// IsValid reports whether the context still owns its slot. A context
// becomes invalid when its slot is released or another playback takes
// the slot over.
func (ctx *Context) IsValid() bool {
	ctx.mgr.mu.Lock()
	defer ctx.mgr.mu.Unlock()
	return ctx.validLocked()
}

func (ctx *Context) validLocked() bool {
	if ctx.slot == nil {
		return false
	}
	return ctx.slot.State().IsActive() && ctx.slot.Sequence() == ctx.seq
}

// SlotIndex returns the index of the context's slot, or -1 when the
// context is invalid.
func (ctx *Context) SlotIndex() int {
	ctx.mgr.mu.Lock()
	defer ctx.mgr.mu.Unlock()
	if !ctx.validLocked() {
		return -1
	}
	return ctx.slot.Index()
}

// PlayerState returns the state of the bound engine, or Stopped when
// the context is invalid or no engine is bound.
func (ctx *Context) PlayerState() player.State {
	ctx.mgr.mu.Lock()
	defer ctx.mgr.mu.Unlock()
	e := ctx.engineLocked()
	if e == nil {
		return player.Stopped
	}
	return e.State()
}

// PlayerName returns the bound engine's name, or "".
func (ctx *Context) PlayerName() string {
	ctx.mgr.mu.Lock()
	defer ctx.mgr.mu.Unlock()
	e := ctx.engineLocked()
	if e == nil {
		return ""
	}
	return e.Name()
}

func (ctx *Context) engineLocked() player.Engine {
	if !ctx.validLocked() {
		return nil
	}
	return ctx.slot.Engine()
}

// Play starts or resumes playback. A paused engine is resumed; with no
// item playing it starts the playlist's current item, or the first item
// when the playlist was never started.
func (ctx *Context) Play() bool {
	ctx.mgr.mu.Lock()
	defer ctx.mgr.mu.Unlock()
	return ctx.playLocked()
}

func (ctx *Context) playLocked() bool {
	if e := ctx.engineLocked(); e != nil {
		switch e.State() {
		case player.Playing:
			return true
		case player.Paused:
			if pc, ok := e.(player.PlaybackControl); ok {
				pc.Resume()
				return true
			}
		}
	}
	if !ctx.validLocked() {
		return false
	}
	item := ctx.playlist.Current()
	if item == nil {
		item = ctx.playlist.MoveAndGetNext()
	}
	if item == nil {
		return false
	}
	return ctx.playItemLocked(item)
}

// Pause pauses playback if the bound engine supports pausing.
func (ctx *Context) Pause() bool {
	ctx.mgr.mu.Lock()
	defer ctx.mgr.mu.Unlock()
	return ctx.pauseLocked()
}

func (ctx *Context) pauseLocked() bool {
	e := ctx.engineLocked()
	if e == nil || !ctx.slot.Capabilities().Has(player.CanPause) {
		return false
	}
	pc, ok := e.(player.PlaybackControl)
	if !ok {
		return false
	}
	pc.Pause()
	return true
}

// TogglePlayPause pauses a playing engine and resumes a paused one.
// With nothing bound it behaves like Play.
func (ctx *Context) TogglePlayPause() bool {
	ctx.mgr.mu.Lock()
	defer ctx.mgr.mu.Unlock()
	if e := ctx.engineLocked(); e != nil && e.State() == player.Playing {
		return ctx.pauseLocked()
	}
	return ctx.playLocked()
}

// Stop stops playback in the context's slot. The context stays valid;
// playback can be restarted with Play.
func (ctx *Context) Stop() {
	ctx.mgr.mu.Lock()
	defer ctx.mgr.mu.Unlock()
	if !ctx.validLocked() {
		return
	}
	ctx.slot.Stop()
}

// Restart restarts the current item from the beginning, rebinding the
// engine when it cannot seek.
func (ctx *Context) Restart() bool {
	ctx.mgr.mu.Lock()
	defer ctx.mgr.mu.Unlock()
	if e := ctx.engineLocked(); e != nil && ctx.slot.Capabilities().Has(player.CanSeek) {
		if pc, ok := e.(player.PlaybackControl); ok {
			pc.Restart()
			return true
		}
	}
	if !ctx.validLocked() {
		return false
	}
	item := ctx.playlist.Current()
	if item == nil {
		return false
	}
	return ctx.playItemLocked(item)
}

// SeekForward skips forward in the current item. No-op when the engine
// cannot seek.
func (ctx *Context) SeekForward() {
	ctx.seekRelative(seekStep)
}

// SeekBackward skips backward in the current item. No-op when the
// engine cannot seek.
func (ctx *Context) SeekBackward() {
	ctx.seekRelative(-seekStep)
}

func (ctx *Context) seekRelative(delta time.Duration) {
	ctx.mgr.mu.Lock()
	defer ctx.mgr.mu.Unlock()
	e := ctx.engineLocked()
	if e == nil || !ctx.slot.Capabilities().Has(player.CanSeek) {
		return
	}
	pc, ok := e.(player.PlaybackControl)
	if !ok {
		return
	}
	pos := pc.Position() + delta
	if pos < 0 {
		pos = 0
	}
	if d := pc.Duration(); d > 0 && pos > d {
		pos = d
	}
	pc.SetPosition(pos)
}

// Position returns the playback position of the current item, or 0.
func (ctx *Context) Position() time.Duration {
	ctx.mgr.mu.Lock()
	defer ctx.mgr.mu.Unlock()
	if pc, ok := ctx.engineLocked().(player.PlaybackControl); ok {
		return pc.Position()
	}
	return 0
}

// Duration returns the duration of the current item, or 0 when unknown.
func (ctx *Context) Duration() time.Duration {
	ctx.mgr.mu.Lock()
	defer ctx.mgr.mu.Unlock()
	if pc, ok := ctx.engineLocked().(player.PlaybackControl); ok {
		return pc.Duration()
	}
	return 0
}

// NextItem advances the playlist and plays the resulting item. Returns
// false when the playlist is exhausted or the item fails to play.
func (ctx *Context) NextItem() bool {
	ctx.mgr.mu.Lock()
	defer ctx.mgr.mu.Unlock()
	return ctx.nextItemLocked()
}

func (ctx *Context) nextItemLocked() bool {
	if !ctx.validLocked() {
		return false
	}
	item := ctx.playlist.MoveAndGetNext()
	if item == nil {
		return false
	}
	return ctx.playItemLocked(item)
}

// PreviousItem steps the playlist back and plays the resulting item.
func (ctx *Context) PreviousItem() bool {
	ctx.mgr.mu.Lock()
	defer ctx.mgr.mu.Unlock()
	if !ctx.validLocked() {
		return false
	}
	item := ctx.playlist.MoveAndGetPrevious()
	if item == nil {
		return false
	}
	return ctx.playItemLocked(item)
}

// PlayItemAt plays the playlist item at the given storage index.
func (ctx *Context) PlayItemAt(index int) bool {
	ctx.mgr.mu.Lock()
	defer ctx.mgr.mu.Unlock()
	if !ctx.validLocked() {
		return false
	}
	item := ctx.playlist.MoveTo(index)
	if item == nil {
		return false
	}
	return ctx.playItemLocked(item)
}

// playItemLocked binds an engine for the item in the context's slot. A
// successful bind advances the slot's activation sequence; the context
// adopts the new sequence so it stays valid across its own rebinds
// while foreign rebinds still invalidate it.
func (ctx *Context) playItemLocked(item *playlist.Item) bool {
	if !ctx.slot.Play(item.Locator, item.MimeType) {
		return false
	}
	ctx.seq = ctx.slot.Sequence()
	return true
}

// Close releases the context and its slot.
func (ctx *Context) Close() {
	ctx.mgr.ClosePlayerContext(ctx)
}

// invalidateLocked detaches the context from its slot without touching
// the slot itself.
func (ctx *Context) invalidateLocked() {
	ctx.slot = nil
}
