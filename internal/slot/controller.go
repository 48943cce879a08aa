package slot

import (
	"github.com/sirupsen/logrus"

	"github.com/ltreguier/greenroom/internal/events"
	"github.com/ltreguier/greenroom/internal/player"
)

// Controller manages the lifecycle of a single player slot: it binds
// and disposes engines, tracks the slot state, and forwards engine
// events to the manager's bus tagged with the activation sequence that
// was current at bind time. All controllers of a Manager share the
// manager's lock, so slot and manager state always change consistently.
type Controller struct {
	mgr *Manager
	log *logrus.Entry

	// All fields below are guarded by mgr.mu.
	index   int
	state   State
	seq     uint64
	isAudio bool
	volume  int
	muted   bool

	engine player.Engine
	caps   player.Capability

	vars map[VarKey]Var
}

func newController(mgr *Manager, index int) *Controller {
	return &Controller{
		mgr:    mgr,
		log:    mgr.log.WithField("slot", index),
		index:  index,
		volume: 100,
		vars:   make(map[VarKey]Var),
	}
}

// Index returns the slot's current position in the manager's slot
// order. It changes when the manager switches slots.
func (c *Controller) Index() int {
	c.mgr.mu.Lock()
	defer c.mgr.mu.Unlock()
	return c.index
}

// State returns the slot's lifecycle state.
func (c *Controller) State() State {
	c.mgr.mu.Lock()
	defer c.mgr.mu.Unlock()
	return c.state
}

// IsActive reports whether the slot is in Stopped or Playing state.
func (c *Controller) IsActive() bool {
	c.mgr.mu.Lock()
	defer c.mgr.mu.Unlock()
	return c.state.IsActive()
}

// Sequence returns the slot's activation sequence. The sequence
// increments whenever the slot is opened and on every successful engine
// bind, so a caller that captured it earlier can detect that the slot
// has since been reused.
func (c *Controller) Sequence() uint64 {
	c.mgr.mu.Lock()
	defer c.mgr.mu.Unlock()
	return c.seq
}

// Engine returns the currently bound engine, or nil.
func (c *Controller) Engine() player.Engine {
	c.mgr.mu.Lock()
	defer c.mgr.mu.Unlock()
	return c.engine
}

// Capabilities returns the capability set cached when the current
// engine was bound, or 0 if no engine is bound.
func (c *Controller) Capabilities() player.Capability {
	c.mgr.mu.Lock()
	defer c.mgr.mu.Unlock()
	return c.caps
}

// IsAudioSlot reports whether this slot currently owns the audio
// output.
func (c *Controller) IsAudioSlot() bool {
	c.mgr.mu.Lock()
	defer c.mgr.mu.Unlock()
	return c.isAudio
}

// Volume returns the slot's volume in percent.
func (c *Controller) Volume() int {
	c.mgr.mu.Lock()
	defer c.mgr.mu.Unlock()
	return c.volume
}

// SetVolume sets the slot's volume and pushes it to the bound engine.
func (c *Controller) SetVolume(volume int) {
	c.mgr.mu.Lock()
	c.volume = clampVolume(volume)
	c.mgr.mu.Unlock()
	c.applyAudio()
}

// SetMuted mutes or unmutes the slot's engine output.
func (c *Controller) SetMuted(muted bool) {
	c.mgr.mu.Lock()
	c.muted = muted
	c.mgr.mu.Unlock()
	c.applyAudio()
}

// Muted reports whether the slot is muted.
func (c *Controller) Muted() bool {
	c.mgr.mu.Lock()
	defer c.mgr.mu.Unlock()
	return c.muted
}

// SetVar stores a context variable on the slot.
func (c *Controller) SetVar(key VarKey, v Var) {
	c.mgr.mu.Lock()
	defer c.mgr.mu.Unlock()
	c.vars[key] = v
}

// Var returns the context variable stored under key.
func (c *Controller) Var(key VarKey) (Var, bool) {
	c.mgr.mu.Lock()
	defer c.mgr.mu.Unlock()
	v, ok := c.vars[key]
	return v, ok
}

// DeleteVar removes the context variable stored under key.
func (c *Controller) DeleteVar(key VarKey) {
	c.mgr.mu.Lock()
	defer c.mgr.mu.Unlock()
	delete(c.vars, key)
}

// Play binds an engine for the given resource and starts playback. If
// the bound engine can be reused for the new resource, it is handed the
// resource directly; otherwise the old engine is disposed and the
// manager's builders are asked for a new one. Engine construction runs
// without the manager lock held, so a concurrent rebind can win the
// slot; in that case the stale result is discarded and Play returns
// false. Calling Play on a slot whose previous content already ended is
// legal; calling it on an inactive slot is not and returns false.
func (c *Controller) Play(locator, mimeType string) bool {
	c.mgr.mu.Lock()
	if !c.state.IsActive() {
		c.mgr.mu.Unlock()
		c.log.Warn("play requested on inactive slot")
		return false
	}
	if reusable, ok := c.reuseCandidateLocked(); ok {
		seq := c.seq
		c.mgr.mu.Unlock()
		if reusable.NextResource(locator, mimeType) {
			return c.finishReuse(seq)
		}
		c.mgr.mu.Lock()
	}
	startSeq := c.seq
	c.mgr.mu.Unlock()

	c.releaseEngine(true)

	engine := c.mgr.buildEngine(locator, mimeType)
	if engine == nil {
		c.log.WithField("locator", locator).Warn("no engine accepted resource")
		return false
	}

	c.mgr.mu.Lock()
	if !c.state.IsActive() {
		c.mgr.mu.Unlock()
		engine.Stop()
		return false
	}
	if c.seq != startSeq {
		// A concurrent Play rebound the slot while we were building;
		// this result belongs to a dead generation.
		c.mgr.mu.Unlock()
		c.log.Debug("discarding stale engine build")
		engine.Stop()
		return false
	}
	c.bindLocked(engine)
	seq := c.seq
	c.setStateLocked(Playing)
	c.mgr.mu.Unlock()

	c.registerCallbacks(engine, seq)
	c.applyAudio()
	if pc, ok := engine.(player.PlaybackControl); ok {
		pc.Resume()
	}
	c.publish(events.PlayerStarted, seq)
	return true
}

// reuseCandidateLocked returns the bound engine as Reusable if it
// declared the reuse capability.
func (c *Controller) reuseCandidateLocked() (player.Reusable, bool) {
	if c.engine == nil || !c.caps.Has(player.CanReuse) {
		return nil, false
	}
	r, ok := c.engine.(player.Reusable)
	return r, ok
}

// finishReuse completes a reuse-path Play. The engine accepted the new
// resource while the lock was released; if the slot was rebound in the
// meantime the result belongs to a dead generation and is dropped.
func (c *Controller) finishReuse(seq uint64) bool {
	c.mgr.mu.Lock()
	if c.seq != seq || c.engine == nil {
		c.mgr.mu.Unlock()
		c.log.Debug("discarding stale engine reuse")
		return false
	}
	c.setStateLocked(Playing)
	c.mgr.mu.Unlock()
	c.publish(events.PlayerStarted, seq)
	return true
}

// bindLocked installs a new engine, caches its capability set and
// advances the activation sequence. The caller has verified the slot's
// sequence is still the one it captured before building, so no engine
// can be bound here.
func (c *Controller) bindLocked(engine player.Engine) {
	c.engine = engine
	c.caps = engine.Capabilities()
	c.seq = c.mgr.nextSeqLocked()
}

// registerCallbacks wires the engine's events to the bus. Every event
// carries the bind-time sequence so consumers can discard events of a
// dead slot generation.
func (c *Controller) registerCallbacks(engine player.Engine, seq uint64) {
	src, ok := engine.(player.EventSource)
	if !ok {
		return
	}
	src.InitEvents(player.EventCallbacks{
		OnStarted:      func() { c.publish(events.PlayerStarted, seq) },
		OnStateReady:   func() { c.publish(events.PlayerStateReady, seq) },
		OnStopped:      func() { c.publish(events.PlayerStopped, seq) },
		OnEnded:        func() { c.publish(events.PlayerEnded, seq) },
		OnStateChanged: func() { c.publish(events.PlaybackStateChanged, seq) },
		OnError:        func(err error) { c.handleEngineError(seq, err) },
		OnRequestNext:  func() { c.publish(events.RequestNextItem, seq) },
	})
}

// handleEngineError forces the slot to Stopped and reports the failure.
// Errors from a superseded engine binding are dropped.
func (c *Controller) handleEngineError(seq uint64, err error) {
	c.mgr.mu.Lock()
	if c.seq != seq {
		c.mgr.mu.Unlock()
		return
	}
	c.setStateLocked(Stopped)
	index := c.index
	c.mgr.mu.Unlock()
	c.log.WithError(err).Error("player engine failed")
	c.mgr.bus.Publish(events.Message{
		Type:      events.PlayerError,
		SlotIndex: index,
		Sequence:  seq,
		Err:       err,
	})
}

// Stop stops playback and disposes the bound engine. The slot stays
// active and keeps its context variables.
func (c *Controller) Stop() {
	c.mgr.mu.Lock()
	if !c.state.IsActive() {
		c.mgr.mu.Unlock()
		return
	}
	seq := c.seq
	wasPlaying := c.state == Playing
	c.setStateLocked(Stopped)
	c.mgr.mu.Unlock()
	if wasPlaying {
		// The engine's own stop event is discarded during disposal, so
		// the stop is announced here.
		c.publish(events.PlayerStopped, seq)
	}
	c.releaseEngine(true)
}

// Reset releases the slot entirely: it stops playback, clears all
// context variables and puts the slot back into Inactive state.
func (c *Controller) Reset() {
	c.Stop()
	c.mgr.mu.Lock()
	if c.state == Inactive {
		c.mgr.mu.Unlock()
		return
	}
	c.vars = make(map[VarKey]Var)
	c.setStateLocked(Inactive)
	c.mgr.mu.Unlock()
}

// releaseEngine detaches and disposes the bound engine. The engine is
// stopped outside the manager lock since engines may block in Stop.
func (c *Controller) releaseEngine(stop bool) {
	c.mgr.mu.Lock()
	engine := c.engine
	c.engine = nil
	c.caps = 0
	c.mgr.mu.Unlock()
	if engine == nil {
		return
	}
	if src, ok := engine.(player.EventSource); ok {
		src.ResetEvents()
	}
	if stop && engine.State() != player.Stopped {
		engine.Stop()
	}
}

// activateLocked opens the slot, adopting the manager's global volume
// and mute settings.
func (c *Controller) activateLocked(volume int, muted bool) {
	c.seq = c.mgr.nextSeqLocked()
	c.isAudio = false
	c.volume = volume
	c.muted = muted
	c.vars = make(map[VarKey]Var)
	c.setStateLocked(Stopped)
}

// setStateLocked updates the slot state and announces lifecycle
// transitions on the bus.
func (c *Controller) setStateLocked(state State) {
	if state == c.state {
		return
	}
	prev := c.state
	c.state = state
	c.log.WithFields(logrus.Fields{"from": prev, "to": state}).Debug("slot state change")
	switch {
	case prev == Inactive:
		c.publishLocked(events.PlayerSlotActivated, c.seq)
	case state == Inactive:
		c.publishLocked(events.PlayerSlotDeactivated, c.seq)
	}
	if state == Playing {
		c.publishLocked(events.PlayerSlotStarted, c.seq)
	}
}

// setAudioFlag marks or unmarks the slot as the audio slot and pushes
// the resulting mute state to the engine.
func (c *Controller) setAudioFlag(isAudio bool) {
	c.mgr.mu.Lock()
	changed := c.isAudio != isAudio
	c.isAudio = isAudio
	index := c.index
	seq := c.seq
	c.mgr.mu.Unlock()
	c.applyAudio()
	if changed && isAudio {
		c.mgr.bus.Publish(events.Message{
			Type:      events.AudioSlotChanged,
			SlotIndex: index,
			Sequence:  seq,
		})
	}
}

// applyAudio pushes the effective volume and mute state to the bound
// engine. A slot that is not the audio slot is always muted regardless
// of its own mute flag. Muting is applied before the volume change so
// the engine never plays loud frames at the wrong level.
func (c *Controller) applyAudio() {
	c.mgr.mu.Lock()
	engine := c.engine
	mute := !c.isAudio || c.muted
	volume := c.volume
	c.mgr.mu.Unlock()
	if engine == nil {
		return
	}
	vc, ok := engine.(player.VolumeControl)
	if !ok {
		return
	}
	if mute {
		vc.SetMuted(true)
		vc.SetVolume(volume)
		return
	}
	vc.SetVolume(volume)
	vc.SetMuted(false)
}

func (c *Controller) publish(t events.Type, seq uint64) {
	c.mgr.mu.Lock()
	index := c.index
	c.mgr.mu.Unlock()
	c.mgr.bus.Publish(events.Message{Type: t, SlotIndex: index, Sequence: seq})
}

func (c *Controller) publishLocked(t events.Type, seq uint64) {
	c.mgr.bus.Publish(events.Message{Type: t, SlotIndex: c.index, Sequence: seq})
}

func clampVolume(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
