// Package playback implements player contexts on top of the slot
// layer: logical playback sessions owned by client modules, conflict
// resolution when a new session competes with running ones, current
// player focus tracking and automatic playlist advance.
package playback

import (
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/ltreguier/greenroom/internal/events"
	"github.com/ltreguier/greenroom/internal/slot"
)

// Manager keeps the player context table. It owns the outer coarse
// lock: every context operation and every decision based on context
// validity runs under it, so cross-slot invariants (one audio context,
// one video context per role) are checked atomically.
//
// Slot events are consumed on a dedicated goroutine fed by an ordered
// bus subscription. That goroutine is allowed to block on engine
// construction during playlist advance; engine callback threads never
// are, they only publish.
type Manager struct {
	mu    sync.Mutex
	slots *slot.Manager
	bus   *events.Bus
	sub   *events.Subscription
	log   *logrus.Logger

	// currentIndex is the slot index holding user focus, -1 when no
	// player is active.
	currentIndex int

	done chan struct{}
}

// NewManager creates a context manager on top of the given slot
// manager and starts consuming slot events from bus. A nil logger
// falls back to the logrus standard logger.
func NewManager(slots *slot.Manager, bus *events.Bus, log *logrus.Logger) *Manager {
	if log == nil {
		log = logrus.StandardLogger()
	}
	m := &Manager{
		slots:        slots,
		bus:          bus,
		sub:          bus.Subscribe(),
		log:          log,
		currentIndex: -1,
		done:         make(chan struct{}),
	}
	go m.run()
	return m
}

// OpenAudioPlayerContext opens a playback session for audio media.
// An existing audio context is always closed first: audio is never
// doubled. A running video context survives when concurrent is true
// and is closed otherwise. When both slots are still occupied after
// that, the secondary (picture-in-picture) context is evicted so the
// request can proceed: opening a context is user-driven and never
// loses to an existing one. The new context always receives the audio
// output.
func (m *Manager) OpenAudioPlayerContext(moduleID, name string, concurrent bool,
	currentlyPlayingStateID, fullscreenStateID uuid.UUID) (*Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if audio := m.contextOfTypeLocked(AVAudio); audio != nil {
		m.closeContextLocked(audio)
	}
	if !concurrent {
		for _, video := range m.contextsOfTypeLocked(AVVideo) {
			m.closeContextLocked(video)
		}
	}
	if m.contextAtLocked(slot.PrimaryIndex) != nil {
		if sec := m.contextAtLocked(slot.SecondaryIndex); sec != nil {
			m.closeContextLocked(sec)
		}
	}

	c, index, err := m.slots.OpenSlot()
	if err != nil {
		return nil, err
	}
	ctx := newContext(m, moduleID, name, AVAudio, c,
		currentlyPlayingStateID, fullscreenStateID)
	c.SetVar(slot.VarPlayerContext, slot.OpaqueVar(ctx))
	m.slots.SetAudioSlot(index)
	m.checkCurrentPlayerLocked()
	m.log.WithFields(logrus.Fields{"module": moduleID, "name": name, "slot": index}).
		Info("opened audio player context")
	return ctx, nil
}

// OpenVideoPlayerContext opens a playback session for video media.
// With concurrent=false every existing context is closed first. With
// concurrent=true and a video context already running, the new context
// either becomes the picture-in-picture player (subordinatedVideo=true,
// evicting a previous secondary: a third concurrent video is never
// kept) or replaces the running video context (subordinatedVideo=
// false). An audio context is left untouched under concurrent=true and
// keeps the audio output; otherwise the new video context receives it.
// Conflict resolution always favors the new request.
func (m *Manager) OpenVideoPlayerContext(moduleID, name string, concurrent, subordinatedVideo bool,
	currentlyPlayingStateID, fullscreenStateID uuid.UUID) (*Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !concurrent {
		m.closeAllLocked()
	} else if primary := m.contextOfTypeLocked(AVVideo); primary != nil {
		if subordinatedVideo {
			sec := m.contextAtLocked(slot.SecondaryIndex)
			if sec != nil && sec.avType == AVVideo {
				m.closeContextLocked(sec)
			}
		} else {
			for _, video := range m.contextsOfTypeLocked(AVVideo) {
				m.closeContextLocked(video)
			}
		}
	}

	c, index, err := m.slots.OpenSlot()
	if err != nil {
		return nil, err
	}
	ctx := newContext(m, moduleID, name, AVVideo, c,
		currentlyPlayingStateID, fullscreenStateID)
	c.SetVar(slot.VarPlayerContext, slot.OpaqueVar(ctx))

	if !subordinatedVideo && index == slot.SecondaryIndex {
		m.slots.SwitchSlots()
		index = slot.PrimaryIndex
	}
	if m.contextOfTypeLocked(AVAudio) == nil {
		m.slots.SetAudioSlot(index)
	}
	m.setCurrentPlayerLocked(index)
	m.log.WithFields(logrus.Fields{"module": moduleID, "name": name, "slot": index,
		"pip": subordinatedVideo}).Info("opened video player context")
	return ctx, nil
}

// ClosePlayerContext closes the given context and releases its slot.
// Closing an already invalid context is a no-op.
func (m *Manager) ClosePlayerContext(ctx *Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeContextLocked(ctx)
}

// CloseAllPlayerContexts closes every open context.
func (m *Manager) CloseAllPlayerContexts() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeAllLocked()
}

func (m *Manager) closeAllLocked() {
	for i := 0; i < slot.Count; i++ {
		if ctx := m.contextAtLocked(i); ctx != nil {
			ctx.slot.DeleteVar(slot.VarPlayerContext)
			ctx.invalidateLocked()
		}
	}
	m.slots.ReleaseAllPlayers()
	m.checkCurrentPlayerLocked()
}

func (m *Manager) closeContextLocked(ctx *Context) {
	if ctx == nil || ctx.slot == nil {
		return
	}
	valid := ctx.validLocked()
	index := ctx.slot.Index()
	ctx.slot.DeleteVar(slot.VarPlayerContext)
	ctx.invalidateLocked()
	if valid {
		m.slots.ReleasePlayer(index)
	}
	m.checkCurrentPlayerLocked()
	m.log.WithFields(logrus.Fields{"module": ctx.moduleID, "name": ctx.name}).
		Debug("closed player context")
}

// PlayerContext returns the context bound to the slot at the given
// index, or nil.
func (m *Manager) PlayerContext(index int) *Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.contextAtLocked(index)
}

// PrimaryPlayerContext returns the context in the primary slot, or nil.
func (m *Manager) PrimaryPlayerContext() *Context {
	return m.PlayerContext(slot.PrimaryIndex)
}

// SecondaryPlayerContext returns the context in the secondary slot, or
// nil.
func (m *Manager) SecondaryPlayerContext() *Context {
	return m.PlayerContext(slot.SecondaryIndex)
}

// CurrentPlayerContext returns the context holding user focus, or nil.
func (m *Manager) CurrentPlayerContext() *Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.currentIndex == -1 {
		return nil
	}
	return m.contextAtLocked(m.currentIndex)
}

// CurrentPlayerIndex returns the slot index holding user focus, or -1.
func (m *Manager) CurrentPlayerIndex() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentIndex
}

// SetCurrentPlayer moves user focus to the slot at the given index.
// Focus can only go to a slot with a valid context.
func (m *Manager) SetCurrentPlayer(index int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.contextAtLocked(index) == nil {
		return
	}
	m.setCurrentPlayerLocked(index)
}

func (m *Manager) setCurrentPlayerLocked(index int) {
	if index == m.currentIndex {
		return
	}
	m.currentIndex = index
	m.bus.Publish(events.Message{Type: events.CurrentPlayerChanged, SlotIndex: index})
}

// ToggleCurrentPlayer moves user focus to the other active player, if
// there is one.
func (m *Manager) ToggleCurrentPlayer() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.currentIndex == -1 {
		m.checkCurrentPlayerLocked()
		return
	}
	other := (m.currentIndex + 1) % slot.Count
	if m.contextAtLocked(other) != nil {
		m.setCurrentPlayerLocked(other)
	}
}

// SwitchPipPlayers exchanges the primary and secondary player roles.
// Playback is untouched: contexts and engines ride along with their
// slots, only the slot order changes.
func (m *Manager) SwitchPipPlayers() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots.SwitchSlots()
}

// IsAudioPlayerActive reports whether an audio context is open.
func (m *Manager) IsAudioPlayerActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.contextOfTypeLocked(AVAudio) != nil
}

// IsVideoPlayerActive reports whether a video context is open.
func (m *Manager) IsVideoPlayerActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.contextOfTypeLocked(AVVideo) != nil
}

// IsPipActive reports whether a video context runs in the secondary
// slot.
func (m *Manager) IsPipActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	ctx := m.contextAtLocked(slot.SecondaryIndex)
	return ctx != nil && ctx.avType == AVVideo
}

// PlayerContextsByModule returns the open contexts owned by the given
// client module.
func (m *Manager) PlayerContextsByModule(moduleID string) []*Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return lo.Filter(m.contextsLocked(), func(ctx *Context, _ int) bool {
		return ctx.moduleID == moduleID
	})
}

// PlayerContextsByAVType returns the open contexts of the given media
// class.
func (m *Manager) PlayerContextsByAVType(avType AVType) []*Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.contextsOfTypeLocked(avType)
}

func (m *Manager) contextsLocked() []*Context {
	var out []*Context
	for i := 0; i < slot.Count; i++ {
		if ctx := m.contextAtLocked(i); ctx != nil {
			out = append(out, ctx)
		}
	}
	return out
}

func (m *Manager) contextsOfTypeLocked(avType AVType) []*Context {
	return lo.Filter(m.contextsLocked(), func(ctx *Context, _ int) bool {
		return ctx.avType == avType
	})
}

func (m *Manager) contextOfTypeLocked(avType AVType) *Context {
	ctxs := m.contextsOfTypeLocked(avType)
	if len(ctxs) == 0 {
		return nil
	}
	return ctxs[0]
}

// contextAtLocked resolves the context bound to the slot at index. The
// context rides in a slot variable so it follows the slot through
// switches; a context whose activation sequence was superseded does not
// resolve.
func (m *Manager) contextAtLocked(index int) *Context {
	c := m.slots.Slot(index)
	if c == nil || !c.State().IsActive() {
		return nil
	}
	v, ok := c.Var(slot.VarPlayerContext)
	if !ok {
		return nil
	}
	ctx, ok := v.Opaque().(*Context)
	if !ok || !ctx.validLocked() {
		return nil
	}
	return ctx
}

// checkCurrentPlayerLocked repairs the focus index: when the focused
// slot no longer holds a valid context, focus falls to the first slot
// that does, or to -1.
func (m *Manager) checkCurrentPlayerLocked() {
	if m.currentIndex != -1 && m.contextAtLocked(m.currentIndex) != nil {
		return
	}
	for i := 0; i < slot.Count; i++ {
		if m.contextAtLocked(i) != nil {
			m.setCurrentPlayerLocked(i)
			return
		}
	}
	m.setCurrentPlayerLocked(-1)
}

func (m *Manager) notifyPlaylistChanged(ctx *Context) {
	m.bus.Publish(events.Message{
		Type:      events.PlaylistPropertiesChanged,
		SlotIndex: -1,
		ContextID: ctx.id,
	})
}

// run consumes slot events in publish order until the subscription is
// closed.
func (m *Manager) run() {
	defer close(m.done)
	for msg := range m.sub.C {
		m.handle(msg)
	}
}

func (m *Manager) handle(msg events.Message) {
	switch msg.Type {
	case events.PlayerEnded:
		m.handlePlayerEnded(msg)
	case events.PlayerError:
		m.handlePlayerError(msg)
	case events.RequestNextItem:
		m.handleRequestNextItem(msg)
	case events.PlayerStopped, events.PlayerSlotDeactivated, events.PlayerSlotStarted,
		events.PlayerSlotsChanged:
		m.mu.Lock()
		m.checkCurrentPlayerLocked()
		m.mu.Unlock()
	}
}

// resolveLocked maps a slot event back to the context that owns the
// generation the event was raised in. Events from superseded
// generations resolve to nil and are dropped.
func (m *Manager) resolveLocked(msg events.Message) *Context {
	c := m.slots.ControllerBySequence(msg.Sequence)
	if c == nil {
		return nil
	}
	ctx := m.contextAtLocked(c.Index())
	if ctx == nil || ctx.seq != msg.Sequence {
		return nil
	}
	return ctx
}

// handlePlayerEnded drives automatic playlist advance: when the owning
// context's playlist yields a next item it is played in the same slot;
// an exhausted playlist either closes the context (CloseWhenFinished)
// or leaves the slot stopped.
func (m *Manager) handlePlayerEnded(msg events.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ctx := m.resolveLocked(msg)
	if ctx == nil {
		m.log.WithField("seq", msg.Sequence).Debug("dropping stale ended event")
		return
	}
	if ctx.nextItemLocked() {
		m.bus.Publish(events.Message{
			Type:      events.PlaylistAdvance,
			SlotIndex: ctx.slot.Index(),
			Sequence:  ctx.seq,
			ContextID: ctx.id,
		})
		return
	}
	if ctx.closeWhenFinished {
		m.closeContextLocked(ctx)
		return
	}
	ctx.slot.Stop()
	m.checkCurrentPlayerLocked()
}

// handlePlayerError closes the failed context. The slot controller has
// already forced the slot to Stopped; no retry is attempted.
func (m *Manager) handlePlayerError(msg events.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ctx := m.resolveLocked(msg)
	if ctx == nil {
		return
	}
	m.log.WithError(msg.Err).WithFields(logrus.Fields{
		"module": ctx.moduleID, "name": ctx.name,
	}).Warn("closing player context after engine failure")
	m.closeContextLocked(ctx)
}

// handleRequestNextItem feeds the next playlist item to an engine that
// asked for it ahead of the current item's end, enabling gapless
// transitions through the engine's reuse path.
func (m *Manager) handleRequestNextItem(msg events.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ctx := m.resolveLocked(msg)
	if ctx == nil {
		return
	}
	item := ctx.playlist.MoveAndGetNext()
	if item == nil {
		return
	}
	if ctx.playItemLocked(item) {
		m.bus.Publish(events.Message{
			Type:      events.PlaylistAdvance,
			SlotIndex: ctx.slot.Index(),
			Sequence:  ctx.seq,
			ContextID: ctx.id,
		})
	}
}

// Close shuts the manager down: all contexts are closed and the event
// subscription is drained.
func (m *Manager) Close() {
	m.CloseAllPlayerContexts()
	m.sub.Close()
	<-m.done
}
