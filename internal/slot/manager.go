// Package slot manages the two player slots of the playback system:
// slot allocation, engine construction, the audio slot assignment and
// the global volume and mute settings that fan out to every bound
// engine.
package slot

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ltreguier/greenroom/internal/events"
	"github.com/ltreguier/greenroom/internal/player"
)

const (
	// Count is the number of player slots.
	Count = 2
	// PrimaryIndex is the slot index of the primary player.
	PrimaryIndex = 0
	// SecondaryIndex is the slot index of the secondary (PiP) player.
	SecondaryIndex = 1

	// VolumeStep is the volume change applied by VolumeUp and
	// VolumeDown, in percent.
	VolumeStep = 10
)

// Manager owns the fixed set of player slots. It allocates slots,
// builds engines through the registered builders, maintains the slot
// order so the primary slot is always filled first, and routes the
// audio output to exactly one slot.
//
// The manager's mutex is the single player-manager lock: it guards the
// manager and all of its slot controllers. Engine calls that may block
// (construction, stopping) happen outside of it.
type Manager struct {
	mu  sync.Mutex
	bus *events.Bus
	log *logrus.Logger

	slots    [Count]*Controller
	builders []player.Builder

	// seqCounter feeds the slot activation sequences. It is shared
	// between the slots so a sequence value identifies one particular
	// slot generation even after the slots have been switched.
	seqCounter uint64

	volume int
	muted  bool
}

// NewManager creates a slot manager publishing on bus. A nil logger
// falls back to the logrus standard logger.
func NewManager(bus *events.Bus, log *logrus.Logger) *Manager {
	if log == nil {
		log = logrus.StandardLogger()
	}
	m := &Manager{
		bus:    bus,
		log:    log,
		volume: 100,
	}
	for i := range m.slots {
		m.slots[i] = newController(m, i)
	}
	return m
}

// RegisterBuilder adds an engine builder. Builders are consulted in
// registration order when a resource needs an engine.
func (m *Manager) RegisterBuilder(b player.Builder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.builders = append(m.builders, b)
}

func (m *Manager) nextSeqLocked() uint64 {
	m.seqCounter++
	return m.seqCounter
}

// ControllerBySequence returns the controller whose current activation
// sequence matches seq, or nil when the generation the sequence belongs
// to has been superseded.
func (m *Manager) ControllerBySequence(seq uint64) *Controller {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.slots {
		if c.seq == seq {
			return c
		}
	}
	return nil
}

// buildEngine asks the registered builders for an engine for the given
// resource. It runs without the manager lock held since builders may
// block on media probing. Builder errors are logged and the next
// builder is tried.
func (m *Manager) buildEngine(locator, mimeType string) player.Engine {
	m.mu.Lock()
	builders := make([]player.Builder, len(m.builders))
	copy(builders, m.builders)
	m.mu.Unlock()

	for _, b := range builders {
		engine, err := b.TryBuild(locator, mimeType)
		if err != nil {
			m.log.WithError(err).WithField("locator", locator).
				Warn("engine builder failed")
			continue
		}
		if engine != nil {
			return engine
		}
	}
	return nil
}

// Slot returns the controller at the given index, or nil if the index
// is out of range.
func (m *Manager) Slot(index int) *Controller {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= Count {
		return nil
	}
	return m.slots[index]
}

// NumActiveSlots returns the number of slots that are not inactive.
func (m *Manager) NumActiveSlots() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.slots {
		if c.state.IsActive() {
			n++
		}
	}
	return n
}

// OpenSlot allocates a free slot, activates it with the global volume
// and mute settings and returns it together with its index. A slot is
// free when it is inactive, or stopped with no engine left bound; the
// latter reuses a slot whose owner never released it, and the
// activation sequence bump makes the old owner's handle stale. Slots
// are filled primary first. Returns ErrNoFreeSlot when both slots are
// taken.
func (m *Manager) OpenSlot() (*Controller, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range m.slots {
		if c.state == Inactive || (c.state == Stopped && c.engine == nil) {
			c.activateLocked(m.volume, m.muted)
			if m.audioSlotLocked() == -1 {
				m.setAudioSlotLocked(i)
			}
			m.bus.Publish(events.Message{Type: events.PlayerSlotsChanged, SlotIndex: i, Sequence: c.seq})
			return c, i, nil
		}
	}
	return nil, -1, ErrNoFreeSlot
}

// PreparePlayer opens a slot and starts playback of the given resource
// in it. On failure the slot is released again.
func (m *Manager) PreparePlayer(locator, mimeType string) (*Controller, int, error) {
	c, index, err := m.OpenSlot()
	if err != nil {
		return nil, -1, err
	}
	if !c.Play(locator, mimeType) {
		m.ReleasePlayer(index)
		return nil, -1, ErrNoEngine
	}
	return c, index, nil
}

// ReleasePlayer releases the slot at the given index: playback stops,
// the engine is disposed and the slot becomes inactive. If the released
// slot owned the audio output, the audio slot falls back to the primary
// slot, and the slot order is compacted so the secondary slot never
// outlives the primary.
func (m *Manager) ReleasePlayer(index int) {
	c := m.Slot(index)
	if c == nil {
		return
	}
	c.Reset()
	m.mu.Lock()
	wasAudio := c.isAudio
	c.isAudio = false
	m.cleanupSlotOrderLocked()
	var targets []*Controller
	fellBack := wasAudio && m.slots[PrimaryIndex].state.IsActive()
	if fellBack {
		targets = m.setAudioSlotLocked(PrimaryIndex)
	}
	m.mu.Unlock()
	for _, t := range targets {
		t.applyAudio()
	}
	if fellBack {
		m.bus.Publish(events.Message{Type: events.AudioSlotChanged, SlotIndex: PrimaryIndex})
	}
}

// ReleaseAllPlayers releases every slot. All engines are muted up front
// so nothing is audible while the slots shut down one by one, then the
// previous mute state is restored.
func (m *Manager) ReleaseAllPlayers() {
	m.mu.Lock()
	wasMuted := m.muted
	m.mu.Unlock()
	m.SetMuted(true)
	for i := 0; i < Count; i++ {
		m.Slot(i).Reset()
		m.mu.Lock()
		m.slots[i].isAudio = false
		m.mu.Unlock()
	}
	m.SetMuted(wasMuted)
}

// SetPrimaryPlayer makes the slot at the given index the primary slot.
// Playback in both slots continues undisturbed.
func (m *Manager) SetPrimaryPlayer(index int) {
	if index == SecondaryIndex {
		m.SwitchSlots()
	}
}

// SwitchSlots exchanges the primary and secondary slots. This is an
// O(1) reordering: engines keep playing, slot state and context
// variables ride along, only the indices change. It does nothing unless
// the secondary slot is active.
func (m *Manager) SwitchSlots() {
	m.mu.Lock()
	if !m.slots[SecondaryIndex].state.IsActive() {
		m.mu.Unlock()
		return
	}
	m.switchSlotsLocked()
	m.mu.Unlock()
}

func (m *Manager) switchSlotsLocked() {
	m.slots[PrimaryIndex], m.slots[SecondaryIndex] = m.slots[SecondaryIndex], m.slots[PrimaryIndex]
	for i, c := range m.slots {
		c.index = i
	}
	m.log.Debug("switched player slots")
	m.bus.Publish(events.Message{Type: events.PlayerSlotsChanged, SlotIndex: PrimaryIndex})
}

// cleanupSlotOrderLocked moves the secondary slot into the primary
// position when the primary slot is empty.
func (m *Manager) cleanupSlotOrderLocked() {
	if !m.slots[PrimaryIndex].state.IsActive() && m.slots[SecondaryIndex].state.IsActive() {
		m.switchSlotsLocked()
	}
}

// AudioSlot returns the index of the slot owning the audio output, or
// -1 when no slot does.
func (m *Manager) AudioSlot() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.audioSlotLocked()
}

func (m *Manager) audioSlotLocked() int {
	for i, c := range m.slots {
		if c.isAudio {
			return i
		}
	}
	return -1
}

// SetAudioSlot routes the audio output to the slot at the given index.
// Exactly one active slot owns the audio output at a time; every other
// slot is muted. Routing audio to an inactive slot is ignored.
func (m *Manager) SetAudioSlot(index int) {
	m.mu.Lock()
	if index < 0 || index >= Count || !m.slots[index].state.IsActive() {
		m.mu.Unlock()
		return
	}
	targets := m.setAudioSlotLocked(index)
	m.mu.Unlock()
	for _, c := range targets {
		c.applyAudio()
	}
	m.bus.Publish(events.Message{Type: events.AudioSlotChanged, SlotIndex: index})
}

// setAudioSlotLocked flips the audio flags and returns the controllers
// whose engines need their audio state reapplied. Engine calls happen
// after the lock is released.
func (m *Manager) setAudioSlotLocked(index int) []*Controller {
	var targets []*Controller
	for i, c := range m.slots {
		want := i == index
		if c.isAudio != want {
			c.isAudio = want
			targets = append(targets, c)
		}
	}
	return targets
}

// Volume returns the global volume in percent.
func (m *Manager) Volume() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume
}

// SetVolume sets the global volume and pushes it to every slot.
func (m *Manager) SetVolume(volume int) {
	volume = clampVolume(volume)
	m.mu.Lock()
	if volume == m.volume {
		m.mu.Unlock()
		return
	}
	m.volume = volume
	for _, c := range m.slots {
		c.volume = volume
	}
	m.mu.Unlock()
	for _, c := range m.slots {
		c.applyAudio()
	}
	m.bus.Publish(events.Message{Type: events.VolumeChanged, SlotIndex: -1})
}

// VolumeUp raises the global volume by one step.
func (m *Manager) VolumeUp() {
	m.SetVolume(m.Volume() + VolumeStep)
}

// VolumeDown lowers the global volume by one step.
func (m *Manager) VolumeDown() {
	m.SetVolume(m.Volume() - VolumeStep)
}

// Muted reports whether playback is globally muted.
func (m *Manager) Muted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.muted
}

// SetMuted mutes or unmutes all slots.
func (m *Manager) SetMuted(muted bool) {
	m.mu.Lock()
	if muted == m.muted {
		m.mu.Unlock()
		return
	}
	m.muted = muted
	for _, c := range m.slots {
		c.muted = muted
	}
	m.mu.Unlock()
	for _, c := range m.slots {
		c.applyAudio()
	}
	t := events.PlayersResetMute
	if muted {
		t = events.PlayersMuted
	}
	m.bus.Publish(events.Message{Type: t, SlotIndex: -1})
}

// Close releases all slots.
func (m *Manager) Close() {
	m.ReleaseAllPlayers()
}
