package player

import (
	"sync"
	"time"
)

// Mock is a test double for Engine. It implements every optional
// capability interface; the capability set passed to NewMock decides which
// of them the core is allowed to use.
type Mock struct {
	mu sync.Mutex

	name      string
	mediaType MediaType
	caps      Capability
	state     State

	cb EventCallbacks

	volume int
	muted  bool

	position time.Duration
	duration time.Duration
	rate     float64
	subtitle string

	nextOK        bool
	nextCalls     []string
	setMutedCalls []bool
	volumeCalls   []int
}

// NewMock creates a mock engine with the given media type and capability
// set. The mock starts Playing, like a freshly built engine.
func NewMock(mediaType MediaType, caps Capability) *Mock {
	return &Mock{
		name:      "mock",
		mediaType: mediaType,
		caps:      caps,
		state:     Playing,
		volume:    100,
		rate:      1.0,
		nextOK:    true,
	}
}

func (m *Mock) Name() string { return m.name }

func (m *Mock) MediaType() MediaType { return m.mediaType }

func (m *Mock) Capabilities() Capability { return m.caps }

func (m *Mock) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Mock) Stop() {
	m.mu.Lock()
	m.state = Stopped
	m.mu.Unlock()
}

func (m *Mock) Pause() {
	m.mu.Lock()
	if m.state == Playing {
		m.state = Paused
	}
	m.mu.Unlock()
}

func (m *Mock) Resume() {
	m.mu.Lock()
	if m.state == Paused {
		m.state = Playing
	}
	m.mu.Unlock()
}

func (m *Mock) Restart() {
	m.mu.Lock()
	m.position = 0
	m.state = Playing
	m.mu.Unlock()
}

func (m *Mock) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *Mock) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

func (m *Mock) SetPosition(pos time.Duration) {
	m.mu.Lock()
	m.position = pos
	m.mu.Unlock()
}

func (m *Mock) SetVolume(volume int) {
	m.mu.Lock()
	m.volume = volume
	m.volumeCalls = append(m.volumeCalls, volume)
	m.mu.Unlock()
}

func (m *Mock) SetMuted(muted bool) {
	m.mu.Lock()
	m.muted = muted
	m.setMutedCalls = append(m.setMutedCalls, muted)
	m.mu.Unlock()
}

func (m *Mock) NextResource(locator, _ string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextCalls = append(m.nextCalls, locator)
	if m.nextOK {
		m.state = Playing
	}
	return m.nextOK
}

func (m *Mock) Subtitles() []string { return []string{"default"} }

func (m *Mock) SetSubtitle(name string) bool {
	m.mu.Lock()
	m.subtitle = name
	m.mu.Unlock()
	return true
}

func (m *Mock) Rate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rate
}

func (m *Mock) SetRate(rate float64) bool {
	m.mu.Lock()
	m.rate = rate
	m.mu.Unlock()
	return true
}

func (m *Mock) InitEvents(cb EventCallbacks) {
	m.mu.Lock()
	m.cb = cb
	m.mu.Unlock()
}

func (m *Mock) ResetEvents() {
	m.mu.Lock()
	m.cb = EventCallbacks{}
	m.mu.Unlock()
}

// Test helpers

func (m *Mock) SetName(name string) *Mock {
	m.name = name
	return m
}

func (m *Mock) SetNextOK(ok bool) { m.nextOK = ok }

func (m *Mock) Volume() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume
}

func (m *Mock) Muted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.muted
}

func (m *Mock) NextCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.nextCalls...)
}

func (m *Mock) VolumeCalls() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.volumeCalls...)
}

func (m *Mock) callbacks() EventCallbacks {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cb
}

// SimulateEnded reports the end of the current resource the way a real
// engine would, from outside the core's locks.
func (m *Mock) SimulateEnded() {
	m.mu.Lock()
	m.state = Ended
	cb := m.cb
	m.mu.Unlock()
	if cb.OnEnded != nil {
		cb.OnEnded()
	}
}

// SimulateError reports a runtime playback failure.
func (m *Mock) SimulateError(err error) {
	m.mu.Lock()
	m.state = Stopped
	cb := m.cb
	m.mu.Unlock()
	if cb.OnError != nil {
		cb.OnError(err)
	}
}

// SimulateStateReady reports that the engine finished resource probing.
func (m *Mock) SimulateStateReady() {
	if cb := m.callbacks(); cb.OnStateReady != nil {
		cb.OnStateReady()
	}
}

// SimulateRequestNext asks for the next resource ahead of time.
func (m *Mock) SimulateRequestNext() {
	if cb := m.callbacks(); cb.OnRequestNext != nil {
		cb.OnRequestNext()
	}
}

// MockBuilder builds Mock engines. The zero value accepts every resource.
type MockBuilder struct {
	mu sync.Mutex

	mediaType MediaType
	caps      Capability
	buildErr  error
	reject    bool
	onBuild   func(locator string)
	built     []*Mock
	builds    []string
}

// NewMockBuilder creates a builder producing mocks of the given type and
// capability set.
func NewMockBuilder(mediaType MediaType, caps Capability) *MockBuilder {
	return &MockBuilder{mediaType: mediaType, caps: caps}
}

func (b *MockBuilder) TryBuild(locator, _ string) (Engine, error) {
	b.mu.Lock()
	hook := b.onBuild
	b.mu.Unlock()
	if hook != nil {
		hook(locator)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.builds = append(b.builds, locator)
	if b.buildErr != nil {
		return nil, b.buildErr
	}
	if b.reject {
		return nil, nil
	}
	e := NewMock(b.mediaType, b.caps)
	b.built = append(b.built, e)
	return e, nil
}

// Test helpers

func (b *MockBuilder) SetReject(reject bool) {
	b.mu.Lock()
	b.reject = reject
	b.mu.Unlock()
}

func (b *MockBuilder) SetBuildError(err error) {
	b.mu.Lock()
	b.buildErr = err
	b.mu.Unlock()
}

// SetOnBuild installs a hook invoked at the start of every TryBuild,
// before the build is recorded. Tests use it to stall a build at a
// chosen point.
func (b *MockBuilder) SetOnBuild(fn func(locator string)) {
	b.mu.Lock()
	b.onBuild = fn
	b.mu.Unlock()
}

// Built returns every engine this builder produced, in build order.
func (b *MockBuilder) Built() []*Mock {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Mock(nil), b.built...)
}

// LastBuilt returns the most recently built engine, or nil.
func (b *MockBuilder) LastBuilt() *Mock {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.built) == 0 {
		return nil
	}
	return b.built[len(b.built)-1]
}

// BuildCalls returns the locators TryBuild was called with.
func (b *MockBuilder) BuildCalls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.builds...)
}

// Compile-time capability checks.
var (
	_ Engine          = (*Mock)(nil)
	_ PlaybackControl = (*Mock)(nil)
	_ VolumeControl   = (*Mock)(nil)
	_ Reusable        = (*Mock)(nil)
	_ SubtitleControl = (*Mock)(nil)
	_ RateControl     = (*Mock)(nil)
	_ EventSource     = (*Mock)(nil)
	_ Builder         = (*MockBuilder)(nil)
)
