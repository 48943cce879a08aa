package player

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCapabilityHas(t *testing.T) {
	caps := CanPause | CanSeek | CanVolume

	assert.True(t, caps.Has(CanPause))
	assert.True(t, caps.Has(CanSeek))
	assert.True(t, caps.Has(CanPause|CanSeek))
	assert.False(t, caps.Has(CanReuse))
	assert.False(t, caps.Has(CanPause|CanReuse), "Has requires every bit of the query")

	var none Capability
	assert.True(t, none.Has(0))
	assert.False(t, none.Has(CanPause))
}

func TestMediaTypeString(t *testing.T) {
	assert.Equal(t, "Audio", TypeAudio.String())
	assert.Equal(t, "Video", TypeVideo.String())
	assert.Equal(t, "None", TypeNone.String())
	assert.Equal(t, "Unknown", MediaType(99).String())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "Playing", Playing.String())
	assert.Equal(t, "Paused", Paused.String())
	assert.Equal(t, "Stopped", Stopped.String())
	assert.Equal(t, "Ended", Ended.String())
}

func TestMock_Transport(t *testing.T) {
	m := NewMock(TypeAudio, CanPause|CanSeek)

	assert.Equal(t, Playing, m.State(), "a fresh engine is playing")

	m.Pause()
	assert.Equal(t, Paused, m.State())

	m.Resume()
	assert.Equal(t, Playing, m.State())

	m.Stop()
	assert.Equal(t, Stopped, m.State())
	m.Resume()
	assert.Equal(t, Stopped, m.State(), "resume must not revive a stopped engine")
}

func TestMock_CallbacksAfterReset(t *testing.T) {
	m := NewMock(TypeAudio, 0)

	ended := 0
	m.InitEvents(EventCallbacks{OnEnded: func() { ended++ }})
	m.SimulateEnded()
	assert.Equal(t, 1, ended)

	m.ResetEvents()
	m.SimulateEnded()
	assert.Equal(t, 1, ended, "no callback may fire after ResetEvents")
}

func TestMock_ErrorCallback(t *testing.T) {
	m := NewMock(TypeAudio, 0)

	var got error
	m.InitEvents(EventCallbacks{OnError: func(err error) { got = err }})

	cause := errors.New("decoder died")
	m.SimulateError(cause)

	assert.Equal(t, cause, got)
	assert.Equal(t, Stopped, m.State())
}

func TestMockBuilder(t *testing.T) {
	b := NewMockBuilder(TypeAudio, CanReuse)

	e, err := b.TryBuild("/a.mp3", "audio/mpeg")
	assert.NoError(t, err)
	assert.NotNil(t, e)
	assert.True(t, e.Capabilities().Has(CanReuse))

	b.SetReject(true)
	e, err = b.TryBuild("/b.mp3", "audio/mpeg")
	assert.NoError(t, err)
	assert.Nil(t, e, "a non-match is not an error")

	b.SetReject(false)
	b.SetBuildError(errors.New("codec open failed"))
	_, err = b.TryBuild("/c.mp3", "audio/mpeg")
	assert.Error(t, err)

	assert.Equal(t, []string{"/a.mp3", "/b.mp3", "/c.mp3"}, b.BuildCalls())
	assert.Len(t, b.Built(), 1)
}

func TestMock_NextResource(t *testing.T) {
	m := NewMock(TypeAudio, CanReuse)

	assert.True(t, m.NextResource("/next.mp3", "audio/mpeg"))
	assert.Equal(t, []string{"/next.mp3"}, m.NextCalls())

	m.SetNextOK(false)
	assert.False(t, m.NextResource("/bad.mp3", "audio/mpeg"))
}
