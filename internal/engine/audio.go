// Package engine provides playback engines backed by the beep audio
// library. The audio engine plays local mp3, flac, ogg/vorbis and wav
// files through the shared speaker.
package engine

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"

	"github.com/ltreguier/greenroom/internal/player"
)

const (
	extMP3  = ".mp3"
	extFLAC = ".flac"
	extOGG  = ".ogg"
	extWAV  = ".wav"
)

var (
	speakerMu          sync.Mutex
	speakerInitialized bool
	speakerSampleRate  beep.SampleRate
)

// CanPlay reports whether the audio engine can handle the given
// resource, judged by file extension or MIME type.
func CanPlay(locator, mimeType string) bool {
	switch strings.ToLower(filepath.Ext(locator)) {
	case extMP3, extFLAC, extOGG, extWAV:
		return true
	}
	return strings.HasPrefix(mimeType, "audio/")
}

// Audio is a beep-backed player engine for a single audio resource.
// One engine instance plays one resource; playlist advance binds a
// fresh instance.
type Audio struct {
	mu sync.Mutex

	locator  string
	state    player.State
	cb       player.EventCallbacks
	file     *os.File
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	vol      *effects.Volume

	volume int
	muted  bool
}

var (
	_ player.Engine          = (*Audio)(nil)
	_ player.PlaybackControl = (*Audio)(nil)
	_ player.VolumeControl   = (*Audio)(nil)
	_ player.EventSource     = (*Audio)(nil)
)

// AudioBuilder builds beep audio engines for local audio files.
type AudioBuilder struct{}

func NewAudioBuilder() *AudioBuilder {
	return &AudioBuilder{}
}

// TryBuild decodes the resource and starts playback through the shared
// speaker. Resources the engine cannot handle yield (nil, nil).
func (b *AudioBuilder) TryBuild(locator, mimeType string) (player.Engine, error) {
	if !CanPlay(locator, mimeType) {
		return nil, nil
	}

	f, err := os.Open(locator)
	if err != nil {
		return nil, err
	}

	var streamer beep.StreamSeekCloser
	var format beep.Format

	switch strings.ToLower(filepath.Ext(locator)) {
	case extMP3:
		streamer, format, err = mp3.Decode(f)
	case extFLAC:
		streamer, format, err = flac.Decode(f)
	case extOGG:
		streamer, format, err = vorbis.Decode(f)
	case extWAV:
		streamer, format, err = wav.Decode(f)
	default:
		f.Close()
		return nil, fmt.Errorf("engine: unsupported audio format %q", filepath.Ext(locator))
	}
	if err != nil {
		f.Close()
		return nil, err
	}

	if err := ensureSpeaker(format.SampleRate); err != nil {
		streamer.Close()
		f.Close()
		return nil, err
	}

	e := &Audio{
		locator:  locator,
		state:    player.Playing,
		file:     f,
		streamer: streamer,
		format:   format,
		volume:   100,
	}

	e.ctrl = &beep.Ctrl{Streamer: streamer}
	var play beep.Streamer = e.ctrl
	if format.SampleRate != speakerSampleRate {
		play = beep.Resample(4, format.SampleRate, speakerSampleRate, play)
	}
	e.vol = &effects.Volume{Streamer: play, Base: 2}

	speaker.Play(beep.Seq(e.vol, beep.Callback(e.finished)))
	return e, nil
}

// ensureSpeaker initializes the shared speaker on first use. Later
// engines with a different sample rate are resampled to the speaker's.
func ensureSpeaker(rate beep.SampleRate) error {
	speakerMu.Lock()
	defer speakerMu.Unlock()
	if speakerInitialized {
		return nil
	}
	if err := speaker.Init(rate, rate.N(time.Second/10)); err != nil {
		return err
	}
	speakerSampleRate = rate
	speakerInitialized = true
	return nil
}

func (e *Audio) Name() string { return "beep audio" }

func (e *Audio) MediaType() player.MediaType { return player.TypeAudio }

func (e *Audio) Capabilities() player.Capability {
	return player.CanPause | player.CanSeek | player.CanVolume
}

func (e *Audio) State() player.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Stop halts playback and releases the decoder and file. The streamer
// is detached from the shared speaker by emptying its control wrapper,
// so concurrent engines keep playing.
func (e *Audio) Stop() {
	e.mu.Lock()
	if e.state == player.Stopped {
		e.mu.Unlock()
		return
	}
	e.state = player.Stopped
	streamer := e.streamer
	file := e.file
	e.streamer = nil
	e.file = nil
	e.mu.Unlock()

	speaker.Lock()
	e.ctrl.Streamer = nil
	speaker.Unlock()

	if streamer != nil {
		streamer.Close()
	}
	if file != nil {
		file.Close()
	}
}

// finished runs when the stream drains. Detaching the streamer in Stop
// also drains it, so a stopped engine reports no end of content.
func (e *Audio) finished() {
	e.mu.Lock()
	if e.state == player.Stopped {
		e.mu.Unlock()
		return
	}
	e.state = player.Ended
	cb := e.cb
	e.mu.Unlock()
	if cb.OnEnded != nil {
		cb.OnEnded()
	}
}

func (e *Audio) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != player.Playing {
		return
	}
	speaker.Lock()
	e.ctrl.Paused = true
	speaker.Unlock()
	e.state = player.Paused
	e.notifyStateChangedLocked()
}

func (e *Audio) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != player.Paused {
		return
	}
	speaker.Lock()
	e.ctrl.Paused = false
	speaker.Unlock()
	e.state = player.Playing
	e.notifyStateChangedLocked()
}

func (e *Audio) Restart() {
	e.SetPosition(0)
}

func (e *Audio) Position() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.streamer == nil {
		return 0
	}
	speaker.Lock()
	pos := e.format.SampleRate.D(e.streamer.Position())
	speaker.Unlock()
	return pos
}

func (e *Audio) Duration() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.streamer == nil {
		return 0
	}
	return e.format.SampleRate.D(e.streamer.Len())
}

func (e *Audio) SetPosition(pos time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.streamer == nil {
		return
	}
	n := e.format.SampleRate.N(pos)
	if n < 0 {
		n = 0
	}
	if max := e.streamer.Len(); n > max {
		n = max
	}
	speaker.Lock()
	_ = e.streamer.Seek(n)
	speaker.Unlock()
}

func (e *Audio) SetVolume(volume int) {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.volume = volume
	e.applyVolumeLocked()
}

func (e *Audio) SetMuted(muted bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.muted = muted
	e.applyVolumeLocked()
}

func (e *Audio) applyVolumeLocked() {
	speaker.Lock()
	e.vol.Volume = levelToVolume(float64(e.volume) / 100)
	e.vol.Silent = e.muted || e.volume == 0
	speaker.Unlock()
}

func (e *Audio) InitEvents(cb player.EventCallbacks) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cb = cb
}

func (e *Audio) ResetEvents() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cb = player.EventCallbacks{}
}

func (e *Audio) notifyStateChangedLocked() {
	if e.cb.OnStateChanged != nil {
		go e.cb.OnStateChanged()
	}
}

// levelToVolume converts a 0.0-1.0 level to beep's Volume value.
// beep uses a logarithmic scale where Volume is in "decibels" with base 2.
// Volume = 0 means no change, -1 = half volume, -2 = quarter, etc.
func levelToVolume(level float64) float64 {
	if level <= 0 {
		return -10
	}
	if level >= 1 {
		return 0
	}
	return math.Log2(level)
}
