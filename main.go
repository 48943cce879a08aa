package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ltreguier/greenroom/internal/config"
	"github.com/ltreguier/greenroom/internal/engine"
	"github.com/ltreguier/greenroom/internal/errmsg"
	"github.com/ltreguier/greenroom/internal/events"
	"github.com/ltreguier/greenroom/internal/playback"
	"github.com/ltreguier/greenroom/internal/playlist"
	"github.com/ltreguier/greenroom/internal/slot"
	"github.com/ltreguier/greenroom/internal/state"
)

const cliModuleID = "greenroom.cli"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <audio file> [more files...]\n", os.Args[0])
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		return errors.New(errmsg.Format(errmsg.OpConfigLoad, err))
	}

	log := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	var stateMgr *state.Manager
	settings := state.DefaultSettings()
	settings.Volume = cfg.DefaultVolume
	settings.Muted = cfg.StartMuted
	if cfg.PersistState() {
		if cfg.State.Path != "" {
			stateMgr, err = state.OpenPath(cfg.State.Path)
		} else {
			stateMgr, err = state.Open()
		}
		if err != nil {
			return errors.New(errmsg.Format(errmsg.OpSettingsLoad, err))
		}
		defer stateMgr.Close()
		if saved, err := stateMgr.GetSettings(); err == nil {
			settings = saved
		}
	}

	bus := events.NewBus()
	defer bus.Close()

	slots := slot.NewManager(bus, log)
	slots.RegisterBuilder(engine.NewAudioBuilder())
	slots.SetVolume(settings.Volume)
	slots.SetMuted(settings.Muted)

	mgr := playback.NewManager(slots, bus, log)
	defer mgr.Close()

	ctx, err := mgr.OpenAudioPlayerContext(cliModuleID, "Command line playback", false,
		uuid.Nil, uuid.Nil)
	if err != nil {
		return errors.New(errmsg.Format(errmsg.OpContextOpen, err))
	}
	ctx.SetCloseWhenFinished(true)
	ctx.EditPlaylist(func(pl *playlist.Playlist) {
		pl.SetPlayMode(playMode(settings.PlayMode))
		pl.SetRepeatMode(repeatMode(settings.RepeatMode))
		for _, path := range os.Args[1:] {
			item := playlist.Item{ID: uuid.New(), Locator: path, MimeType: "audio/*"}
			if info, err := engine.ReadTrackInfo(path); err == nil {
				item.Title = info.Title
			} else {
				log.Debug(errmsg.FormatWith(errmsg.OpMediaProbe, path, err))
			}
			pl.Add(item)
		}
	})

	sub := bus.Subscribe()
	defer sub.Close()

	if !ctx.Play() {
		return errors.New(errmsg.FormatWith(errmsg.OpPlaybackStart, os.Args[1], slot.ErrNoEngine))
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case <-sig:
			mgr.CloseAllPlayerContexts()
			saveSettings(log, stateMgr, slots, ctx)
			return nil
		case msg, ok := <-sub.C:
			if !ok {
				return nil
			}
			printEvent(ctx, msg)
			if msg.Type == events.PlayerSlotDeactivated && !ctx.IsValid() {
				saveSettings(log, stateMgr, slots, ctx)
				return nil
			}
		}
	}
}

func printEvent(ctx *playback.Context, msg events.Message) {
	switch msg.Type {
	case events.PlayerStarted, events.PlaylistAdvance:
		if item := currentItem(ctx); item != nil {
			fmt.Printf("Playing: %s\n", item.Title)
		}
	case events.PlayerError:
		fmt.Printf("Playback failed: %v\n", msg.Err)
	}
}

func currentItem(ctx *playback.Context) *playlist.Item {
	var item *playlist.Item
	ctx.EditPlaylist(func(pl *playlist.Playlist) {
		item = pl.Current()
	})
	return item
}

func saveSettings(log *logrus.Logger, stateMgr *state.Manager, slots *slot.Manager, ctx *playback.Context) {
	if stateMgr == nil {
		return
	}
	s := state.PlayerSettings{
		Volume: slots.Volume(),
		Muted:  slots.Muted(),
	}
	ctx.EditPlaylist(func(pl *playlist.Playlist) {
		s.PlayMode = int(pl.PlayMode())
		s.RepeatMode = int(pl.RepeatMode())
	})
	stateMgr.SaveSettings(s)
	if err := stateMgr.Flush(); err != nil {
		log.Warn(errmsg.Format(errmsg.OpSettingsSave, err))
	}
}

func playMode(v int) playlist.PlayMode {
	if v == int(playlist.Shuffle) {
		return playlist.Shuffle
	}
	return playlist.Continuous
}

func repeatMode(v int) playlist.RepeatMode {
	switch v {
	case int(playlist.RepeatOne):
		return playlist.RepeatOne
	case int(playlist.RepeatAll):
		return playlist.RepeatAll
	default:
		return playlist.RepeatNone
	}
}
