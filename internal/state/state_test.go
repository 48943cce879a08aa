package state

import (
	"path/filepath"
	"testing"
)

func openTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := OpenPath(filepath.Join(t.TempDir(), "state", "test.db"))
	if err != nil {
		t.Fatalf("OpenPath() error = %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestGetSettings_DefaultsWhenEmpty(t *testing.T) {
	m := openTestManager(t)

	s, err := m.GetSettings()
	if err != nil {
		t.Fatalf("GetSettings() error = %v", err)
	}
	if s != DefaultSettings() {
		t.Errorf("GetSettings() = %+v, want defaults %+v", s, DefaultSettings())
	}
	if s.Volume != 100 {
		t.Errorf("default Volume = %d, want 100", s.Volume)
	}
}

func TestSaveSettings_FlushRoundtrip(t *testing.T) {
	m := openTestManager(t)

	saved := PlayerSettings{Volume: 70, Muted: true, PlayMode: 1, RepeatMode: 2}
	m.SaveSettings(saved)
	if err := m.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	got, err := m.GetSettings()
	if err != nil {
		t.Fatalf("GetSettings() error = %v", err)
	}
	if got != saved {
		t.Errorf("GetSettings() = %+v, want %+v", got, saved)
	}
}

func TestSaveSettings_LastWriteWins(t *testing.T) {
	m := openTestManager(t)

	// Rapid updates collapse into the final value.
	for volume := 0; volume <= 100; volume += 10 {
		m.SaveSettings(PlayerSettings{Volume: volume})
	}
	if err := m.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	got, err := m.GetSettings()
	if err != nil {
		t.Fatalf("GetSettings() error = %v", err)
	}
	if got.Volume != 100 {
		t.Errorf("Volume = %d, want the last written 100", got.Volume)
	}
}

func TestFlush_NoPendingIsNoop(t *testing.T) {
	m := openTestManager(t)
	if err := m.Flush(); err != nil {
		t.Errorf("Flush() with nothing pending error = %v", err)
	}
}

func TestClose_FlushesPending(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	m, err := OpenPath(path)
	if err != nil {
		t.Fatalf("OpenPath() error = %v", err)
	}
	m.SaveSettings(PlayerSettings{Volume: 33, Muted: true})
	if err := m.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := OpenPath(path)
	if err != nil {
		t.Fatalf("OpenPath() reopen error = %v", err)
	}
	defer reopened.Close()

	got, err := reopened.GetSettings()
	if err != nil {
		t.Fatalf("GetSettings() error = %v", err)
	}
	if got.Volume != 33 || !got.Muted {
		t.Errorf("GetSettings() = %+v, want Volume 33 muted", got)
	}
}

func TestSaveSettings_Overwrite(t *testing.T) {
	m := openTestManager(t)

	m.SaveSettings(PlayerSettings{Volume: 10})
	if err := m.Flush(); err != nil {
		t.Fatal(err)
	}
	m.SaveSettings(PlayerSettings{Volume: 90, PlayMode: 1})
	if err := m.Flush(); err != nil {
		t.Fatal(err)
	}

	got, err := m.GetSettings()
	if err != nil {
		t.Fatalf("GetSettings() error = %v", err)
	}
	if got.Volume != 90 || got.PlayMode != 1 {
		t.Errorf("GetSettings() = %+v, want Volume 90 PlayMode 1", got)
	}
}
