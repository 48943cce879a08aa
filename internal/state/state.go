package state

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/ltreguier/greenroom/internal/db"
)

const (
	appName      = "greenroom"
	dbFileName   = "greenroom.db"
	saveDebounce = 500 * time.Millisecond
)

// PlayerSettings are the persisted playback settings restored on
// startup.
type PlayerSettings struct {
	Volume     int
	Muted      bool
	PlayMode   int
	RepeatMode int
}

// DefaultSettings returns the settings used when nothing was saved yet.
func DefaultSettings() PlayerSettings {
	return PlayerSettings{Volume: 100}
}

type Manager struct {
	db        *sql.DB
	saveMu    sync.Mutex
	saveTimer *time.Timer
	pending   *PlayerSettings
}

func Open() (*Manager, error) {
	dbPath, err := getDBPath()
	if err != nil {
		return nil, err
	}
	return OpenPath(dbPath)
}

// OpenPath opens the settings database at the given path, creating it
// if needed.
func OpenPath(dbPath string) (*Manager, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}

	sqldb, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if err := initSchema(sqldb); err != nil {
		sqldb.Close()
		return nil, err
	}

	return &Manager{db: sqldb}, nil
}

func (m *Manager) Close() error {
	m.saveMu.Lock()
	if m.saveTimer != nil {
		m.saveTimer.Stop()
	}
	pending := m.pending
	m.pending = nil
	m.saveMu.Unlock()

	// Flush pending settings
	if pending != nil {
		_ = saveSettings(m.db, *pending)
	}

	return m.db.Close()
}

func (m *Manager) DB() *sql.DB {
	return m.db
}

// GetSettings returns the saved player settings, or the defaults when
// nothing was saved yet.
func (m *Manager) GetSettings() (PlayerSettings, error) {
	var s PlayerSettings
	row := m.db.QueryRow(`
		SELECT volume, muted, play_mode, repeat_mode
		FROM player_settings WHERE id = 1
	`)
	err := row.Scan(&s.Volume, &s.Muted, &s.PlayMode, &s.RepeatMode)
	if err == sql.ErrNoRows {
		return DefaultSettings(), nil
	}
	if err != nil {
		return PlayerSettings{}, err
	}
	return s, nil
}

// SaveSettings persists the player settings, debounced so rapid volume
// changes collapse into one write.
func (m *Manager) SaveSettings(s PlayerSettings) {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	m.pending = &s

	if m.saveTimer != nil {
		m.saveTimer.Stop()
	}

	m.saveTimer = time.AfterFunc(saveDebounce, func() {
		m.saveMu.Lock()
		pending := m.pending
		m.pending = nil
		m.saveMu.Unlock()

		if pending != nil {
			_ = saveSettings(m.db, *pending)
		}
	})
}

// Flush writes any pending settings immediately.
func (m *Manager) Flush() error {
	m.saveMu.Lock()
	if m.saveTimer != nil {
		m.saveTimer.Stop()
	}
	pending := m.pending
	m.pending = nil
	m.saveMu.Unlock()

	if pending == nil {
		return nil
	}
	return saveSettings(m.db, *pending)
}

func saveSettings(sqldb *sql.DB, s PlayerSettings) error {
	return db.WithTx(sqldb, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO player_settings (id, volume, muted, play_mode, repeat_mode)
			VALUES (1, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				volume = excluded.volume,
				muted = excluded.muted,
				play_mode = excluded.play_mode,
				repeat_mode = excluded.repeat_mode
		`, s.Volume, s.Muted, s.PlayMode, s.RepeatMode)
		return err
	})
}

func getDBPath() (string, error) {
	return xdg.DataFile(filepath.Join(appName, dbFileName))
}
