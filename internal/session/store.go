package session

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite" // SQLite driver

	dbutil "github.com/llehouerou/undertow/internal/db"
)

const (
	appName      = "undertow"
	dbFileName   = "undertow.db"
	saveInterval = 500 * time.Millisecond
)

// Store persists sessions and play counts in SQLite. Session saves are
// throttled per storage name; Close flushes anything pending.
type Store struct {
	db *sql.DB

	saveMu     sync.Mutex
	saveTimers map[string]*time.Timer
	pending    map[string]PersistedSession
}

// OpenStore opens (creating if needed) the store at the default XDG data
// path, or at dir if non-empty.
func OpenStore(dir string) (*Store, error) {
	var dbPath string
	if dir != "" {
		dbPath = filepath.Join(dir, dbFileName)
	} else {
		p, err := xdg.DataFile(filepath.Join(appName, dbFileName))
		if err != nil {
			return nil, err
		}
		dbPath = p
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return newStore(db), nil
}

// OpenStoreInMemory opens an in-memory store, used by tests.
func OpenStoreInMemory() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return newStore(db), nil
}

func newStore(db *sql.DB) *Store {
	return &Store{
		db:         db,
		saveTimers: make(map[string]*time.Timer),
		pending:    make(map[string]PersistedSession),
	}
}

// Close flushes pending saves and closes the database.
func (s *Store) Close() error {
	s.saveMu.Lock()
	for name, timer := range s.saveTimers {
		timer.Stop()
		delete(s.saveTimers, name)
	}
	pending := s.pending
	s.pending = make(map[string]PersistedSession)
	s.saveMu.Unlock()

	for name, sess := range pending {
		_ = s.writeSession(name, sess)
	}
	return s.db.Close()
}

// Save schedules a write of the session under the given storage name
// ("music", "podcast"). Rapid calls coalesce: a timer already pending
// keeps its deadline and fires with the latest snapshot, so a continuous
// stream of position ticks still reaches disk every interval.
func (s *Store) Save(name string, sess PersistedSession) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.pending[name] = sess

	if _, ok := s.saveTimers[name]; ok {
		return
	}
	s.saveTimers[name] = time.AfterFunc(saveInterval, func() {
		s.saveMu.Lock()
		sess, ok := s.pending[name]
		delete(s.pending, name)
		delete(s.saveTimers, name)
		s.saveMu.Unlock()

		if ok {
			_ = s.writeSession(name, sess)
		}
	})
}

// SaveNow writes the session immediately, bypassing the throttle.
func (s *Store) SaveNow(name string, sess PersistedSession) error {
	s.saveMu.Lock()
	if timer, ok := s.saveTimers[name]; ok {
		timer.Stop()
		delete(s.saveTimers, name)
	}
	delete(s.pending, name)
	s.saveMu.Unlock()

	return s.writeSession(name, sess)
}

// Load returns the persisted session for the storage name, or nil when
// none has been saved.
func (s *Store) Load(name string) (*PersistedSession, error) {
	var data string
	row := s.db.QueryRow(`SELECT data FROM sessions WHERE name = ?`, name)
	err := row.Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var sess PersistedSession
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, fmt.Errorf("corrupt session %q: %w", name, err)
	}
	return &sess, nil
}

// Delete removes the persisted session for the storage name.
func (s *Store) Delete(name string) error {
	s.saveMu.Lock()
	if timer, ok := s.saveTimers[name]; ok {
		timer.Stop()
		delete(s.saveTimers, name)
	}
	delete(s.pending, name)
	s.saveMu.Unlock()

	_, err := s.db.Exec(`DELETE FROM sessions WHERE name = ?`, name)
	return err
}

// IncrementPlayCount bumps the play count and last-played timestamp for a
// content key.
func (s *Store) IncrementPlayCount(key string, at time.Time) error {
	return dbutil.WithTx(s.db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO play_counts (key, plays, last_played)
			VALUES (?, 1, ?)
			ON CONFLICT(key) DO UPDATE SET
				plays = plays + 1,
				last_played = excluded.last_played
		`, key, at.Unix())
		return err
	})
}

// PlayCount returns the play count and last-played time for a content
// key. Zero values when the key has never been played.
func (s *Store) PlayCount(key string) (int64, time.Time, error) {
	var plays int64
	var lastPlayed sql.NullInt64
	row := s.db.QueryRow(`SELECT plays, last_played FROM play_counts WHERE key = ?`, key)
	err := row.Scan(&plays, &lastPlayed)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, time.Time{}, nil
	}
	if err != nil {
		return 0, time.Time{}, err
	}
	return plays, dbutil.NullUnixTime(lastPlayed), nil
}

func (s *Store) writeSession(name string, sess PersistedSession) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO sessions (name, data, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at
	`, name, string(data), time.Now().Unix())
	return err
}

const currentSchemaVersion = 1

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS sessions (
			name TEXT PRIMARY KEY,
			data TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS play_counts (
			key TEXT PRIMARY KEY,
			plays INTEGER NOT NULL DEFAULT 0,
			last_played INTEGER
		);
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`INSERT OR IGNORE INTO schema_version (version) VALUES (?)`, currentSchemaVersion)
	return err
}
