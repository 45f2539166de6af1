// Package banstore persists the ban list in SQLite.
package banstore

import (
	"database/sql"
	"errors"
	"fmt"
	"net/netip"
	"sync"
	"time"

	"github.com/dkeye/voipcore/internal/ban"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

var ErrClosed = errors.New("ban store closed")

// SQLiteStore implements ban.Store. Entries are cached in memory so the
// handshake check never touches the database.
type SQLiteStore struct {
	db *sql.DB

	mu     sync.RWMutex
	cache  []ban.Entry
	closed bool

	Now func() time.Time
}

var _ ban.Store = (*SQLiteStore)(nil)

func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open ban database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	s := &SQLiteStore{db: db, Now: time.Now}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.load(); err != nil {
		db.Close()
		return nil, err
	}
	log.Info().Str("module", "adapters.banstore").Str("path", path).Int("entries", len(s.cache)).Msg("ban list loaded")
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS bans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		prefix TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		hash TEXT NOT NULL DEFAULT '',
		reason TEXT NOT NULL DEFAULT '',
		start INTEGER NOT NULL,
		duration INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_bans_hash ON bans(hash);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create ban schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) load() error {
	rows, err := s.db.Query(`SELECT prefix, name, hash, reason, start, duration FROM bans ORDER BY id`)
	if err != nil {
		return fmt.Errorf("query bans: %w", err)
	}
	defer rows.Close()

	var out []ban.Entry
	for rows.Next() {
		var (
			prefix          string
			e               ban.Entry
			start, duration int64
		)
		if err := rows.Scan(&prefix, &e.Name, &e.Hash, &e.Reason, &start, &duration); err != nil {
			return fmt.Errorf("scan ban: %w", err)
		}
		if prefix != "" {
			if e.Prefix, err = netip.ParsePrefix(prefix); err != nil {
				log.Warn().Str("module", "adapters.banstore").Str("prefix", prefix).Msg("skipping ban with bad prefix")
				continue
			}
		}
		e.Start = time.Unix(start, 0)
		e.Duration = time.Duration(duration) * time.Second
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate bans: %w", err)
	}
	s.cache = out
	return nil
}

func (s *SQLiteStore) IsBanned(id ban.Identity) bool {
	now := s.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.cache {
		if !e.Expired(now) && e.Matches(id) {
			return true
		}
	}
	return false
}

func (s *SQLiteStore) RecordBan(id ban.Identity, reason string, duration time.Duration) error {
	e := ban.Entry{
		Prefix:   ban.HostPrefix(id.Addr),
		Name:     id.Name,
		Hash:     id.Hash,
		Reason:   reason,
		Start:    s.Now(),
		Duration: duration,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := insert(s.db, e); err != nil {
		return err
	}
	s.cache = append(s.cache, e)
	return nil
}

func (s *SQLiteStore) Entries() ([]ban.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	out := make([]ban.Entry, len(s.cache))
	copy(out, s.cache)
	return out, nil
}

// SetEntries replaces the whole list in one transaction.
func (s *SQLiteStore) SetEntries(entries []ban.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM bans`); err != nil {
		return fmt.Errorf("clear bans: %w", err)
	}
	for _, e := range entries {
		if err := insert(tx, e); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bans: %w", err)
	}
	s.cache = append([]ban.Entry(nil), entries...)
	return nil
}

func (s *SQLiteStore) Prune(now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	res, err := s.db.Exec(`DELETE FROM bans WHERE duration > 0 AND start + duration <= ?`, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("prune bans: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		kept := s.cache[:0]
		for _, e := range s.cache {
			if !e.Expired(now) {
				kept = append(kept, e)
			}
		}
		s.cache = kept
	}
	return int(n), nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insert(db execer, e ban.Entry) error {
	prefix := ""
	if e.Prefix.IsValid() {
		prefix = e.Prefix.String()
	}
	_, err := db.Exec(
		`INSERT INTO bans (prefix, name, hash, reason, start, duration) VALUES (?, ?, ?, ?, ?, ?)`,
		prefix, e.Name, e.Hash, e.Reason, e.Start.Unix(), int64(e.Duration/time.Second),
	)
	if err != nil {
		return fmt.Errorf("insert ban: %w", err)
	}
	return nil
}
