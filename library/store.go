package library

import (
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/nacl/secretbox"
)

// ErrNoSession is returned by LoadSession when nothing usable is stored.
var ErrNoSession = errors.New("no stored session")

const maxSearchHistory = 20

// Store keeps client-side state between runs: small JSON values, recent
// searches and sealed session tokens. Chat transcripts are not stored.
type Store struct {
	db  *sql.DB
	key *[32]byte

	putValueStmt  *sql.Stmt
	getValueStmt  *sql.Stmt
	addSearchStmt *sql.Stmt
}

// NewStore opens (or creates) the SQLite database at dbPath and the sealing
// key next to it, then applies migrations and prepares common statements.
func NewStore(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	key, err := loadOrCreateKey(filepath.Join(dir, "session.key"))
	if err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db, key: key}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases prepared statements and closes the DB.
func (s *Store) Close() error {
	for _, stmt := range []*sql.Stmt{s.putValueStmt, s.getValueStmt, s.addSearchStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return s.db.Close()
}

func loadOrCreateKey(path string) (*[32]byte, error) {
	var key [32]byte
	raw, err := os.ReadFile(path)
	switch {
	case err == nil && len(raw) == len(key):
		copy(key[:], raw)
		return &key, nil
	case err == nil:
		return nil, fmt.Errorf("session key %s is corrupt (%d bytes)", path, len(raw))
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("read session key: %w", err)
	}
	if _, err := io.ReadFull(rand.Reader, key[:]); err != nil {
		return nil, fmt.Errorf("generate session key: %w", err)
	}
	if err := os.WriteFile(path, key[:], 0o600); err != nil {
		return nil, fmt.Errorf("write session key: %w", err)
	}
	return &key, nil
}

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS kv (
            key TEXT PRIMARY KEY,
            value TEXT NOT NULL,
            updated_at INTEGER NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS search_history (
            query TEXT PRIMARY KEY,
            searched_at INTEGER NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS sessions (
            name TEXT PRIMARY KEY,
            username TEXT NOT NULL,
            sealed BLOB NOT NULL,
            expires_at INTEGER NOT NULL DEFAULT 0
        );`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
        ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Prepared statements
// ---------------------------------------------------------------------------

func (s *Store) prepareStatements() error {
	var err error
	if s.putValueStmt, err = s.db.Prepare(`INSERT INTO kv(key,value,updated_at) VALUES(?,?,?)
        ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`); err != nil {
		return err
	}
	if s.getValueStmt, err = s.db.Prepare(`SELECT value FROM kv WHERE key=?`); err != nil {
		return err
	}
	if s.addSearchStmt, err = s.db.Prepare(`INSERT INTO search_history(query,searched_at) VALUES(?,?)
        ON CONFLICT(query) DO UPDATE SET searched_at=excluded.searched_at`); err != nil {
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// Key/value storage
// ---------------------------------------------------------------------------

// SaveToStorage stores value as JSON under key.
func (s *Store) SaveToStorage(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	_, err = s.putValueStmt.Exec(key, string(raw), time.Now().UnixNano())
	return err
}

// GetFromStorage decodes the value under key into dst. It reports false,
// leaving dst untouched, when the key is absent.
func (s *Store) GetFromStorage(key string, dst any) (bool, error) {
	var raw string
	err := s.getValueStmt.QueryRow(key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) RemoveFromStorage(key string) error {
	_, err := s.db.Exec(`DELETE FROM kv WHERE key=?`, key)
	return err
}

// ---------------------------------------------------------------------------
// Search history
// ---------------------------------------------------------------------------

// AddSearch records q as the most recent search. Repeats move to the front
// and only the newest entries are kept.
func (s *Store) AddSearch(q string) error {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil
	}
	if _, err := s.addSearchStmt.Exec(q, time.Now().UnixNano()); err != nil {
		return err
	}
	_, err := s.db.Exec(`DELETE FROM search_history WHERE query NOT IN (
        SELECT query FROM search_history ORDER BY searched_at DESC, rowid DESC LIMIT ?)`, maxSearchHistory)
	return err
}

// RecentSearches returns up to limit queries, newest first.
func (s *Store) RecentSearches(limit int) ([]string, error) {
	if limit <= 0 {
		limit = maxSearchHistory
	}
	rows, err := s.db.Query(`SELECT query FROM search_history ORDER BY searched_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *Store) ClearSearches() error {
	_, err := s.db.Exec(`DELETE FROM search_history`)
	return err
}

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

type sealedSession struct {
	Username  string    `json:"username"`
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SaveSession seals sess under name. The token never touches disk in the
// clear.
func (s *Store) SaveSession(name string, sess *Session) error {
	if !sess.Valid(time.Now()) {
		return fmt.Errorf("refusing to store an invalid session")
	}
	plain, err := json.Marshal(sealedSession{
		Username:  sess.Username,
		Token:     sess.Token(),
		TokenType: sess.TokenType,
		IssuedAt:  sess.IssuedAt,
		ExpiresAt: sess.ExpiresAt,
	})
	if err != nil {
		return err
	}

	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return fmt.Errorf("session nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], plain, &nonce, s.key)

	// 0 marks a token without an exp claim.
	var expires int64
	if !sess.ExpiresAt.IsZero() {
		expires = sess.ExpiresAt.Unix()
	}
	_, err = s.db.Exec(`INSERT INTO sessions(name,username,sealed,expires_at) VALUES(?,?,?,?)
        ON CONFLICT(name) DO UPDATE SET username=excluded.username, sealed=excluded.sealed, expires_at=excluded.expires_at`,
		name, sess.Username, sealed, expires)
	return err
}

// LoadSession opens the session stored under name. Expired or unreadable
// sessions are deleted and reported as ErrNoSession.
func (s *Store) LoadSession(name string, now time.Time) (*Session, error) {
	var (
		sealed  []byte
		expires int64
	)
	err := s.db.QueryRow(`SELECT sealed, expires_at FROM sessions WHERE name=?`, name).Scan(&sealed, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	if expires > 0 && now.Unix() >= expires {
		return nil, s.discardSession(name)
	}

	if len(sealed) < 24 {
		return nil, s.discardSession(name)
	}
	var nonce [24]byte
	copy(nonce[:], sealed[:24])
	plain, ok := secretbox.Open(nil, sealed[24:], &nonce, s.key)
	if !ok {
		return nil, s.discardSession(name)
	}
	var rec sealedSession
	if err := json.Unmarshal(plain, &rec); err != nil {
		return nil, s.discardSession(name)
	}

	sess := &Session{
		Username:    rec.Username,
		AccessToken: rec.Token,
		TokenType:   rec.TokenType,
		IssuedAt:    rec.IssuedAt,
		ExpiresAt:   rec.ExpiresAt,
	}
	if !sess.Valid(now) {
		return nil, s.discardSession(name)
	}
	return sess, nil
}

func (s *Store) discardSession(name string) error {
	if err := s.DeleteSession(name); err != nil {
		return err
	}
	return ErrNoSession
}

func (s *Store) DeleteSession(name string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE name=?`, name)
	return err
}
