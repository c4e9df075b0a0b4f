// Package session persists captured request material (headers, cookies,
// payload templates) per target site so HTTP-only strategies can replay
// authenticated calls without re-running a full browser login.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/dharmasatrya/awardsearch/internal/models"

	_ "modernc.org/sqlite"
)

// Schema for the session_credentials table. Applied by Init.
const Schema = `
CREATE TABLE IF NOT EXISTS session_credentials (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	target TEXT NOT NULL,
	headers TEXT NOT NULL,
	payload TEXT NOT NULL,
	active INTEGER NOT NULL DEFAULT 1,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_session_credentials_target
	ON session_credentials(target, active, created_at DESC);
`

// Header is one captured request header. Order matters: some targets
// fingerprint clients by header ordering, so it is preserved verbatim.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Credential is one replayable set of captured headers and payload for a
// target site. Many credentials exist concurrently per target to spread
// load across them.
type Credential struct {
	ID        int64           `json:"id"`
	Target    string          `json:"target"`
	Headers   []Header        `json:"headers"`
	Payload   json.RawMessage `json:"payload"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"created_at"`
}

// hotTTL bounds how stale a FetchActive result can be. The database is
// shared across processes but the hot cache is not, so a Deactivate issued
// by another process stays invisible here for up to this long; keep it
// short enough that a retired credential is replayed at most once more.
const hotTTL = 10 * time.Second

// Store is the credential pool. Every operation is a single independent
// read-modify-write against one row; no lock is held across a network
// round trip. Concurrent writes to the same id are idempotent sets.
type Store struct {
	db  *sql.DB
	hot *expirable.LRU[string, []Credential]
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := New(db)
	if err := s.Init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func New(db *sql.DB) *Store {
	return &Store{
		db:  db,
		hot: expirable.NewLRU[string, []Credential](128, nil, hotTTL),
	}
}

// Init creates the session_credentials table if it doesn't exist.
func (s *Store) Init() error {
	_, err := s.db.Exec(Schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// FetchActive returns up to limit active credentials for target, newest
// first. Returns models.ErrNoActiveCredentials when the pool is empty so
// the caller can fall back to a strategy that mints new ones. The read
// path never deletes rows; pruning is owned by PruneInactive.
func (s *Store) FetchActive(ctx context.Context, target string, limit int) ([]Credential, error) {
	if cached, hit := s.hot.Get(target); hit {
		if len(cached) >= limit {
			return cached[:limit], nil
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, target, headers, payload, active, created_at
		FROM session_credentials
		WHERE target = ? AND active = 1
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, target, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var creds []Credential
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		creds = append(creds, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(creds) == 0 {
		return nil, models.ErrNoActiveCredentials
	}

	s.hot.Add(target, creds)
	return creds, nil
}

// Insert records a freshly captured credential, active by default. Called
// by a browser-driven strategy immediately after it observes a successful
// authenticated network call.
func (s *Store) Insert(ctx context.Context, target string, headers []Header, payload json.RawMessage) (int64, error) {
	headerJSON, err := json.Marshal(headers)
	if err != nil {
		return 0, err
	}
	if payload == nil {
		payload = json.RawMessage("{}")
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO session_credentials (target, headers, payload, active, created_at)
		VALUES (?, ?, ?, 1, ?)`,
		target, string(headerJSON), string(payload), time.Now().Unix())
	if err != nil {
		return 0, err
	}
	s.hot.Remove(target)
	return res.LastInsertId()
}

// Deactivate retires a credential the moment a replay using it fails.
// Idempotent: flipping an already-inactive row is a no-op. A failed replay
// usually means the target has fingerprinted that exact header/cookie
// combination, so the credential is never retried.
func (s *Store) Deactivate(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE session_credentials SET active = 0 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	s.hot.Purge()
	return nil
}

// Refresh persists rotated cookie values back onto the same record after a
// successful replay, so the next FetchActive sees the freshest jar rather
// than the one captured at mint time.
func (s *Store) Refresh(ctx context.Context, id int64, headers []Header) error {
	headerJSON, err := json.Marshal(headers)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE session_credentials SET headers = ? WHERE id = ?`,
		string(headerJSON), id)
	if err != nil {
		return err
	}
	s.hot.Purge()
	return nil
}

// PruneInactive deletes inactive credentials older than maxAge. Owned by
// the housekeeping ticker in cmd/server, never called from the read path.
func (s *Store) PruneInactive(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge).Unix()
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM session_credentials
		WHERE active = 0 AND created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	s.hot.Purge()
	return res.RowsAffected()
}

func scanCredential(rows *sql.Rows) (Credential, error) {
	var (
		c         Credential
		headers   string
		payload   string
		active    int
		createdAt int64
	)
	if err := rows.Scan(&c.ID, &c.Target, &headers, &payload, &active, &createdAt); err != nil {
		return Credential{}, err
	}
	if err := json.Unmarshal([]byte(headers), &c.Headers); err != nil {
		return Credential{}, err
	}
	c.Payload = json.RawMessage(payload)
	c.Active = active == 1
	c.CreatedAt = time.Unix(createdAt, 0)
	return c, nil
}
