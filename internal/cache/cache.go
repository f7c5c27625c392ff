// Package cache provides the on-disk lookup cache shared by the external
// resolvers. Entries are namespaced per logical cache (filing lookups,
// geocoding, document bytes) so each can be cleared independently, and carry
// an optional expiry: expired entries read as misses but stay on disk until
// the next Put overwrites them.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// Well-known namespaces.
const (
	NamespaceFiling   = "filing"
	NamespaceGeocode  = "geocode"
	NamespaceDocument = "document"
	NamespaceRoster   = "roster"
)

// Policy controls how long a cache entry stays fresh.
type Policy struct {
	ttl time.Duration
}

// Permanent returns a policy for entries that never expire (static facts,
// e.g. an address's coordinate).
func Permanent() Policy { return Policy{} }

// ExpiresAfter returns a policy for entries that go stale after d.
func ExpiresAfter(d time.Duration) Policy { return Policy{ttl: d} }

// Store is a namespaced key/value cache backed by a single SQLite file.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if necessary) the cache database at path and applies
// the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "cache: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "cache: exec %s", pragma)
		}
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS cache_entries (
	namespace  TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      BLOB NOT NULL,
	created_at DATETIME NOT NULL,
	expires_at DATETIME,
	PRIMARY KEY (namespace, key)
);

CREATE TABLE IF NOT EXISTS batch_runs (
	id          TEXT PRIMARY KEY,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME,
	succeeded   INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0
);
`

func (s *Store) migrate() error {
	_, err := s.db.Exec(migration)
	return eris.Wrap(err, "cache: migrate")
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the value stored under (namespace, key). An entry past its
// expiry behaves as a miss; it is not deleted, so a later Put with the same
// key simply overwrites it.
func (s *Store) Get(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM cache_entries WHERE namespace = ? AND key = ?`,
		namespace, key,
	)

	var value []byte
	var expiresAt sql.NullTime
	err := row.Scan(&value, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "cache: get")
	}

	if expiresAt.Valid && !s.now().Before(expiresAt.Time) {
		return nil, false, nil
	}
	return value, true, nil
}

// Put stores value under (namespace, key), replacing any previous entry and
// its expiry.
func (s *Store) Put(ctx context.Context, namespace, key string, value []byte, policy Policy) error {
	now := s.now().UTC()
	var expiresAt any
	if policy.ttl > 0 {
		expiresAt = now.Add(policy.ttl)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cache_entries (namespace, key, value, created_at, expires_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (namespace, key) DO UPDATE SET
			value = excluded.value,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at`,
		namespace, key, value, now, expiresAt,
	)
	return eris.Wrap(err, "cache: put")
}

// Clear removes every entry in a namespace.
func (s *Store) Clear(ctx context.Context, namespace string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE namespace = ?`, namespace,
	)
	if err != nil {
		return 0, eris.Wrap(err, "cache: clear")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "cache: rows affected")
}

// StartRun records the start of a batch run.
func (s *Store) StartRun(ctx context.Context, runID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO batch_runs (id, started_at) VALUES (?, ?)`,
		runID, s.now().UTC(),
	)
	return eris.Wrap(err, "cache: start run")
}

// FinishRun records the outcome of a batch run.
func (s *Store) FinishRun(ctx context.Context, runID string, succeeded, failed int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE batch_runs SET finished_at = ?, succeeded = ?, failed = ? WHERE id = ?`,
		s.now().UTC(), succeeded, failed, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "cache: finish run %s", runID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "cache: rows affected")
	}
	if n == 0 {
		return eris.Errorf("cache: run not found: %s", runID)
	}
	return nil
}

// GetJSON unmarshals a cached JSON entry into out. found is false on a miss
// or expired entry.
func GetJSON[T any](ctx context.Context, s *Store, namespace, key string) (T, bool, error) {
	var out T
	raw, found, err := s.Get(ctx, namespace, key)
	if err != nil || !found {
		return out, false, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, false, eris.Wrapf(err, "cache: unmarshal %s/%s", namespace, key)
	}
	return out, true, nil
}

// PutJSON marshals v and stores it under (namespace, key).
func PutJSON(ctx context.Context, s *Store, namespace, key string, v any, policy Policy) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return eris.Wrapf(err, "cache: marshal %s/%s", namespace, key)
	}
	return s.Put(ctx, namespace, key, raw, policy)
}
