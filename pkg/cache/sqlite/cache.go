package sqlite

import (
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/galen-ai/galen/pkg/models"
)

// Cache is a content-addressed artifact cache backed by SQLite. Lookups
// fail open: any store or decode problem reads as a miss, because the
// cache is an optimization and never the source of truth.
type Cache struct {
	db     *sql.DB
	ttl    time.Duration
	hits   atomic.Int64
	misses atomic.Int64
}

const createArtifactsTable = `
CREATE TABLE IF NOT EXISTS artifacts (
	fingerprint TEXT PRIMARY KEY,
	domain TEXT NOT NULL,
	subject TEXT NOT NULL,
	model TEXT NOT NULL,
	document BLOB NOT NULL,
	markdown TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	ttl_seconds INTEGER NOT NULL
);
`

// New creates a Cache at the given database path. A ttl of zero means
// entries never expire; artifacts are immutable and regeneration is an
// explicit caller decision.
func New(dbPath string, ttl time.Duration) (*Cache, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	if _, err := db.Exec(createArtifactsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}

	return &Cache{db: db, ttl: ttl}, nil
}

// Fingerprint computes a deterministic, order-sensitive digest over every
// field that can affect a generation result. Each field is length-prefixed
// before hashing so adjacent fields cannot collide by concatenation.
func Fingerprint(fields ...string) string {
	h := sha256.New()
	var n [8]byte
	for _, f := range fields {
		binary.BigEndian.PutUint64(n[:], uint64(len(f)))
		h.Write(n[:])
		h.Write([]byte(f))
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Get retrieves the artifact stored under a fingerprint. Returns false on
// absence, expiry, or a corrupt entry.
func (c *Cache) Get(fingerprint string) (models.Artifact, bool) {
	var a models.Artifact
	var document []byte
	var ttlSeconds int64

	err := c.db.QueryRow(
		`SELECT domain, subject, model, document, markdown, created_at, ttl_seconds
		 FROM artifacts WHERE fingerprint = ?`,
		fingerprint,
	).Scan(&a.Domain, &a.Subject, &a.Model, &document, &a.Markdown, &a.CreatedAt, &ttlSeconds)

	if err != nil {
		c.misses.Add(1)
		return models.Artifact{}, false
	}

	if ttlSeconds > 0 && time.Since(a.CreatedAt) > time.Duration(ttlSeconds)*time.Second {
		c.misses.Add(1)
		return models.Artifact{}, false
	}

	if !json.Valid(document) {
		c.misses.Add(1)
		return models.Artifact{}, false
	}

	a.Fingerprint = fingerprint
	a.Document = json.RawMessage(document)
	c.hits.Add(1)
	return a, true
}

// Put stores an artifact under its fingerprint, replacing any prior
// entry wholesale.
func (c *Cache) Put(fingerprint string, a models.Artifact) error {
	_, err := c.db.Exec(
		`INSERT OR REPLACE INTO artifacts
		 (fingerprint, domain, subject, model, document, markdown, created_at, ttl_seconds)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		fingerprint, a.Domain, a.Subject, a.Model, []byte(a.Document), a.Markdown,
		time.Now().UTC(), int64(c.ttl.Seconds()),
	)
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Stats returns cache performance metrics.
func (c *Cache) Stats() (models.CacheStats, error) {
	var count int64
	err := c.db.QueryRow(`SELECT COUNT(*) FROM artifacts`).Scan(&count)
	if err != nil {
		return models.CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}
	return models.CacheStats{
		Entries: count,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}, nil
}

// Clear removes cache entries. If expiredOnly is true, only expired
// entries are removed; entries with a zero TTL never expire.
func (c *Cache) Clear(expiredOnly bool) error {
	var query string
	if expiredOnly {
		query = `DELETE FROM artifacts WHERE ttl_seconds > 0
			AND (julianday('now') - julianday(created_at)) * 86400 > ttl_seconds`
	} else {
		query = `DELETE FROM artifacts`
	}
	_, err := c.db.Exec(query)
	if err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}
