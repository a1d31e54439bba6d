// Package cache persists rendered translations in badger, keyed by a content
// hash of everything that determines the output.
package cache

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"golang.org/x/crypto/blake2b"
)

// DomainKey separates cache keys from other hashes of the same inputs.
const DomainKey = "cypher2sql/cache/v1"

// keyPrefix namespaces translation entries inside the badger keyspace.
const keyPrefix = "tr:"

// ErrClosed is returned by operations on a closed cache.
var ErrClosed = errors.New("cache: closed")

// Entry is one cached translation.
type Entry struct {
	SQL         string    `json:"sql"`
	Dialect     string    `json:"dialect"`
	Fingerprint string    `json:"fingerprint"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Cache wraps a badger database. Safe for concurrent use.
type Cache struct {
	db *badger.DB
}

// Open opens the cache in dir, or an in-memory cache when dir is empty.
func Open(dir string) (*Cache, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	return &Cache{db: db}, nil
}

// Key derives the cache key for a translation. Surrounding whitespace of
// the query is ignored; everything else, including case, is significant.
//
// Format: hex(BLAKE2b-256(DomainKey, 0x00, len-prefixed fingerprint, dialect, query))
func Key(fingerprint, dialect, query string) string {
	buf := []byte(DomainKey)
	buf = append(buf, 0x00)
	for _, field := range []string{fingerprint, strings.ToLower(dialect), strings.TrimSpace(query)} {
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(field)))
		buf = append(buf, field...)
	}
	sum := blake2b.Sum256(buf)
	return hex.EncodeToString(sum[:])
}

// Get returns the entry stored under key. ok is false on a miss.
func (c *Cache) Get(ctx context.Context, key string) (entry Entry, ok bool, err error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, false, err
	}
	if c.db.IsClosed() {
		return Entry{}, false, ErrClosed
	}

	err = c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &entry); err != nil {
				return fmt.Errorf("decode cache entry: %w", err)
			}
			ok = true
			return nil
		})
	})
	if err != nil {
		return Entry{}, false, fmt.Errorf("cache get: %w", err)
	}
	return entry, ok, nil
}

// Put stores entry under key, replacing any previous value. A zero
// CreatedAt is set to the current time.
func (c *Cache) Put(ctx context.Context, key string, entry Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.db.IsClosed() {
		return ErrClosed
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+key), data)
	}); err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Len counts cached entries.
func (c *Cache) Len() (int, error) {
	if c.db.IsClosed() {
		return 0, ErrClosed
	}
	n := 0
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Purge removes every cached entry.
func (c *Cache) Purge() error {
	if c.db.IsClosed() {
		return ErrClosed
	}
	return c.db.DropPrefix([]byte(keyPrefix))
}

// Close flushes and closes the database.
func (c *Cache) Close() error {
	if c.db.IsClosed() {
		return nil
	}
	return c.db.Close()
}
