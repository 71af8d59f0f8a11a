package cache

import (
	"encoding/json"
	"errors"
	"log"
	"regexp"
	"strings"
	"time"
)

// DefaultTTL is how long a cached payload stays valid.
const DefaultTTL = 3600 * time.Second

// ErrNotFound is returned by storage backends when no payload exists for a
// key. Expired and missing entries are indistinguishable to callers.
var ErrNotFound = errors.New("cache: entry not found")

// Clock abstracts time so TTL behavior is testable without real delays.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Storage is a cache backend: it persists raw JSON payloads and reports when
// each payload was written. Backends that expire entries themselves (Redis)
// may report the read time as the write time.
type Storage interface {
	Read(key string) (data []byte, storedAt time.Time, err error)
	Write(key string, data []byte) error
}

// Store is a best-effort expiring key/value cache. Reads fall through on any
// failure and writes never surface errors: caching must not block
// correctness.
type Store struct {
	storage Storage
	ttl     time.Duration
	clock   Clock
}

func NewStore(storage Storage, ttl time.Duration) *Store {
	return NewStoreWithClock(storage, ttl, realClock{})
}

func NewStoreWithClock(storage Storage, ttl time.Duration, clock Clock) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{storage: storage, ttl: ttl, clock: clock}
}

// Get loads the payload for key into v. It returns false if the entry is
// missing, expired, or unreadable.
func (s *Store) Get(key string, v interface{}) bool {
	data, storedAt, err := s.storage.Read(key)
	if err != nil {
		return false
	}

	if s.clock.Now().Sub(storedAt) >= s.ttl {
		return false
	}

	if err := json.Unmarshal(data, v); err != nil {
		return false
	}
	return true
}

// Put stores v under key, overwriting any previous payload. Failures are
// logged and swallowed.
func (s *Store) Put(key string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("cache: failed to marshal payload for %s: %v", key, err)
		return
	}

	if err := s.storage.Write(key, data); err != nil {
		log.Printf("cache: failed to write %s: %v", key, err)
	}
}

var keyCharPattern = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// Key derives a deterministic cache key from a logical operation name, a
// caller identity, and optional qualifiers (typically a course id). Distinct
// (operation, identity, qualifier) triples never collide.
func Key(op, identity string, parts ...string) string {
	segments := append([]string{op, identity}, parts...)
	for i, seg := range segments {
		segments[i] = keyCharPattern.ReplaceAllString(seg, "_")
	}
	return strings.Join(segments, "_")
}
