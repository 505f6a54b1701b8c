// Package statestore implements the StateStore: a TTL-bounded
// key->document store tracking one ProcessedRequest end to end across the
// gateway and query engine. Update is a read-modify-write shallow merge
// that must not interleave across concurrent callers of the same key; it
// is realized as a single Lua script so Redis performs the merge
// server-side in one round trip.
package statestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "query:"

// updateScript reads the current document at KEYS[1] (if any), shallow
// merges ARGV[1] (a JSON object of patch fields) on top of it, stamps
// updated_at, and re-writes it preserving the remaining TTL when one is
// queryable and positive, else falling back to ARGV[2] (the default TTL
// in seconds). Returns the merged document, or false if the key was absent.
const updateScript = `
local existing = redis.call("GET", KEYS[1])
if existing == false then
  return false
end
local doc = cjson.decode(existing)
local patch = cjson.decode(ARGV[1])
for k, v in pairs(patch) do
  doc[k] = v
end
doc["updated_at"] = ARGV[3]
local ttl = redis.call("TTL", KEYS[1])
local effective_ttl = tonumber(ARGV[2])
if ttl and ttl > 0 then
  effective_ttl = ttl
end
local encoded = cjson.encode(doc)
redis.call("SETEX", KEYS[1], effective_ttl, encoded)
return encoded
`

// Store wraps a Redis client and exposes the StateStore operations.
type Store struct {
	rdb        *redis.Client
	defaultTTL time.Duration
	script     *redis.Script
}

// New creates a Redis client and verifies the connection with a PING.
func New(addr string, defaultTTL time.Duration) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Store{
		rdb:        rdb,
		defaultTTL: defaultTTL,
		script:     redis.NewScript(updateScript),
	}, nil
}

// Close shuts down the underlying connection pool.
func (s *Store) Close() error {
	return s.rdb.Close()
}

func key(id string) string {
	return keyPrefix + id
}

// Create sets the document at id with the default TTL. Overwrite is
// permitted.
func (s *Store) Create(ctx context.Context, id string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("statestore: marshal doc: %w", err)
	}
	return s.rdb.SetEx(ctx, key(id), data, s.defaultTTL).Err()
}

// Get returns the raw JSON document at id, or nil if absent. It never
// returns an error for a missing key.
func (s *Store) Get(ctx context.Context, id string) ([]byte, error) {
	data, err := s.rdb.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("statestore: get %s: %w", id, err)
	}
	return data, nil
}

// Update shallow-merges patch onto the stored document, atomically, and
// returns the merged document. Returns (nil, nil) if the key is absent.
func (s *Store) Update(ctx context.Context, id string, patch map[string]any) ([]byte, error) {
	patchJSON, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("statestore: marshal patch: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.script.Run(ctx, s.rdb, []string{key(id)}, string(patchJSON), int(s.defaultTTL.Seconds()), now).Result()
	if errors.Is(err, redis.Nil) {
		// The script's Lua false (absent key) arrives as a nil reply.
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("statestore: update %s: %w", id, err)
	}

	switch v := res.(type) {
	case nil:
		return nil, nil
	case bool:
		if !v {
			return nil, nil
		}
		return nil, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("statestore: unexpected script result type %T", res)
	}
}

// Delete removes the document at id, reporting whether it existed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	n, err := s.rdb.Del(ctx, key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("statestore: delete %s: %w", id, err)
	}
	return n > 0, nil
}

// IsHealthy pings the backend.
func (s *Store) IsHealthy(ctx context.Context) bool {
	return s.rdb.Ping(ctx).Err() == nil
}
