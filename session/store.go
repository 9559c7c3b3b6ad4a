package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by Get when no live record exists for the session id.
var ErrNotFound = errors.New("session not found")

// ErrUnavailable wraps every transport or timeout failure talking to Redis.
var ErrUnavailable = errors.New("session store unavailable")

// ErrEmptyKey is returned when a session or user id is empty.
var ErrEmptyKey = errors.New("empty session key component")

// DefaultTTL is the lifetime of a SessionRecord when none is configured.
const DefaultTTL = 24 * time.Hour

// DefaultOpTimeout bounds each store call unless the caller's context is tighter.
const DefaultOpTimeout = 2 * time.Second

// discardSessionScript removes a record and its index entry in one step.
// The record is only deleted when it is absent or owned by ARGV[1], so a
// mismatched cookie can never remove another user's session.
const discardSessionScript = `
local owner = redis.call("GET", KEYS[1])
local removed = 0
if (not owner) or owner == ARGV[1] then
  removed = redis.call("DEL", KEYS[1])
end
redis.call("SREM", KEYS[2], ARGV[2])
return removed
`

var discardSessionLua = redis.NewScript(discardSessionScript)

// Store persists SessionRecords and UserSessionIndex sets in Redis.
//
// Key layout, with an optional prefix:
//
//	session:<sessionId>        -> userId   (TTL)
//	user:<userId>:sessions     -> set(sessionId)   (no TTL)
//
// Every method is a single round trip bounded by the store's op timeout and
// maps failures to [ErrNotFound] or [ErrUnavailable]. Retries are left to the
// go-redis client.
type Store struct {
	redis     redis.UniversalClient
	prefix    string
	opTimeout time.Duration
}

// NewStore wraps an already configured client. The client is not owned by the
// Store and is never closed by it.
func NewStore(rdb redis.UniversalClient, prefix string, opTimeout time.Duration) *Store {
	if opTimeout <= 0 {
		opTimeout = DefaultOpTimeout
	}
	return &Store{
		redis:     rdb,
		prefix:    prefix,
		opTimeout: opTimeout,
	}
}

// SessionKey returns the Redis key of a SessionRecord.
func (s *Store) SessionKey(sessionID string) string {
	return s.prefix + "session:" + sessionID
}

// IndexKey returns the Redis key of a user's session index.
func (s *Store) IndexKey(userID string) string {
	return s.prefix + "user:" + userID + ":sessions"
}

// Put creates or overwrites a SessionRecord.
func (s *Store) Put(ctx context.Context, sessionID, userID string, ttl time.Duration) error {
	if sessionID == "" || userID == "" {
		return ErrEmptyKey
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	return classify(s.redis.Set(ctx, s.SessionKey(sessionID), userID, normalizeTTL(ttl)).Err())
}

// Get returns the owning user id of a live session.
func (s *Store) Get(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", ErrNotFound
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	userID, err := s.redis.Get(ctx, s.SessionKey(sessionID)).Result()
	if err != nil {
		return "", classify(err)
	}
	return userID, nil
}

// Delete removes a SessionRecord. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	return classify(s.redis.Del(ctx, s.SessionKey(sessionID)).Err())
}

// AddToIndex adds sessionID to the user's index set.
func (s *Store) AddToIndex(ctx context.Context, userID, sessionID string) error {
	if sessionID == "" || userID == "" {
		return ErrEmptyKey
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	return classify(s.redis.SAdd(ctx, s.IndexKey(userID), sessionID).Err())
}

// RemoveFromIndex removes sessionID from the user's index set. Removing an
// absent member is not an error.
func (s *Store) RemoveFromIndex(ctx context.Context, userID, sessionID string) error {
	if sessionID == "" || userID == "" {
		return nil
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	return classify(s.redis.SRem(ctx, s.IndexKey(userID), sessionID).Err())
}

// MembersOf lists the session ids indexed for a user. A missing index is an
// empty set.
func (s *Store) MembersOf(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, nil
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	members, err := s.redis.SMembers(ctx, s.IndexKey(userID)).Result()
	if err != nil {
		return nil, classify(err)
	}
	return members, nil
}

// DeleteIndex drops the whole index set. The session records it named are
// left to expire.
func (s *Store) DeleteIndex(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	return classify(s.redis.Del(ctx, s.IndexKey(userID)).Err())
}

// Create writes a SessionRecord and its index entry in one MULTI/EXEC, so a
// successful call never leaves one without the other.
func (s *Store) Create(ctx context.Context, sessionID, userID string, ttl time.Duration) error {
	if sessionID == "" || userID == "" {
		return ErrEmptyKey
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.SessionKey(sessionID), userID, normalizeTTL(ttl))
		pipe.SAdd(ctx, s.IndexKey(userID), sessionID)
		return nil
	})
	return classify(err)
}

// Discard deletes a session owned by userID together with its index entry.
// It reports whether a record was removed. Repeated calls are no-ops.
func (s *Store) Discard(ctx context.Context, userID, sessionID string) (bool, error) {
	if sessionID == "" || userID == "" {
		return false, nil
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	removed, err := discardSessionLua.Run(
		ctx,
		s.redis,
		[]string{s.SessionKey(sessionID), s.IndexKey(userID)},
		userID,
		sessionID,
	).Int()
	if err != nil {
		return false, classify(err)
	}
	return removed == 1, nil
}

// TTL reports the remaining lifetime of a live record.
func (s *Store) TTL(ctx context.Context, sessionID string) (time.Duration, error) {
	if sessionID == "" {
		return 0, ErrNotFound
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	ttl, err := s.redis.TTL(ctx, s.SessionKey(sessionID)).Result()
	if err != nil {
		return 0, classify(err)
	}
	// -2: key missing, -1: no expiry
	if ttl == -2 {
		return 0, ErrNotFound
	}
	return ttl, nil
}

// Ping checks that the store answers within the op timeout.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	return classify(s.redis.Ping(ctx).Err())
}

func (s *Store) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func normalizeTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultTTL
	}
	if ttl < time.Second {
		return time.Second
	}
	return ttl
}
