package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/farmops/agrifleet/pkg/observability"
)

const (
	blacklistKeyPrefix = "jwt:blacklist:"
	sessionKeyPrefix   = "jwt:user:login:"

	// Floor applied when a token is blacklisted at or past its expiry, so
	// the entry outlives any clock skew between nodes.
	minBlacklistTTL = time.Minute
)

// Record is the login state kept per user. One record per user: a second
// login overwrites the first, which is what evicts the older device.
type Record struct {
	UserID    int64  `json:"userId"`
	Username  string `json:"username"`
	Token     string `json:"token"`
	LoginTime int64  `json:"loginTime"`
}

// Store keeps the two Redis-backed pieces of session state: the token
// blacklist consulted on every authenticated request, and the per-user
// active-session records with sliding expiry.
type Store struct {
	client     *redis.Client
	sessionTTL time.Duration
	metrics    *observability.Metrics
}

// NewStore wraps an already-connected Redis client. sessionTTL is the
// lifetime of a session record, normally equal to the token lifetime.
// metrics may be nil.
func NewStore(client *redis.Client, sessionTTL time.Duration, metrics *observability.Metrics) *Store {
	return &Store{
		client:     client,
		sessionTTL: sessionTTL,
		metrics:    metrics,
	}
}

func (s *Store) countOp(op string, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.SessionStoreOpsTotal.WithLabelValues(op).Inc()
	if err != nil {
		s.metrics.SessionStoreErrorsTotal.WithLabelValues(op).Inc()
	}
}

// Blacklist voids a token until its natural expiry. expiryUnixMilli is the
// token's exp claim; entries for already-expired tokens still get a short
// TTL rather than being skipped.
func (s *Store) Blacklist(ctx context.Context, token string, expiryUnixMilli int64) error {
	ttl := time.Until(time.UnixMilli(expiryUnixMilli))
	if ttl <= 0 {
		ttl = minBlacklistTTL
	}

	err := s.client.Set(ctx, blacklistKeyPrefix+token, "1", ttl).Err()
	s.countOp("blacklist_add", err)
	if err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}
	return nil
}

// IsBlacklisted reports whether a token has been voided. Callers treat an
// error as "unknown" and decide their own failure posture.
func (s *Store) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	n, err := s.client.Exists(ctx, blacklistKeyPrefix+token).Result()
	s.countOp("blacklist_check", err)
	if err != nil {
		return false, fmt.Errorf("failed to check token blacklist: %w", err)
	}
	return n > 0, nil
}

// RemoveFromBlacklist deletes a blacklist entry. Administrative escape
// hatch; nothing in the request path calls this.
func (s *Store) RemoveFromBlacklist(ctx context.Context, token string) error {
	err := s.client.Del(ctx, blacklistKeyPrefix+token).Err()
	s.countOp("blacklist_remove", err)
	if err != nil {
		return fmt.Errorf("failed to remove token from blacklist: %w", err)
	}
	return nil
}

// SaveSession records a fresh login, replacing any previous record for the
// same user.
func (s *Store) SaveSession(ctx context.Context, userID int64, username, token string) error {
	record := Record{
		UserID:    userID,
		Username:  username,
		Token:     token,
		LoginTime: time.Now().UnixMilli(),
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode session record: %w", err)
	}

	err = s.client.Set(ctx, sessionKey(userID), data, s.sessionTTL).Err()
	s.countOp("session_save", err)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// GetSession returns the active record for a user, or nil when none exists.
// A hit resets the record's TTL, so a session stays alive as long as the
// user keeps making requests.
func (s *Store) GetSession(ctx context.Context, userID int64) (*Record, error) {
	key := sessionKey(userID)

	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		s.countOp("session_get", nil)
		return nil, nil
	}
	s.countOp("session_get", err)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode session record: %w", err)
	}

	// Sliding expiry. Best effort: a failed refresh still returns the record.
	s.client.Expire(ctx, key, s.sessionTTL)

	return &record, nil
}

// RemoveSession deletes the user's record. Idempotent.
func (s *Store) RemoveSession(ctx context.Context, userID int64) error {
	err := s.client.Del(ctx, sessionKey(userID)).Err()
	s.countOp("session_remove", err)
	if err != nil {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}

// IsActive reports whether the user currently holds a session record.
// Unlike GetSession this does not touch the TTL.
func (s *Store) IsActive(ctx context.Context, userID int64) (bool, error) {
	n, err := s.client.Exists(ctx, sessionKey(userID)).Result()
	s.countOp("session_check", err)
	if err != nil {
		return false, fmt.Errorf("failed to check session: %w", err)
	}
	return n > 0, nil
}

// CountActive scans for session records and returns how many exist.
// SCAN-based, so it is approximate under concurrent churn; it feeds the
// active-sessions gauge, not any authorization decision.
func (s *Store) CountActive(ctx context.Context) (int64, error) {
	var count int64
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, sessionKeyPrefix+"*", 100).Result()
		if err != nil {
			s.countOp("session_count", err)
			return 0, fmt.Errorf("failed to count sessions: %w", err)
		}
		count += int64(len(keys))
		cursor = next
		if cursor == 0 {
			break
		}
	}
	s.countOp("session_count", nil)
	return count, nil
}

// Close releases the underlying Redis connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}

func sessionKey(userID int64) string {
	return fmt.Sprintf("%s%d", sessionKeyPrefix, userID)
}
