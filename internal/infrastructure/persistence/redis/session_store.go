package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/classtrack/classtrack/internal/application/session"
)

// Session fields, one key each under session:{device}:.
const (
	fieldToken     = "token"
	fieldUserID    = "user_id"
	fieldUserName  = "user_name"
	fieldUserEmail = "user_email"
	fieldRole      = "role"
)

var sessionFields = []string{fieldToken, fieldUserID, fieldUserName, fieldUserEmail, fieldRole}

// SessionStore implements session.Store. Each device has its own
// namespace so several CLI installs can share one Redis.
type SessionStore struct {
	cache  *Cache
	device string
	ttl    time.Duration
}

var _ session.Store = (*SessionStore)(nil)

// NewSessionStore creates a store for device. ttl <= 0 uses TTLSessionData.
func NewSessionStore(cache *Cache, device string, ttl time.Duration) *SessionStore {
	if device == "" {
		device = "default"
	}
	if ttl <= 0 {
		ttl = TTLSessionData
	}
	return &SessionStore{cache: cache, device: device, ttl: ttl}
}

func (s *SessionStore) key(field string) string {
	return PrefixSession + s.device + ":" + field
}

func (s *SessionStore) keys() []string {
	keys := make([]string, len(sessionFields))
	for i, f := range sessionFields {
		keys[i] = s.key(f)
	}
	return keys
}

// Save writes every field atomically with the session TTL.
func (s *SessionStore) Save(ctx context.Context, sess session.Session) error {
	values := map[string]string{
		fieldToken:     sess.Token,
		fieldUserID:    sess.UserID,
		fieldUserName:  sess.UserName,
		fieldUserEmail: sess.UserEmail,
		fieldRole:      sess.Role,
	}

	_, err := s.cache.Client().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, f := range sessionFields {
			pipe.Set(ctx, s.key(f), values[f], s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Load returns nil, nil when no session is stored.
func (s *SessionStore) Load(ctx context.Context) (*session.Session, error) {
	vals, err := s.cache.Client().MGet(ctx, s.keys()...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("load session: %w", err)
	}

	got := make(map[string]string, len(sessionFields))
	present := false
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		present = true
		got[sessionFields[i]] = str
	}
	if !present {
		return nil, nil
	}

	return &session.Session{
		Token:     got[fieldToken],
		UserID:    got[fieldUserID],
		UserName:  got[fieldUserName],
		UserEmail: got[fieldUserEmail],
		Role:      got[fieldRole],
	}, nil
}

// Clear removes every key under the device namespace, including keys this
// store did not write.
func (s *SessionStore) Clear(ctx context.Context) error {
	keys := s.keys()
	iter := s.cache.Client().Scan(ctx, 0, s.key("*"), 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan session keys: %w", err)
	}

	if err := s.cache.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
