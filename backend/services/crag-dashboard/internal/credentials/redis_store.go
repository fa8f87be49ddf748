package credentials

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is where the credential lives when no key is configured.
const DefaultRedisKey = "cragwatch:credential"

var clearIfScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisStore shares one credential between dashboard replicas. JWT credentials are
// stored with a TTL matching their exp claim.
type RedisStore struct {
	client *redis.Client
	key    string
	now    func() time.Time
}

// NewRedisStore returns redis-backed store.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key, now: time.Now}
}

// Token returns the stored credential or "" if absent.
func (s *RedisStore) Token(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return token, nil
}

// Set stores the credential.
func (s *RedisStore) Set(ctx context.Context, token string) error {
	now := s.now()
	tok, exp, err := normalize(token, now)
	if err != nil {
		return err
	}
	var ttl time.Duration
	if !exp.IsZero() {
		ttl = exp.Sub(now)
	}
	return s.client.Set(ctx, s.key, tok, ttl).Err()
}

// Clear removes the credential.
func (s *RedisStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}

// ClearIf atomically removes the credential if it still equals token.
func (s *RedisStore) ClearIf(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return clearIfScript.Run(ctx, s.client, []string{s.key}, token).Err()
}
