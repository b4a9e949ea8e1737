package artifact

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

// DefaultKeyPrefix namespaces artifact keys in a shared redis.
const DefaultKeyPrefix = "tejas:artifact:"

// RedisStore keeps artifacts in redis with a per-key expiry, so any replica
// can serve a token minted by another.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore wraps an existing client. An empty prefix uses
// DefaultKeyPrefix.
func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

// Ping checks the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return eris.Wrap(err, "artifact: redis ping")
	}
	return nil
}

// Put stores a under a fresh token with the store's TTL.
func (s *RedisStore) Put(ctx context.Context, a *Artifact) (string, error) {
	if a == nil {
		return "", eris.New("artifact: nil artifact")
	}
	payload, err := json.Marshal(a)
	if err != nil {
		return "", eris.Wrap(err, "artifact: encode")
	}

	token := uuid.NewString()
	if err := s.client.Set(ctx, s.prefix+token, payload, s.ttl).Err(); err != nil {
		return "", eris.Wrap(err, "artifact: redis set")
	}
	return token, nil
}

// Get loads the artifact for token. Malformed tokens are reported as
// ErrNotFound without touching redis.
func (s *RedisStore) Get(ctx context.Context, token string) (*Artifact, error) {
	if _, err := uuid.Parse(token); err != nil {
		return nil, eris.Wrapf(ErrNotFound, "artifact: malformed token %q", token)
	}

	payload, err := s.client.Get(ctx, s.prefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, eris.Wrapf(ErrNotFound, "artifact: token %s", token)
	}
	if err != nil {
		return nil, eris.Wrap(err, "artifact: redis get")
	}

	var a Artifact
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, eris.Wrap(err, "artifact: decode")
	}
	return &a, nil
}
