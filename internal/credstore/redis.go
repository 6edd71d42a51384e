package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultNamespace prefixes the Redis keys when none is configured.
const DefaultNamespace = "eventadmin"

// ErrRedisUnavailable indicates the Redis server could not be reached.
var ErrRedisUnavailable = errors.New("redis unavailable")

// Redis stores the record under "<namespace>:token" and "<namespace>:user".
// Every client sharing the namespace shares the session.
type Redis struct {
	client    redis.UniversalClient
	namespace string
}

// NewRedis returns a Redis store using client. An empty namespace uses
// DefaultNamespace.
func NewRedis(client redis.UniversalClient, namespace string) *Redis {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Redis{client: client, namespace: namespace}
}

func (s *Redis) key(name string) string {
	return s.namespace + ":" + name
}

// Get reads both keys with a single MGET.
func (s *Redis) Get(ctx context.Context) (Record, error) {
	vals, err := s.client.MGet(ctx, s.key(KeyToken), s.key(KeyUser)).Result()
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var r Record
	if token, ok := vals[0].(string); ok {
		r.Token = token
	}
	if raw, ok := vals[1].(string); ok {
		var p Profile
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return Record{}, fmt.Errorf("%s: %v: %w", KeyUser, err, ErrCorrupt)
		}
		r.User = &p
	}
	return r, nil
}

// Set writes both keys in one MULTI/EXEC transaction. Empty fields are deleted.
func (s *Redis) Set(ctx context.Context, r Record) error {
	var user []byte
	if r.User != nil {
		var err error
		if user, err = json.Marshal(r.User); err != nil {
			return fmt.Errorf("failed to encode user: %w", err)
		}
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if r.Token == "" {
			pipe.Del(ctx, s.key(KeyToken))
		} else {
			pipe.Set(ctx, s.key(KeyToken), r.Token, 0)
		}
		if user == nil {
			pipe.Del(ctx, s.key(KeyUser))
		} else {
			pipe.Set(ctx, s.key(KeyUser), user, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Clear deletes both keys with a single DEL.
func (s *Redis) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key(KeyToken), s.key(KeyUser)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Close releases the underlying client.
func (s *Redis) Close() error {
	return s.client.Close()
}

var _ Store = (*Redis)(nil)
