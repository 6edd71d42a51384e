package credstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// ErrUnknownBackend indicates an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown credential store backend")

// Options selects and configures a backend.
type Options struct {
	// Backend is one of BackendFile (default), BackendRedis, BackendMemory.
	Backend string
	// Dir is the directory used by the file backend.
	Dir string
	// RedisURL is a redis:// URL used by the redis backend.
	RedisURL string
	// Namespace prefixes the redis keys.
	Namespace string
}

// Open returns the Store described by opts. The redis backend pings the
// server before returning. Stores that hold connections implement io.Closer.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendFile:
		if opts.Dir == "" {
			return nil, fmt.Errorf("file backend requires a directory")
		}
		return NewFile(opts.Dir), nil

	case BackendRedis:
		redisOpts, err := redis.ParseURL(opts.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		client := redis.NewClient(redisOpts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		return NewRedis(client, opts.Namespace), nil

	case BackendMemory:
		return &Memory{}, nil

	default:
		return nil, fmt.Errorf("%q (valid: %s, %s, %s): %w",
			opts.Backend, BackendFile, BackendRedis, BackendMemory, ErrUnknownBackend)
	}
}
