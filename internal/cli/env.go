package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/alnah/go-eventadmin/internal/config"
	"github.com/alnah/go-eventadmin/internal/credstore"
)

// Env holds injectable dependencies for CLI commands.
// This is the central injection point for testing CLI commands in isolation.
//
// All fields have sensible defaults via DefaultEnv(). Tests can override
// specific fields using the With* options or by creating a custom Env.
//
// Env must not be nil when passed to command functions. Use DefaultEnv()
// or NewEnv() to create a valid instance.
type Env struct {
	// I/O and environment
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader
	Getenv func(string) string
	Now    func() time.Time

	// Logger receives diagnostic events; user-facing output goes to Stderr.
	Logger zerolog.Logger

	// Factories for domain objects
	ConfigLoader ConfigLoader
	StoreFactory StoreFactory
}

// ConfigLoader loads and provides access to configuration.
type ConfigLoader interface {
	Load() (config.Config, error)
}

// StoreFactory opens the credential store selected by the configuration.
type StoreFactory interface {
	Open(ctx context.Context, cfg config.Config) (credstore.Store, error)
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithStdout sets the stdout writer.
func WithStdout(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stdout = w
	}
}

// WithStderr sets the stderr writer.
func WithStderr(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stderr = w
	}
}

// WithStdin sets the stdin reader.
func WithStdin(r io.Reader) EnvOption {
	return func(e *Env) {
		e.Stdin = r
	}
}

// WithGetenv sets the environment variable getter.
func WithGetenv(fn func(string) string) EnvOption {
	return func(e *Env) {
		e.Getenv = fn
	}
}

// WithNow sets the time provider.
func WithNow(fn func() time.Time) EnvOption {
	return func(e *Env) {
		e.Now = fn
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l zerolog.Logger) EnvOption {
	return func(e *Env) {
		e.Logger = l
	}
}

// WithConfigLoader sets the config loader.
func WithConfigLoader(l ConfigLoader) EnvOption {
	return func(e *Env) {
		e.ConfigLoader = l
	}
}

// WithStoreFactory sets the credential store factory.
func WithStoreFactory(f StoreFactory) EnvOption {
	return func(e *Env) {
		e.StoreFactory = f
	}
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	return &Env{
		Stdout:       os.Stdout,
		Stderr:       os.Stderr,
		Stdin:        os.Stdin,
		Getenv:       os.Getenv,
		Now:          time.Now,
		Logger:       zerolog.Nop(),
		ConfigLoader: &defaultConfigLoader{},
		StoreFactory: &defaultStoreFactory{},
	}
}

// NewEnv creates an Env with the given options applied to defaults.
func NewEnv(opts ...EnvOption) *Env {
	env := DefaultEnv()
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// ---------------------------------------------------------------------------
// Default implementations - delegate to real packages
// ---------------------------------------------------------------------------

// defaultConfigLoader implements ConfigLoader using the config package.
type defaultConfigLoader struct{}

func (defaultConfigLoader) Load() (config.Config, error) {
	return config.Load()
}

// defaultStoreFactory implements StoreFactory using credstore.Open.
type defaultStoreFactory struct{}

func (defaultStoreFactory) Open(ctx context.Context, cfg config.Config) (credstore.Store, error) {
	dir, err := config.CredentialsDir(cfg)
	if err != nil {
		return nil, err
	}
	return credstore.Open(ctx, credstore.Options{
		Backend:   cfg.Store,
		Dir:       dir,
		RedisURL:  cfg.RedisURL,
		Namespace: cfg.RedisNamespace,
	})
}

// Compile-time interface verification.
var (
	_ ConfigLoader = (*defaultConfigLoader)(nil)
	_ StoreFactory = (*defaultStoreFactory)(nil)
)
