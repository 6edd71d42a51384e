package config

import (
	"bufio"
	"errors"
	"fmt"
	"maps"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/alnah/go-eventadmin/internal/lang"
)

// Config keys.
const (
	KeyAPIURL         = "api-url"
	KeyTimeout        = "timeout"
	KeyLanguage       = "language"
	KeyStore          = "store"
	KeyCredentialsDir = "credentials-dir"
	KeyRedisURL       = "redis-url"
	KeyRedisNamespace = "redis-namespace"
)

// Keys lists the supported keys in display order.
var Keys = []string{
	KeyAPIURL,
	KeyTimeout,
	KeyLanguage,
	KeyStore,
	KeyCredentialsDir,
	KeyRedisURL,
	KeyRedisNamespace,
}

// Credential store backends accepted by the store key.
var storeBackends = []string{"file", "redis", "memory"}

// EnvPrefix is the prefix of environment overrides (EVENTADMIN_API_URL).
const EnvPrefix = "eventadmin"

// Sentinel errors.
var (
	ErrUnknownKey    = errors.New("unknown config key")
	ErrInvalidValue  = errors.New("invalid config value")
	ErrInvalidSyntax = errors.New("invalid config syntax")
)

// Config holds user configuration loaded from ~/.config/eventadmin/config.
// Zero fields mean "use the built-in default".
type Config struct {
	APIURL         string
	Timeout        time.Duration
	Language       string
	Store          string
	CredentialsDir string
	RedisURL       string
	RedisNamespace string
}

// env holds the environment overrides.
type env struct {
	APIURL string `envconfig:"API_URL"`
}

// dir returns the configuration directory path.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config/eventadmin.
func dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "eventadmin"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "eventadmin"), nil
}

// path returns the full path to the config file.
func path() (string, error) {
	d, err := dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "config"), nil
}

// Load reads the configuration file and environment overrides.
// Precedence: EVENTADMIN_API_URL, then config file values.
// Returns an empty Config if the file doesn't exist (not an error).
func Load() (Config, error) {
	var cfg Config

	p, err := path()
	if err != nil {
		return cfg, err
	}

	// Read config file if it exists.
	data, err := parseFile(p)
	if err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	for key, value := range data {
		// Unknown keys are ignored; the directory is checked when saved.
		if value == "" || !IsKey(key) || key == KeyCredentialsDir {
			continue
		}
		if err := Validate(key, value); err != nil {
			return cfg, fmt.Errorf("%s: %w", p, err)
		}
	}

	cfg.APIURL = data[KeyAPIURL]
	cfg.Language = data[KeyLanguage]
	cfg.Store = data[KeyStore]
	cfg.CredentialsDir = ExpandPath(data[KeyCredentialsDir])
	cfg.RedisURL = data[KeyRedisURL]
	cfg.RedisNamespace = data[KeyRedisNamespace]
	if v := data[KeyTimeout]; v != "" {
		cfg.Timeout, _ = time.ParseDuration(v) // validated above
	}

	// Environment overrides win over the file.
	var e env
	if err := envconfig.Process(EnvPrefix, &e); err != nil {
		return cfg, fmt.Errorf("failed to read environment: %w", err)
	}
	if e.APIURL != "" {
		if err := Validate(KeyAPIURL, e.APIURL); err != nil {
			return cfg, fmt.Errorf("EVENTADMIN_API_URL: %w", err)
		}
		cfg.APIURL = e.APIURL
	}

	return cfg, nil
}

// parseFile reads a key=value config file.
// Format: one key=value per line, # comments, empty lines ignored.
func parseFile(p string) (map[string]string, error) {
	f, err := os.Open(p) // #nosec G304 -- config path is constructed from home dir
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	data := make(map[string]string)
	scanner := bufio.NewScanner(f)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: %q: %w", lineNum, line, ErrInvalidSyntax)
		}
		data[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return data, nil
}

// Save validates and writes a single key=value to the config file.
// Creates the config directory and file if they don't exist.
// Preserves existing key=value pairs but discards comments.
func Save(key, value string) error {
	if err := Validate(key, value); err != nil {
		return err
	}

	p, err := path()
	if err != nil {
		return err
	}

	// Ensure config directory exists.
	if err := os.MkdirAll(filepath.Dir(p), 0700); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	existing, _ := parseFile(p)
	if existing == nil {
		existing = make(map[string]string)
	}
	existing[key] = value

	return writeFile(p, existing)
}

// writeFile writes the config map to a file, keys sorted.
// The file may hold a Redis password, so it is private to the user.
func writeFile(p string, data map[string]string) error {
	// #nosec G304 -- path from home dir
	f, err := os.OpenFile(p, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("cannot write config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	for _, key := range slices.Sorted(maps.Keys(data)) {
		if _, err := fmt.Fprintf(f, "%s=%s\n", key, data[key]); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	return nil
}

// Get reads a single value from the config file.
// Returns empty string if the key doesn't exist.
func Get(key string) (string, error) {
	if !IsKey(key) {
		return "", fmt.Errorf("%q: %w", key, ErrUnknownKey)
	}

	p, err := path()
	if err != nil {
		return "", err
	}

	data, err := parseFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}

	return data[key], nil
}

// List returns all config values as a map.
func List() (map[string]string, error) {
	p, err := path()
	if err != nil {
		return nil, err
	}

	data, err := parseFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}

	return data, nil
}

// IsKey reports whether key is a supported config key.
func IsKey(key string) bool {
	return slices.Contains(Keys, key)
}

// Validate checks value for key. An empty value is always accepted and
// means "use the default".
func Validate(key, value string) error {
	if !IsKey(key) {
		return fmt.Errorf("%q: %w", key, ErrUnknownKey)
	}
	if value == "" {
		return nil
	}

	switch key {
	case KeyAPIURL:
		u, err := url.Parse(value)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%s must be an http(s) URL, got %q: %w", key, value, ErrInvalidValue)
		}
	case KeyTimeout:
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			return fmt.Errorf("%s must be a positive duration such as 10s, got %q: %w", key, value, ErrInvalidValue)
		}
	case KeyLanguage:
		if err := lang.Validate(value); err != nil {
			return fmt.Errorf("%s: %w: %w", key, ErrInvalidValue, err)
		}
	case KeyStore:
		if !slices.Contains(storeBackends, value) {
			return fmt.Errorf("%s must be one of %s, got %q: %w", key, strings.Join(storeBackends, ", "), value, ErrInvalidValue)
		}
	case KeyCredentialsDir:
		if err := ValidDir(value); err != nil {
			return fmt.Errorf("%s: %w: %w", key, ErrInvalidValue, err)
		}
	case KeyRedisURL:
		if !strings.HasPrefix(value, "redis://") && !strings.HasPrefix(value, "rediss://") {
			return fmt.Errorf("%s must start with redis:// or rediss://, got %q: %w", key, value, ErrInvalidValue)
		}
	case KeyRedisNamespace:
		if strings.ContainsAny(value, " \t") {
			return fmt.Errorf("%s must not contain spaces: %w", key, ErrInvalidValue)
		}
	}
	return nil
}

// ValidDir checks if a directory path is usable for credential files,
// creating it when missing.
func ValidDir(d string) error {
	d = ExpandPath(d)

	info, err := os.Stat(d)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(d, 0700); err != nil {
				return fmt.Errorf("cannot create directory: %w", err)
			}
			return nil
		}
		return fmt.Errorf("cannot access directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", d)
	}

	// Check if writable by attempting to create a temp file.
	f, err := os.CreateTemp(d, ".eventadmin-write-test-*")
	if err != nil {
		return fmt.Errorf("directory is not writable: %w", err)
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)

	return nil
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, strings.TrimPrefix(p[1:], "/"))
	}
	return p
}

// Dir returns the configuration directory path.
func Dir() (string, error) {
	return dir()
}

// CredentialsDir returns the directory of the file credential store:
// cfg.CredentialsDir when set, otherwise <config dir>/credentials.
func CredentialsDir(cfg Config) (string, error) {
	if cfg.CredentialsDir != "" {
		return cfg.CredentialsDir, nil
	}
	d, err := dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "credentials"), nil
}

// ParseFile reads a key=value config file (exported for testing).
func ParseFile(p string) (map[string]string, error) {
	return parseFile(p)
}
