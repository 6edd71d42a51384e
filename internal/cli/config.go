package cli

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alnah/go-eventadmin/internal/config"
)

// EnvAPIURL overrides the api-url setting.
const EnvAPIURL = "EVENTADMIN_API_URL"

// ConfigCmd creates the config command with subcommands.
// The env parameter provides injectable dependencies for testing.
func ConfigCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration settings",
		Long: `Manage persistent configuration settings.

Configuration is stored in ~/.config/eventadmin/config.
EVENTADMIN_API_URL overrides api-url.

Supported settings:
  api-url          API base address (default: http://localhost:8000/api/v1)
  timeout          Request timeout, e.g. 10s (default: 10s)
  language         Error message language: en, fr (default: en)
  store            Credential store: file, redis, memory (default: file)
  credentials-dir  Directory of the file store (default: ~/.config/eventadmin/credentials)
  redis-url        Redis address for the redis store, e.g. redis://localhost:6379/0
  redis-namespace  Key prefix in Redis (default: eventadmin)`,
		Example: `  eventadmin config set api-url https://events.example.com/api/v1
  eventadmin config get timeout
  eventadmin config list`,
	}

	cmd.AddCommand(configSetCmd(env))
	cmd.AddCommand(configGetCmd(env))
	cmd.AddCommand(configListCmd(env))

	return cmd
}

// configSetCmd creates the "config set" subcommand.
func configSetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value. An empty value restores the default.

The credentials-dir directory is created if it doesn't exist.`,
		Example: `  eventadmin config set language fr
  eventadmin config set store redis
  eventadmin config set timeout ""`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(env, args[0], args[1])
		},
	}
}

// configGetCmd creates the "config get" subcommand.
func configGetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Long: `Get a configuration value.

Prints the value to stdout, or nothing if not set.`,
		Example: `  eventadmin config get api-url`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(env, args[0])
		},
	}
}

// configListCmd creates the "config list" subcommand.
func configListCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration values",
		Long: `List all configuration values.

Shows both values from the config file and environment variable overrides.`,
		Example: `  eventadmin config list`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigList(env)
		},
	}
}

// runConfigSet handles the "config set" command.
func runConfigSet(env *Env, key, value string) error {
	if !config.IsKey(key) {
		return unknownKeyError(key)
	}

	// Store the expanded path for consistency.
	if key == config.KeyCredentialsDir {
		value = config.ExpandPath(value)
	}

	if err := config.Save(key, value); err != nil {
		return err
	}

	fmt.Fprintf(env.Stderr, "Set %s = %s\n", key, value)
	return nil
}

// runConfigGet handles the "config get" command.
func runConfigGet(env *Env, key string) error {
	if !config.IsKey(key) {
		return unknownKeyError(key)
	}

	value, err := config.Get(key)
	if err != nil {
		return err
	}

	// Environment override.
	if key == config.KeyAPIURL {
		if v := env.Getenv(EnvAPIURL); v != "" {
			value = v
		}
	}

	if value != "" {
		fmt.Fprintln(env.Stdout, value)
	}

	return nil
}

// runConfigList handles the "config list" command.
func runConfigList(env *Env) error {
	data, err := config.List()
	if err != nil {
		return err
	}

	if v := env.Getenv(EnvAPIURL); v != "" {
		data[config.KeyAPIURL] = v + " (from env)"
	}

	if len(data) == 0 {
		fmt.Fprintln(env.Stdout, "No configuration set.")
		fmt.Fprintln(env.Stdout, "\nAvailable settings:")
		for _, key := range config.Keys {
			fmt.Fprintf(env.Stdout, "  %s\n", key)
		}
		return nil
	}

	// Known keys in display order, then anything else left in the file.
	for _, key := range config.Keys {
		if value, ok := data[key]; ok {
			fmt.Fprintf(env.Stdout, "%s=%s\n", key, value)
			delete(data, key)
		}
	}
	for _, key := range slices.Sorted(maps.Keys(data)) {
		fmt.Fprintf(env.Stdout, "%s=%s (unused)\n", key, data[key])
	}

	return nil
}

func unknownKeyError(key string) error {
	return fmt.Errorf("%q (valid keys: %s): %w", key, strings.Join(config.Keys, ", "), config.ErrUnknownKey)
}
