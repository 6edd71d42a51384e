package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alnah/go-eventadmin/internal/auth"
	"github.com/alnah/go-eventadmin/internal/credstore"
	"github.com/alnah/go-eventadmin/internal/format"
	"github.com/alnah/go-eventadmin/internal/lang"
)

// Environment variables read by login.
const (
	EnvUsername = "EVENTADMIN_USERNAME"
	EnvPassword = "EVENTADMIN_PASSWORD"
)

// loginOptions holds the login flags.
type loginOptions struct {
	username      string
	passwordStdin bool
	superadmin    bool
}

// LoginCmd creates the login command.
// The env parameter provides injectable dependencies for testing.
func LoginCmd(env *Env) *cobra.Command {
	return loginCmd(env, false)
}

func loginCmd(env *Env, superadmin bool) *cobra.Command {
	opts := loginOptions{superadmin: superadmin}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the event platform",
		Long: `Sign in with an email address or phone number and a password.

The access token and your profile are kept in the credential store so
later commands are authenticated. The password is read from stdin with
--password-stdin, or from EVENTADMIN_PASSWORD.`,
		Example: `  echo "$PASSWORD" | eventadmin login -u awa@example.com --password-stdin
  EVENTADMIN_PASSWORD=... eventadmin login -u +221771234567`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, env, opts)
		},
	}
	if superadmin {
		cmd.Short = "Sign in to the superadmin area"
		cmd.Long += "\n\nOnly accounts with the admin role are accepted."
		cmd.Example = `  echo "$PASSWORD" | eventadmin superadmin login -u root@example.com --password-stdin`
	}

	cmd.Flags().StringVarP(&opts.username, "username", "u", "", "Email or phone number (default: $EVENTADMIN_USERNAME)")
	cmd.Flags().BoolVar(&opts.passwordStdin, "password-stdin", false, "Read the password from stdin")

	return cmd
}

// runLogin executes the login flow.
func runLogin(cmd *cobra.Command, env *Env, opts loginOptions) error {
	creds, err := readCredentials(env, opts)
	if err != nil {
		return err
	}

	d, err := openDeps(cmd, env)
	if err != nil {
		return err
	}
	defer d.close()

	login := d.auth.Login
	if opts.superadmin {
		login = d.auth.SuperadminLogin
	}
	record, err := login(cmd.Context(), creds)
	if err != nil {
		return err
	}

	fmt.Fprintf(env.Stderr, "Signed in as %s (%s)\n", displayName(record.User), record.User.Role)
	if claims, err := auth.ParseClaims(record.Token); err == nil {
		if _, ok := claims.Expiry(); ok {
			fmt.Fprintf(env.Stderr, "Session valid for %s\n", format.DurationHuman(claims.Remaining(env.Now())))
		}
	}
	return nil
}

// readCredentials collects the username and password from flags, stdin
// and environment.
func readCredentials(env *Env, opts loginOptions) (auth.Credentials, error) {
	username := opts.username
	if username == "" {
		username = env.Getenv(EnvUsername)
	}
	if strings.TrimSpace(username) == "" {
		return auth.Credentials{}, ErrUsernameMissing
	}

	var password string
	if opts.passwordStdin {
		line, err := bufio.NewReader(env.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return auth.Credentials{}, fmt.Errorf("cannot read password from stdin: %w", ErrPasswordMissing)
		}
		password = strings.TrimRight(line, "\r\n")
	} else {
		password = env.Getenv(EnvPassword)
	}
	if password == "" {
		return auth.Credentials{}, ErrPasswordMissing
	}

	return auth.Credentials{Username: username, Password: password}, nil
}

// LogoutCmd creates the logout command.
func LogoutCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(cmd, env)
		},
	}
}

// runLogout clears the credential record.
func runLogout(cmd *cobra.Command, env *Env) error {
	d, err := openDeps(cmd, env)
	if err != nil {
		return err
	}
	defer d.close()

	if err := d.auth.Logout(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(env.Stderr, "Signed out.")
	return nil
}

// WhoamiCmd creates the whoami command.
func WhoamiCmd(env *Env) *cobra.Command {
	var (
		refresh bool
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Long: `Show the user stored with the current session.

With --refresh the profile is fetched from the backend first, which also
checks that the session is still valid.`,
		Example: `  eventadmin whoami
  eventadmin whoami --refresh --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWhoami(cmd, env, refresh, asJSON)
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "Fetch the profile from the backend")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the profile as JSON")

	return cmd
}

// runWhoami prints the stored profile.
func runWhoami(cmd *cobra.Command, env *Env, refresh, asJSON bool) error {
	d, err := openDeps(cmd, env)
	if err != nil {
		return err
	}
	defer d.close()

	ctx := cmd.Context()
	var record credstore.Record
	if refresh {
		record, err = d.auth.Refresh(ctx)
	} else {
		record, err = d.auth.Current(ctx)
	}
	if err != nil {
		return err
	}
	if !record.SignedIn() {
		return auth.ErrNotSignedIn
	}
	if record.User == nil {
		return fmt.Errorf("no cached profile, run whoami --refresh: %w", auth.ErrNotSignedIn)
	}

	if asJSON {
		data, err := json.Marshal(record.User)
		if err != nil {
			return fmt.Errorf("cannot encode profile: %w", err)
		}
		_, err = env.Stdout.Write(format.JSON(data))
		return err
	}

	p := record.User
	fmt.Fprintf(env.Stdout, "Name:     %s\n", displayName(p))
	fmt.Fprintf(env.Stdout, "Email:    %s\n", p.Email)
	if p.PhoneFull != "" {
		fmt.Fprintf(env.Stdout, "Phone:    %s\n", p.PhoneFull)
	}
	fmt.Fprintf(env.Stdout, "Role:     %s\n", p.Role)
	if p.PreferredLanguage != "" {
		fmt.Fprintf(env.Stdout, "Language: %s\n", lang.DisplayName(p.PreferredLanguage))
	}

	claims, err := auth.ParseClaims(record.Token)
	switch {
	case err != nil:
		fmt.Fprintln(env.Stdout, "Session:  unreadable token")
	case claims.Expired(env.Now()):
		fmt.Fprintln(env.Stdout, "Session:  expired")
	default:
		if _, ok := claims.Expiry(); ok {
			fmt.Fprintf(env.Stdout, "Session:  valid for %s\n", format.DurationHuman(claims.Remaining(env.Now())))
		}
	}
	return nil
}

// displayName returns the full name, or the email when no name is set.
func displayName(p *credstore.Profile) string {
	if name := p.FullName(); name != "" {
		return name
	}
	return p.Email
}
