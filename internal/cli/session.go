package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/alnah/go-eventadmin/internal/auth"
	"github.com/alnah/go-eventadmin/internal/config"
	"github.com/alnah/go-eventadmin/internal/credstore"
	"github.com/alnah/go-eventadmin/internal/session"
)

// binaryName prefixes the login hints printed on redirect.
const binaryName = "eventadmin"

// terminalNavigator is the Navigator of the command line. The location is
// the command path below the root ("eventadmin superadmin get" is
// "/superadmin/get") and a redirect prints the command that signs in again.
type terminalNavigator struct {
	location string
	w        io.Writer
	once     sync.Once
}

// newNavigator derives the location from cmd.
func newNavigator(cmd *cobra.Command, w io.Writer) *terminalNavigator {
	var names []string
	for c := cmd; c != nil && c.HasParent(); c = c.Parent() {
		names = append([]string{c.Name()}, names...)
	}
	return &terminalNavigator{location: "/" + strings.Join(names, "/"), w: w}
}

func (n *terminalNavigator) Location() string {
	return n.location
}

// Redirect prints the sign-in hint once per command run. Nothing is printed
// when the user is already on the target, e.g. a rejected login.
func (n *terminalNavigator) Redirect(target string) {
	if target == n.location {
		return
	}
	n.once.Do(func() {
		_, _ = fmt.Fprintf(n.w, "Session expired. Sign in again: %s\n", loginCommand(target))
	})
}

// loginCommand maps a login surface to the command that serves it.
func loginCommand(target string) string {
	return binaryName + strings.ReplaceAll(target, "/", " ")
}

// deps is what a command needs to talk to the backend.
type deps struct {
	cfg    config.Config
	store  credstore.Store
	client *session.Client
	auth   *auth.Service
	nav    *terminalNavigator
}

// close releases store connections.
func (d *deps) close() {
	if c, ok := d.store.(io.Closer); ok {
		_ = c.Close()
	}
}

// openDeps loads the configuration, opens the credential store and builds
// the session client for cmd.
func openDeps(cmd *cobra.Command, env *Env) (*deps, error) {
	cfg, err := env.ConfigLoader.Load()
	if err != nil {
		return nil, err
	}

	store, err := env.StoreFactory.Open(cmd.Context(), cfg)
	if err != nil {
		return nil, fmt.Errorf("cannot open credential store: %w", err)
	}

	nav := newNavigator(cmd, env.Stderr)
	client, err := session.New(
		session.Config{BaseURL: cfg.APIURL, Timeout: cfg.Timeout},
		store,
		nav,
		session.WithLogger(env.Logger),
		session.WithLanguage(cfg.Language),
		session.WithRequestInterceptor(session.RequestID()),
	)
	if err != nil {
		if c, ok := store.(io.Closer); ok {
			_ = c.Close()
		}
		return nil, err
	}

	return &deps{
		cfg:    cfg,
		store:  store,
		client: client,
		auth:   auth.New(client, store, auth.WithLogger(env.Logger)),
		nav:    nav,
	}, nil
}
