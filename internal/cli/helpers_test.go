package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/alnah/go-eventadmin/internal/apitest"
	"github.com/alnah/go-eventadmin/internal/config"
	"github.com/alnah/go-eventadmin/internal/credstore"
)

// ---------------------------------------------------------------------------
// syncBuffer - thread-safe bytes.Buffer for concurrent test output
// ---------------------------------------------------------------------------

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Compile-time check that syncBuffer implements io.Writer.
var _ io.Writer = (*syncBuffer)(nil)

// ---------------------------------------------------------------------------
// testMocks - convenience struct for grouping all mocks
// ---------------------------------------------------------------------------

type testMocks struct {
	configLoader *mockConfigLoader
	storeFactory *mockStoreFactory
	store        *credstore.Memory
}

func newTestMocks() *testMocks {
	store := &credstore.Memory{}
	return &testMocks{
		configLoader: &mockConfigLoader{},
		storeFactory: &mockStoreFactory{store: store},
		store:        store,
	}
}

// ---------------------------------------------------------------------------
// testEnv - creates a fully mocked Env for testing
// ---------------------------------------------------------------------------

// testEnvOptions configures a test environment.
type testEnvOptions struct {
	stdin  string
	getenv func(string) string
	now    func() time.Time
	apiURL string
}

// testEnvOption configures testEnv.
type testEnvOption func(*testEnvOptions)

func withAPI(baseURL string) testEnvOption {
	return func(o *testEnvOptions) { o.apiURL = baseURL }
}

func withInput(stdin string) testEnvOption {
	return func(o *testEnvOptions) { o.stdin = stdin }
}

func withVars(vars map[string]string) testEnvOption {
	return func(o *testEnvOptions) { o.getenv = staticEnv(vars) }
}

func withClock(now func() time.Time) testEnvOption {
	return func(o *testEnvOptions) { o.now = now }
}

// testOutput exposes what a command wrote.
type testOutput struct {
	stdout *syncBuffer
	stderr *syncBuffer
}

// testEnv creates a test Env with all dependencies mocked.
// Returns the Env, the mocks and the captured output.
func testEnv(opts ...testEnvOption) (*Env, *testMocks, *testOutput) {
	options := &testEnvOptions{
		getenv: staticEnv(nil),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(options)
	}

	mocks := newTestMocks()
	if options.apiURL != "" {
		mocks.configLoader.LoadFunc = func() (config.Config, error) {
			return config.Config{APIURL: options.apiURL, Timeout: 5 * time.Second}, nil
		}
	}

	out := &testOutput{stdout: &syncBuffer{}, stderr: &syncBuffer{}}
	env := &Env{
		Stdout:       out.stdout,
		Stderr:       out.stderr,
		Stdin:        strings.NewReader(options.stdin),
		Getenv:       options.getenv,
		Now:          options.now,
		ConfigLoader: mocks.configLoader,
		StoreFactory: mocks.storeFactory,
	}

	return env, mocks, out
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// staticEnv returns a getenv function that returns values from the given map.
func staticEnv(env map[string]string) func(string) string {
	return func(key string) string {
		return env[key]
	}
}

// configT shortens config.Config in mock signatures.
type configT = config.Config

// configWithStore returns a config selecting a store backend and directory.
func configWithStore(backend, dir string) config.Config {
	return config.Config{Store: backend, CredentialsDir: dir}
}

// newTestRoot mirrors the production command tree under an "eventadmin" root.
func newTestRoot(env *Env) *cobra.Command {
	root := &cobra.Command{
		Use:           "eventadmin",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.AddCommand(
		LoginCmd(env),
		LogoutCmd(env),
		WhoamiCmd(env),
		GetCmd(env),
		PostCmd(env),
		PutCmd(env),
		PatchCmd(env),
		DeleteCmd(env),
		SuperadminCmd(env),
		ConfigCmd(env),
	)
	return root
}

// run executes args against a fresh command tree.
func run(t *testing.T, env *Env, args ...string) error {
	t.Helper()
	root := newTestRoot(env)
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

// backendFixture is a fake API with one organizer and one admin.
type backendFixture struct {
	*apitest.Server
	organizer credstore.Profile
	admin     credstore.Profile
}

const testPassword = "Secret123!"

func newBackend(t *testing.T) *backendFixture {
	t.Helper()
	s := apitest.New(t)
	return &backendFixture{
		Server: s,
		organizer: s.AddUser(credstore.Profile{
			Email: "awa@example.com", FirstName: "Awa", LastName: "Diallo", Role: "organizer",
		}, testPassword),
		admin: s.AddUser(credstore.Profile{
			Email: "root@example.com", FirstName: "Root", Role: credstore.RoleAdmin, PreferredLanguage: "en",
		}, testPassword),
	}
}

// signIn seeds the store with a valid session for p.
func signIn(t *testing.T, b *backendFixture, store credstore.Store, p credstore.Profile) string {
	t.Helper()
	token := b.Token(p.ID)
	if err := store.Set(context.Background(), credstore.Record{Token: token, User: &p}); err != nil {
		t.Fatalf("store.Set failed: %v", err)
	}
	return token
}
