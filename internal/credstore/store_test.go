package credstore_test

// Notes:
// - The same contract runs against every backend: Memory, File (t.TempDir)
//   and Redis (miniredis).
// - Clear must leave both entries absent whatever was stored before.

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/alnah/go-eventadmin/internal/credstore"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func testProfile() *credstore.Profile {
	return &credstore.Profile{
		ID:                7,
		Email:             "awa@example.com",
		FirstName:         "Awa",
		LastName:          "Mensah",
		CountryCode:       "TG",
		PhoneFull:         "+22890123456",
		Role:              "organizer",
		PreferredLanguage: "fr",
		IsActive:          true,
	}
}

func newRedisStore(t *testing.T) (*credstore.Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := credstore.NewRedis(client, "test")
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

type storeFactory struct {
	name string
	new  func(t *testing.T) credstore.Store
}

func storeFactories() []storeFactory {
	return []storeFactory{
		{"memory", func(t *testing.T) credstore.Store { return &credstore.Memory{} }},
		{"file", func(t *testing.T) credstore.Store {
			return credstore.NewFile(filepath.Join(t.TempDir(), "credentials"))
		}},
		{"redis", func(t *testing.T) credstore.Store {
			s, _ := newRedisStore(t)
			return s
		}},
	}
}

// ---------------------------------------------------------------------------
// TestStoreContract - behavior shared by every backend
// ---------------------------------------------------------------------------

func TestStoreContract(t *testing.T) {
	t.Parallel()

	for _, f := range storeFactories() {
		t.Run(f.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()

			t.Run("empty store is signed out", func(t *testing.T) {
				s := f.new(t)
				r, err := s.Get(ctx)
				if err != nil {
					t.Fatalf("Get() unexpected error: %v", err)
				}
				if !r.Empty() {
					t.Errorf("Get() = %+v, want empty record", r)
				}
			})

			t.Run("set then get round-trips", func(t *testing.T) {
				s := f.new(t)
				want := credstore.Record{Token: "tok-123", User: testProfile()}
				if err := s.Set(ctx, want); err != nil {
					t.Fatalf("Set() unexpected error: %v", err)
				}
				got, err := s.Get(ctx)
				if err != nil {
					t.Fatalf("Get() unexpected error: %v", err)
				}
				if got.Token != want.Token {
					t.Errorf("Token = %q, want %q", got.Token, want.Token)
				}
				if got.User == nil || *got.User != *want.User {
					t.Errorf("User = %+v, want %+v", got.User, want.User)
				}
			})

			t.Run("token without user", func(t *testing.T) {
				s := f.new(t)
				if err := s.Set(ctx, credstore.Record{Token: "tok"}); err != nil {
					t.Fatalf("Set() unexpected error: %v", err)
				}
				got, err := s.Get(ctx)
				if err != nil {
					t.Fatalf("Get() unexpected error: %v", err)
				}
				if got.Token != "tok" || got.User != nil {
					t.Errorf("Get() = %+v, want token only", got)
				}
			})

			t.Run("clear removes both entries", func(t *testing.T) {
				s := f.new(t)
				if err := s.Set(ctx, credstore.Record{Token: "tok", User: testProfile()}); err != nil {
					t.Fatalf("Set() unexpected error: %v", err)
				}
				if err := s.Clear(ctx); err != nil {
					t.Fatalf("Clear() unexpected error: %v", err)
				}
				got, err := s.Get(ctx)
				if err != nil {
					t.Fatalf("Get() unexpected error: %v", err)
				}
				if !got.Empty() {
					t.Errorf("Get() after Clear = %+v, want empty", got)
				}
			})

			t.Run("clear is idempotent", func(t *testing.T) {
				s := f.new(t)
				for i := range 2 {
					if err := s.Clear(ctx); err != nil {
						t.Fatalf("Clear() #%d unexpected error: %v", i+1, err)
					}
				}
			})
		})
	}
}

// ---------------------------------------------------------------------------
// TestMemory - isolation from caller mutations
// ---------------------------------------------------------------------------

func TestMemory_CopiesProfile(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	p := testProfile()
	m := credstore.NewMemory(credstore.Record{Token: "tok", User: p})
	p.Role = "admin"

	got, _ := m.Get(ctx)
	if got.User.Role != "organizer" {
		t.Errorf("stored Role = %q, want organizer (caller mutation leaked)", got.User.Role)
	}

	got.User.Role = "admin"
	again, _ := m.Get(ctx)
	if again.User.Role != "organizer" {
		t.Errorf("stored Role = %q, want organizer (reader mutation leaked)", again.User.Role)
	}
}

// ---------------------------------------------------------------------------
// TestFile - on-disk layout
// ---------------------------------------------------------------------------

func TestFile_Layout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dir := filepath.Join(t.TempDir(), "credentials")
	s := credstore.NewFile(dir)
	if err := s.Set(ctx, credstore.Record{Token: "tok-abc", User: testProfile()}); err != nil {
		t.Fatalf("Set() unexpected error: %v", err)
	}

	token, err := os.ReadFile(filepath.Join(dir, credstore.KeyToken))
	if err != nil {
		t.Fatalf("reading token file: %v", err)
	}
	if string(token) != "tok-abc" {
		t.Errorf("token file = %q, want %q", token, "tok-abc")
	}

	info, err := os.Stat(filepath.Join(dir, credstore.KeyUser))
	if err != nil {
		t.Fatalf("stat user file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("user file mode = %o, want 600", perm)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("directory has %d entries, want 2 (no temp files left)", len(entries))
	}
}

func TestFile_CorruptUser(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, credstore.KeyUser), []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := credstore.NewFile(dir).Get(context.Background())
	if !errors.Is(err, credstore.ErrCorrupt) {
		t.Errorf("Get() error = %v, want ErrCorrupt", err)
	}
}

func TestFile_ClearStopsWhenTokenRemovalFails(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	// A non-empty directory in place of the token file cannot be removed.
	if err := os.MkdirAll(filepath.Join(dir, credstore.KeyToken, "stuck"), 0700); err != nil {
		t.Fatal(err)
	}
	userPath := filepath.Join(dir, credstore.KeyUser)
	if err := os.WriteFile(userPath, []byte(`{"id":7}`), 0600); err != nil {
		t.Fatal(err)
	}

	if err := credstore.NewFile(dir).Clear(context.Background()); err == nil {
		t.Fatal("Clear() error = nil, want removal failure")
	}
	if _, err := os.Stat(userPath); err != nil {
		t.Errorf("user file removed although the token is still present: %v", err)
	}
}

// ---------------------------------------------------------------------------
// TestRedis - key layout and shared namespace
// ---------------------------------------------------------------------------

func TestRedis_Keys(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s, mr := newRedisStore(t)
	if err := s.Set(ctx, credstore.Record{Token: "tok-r", User: testProfile()}); err != nil {
		t.Fatalf("Set() unexpected error: %v", err)
	}

	got, err := mr.Get("test:token")
	if err != nil {
		t.Fatalf("miniredis Get: %v", err)
	}
	if got != "tok-r" {
		t.Errorf("test:token = %q, want %q", got, "tok-r")
	}
	if !mr.Exists("test:user") {
		t.Error("test:user missing")
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear() unexpected error: %v", err)
	}
	if mr.Exists("test:token") || mr.Exists("test:user") {
		t.Error("keys still present after Clear")
	}
}

func TestRedis_SharedNamespace(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	mr := miniredis.RunT(t)
	a := credstore.NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "")
	b := credstore.NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "")
	t.Cleanup(func() { _ = a.Close(); _ = b.Close() })

	if err := a.Set(ctx, credstore.Record{Token: "shared"}); err != nil {
		t.Fatalf("Set() unexpected error: %v", err)
	}
	got, err := b.Get(ctx)
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	if got.Token != "shared" {
		t.Errorf("Token = %q, want %q", got.Token, "shared")
	}
	if !mr.Exists(credstore.DefaultNamespace + ":token") {
		t.Errorf("expected key under default namespace %q", credstore.DefaultNamespace)
	}
}

func TestRedis_Unavailable(t *testing.T) {
	t.Parallel()

	s, mr := newRedisStore(t)
	mr.Close()

	_, err := s.Get(context.Background())
	if !errors.Is(err, credstore.ErrRedisUnavailable) {
		t.Errorf("Get() error = %v, want ErrRedisUnavailable", err)
	}
}

// ---------------------------------------------------------------------------
// TestOpen - backend selection
// ---------------------------------------------------------------------------

func TestOpen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("file is the default", func(t *testing.T) {
		t.Parallel()
		s, err := credstore.Open(ctx, credstore.Options{Dir: t.TempDir()})
		if err != nil {
			t.Fatalf("Open() unexpected error: %v", err)
		}
		if _, ok := s.(*credstore.File); !ok {
			t.Errorf("Open() = %T, want *credstore.File", s)
		}
	})

	t.Run("file without dir fails", func(t *testing.T) {
		t.Parallel()
		if _, err := credstore.Open(ctx, credstore.Options{Backend: credstore.BackendFile}); err == nil {
			t.Error("Open() expected error, got nil")
		}
	})

	t.Run("memory", func(t *testing.T) {
		t.Parallel()
		s, err := credstore.Open(ctx, credstore.Options{Backend: credstore.BackendMemory})
		if err != nil {
			t.Fatalf("Open() unexpected error: %v", err)
		}
		if _, ok := s.(*credstore.Memory); !ok {
			t.Errorf("Open() = %T, want *credstore.Memory", s)
		}
	})

	t.Run("redis", func(t *testing.T) {
		t.Parallel()
		mr := miniredis.RunT(t)
		s, err := credstore.Open(ctx, credstore.Options{
			Backend:   credstore.BackendRedis,
			RedisURL:  "redis://" + mr.Addr(),
			Namespace: "ns",
		})
		if err != nil {
			t.Fatalf("Open() unexpected error: %v", err)
		}
		r, ok := s.(*credstore.Redis)
		if !ok {
			t.Fatalf("Open() = %T, want *credstore.Redis", s)
		}
		t.Cleanup(func() { _ = r.Close() })
		if err := r.Set(ctx, credstore.Record{Token: "x"}); err != nil {
			t.Fatalf("Set() unexpected error: %v", err)
		}
		if !mr.Exists("ns:token") {
			t.Error("ns:token missing")
		}
	})

	t.Run("redis bad url", func(t *testing.T) {
		t.Parallel()
		_, err := credstore.Open(ctx, credstore.Options{Backend: credstore.BackendRedis, RedisURL: "http://nope"})
		if err == nil {
			t.Error("Open() expected error, got nil")
		}
	})

	t.Run("unknown backend", func(t *testing.T) {
		t.Parallel()
		_, err := credstore.Open(ctx, credstore.Options{Backend: "etcd"})
		if !errors.Is(err, credstore.ErrUnknownBackend) {
			t.Errorf("Open() error = %v, want ErrUnknownBackend", err)
		}
	})
}

// ---------------------------------------------------------------------------
// TestProfile - display helpers
// ---------------------------------------------------------------------------

func TestProfile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		profile   *credstore.Profile
		wantName  string
		wantAdmin bool
	}{
		{"full name", &credstore.Profile{FirstName: "Awa", LastName: "Mensah", Role: "organizer"}, "Awa Mensah", false},
		{"first only", &credstore.Profile{FirstName: "Awa"}, "Awa", false},
		{"email fallback", &credstore.Profile{Email: "root@example.com", Role: "admin"}, "root@example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.profile.FullName(); got != tt.wantName {
				t.Errorf("FullName() = %q, want %q", got, tt.wantName)
			}
			if got := tt.profile.IsSuperadmin(); got != tt.wantAdmin {
				t.Errorf("IsSuperadmin() = %v, want %v", got, tt.wantAdmin)
			}
		})
	}

	var nilProfile *credstore.Profile
	if nilProfile.IsSuperadmin() {
		t.Error("nil profile IsSuperadmin() = true, want false")
	}
}
