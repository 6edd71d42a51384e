package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// File stores each key in its own file inside a directory.
// The token file holds the raw token, the user file holds JSON.
type File struct {
	dir string
}

// NewFile returns a File store rooted at dir. The directory is created on
// the first write.
func NewFile(dir string) *File {
	return &File{dir: dir}
}

// Dir returns the directory holding the credential files.
func (f *File) Dir() string {
	return f.dir
}

func (f *File) path(key string) string {
	return filepath.Join(f.dir, key)
}

// Get reads the record. Missing files yield empty fields.
func (f *File) Get(_ context.Context) (Record, error) {
	var r Record

	token, err := os.ReadFile(f.path(KeyToken)) // #nosec G304 -- path built from config dir
	switch {
	case err == nil:
		r.Token = strings.TrimSpace(string(token))
	case !errors.Is(err, os.ErrNotExist):
		return Record{}, fmt.Errorf("failed to read token: %w", err)
	}

	user, err := os.ReadFile(f.path(KeyUser)) // #nosec G304 -- path built from config dir
	switch {
	case err == nil:
		var p Profile
		if err := json.Unmarshal(user, &p); err != nil {
			return Record{}, fmt.Errorf("%s: %v: %w", KeyUser, err, ErrCorrupt)
		}
		r.User = &p
	case !errors.Is(err, os.ErrNotExist):
		return Record{}, fmt.Errorf("failed to read user: %w", err)
	}

	return r, nil
}

// Set writes both entries. An empty field removes its file.
func (f *File) Set(_ context.Context, r Record) error {
	if err := os.MkdirAll(f.dir, 0700); err != nil {
		return fmt.Errorf("cannot create credential directory: %w", err)
	}

	if r.Token == "" {
		if err := f.remove(KeyToken); err != nil {
			return err
		}
	} else if err := writeFileAtomic(f.path(KeyToken), []byte(r.Token)); err != nil {
		return err
	}

	if r.User == nil {
		return f.remove(KeyUser)
	}
	data, err := json.Marshal(r.User)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}
	return writeFileAtomic(f.path(KeyUser), data)
}

// Clear removes both files, token first. It stops at the first failure so
// a token is never left behind without its profile.
func (f *File) Clear(_ context.Context) error {
	if err := f.remove(KeyToken); err != nil {
		return err
	}
	return f.remove(KeyUser)
}

func (f *File) remove(key string) error {
	if err := os.Remove(f.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

// writeFileAtomic writes data to a temp file in the same directory and
// renames it over path. On failure the temp file is removed.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("cannot create temp file: %w", err)
	}

	writeErr := func() error {
		defer func() { _ = tmp.Close() }()
		if err := tmp.Chmod(0600); err != nil {
			return fmt.Errorf("cannot set permissions: %w", err)
		}
		if _, err := tmp.Write(data); err != nil {
			return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
		}
		return nil
	}()
	if writeErr == nil {
		writeErr = os.Rename(tmp.Name(), path)
	}

	if writeErr != nil {
		_ = os.Remove(tmp.Name())
		return writeErr
	}
	return nil
}

var _ Store = (*File)(nil)
