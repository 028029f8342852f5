// Package credentials persists the access/refresh token pair used by the API
// client.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
)

// Item keys used by the on-disk format.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
)

// Pair is the credential pair issued at login and replaced on refresh.
type Pair struct {
	AccessToken  string `toml:"accessToken"`
	RefreshToken string `toml:"refreshToken"`
}

// Empty reports whether neither token is set.
func (p Pair) Empty() bool {
	return p.AccessToken == "" && p.RefreshToken == ""
}

// Store reads and writes the credential pair. Save replaces both tokens as one
// unit: a Load never observes a new access token next to a stale refresh
// token.
type Store interface {
	Load(ctx context.Context) (Pair, error)
	Save(ctx context.Context, pair Pair) error
	Clear(ctx context.Context) error
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*FileStore)(nil)
)

// MemoryStore keeps the pair in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	pair Pair
}

// NewMemoryStore returns a store seeded with pair.
func NewMemoryStore(pair Pair) *MemoryStore {
	return &MemoryStore{pair: pair}
}

// Load returns the current pair.
func (s *MemoryStore) Load(ctx context.Context) (Pair, error) {
	if err := ctx.Err(); err != nil {
		return Pair{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair, nil
}

// Save replaces the pair.
func (s *MemoryStore) Save(ctx context.Context, pair Pair) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = pair
	return nil
}

// Clear removes both tokens.
func (s *MemoryStore) Clear(ctx context.Context) error {
	return s.Save(ctx, Pair{})
}

// FileStore keeps the pair in a TOML file readable only by the owner. Writes
// go to a temporary file that is renamed over the original.
type FileStore struct {
	path string
	mu   sync.RWMutex
}

const defaultStorePath = "~/.local/share/cookbook/credentials.toml"

// NewFileStore returns a store backed by path; empty path uses the default
// location under the user's home directory.
func NewFileStore(path string) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		path = defaultStorePath
	}
	resolved, err := expandPath(path)
	if err != nil {
		return nil, err
	}
	return &FileStore{path: resolved}, nil
}

// Path returns the resolved file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the pair. A missing file yields an empty pair.
func (s *FileStore) Load(ctx context.Context) (Pair, error) {
	if err := ctx.Err(); err != nil {
		return Pair{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Pair{}, nil
		}
		return Pair{}, fmt.Errorf("open credentials: %w", err)
	}
	defer func() { _ = file.Close() }()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Pair{}, fmt.Errorf("read credentials: %w", err)
	}

	var pair Pair
	if err := toml.Unmarshal(bytes, &pair); err != nil {
		return Pair{}, fmt.Errorf("parse credentials: %w", err)
	}
	return pair, nil
}

// Save writes the pair, creating directories as needed.
func (s *FileStore) Save(ctx context.Context, pair Pair) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}

	bytes, err := toml.Marshal(pair)
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*.toml")
	if err != nil {
		return fmt.Errorf("create temp credentials: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(bytes); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close credentials: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace credentials: %w", err)
	}
	return nil
}

// Clear deletes the file.
func (s *FileStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove credentials: %w", err)
	}
	return nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
