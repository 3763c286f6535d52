// Package credstore persists remote-repository credentials as a single
// encrypted blob in the local key-value store. It is a leaf package: the
// remote client reads the active Config from here, and the CLI's login
// and logout commands write through it.
package credstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// blobKey is the fixed storage key the encrypted config lives under.
const blobKey = "sync-credentials"

// Provider identifies which REST dialect the remote repository speaks.
type Provider string

// Supported providers.
const (
	ProviderGitHub Provider = "github"
	ProviderGitee  Provider = "gitee"
)

// DefaultBranch returns the branch used when the user leaves it empty.
// GitHub repositories default to "main", Gitee repositories to "master".
func (p Provider) DefaultBranch() string {
	if p == ProviderGitee {
		return "master"
	}

	return "main"
}

// Valid reports whether p names a supported provider.
func (p Provider) Valid() bool {
	return p == ProviderGitHub || p == ProviderGitee
}

// Config holds the connection settings for the remote repository.
// Branch is never empty after Save or Load.
type Config struct {
	Provider Provider `json:"provider"`
	Token    string   `json:"token"`
	Owner    string   `json:"owner"`
	Repo     string   `json:"repo"`
	Branch   string   `json:"branch"`
}

// BlobStore is the key-value substrate the encrypted blob is persisted in.
// Get returns (nil, nil) when the key does not exist.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Store encrypts, persists, and loads the remote-connection Config.
// The in-memory active config mirrors the persisted blob.
type Store struct {
	blobs  BlobStore
	logger *slog.Logger

	mu     sync.Mutex
	active *Config
}

// New creates a credential store backed by blobs.
func New(blobs BlobStore, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{blobs: blobs, logger: logger}
}

// Save fills in the provider's default branch if absent, encrypts the
// config, persists it under the fixed storage key, and makes it active.
func (s *Store) Save(ctx context.Context, cfg Config) error {
	if !cfg.Provider.Valid() {
		return fmt.Errorf("credstore: unknown provider %q", cfg.Provider)
	}

	if cfg.Branch == "" {
		cfg.Branch = cfg.Provider.DefaultBranch()
	}

	plain, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("credstore: encoding config: %w", err)
	}

	sealed, err := encrypt(plain)
	if err != nil {
		return fmt.Errorf("credstore: encrypting config: %w", err)
	}

	if err := s.blobs.Put(ctx, blobKey, []byte(sealed)); err != nil {
		return fmt.Errorf("credstore: persisting config: %w", err)
	}

	s.mu.Lock()
	s.active = &cfg
	s.mu.Unlock()

	s.logger.Info("saved sync credentials",
		slog.String("provider", string(cfg.Provider)),
		slog.String("owner", cfg.Owner),
		slog.String("repo", cfg.Repo),
		slog.String("branch", cfg.Branch),
	)

	return nil
}

// Load reads and decrypts the persisted config, fills in the default
// branch if absent, and makes it active. Returns (nil, nil) when no blob
// exists or the blob cannot be decrypted — an undecryptable blob is
// treated the same as no credentials, not as a fatal error.
func (s *Store) Load(ctx context.Context) (*Config, error) {
	sealed, err := s.blobs.Get(ctx, blobKey)
	if err != nil {
		return nil, fmt.Errorf("credstore: reading config blob: %w", err)
	}

	if sealed == nil {
		return nil, nil
	}

	plain := decrypt(string(sealed))
	if plain == nil {
		s.logger.Warn("stored credentials could not be decrypted, ignoring")
		return nil, nil
	}

	var cfg Config
	if err := json.Unmarshal(plain, &cfg); err != nil {
		s.logger.Warn("stored credentials are malformed, ignoring",
			slog.String("error", err.Error()))
		return nil, nil
	}

	if cfg.Branch == "" {
		cfg.Branch = cfg.Provider.DefaultBranch()
	}

	s.mu.Lock()
	s.active = &cfg
	s.mu.Unlock()

	return &cfg, nil
}

// Active returns the in-memory config, or nil if none is loaded.
func (s *Store) Active() *Config {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.active
}

// Clear removes the persisted blob and forgets the in-memory config.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.blobs.Delete(ctx, blobKey); err != nil {
		return fmt.Errorf("credstore: removing config blob: %w", err)
	}

	s.mu.Lock()
	s.active = nil
	s.mu.Unlock()

	s.logger.Info("cleared sync credentials")

	return nil
}
