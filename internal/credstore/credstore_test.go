package credstore

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memBlobs is an in-memory BlobStore for tests.
type memBlobs struct {
	data map[string][]byte
}

func newMemBlobs() *memBlobs {
	return &memBlobs{data: make(map[string][]byte)}
}

func (m *memBlobs) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, nil
	}

	return v, nil
}

func (m *memBlobs) Put(_ context.Context, key string, value []byte) error {
	m.data[key] = value
	return nil
}

func (m *memBlobs) Delete(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	blobs := newMemBlobs()
	s := New(blobs, discardLogger())

	err := s.Save(ctx, Config{
		Provider: ProviderGitHub,
		Token:    "ghp_secret",
		Owner:    "we-worker",
		Repo:     "notes",
		Branch:   "trunk",
	})
	require.NoError(t, err)

	// A fresh store over the same blobs must decrypt what Save sealed.
	loaded, err := New(blobs, discardLogger()).Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, ProviderGitHub, loaded.Provider)
	assert.Equal(t, "ghp_secret", loaded.Token)
	assert.Equal(t, "we-worker", loaded.Owner)
	assert.Equal(t, "notes", loaded.Repo)
	assert.Equal(t, "trunk", loaded.Branch)
}

func TestSave_DefaultsBranchPerProvider(t *testing.T) {
	ctx := context.Background()

	for provider, want := range map[Provider]string{
		ProviderGitHub: "main",
		ProviderGitee:  "master",
	} {
		s := New(newMemBlobs(), discardLogger())

		err := s.Save(ctx, Config{Provider: provider, Token: "t", Owner: "o", Repo: "r"})
		require.NoError(t, err)

		assert.Equal(t, want, s.Active().Branch, "provider %s", provider)
	}
}

func TestSave_RejectsUnknownProvider(t *testing.T) {
	s := New(newMemBlobs(), discardLogger())

	err := s.Save(context.Background(), Config{Provider: "bitbucket", Token: "t"})
	require.Error(t, err)
}

func TestLoad_NoBlobReturnsNil(t *testing.T) {
	s := New(newMemBlobs(), discardLogger())

	cfg, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, cfg)
	assert.Nil(t, s.Active())
}

func TestLoad_UndecryptableBlobReturnsNil(t *testing.T) {
	ctx := context.Background()
	blobs := newMemBlobs()
	blobs.data[blobKey] = []byte("not an encrypted blob")

	cfg, err := New(blobs, discardLogger()).Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_FillsMissingBranch(t *testing.T) {
	ctx := context.Background()
	blobs := newMemBlobs()

	// Seal a config without a branch directly, bypassing Save's defaulting.
	sealed, err := encrypt([]byte(`{"provider":"gitee","token":"t","owner":"o","repo":"r"}`))
	require.NoError(t, err)
	blobs.data[blobKey] = []byte(sealed)

	cfg, err := New(blobs, discardLogger()).Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "master", cfg.Branch)
}

func TestClear_RemovesBlobAndActive(t *testing.T) {
	ctx := context.Background()
	blobs := newMemBlobs()
	s := New(blobs, discardLogger())

	require.NoError(t, s.Save(ctx, Config{Provider: ProviderGitHub, Token: "t", Owner: "o", Repo: "r"}))
	require.NotNil(t, s.Active())

	require.NoError(t, s.Clear(ctx))

	assert.Nil(t, s.Active())
	assert.Empty(t, blobs.data)
}

func TestEncryptDecrypt_RoundTripAndTamper(t *testing.T) {
	sealed, err := encrypt([]byte("héllo, 世界"))
	require.NoError(t, err)

	plain := decrypt(sealed)
	assert.Equal(t, []byte("héllo, 世界"), plain)

	// Flipping ciphertext must fail authentication, yielding nil.
	tampered := "A" + sealed[1:]
	if tampered == sealed {
		tampered = "B" + sealed[1:]
	}

	assert.Nil(t, decrypt(tampered))
	assert.Nil(t, decrypt("%%%not-base64%%%"))
	assert.Nil(t, decrypt(""))
}
