package syncer

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
)

// ContentHash returns the hex SHA-256 digest of value's JSON encoding.
// encoding/json sorts map keys, so the digest is self-consistent within a
// process for any value that round-trips through JSON.
func ContentHash(value any) (string, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("syncer: hashing value: %w", err)
	}

	sum := sha256.Sum256(raw)

	return hex.EncodeToString(sum[:]), nil
}

// HashTracker remembers the last-observed content hash per module. The
// baseline lives for the process lifetime and resets only on Clear.
type HashTracker struct {
	mu       sync.Mutex
	baseline map[string]string
}

// NewHashTracker creates an empty tracker.
func NewHashTracker() *HashTracker {
	return &HashTracker{baseline: make(map[string]string)}
}

// HasChanged compares value's hash against the module's baseline. The
// first observation seeds the baseline and reports unchanged — a baseline
// cannot signal change before it exists. A differing later observation
// updates the baseline and reports changed.
func (t *HashTracker) HasChanged(moduleName string, value any) (bool, error) {
	hash, err := ContentHash(value)
	if err != nil {
		return false, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	prev, ok := t.baseline[moduleName]
	if !ok {
		t.baseline[moduleName] = hash
		return false, nil
	}

	if prev == hash {
		return false, nil
	}

	t.baseline[moduleName] = hash

	return true, nil
}

// Seed records value's hash as the baseline only when none exists yet.
// Unlike HasChanged it never moves an existing baseline, so a pending
// change signal survives until the next HasChanged call consumes it.
func (t *HashTracker) Seed(moduleName string, value any) error {
	hash, err := ContentHash(value)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.baseline[moduleName]; !ok {
		t.baseline[moduleName] = hash
	}

	return nil
}

// Set records hash as the module's baseline, e.g. after a successful push
// or pull established a new known-synced state.
func (t *HashTracker) Set(moduleName, hash string) {
	t.mu.Lock()
	t.baseline[moduleName] = hash
	t.mu.Unlock()
}

// Get returns the module's baseline hash, if one has been observed.
func (t *HashTracker) Get(moduleName string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	h, ok := t.baseline[moduleName]

	return h, ok
}

// Clear drops every baseline.
func (t *HashTracker) Clear() {
	t.mu.Lock()
	t.baseline = make(map[string]string)
	t.mu.Unlock()
}
