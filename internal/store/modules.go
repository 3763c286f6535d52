package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// moduleKeyPrefix namespaces module data away from other store keys
// (credentials blob, future bookkeeping).
const moduleKeyPrefix = "module/"

// KVModule is a data module whose value lives in one key of the store.
// The value is opaque JSON: the sync engine hashes it and wraps it in an
// envelope but never inspects its shape.
type KVModule struct {
	name     string
	filename string
	store    *Store
}

// NewKVModule creates a module named name whose remote copy is filename.
func NewKVModule(name, filename string, s *Store) *KVModule {
	return &KVModule{name: name, filename: filename, store: s}
}

// Name returns the module's unique name.
func (m *KVModule) Name() string { return m.name }

// Filename returns the module's unique remote filename.
func (m *KVModule) Filename() string { return m.filename }

// Read returns the module's current value. A module with no stored value
// yet reads as JSON null.
func (m *KVModule) Read(ctx context.Context) (any, error) {
	raw, err := m.store.Get(ctx, moduleKeyPrefix+m.name)
	if err != nil {
		return nil, err
	}

	if raw == nil {
		return nil, nil
	}

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("store: module %s holds malformed JSON: %w", m.name, err)
	}

	return value, nil
}

// Write replaces the module's value.
func (m *KVModule) Write(ctx context.Context, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("store: encoding value for module %s: %w", m.name, err)
	}

	return m.store.Put(ctx, moduleKeyPrefix+m.name, raw)
}

// DefaultModules returns the fixed set of local data domains the
// application syncs, in display order.
func DefaultModules(s *Store) []*KVModule {
	return []*KVModule{
		NewKVModule("tasks", "tasks.json", s),
		NewKVModule("habits", "habits.json", s),
		NewKVModule("bookmarks", "bookmarks.json", s),
		NewKVModule("calendar", "calendar.json", s),
		NewKVModule("pomodoro", "pomodoro.json", s),
		NewKVModule("settings", "settings.json", s),
	}
}
