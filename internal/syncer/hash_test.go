package syncer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentHash_Deterministic(t *testing.T) {
	v := map[string]any{"b": 2.0, "a": []any{"x", "y"}}

	h1, err := ContentHash(v)
	require.NoError(t, err)

	h2, err := ContentHash(map[string]any{"a": []any{"x", "y"}, "b": 2.0})
	require.NoError(t, err)

	// encoding/json sorts map keys, so insertion order does not matter.
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}

func TestContentHash_DiffersForDifferentValues(t *testing.T) {
	h1, err := ContentHash(map[string]any{"n": 1.0})
	require.NoError(t, err)

	h2, err := ContentHash(map[string]any{"n": 2.0})
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}

func TestHasChanged_FirstObservationSeedsUnchanged(t *testing.T) {
	tr := NewHashTracker()

	changed, err := tr.HasChanged("tasks", map[string]any{"items": []any{"a"}})
	require.NoError(t, err)
	assert.False(t, changed, "a baseline cannot signal change before it exists")

	_, ok := tr.Get("tasks")
	assert.True(t, ok)
}

func TestHasChanged_DetectsAndSettles(t *testing.T) {
	tr := NewHashTracker()

	v1 := map[string]any{"items": []any{"a"}}
	v2 := map[string]any{"items": []any{"a", "b"}}

	changed, err := tr.HasChanged("tasks", v1)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = tr.HasChanged("tasks", v2)
	require.NoError(t, err)
	assert.True(t, changed)

	// Two consecutive observations of the same value settle back to false.
	changed, err = tr.HasChanged("tasks", v2)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestSeed_NeverMovesExistingBaseline(t *testing.T) {
	tr := NewHashTracker()

	require.NoError(t, tr.Seed("tasks", "v1"))

	before, _ := tr.Get("tasks")

	require.NoError(t, tr.Seed("tasks", "v2"))

	after, _ := tr.Get("tasks")
	assert.Equal(t, before, after)

	// The pending change is still observable.
	changed, err := tr.HasChanged("tasks", "v2")
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestClear_DropsAllBaselines(t *testing.T) {
	tr := NewHashTracker()

	_, err := tr.HasChanged("tasks", "v")
	require.NoError(t, err)

	tr.Clear()

	_, ok := tr.Get("tasks")
	assert.False(t, ok)
}
