package snapshot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONStore_SaveLoadRoundTrip(t *testing.T) {
	store, err := NewJSONStore(t.TempDir())
	require.NoError(t, err)

	snap := Snapshot{
		MachineID:     "m1",
		Configuration: []string{"s1", "s2"},
		DataModel:     map[string]any{"x": float64(1)},
	}
	rev, err := store.Save(context.Background(), snap)
	require.NoError(t, err)
	assert.NotEmpty(t, rev)

	loaded, err := store.Load(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, loaded.Configuration)
	assert.Equal(t, rev, loaded.Revision)
	assert.False(t, loaded.Timestamp.IsZero())
}

func TestJSONStore_LoadMissingMachine(t *testing.T) {
	store, err := NewJSONStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load(context.Background(), "nope")
	assert.Error(t, err)
}

func TestJSONStore_ListRevisionsReturnsEverySavedRevision(t *testing.T) {
	store, err := NewJSONStore(t.TempDir())
	require.NoError(t, err)

	var revs []string
	for i := 0; i < 3; i++ {
		rev, err := store.Save(context.Background(), Snapshot{MachineID: "m1"})
		require.NoError(t, err)
		revs = append(revs, rev)
	}

	listed, err := store.ListRevisions(context.Background(), "m1")
	require.NoError(t, err)
	assert.ElementsMatch(t, revs, listed)
}

func TestJSONStore_LoadRevision(t *testing.T) {
	store, err := NewJSONStore(t.TempDir())
	require.NoError(t, err)

	rev, err := store.Save(context.Background(), Snapshot{MachineID: "m1", Configuration: []string{"s1"}})
	require.NoError(t, err)
	_, err = store.Save(context.Background(), Snapshot{MachineID: "m1", Configuration: []string{"s2"}})
	require.NoError(t, err)

	loaded, err := store.LoadRevision(context.Background(), "m1", rev)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, loaded.Configuration)
}

func TestYAMLStore_SaveLoadRoundTrip(t *testing.T) {
	store, err := NewYAMLStore(t.TempDir())
	require.NoError(t, err)

	snap := Snapshot{MachineID: "m2", Configuration: []string{"a"}, DataModel: map[string]any{"y": "z"}}
	_, err = store.Save(context.Background(), snap)
	require.NoError(t, err)

	loaded, err := store.Load(context.Background(), "m2")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, loaded.Configuration)
	assert.Equal(t, "z", loaded.DataModel["y"])
}

func TestStore_MachinesAreIsolated(t *testing.T) {
	store, err := NewJSONStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save(context.Background(), Snapshot{MachineID: "m1", Configuration: []string{"s1"}})
	require.NoError(t, err)
	_, err = store.Save(context.Background(), Snapshot{MachineID: "m2", Configuration: []string{"s2"}})
	require.NoError(t, err)

	m1, err := store.Load(context.Background(), "m1")
	require.NoError(t, err)
	m2, err := store.Load(context.Background(), "m2")
	require.NoError(t, err)

	assert.Equal(t, []string{"s1"}, m1.Configuration)
	assert.Equal(t, []string{"s2"}, m2.Configuration)
}
