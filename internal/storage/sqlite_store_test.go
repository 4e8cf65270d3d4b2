package storage_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/overlaycfg/internal/models"
	"github.com/TheMichaelB/overlaycfg/internal/storage"
)

func TestSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "documents.db")
	store, err := storage.NewSQLiteStore(dbPath, nil)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	t.Run("not found", func(t *testing.T) {
		_, err := store.Load(ctx, storage.LocationDocuments, storage.PreferencesPath)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.ErrorIs(t, err, models.ErrIO)
	})

	t.Run("store and load", func(t *testing.T) {
		require.NoError(t, store.Store(ctx, "v1", storage.LocationDocuments, storage.PreferencesPath))

		text, err := store.Load(ctx, storage.LocationDocuments, storage.PreferencesPath)
		require.NoError(t, err)
		assert.Equal(t, "v1", text)
	})

	t.Run("upsert replaces", func(t *testing.T) {
		require.NoError(t, store.Store(ctx, "v2", storage.LocationDocuments, storage.PreferencesPath))

		text, err := store.Load(ctx, storage.LocationDocuments, storage.PreferencesPath)
		require.NoError(t, err)
		assert.Equal(t, "v2", text)
	})

	t.Run("paths normalize", func(t *testing.T) {
		require.NoError(t, store.Store(ctx, "slot", storage.LocationInstall, `Presets\slot-1.json`))

		exists, err := store.Exists(ctx, storage.LocationInstall, "Presets/slot-1.json")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = store.Exists(ctx, storage.LocationData, "Presets/slot-1.json")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("traversal rejected", func(t *testing.T) {
		err := store.Store(ctx, "x", storage.LocationData, "../x")
		assert.Error(t, err)
	})

	t.Run("list", func(t *testing.T) {
		paths, err := store.List(ctx, storage.LocationDocuments)
		require.NoError(t, err)
		assert.Equal(t, []string{"preferences.json"}, paths)
	})
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "documents.db")
	ctx := context.Background()

	store, err := storage.NewSQLiteStore(dbPath, nil)
	require.NoError(t, err)
	require.NoError(t, store.Store(ctx, "kept", storage.LocationDocuments, storage.CustomLoadoutPath))
	require.NoError(t, store.Close())

	reopened, err := storage.NewSQLiteStore(dbPath, nil)
	require.NoError(t, err)
	defer reopened.Close()

	text, err := reopened.Load(ctx, storage.LocationDocuments, storage.CustomLoadoutPath)
	require.NoError(t, err)
	assert.Equal(t, "kept", text)
}
