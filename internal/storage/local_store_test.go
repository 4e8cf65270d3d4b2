package storage_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/overlaycfg/internal/config"
	"github.com/TheMichaelB/overlaycfg/internal/events"
	"github.com/TheMichaelB/overlaycfg/internal/models"
	"github.com/TheMichaelB/overlaycfg/internal/storage"
)

func newLocalStore(t *testing.T) (*storage.LocalStore, string) {
	t.Helper()
	tmpDir := t.TempDir()
	var buf bytes.Buffer
	logger := events.NewTestLogger(events.DebugLevel, "json", &buf)

	store, err := storage.NewLocalStore(map[storage.Location]string{
		storage.LocationInstall:   filepath.Join(tmpDir, "install"),
		storage.LocationData:      filepath.Join(tmpDir, "data"),
		storage.LocationDocuments: filepath.Join(tmpDir, "documents"),
	}, logger)
	require.NoError(t, err)
	return store, tmpDir
}

func TestLocalStoreRoundTrip(t *testing.T) {
	store, tmpDir := newLocalStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, `{"a":1}`, storage.LocationDocuments, storage.CustomLoadoutPath))

	text, err := store.Load(ctx, storage.LocationDocuments, storage.CustomLoadoutPath)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, text)

	_, err = os.Stat(filepath.Join(tmpDir, "documents", "Loadouts", "custom-auto.json"))
	assert.NoError(t, err)

	exists, err := store.Exists(ctx, storage.LocationDocuments, storage.CustomLoadoutPath)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestLocalStoreAcceptsBackslashPaths(t *testing.T) {
	store, _ := newLocalStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, "x", storage.LocationInstall, `Presets\slot-1.json`))

	text, err := store.Load(ctx, storage.LocationInstall, "Presets/slot-1.json")
	require.NoError(t, err)
	assert.Equal(t, "x", text)
}

func TestLocalStoreLocationsAreSeparate(t *testing.T) {
	store, _ := newLocalStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, "data", storage.LocationData, "file.txt"))

	_, err := store.Load(ctx, storage.LocationDocuments, "file.txt")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLocalStoreNotFound(t *testing.T) {
	store, _ := newLocalStore(t)

	_, err := store.Load(context.Background(), storage.LocationDocuments, storage.PreferencesPath)

	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, err, models.ErrIO)
	var serr *models.StorageError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "Documents", serr.Location)

	exists, err := store.Exists(context.Background(), storage.LocationDocuments, storage.PreferencesPath)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLocalStoreBackup(t *testing.T) {
	store, tmpDir := newLocalStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, "v1", storage.LocationDocuments, storage.PreferencesPath))
	require.NoError(t, store.Store(ctx, "v2", storage.LocationDocuments, storage.PreferencesPath))

	backup, err := os.ReadFile(filepath.Join(tmpDir, "documents", "preferences.json.backup"))
	require.NoError(t, err)
	assert.Equal(t, "v1", string(backup))

	text, err := store.Load(ctx, storage.LocationDocuments, storage.PreferencesPath)
	require.NoError(t, err)
	assert.Equal(t, "v2", text)
}

func TestLocalStorePathSanitization(t *testing.T) {
	store, _ := newLocalStore(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"normal path", "Loadouts/test.json", false},
		{"path with dots", "Loadouts/./test.json", false},
		{"absolute path", "/etc/passwd", false}, // Normalized to etc/passwd
		{"parent directory traversal", "../etc/passwd", true},
		{"embedded parent traversal", "Loadouts/../../etc/passwd", true},
		{"windows traversal", `..\..\secret.txt`, true},
		{"null bytes", "test\x00.json", true},
		{"empty", "", true},
		{"very long path", strings.Repeat("a", 300) + "/file.json", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Store(ctx, "test", storage.LocationData, tt.path)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "path")
				return
			}
			assert.NoError(t, err)
			exists, _ := store.Exists(ctx, storage.LocationData, tt.path)
			assert.True(t, exists)
		})
	}
}

func TestLocalStoreMaxFileSize(t *testing.T) {
	store, _ := newLocalStore(t)
	store.SetMaxFileSize(8)

	err := store.Store(context.Background(), "123456789", storage.LocationData, "big.json")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "file too large")
}

func TestLocalStoreCanceledContext(t *testing.T) {
	store, _ := newLocalStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Store(ctx, "x", storage.LocationData, "x.json")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocalStoreConcurrentWrites(t *testing.T) {
	store, _ := newLocalStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if err := store.Store(ctx, fmt.Sprintf("content-%d", n), storage.LocationDocuments, storage.PreferencesPath); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Write error: %v", err)
	}

	text, err := store.Load(ctx, storage.LocationDocuments, storage.PreferencesPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "content-"))
}

func TestOpenSelectsBackend(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := config.DefaultConfig().Storage
	cfg.InstallDir = filepath.Join(tmpDir, "install")
	cfg.DataDir = filepath.Join(tmpDir, "data")
	cfg.DocumentsDir = filepath.Join(tmpDir, "documents")
	cfg.SQLitePath = filepath.Join(tmpDir, "db", "documents.db")

	fileStore, err := storage.Open(&cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &storage.LocalStore{}, fileStore)

	cfg.Backend = "sqlite"
	sqlStore, err := storage.Open(&cfg, nil)
	require.NoError(t, err)
	defer sqlStore.Close()
	assert.IsType(t, &storage.SQLiteStore{}, sqlStore)

	cfg.Backend = "s3"
	_, err = storage.Open(&cfg, nil)
	assert.Error(t, err)
}

func TestParseLocation(t *testing.T) {
	loc, err := storage.ParseLocation("Documents")
	require.NoError(t, err)
	assert.Equal(t, storage.LocationDocuments, loc)

	_, err = storage.ParseLocation("desktop")
	assert.Error(t, err)
}

func TestLocalStoreList(t *testing.T) {
	store, _ := newLocalStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, "a", storage.LocationDocuments, storage.PreferencesPath))
	require.NoError(t, store.Store(ctx, "b", storage.LocationDocuments, storage.PreferencesPath))
	require.NoError(t, store.Store(ctx, "c", storage.LocationDocuments, storage.CustomLoadoutPath))

	paths, err := store.List(ctx, storage.LocationDocuments)
	require.NoError(t, err)
	assert.Equal(t, []string{storage.CustomLoadoutPath, storage.PreferencesPath}, paths)

	paths, err = store.List(ctx, storage.LocationInstall)
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestLocalStoreWithoutBackup(t *testing.T) {
	store, tmpDir := newLocalStore(t)
	store.SetKeepBackup(false)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, "v1", storage.LocationDocuments, storage.PreferencesPath))
	require.NoError(t, store.Store(ctx, "v2", storage.LocationDocuments, storage.PreferencesPath))

	_, err := os.Stat(filepath.Join(tmpDir, "documents", "preferences.json.backup"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStoreLogsContextTags(t *testing.T) {
	var buf bytes.Buffer
	store, err := storage.NewLocalStore(map[storage.Location]string{
		storage.LocationDocuments: t.TempDir(),
	}, events.NewTestLogger(events.DebugLevel, "json", &buf))
	require.NoError(t, err)

	ctx := events.WithSession(events.WithDocument(context.Background(), "preferences"), "boot-1")
	require.NoError(t, store.Store(ctx, "{}", storage.LocationDocuments, storage.PreferencesPath))

	assert.Contains(t, buf.String(), `"document":"preferences"`)
	assert.Contains(t, buf.String(), `"session_id":"boot-1"`)
}
