package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/overlaycfg/internal/events"
	"github.com/TheMichaelB/overlaycfg/internal/models"
	"github.com/TheMichaelB/overlaycfg/internal/storage"
)

func TestInspectDocument(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		status string
		doc    string
	}{
		{
			name:   "current loadout",
			text:   `{"signature":{"code":"p2c-cap-load","version":"0.13.0"},"widgets":[]}`,
			status: statusCurrent,
			doc:    "loadout",
		},
		{
			name:   "stale preferences",
			text:   `{"signature":{"code":"p2c-cap-pref","version":"0.17.0"},"preferences":{}}`,
			status: statusNeedsMigration,
			doc:    "preferences",
		},
		{
			name:   "future preferences",
			text:   `{"signature":{"code":"p2c-cap-pref","version":"1.0"},"preferences":{}}`,
			status: statusTooNew,
			doc:    "preferences",
		},
		{
			name:   "invalid version",
			text:   `{"signature":{"code":"p2c-cap-load","version":"1.x.0"},"widgets":[]}`,
			status: statusInvalidVersion,
			doc:    "loadout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := inspectDocument(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.status, info.Status)
			assert.Equal(t, tt.doc, info.Document)
		})
	}
}

func TestInspectDocumentRejectsUnknownCode(t *testing.T) {
	_, err := inspectDocument(`{"signature":{"code":"other","version":"1.0.0"}}`)
	assert.ErrorIs(t, err, models.ErrBadFormat)

	_, err = inspectDocument(`not json`)
	assert.ErrorIs(t, err, models.ErrBadFormat)
}

func TestMigrateDocument(t *testing.T) {
	in := `{"signature":{"code":"p2c-cap-pref","version":"0.17.0"},"preferences":{"manualEtwFlush":false},"hotkeyBindings":{}}`

	out, report, err := migrateDocument(in, events.Discard())
	require.NoError(t, err)
	assert.False(t, report.NoOp)
	assert.Equal(t, []string{"0.18.0", "0.19.0"}, report.Applied)

	info, err := inspectDocument(out)
	require.NoError(t, err)
	assert.Equal(t, statusCurrent, info.Status)
	assert.Contains(t, out, "\n   \"preferences\"")
}

func TestMigrateDocumentCurrentIsUnchanged(t *testing.T) {
	in := `{"signature":{"code":"p2c-cap-load","version":"0.13.0"},"widgets":[]}`

	out, report, err := migrateDocument(in, events.Discard())
	require.NoError(t, err)
	assert.True(t, report.NoOp)
	assert.Equal(t, in, out)
}

func TestMigrateDocumentTooOld(t *testing.T) {
	in := `{"signature":{"code":"p2c-cap-load","version":"0.12.0"},"widgets":[{"widgetType":1,"metrics":[]}]}`

	_, _, err := migrateDocument(in, events.Discard())
	msg, ok := models.TerminalMessage(err)
	require.True(t, ok)
	assert.Equal(t, "Loadout file version too old to migrate (<0.13.0).", msg)
}

func TestDefaultDocumentsAreCurrent(t *testing.T) {
	docs, err := defaultDocuments()
	require.NoError(t, err)
	require.Len(t, docs, 2)

	for path, text := range docs {
		info, err := inspectDocument(text)
		require.NoError(t, err, path)
		assert.Equal(t, statusCurrent, info.Status, path)
	}

	var file models.PreferenceFile
	require.NoError(t, json.Unmarshal([]byte(docs[storage.PreferencesPath]), &file))
	assert.NotNil(t, file.HotkeyBindings["ToggleCapture"].Combination)
}

func TestWriteDocumentKeepsBackup(t *testing.T) {
	logger = events.Discard()
	dir := t.TempDir()
	path := filepath.Join(dir, "prefs.json")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0644))

	require.NoError(t, writeDocument(context.Background(), path, "new"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	backup, err := os.ReadFile(path + ".backup")
	require.NoError(t, err)
	assert.Equal(t, "old", string(backup))
}

func TestInspectDocumentNormalizesVersion(t *testing.T) {
	info, err := inspectDocument(`{"signature":{"code":"p2c-cap-pref","version":"0.19"},"preferences":{}}`)
	require.NoError(t, err)

	assert.Equal(t, "0.19.0", info.Normalized)
	assert.Equal(t, statusCurrent, info.Status)
}
