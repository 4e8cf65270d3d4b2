package migrate_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/overlaycfg/internal/events"
	"github.com/TheMichaelB/overlaycfg/internal/migrate"
	"github.com/TheMichaelB/overlaycfg/internal/models"
)

func TestPreferencesLadderTargets(t *testing.T) {
	m := migrate.NewPreferencesMigrator(nil)

	assert.Equal(t, []string{"0.16.0", "0.17.0", "0.18.0", "0.19.0"}, m.Ladder().Targets())
	assert.Equal(t, models.PreferencesVersion, m.Ladder().Current())
}

func TestPreferencesUpgradeFrom016(t *testing.T) {
	var buf bytes.Buffer
	m := migrate.NewPreferencesMigrator(events.NewTestLogger(events.InfoLevel, "json", &buf))

	in := `{
		"signature": {"code": "p2c-cap-pref", "version": "0.16.0"},
		"preferences": {
			"capturePath": "C:\\caps",
			"samplingPeriodMs": 16,
			"samplesPerFrame": 4,
			"manualEtwFlush": false,
			"etwFlushPeriod": 50,
			"metricsOffset": 1000
		},
		"hotkeyBindings": {}
	}`

	out, report, err := m.Upgrade([]byte(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"0.17.0", "0.18.0", "0.19.0"}, report.Applied)

	var file models.PreferenceFile
	require.NoError(t, json.Unmarshal(out, &file))

	assert.Equal(t, models.PreferencesSignature(), file.Signature)
	assert.Equal(t, "C:\\caps", file.Preferences.CapturePath)
	assert.Equal(t, float64(63), file.Preferences.MetricPollRate)
	assert.Equal(t, float64(16), file.Preferences.OverlayDrawRate)
	assert.True(t, file.Preferences.ManualEtwFlush)
	assert.Equal(t, float64(8), file.Preferences.EtwFlushPeriod)
	assert.Equal(t, float64(32), file.Preferences.MetricsOffset)
	assert.Equal(t, 0.25, file.Preferences.FlashInjectionSize)
	assert.Equal(t, models.RgbaColor{R: 255, G: 255, B: 255, A: 255}, file.Preferences.FlashInjectionColor)

	var tree map[string]map[string]any
	require.NoError(t, json.Unmarshal(out, &tree))
	assert.Equal(t, float64(16), tree["preferences"]["samplingPeriodMs"])
	assert.Equal(t, float64(4), tree["preferences"]["samplesPerFrame"])

	assert.Contains(t, buf.String(), "Migrating preferences to 0.17.0")
}

func TestPreferencesUpgradeFrom017OnlyLaterSteps(t *testing.T) {
	m := migrate.NewPreferencesMigrator(nil)

	in := `{"signature":{"code":"p2c-cap-pref","version":"0.17.0"},
		"preferences":{"metricPollRate":25,"overlayDrawRate":5,"metricsOffset":900},"hotkeyBindings":{}}`

	out, report, err := m.Upgrade([]byte(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"0.18.0", "0.19.0"}, report.Applied)

	var file models.PreferenceFile
	require.NoError(t, json.Unmarshal(out, &file))
	assert.Equal(t, float64(25), file.Preferences.MetricPollRate)
	assert.Equal(t, float64(5), file.Preferences.OverlayDrawRate)
	assert.Equal(t, float64(32), file.Preferences.MetricsOffset)
}

func TestPreferencesMissingSamplingFallsBackToDefaults(t *testing.T) {
	m := migrate.NewPreferencesMigrator(nil)

	in := `{"signature":{"code":"p2c-cap-pref","version":"0.16.5"},"preferences":{},"hotkeyBindings":{}}`

	out, _, err := m.Upgrade([]byte(in))
	require.NoError(t, err)

	var file models.PreferenceFile
	require.NoError(t, json.Unmarshal(out, &file))
	assert.Equal(t, float64(40), file.Preferences.MetricPollRate)
	assert.Equal(t, float64(10), file.Preferences.OverlayDrawRate)
}

func TestPreferencesReplayKeepsExistingRates(t *testing.T) {
	m := migrate.NewPreferencesMigrator(nil)

	in := `{"signature":{"code":"p2c-cap-pref","version":"0.16.0"},
		"preferences":{"metricPollRate":25,"overlayDrawRate":5},"hotkeyBindings":{}}`

	out, report, err := m.Upgrade([]byte(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"0.17.0", "0.18.0", "0.19.0"}, report.Applied)

	var file models.PreferenceFile
	require.NoError(t, json.Unmarshal(out, &file))
	assert.Equal(t, float64(25), file.Preferences.MetricPollRate)
	assert.Equal(t, float64(5), file.Preferences.OverlayDrawRate)
}

func TestPreferencesTooOld(t *testing.T) {
	m := migrate.NewPreferencesMigrator(nil)

	in := `{"signature":{"code":"p2c-cap-pref","version":"0.15.2"},"preferences":{},"hotkeyBindings":{}}`

	_, _, err := m.Upgrade([]byte(in))
	assert.ErrorIs(t, err, models.ErrTooOldToMigrate)
	msg, ok := models.TerminalMessage(err)
	require.True(t, ok)
	assert.Equal(t, "Preferences file version too old to migrate (<0.16.0).", msg)
}

func TestPreferencesCurrentIsUnchanged(t *testing.T) {
	m := migrate.NewPreferencesMigrator(nil)

	in := []byte(`{"signature":{"code":"p2c-cap-pref","version":"0.19.0"},"preferences":{"metricsOffset":77},"hotkeyBindings":{}}`)

	out, report, err := m.Upgrade(in)
	require.NoError(t, err)
	assert.True(t, report.NoOp)
	assert.Equal(t, in, out)
}

func TestPreferencesRejections(t *testing.T) {
	m := migrate.NewPreferencesMigrator(nil)

	tests := []struct {
		name  string
		input string
		err   error
	}{
		{"not json", `{{`, models.ErrBadFormat},
		{"not an object", `[1,2]`, models.ErrBadFormat},
		{"no signature", `{"preferences":{}}`, models.ErrBadFormat},
		{"wrong family", `{"signature":{"code":"p2c-cap-load","version":"0.13.0"}}`, models.ErrBadFormat},
		{"future", `{"signature":{"code":"p2c-cap-pref","version":"0.20.0"},"preferences":{}}`, models.ErrFutureVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := m.Upgrade([]byte(tt.input))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}
