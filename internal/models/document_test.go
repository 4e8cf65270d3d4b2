package models_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/overlaycfg/internal/models"
)

func TestLoadoutFileRoundTrip(t *testing.T) {
	var keys models.KeySequence
	metric := models.DefaultGraphMetric()
	file := models.NewLoadoutFile([]models.Widget{
		models.MakeDefaultGraph(&keys, &metric),
		models.MakeDefaultReadout(&keys, &metric),
	})

	text, err := models.MarshalDocument(file)
	require.NoError(t, err)

	var parsed models.LoadoutFile
	require.NoError(t, json.Unmarshal([]byte(text), &parsed))

	assert.Equal(t, file, parsed)
}

func TestDecodeLoadoutFileSkipsBadWidgets(t *testing.T) {
	text := `{"signature":{"code":"p2c-cap-load","version":"0.13.0"},"widgets":[
		"junk",
		{"key":1,"widgetType":1,"metrics":[]},
		{"key":2,"widgetType":0,"metrics":"nope"}
	]}`

	file, skipped, err := models.DecodeLoadoutFile([]byte(text))
	require.NoError(t, err)
	require.Len(t, file.Widgets, 1)
	assert.Equal(t, models.WidgetReadout, file.Widgets[0].Kind)

	require.Len(t, skipped, 2)
	var verr *models.VariantError
	require.ErrorAs(t, skipped[0], &verr)
	assert.Equal(t, 0, verr.Index)
	require.ErrorAs(t, skipped[1], &verr)
	assert.Equal(t, 2, verr.Index)
	assert.ErrorIs(t, skipped[1], models.ErrUnrecognizedVariant)

	_, _, err = models.DecodeLoadoutFile([]byte(`{"widgets":{}}`))
	assert.Error(t, err)
}

func TestPreferenceFileRoundTrip(t *testing.T) {
	prefs := models.MakeDefaultPreferences()
	prefs.SelectedPreset = models.PresetPtr(models.PresetCustom)
	adapter := 2
	prefs.AdapterID = &adapter

	bindings := models.UnboundBindings()
	bindings["CyclePreset"] = models.Binding{
		Action:      models.ActionCyclePreset,
		Combination: &models.Combination{Key: 47, Modifiers: []int{2, 4}},
	}
	file := models.NewPreferenceFile(prefs, bindings)

	text, err := models.MarshalDocument(file)
	require.NoError(t, err)

	var parsed models.PreferenceFile
	require.NoError(t, json.Unmarshal([]byte(text), &parsed))

	assert.Equal(t, file, parsed)
}

func TestMarshalDocumentIndent(t *testing.T) {
	text, err := models.MarshalDocument(models.NewLoadoutFile(nil))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(text, "{\n   \"signature\": {\n      \"code\": \"p2c-cap-load\""))
	assert.Contains(t, text, `"widgets": []`)
}

func TestPeekSignature(t *testing.T) {
	sig, err := models.PeekSignature(`{"signature":{"code":"p2c-cap-pref","version":"0.18.0"},"preferences":{}}`)
	require.NoError(t, err)
	assert.Equal(t, models.PreferencesCode, sig.Code)
	assert.Equal(t, "0.18.0", sig.Version)

	_, err = models.PeekSignature(`{"widgets":[]}`)
	assert.ErrorIs(t, err, models.ErrBadFormat)

	_, err = models.PeekSignature(`not json`)
	assert.ErrorIs(t, err, models.ErrBadFormat)
}

func TestDefaultPreferences(t *testing.T) {
	p := models.MakeDefaultPreferences()

	assert.Nil(t, p.SelectedPreset)
	assert.Equal(t, float64(40), p.MetricPollRate)
	assert.Equal(t, float64(10), p.OverlayDrawRate)
	assert.True(t, p.ManualEtwFlush)
	assert.Equal(t, float64(32), p.MetricsOffset)
	assert.Equal(t, "Verdana", p.GraphFont.Name)
	assert.Equal(t, 0.25, p.FlashInjectionSize)
}

func TestPreferencesClone(t *testing.T) {
	p := models.MakeDefaultPreferences()
	p.SelectedPreset = models.PresetPtr(models.PresetSlot2)

	cp := p.Clone()
	*cp.SelectedPreset = models.PresetSlot3

	assert.Equal(t, models.PresetSlot2, *p.SelectedPreset)
}

func TestPreset(t *testing.T) {
	assert.Equal(t, "Custom", models.PresetCustom.String())
	assert.True(t, models.PresetSlot3.Valid())
	assert.False(t, models.Preset(3).Valid())
}
