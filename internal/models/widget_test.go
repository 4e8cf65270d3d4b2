package models_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/overlaycfg/internal/models"
)

func TestKeySequence(t *testing.T) {
	var keys models.KeySequence

	assert.Equal(t, 0, keys.Next())
	assert.Equal(t, 1, keys.Next())

	keys.Reset()
	assert.Equal(t, 0, keys.Next())
}

func TestKeySequencesAreIndependent(t *testing.T) {
	var a, b models.KeySequence
	a.Next()
	a.Next()

	assert.Equal(t, 0, b.Next())
}

func TestMakeDefaultGraph(t *testing.T) {
	var keys models.KeySequence
	metric := models.DefaultGraphMetric()

	w := models.MakeDefaultGraph(&keys, &metric)

	require.Equal(t, models.WidgetGraph, w.Kind)
	require.NotNil(t, w.Graph)
	assert.Nil(t, w.Readout)
	assert.Equal(t, 0, w.Key())
	assert.Equal(t, 80, w.Graph.Height)
	assert.Equal(t, models.GraphTypeLine, w.Graph.GraphType.Name)
	assert.Equal(t, [2]float64{0, 150}, w.Graph.GraphType.Range)
	assert.True(t, w.IsLineGraph())
	require.Len(t, w.Metrics(), 1)
	assert.Equal(t, 8, w.Metrics()[0].Metric.MetricID)
}

func TestMakeDefaultReadout(t *testing.T) {
	var keys models.KeySequence
	keys.Next()

	w := models.MakeDefaultReadout(&keys, nil)

	require.Equal(t, models.WidgetReadout, w.Kind)
	assert.Equal(t, 1, w.Key())
	assert.True(t, w.Readout.ShowLabel)
	assert.Equal(t, 12, w.Readout.FontSize)
	assert.False(t, w.IsLineGraph())
	assert.Equal(t, models.QualifiedMetric{}, w.Metrics()[0].Metric)
}

func TestWidgetJSONShape(t *testing.T) {
	var keys models.KeySequence
	w := models.MakeDefaultReadout(&keys, nil)

	data, err := json.Marshal(w)
	require.NoError(t, err)

	var flat map[string]any
	require.NoError(t, json.Unmarshal(data, &flat))
	assert.Equal(t, float64(1), flat["widgetType"])
	assert.Equal(t, true, flat["showLabel"])
	assert.Contains(t, flat, "metrics")
	assert.Contains(t, flat, "key")
}

func TestWidgetUnmarshalVariants(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  models.WidgetType
		known bool
	}{
		{"graph", `{"key":1,"metrics":[],"widgetType":0,"height":50}`, models.WidgetGraph, true},
		{"readout", `{"key":1,"metrics":[],"widgetType":1,"fontSize":9}`, models.WidgetReadout, true},
		{"unknown tag", `{"key":1,"metrics":[],"widgetType":7}`, models.WidgetType(7), false},
		{"missing tag", `{"key":1,"metrics":[]}`, models.WidgetInvalid, false},
		{"string tag", `{"widgetType":"Graph"}`, models.WidgetInvalid, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var w models.Widget
			require.NoError(t, json.Unmarshal([]byte(tt.input), &w))

			assert.Equal(t, tt.kind, w.Kind)
			assert.Equal(t, tt.known, w.Known())
			if !tt.known {
				assert.JSONEq(t, tt.input, string(w.Unknown))
				assert.Equal(t, -1, w.Key())
			}
		})
	}
}

func TestWidgetUnknownRoundTrip(t *testing.T) {
	input := `{"widgetType":9,"custom":true}`
	var w models.Widget
	require.NoError(t, json.Unmarshal([]byte(input), &w))

	out, err := json.Marshal(w)
	require.NoError(t, err)
	assert.JSONEq(t, input, string(out))
}

func TestWidgetClone(t *testing.T) {
	var keys models.KeySequence
	orig := models.MakeDefaultGraph(&keys, nil)

	cp := orig.Clone()
	cp.Graph.Height = 10
	cp.Metrics()[0].Metric.MetricID = 99

	assert.Equal(t, 80, orig.Graph.Height)
	assert.Equal(t, 0, orig.Metrics()[0].Metric.MetricID)
}

func TestWidgetSetters(t *testing.T) {
	var keys models.KeySequence
	w := models.MakeDefaultGraph(&keys, nil)

	w.SetKey(42)
	w.SetMetrics(nil)

	assert.Equal(t, 42, w.Key())
	assert.Empty(t, w.Metrics())

	unknown := models.Widget{Kind: models.WidgetType(5), Unknown: json.RawMessage(`{}`)}
	unknown.SetKey(3)
	assert.Equal(t, -1, unknown.Key())
}
