package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"sync/atomic"
)

// WidgetType is the on-disk discriminant of a widget.
type WidgetType int

const (
	WidgetGraph   WidgetType = 0
	WidgetReadout WidgetType = 1

	// WidgetInvalid marks a widget whose tag is missing or not an integer.
	WidgetInvalid WidgetType = -1
)

func (t WidgetType) String() string {
	switch t {
	case WidgetGraph:
		return "Graph"
	case WidgetReadout:
		return "Readout"
	case WidgetInvalid:
		return "invalid"
	default:
		return strconv.Itoa(int(t))
	}
}

// KeySequence hands out widget keys. Each loadout store owns one.
type KeySequence struct {
	next atomic.Int64
}

// Next returns a key unique within the sequence since the last Reset.
func (s *KeySequence) Next() int {
	return int(s.next.Add(1) - 1)
}

// Reset restarts the sequence at zero.
func (s *KeySequence) Reset() {
	s.next.Store(0)
}

// WidgetBase holds the fields shared by every widget variant.
type WidgetBase struct {
	Key        int            `json:"key"`
	Metrics    []WidgetMetric `json:"metrics"`
	WidgetType WidgetType     `json:"widgetType"`
}

// GraphType configures how a graph plots its metrics.
type GraphType struct {
	Name       string     `json:"name"`
	Range      [2]float64 `json:"range"`
	RangeRight [2]float64 `json:"rangeRight"`
	BinCount   int        `json:"binCount"`
	CountRange [2]float64 `json:"countRange"`
	AutoLeft   bool       `json:"autoLeft"`
	AutoRight  bool       `json:"autoRight"`
	AutoCount  bool       `json:"autoCount"`
}

// GraphTypeLine is the only graph type that plots more than one metric.
const GraphTypeLine = "Line"

// Graph is a time-series or histogram widget.
type Graph struct {
	WidgetBase
	Height          int       `json:"height"`
	VDivs           int       `json:"vDivs"`
	HDivs           int       `json:"hDivs"`
	ShowBottomAxis  bool      `json:"showBottomAxis"`
	GraphType       GraphType `json:"graphType"`
	GridColor       RgbaColor `json:"gridColor"`
	DividerColor    RgbaColor `json:"dividerColor"`
	BackgroundColor RgbaColor `json:"backgroundColor"`
	BorderColor     RgbaColor `json:"borderColor"`
	TextColor       RgbaColor `json:"textColor"`
	TextSize        int       `json:"textSize"`
}

// Readout is a single-value text widget.
type Readout struct {
	WidgetBase
	ShowLabel       bool      `json:"showLabel"`
	FontSize        int       `json:"fontSize"`
	FontColor       RgbaColor `json:"fontColor"`
	BackgroundColor RgbaColor `json:"backgroundColor"`
}

// Widget is one element of a loadout. Exactly one of Graph, Readout or
// Unknown is set, selected by Kind.
type Widget struct {
	Kind    WidgetType
	Graph   *Graph
	Readout *Readout
	Unknown json.RawMessage
}

// MakeDefaultGraph builds a line graph plotting metric.
func MakeDefaultGraph(keys *KeySequence, metric *QualifiedMetric) Widget {
	g := &Graph{
		WidgetBase: WidgetBase{
			Key:        keys.Next(),
			Metrics:    []WidgetMetric{MakeDefaultWidgetMetric(metric)},
			WidgetType: WidgetGraph,
		},
		Height:         80,
		VDivs:          4,
		HDivs:          40,
		ShowBottomAxis: false,
		GraphType: GraphType{
			Name:       GraphTypeLine,
			Range:      [2]float64{0, 150},
			RangeRight: [2]float64{0, 150},
			BinCount:   40,
			CountRange: [2]float64{0, 1000},
			AutoLeft:   true,
			AutoRight:  true,
			AutoCount:  false,
		},
		GridColor:       RgbaColor{R: 47, G: 120, B: 190, A: 40.0 / 255},
		DividerColor:    RgbaColor{R: 57, G: 126, B: 150, A: 220.0 / 255},
		BackgroundColor: RgbaColor{},
		BorderColor:     RgbaColor{},
		TextColor:       RgbaColor{R: 242, G: 242, B: 242, A: 1},
		TextSize:        11,
	}
	return Widget{Kind: WidgetGraph, Graph: g}
}

// MakeDefaultReadout builds a labelled readout showing metric.
func MakeDefaultReadout(keys *KeySequence, metric *QualifiedMetric) Widget {
	r := &Readout{
		WidgetBase: WidgetBase{
			Key:        keys.Next(),
			Metrics:    []WidgetMetric{MakeDefaultWidgetMetric(metric)},
			WidgetType: WidgetReadout,
		},
		ShowLabel:       true,
		FontSize:        12,
		FontColor:       RgbaColor{R: 205, G: 211, B: 233, A: 1},
		BackgroundColor: RgbaColor{R: 45, G: 50, B: 96, A: 0.4},
	}
	return Widget{Kind: WidgetReadout, Readout: r}
}

// Base returns the shared fields of a known variant, or nil.
func (w *Widget) Base() *WidgetBase {
	switch w.Kind {
	case WidgetGraph:
		if w.Graph != nil {
			return &w.Graph.WidgetBase
		}
	case WidgetReadout:
		if w.Readout != nil {
			return &w.Readout.WidgetBase
		}
	}
	return nil
}

// Known reports whether the widget is a Graph or Readout.
func (w *Widget) Known() bool {
	return w.Base() != nil
}

// Metrics returns the widget's metrics; nil for unknown variants.
func (w *Widget) Metrics() []WidgetMetric {
	if b := w.Base(); b != nil {
		return b.Metrics
	}
	return nil
}

// SetMetrics replaces the widget's metrics. It is a no-op for unknown variants.
func (w *Widget) SetMetrics(metrics []WidgetMetric) {
	if b := w.Base(); b != nil {
		b.Metrics = metrics
	}
}

// Key returns the widget key, or -1 for unknown variants.
func (w *Widget) Key() int {
	if b := w.Base(); b != nil {
		return b.Key
	}
	return -1
}

// SetKey assigns a new key.
func (w *Widget) SetKey(key int) {
	if b := w.Base(); b != nil {
		b.Key = key
	}
}

// IsLineGraph reports whether the widget may hold more than one metric.
func (w *Widget) IsLineGraph() bool {
	return w.Kind == WidgetGraph && w.Graph != nil && w.Graph.GraphType.Name == GraphTypeLine
}

// Clone returns a deep copy.
func (w Widget) Clone() Widget {
	out := Widget{Kind: w.Kind}
	switch {
	case w.Graph != nil:
		g := *w.Graph
		g.Metrics = slices.Clone(g.Metrics)
		out.Graph = &g
	case w.Readout != nil:
		r := *w.Readout
		r.Metrics = slices.Clone(r.Metrics)
		out.Readout = &r
	case w.Unknown != nil:
		out.Unknown = bytes.Clone(w.Unknown)
	}
	return out
}

// CloneWidgets deep copies a widget list.
func CloneWidgets(widgets []Widget) []Widget {
	out := make([]Widget, len(widgets))
	for i, w := range widgets {
		out[i] = w.Clone()
	}
	return out
}

// MarshalJSON writes the flat on-disk shape with the widgetType tag.
func (w Widget) MarshalJSON() ([]byte, error) {
	switch w.Kind {
	case WidgetGraph:
		if w.Graph == nil {
			return nil, fmt.Errorf("graph widget without payload")
		}
		g := *w.Graph
		g.WidgetType = WidgetGraph
		return json.Marshal(g)
	case WidgetReadout:
		if w.Readout == nil {
			return nil, fmt.Errorf("readout widget without payload")
		}
		r := *w.Readout
		r.WidgetType = WidgetReadout
		return json.Marshal(r)
	default:
		if len(w.Unknown) == 0 {
			return []byte("null"), nil
		}
		return w.Unknown, nil
	}
}

// UnmarshalJSON dispatches on the widgetType tag. Unrecognized tags are kept
// verbatim in Unknown rather than failing the whole document.
func (w *Widget) UnmarshalJSON(data []byte) error {
	*w = Widget{}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}

	kind := WidgetInvalid
	if raw, ok := probe["widgetType"]; ok {
		var tag int
		if err := json.Unmarshal(raw, &tag); err == nil {
			kind = WidgetType(tag)
		}
	}

	w.Kind = kind
	switch kind {
	case WidgetGraph:
		var g Graph
		if err := json.Unmarshal(data, &g); err != nil {
			return fmt.Errorf("decode graph: %w", err)
		}
		w.Graph = &g
	case WidgetReadout:
		var r Readout
		if err := json.Unmarshal(data, &r); err != nil {
			return fmt.Errorf("decode readout: %w", err)
		}
		w.Readout = &r
	default:
		w.Unknown = bytes.Clone(data)
	}
	return nil
}
