package models

// RgbaColor is an 8-bit RGB colour with a fractional alpha.
type RgbaColor struct {
	R int     `json:"r"`
	G int     `json:"g"`
	B int     `json:"b"`
	A float64 `json:"a"`
}

// QualifiedMetric fully specifies one telemetry value.
type QualifiedMetric struct {
	MetricID      int `json:"metricId"`
	ArrayIndex    int `json:"arrayIndex"`
	StatID        int `json:"statId"`
	DeviceID      int `json:"deviceId"`
	DesiredUnitID int `json:"desiredUnitId"`
}

// AxisAffinity selects the graph axis a metric is plotted against.
type AxisAffinity int

const (
	AxisLeft AxisAffinity = iota
	AxisRight
)

// WidgetMetric binds a metric to a widget together with its presentation.
type WidgetMetric struct {
	Metric       QualifiedMetric `json:"metric"`
	LineColor    RgbaColor       `json:"lineColor"`
	FillColor    RgbaColor       `json:"fillColor"`
	AxisAffinity AxisAffinity    `json:"axisAffinity"`
}

// MakeDefaultWidgetMetric wraps metric with default colours. A nil metric
// yields the zero metric reference.
func MakeDefaultWidgetMetric(metric *QualifiedMetric) WidgetMetric {
	wm := WidgetMetric{
		LineColor:    RgbaColor{R: 247, G: 129, B: 29, A: 1},
		FillColor:    RgbaColor{R: 247, G: 129, B: 29, A: 0.16},
		AxisAffinity: AxisLeft,
	}
	if metric != nil {
		wm.Metric = *metric
	}
	return wm
}

// DefaultGraphMetric is the metric a freshly added graph plots.
func DefaultGraphMetric() QualifiedMetric {
	return QualifiedMetric{MetricID: 8, ArrayIndex: 0, StatID: 1, DeviceID: 0, DesiredUnitID: 0}
}
