// Package host talks to the native host process that owns capture, hotkeys
// and the overlay window.
package host

import (
	"context"
	"errors"
	"fmt"

	"github.com/TheMichaelB/overlaycfg/internal/models"
)

// Host is the RPC surface of the native host.
type Host interface {
	PushSpecification(ctx context.Context, spec Spec) error
	BindHotkey(ctx context.Context, binding models.Binding) error
	ClearHotkey(ctx context.Context, action models.Action) error
	SetCapture(ctx context.Context, active bool) error
	Introspect(ctx context.Context) (*Introspection, error)
	EnumerateAdapters(ctx context.Context) ([]Adapter, error)
	Close() error
}

// Endpoint keys understood by the host.
const (
	EndpointPushSpecification = "PushSpecification"
	EndpointBindHotkey        = "BindHotkey"
	EndpointClearHotkey       = "ClearHotkey"
	EndpointSetCapture        = "SetCapture"
	EndpointIntrospect        = "Introspect"
	EndpointEnumerateAdapters = "EnumerateAdapters"
)

// Errors
var (
	ErrNotConnected = errors.New("host not connected")
	ErrClosed       = errors.New("host connection closed")
)

// RemoteError is a failure reported by the host for one call.
type RemoteError struct {
	Key     string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("host %s: %s", e.Key, e.Message)
}

// Spec is the overlay specification pushed to the host.
type Spec struct {
	PID         *int               `json:"pid"`
	Preferences models.Preferences `json:"preferences"`
	Widgets     []models.Widget    `json:"widgets"`
}

// Metric describes one metric the host can report.
type Metric struct {
	ID                 int    `json:"id"`
	Name               string `json:"name"`
	Numeric            bool   `json:"numeric"`
	ArraySize          int    `json:"arraySize"`
	AvailableStatIDs   []int  `json:"availableStatIds"`
	AvailableDeviceIDs []int  `json:"availableDeviceIds"`
	PreferredUnitID    int    `json:"preferredUnitId"`
}

// Stat is a statistic that can be applied to a metric.
type Stat struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Unit is a measurement unit.
type Unit struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Introspection is the host's metric catalog.
type Introspection struct {
	Metrics []Metric `json:"metrics"`
	Stats   []Stat   `json:"stats"`
	Units   []Unit   `json:"units"`
}

// Metric looks up a metric by id.
func (i *Introspection) Metric(id int) (Metric, bool) {
	if i == nil {
		return Metric{}, false
	}
	for _, m := range i.Metrics {
		if m.ID == id {
			return m, true
		}
	}
	return Metric{}, false
}

// HasOption reports whether the catalog offers metricID at arrayIndex.
func (i *Introspection) HasOption(metricID, arrayIndex int) bool {
	m, ok := i.Metric(metricID)
	if !ok || arrayIndex < 0 {
		return false
	}
	size := m.ArraySize
	if size < 1 {
		size = 1
	}
	return arrayIndex < size
}

// Adapter is a graphics adapter reported by the host.
type Adapter struct {
	ID     int    `json:"id"`
	Vendor string `json:"vendor"`
	Name   string `json:"name"`
}
