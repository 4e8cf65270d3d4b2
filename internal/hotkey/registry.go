// Package hotkey keeps the action to key-combination bindings in sync with
// the host.
package hotkey

import (
	"context"
	"fmt"
	"sync"

	"github.com/TheMichaelB/overlaycfg/internal/events"
	"github.com/TheMichaelB/overlaycfg/internal/host"
	"github.com/TheMichaelB/overlaycfg/internal/models"
	"github.com/TheMichaelB/overlaycfg/internal/notices"
)

// Modifier codes used by the default bindings.
const (
	ModCtrl  = 2
	ModShift = 4
)

// DefaultBindings returns the factory bindings.
func DefaultBindings() []models.Binding {
	combo := func(key int) *models.Combination {
		return &models.Combination{Key: key, Modifiers: []int{ModCtrl, ModShift}}
	}
	return []models.Binding{
		{Action: models.ActionToggleCapture, Combination: combo(42)},
		{Action: models.ActionCyclePreset, Combination: combo(47)},
		{Action: models.ActionToggleOverlay, Combination: combo(46)},
	}
}

// Registry holds the current binding of every action. Failures are reported
// as notices and never returned.
type Registry struct {
	mu       sync.RWMutex
	bindings map[string]models.Binding

	host     host.Host
	notifier notices.Notifier
	logger   *events.Logger
}

// NewRegistry creates a registry with every action unbound. A nil host makes
// every call succeed locally.
func NewRegistry(h host.Host, notifier notices.Notifier, logger *events.Logger) *Registry {
	if notifier == nil {
		notifier = notices.Discard{}
	}
	if logger == nil {
		logger = events.Discard()
	}
	return &Registry{
		bindings: models.UnboundBindings(),
		host:     h,
		notifier: notifier,
		logger:   logger.WithField("component", "hotkey"),
	}
}

// Bindings returns a copy of the bindings keyed by action name.
func (r *Registry) Bindings() map[string]models.Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]models.Binding, len(r.bindings))
	for k, b := range r.bindings {
		out[k] = b.Clone()
	}
	return out
}

// Binding returns the binding for action.
func (r *Registry) Binding(action models.Action) models.Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bindings[action.String()]
	if !ok {
		return models.Binding{Action: action}
	}
	return b.Clone()
}

// BindHotkey records binding and registers it with the host. The binding is
// kept even when the host rejects it. Reports whether the host accepted.
func (r *Registry) BindHotkey(ctx context.Context, binding models.Binding) bool {
	if err := r.bind(ctx, binding); err != nil {
		name := binding.Action.String()
		r.notifier.Notify(notices.New(fmt.Sprintf("Failed to bind hotkey for [%s]", name)))
		r.logger.WithField("action", name).WithError(err).Error("Failed to bind hotkey")
		return false
	}
	return true
}

func (r *Registry) bind(ctx context.Context, binding models.Binding) error {
	binding = binding.Clone()

	r.mu.Lock()
	r.bindings[binding.Action.String()] = binding
	r.mu.Unlock()

	if r.host == nil {
		return nil
	}
	return r.host.BindHotkey(ctx, binding)
}

// ClearHotkey unregisters the action with the host, then marks it unbound.
// On failure the previous binding is kept.
func (r *Registry) ClearHotkey(ctx context.Context, action models.Action) bool {
	if r.host != nil {
		if err := r.host.ClearHotkey(ctx, action); err != nil {
			name := action.String()
			r.notifier.Notify(notices.New(fmt.Sprintf("Failed to clear hotkey for [%s]", name)))
			r.logger.WithField("action", name).WithError(err).Error("Failed to clear hotkey")
			return false
		}
	}

	r.mu.Lock()
	r.bindings[action.String()] = models.Binding{Action: action}
	r.mu.Unlock()
	return true
}

// BindDefaults binds every factory binding, notifying once per failure.
func (r *Registry) BindDefaults(ctx context.Context) {
	for _, b := range DefaultBindings() {
		if err := r.bind(ctx, b); err != nil {
			name := b.Action.String()
			r.notifier.Notify(notices.New(fmt.Sprintf("Unable to bind default hotkey for %s", name)))
			r.logger.WithField("action", name).WithError(err).Error("Unable to bind default hotkey")
		}
	}
}

// Reconcile brings the registry in line with want. Actions that lose their
// combination are cleared; actions whose combination changed are rebound.
// Unchanged actions cause no host call.
func (r *Registry) Reconcile(ctx context.Context, want map[string]models.Binding) {
	for _, action := range models.Actions() {
		next, ok := want[action.String()]
		if !ok {
			continue
		}
		next.Action = action
		prev := r.Binding(action)

		switch {
		case next.Combination == nil && prev.Combination != nil:
			r.ClearHotkey(ctx, action)
		case next.Combination != nil &&
			(prev.Combination == nil || !models.CombinationsAreSame(*next.Combination, *prev.Combination)):
			r.BindHotkey(ctx, next)
		}
	}
}
