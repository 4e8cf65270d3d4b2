package models

import (
	"fmt"
	"slices"
)

// Action is a hotkey-triggered command.
type Action int

const (
	ActionToggleCapture Action = iota
	ActionCyclePreset
	ActionToggleOverlay
)

// Actions lists every hotkey action in declaration order.
func Actions() []Action {
	return []Action{ActionToggleCapture, ActionCyclePreset, ActionToggleOverlay}
}

func (a Action) String() string {
	switch a {
	case ActionToggleCapture:
		return "ToggleCapture"
	case ActionCyclePreset:
		return "CyclePreset"
	case ActionToggleOverlay:
		return "ToggleOverlay"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Combination is a key plus a set of modifier codes.
type Combination struct {
	Key       int   `json:"key"`
	Modifiers []int `json:"modifiers"`
}

// Binding maps an action to a combination. A nil Combination is unbound.
type Binding struct {
	Action      Action       `json:"action"`
	Combination *Combination `json:"combination"`
}

// CombinationsAreSame compares keys and modifier sets, ignoring modifier order.
func CombinationsAreSame(a, b Combination) bool {
	if a.Key != b.Key || len(a.Modifiers) != len(b.Modifiers) {
		return false
	}
	am := slices.Clone(a.Modifiers)
	bm := slices.Clone(b.Modifiers)
	slices.Sort(am)
	slices.Sort(bm)
	return slices.Equal(am, bm)
}

// Clone returns a deep copy.
func (b Binding) Clone() Binding {
	if b.Combination == nil {
		return b
	}
	c := *b.Combination
	c.Modifiers = slices.Clone(c.Modifiers)
	b.Combination = &c
	return b
}

// UnboundBindings returns an unbound entry for every action, keyed by name.
func UnboundBindings() map[string]Binding {
	out := make(map[string]Binding, len(Actions()))
	for _, a := range Actions() {
		out[a.String()] = Binding{Action: a}
	}
	return out
}
