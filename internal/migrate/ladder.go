// Package migrate upgrades persisted documents across schema revisions.
//
// A Ladder is an ordered list of version-gated steps. Migrating a payload
// written at version v replays, in ascending order, every step whose target
// is strictly newer than v. Steps are cumulative deltas and must tolerate
// input that skipped intermediate revisions.
package migrate

import (
	"fmt"
	"slices"

	"github.com/TheMichaelB/overlaycfg/internal/models"
	"github.com/TheMichaelB/overlaycfg/internal/version"
)

// Step upgrades a payload to the schema revision named by Target.
type Step[T any] struct {
	Target string
	Apply  func(T) error
}

// Report describes what a migration did.
type Report struct {
	Document string   `json:"document"`
	From     string   `json:"from"`
	To       string   `json:"to"`
	Applied  []string `json:"applied,omitempty"`
	NoOp     bool     `json:"no_op"`
	Skipped  []error  `json:"-"`
}

// Ladder holds the sorted steps for one payload type.
type Ladder[T any] struct {
	name    string
	current string
	steps   []Step[T]
}

// NewLadder validates and sorts steps. Every target must be a valid version
// no newer than current.
func NewLadder[T any](name, current string, steps ...Step[T]) (*Ladder[T], error) {
	if !version.IsValid(current) {
		return nil, fmt.Errorf("ladder %s: current %w: %q", name, version.ErrInvalidVersionFormat, current)
	}

	sorted := slices.Clone(steps)
	for _, s := range sorted {
		c, err := version.Compare(s.Target, current)
		if err != nil {
			return nil, fmt.Errorf("ladder %s: step: %w", name, err)
		}
		if c > 0 {
			return nil, fmt.Errorf("ladder %s: step %s is newer than current %s", name, s.Target, current)
		}
		if s.Apply == nil {
			return nil, fmt.Errorf("ladder %s: step %s has no apply func", name, s.Target)
		}
	}
	slices.SortStableFunc(sorted, func(a, b Step[T]) int {
		return version.MustCompare(a.Target, b.Target)
	})

	return &Ladder[T]{name: name, current: current, steps: sorted}, nil
}

// MustLadder is NewLadder for steps declared as constants.
func MustLadder[T any](name, current string, steps ...Step[T]) *Ladder[T] {
	l, err := NewLadder(name, current, steps...)
	if err != nil {
		panic(err)
	}
	return l
}

// Current returns the revision the ladder migrates to.
func (l *Ladder[T]) Current() string {
	return l.current
}

// Targets lists step versions in the order they run.
func (l *Ladder[T]) Targets() []string {
	out := make([]string, len(l.steps))
	for i, s := range l.steps {
		out[i] = s.Target
	}
	return out
}

// Migrate upgrades payload from source to the current revision in place.
// A source newer than current fails with a *models.VersionError and leaves
// payload untouched; a source equal to current is a no-op.
func (l *Ladder[T]) Migrate(payload T, source string) (Report, error) {
	report := Report{Document: l.name, From: source, To: l.current}

	cmp, err := version.Compare(source, l.current)
	if err != nil {
		return report, &models.FormatError{Document: l.name, Err: err}
	}
	if cmp > 0 {
		return report, &models.VersionError{Document: l.name, Version: source, Current: l.current}
	}
	if cmp == 0 {
		report.NoOp = true
		return report, nil
	}

	for _, s := range l.steps {
		if version.MustCompare(s.Target, source) <= 0 {
			continue
		}
		if err := s.Apply(payload); err != nil {
			return report, fmt.Errorf("migrate %s to %s: %w", l.name, s.Target, err)
		}
		report.Applied = append(report.Applied, s.Target)
	}

	return report, nil
}

// MigrateDocument checks the signature code before migrating. A document
// of another family fails with a *models.FormatError.
func (l *Ladder[T]) MigrateDocument(sig models.Signature, expect models.DocumentCode, payload T) (Report, error) {
	if sig.Code != expect {
		return Report{Document: l.name, From: sig.Version, To: l.current}, &models.FormatError{
			Document: l.name,
			Expected: expect,
			Actual:   sig.Code,
		}
	}
	return l.Migrate(payload, sig.Version)
}

// TooOld returns a step that refuses every source older than target.
func TooOld[T any](document, target, message string) Step[T] {
	return Step[T]{
		Target: target,
		Apply: func(T) error {
			return &models.TerminalMigrationError{Document: document, Target: target, Message: message}
		},
	}
}
