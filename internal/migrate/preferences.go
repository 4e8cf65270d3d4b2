package migrate

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/TheMichaelB/overlaycfg/internal/events"
	"github.com/TheMichaelB/overlaycfg/internal/models"
)

const preferencesDocument = "preferences"

// PreferencesMigrator upgrades preferences files to models.PreferencesVersion.
type PreferencesMigrator struct {
	ladder *Ladder[Tree]
	logger *events.Logger
}

// NewPreferencesMigrator builds the preferences ladder.
func NewPreferencesMigrator(logger *events.Logger) *PreferencesMigrator {
	if logger == nil {
		logger = events.Discard()
	}
	m := &PreferencesMigrator{logger: logger.WithField("component", "preferences_migrator")}
	m.ladder = MustLadder(preferencesDocument, models.PreferencesVersion,
		TooOld[Tree](preferencesDocument, "0.16.0", "Preferences file version too old to migrate (<0.16.0)."),
		Step[Tree]{Target: "0.17.0", Apply: m.toRates},
		Step[Tree]{Target: "0.18.0", Apply: m.toManualFlush},
		Step[Tree]{Target: "0.19.0", Apply: m.toFlashInjection},
	)
	return m
}

// Ladder exposes the underlying steps.
func (m *PreferencesMigrator) Ladder() *Ladder[Tree] {
	return m.ladder
}

// Upgrade migrates a preferences file. A current document is returned
// unchanged.
func (m *PreferencesMigrator) Upgrade(data []byte) ([]byte, Report, error) {
	tree, err := decodeTree(preferencesDocument, data)
	if err != nil {
		return nil, Report{Document: preferencesDocument}, err
	}
	sig, err := readSignature(preferencesDocument, tree)
	if err != nil {
		return nil, Report{Document: preferencesDocument}, err
	}

	prefs, ok := tree["preferences"].(Tree)
	if !ok {
		prefs = Tree{}
	}

	report, err := m.ladder.MigrateDocument(sig, models.PreferencesCode, prefs)
	if err != nil {
		return nil, report, err
	}
	if report.NoOp {
		return data, report, nil
	}

	tree["preferences"] = prefs
	stampVersion(tree, m.ladder.Current())

	out, err := json.Marshal(tree)
	if err != nil {
		return nil, report, fmt.Errorf("encode migrated preferences: %w", err)
	}

	m.logger.WithFields(map[string]interface{}{
		"from":    report.From,
		"to":      report.To,
		"applied": report.Applied,
	}).Info("Preferences migrated")

	return out, report, nil
}

// toRates derives poll and draw rates from the sampling settings they replaced.
// Rates already present in the tree are kept when sampling settings are absent.
func (m *PreferencesMigrator) toRates(prefs Tree) error {
	def := models.MakeDefaultPreferences()

	period, okPeriod := number(prefs, "samplingPeriodMs")
	perFrame, okFrame := number(prefs, "samplesPerFrame")
	if !okPeriod || !okFrame || period <= 0 || perFrame <= 0 {
		m.logger.Warn("Sampling settings missing; keeping existing or default poll and draw rates")
		if v, ok := number(prefs, "metricPollRate"); !ok || v <= 0 {
			prefs["metricPollRate"] = def.MetricPollRate
		}
		if v, ok := number(prefs, "overlayDrawRate"); !ok || v <= 0 {
			prefs["overlayDrawRate"] = def.OverlayDrawRate
		}
		return nil
	}

	pollRate := math.Round(1000 / period)
	drawRate := math.Round(1000 / (period * perFrame))
	m.logger.WithFields(map[string]interface{}{
		"sampling_period_ms": period,
		"samples_per_frame":  perFrame,
		"metric_poll_rate":   pollRate,
		"overlay_draw_rate":  drawRate,
	}).Info("Migrating preferences to 0.17.0")
	prefs["metricPollRate"] = pollRate
	prefs["overlayDrawRate"] = drawRate
	return nil
}

func (m *PreferencesMigrator) toManualFlush(prefs Tree) error {
	m.logger.Info("Migrating preferences to 0.18.0 (manual ETW flush, lower offset)")
	def := models.MakeDefaultPreferences()
	prefs["manualEtwFlush"] = def.ManualEtwFlush
	prefs["etwFlushPeriod"] = def.EtwFlushPeriod
	prefs["metricsOffset"] = def.MetricsOffset
	return nil
}

func (m *PreferencesMigrator) toFlashInjection(prefs Tree) error {
	m.logger.Info("Migrating preferences to 0.19.0 (flash injection)")
	def := models.MakeDefaultPreferences()
	prefs["enableFlashInjection"] = def.EnableFlashInjection
	prefs["flashInjectionSize"] = def.FlashInjectionSize
	prefs["flashInjectionColor"] = colorTree(def.FlashInjectionColor)
	prefs["flashInjectionBackgroundEnable"] = def.FlashInjectionBackgroundEnable
	prefs["flashInjectionBackgroundColor"] = colorTree(def.FlashInjectionBackgroundColor)
	prefs["flashInjectionRightShift"] = def.FlashInjectionRightShift
	return nil
}
