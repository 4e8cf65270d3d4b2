package migrate

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/TheMichaelB/overlaycfg/internal/events"
	"github.com/TheMichaelB/overlaycfg/internal/models"
)

const (
	loadoutDocument = "loadout"
	tooOldLoadout   = "Loadout file version too old to migrate (<0.13.0)."
)

// LoadoutMigrator upgrades loadout files to models.LoadoutVersion. The
// document ladder runs first, then every widget goes through the ladder of
// its variant.
type LoadoutMigrator struct {
	document *Ladder[Tree]
	graph    *Ladder[Tree]
	readout  *Ladder[Tree]
	logger   *events.Logger
}

// NewLoadoutMigrator builds the loadout, graph and readout ladders.
func NewLoadoutMigrator(logger *events.Logger) *LoadoutMigrator {
	if logger == nil {
		logger = events.Discard()
	}
	return &LoadoutMigrator{
		document: MustLadder[Tree](loadoutDocument, models.LoadoutVersion),
		graph: MustLadder("graph", models.LoadoutVersion,
			TooOld[Tree](loadoutDocument, "0.13.0", tooOldLoadout),
		),
		readout: MustLadder("readout", models.LoadoutVersion,
			TooOld[Tree](loadoutDocument, "0.13.0", tooOldLoadout),
		),
		logger: logger.WithField("component", "loadout_migrator"),
	}
}

// Upgrade migrates a loadout file. A current document is returned unchanged.
// Widgets with an unrecognized type are dropped and listed in Report.Skipped.
func (m *LoadoutMigrator) Upgrade(data []byte) ([]byte, Report, error) {
	tree, err := decodeTree(loadoutDocument, data)
	if err != nil {
		return nil, Report{Document: loadoutDocument}, err
	}
	sig, err := readSignature(loadoutDocument, tree)
	if err != nil {
		return nil, Report{Document: loadoutDocument}, err
	}

	report, err := m.document.MigrateDocument(sig, models.LoadoutCode, tree)
	if err != nil {
		return nil, report, err
	}
	if report.NoOp {
		return data, report, nil
	}

	widgets, _ := tree["widgets"].([]any)
	kept := make([]any, 0, len(widgets))
	for i, raw := range widgets {
		widget, ok := raw.(Tree)
		if !ok {
			verr := &models.VariantError{Index: i, Tag: "none", Err: fmt.Errorf("widget is not an object")}
			m.skip(&report, verr)
			continue
		}

		if err := m.migrateWidget(i, widget, sig.Version); err != nil {
			if models.IsRecoverable(err) {
				m.skip(&report, err)
				continue
			}
			return nil, report, err
		}
		kept = append(kept, widget)
	}
	tree["widgets"] = kept
	stampVersion(tree, m.document.Current())

	out, err := json.Marshal(tree)
	if err != nil {
		return nil, report, fmt.Errorf("encode migrated loadout: %w", err)
	}

	m.logger.WithFields(map[string]interface{}{
		"from":    report.From,
		"to":      report.To,
		"widgets": len(kept),
		"skipped": len(report.Skipped),
	}).Info("Loadout migrated")

	return out, report, nil
}

// migrateWidget dispatches one widget on its widgetType tag.
func (m *LoadoutMigrator) migrateWidget(index int, widget Tree, source string) error {
	tag, ok := number(widget, "widgetType")
	if !ok || tag != float64(int(tag)) {
		return &models.VariantError{Index: index, Tag: fmt.Sprint(widget["widgetType"])}
	}

	var ladder *Ladder[Tree]
	switch models.WidgetType(int(tag)) {
	case models.WidgetGraph:
		ladder = m.graph
	case models.WidgetReadout:
		ladder = m.readout
	default:
		return &models.VariantError{Index: index, Tag: strconv.Itoa(int(tag))}
	}

	if _, err := ladder.Migrate(widget, source); err != nil {
		return fmt.Errorf("widget #%d: %w", index, err)
	}
	return nil
}

func (m *LoadoutMigrator) skip(report *Report, err error) {
	m.logger.WithError(err).Warn("Dropping widget during migration")
	report.Skipped = append(report.Skipped, err)
}
