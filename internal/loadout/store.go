// Package loadout holds the live widget list and persists it as the custom
// loadout document.
package loadout

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/TheMichaelB/overlaycfg/internal/config"
	"github.com/TheMichaelB/overlaycfg/internal/events"
	"github.com/TheMichaelB/overlaycfg/internal/host"
	"github.com/TheMichaelB/overlaycfg/internal/migrate"
	"github.com/TheMichaelB/overlaycfg/internal/models"
	"github.com/TheMichaelB/overlaycfg/internal/notices"
	"github.com/TheMichaelB/overlaycfg/internal/persist"
	"github.com/TheMichaelB/overlaycfg/internal/storage"
)

// Notice prefixes for failed loads.
const (
	CustomLoadFailed = "Failed to load custom loadout; reset to an empty loadout. "
	PresetLoadFailed = "Failed to load preset. "
)

// Errors
var (
	ErrAlreadyInitialized = errors.New("loadout store already initialized")
	ErrIndexOutOfRange    = errors.New("widget index out of range")
	ErrBadMetricAddition  = errors.New("bad addition of metric to widget")
	ErrWrongWidgetType    = errors.New("wrong widget type")
)

// Deps are the collaborators of a Store.
type Deps struct {
	Storage storage.DocumentStore
	Notices notices.Notifier
	Logger  *events.Logger
}

// Store owns the widget list of the active loadout.
type Store struct {
	mu      sync.RWMutex
	widgets []models.Widget
	keys    models.KeySequence
	catalog *host.Introspection
	state   persist.State
	outcome persist.Outcome
	loadErr error

	storage  storage.DocumentStore
	notifier notices.Notifier
	migrator *migrate.LoadoutMigrator
	writer   *persist.Writer
	logger   *events.Logger

	gateMu       sync.RWMutex
	gate         func() bool
	flushOnClose bool
}

// NewStore creates an uninitialized store with an empty widget list.
func NewStore(deps Deps, cfg *config.PersistenceConfig) *Store {
	logger := deps.Logger
	if logger == nil {
		logger = events.Discard()
	}
	notifier := deps.Notices
	if notifier == nil {
		notifier = notices.Discard{}
	}

	s := &Store{
		widgets:      []models.Widget{},
		storage:      deps.Storage,
		notifier:     notifier,
		migrator:     migrate.NewLoadoutMigrator(logger),
		logger:       logger.WithField("component", "loadout_store"),
		flushOnClose: cfg.FlushOnClose,
	}
	s.writer = persist.NewWriter(persist.WriterConfig{
		Document: "loadout",
		Store:    deps.Storage,
		Location: storage.LocationDocuments,
		Path:     storage.CustomLoadoutPath,
		Delay:    cfg.DebounceDelay,
		Render:   s.FileContents,
	}, logger)
	return s
}

// SetPersistGate installs a check consulted before every auto-save. Saves
// are skipped while it returns false.
func (s *Store) SetPersistGate(gate func() bool) {
	s.gateMu.Lock()
	defer s.gateMu.Unlock()
	s.gate = gate
}

// SetCatalog installs the host metric catalog used to filter loaded
// widgets. A nil catalog disables filtering.
func (s *Store) SetCatalog(catalog *host.Introspection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = catalog
}

// Init loads the custom loadout. Any failure resets the store to an empty
// loadout and raises a notice; the store is Ready afterwards either way.
func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	if s.state != persist.StateUninitialized {
		s.mu.Unlock()
		return ErrAlreadyInitialized
	}
	s.state = persist.StateLoading
	s.mu.Unlock()

	ctx = events.WithDocument(ctx, "loadout")
	logger := s.logger
	if id := events.GetSession(ctx); id != "" {
		logger = logger.WithField("session_id", id)
	}

	text, err := s.storage.Load(ctx, storage.LocationDocuments, storage.CustomLoadoutPath)
	if err == nil {
		err = s.ParseAndReplace(text)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = persist.StateReady

	if err != nil {
		s.widgets = []models.Widget{}
		s.keys.Reset()
		s.outcome = persist.OutcomeLoadFailedReset
		s.loadErr = err
		s.notifier.Notify(notices.FromError(CustomLoadFailed, err))
		logger.WithError(err).Warn("Loadout reset due to load failure")
		return nil
	}

	s.outcome = persist.OutcomeLoaded
	logger.WithField("widgets", len(s.widgets)).Info("Loadout loaded")
	return nil
}

// Status returns the lifecycle state and write counters.
func (s *Store) Status() persist.Status {
	s.mu.RLock()
	st := persist.Status{State: s.state, Outcome: s.outcome, LoadError: s.loadErr}
	s.mu.RUnlock()
	s.writer.Stats(&st)
	return st
}

// Events returns the write result channel.
func (s *Store) Events() <-chan persist.Event {
	return s.writer.Events()
}

// Widgets returns a copy of the widget list.
func (s *Store) Widgets() []models.Widget {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.CloneWidgets(s.widgets)
}

// FileContents renders the current widgets as a loadout document.
func (s *Store) FileContents() (string, error) {
	s.mu.RLock()
	file := models.NewLoadoutFile(models.CloneWidgets(s.widgets))
	s.mu.RUnlock()
	return models.MarshalDocument(file)
}

// SerializeCurrent schedules a debounced save of the custom loadout.
func (s *Store) SerializeCurrent() {
	s.gateMu.RLock()
	gate := s.gate
	s.gateMu.RUnlock()

	if gate != nil && !gate() {
		return
	}
	s.writer.Schedule()
}

// Flush writes a pending save now.
func (s *Store) Flush() bool {
	return s.writer.Flush()
}

// Close stops persistence, flushing a pending save when configured to.
func (s *Store) Close() error {
	s.writer.Close(s.flushOnClose)
	return nil
}

// mutate runs fn under the write lock and schedules a save when it succeeds.
func (s *Store) mutate(fn func() error) error {
	s.mu.Lock()
	err := fn()
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.SerializeCurrent()
	return nil
}

func (s *Store) widgetAt(index int) (*models.Widget, error) {
	if index < 0 || index >= len(s.widgets) {
		return nil, fmt.Errorf("widget #%d: %w", index, ErrIndexOutOfRange)
	}
	return &s.widgets[index], nil
}

// AddGraph appends a line graph plotting the default metric.
func (s *Store) AddGraph() {
	_ = s.mutate(func() error {
		metric := models.DefaultGraphMetric()
		s.widgets = append(s.widgets, models.MakeDefaultGraph(&s.keys, &metric))
		return nil
	})
}

// AddReadout appends a readout showing the first catalog metric, or the
// default metric without a catalog.
func (s *Store) AddReadout() {
	_ = s.mutate(func() error {
		metric := models.DefaultGraphMetric()
		if s.catalog != nil && len(s.catalog.Metrics) > 0 {
			first := s.catalog.Metrics[0]
			metric = models.QualifiedMetric{MetricID: first.ID}
			if len(first.AvailableStatIDs) > 0 {
				metric.StatID = first.AvailableStatIDs[0]
			}
		}
		s.widgets = append(s.widgets, models.MakeDefaultReadout(&s.keys, &metric))
		return nil
	})
}

// RemoveWidget deletes the widget at index.
func (s *Store) RemoveWidget(index int) error {
	return s.mutate(func() error {
		if _, err := s.widgetAt(index); err != nil {
			return err
		}
		s.widgets = append(s.widgets[:index], s.widgets[index+1:]...)
		return nil
	})
}

// SetWidgetMetrics replaces the metrics of a widget. Only line graphs keep
// more than one; other widgets keep the first.
func (s *Store) SetWidgetMetrics(index int, metrics []models.WidgetMetric) error {
	if len(metrics) == 0 {
		return fmt.Errorf("widget #%d: no metrics given", index)
	}
	return s.mutate(func() error {
		w, err := s.widgetAt(index)
		if err != nil {
			return err
		}
		if !w.Known() {
			return fmt.Errorf("widget #%d: %w", index, ErrWrongWidgetType)
		}
		if w.IsLineGraph() {
			w.SetMetrics(append([]models.WidgetMetric(nil), metrics...))
			return nil
		}
		if len(metrics) > 1 {
			s.logger.WithFields(map[string]interface{}{
				"widget":  index,
				"metrics": len(metrics),
			}).Warn("Widget is not a line graph; keeping first metric")
		}
		w.SetMetrics([]models.WidgetMetric{metrics[0]})
		return nil
	})
}

// AddWidgetMetric appends a metric to a line graph. A nil metric adds the
// zero metric reference.
func (s *Store) AddWidgetMetric(index int, metric *models.QualifiedMetric) error {
	return s.mutate(func() error {
		w, err := s.widgetAt(index)
		if err != nil {
			return err
		}
		if !w.IsLineGraph() {
			s.logger.WithField("widget", index).Warn("Widget is not a line graph but trying to add metric")
			return fmt.Errorf("widget #%d: %w", index, ErrBadMetricAddition)
		}
		w.SetMetrics(append(w.Metrics(), models.MakeDefaultWidgetMetric(metric)))
		return nil
	})
}

// RemoveWidgetMetric deletes one metric. The last metric of a widget is
// never removed.
func (s *Store) RemoveWidgetMetric(index, metricIndex int) error {
	removed := false
	err := func() error {
		s.mu.Lock()
		defer s.mu.Unlock()

		w, err := s.widgetAt(index)
		if err != nil {
			return err
		}
		metrics := w.Metrics()
		if len(metrics) < 2 {
			s.logger.WithField("widget", index).Warn("Not enough metrics in widget to allow a remove operation")
			return nil
		}
		if metricIndex < 0 || metricIndex >= len(metrics) {
			return fmt.Errorf("widget #%d metric #%d: %w", index, metricIndex, ErrIndexOutOfRange)
		}
		w.SetMetrics(append(metrics[:metricIndex:metricIndex], metrics[metricIndex+1:]...))
		removed = true
		return nil
	}()
	if err != nil {
		return err
	}
	if removed {
		s.SerializeCurrent()
	}
	return nil
}

// SetWidgetMetric replaces one metric of a widget.
func (s *Store) SetWidgetMetric(index, metricIndex int, metric models.WidgetMetric) error {
	return s.mutate(func() error {
		w, err := s.widgetAt(index)
		if err != nil {
			return err
		}
		metrics := w.Metrics()
		if metricIndex < 0 || metricIndex >= len(metrics) {
			return fmt.Errorf("widget #%d metric #%d: %w", index, metricIndex, ErrIndexOutOfRange)
		}
		metrics[metricIndex] = metric
		return nil
	})
}

// ResetWidgetAs replaces a widget with a default one of kind, keeping its
// first metric when the new kind can show it.
func (s *Store) ResetWidgetAs(index int, kind models.WidgetType) error {
	return s.mutate(func() error {
		w, err := s.widgetAt(index)
		if err != nil {
			return err
		}

		var metric *models.QualifiedMetric
		if metrics := w.Metrics(); len(metrics) > 0 {
			m := metrics[0].Metric
			metric = &m
		}
		if metric != nil && kind == models.WidgetGraph && s.catalog != nil {
			if info, ok := s.catalog.Metric(metric.MetricID); !ok || !info.Numeric {
				metric = nil
			}
		}

		switch kind {
		case models.WidgetGraph:
			s.widgets[index] = models.MakeDefaultGraph(&s.keys, metric)
		case models.WidgetReadout:
			s.widgets[index] = models.MakeDefaultReadout(&s.keys, metric)
		default:
			return fmt.Errorf("widget #%d: cannot reset as %s: %w", index, kind, ErrWrongWidgetType)
		}
		return nil
	})
}

// MoveWidget moves the widget at from so that it ends up at index to.
func (s *Store) MoveWidget(from, to int) error {
	return s.mutate(func() error {
		if _, err := s.widgetAt(from); err != nil {
			return err
		}
		if _, err := s.widgetAt(to); err != nil {
			return err
		}
		moved := s.widgets[from]
		s.widgets = append(s.widgets[:from], s.widgets[from+1:]...)
		s.widgets = append(s.widgets[:to], append([]models.Widget{moved}, s.widgets[to:]...)...)
		return nil
	})
}

// UpdateGraph edits the graph at index in place. The key and type tag
// cannot be changed through fn.
func (s *Store) UpdateGraph(index int, fn func(g *models.Graph)) error {
	return s.mutate(func() error {
		w, err := s.widgetAt(index)
		if err != nil {
			return err
		}
		if w.Kind != models.WidgetGraph || w.Graph == nil {
			return fmt.Errorf("widget #%d is %s: %w", index, w.Kind, ErrWrongWidgetType)
		}
		key := w.Graph.Key
		fn(w.Graph)
		w.Graph.Key = key
		w.Graph.WidgetType = models.WidgetGraph
		return nil
	})
}

// UpdateReadout edits the readout at index in place.
func (s *Store) UpdateReadout(index int, fn func(r *models.Readout)) error {
	return s.mutate(func() error {
		w, err := s.widgetAt(index)
		if err != nil {
			return err
		}
		if w.Kind != models.WidgetReadout || w.Readout == nil {
			return fmt.Errorf("widget #%d is %s: %w", index, w.Kind, ErrWrongWidgetType)
		}
		key := w.Readout.Key
		fn(w.Readout)
		w.Readout.Key = key
		w.Readout.WidgetType = models.WidgetReadout
		return nil
	})
}

// ParseAndReplace parses a loadout document, migrating it when stale, and
// replaces the widget list. Metrics missing from the catalog are removed,
// then widgets left without metrics or of unknown type are dropped. The
// survivors get fresh keys. On error the widget list is untouched.
func (s *Store) ParseAndReplace(text string) error {
	upgraded, report, err := s.migrator.Upgrade([]byte(text))
	if err != nil {
		return err
	}

	file, skipped, err := models.DecodeLoadoutFile(upgraded)
	if err != nil {
		return &models.FormatError{Document: "loadout", Err: err}
	}
	for _, serr := range skipped {
		s.logger.WithError(serr).Warn("Dropping widget that failed to decode")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]models.Widget, 0, len(file.Widgets))
	for i := range file.Widgets {
		w := file.Widgets[i]
		if !w.Known() {
			s.logger.WithError(&models.VariantError{Index: i, Tag: w.Kind.String()}).Warn("Dropping widget of unknown type")
			continue
		}
		if s.catalog != nil {
			metrics := w.Metrics()
			filtered := metrics[:0]
			for _, m := range metrics {
				if s.catalog.HasOption(m.Metric.MetricID, m.Metric.ArrayIndex) {
					filtered = append(filtered, m)
				}
			}
			w.SetMetrics(filtered)
		}
		if len(w.Metrics()) == 0 {
			continue
		}
		kept = append(kept, w)
	}

	s.keys.Reset()
	for i := range kept {
		kept[i].SetKey(s.keys.Next())
	}
	s.widgets = kept

	if !report.NoOp {
		s.logger.WithFields(map[string]interface{}{
			"from": report.From,
			"to":   report.To,
		}).Info("Loadout migrated")
	}
	return nil
}

// LoadConfigFromPayload is ParseAndReplace for user-initiated loads. A
// failure becomes a notice starting with errPrefix; terminal migration
// errors append their message. It reports whether the load succeeded.
func (s *Store) LoadConfigFromPayload(payload, errPrefix string) bool {
	if err := s.ParseAndReplace(payload); err != nil {
		s.notifier.Notify(notices.FromError(errPrefix, err))
		s.logger.WithError(err).Error(strings.TrimSpace(errPrefix))
		return false
	}
	return true
}

// LoadPreset replaces the widgets with a preset. Slots are read from the
// install location; Custom reloads the auto-saved loadout.
func (s *Store) LoadPreset(ctx context.Context, preset models.Preset) bool {
	loc, p := storage.LocationInstall, storage.PresetPath(int(preset))
	if preset == models.PresetCustom {
		loc, p = storage.LocationDocuments, storage.CustomLoadoutPath
	} else if !preset.Valid() {
		s.notifier.Notify(notices.New(PresetLoadFailed))
		s.logger.WithField("preset", int(preset)).Error("Unknown preset")
		return false
	}

	text, err := s.storage.Load(ctx, loc, p)
	if err != nil {
		s.notifier.Notify(notices.FromError(PresetLoadFailed, err))
		s.logger.WithField("preset", preset.String()).WithError(err).Error("Failed to read preset")
		return false
	}
	return s.LoadConfigFromPayload(text, PresetLoadFailed)
}

// Export writes the current loadout to Loadouts/<name> in the documents
// location.
func (s *Store) Export(ctx context.Context, name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid loadout name %q", name)
	}
	if path.Ext(name) == "" {
		name += ".json"
	}

	text, err := s.FileContents()
	if err != nil {
		return err
	}
	if err := s.storage.Store(ctx, text, storage.LocationDocuments, "Loadouts/"+name); err != nil {
		return fmt.Errorf("export loadout: %w", err)
	}

	s.logger.WithField("name", name).Info("Loadout exported")
	return nil
}
