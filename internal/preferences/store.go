// Package preferences holds the live preferences and hotkey bindings and
// builds the overlay specification pushed to the host.
package preferences

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/TheMichaelB/overlaycfg/internal/config"
	"github.com/TheMichaelB/overlaycfg/internal/events"
	"github.com/TheMichaelB/overlaycfg/internal/host"
	"github.com/TheMichaelB/overlaycfg/internal/hotkey"
	"github.com/TheMichaelB/overlaycfg/internal/loadout"
	"github.com/TheMichaelB/overlaycfg/internal/migrate"
	"github.com/TheMichaelB/overlaycfg/internal/models"
	"github.com/TheMichaelB/overlaycfg/internal/notices"
	"github.com/TheMichaelB/overlaycfg/internal/persist"
	"github.com/TheMichaelB/overlaycfg/internal/storage"
	"github.com/TheMichaelB/overlaycfg/internal/timing"
)

// LoadFailed prefixes the notice raised when preferences are reset.
const LoadFailed = "Preferences reset due to load failure. "

// defaultAdapterID is assumed active when no adapter is selected.
const defaultAdapterID = 1

// Errors
var (
	ErrAlreadyInitialized = errors.New("preferences store already initialized")
	ErrNoHost             = errors.New("no host connected")
	ErrInvalidPreset      = errors.New("invalid preset")
)

// Deps are the collaborators of a Store. Host may be nil.
type Deps struct {
	Loadout *loadout.Store
	Hotkeys *hotkey.Registry
	Host    host.Host
	Storage storage.DocumentStore
	Notices notices.Notifier
	Logger  *events.Logger
}

// Store owns the preferences document.
type Store struct {
	mu      sync.RWMutex
	prefs   models.Preferences
	pid     *int
	catalog *host.Introspection
	state   persist.State
	outcome persist.Outcome
	loadErr error

	// Capture state
	capturing   bool
	captureTask *timing.DelayedTask[struct{}]
	captureGen  uint64

	loadout  *loadout.Store
	hotkeys  *hotkey.Registry
	host     host.Host
	storage  storage.DocumentStore
	notifier notices.Notifier
	migrator *migrate.PreferencesMigrator
	writer   *persist.Writer
	logger   *events.Logger

	flushOnClose bool
}

// NewStore creates an uninitialized store holding default preferences. The
// loadout store, when given, only auto-saves while the Custom preset is
// selected.
func NewStore(deps Deps, cfg *config.PersistenceConfig) *Store {
	logger := deps.Logger
	if logger == nil {
		logger = events.Discard()
	}
	notifier := deps.Notices
	if notifier == nil {
		notifier = notices.Discard{}
	}
	hotkeys := deps.Hotkeys
	if hotkeys == nil {
		hotkeys = hotkey.NewRegistry(deps.Host, notifier, logger)
	}

	s := &Store{
		prefs:        models.MakeDefaultPreferences(),
		loadout:      deps.Loadout,
		hotkeys:      hotkeys,
		host:         deps.Host,
		storage:      deps.Storage,
		notifier:     notifier,
		migrator:     migrate.NewPreferencesMigrator(logger),
		logger:       logger.WithField("component", "preferences_store"),
		flushOnClose: cfg.FlushOnClose,
	}
	s.writer = persist.NewWriter(persist.WriterConfig{
		Document: "preferences",
		Store:    deps.Storage,
		Location: storage.LocationDocuments,
		Path:     storage.PreferencesPath,
		Delay:    cfg.DebounceDelay,
		Render:   s.FileContents,
	}, logger)

	if s.loadout != nil {
		s.loadout.SetPersistGate(s.CustomSelected)
	}
	return s
}

// Init loads the preferences document. On any failure the default hotkeys
// are bound, preferences reset to defaults with the first preset selected,
// and a notice is raised. The store is Ready afterwards either way.
func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	if s.state != persist.StateUninitialized {
		s.mu.Unlock()
		return ErrAlreadyInitialized
	}
	s.state = persist.StateLoading
	s.mu.Unlock()

	ctx = events.WithDocument(ctx, "preferences")
	logger := s.logger
	if id := events.GetSession(ctx); id != "" {
		logger = logger.WithField("session_id", id)
	}

	text, err := s.storage.Load(ctx, storage.LocationDocuments, storage.PreferencesPath)
	if err == nil {
		err = s.ParseAndReplace(ctx, text)
	}

	if err != nil {
		s.hotkeys.BindDefaults(ctx)
		s.Reset()
		s.notifier.Notify(notices.FromError(LoadFailed, err))
		logger.WithError(err).Warn("Preferences reset due to load failure")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = persist.StateReady
	if err != nil {
		s.outcome = persist.OutcomeLoadFailedReset
		s.loadErr = err
	} else {
		s.outcome = persist.OutcomeLoaded
		logger.Info("Preferences loaded")
	}
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

// Preferences returns a copy of the current preferences.
func (s *Store) Preferences() models.Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs.Clone()
}

// Hotkeys returns the binding registry.
func (s *Store) Hotkeys() *hotkey.Registry {
	return s.hotkeys
}

// CustomSelected reports whether the Custom preset is active.
func (s *Store) CustomSelected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs.SelectedPreset != nil && *s.prefs.SelectedPreset == models.PresetCustom
}

// Update applies fn to the preferences and schedules a save.
func (s *Store) Update(fn func(p *models.Preferences)) {
	s.mu.Lock()
	fn(&s.prefs)
	s.mu.Unlock()
	s.Serialize()
}

// SelectPreset makes preset active and loads it into the loadout store.
func (s *Store) SelectPreset(ctx context.Context, preset models.Preset) error {
	if !preset.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidPreset, int(preset))
	}

	s.Update(func(p *models.Preferences) {
		p.SelectedPreset = models.PresetPtr(preset)
	})

	if s.loadout != nil {
		s.loadout.LoadPreset(ctx, preset)
	}
	s.logger.WithField("preset", preset.String()).Info("Preset selected")
	return nil
}

// FileContents renders the preferences document with the current bindings.
func (s *Store) FileContents() (string, error) {
	s.mu.RLock()
	prefs := s.prefs.Clone()
	s.mu.RUnlock()
	return models.MarshalDocument(models.NewPreferenceFile(prefs, s.hotkeys.Bindings()))
}

// Serialize schedules a debounced save.
func (s *Store) Serialize() {
	s.writer.Schedule()
}

// Flush writes a pending save now.
func (s *Store) Flush() bool {
	return s.writer.Flush()
}

// Close stops the capture timer and persistence.
func (s *Store) Close() error {
	s.mu.Lock()
	s.stopCaptureTimer()
	s.mu.Unlock()

	s.writer.Close(s.flushOnClose)
	return nil
}

// ParseAndReplace parses a preferences document, migrating it when stale.
// Its preferences are merged over the current ones: fields absent from the
// document keep their value. Hotkey bindings are reconciled against the
// registry so only changed actions reach the host.
func (s *Store) ParseAndReplace(ctx context.Context, text string) error {
	upgraded, report, err := s.migrator.Upgrade([]byte(text))
	if err != nil {
		return err
	}

	var file struct {
		Preferences    json.RawMessage           `json:"preferences"`
		HotkeyBindings map[string]models.Binding `json:"hotkeyBindings"`
	}
	if err := json.Unmarshal(upgraded, &file); err != nil {
		return &models.FormatError{Document: "preferences", Err: err}
	}

	s.mu.Lock()
	merged := s.prefs.Clone()
	if len(file.Preferences) > 0 {
		if err := json.Unmarshal(file.Preferences, &merged); err != nil {
			s.mu.Unlock()
			return &models.FormatError{Document: "preferences", Err: err}
		}
	}
	s.prefs = merged
	s.mu.Unlock()

	s.hotkeys.Reconcile(ctx, file.HotkeyBindings)

	if !report.NoOp {
		s.logger.WithFields(map[string]interface{}{
			"from":    report.From,
			"to":      report.To,
			"applied": len(report.Applied),
		}).Info("Preferences migrated")
	}
	return nil
}

// Reset restores default preferences with the first preset selected and
// clears capture state.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopCaptureTimer()
	s.prefs = models.MakeDefaultPreferences()
	s.prefs.SelectedPreset = models.PresetPtr(models.PresetSlot1)
	s.capturing = false
	s.pid = nil
}

// Capturing reports whether a capture is running.
func (s *Store) Capturing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.capturing
}

// WriteCapture starts or stops a capture. With a capture duration enabled,
// the capture flag drops on its own after the duration.
func (s *Store) WriteCapture(ctx context.Context, active bool) error {
	if s.host != nil {
		if err := s.host.SetCapture(ctx, active); err != nil {
			return fmt.Errorf("set capture: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopCaptureTimer()
	if active && s.prefs.EnableCaptureDuration {
		s.captureGen++
		gen := s.captureGen
		d := time.Duration(s.prefs.CaptureDuration * float64(time.Second))
		s.captureTask = timing.Dispatch(func() (struct{}, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.captureGen == gen {
				s.capturing = false
				s.captureTask = nil
				s.logger.Debug("Capture duration elapsed")
			}
			return struct{}{}, nil
		}, d)
	}
	s.capturing = active
	return nil
}

// stopCaptureTimer cancels a pending capture timer. Caller holds s.mu.
func (s *Store) stopCaptureTimer() {
	if s.captureTask != nil {
		s.captureTask.Cancel()
		s.captureTask = nil
	}
	s.captureGen++
}

// SetPID targets a process; nil lets the host pick.
func (s *Store) SetPID(pid *int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pid == nil {
		s.pid = nil
		return
	}
	v := *pid
	s.pid = &v
}

// PID returns the targeted process, if any.
func (s *Store) PID() *int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pid == nil {
		return nil
	}
	v := *s.pid
	return &v
}

// RefreshCatalog fetches the host metric catalog and shares it with the
// loadout store.
func (s *Store) RefreshCatalog(ctx context.Context) (*host.Introspection, error) {
	if s.host == nil {
		return nil, ErrNoHost
	}
	intro, err := s.host.Introspect(ctx)
	if err != nil {
		return nil, fmt.Errorf("introspect: %w", err)
	}

	s.mu.Lock()
	s.catalog = intro
	s.mu.Unlock()

	if s.loadout != nil {
		s.loadout.SetCatalog(intro)
	}
	s.logger.WithField("metrics", len(intro.Metrics)).Debug("Metric catalog refreshed")
	return intro, nil
}

// SetCatalog installs a metric catalog without asking the host.
func (s *Store) SetCatalog(intro *host.Introspection) {
	s.mu.Lock()
	s.catalog = intro
	s.mu.Unlock()

	if s.loadout != nil {
		s.loadout.SetCatalog(intro)
	}
}

// ValidateAdapter clears the selected adapter when the host no longer
// reports it.
func (s *Store) ValidateAdapter(ctx context.Context) error {
	if s.host == nil {
		return ErrNoHost
	}
	adapters, err := s.host.EnumerateAdapters(ctx)
	if err != nil {
		return fmt.Errorf("enumerate adapters: %w", err)
	}

	s.mu.Lock()
	id := s.prefs.AdapterID
	if id == nil || slices.ContainsFunc(adapters, func(a host.Adapter) bool { return a.ID == *id }) {
		s.mu.Unlock()
		return nil
	}
	s.prefs.AdapterID = nil
	s.mu.Unlock()

	s.logger.WithField("adapter", *id).Warn("Selected adapter not present; cleared")
	s.Serialize()
	return nil
}

// BuildSpecification assembles the overlay specification from the loadout
// widgets. Metrics unknown to the catalog or without any device are dropped.
// Universal metrics use device 0; adapter metrics use the selected adapter
// (1 when none is selected) and are dropped when it is unavailable. Widgets
// left without metrics are dropped.
func (s *Store) BuildSpecification() host.Spec {
	var widgets []models.Widget
	if s.loadout != nil {
		widgets = s.loadout.Widgets()
	}

	s.mu.RLock()
	prefs := s.prefs.Clone()
	catalog := s.catalog
	var pid *int
	if s.pid != nil {
		v := *s.pid
		pid = &v
	}
	s.mu.RUnlock()

	adapterID := defaultAdapterID
	if prefs.AdapterID != nil {
		adapterID = *prefs.AdapterID
	}

	out := make([]models.Widget, 0, len(widgets))
	for _, w := range widgets {
		if !w.Known() {
			continue
		}
		var kept []models.WidgetMetric
		for _, wm := range w.Metrics() {
			info, ok := catalog.Metric(wm.Metric.MetricID)
			if !ok || len(info.AvailableDeviceIDs) == 0 {
				continue
			}
			switch {
			case slices.Contains(info.AvailableDeviceIDs, 0):
				wm.Metric.DeviceID = 0
			case slices.Contains(info.AvailableDeviceIDs, adapterID):
				wm.Metric.DeviceID = adapterID
			default:
				continue
			}
			wm.Metric.DesiredUnitID = info.PreferredUnitID
			kept = append(kept, wm)
		}
		if len(kept) == 0 {
			continue
		}
		w.SetMetrics(kept)
		out = append(out, w)
	}

	return host.Spec{PID: pid, Preferences: prefs, Widgets: out}
}

// PushSpecification sends the current specification to the host.
func (s *Store) PushSpecification(ctx context.Context) error {
	if s.host == nil {
		return ErrNoHost
	}
	spec := s.BuildSpecification()
	if err := s.host.PushSpecification(ctx, spec); err != nil {
		return fmt.Errorf("push specification: %w", err)
	}
	s.logger.WithField("widgets", len(spec.Widgets)).Debug("Specification pushed")
	return nil
}
