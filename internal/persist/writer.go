// Package persist holds the load state machine and debounced write pipeline
// shared by the configuration stores.
package persist

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/TheMichaelB/overlaycfg/internal/events"
	"github.com/TheMichaelB/overlaycfg/internal/storage"
	"github.com/TheMichaelB/overlaycfg/internal/timing"
)

// State is the lifecycle stage of a store.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Outcome records how the initial load ended.
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeLoaded
	OutcomeLoadFailedReset
)

func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeLoaded:
		return "loaded"
	case OutcomeLoadFailedReset:
		return "load_failed_reset"
	default:
		return "unknown"
	}
}

// Status is a snapshot of a store's lifecycle and write counters.
type Status struct {
	State         State
	Outcome       Outcome
	LoadError     error
	Pending       bool
	Writes        int64
	WriteFailures int64
	LastWrite     time.Time
}

// EventType defines write pipeline event types.
type EventType string

const (
	EventSaved      EventType = "saved"
	EventSaveFailed EventType = "save_failed"
)

// Event reports the result of one write.
type Event struct {
	Type      EventType
	Document  string
	Timestamp time.Time
	Error     error
}

// writeTimeout bounds a single background write.
const writeTimeout = 10 * time.Second

// Writer debounces document writes to one storage location. The render
// function runs when the timer fires, so the state at fire time is what gets
// written.
type Writer struct {
	document string
	store    storage.DocumentStore
	loc      storage.Location
	path     string
	render   func() (string, error)
	delay    time.Duration
	logger   *events.Logger

	slot    timing.DebounceSlot
	writeMu sync.Mutex

	writes    atomic.Int64
	failures  atomic.Int64
	lastWrite atomic.Value // time.Time

	mu           sync.Mutex
	closed       bool
	eventsClosed bool
	events       chan Event
}

// WriterConfig configures a Writer.
type WriterConfig struct {
	Document string
	Store    storage.DocumentStore
	Location storage.Location
	Path     string
	Delay    time.Duration
	Render   func() (string, error)
}

// NewWriter creates a writer. Render must be safe to call from any goroutine.
func NewWriter(cfg WriterConfig, logger *events.Logger) *Writer {
	if logger == nil {
		logger = events.Discard()
	}
	return &Writer{
		document: cfg.Document,
		store:    cfg.Store,
		loc:      cfg.Location,
		path:     cfg.Path,
		render:   cfg.Render,
		delay:    cfg.Delay,
		logger: logger.WithFields(map[string]interface{}{
			"component": "writer",
			"document":  cfg.Document,
		}),
		events: make(chan Event, 100),
	}
}

// Events returns the write result channel. Events are dropped when the
// channel is full.
func (w *Writer) Events() <-chan Event {
	return w.events
}

// Schedule queues a write after the debounce delay, replacing any queued one.
// It never blocks on the write.
func (w *Writer) Schedule() {
	// Held across the schedule so Close cannot flush or cancel in between.
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	w.slot.Schedule(func() {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		_ = w.WriteNow(ctx)
	}, w.delay)
}

// Pending reports whether a write is queued.
func (w *Writer) Pending() bool {
	return w.slot.Pending()
}

// Cancel drops a queued write.
func (w *Writer) Cancel() bool {
	return w.slot.Cancel()
}

// Flush performs a queued write now. It reports whether a write was queued.
func (w *Writer) Flush() bool {
	return w.slot.Flush()
}

// WriteNow renders and stores the document immediately. Failures are logged
// and counted; the error is returned for callers that want it.
func (w *Writer) WriteNow(ctx context.Context) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	ctx = events.WithDocument(ctx, w.document)
	text, err := w.render()
	if err == nil {
		err = w.store.Store(ctx, text, w.loc, w.path)
	}

	if err != nil {
		w.failures.Add(1)
		w.logger.WithError(err).Error("Failed to persist document")
		w.emit(Event{Type: EventSaveFailed, Document: w.document, Timestamp: time.Now(), Error: err})
		return err
	}

	w.writes.Add(1)
	now := time.Now()
	w.lastWrite.Store(now)
	w.logger.WithFields(map[string]interface{}{
		"location": w.loc.String(),
		"path":     w.path,
		"bytes":    len(text),
	}).Debug("Persisted document")
	w.emit(Event{Type: EventSaved, Document: w.document, Timestamp: now})
	return nil
}

// Stats fills the write counters of st.
func (w *Writer) Stats(st *Status) {
	st.Pending = w.slot.Pending()
	st.Writes = w.writes.Load()
	st.WriteFailures = w.failures.Load()
	if t, ok := w.lastWrite.Load().(time.Time); ok {
		st.LastWrite = t
	}
}

// Close stops accepting writes. A queued write is flushed when flush is set
// and dropped otherwise. The events channel is closed afterwards.
func (w *Writer) Close(flush bool) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.mu.Unlock()

	if flush {
		w.slot.Flush()
	} else {
		w.slot.Cancel()
	}

	w.mu.Lock()
	w.eventsClosed = true
	close(w.events)
	w.mu.Unlock()
}

func (w *Writer) emit(event Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.eventsClosed {
		return
	}

	select {
	case w.events <- event:
	default:
		w.logger.Debug("Event channel full, dropping event")
	}
}
