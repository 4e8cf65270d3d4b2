package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/TheMichaelB/overlaycfg/internal/config"
	"github.com/TheMichaelB/overlaycfg/internal/events"
	"github.com/TheMichaelB/overlaycfg/internal/models"
)

// DocumentStore reads and writes named text documents in a location.
type DocumentStore interface {
	// Load returns the document text. A missing document is ErrNotFound.
	Load(ctx context.Context, loc Location, path string) (string, error)

	// Store replaces the document with text.
	Store(ctx context.Context, text string, loc Location, path string) error

	// Exists reports whether the document is present.
	Exists(ctx context.Context, loc Location, path string) (bool, error)

	// Close releases resources.
	Close() error
}

// Lister is implemented by stores that can enumerate their documents.
type Lister interface {
	List(ctx context.Context, loc Location) ([]string, error)
}

// Location is a storage root.
type Location int

const (
	// LocationInstall holds read-only files shipped with the application.
	LocationInstall Location = iota

	// LocationData holds per-user application data.
	LocationData

	// LocationDocuments holds user-visible documents.
	LocationDocuments
)

func (l Location) String() string {
	switch l {
	case LocationInstall:
		return "Install"
	case LocationData:
		return "Data"
	case LocationDocuments:
		return "Documents"
	default:
		return fmt.Sprintf("Location(%d)", int(l))
	}
}

// ParseLocation maps a name (case-insensitive) to a Location.
func ParseLocation(s string) (Location, error) {
	switch strings.ToLower(s) {
	case "install":
		return LocationInstall, nil
	case "data":
		return LocationData, nil
	case "documents":
		return LocationDocuments, nil
	}
	return 0, fmt.Errorf("unknown location %q", s)
}

// Well-known document paths.
const (
	PreferencesPath   = "preferences.json"
	CustomLoadoutPath = "Loadouts/custom-auto.json"
	BlocklistPath     = "TargetBlockList.txt"
)

// PresetPath returns the install-relative path of a preset slot.
func PresetPath(slot int) string {
	return fmt.Sprintf("Presets/slot-%d.json", slot+1)
}

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = fmt.Errorf("document not found: %w", models.ErrIO)

// Open returns the backend selected by cfg.
func Open(cfg *config.StorageConfig, logger *events.Logger) (DocumentStore, error) {
	switch cfg.Backend {
	case "sqlite":
		return NewSQLiteStore(cfg.SQLitePath, logger)
	case "file", "":
		store, err := NewLocalStore(map[Location]string{
			LocationInstall:   cfg.InstallDir,
			LocationData:      cfg.DataDir,
			LocationDocuments: cfg.DocumentsDir,
		}, logger)
		if err != nil {
			return nil, err
		}
		if cfg.MaxFileSize > 0 {
			store.SetMaxFileSize(cfg.MaxFileSize)
		}
		store.SetKeepBackup(cfg.KeepBackup)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}

// cleanPath normalizes a document path to slash form relative to its
// location. Backslash separators are accepted.
func cleanPath(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("invalid path: empty")
	}
	if strings.ContainsRune(p, 0) {
		return "", fmt.Errorf("invalid path: contains null bytes")
	}

	p = strings.ReplaceAll(p, `\`, "/")
	cleaned := path.Clean("/" + p)
	for _, part := range strings.Split(p, "/") {
		if part == ".." {
			return "", fmt.Errorf("invalid path: contains '..'")
		}
	}

	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("invalid path: %q names no document", p)
	}
	return cleaned, nil
}

// tagged adds the document and session carried by ctx to logger.
func tagged(ctx context.Context, logger *events.Logger) *events.Logger {
	if name := events.GetDocument(ctx); name != "" {
		logger = logger.WithField("document", name)
	}
	if id := events.GetSession(ctx); id != "" {
		logger = logger.WithField("session_id", id)
	}
	return logger
}

func wrapErr(op string, loc Location, p string, err error) error {
	return &models.StorageError{Op: op, Location: loc.String(), Path: p, Err: err}
}
