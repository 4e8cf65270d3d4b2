package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/TheMichaelB/overlaycfg/internal/events"
)

// LocalStore keeps documents as files under one directory per location.
type LocalStore struct {
	roots  map[Location]string
	logger *events.Logger

	// Security settings
	allowSymlinks bool
	maxPathLength int
	maxFileSize   int64
	keepBackup    bool
}

// NewLocalStore creates the root directories and returns a store over them.
func NewLocalStore(roots map[Location]string, logger *events.Logger) (*LocalStore, error) {
	if logger == nil {
		logger = events.Discard()
	}

	abs := make(map[Location]string, len(roots))
	for loc, dir := range roots {
		if dir == "" {
			return nil, fmt.Errorf("%s directory is required", loc)
		}
		absPath, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("resolve %s directory: %w", loc, err)
		}
		if err := os.MkdirAll(absPath, 0755); err != nil {
			return nil, fmt.Errorf("create %s directory: %w", loc, err)
		}
		abs[loc] = absPath
	}

	return &LocalStore{
		roots:         abs,
		logger:        logger.WithField("component", "local_store"),
		allowSymlinks: false,
		maxPathLength: 260, // Windows compatibility
		maxFileSize:   4 * 1024 * 1024,
		keepBackup:    true,
	}, nil
}

// SetMaxFileSize sets the maximum document size.
func (s *LocalStore) SetMaxFileSize(size int64) {
	s.maxFileSize = size
}

// SetKeepBackup toggles the .backup copy written before each replace.
func (s *LocalStore) SetKeepBackup(keep bool) {
	s.keepBackup = keep
}

// Load reads a document.
func (s *LocalStore) Load(ctx context.Context, loc Location, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", wrapErr("load", loc, path, err)
	}

	safePath, err := s.sanitizePath(loc, path)
	if err != nil {
		return "", wrapErr("load", loc, path, err)
	}

	if !s.allowSymlinks {
		if stat, err := os.Lstat(safePath); err == nil && stat.Mode()&os.ModeSymlink != 0 {
			return "", wrapErr("load", loc, path, fmt.Errorf("symlinks not allowed"))
		}
	}

	data, err := os.ReadFile(safePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", wrapErr("load", loc, path, ErrNotFound)
		}
		return "", wrapErr("load", loc, path, err)
	}
	if int64(len(data)) > s.maxFileSize {
		return "", wrapErr("load", loc, path, fmt.Errorf("file too large: %d bytes (max: %d)", len(data), s.maxFileSize))
	}

	tagged(ctx, s.logger).WithFields(map[string]interface{}{
		"location": loc.String(),
		"path":     path,
		"size":     len(data),
	}).Debug("Loaded document")

	return string(data), nil
}

// Store writes a document atomically, keeping the previous version as
// <path>.backup.
func (s *LocalStore) Store(ctx context.Context, text string, loc Location, path string) error {
	if err := ctx.Err(); err != nil {
		return wrapErr("store", loc, path, err)
	}

	safePath, err := s.sanitizePath(loc, path)
	if err != nil {
		return wrapErr("store", loc, path, err)
	}

	if int64(len(text)) > s.maxFileSize {
		return wrapErr("store", loc, path, fmt.Errorf("file too large: %d bytes (max: %d)", len(text), s.maxFileSize))
	}

	tagged(ctx, s.logger).WithFields(map[string]interface{}{
		"location": loc.String(),
		"path":     path,
		"size":     len(text),
	}).Debug("Storing document")

	if err := os.MkdirAll(filepath.Dir(safePath), 0755); err != nil {
		return wrapErr("store", loc, path, fmt.Errorf("create parent directory: %w", err))
	}

	if s.keepBackup {
		if existing, err := os.ReadFile(safePath); err == nil {
			if err := os.WriteFile(safePath+".backup", existing, 0644); err != nil {
				s.logger.WithError(err).Warn("Failed to write backup")
			}
		}
	}

	tempFile, err := os.CreateTemp(filepath.Dir(safePath), filepath.Base(safePath)+".tmp.*")
	if err != nil {
		return wrapErr("store", loc, path, fmt.Errorf("create temp file: %w", err))
	}
	tempPath := tempFile.Name()

	if _, err := tempFile.WriteString(text); err != nil {
		tempFile.Close()
		_ = os.Remove(tempPath)
		return wrapErr("store", loc, path, fmt.Errorf("write temp file: %w", err))
	}
	_ = tempFile.Sync()
	tempFile.Close()

	if err := os.Chmod(tempPath, 0644); err != nil {
		s.logger.WithError(err).Debug("Failed to set document permissions")
	}

	if err := os.Rename(tempPath, safePath); err != nil {
		_ = os.Remove(tempPath)
		return wrapErr("store", loc, path, fmt.Errorf("rename temp file: %w", err))
	}

	return nil
}

// Exists reports whether a document file is present.
func (s *LocalStore) Exists(ctx context.Context, loc Location, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, wrapErr("exists", loc, path, err)
	}

	safePath, err := s.sanitizePath(loc, path)
	if err != nil {
		return false, wrapErr("exists", loc, path, err)
	}

	info, err := os.Stat(safePath)
	if err == nil {
		return !info.IsDir(), nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, wrapErr("exists", loc, path, err)
}

// List returns the slash-separated paths of the documents under loc, sorted.
// Backups and temp files left by Store are skipped.
func (s *LocalStore) List(ctx context.Context, loc Location) ([]string, error) {
	root, ok := s.roots[loc]
	if !ok {
		return nil, wrapErr("list", loc, "", fmt.Errorf("no directory configured"))
	}

	var paths []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if strings.HasSuffix(name, ".backup") || strings.Contains(name, ".tmp.") {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, wrapErr("list", loc, "", err)
	}

	sort.Strings(paths)
	return paths, nil
}

// Close is a no-op.
func (s *LocalStore) Close() error {
	return nil
}

// sanitizePath validates a document path and resolves it under its root.
func (s *LocalStore) sanitizePath(loc Location, path string) (string, error) {
	root, ok := s.roots[loc]
	if !ok {
		return "", fmt.Errorf("location %s is not configured", loc)
	}

	cleaned, err := cleanPath(path)
	if err != nil {
		return "", err
	}

	fullPath := filepath.Join(root, filepath.FromSlash(cleaned))

	if !strings.HasPrefix(fullPath, root+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid path: escapes base directory")
	}

	if len(fullPath) > s.maxPathLength {
		return "", fmt.Errorf("invalid path: too long: %d characters (max: %d)", len(fullPath), s.maxPathLength)
	}

	if err := validatePlatformPath(cleaned); err != nil {
		return "", err
	}

	return fullPath, nil
}

// validatePlatformPath checks platform-specific path restrictions.
func validatePlatformPath(path string) error {
	if runtime.GOOS != "windows" {
		return nil
	}

	reserved := []string{"CON", "PRN", "AUX", "NUL", "COM1", "COM2", "COM3", "COM4",
		"COM5", "COM6", "COM7", "COM8", "COM9", "LPT1", "LPT2", "LPT3",
		"LPT4", "LPT5", "LPT6", "LPT7", "LPT8", "LPT9"}

	for _, part := range strings.Split(path, "/") {
		upper := strings.ToUpper(strings.TrimSuffix(part, filepath.Ext(part)))
		for _, r := range reserved {
			if upper == r {
				return fmt.Errorf("invalid path: contains reserved name '%s'", part)
			}
		}
		for _, char := range `<>:"|?*` {
			if strings.ContainsRune(part, char) {
				return fmt.Errorf("invalid path: contains character '%c'", char)
			}
		}
	}
	return nil
}
