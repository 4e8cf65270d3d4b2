package main

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/TheMichaelB/overlaycfg/internal/events"
	"github.com/TheMichaelB/overlaycfg/internal/migrate"
	"github.com/TheMichaelB/overlaycfg/internal/models"
	"github.com/TheMichaelB/overlaycfg/internal/version"
)

// documentInfo summarizes a configuration document.
type documentInfo struct {
	Document   string `json:"document"`
	Code       string `json:"code"`
	Version    string `json:"version"`
	Normalized string `json:"normalized,omitempty"`
	Current    string `json:"current"`
	Status     string `json:"status"`
}

// Document statuses.
const (
	statusCurrent        = "current"
	statusNeedsMigration = "needs_migration"
	statusTooNew         = "newer_than_supported"
	statusInvalidVersion = "invalid_version"
)

// inspectDocument reads the signature of text and compares its version with
// the supported one.
func inspectDocument(text string) (documentInfo, error) {
	sig, err := models.PeekSignature(text)
	if err != nil {
		return documentInfo{}, err
	}

	var current string
	switch sig.Code {
	case models.LoadoutCode:
		current = models.LoadoutVersion
	case models.PreferencesCode:
		current = models.PreferencesVersion
	default:
		return documentInfo{}, &models.FormatError{Document: "document", Actual: sig.Code}
	}

	info := documentInfo{
		Document: sig.Code.DocumentName(),
		Code:     string(sig.Code),
		Version:  sig.Version,
		Current:  current,
	}

	if normalized, err := version.Normalize(sig.Version); err == nil {
		info.Normalized = normalized
	}

	cmp, err := version.Compare(sig.Version, current)
	switch {
	case err != nil:
		info.Status = statusInvalidVersion
	case cmp == 0:
		info.Status = statusCurrent
	case cmp < 0:
		info.Status = statusNeedsMigration
	default:
		info.Status = statusTooNew
	}
	return info, nil
}

// migratorFor picks the migrator matching the document code.
func migratorFor(code models.DocumentCode, logger *events.Logger) (migrate.Migrator, error) {
	switch code {
	case models.LoadoutCode:
		return migrate.NewLoadoutMigrator(logger), nil
	case models.PreferencesCode:
		return migrate.NewPreferencesMigrator(logger), nil
	default:
		return nil, &models.FormatError{Document: "document", Actual: code}
	}
}

// migrateDocument upgrades text to the current version and returns it in
// the on-disk layout. A current document comes back unchanged.
func migrateDocument(text string, logger *events.Logger) (string, migrate.Report, error) {
	sig, err := models.PeekSignature(text)
	if err != nil {
		return "", migrate.Report{}, err
	}
	m, err := migratorFor(sig.Code, logger)
	if err != nil {
		return "", migrate.Report{}, err
	}

	out, report, err := m.Upgrade([]byte(text))
	if err != nil {
		return "", report, err
	}
	if report.NoOp {
		return text, report, nil
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, out, "", models.DocumentIndent); err != nil {
		return "", report, fmt.Errorf("format migrated document: %w", err)
	}
	return buf.String(), report, nil
}
