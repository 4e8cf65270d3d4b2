package models

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	ErrBadFormat           = errors.New("bad file format")
	ErrFutureVersion       = errors.New("document version newer than supported")
	ErrTooOldToMigrate     = errors.New("document version too old to migrate")
	ErrUnrecognizedVariant = errors.New("unrecognized variant")
	ErrIO                  = errors.New("io failure")
)

// FormatError reports a document that is not valid JSON or carries the
// signature code of another document family.
type FormatError struct {
	Document string
	Expected DocumentCode
	Actual   DocumentCode
	Err      error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bad %s file format: %v", e.Document, e.Err)
	}
	return fmt.Sprintf("bad %s file format; expect:%s actual:%s", e.Document, e.Expected, e.Actual)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

func (e *FormatError) Is(target error) bool {
	return target == ErrBadFormat
}

// VersionError reports a document written by a newer schema revision.
type VersionError struct {
	Document string
	Version  string
	Current  string
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("%s file version %s is newer than supported version %s",
		e.Document, e.Version, e.Current)
}

func (e *VersionError) Is(target error) bool {
	return target == ErrFutureVersion
}

// TerminalMigrationError is raised by a migration step when the gap between
// the document and the step cannot be bridged. Message is shown to the user.
type TerminalMigrationError struct {
	Document string
	Target   string
	Message  string
}

func (e *TerminalMigrationError) Error() string {
	return e.Message
}

func (e *TerminalMigrationError) Is(target error) bool {
	return target == ErrTooOldToMigrate
}

// VariantError reports a widget whose type tag no ladder handles. It is
// recoverable: the element is dropped and the rest of the document loads.
type VariantError struct {
	Index int
	Tag   string
	Err   error
}

func (e *VariantError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("widget #%d: unrecognized widget type %s: %v", e.Index, e.Tag, e.Err)
	}
	return fmt.Sprintf("widget #%d: unrecognized widget type %s", e.Index, e.Tag)
}

func (e *VariantError) Unwrap() error {
	return e.Err
}

func (e *VariantError) Is(target error) bool {
	return target == ErrUnrecognizedVariant
}

// StorageError wraps failures from a document store.
type StorageError struct {
	Op       string
	Location string
	Path     string
	Err      error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s:%s: %v", e.Op, e.Location, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Is(target error) bool {
	return target == ErrIO
}

// TerminalMessage returns the user-facing message of a terminal migration
// error anywhere in err's chain.
func TerminalMessage(err error) (string, bool) {
	var terr *TerminalMigrationError
	if errors.As(err, &terr) {
		return terr.Message, true
	}
	return "", false
}

// IsRecoverable reports whether err only affects a single element of a
// document.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrUnrecognizedVariant)
}
