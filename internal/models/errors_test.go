package models_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/TheMichaelB/overlaycfg/internal/models"
)

func TestFormatError(t *testing.T) {
	tests := []struct {
		name string
		err  *models.FormatError
		want string
	}{
		{
			name: "code mismatch",
			err: &models.FormatError{
				Document: "loadout",
				Expected: models.LoadoutCode,
				Actual:   models.PreferencesCode,
			},
			want: "bad loadout file format; expect:p2c-cap-load actual:p2c-cap-pref",
		},
		{
			name: "parse failure",
			err: &models.FormatError{
				Document: "preferences",
				Err:      errors.New("unexpected end of JSON input"),
			},
			want: "bad preferences file format: unexpected end of JSON input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
			assert.ErrorIs(t, tt.err, models.ErrBadFormat)
		})
	}
}

func TestVersionError(t *testing.T) {
	err := &models.VersionError{Document: "loadout", Version: "0.14.0", Current: "0.13.0"}

	assert.Equal(t, "loadout file version 0.14.0 is newer than supported version 0.13.0", err.Error())
	assert.ErrorIs(t, err, models.ErrFutureVersion)
	assert.NotErrorIs(t, err, models.ErrBadFormat)
}

func TestTerminalMigrationError(t *testing.T) {
	base := &models.TerminalMigrationError{
		Document: "loadout",
		Target:   "0.13.0",
		Message:  "Loadout file version too old to migrate (<0.13.0).",
	}
	wrapped := fmt.Errorf("migrate widget #0: %w", base)

	assert.ErrorIs(t, wrapped, models.ErrTooOldToMigrate)

	msg, ok := models.TerminalMessage(wrapped)
	assert.True(t, ok)
	assert.Equal(t, "Loadout file version too old to migrate (<0.13.0).", msg)

	_, ok = models.TerminalMessage(errors.New("plain"))
	assert.False(t, ok)
}

func TestVariantError(t *testing.T) {
	err := &models.VariantError{Index: 3, Tag: "7"}

	assert.Equal(t, "widget #3: unrecognized widget type 7", err.Error())
	assert.ErrorIs(t, err, models.ErrUnrecognizedVariant)
	assert.True(t, models.IsRecoverable(err))
	assert.False(t, models.IsRecoverable(&models.TerminalMigrationError{Message: "x"}))
}

func TestStorageError(t *testing.T) {
	cause := errors.New("permission denied")
	err := &models.StorageError{Op: "load", Location: "Documents", Path: "preferences.json", Err: cause}

	assert.Equal(t, "load Documents:preferences.json: permission denied", err.Error())
	assert.ErrorIs(t, err, models.ErrIO)
	assert.ErrorIs(t, err, cause)
}
