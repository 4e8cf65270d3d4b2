package models

// DocumentCode identifies a document family.
type DocumentCode string

const (
	LoadoutCode     DocumentCode = "p2c-cap-load"
	PreferencesCode DocumentCode = "p2c-cap-pref"
)

// Current schema revisions.
const (
	LoadoutVersion     = "0.13.0"
	PreferencesVersion = "0.19.0"
)

// Signature stamps a persisted document with its family and schema revision.
type Signature struct {
	Code    DocumentCode `json:"code"`
	Version string       `json:"version"`
}

// LoadoutSignature is written into every saved loadout.
func LoadoutSignature() Signature {
	return Signature{Code: LoadoutCode, Version: LoadoutVersion}
}

// PreferencesSignature is written into every saved preferences file.
func PreferencesSignature() Signature {
	return Signature{Code: PreferencesCode, Version: PreferencesVersion}
}

// DocumentName is the human readable family name used in errors and logs.
func (c DocumentCode) DocumentName() string {
	switch c {
	case LoadoutCode:
		return "loadout"
	case PreferencesCode:
		return "preferences"
	default:
		return "unknown"
	}
}
