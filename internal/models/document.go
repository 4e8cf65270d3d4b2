package models

import (
	"encoding/json"
	"fmt"
)

// DocumentIndent is the indentation used for every persisted document.
const DocumentIndent = "   "

// LoadoutFile is the persisted form of a loadout.
type LoadoutFile struct {
	Signature Signature `json:"signature"`
	Widgets   []Widget  `json:"widgets"`
}

// PreferenceFile is the persisted form of preferences and hotkey bindings.
type PreferenceFile struct {
	Signature      Signature          `json:"signature"`
	Preferences    Preferences        `json:"preferences"`
	HotkeyBindings map[string]Binding `json:"hotkeyBindings"`
}

// DecodeLoadoutFile decodes a loadout document one widget at a time. A
// widget that fails to decode is left out and reported as a *VariantError;
// only a malformed envelope fails the whole document.
func DecodeLoadoutFile(data []byte) (LoadoutFile, []error, error) {
	var raw struct {
		Signature Signature         `json:"signature"`
		Widgets   []json.RawMessage `json:"widgets"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return LoadoutFile{}, nil, err
	}

	file := LoadoutFile{Signature: raw.Signature, Widgets: make([]Widget, 0, len(raw.Widgets))}
	var skipped []error
	for i, elem := range raw.Widgets {
		var w Widget
		if err := json.Unmarshal(elem, &w); err != nil {
			skipped = append(skipped, &VariantError{Index: i, Tag: "none", Err: err})
			continue
		}
		file.Widgets = append(file.Widgets, w)
	}
	return file, skipped, nil
}

// NewLoadoutFile stamps widgets with the current loadout signature.
func NewLoadoutFile(widgets []Widget) LoadoutFile {
	if widgets == nil {
		widgets = []Widget{}
	}
	return LoadoutFile{Signature: LoadoutSignature(), Widgets: widgets}
}

// NewPreferenceFile stamps prefs and bindings with the current signature.
func NewPreferenceFile(prefs Preferences, bindings map[string]Binding) PreferenceFile {
	if bindings == nil {
		bindings = map[string]Binding{}
	}
	return PreferenceFile{
		Signature:      PreferencesSignature(),
		Preferences:    prefs,
		HotkeyBindings: bindings,
	}
}

// MarshalDocument renders v the way documents are stored on disk.
func MarshalDocument(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", DocumentIndent)
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	return string(data), nil
}

// PeekSignature reads only the signature of a document.
func PeekSignature(text string) (Signature, error) {
	var head struct {
		Signature *Signature `json:"signature"`
	}
	if err := json.Unmarshal([]byte(text), &head); err != nil {
		return Signature{}, &FormatError{Document: "document", Err: err}
	}
	if head.Signature == nil {
		return Signature{}, &FormatError{Document: "document", Err: fmt.Errorf("missing signature")}
	}
	return *head.Signature, nil
}
