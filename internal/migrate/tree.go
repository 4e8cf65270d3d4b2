package migrate

import (
	"encoding/json"
	"fmt"

	"github.com/TheMichaelB/overlaycfg/internal/models"
)

// Tree is a decoded JSON object. Steps work on trees rather than typed
// structs so they can read fields the current schema no longer has.
type Tree = map[string]any

// Migrator upgrades the raw text of one document family.
type Migrator interface {
	Upgrade(data []byte) ([]byte, Report, error)
}

func decodeTree(document string, data []byte) (Tree, error) {
	var tree Tree
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, &models.FormatError{Document: document, Err: err}
	}
	if tree == nil {
		return nil, &models.FormatError{Document: document, Err: fmt.Errorf("document is not an object")}
	}
	return tree, nil
}

func readSignature(document string, tree Tree) (models.Signature, error) {
	raw, ok := tree["signature"].(Tree)
	if !ok {
		return models.Signature{}, &models.FormatError{Document: document, Err: fmt.Errorf("missing signature")}
	}
	code, _ := raw["code"].(string)
	ver, _ := raw["version"].(string)
	return models.Signature{Code: models.DocumentCode(code), Version: ver}, nil
}

func stampVersion(tree Tree, ver string) {
	if sig, ok := tree["signature"].(Tree); ok {
		sig["version"] = ver
	}
}

func number(t Tree, key string) (float64, bool) {
	v, ok := t[key].(float64)
	return v, ok
}

func colorTree(c models.RgbaColor) Tree {
	return Tree{"r": float64(c.R), "g": float64(c.G), "b": float64(c.B), "a": c.A}
}
