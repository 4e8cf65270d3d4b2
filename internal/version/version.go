// Package version parses and orders the dotted schema versions stamped into
// persisted documents. A version is one to three dot-separated non-negative
// integers; missing trailing components are implied zeros, so "1.2" and
// "1.2.0" are the same version.
package version

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/mod/semver"
)

// ErrInvalidVersionFormat is returned for strings that are not 1-3 numeric components.
var ErrInvalidVersionFormat = errors.New("invalid version format")

var pattern = regexp.MustCompile(`^(\d+\.)?(\d+\.)?(\d+)$`)

// IsValid reports whether s is a well-formed version string.
func IsValid(s string) bool {
	return pattern.MatchString(s)
}

// Compare returns a positive number if a > b, negative if a < b and zero if
// they are equal. Components are compared as integers of any length.
func Compare(a, b string) (int, error) {
	ca, err := canonical(a)
	if err != nil {
		return 0, err
	}
	cb, err := canonical(b)
	if err != nil {
		return 0, err
	}
	return semver.Compare(ca, cb), nil
}

// MustCompare is Compare for versions known to be valid, such as constants.
func MustCompare(a, b string) int {
	c, err := Compare(a, b)
	if err != nil {
		panic(err)
	}
	return c
}

// Normalize pads s to three components and strips leading zeros.
func Normalize(s string) (string, error) {
	c, err := canonical(s)
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(c, "v"), nil
}

// canonical rewrites s as a semver string ("vX.Y.Z") with no leading zeros,
// which is the only form semver.Compare accepts.
func canonical(s string) (string, error) {
	if !IsValid(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidVersionFormat, s)
	}

	parts := strings.Split(s, ".")
	for len(parts) < 3 {
		parts = append(parts, "0")
	}
	for i, p := range parts {
		p = strings.TrimLeft(p, "0")
		if p == "" {
			p = "0"
		}
		parts[i] = p
	}

	return "v" + strings.Join(parts, "."), nil
}
