package storage

import (
	"context"
	"sort"
	"strings"

	"github.com/TheMichaelB/overlaycfg/internal/events"
)

// DebugBlocklistPath is the install-relative block list used in development.
const DebugBlocklistPath = "BlockLists/TargetBlockList.txt"

// Blocklist is a set of process names excluded from auto-targeting.
type Blocklist struct {
	names map[string]struct{}
}

// ParseBlocklist builds a block list from newline separated names. Names are
// kept in lower case; blank lines are skipped.
func ParseBlocklist(text string) *Blocklist {
	b := &Blocklist{names: make(map[string]struct{})}
	for _, line := range strings.Split(text, "\n") {
		line = strings.ToLower(strings.TrimSpace(line))
		if line != "" {
			b.names[line] = struct{}{}
		}
	}
	return b
}

// IsBlocked reports whether process is on the list, ignoring case.
func (b *Blocklist) IsBlocked(process string) bool {
	if b == nil {
		return false
	}
	_, ok := b.names[strings.ToLower(process)]
	return ok
}

// Names returns the listed names in sorted order.
func (b *Blocklist) Names() []string {
	if b == nil {
		return nil
	}
	out := make([]string, 0, len(b.names))
	for n := range b.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of listed names.
func (b *Blocklist) Len() int {
	if b == nil {
		return 0
	}
	return len(b.names)
}

// LoadBlocklist reads the target block list. With debug set only the
// development list is tried. Otherwise a user list in Data wins over the
// shipped one in Install. When nothing loads the list is empty.
func LoadBlocklist(ctx context.Context, store DocumentStore, debug bool, logger *events.Logger) *Blocklist {
	if logger == nil {
		logger = events.Discard()
	}
	logger = logger.WithField("component", "blocklist")

	type candidate struct {
		loc  Location
		path string
	}
	var candidates []candidate
	if debug {
		candidates = []candidate{{LocationInstall, DebugBlocklistPath}}
	} else {
		candidates = []candidate{{LocationData, BlocklistPath}, {LocationInstall, BlocklistPath}}
	}

	for _, c := range candidates {
		text, err := store.Load(ctx, c.loc, c.path)
		if err != nil {
			logger.WithFields(map[string]interface{}{
				"location": c.loc.String(),
				"path":     c.path,
			}).WithError(err).Debug("Block list not loaded")
			continue
		}
		b := ParseBlocklist(text)
		logger.WithFields(map[string]interface{}{
			"location": c.loc.String(),
			"entries":  b.Len(),
		}).Debug("Loaded block list")
		return b
	}

	logger.Warn("Failed to load a block list")
	return ParseBlocklist("")
}
