package notices_test

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/overlaycfg/internal/events"
	"github.com/TheMichaelB/overlaycfg/internal/models"
	"github.com/TheMichaelB/overlaycfg/internal/notices"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		want     string
		terminal bool
	}{
		{
			name: "terminal migration",
			err: fmt.Errorf("migrate: %w", &models.TerminalMigrationError{
				Message: "Loadout file version too old to migrate (<0.13.0).",
			}),
			want:     "Failed to load loadout. Loadout file version too old to migrate (<0.13.0).",
			terminal: true,
		},
		{
			name: "generic",
			err:  &models.FormatError{Document: "loadout", Err: errors.New("eof")},
			want: "Failed to load loadout. ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := notices.FromError("Failed to load loadout. ", tt.err)
			assert.Equal(t, tt.want, n.Text)
			assert.Equal(t, tt.terminal, n.Terminal)
			assert.False(t, n.Time.IsZero())
		})
	}
}

func TestQueue(t *testing.T) {
	q := notices.NewQueue()
	q.Notify(notices.New("one"))
	q.Notify(notices.New("two"))

	assert.Equal(t, 2, q.Len())

	drained := q.Drain()
	require.Len(t, drained, 2)
	assert.Equal(t, "one", drained[0].Text)
	assert.Equal(t, 0, q.Len())
	assert.Empty(t, q.Drain())
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := notices.NewLogNotifier(events.NewTestLogger(events.InfoLevel, "json", &buf))

	n.Notify(notices.Notice{Text: "Preferences reset", Terminal: true})

	assert.Contains(t, buf.String(), `"msg":"Preferences reset"`)
	assert.Contains(t, buf.String(), `"terminal":true`)
	assert.Contains(t, buf.String(), `"level":"warn"`)
}

func TestMulti(t *testing.T) {
	a, b := notices.NewQueue(), notices.NewQueue()
	m := notices.Multi{a, nil, b, notices.Discard{}}

	m.Notify(notices.New("x"))

	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 1, b.Len())
}
