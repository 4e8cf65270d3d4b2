package events_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/TheMichaelB/overlaycfg/internal/events"
)

func TestFromContext(t *testing.T) {
	logger := events.FromContext(context.Background())
	assert.NotNil(t, logger)
}

func TestWithLogger(t *testing.T) {
	logger := &events.Logger{}

	ctx := events.WithLogger(context.Background(), logger)

	assert.Equal(t, logger, events.FromContext(ctx))
}

func TestWithDocument(t *testing.T) {
	var buf bytes.Buffer
	ctx := events.WithLogger(context.Background(), events.NewTestLogger(events.InfoLevel, "json", &buf))

	ctx = events.WithDocument(ctx, "preferences")
	assert.Equal(t, "preferences", events.GetDocument(ctx))

	events.FromContext(ctx).Info("loaded")
	assert.Contains(t, buf.String(), `"document":"preferences"`)
}

func TestWithSession(t *testing.T) {
	ctx := events.WithSession(context.Background(), "sess-1")

	assert.Equal(t, "sess-1", events.GetSession(ctx))
	assert.Empty(t, events.GetDocument(ctx))
}
