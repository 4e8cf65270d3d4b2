package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/TheMichaelB/overlaycfg/internal/events"
	"github.com/TheMichaelB/overlaycfg/internal/storage"
)

func TestParseBlocklist(t *testing.T) {
	b := storage.ParseBlocklist("dwm.exe\r\n\n  Explorer.exe  \ndwm.exe\n")

	assert.Equal(t, 2, b.Len())
	assert.Equal(t, []string{"dwm.exe", "explorer.exe"}, b.Names())
	assert.True(t, b.IsBlocked("DWM.EXE"))
	assert.False(t, b.IsBlocked("game.exe"))
}

func TestLoadBlocklist(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		seed  func(m *storage.MockStore)
		debug bool
		want  []string
	}{
		{
			name: "data overrides install",
			seed: func(m *storage.MockStore) {
				m.Put(storage.LocationData, storage.BlocklistPath, "user.exe")
				m.Put(storage.LocationInstall, storage.BlocklistPath, "shipped.exe")
			},
			want: []string{"user.exe"},
		},
		{
			name: "install fallback",
			seed: func(m *storage.MockStore) {
				m.Put(storage.LocationInstall, storage.BlocklistPath, "shipped.exe")
			},
			want: []string{"shipped.exe"},
		},
		{
			name: "debug list only",
			seed: func(m *storage.MockStore) {
				m.Put(storage.LocationData, storage.BlocklistPath, "user.exe")
				m.Put(storage.LocationInstall, storage.DebugBlocklistPath, "debug.exe")
			},
			debug: true,
			want:  []string{"debug.exe"},
		},
		{
			name: "nothing available",
			seed: func(m *storage.MockStore) {},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := storage.NewMockStore()
			tt.seed(m)

			b := storage.LoadBlocklist(ctx, m, tt.debug, events.Discard())
			assert.Equal(t, tt.want, b.Names())
		})
	}
}
