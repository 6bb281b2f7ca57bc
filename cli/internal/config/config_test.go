package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	return home
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	withHome(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://fclm-portal.amazon.com", cfg.BaseURL)
	assert.Equal(t, "IND8", cfg.WarehouseID)
	assert.Equal(t, 15*time.Minute, cfg.Interval())
}

func TestSaveRoundTrip(t *testing.T) {
	home := withHome(t)

	cfg := &Config{WarehouseID: "SDF8", Cookie: "a=b", WatchInterval: "30m", Notify: true}
	require.NoError(t, Save(cfg))

	info, err := os.Stat(filepath.Join(home, ".mpvwatch.yaml"))
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "SDF8", loaded.WarehouseID)
	assert.Equal(t, "a=b", loaded.Cookie)
	assert.True(t, loaded.Notify)
	assert.Equal(t, 30*time.Minute, loaded.Interval())
}

func TestInterval(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"1h", time.Hour},
		{"garbage", 15 * time.Minute},
		{"10s", 15 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, (&Config{WatchInterval: tt.in}).Interval())
		})
	}
}

func TestDatabase(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OneDrive", filepath.Join(dir, "od"))
	t.Setenv("LOCALAPPDATA", filepath.Join(dir, "local"))

	path, err := (&Config{CloudSync: true}).Database()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "od", "IND8Tracker", "indirect_tracking.db"), path)

	path, err = (&Config{}).Database()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "local", "IND8Tracker", "indirect_tracking.db"), path)

	path, err = (&Config{DBPath: "/x/y.db"}).Database()
	require.NoError(t, err)
	assert.Equal(t, "/x/y.db", path)
}
