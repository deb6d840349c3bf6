package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"server_url":            "https://www.example:9000",
		"online_check_interval": "10s",
		"part_concurrency":      2,
	})

	t.Run("loads from flags", func(t *testing.T) {
		withArgs(t, "-config", pathFlag)

		cfg := &Config{Tier: "pro"}
		parseJson(cfg)

		assert.Equal(t, "https://www.example:9000", cfg.ServerURL)
		assert.Equal(t, 10*time.Second, cfg.OnlineCheckInterval)
		assert.Equal(t, 2, cfg.PartConcurrency)
		assert.Equal(t, "pro", cfg.Tier, "missing keys keep their value")
	})

	t.Run("no flags → no changes", func(t *testing.T) {
		withArgs(t)

		cfg := &Config{ServerURL: "http://defaults:1234", OnlineCheckInterval: 42 * time.Second}
		parseJson(cfg)

		assert.Equal(t, "http://defaults:1234", cfg.ServerURL)
		assert.Equal(t, 42*time.Second, cfg.OnlineCheckInterval)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))
		withArgs(t, "-config", bad)

		require.Panics(t, func() { parseJson(&Config{}) })
	})

	t.Run("missing file → panics", func(t *testing.T) {
		withArgs(t, "-c", filepath.Join(dir, "nope.json"))
		require.Panics(t, func() { parseJson(&Config{}) })
	})
}
