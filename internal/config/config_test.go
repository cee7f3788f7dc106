package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	require.Len(t, cfg.Stations, 1)
	assert.Equal(t, "900023201", cfg.Stations[0].ID)
	assert.Equal(t, 5, cfg.Stations[0].WalkingMinutes)
	assert.Equal(t, "window", cfg.Display.Mode)
	assert.Equal(t, 30*time.Second, cfg.RefreshInterval())
	assert.Equal(t, 10*time.Second, cfg.RotationInterval())
	assert.True(t, cfg.Filters.Suburban)
	assert.False(t, cfg.Filters.Bus)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadOverlaysYAMLOnDefaults(t *testing.T) {
	path := writeConfig(t, `
stations:
  - id: "900100003"
    name: Alexanderplatz
    walking_minutes: 8
    lines: [S5, S7]
  - id: "900120005"
display:
  mode: web
  width: 256
  height: 64
rotation:
  interval_seconds: 20
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.Stations, 2)
	assert.Equal(t, "Alexanderplatz", cfg.Stations[0].Name)
	assert.Equal(t, 8, cfg.Stations[0].WalkingMinutes)
	assert.Equal(t, []string{"S5", "S7"}, cfg.Stations[0].Lines)
	assert.Equal(t, "web", cfg.Display.Mode)
	assert.Equal(t, 256, cfg.Display.Width)
	assert.Equal(t, 20*time.Second, cfg.RotationInterval())

	// Untouched sections keep their defaults.
	assert.Equal(t, 30, cfg.Refresh.IntervalSeconds)
	assert.Equal(t, 18, cfg.Fonts.DepartureSize)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	cases := map[string]string{
		"station without id": `
stations:
  - name: Nowhere
`,
		"negative walking time": `
stations:
  - id: "900100003"
    walking_minutes: -1
`,
		"zero display size": `
display:
  width: 0
`,
		"unknown display mode": `
display:
  mode: hologram
`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "stations: ["))
	assert.Error(t, err)
}

func TestProductsMirrorsFilterToggles(t *testing.T) {
	f := FilterConfig{Suburban: true, Bus: true}
	p := f.Products()
	assert.True(t, p.Suburban)
	assert.True(t, p.Bus)
	assert.False(t, p.Subway)
	assert.False(t, p.Ferry)
}

func TestEnv(t *testing.T) {
	t.Setenv("ABFAHRT_TEST_KEY", "from-env")
	assert.Equal(t, "from-env", Env("ABFAHRT_TEST_KEY", "fallback"))
	assert.Equal(t, "fallback", Env("ABFAHRT_TEST_MISSING", "fallback"))
}
