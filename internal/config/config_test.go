package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, DefaultEnginePath, cfg.Engine.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Zero(t, cfg.Diff.SmallValue)
	assert.Zero(t, cfg.Diff.CheckPeriod)
	assert.NoError(t, cfg.Validate())
}

func TestParse_OverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
engine:
  path: "%APP%/engines/bayes-cmd"
  args: ["--quiet"]
diff:
  small_value: 0.0001
  check_period: 50
log:
  level: debug
store:
  path: transcripts.db
`))
	require.NoError(t, err)

	assert.Equal(t, "%APP%/engines/bayes-cmd", cfg.Engine.Path)
	assert.Equal(t, []string{"--quiet"}, cfg.Engine.Args)
	assert.Equal(t, 0.0001, cfg.Diff.SmallValue)
	assert.Equal(t, 50, cfg.Diff.CheckPeriod)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "transcripts.db", cfg.Store.Path)
}

func TestParse_PartialKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte("diff:\n  check_period: 10\n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultEnginePath, cfg.Engine.Path)
	assert.Equal(t, 10, cfg.Diff.CheckPeriod)
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown field", "engine:\n  pth: x\n", "failed to parse YAML"},
		{"empty path", "engine:\n  path: \"  \"\n", "engine.path is required"},
		{"negative small value", "diff:\n  small_value: -1\n", "diff.small_value"},
		{"negative period", "diff:\n  check_period: -2\n", "diff.check_period"},
		{"bad level", "log:\n  level: loud\n", "log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bayes.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine:\n  path: /opt/bayes/engine\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/opt/bayes/engine", cfg.Engine.Path)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for name, want := range tests {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}

func TestEngineConfig_Resolved(t *testing.T) {
	e := EngineConfig{
		Path: "%APP%/bin/bayes-cmd",
		Args: []string{"--lib", "%APP%/lib", "--plain"},
		Dir:  "%APP%",
	}

	got := e.Resolved("/usr/local/bayes")

	assert.Equal(t, "/usr/local/bayes/bin/bayes-cmd", got.Path)
	assert.Equal(t, []string{"--lib", "/usr/local/bayes/lib", "--plain"}, got.Args)
	assert.Equal(t, "/usr/local/bayes", got.Dir)
	assert.Equal(t, "%APP%/bin/bayes-cmd", e.Path, "original is unchanged")

	plain := EngineConfig{Path: "bayes-cmd"}.Resolved("/x")
	assert.Equal(t, "bayes-cmd", plain.Path)
	assert.Nil(t, plain.Args)
}

func TestAppDir(t *testing.T) {
	assert.NotEmpty(t, AppDir())
}
