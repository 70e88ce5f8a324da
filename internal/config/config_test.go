package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func testLoader(t *testing.T) (*Loader, string, string) {
	t.Helper()
	home := t.TempDir()
	work := filepath.Join(t.TempDir(), "project", "models")
	require.NoError(t, os.MkdirAll(work, 0o755))
	l := NewLoader(nil)
	l.home = home
	l.workDir = work
	return l, home, work
}

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	require.NoError(t, c.Validate())
	assert.False(t, c.Compiler.StrictFunctionMatching)
	assert.True(t, c.Compiler.RejectGeneralizationCycles)
	assert.True(t, c.Compiler.ValidateMappingRoots)
	assert.Equal(t, []string{"relational"}, c.Compiler.Extensions)
	assert.Equal(t, "warn", c.Logging.Level)
	assert.Equal(t, FormatText, c.Logging.Format)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad level", func(c *Config) { c.Logging.Level = "trace" }, `logging.level must be one of`},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, `logging.format must be "text" or "json", got "xml"`},
		{"unknown extension", func(c *Config) { c.Compiler.Extensions = []string{"service"} }, `unknown extension "service"`},
		{"no extensions", func(c *Config) { c.Compiler.Extensions = nil }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromFile_KeepsUnsetDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "purec.yaml")
	writeFile(t, path, "compiler:\n  strictFunctionMatching: true\n")

	c, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.True(t, c.Compiler.StrictFunctionMatching)
	assert.True(t, c.Compiler.ValidateMappingRoots)
	assert.Equal(t, "warn", c.Logging.Level)
}

func TestLoadFromFile_UnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "purec.yaml")
	writeFile(t, path, "compiler:\n  strict: true\n")

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field strict not found")
}

func TestLoadFromFile_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "purec.yaml")
	writeFile(t, path, "")

	c, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), c)
}

func TestLoad_Layers(t *testing.T) {
	l, home, work := testLoader(t)
	writeFile(t, filepath.Join(home, UserConfigDir, UserConfigFile),
		"logging:\n  level: debug\n  format: json\ncompiler:\n  validateMappingRoots: false\n")
	writeFile(t, filepath.Join(filepath.Dir(work), ProjectConfigFile),
		"logging:\n  level: info\ncompiler:\n  extensions: []\n")
	explicit := filepath.Join(t.TempDir(), "ci.yaml")
	writeFile(t, explicit, "metrics:\n  file: out.prom\n")

	c, err := l.Load(explicit)
	require.NoError(t, err)
	assert.Equal(t, "info", c.Logging.Level, "project overrides user")
	assert.Equal(t, FormatJSON, c.Logging.Format, "user value survives")
	assert.False(t, c.Compiler.ValidateMappingRoots)
	assert.Empty(t, c.Compiler.Extensions)
	assert.Equal(t, "out.prom", c.Metrics.File)
}

func TestLoad_NoFiles(t *testing.T) {
	l, _, _ := testLoader(t)
	c, err := l.Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), c)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	l, _, _ := testLoader(t)
	_, err := l.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_InvalidResult(t *testing.T) {
	l, _, work := testLoader(t)
	writeFile(t, filepath.Join(work, ProjectConfigFile), "logging:\n  format: xml\n")

	_, err := l.Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.format")
}

func TestCompilerOptions(t *testing.T) {
	c := DefaultConfig()
	c.Compiler.StrictFunctionMatching = true
	opts, err := c.CompilerOptions()
	require.NoError(t, err)
	assert.True(t, opts.StrictFunctionMatching)
	assert.True(t, opts.RejectGeneralizationCycles)
	require.Len(t, opts.Extensions, 1)
	assert.Equal(t, "relational", opts.Extensions[0].Name())
}

func TestSaveToFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	c := DefaultConfig()
	c.Metrics.File = "purec.prom"
	require.NoError(t, c.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, c, loaded)
}
