package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFile(t *testing.T) {
	nonExistentPath := filepath.Join(t.TempDir(), "non-existent.toml")

	// Should NOT return error, but use defaults
	cfg, err := LoadConfig(nonExistentPath)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "sreport", cfg.Sreport.Command)
	assert.Equal(t, 4, cfg.Sreport.HeaderLines)
	assert.Equal(t, 5, cfg.Sreport.Column)
	assert.Equal(t, "Used", cfg.Sreport.ColumnName)
	assert.Equal(t, 1, cfg.Workers)
	// nothing is persisted unless asked for
	assert.False(t, cfg.History)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `workers = 4
database = "/tmp/su.db"
history = true

[sreport]
command = "/opt/slurm/bin/sreport"
cluster = "hpc1"
header_lines = 5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Workers)
	assert.True(t, cfg.History)
	assert.Equal(t, "/opt/slurm/bin/sreport", cfg.Sreport.Command)
	assert.Equal(t, "hpc1", cfg.Sreport.Cluster)
	assert.Equal(t, 5, cfg.Sreport.HeaderLines)
	// Untouched keys keep their defaults
	assert.Equal(t, 5, cfg.Sreport.Column)
	assert.Equal(t, "/tmp/su.db", cfg.GetDatabasePath())
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("SU_USAGE_WORKERS", "8")
	t.Setenv("SU_USAGE_SREPORT_CLUSTER", "gpu")
	t.Setenv("SU_USAGE_HISTORY", "true")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, "gpu", cfg.Sreport.Cluster)
	assert.True(t, cfg.History)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"negative header lines", "[sreport]\nheader_lines = -1\n"},
		{"zero workers", "workers = 0\n"},
		{"empty command", "[sreport]\ncommand = \"\"\n"},
		{"bad log level", "log_level = \"loud\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}
