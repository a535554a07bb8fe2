package cmd

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	flags := &cmdFlags{}

	cfg, err := loadConfig(flags)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Defaults.ResultsMaxInventory)
	assert.Equal(t, 10, cfg.Defaults.ResultsMaxContent)
	assert.Equal(t, "stdio", cfg.Server.Transport)
}

func TestLoadConfigRejectsPackageExtension(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/config.yaml"

	content := "extensions:\n  - name: custom\n    package: some/plugin\n    enabled: true\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	flags := &cmdFlags{ConfigPath: path}

	_, err := loadConfig(flags)
	assert.Error(t, err)
}
