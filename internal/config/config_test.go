package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMainConfigMissingDefaultFileUsesDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := LoadMainConfig(DefaultConfigFile)
	require.NoError(t, err)

	assert.Equal(t, "./InputDIR", cfg.InputDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "Entry tracking ID", cfg.Pickup.Sheet)
	assert.Len(t, cfg.Returns.Sources, 4)
	assert.Equal(t, "D", cfg.Pickup.ColumnLetters["Flipkart KC"])
	require.NotNil(t, cfg.Cancellation.FlipkartCancel.Type.Index)
	assert.Equal(t, 5, *cfg.Cancellation.FlipkartCancel.Type.Index)
}

func TestLoadMainConfigExplicitMissingFileFails(t *testing.T) {
	chdir(t, t.TempDir())

	_, err := LoadMainConfig("nope.yaml")
	require.Error(t, err)
}

func TestLoadMainConfigOverlaysYAML(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	yml := `
input_dir: ./in
log_level: debug
pdf:
  cell_gap: 12
cancellation:
  flipkart_cancel:
    type:
      name: Reason Type
      index: 6
pickup:
  column_letters:
    Others: J
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "recon.yaml"), []byte(yml), 0644))

	cfg, err := LoadMainConfig("recon.yaml")
	require.NoError(t, err)

	assert.Equal(t, "./in", cfg.InputDir)
	assert.Equal(t, "./OutputDIR", cfg.OutputDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 12.0, cfg.PDF.CellGap)
	assert.Equal(t, 3, cfg.PDF.MinTableColumns)
	assert.Equal(t, "Reason Type", cfg.Cancellation.FlipkartCancel.Type.Name)
	assert.Equal(t, 6, *cfg.Cancellation.FlipkartCancel.Type.Index)
	assert.Equal(t, "J", cfg.Pickup.ColumnLetters["Others"])
	assert.Equal(t, "A", cfg.Pickup.ColumnLetters["Sellerflex"])
}

func TestLoadMainConfigEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("RECON_TEMPLATE_DIR=/from/dotenv\n"), 0644))
	t.Setenv("RECON_OUTPUT_DIR", "/from/env")
	t.Cleanup(func() { os.Unsetenv("RECON_TEMPLATE_DIR") })

	cfg, err := LoadMainConfig(DefaultConfigFile)
	require.NoError(t, err)

	assert.Equal(t, "/from/env", cfg.OutputDir)
	assert.Equal(t, "/from/dotenv", cfg.TemplateDir)
}

func TestColumnRefLabel(t *testing.T) {
	assert.Equal(t, "SKU", ColumnRef{Name: "SKU"}.Label())
	assert.Equal(t, "column #3", ColumnRef{Index: at(3)}.Label())
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains: it changes
// the working directory and restores the original one when the test ends.
func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(orig) })
}
