package inference

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-detect/inference/providers"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, float32(0.75), cfg.ConfidenceThreshold)
	assert.Equal(t, float32(0.3), cfg.IoUThreshold)
	assert.False(t, cfg.ClassAwareNMS)
	assert.Equal(t, providers.ModeAccelerated, cfg.Acceleration.Mode)
	assert.Equal(t, 4, cfg.Acceleration.Threads())
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "detect.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"confidence_threshold: 0.6\nacceleration:\n  mode: cpu\n  num_threads: 2\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, float32(0.6), cfg.ConfidenceThreshold)
	assert.Equal(t, float32(0.3), cfg.IoUThreshold, "omitted fields keep their defaults")
	assert.Equal(t, providers.ModeCPU, cfg.Acceleration.Mode)
	assert.Equal(t, 2, cfg.Acceleration.Threads())
}

func TestLoadConfig_Missing(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
	assert.Equal(t, DefaultConfig(), cfg, "defaults are returned alongside the error")
}

func TestLoadConfig_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("confidence_threshold: [oops"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
