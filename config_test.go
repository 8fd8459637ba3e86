package gan

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 32, cfg.BatchSize)
	assert.Equal(t, 100, cfg.NumEpochs)
	assert.Equal(t, 100, cfg.LatentDim)
	assert.Equal(t, 1e-4, cfg.LearnRate)
	assert.Equal(t, []int{256, 512, 1024}, cfg.Generator.Hidden)
	assert.Equal(t, []int{1024, 512, 256}, cfg.Discriminator.Hidden)
	assert.Equal(t, 0.3, cfg.Discriminator.Dropout)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gan.yaml")
	content := `
batch_size: 64
num_epochs: 5
device: accelerator
optimizer: rmsprop
learn_rate: 0.001
latent_distribution: uniform
generator:
  hidden: [16, 32]
  activation: leaky
  output_activation: tanh
`
	require.NoError(t, ioutil.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.BatchSize)
	assert.Equal(t, 5, cfg.NumEpochs)
	assert.Equal(t, DeviceAccelerator, cfg.Device)
	assert.Equal(t, "rmsprop", cfg.Optimizer)
	assert.Equal(t, "uniform", cfg.LatentDistribution)
	assert.Equal(t, []int{16, 32}, cfg.Generator.Hidden)
	// Untouched values keep defaults
	assert.Equal(t, 100, cfg.LatentDim)
	assert.Equal(t, []int{1024, 512, 256}, cfg.Discriminator.Hidden)
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	cases := map[string]string{
		"unknown key":    "batch_sise: 3\n",
		"bad device":     "device: tpu\n",
		"zero batch":     "batch_size: 0\n",
		"bad optimizer":  "optimizer: sgd9000\n",
		"bad latent":     "latent_distribution: cauchy\n",
		"negative epoch": "num_epochs: -1\n",
	}
	for name, content := range cases {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, ioutil.WriteFile(path, []byte(content), 0644))
		_, err := LoadConfig(path)
		assert.Error(t, err, name)
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.ApplyOverrides(Overrides{
		BatchSize: 8,
		Device:    "cuda",
		Seed:      3,
	}))
	assert.Equal(t, 8, cfg.BatchSize)
	assert.Equal(t, 100, cfg.NumEpochs)
	assert.Equal(t, DeviceAccelerator, cfg.Device)
	assert.Equal(t, int64(3), cfg.Seed)

	assert.Error(t, cfg.ApplyOverrides(Overrides{Device: "abacus"}))
}
