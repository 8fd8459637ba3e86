package gan

import (
	"fmt"
	"io/ioutil"
	"strings"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gopkg.in/yaml.v2"
)

// NetworkConfig Architecture of MLP part of GAN
//
// Hidden - number of units in each hidden layer
// Activation - activation of hidden layers (see ActivationByName)
// OutputActivation - activation of last layer
// Dropout - dropout probability after each hidden layer (discriminator only)
//
type NetworkConfig struct {
	Hidden           []int   `yaml:"hidden"`
	Activation       string  `yaml:"activation"`
	OutputActivation string  `yaml:"output_activation"`
	Dropout          float64 `yaml:"dropout"`
}

// Config Knobs of single training run
type Config struct {
	BatchSize          int           `yaml:"batch_size"`
	NumEpochs          int           `yaml:"num_epochs"`
	Device             Device        `yaml:"device"`
	Seed               int64         `yaml:"seed"`
	LatentDim          int           `yaml:"latent_dim"`
	LatentDistribution string        `yaml:"latent_distribution"`
	Optimizer          string        `yaml:"optimizer"`
	LearnRate          float64       `yaml:"learn_rate"`
	GridSize           int           `yaml:"grid_size"`
	LogEvery           int           `yaml:"log_every"`
	AbortOnNonFinite   bool          `yaml:"abort_on_non_finite"`
	Generator          NetworkConfig `yaml:"generator"`
	Discriminator      NetworkConfig `yaml:"discriminator"`
}

// Overrides Values provided from command line. Zero values are ignored
type Overrides struct {
	BatchSize int
	NumEpochs int
	Device    string
	Seed      int64
	LearnRate float64
	LogEvery  int
}

// DefaultConfig Returns configuration for 28x28 images (MNIST) with Adam optimizer
func DefaultConfig() Config {
	return Config{
		BatchSize:          32,
		NumEpochs:          100,
		Device:             DeviceCPU,
		Seed:               42,
		LatentDim:          100,
		LatentDistribution: LatentNormal.String(),
		Optimizer:          "adam",
		LearnRate:          1e-4,
		GridSize:           16,
		LogEvery:           100,
		Generator: NetworkConfig{
			Hidden:           []int{256, 512, 1024},
			Activation:       "relu",
			OutputActivation: "tanh",
		},
		Discriminator: NetworkConfig{
			Hidden:           []int{1024, 512, 256},
			Activation:       "relu",
			OutputActivation: "sigmoid",
			Dropout:          0.3,
		},
	}
}

// LoadConfig Reads YAML file on top of DefaultConfig() and validates result
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "Can't read config file")
	}
	if err = yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, errors.Wrap(err, "Can't parse config file")
	}
	if err = cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyOverrides Updates configuration using any non-zero override
func (cfg *Config) ApplyOverrides(o Overrides) error {
	if o.BatchSize > 0 {
		cfg.BatchSize = o.BatchSize
	}
	if o.NumEpochs > 0 {
		cfg.NumEpochs = o.NumEpochs
	}
	if o.Device != "" {
		device, err := ParseDevice(o.Device)
		if err != nil {
			return err
		}
		cfg.Device = device
	}
	if o.Seed != 0 {
		cfg.Seed = o.Seed
	}
	if o.LearnRate > 0 {
		cfg.LearnRate = o.LearnRate
	}
	if o.LogEvery > 0 {
		cfg.LogEvery = o.LogEvery
	}
	return nil
}

// Validate Verifies configuration is runnable
func (cfg Config) Validate() error {
	if cfg.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be > 0 (got %d)", cfg.BatchSize)
	}
	if cfg.NumEpochs <= 0 {
		return fmt.Errorf("num_epochs must be > 0 (got %d)", cfg.NumEpochs)
	}
	if cfg.Device != DeviceCPU && cfg.Device != DeviceAccelerator {
		return fmt.Errorf("device %s is not supported", cfg.Device)
	}
	if cfg.LatentDim <= 0 {
		return fmt.Errorf("latent_dim must be > 0 (got %d)", cfg.LatentDim)
	}
	if _, err := ParseLatentDistribution(cfg.LatentDistribution); err != nil {
		return err
	}
	if cfg.LearnRate <= 0 {
		return fmt.Errorf("learn_rate must be > 0 (got %v)", cfg.LearnRate)
	}
	if cfg.GridSize < 0 {
		return fmt.Errorf("grid_size must be >= 0 (got %d)", cfg.GridSize)
	}
	if _, err := newSolver(cfg.Optimizer, cfg.LearnRate); err != nil {
		return err
	}
	return nil
}

// newSolver Creates solver by name. Each network gets its own instance since solvers keep per-parameter state
func newSolver(name string, learnRate float64) (gorgonia.Solver, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "adam":
		return gorgonia.NewAdamSolver(gorgonia.WithLearnRate(learnRate)), nil
	case "rmsprop":
		return gorgonia.NewRMSPropSolver(gorgonia.WithLearnRate(learnRate)), nil
	default:
		return nil, fmt.Errorf("Optimizer '%s' is not supported", name)
	}
}
