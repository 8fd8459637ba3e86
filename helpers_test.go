package gan

import (
	"io"
	"math/rand"

	"gorgonia.org/tensor"
)

// memorySource Serves predefined batch sizes of random samples. Size 0 is served as empty batch
type memorySource struct {
	sampleShape []int
	sizes       []int
	seed        int64
	rng         *rand.Rand
	pos         int
	resets      int
	failAt      int
	failErr     error
	resetErr    error
}

func newMemorySource(sampleShape []int, sizes ...int) *memorySource {
	return &memorySource{
		sampleShape: sampleShape,
		sizes:       sizes,
		seed:        99,
		failAt:      -1,
	}
}

func (s *memorySource) SampleShape() []int {
	return s.sampleShape
}

func (s *memorySource) Reset() error {
	if s.resetErr != nil {
		return s.resetErr
	}
	s.pos = 0
	s.resets++
	// Same data every pass so runs are comparable
	s.rng = rand.New(rand.NewSource(s.seed))
	return nil
}

func (s *memorySource) Next() (Batch, error) {
	if s.pos == s.failAt {
		return Batch{}, s.failErr
	}
	if s.pos >= len(s.sizes) {
		return Batch{}, io.EOF
	}
	size := s.sizes[s.pos]
	s.pos++
	if size == 0 {
		return Batch{}, nil
	}
	return Batch{Samples: randomSamples(s.rng, size, s.sampleShape)}, nil
}

func randomSamples(rng *rand.Rand, batchSize int, sampleShape []int) *tensor.Dense {
	shp := append([]int{batchSize}, sampleShape...)
	backing := make([]float64, tensor.Shape(shp).TotalSize())
	for i := range backing {
		backing[i] = 2*rng.Float64() - 1
	}
	return tensor.New(tensor.WithShape(shp...), tensor.WithBacking(backing))
}

func testConfig() Config {
	return Config{
		BatchSize:          4,
		NumEpochs:          1,
		Device:             DeviceCPU,
		Seed:               7,
		LatentDim:          3,
		LatentDistribution: "normal",
		Optimizer:          "adam",
		LearnRate:          1e-3,
		GridSize:           4,
		LogEvery:           1,
		Generator: NetworkConfig{
			Hidden:           []int{8},
			Activation:       "relu",
			OutputActivation: "tanh",
		},
		Discriminator: NetworkConfig{
			Hidden:           []int{8},
			Activation:       "relu",
			OutputActivation: "sigmoid",
		},
	}
}

func testGAN(sampleShape []int) (*GAN, error) {
	return testGANFromConfig(testConfig(), sampleShape)
}

func testGANFromConfig(cfg Config, sampleShape []int) (*GAN, error) {
	rng := rand.New(rand.NewSource(cfg.Seed))
	generator, err := NewGenerator(rng, cfg.LatentDim, sampleShape, cfg.Generator)
	if err != nil {
		return nil, err
	}
	discriminator, err := NewDiscriminator(rng, sampleShape, cfg.Discriminator)
	if err != nil {
		return nil, err
	}
	gSolver, err := newSolver(cfg.Optimizer, cfg.LearnRate)
	if err != nil {
		return nil, err
	}
	dSolver, err := newSolver(cfg.Optimizer, cfg.LearnRate)
	if err != nil {
		return nil, err
	}
	latent := NewLatentSampler(rand.New(rand.NewSource(cfg.Seed+1)), cfg.LatentDim, LatentNormal)
	return NewGAN(generator, discriminator, gSolver, dSolver, latent, DeviceCPU)
}

func snapshot(params []*tensor.Dense) [][]float64 {
	out := make([][]float64, len(params))
	for i, p := range params {
		out[i] = append([]float64{}, p.Data().([]float64)...)
	}
	return out
}
