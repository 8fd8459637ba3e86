package gan

import (
	"fmt"
	"math/rand"
	"strings"

	"gorgonia.org/tensor"
)

// LatentDistribution Distribution of latent space samples
type LatentDistribution uint8

const (
	// LatentNormal Standard normal distribution N(0, 1)
	LatentNormal = LatentDistribution(iota)
	// LatentUniform Uniform distribution on [0.0, 1.0)
	LatentUniform
)

func (d LatentDistribution) String() string {
	switch d {
	case LatentNormal:
		return "normal"
	case LatentUniform:
		return "uniform"
	default:
		return fmt.Sprintf("LatentDistribution(%d)", uint8(d))
	}
}

// ParseLatentDistribution Parses "normal" or "uniform"
func ParseLatentDistribution(s string) (LatentDistribution, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal", "gaussian":
		return LatentNormal, nil
	case "uniform":
		return LatentUniform, nil
	default:
		return 0, fmt.Errorf("Latent distribution '%s' is not supported", s)
	}
}

// LatentSampler Produces batches of latent vectors from its own seeded source
type LatentSampler struct {
	rng          *rand.Rand
	dim          int
	distribution LatentDistribution
}

// NewLatentSampler Creates sampler of vectors with dim elements
func NewLatentSampler(rng *rand.Rand, dim int, distribution LatentDistribution) *LatentSampler {
	return &LatentSampler{
		rng:          rng,
		dim:          dim,
		distribution: distribution,
	}
}

// Dim Returns size of single latent vector
func (s *LatentSampler) Dim() int {
	return s.dim
}

// Sample Returns (batchSize, dim) tensor of independently sampled latent vectors
func (s *LatentSampler) Sample(batchSize int) *tensor.Dense {
	if s.distribution == LatentUniform {
		return UniformRandDense(s.rng, batchSize, s.dim)
	}
	return NormRandDense(s.rng, batchSize, s.dim)
}

// NormRandDense Return reference to tensor.Dense filled with normally distributed float64 values
//
// rng - source of randomness
// batchSize - Simply batch size
// n - Number of elements in each batch
// Resulting dense will have batchSize*n elements
//
func NormRandDense(rng *rand.Rand, batchSize, n int) *tensor.Dense {
	data := make([]float64, batchSize*n)
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	return tensor.New(tensor.WithShape(batchSize, n), tensor.WithBacking(data))
}

// UniformRandDense Return reference to tensor.Dense filled with pseudo-random float64 values in range [0.0,1.0)
//
// rng - source of randomness
// batchSize - Simply batch size
// n - Number of elements in each batch
// Resulting dense will have batchSize*n elements
//
func UniformRandDense(rng *rand.Rand, batchSize, n int) *tensor.Dense {
	data := make([]float64, batchSize*n)
	for i := range data {
		data[i] = rng.Float64()
	}
	return tensor.New(tensor.WithShape(batchSize, n), tensor.WithBacking(data))
}
