package gan

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func TestLatentSampler(t *testing.T) {
	first := NewLatentSampler(rand.New(rand.NewSource(11)), 4, LatentNormal).Sample(3)
	second := NewLatentSampler(rand.New(rand.NewSource(11)), 4, LatentNormal).Sample(3)
	assert.Equal(t, tensor.Shape{3, 4}, first.Shape())
	assert.Equal(t, first.Data(), second.Data())

	uniform := NewLatentSampler(rand.New(rand.NewSource(11)), 2, LatentUniform).Sample(50)
	for _, v := range uniform.Data().([]float64) {
		assert.True(t, v >= 0 && v < 1)
	}
}

func TestParseLatentDistribution(t *testing.T) {
	d, err := ParseLatentDistribution("Uniform")
	require.NoError(t, err)
	assert.Equal(t, LatentUniform, d)
	d, err = ParseLatentDistribution("")
	require.NoError(t, err)
	assert.Equal(t, LatentNormal, d)
	_, err = ParseLatentDistribution("cauchy")
	assert.Error(t, err)
}
