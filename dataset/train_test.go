package dataset_test

import (
	"context"
	"math/rand"
	"testing"

	gan "github.com/AimenD/nhlstenden"
	"github.com/AimenD/nhlstenden/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func TestTrainOnSine(t *testing.T) {
	set, err := dataset.Sine(100, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	source, err := dataset.NewSliceSource(set, 32, dataset.WithShuffle(1))
	require.NoError(t, err)

	cfg := gan.DefaultConfig()
	cfg.BatchSize = 32
	cfg.NumEpochs = 2
	cfg.LatentDim = 2
	cfg.GridSize = 8
	cfg.Generator = gan.NetworkConfig{Hidden: []int{16}, Activation: "relu", OutputActivation: "tanh"}
	cfg.Discriminator = gan.NetworkConfig{Hidden: []int{16}, Activation: "relu", OutputActivation: "sigmoid"}

	var sizes []int
	reports := 0
	reporter := gan.ReporterFunc(func(epoch int, discriminatorLoss, generatorLoss float64, grid *tensor.Dense) error {
		reports++
		assert.Equal(t, tensor.Shape{8, 2}, grid.Shape())
		for _, v := range grid.Data().([]float64) {
			assert.True(t, v >= -1 && v <= 1, "generated value %v is out of data range", v)
		}
		assert.True(t, discriminatorLoss >= 0)
		assert.True(t, generatorLoss >= 0)
		return nil
	})
	summary, err := gan.Train(context.Background(), cfg, source, reporter, gan.WithStepObserver(func(r gan.StepResult) {
		sizes = append(sizes, r.BatchSize)
	}))
	require.NoError(t, err)
	assert.Equal(t, 2, reports)
	assert.Equal(t, []int{32, 32, 32, 4, 32, 32, 32, 4}, sizes)
	assert.Len(t, summary.Epochs, 2)
}
