package gan

import (
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func TestTrainDiscriminatorBatchSizes(t *testing.T) {
	sampleShape := []int{2}
	nominal := testConfig().BatchSize
	for _, batchSize := range []int{1, nominal - 1, nominal} {
		model, err := testGAN(sampleShape)
		require.NoError(t, err)
		realSamples := randomSamples(rand.New(rand.NewSource(1)), batchSize, sampleShape)

		loss, shapes, err := model.TrainDiscriminator(realSamples)
		require.NoError(t, err, "batch size %d", batchSize)
		assert.True(t, loss >= 0, "discriminator loss must be non-negative, got %v", loss)
		assert.Equal(t, tensor.Shape{batchSize, 3}, shapes.Noise)
		assert.Equal(t, tensor.Shape{2 * batchSize, 1}, shapes.Labels)
		assert.Equal(t, tensor.Shape{2 * batchSize, 2}, shapes.Input)

		loss, shapes, err = model.TrainGenerator(batchSize)
		require.NoError(t, err, "batch size %d", batchSize)
		assert.True(t, loss >= 0, "generator loss must be non-negative, got %v", loss)
		assert.Equal(t, tensor.Shape{batchSize, 3}, shapes.Noise)
		assert.Equal(t, tensor.Shape{batchSize, 1}, shapes.Labels)
		require.NoError(t, model.Close())
	}
}

func TestTrainDiscriminatorMultiDimSamples(t *testing.T) {
	sampleShape := []int{2, 3}
	model, err := testGAN(sampleShape)
	require.NoError(t, err)
	defer model.Close()

	realSamples := randomSamples(rand.New(rand.NewSource(1)), 3, sampleShape)
	_, shapes, err := model.TrainDiscriminator(realSamples)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{6, 2, 3}, shapes.Input)

	samples, err := model.Sample(5)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{5, 2, 3}, samples.Shape())
}

func TestDiscriminateRange(t *testing.T) {
	sampleShape := []int{2}
	model, err := testGAN(sampleShape)
	require.NoError(t, err)
	defer model.Close()

	rng := rand.New(rand.NewSource(5))
	for _, batchSize := range []int{1, 2, 7} {
		samples := randomSamples(rng, batchSize, sampleShape)
		// Push some inputs far away to saturate sigmoid
		data := samples.Data().([]float64)
		data[0] = 1e3
		scores, err := model.Discriminate(samples)
		require.NoError(t, err)
		assert.Equal(t, tensor.Shape{batchSize, 1}, scores.Shape())
		for _, v := range scores.Data().([]float64) {
			assert.True(t, v >= 0 && v <= 1, "score %v is out of [0;1]", v)
		}
	}
}

func TestDiscriminateWithDropoutIsStable(t *testing.T) {
	cfg := testConfig()
	cfg.Discriminator.Dropout = 0.5
	model, err := testGANFromConfig(cfg, []int{2})
	require.NoError(t, err)
	defer model.Close()

	samples := randomSamples(rand.New(rand.NewSource(2)), 6, []int{2})
	first, err := model.Discriminate(samples)
	require.NoError(t, err)
	second, err := model.Discriminate(samples)
	require.NoError(t, err)
	assert.Equal(t, first.Data(), second.Data())

	// Training steps still draw masks and run fine
	_, _, err = model.TrainDiscriminator(samples)
	require.NoError(t, err)
	_, _, err = model.TrainGenerator(6)
	require.NoError(t, err)
}

func TestDiscriminateIgnoresProvenance(t *testing.T) {
	sampleShape := []int{2}
	model, err := testGAN(sampleShape)
	require.NoError(t, err)
	defer model.Close()

	generated, err := model.Sample(3)
	require.NoError(t, err)
	// Same values, but "real" tensor built independently of generator
	copied := tensor.New(tensor.WithShape(3, 2), tensor.WithBacking(append([]float64{}, generated.Data().([]float64)...)))

	fromGenerator, err := model.Discriminate(generated)
	require.NoError(t, err)
	fromData, err := model.Discriminate(copied)
	require.NoError(t, err)
	assert.Equal(t, fromGenerator.Data(), fromData.Data())
}

func TestUpdatesTouchOnlyOwnNetwork(t *testing.T) {
	sampleShape := []int{2}
	model, err := testGAN(sampleShape)
	require.NoError(t, err)
	defer model.Close()

	genBefore := snapshot(model.Generator().Parameters())
	disBefore := snapshot(model.Discriminator().Parameters())

	_, _, err = model.TrainDiscriminator(randomSamples(rand.New(rand.NewSource(3)), 4, sampleShape))
	require.NoError(t, err)
	assert.Equal(t, genBefore, snapshot(model.Generator().Parameters()), "discriminator update must not change generator")
	disAfter := snapshot(model.Discriminator().Parameters())
	assert.NotEqual(t, disBefore, disAfter, "discriminator update must change discriminator")

	_, _, err = model.TrainGenerator(4)
	require.NoError(t, err)
	assert.Equal(t, disAfter, snapshot(model.Discriminator().Parameters()), "generator update must not change discriminator")
	assert.NotEqual(t, genBefore, snapshot(model.Generator().Parameters()), "generator update must change generator")
}

func TestTrainDiscriminatorShapeMismatch(t *testing.T) {
	model, err := testGAN([]int{2})
	require.NoError(t, err)
	defer model.Close()

	_, _, err = model.TrainDiscriminator(randomSamples(rand.New(rand.NewSource(1)), 4, []int{3}))
	require.Error(t, err)
	var shapeErr *ShapeMismatchError
	require.True(t, errors.As(err, &shapeErr))
	assert.Equal(t, tensor.Shape{4, 2}, shapeErr.Expected)
	assert.Equal(t, tensor.Shape{4, 3}, shapeErr.Got)
}

func TestEmptyInputs(t *testing.T) {
	model, err := testGAN([]int{2})
	require.NoError(t, err)
	defer model.Close()

	_, _, err = model.TrainDiscriminator(nil)
	assert.True(t, errors.Is(err, ErrEmptyBatch))
	_, _, err = model.TrainGenerator(0)
	assert.True(t, errors.Is(err, ErrEmptyBatch))
	_, err = model.Sample(0)
	assert.True(t, errors.Is(err, ErrEmptyBatch))
}

func TestNewGANValidation(t *testing.T) {
	cfg := testConfig()
	rng := rand.New(rand.NewSource(1))
	generator, err := NewGenerator(rng, cfg.LatentDim, []int{2}, cfg.Generator)
	require.NoError(t, err)
	discriminator, err := NewDiscriminator(rng, []int{3}, cfg.Discriminator)
	require.NoError(t, err)
	solver, err := newSolver("adam", 1e-3)
	require.NoError(t, err)

	_, err = NewGAN(generator, discriminator, solver, solver, NewLatentSampler(rng, cfg.LatentDim, LatentNormal), DeviceCPU)
	var shapeErr *ShapeMismatchError
	assert.True(t, errors.As(err, &shapeErr))

	_, err = NewGAN(generator, discriminator, solver, solver, NewLatentSampler(rng, cfg.LatentDim+1, LatentNormal), DeviceCPU)
	assert.Error(t, err)
}
