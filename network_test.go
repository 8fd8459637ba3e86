package gan

import (
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func TestNewLinearLayer(t *testing.T) {
	l := NewLinearLayer(rand.New(rand.NewSource(1)), 5, 3, Rectify)
	assert.Equal(t, tensor.Shape{3, 5}, l.Weight.Shape())
	assert.Equal(t, tensor.Shape{1, 3}, l.Bias.Shape())
	assert.Equal(t, make([]float64, 3), l.Bias.Data())
	assert.Len(t, l.Parameters(), 2)
	assert.Empty(t, (&Layer{Type: LayerFlatten}).Parameters())
}

func TestGeneratorForwardShapes(t *testing.T) {
	cfg := testConfig()
	gen, err := NewGenerator(rand.New(rand.NewSource(1)), cfg.LatentDim, []int{2, 3}, cfg.Generator)
	require.NoError(t, err)
	// hidden, output and reshape layers
	assert.Len(t, gen.net.Layers, 3)
	assert.Len(t, gen.Parameters(), 4)

	for _, batchSize := range []int{1, 5} {
		g := gorgonia.NewGraph()
		input := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(batchSize, cfg.LatentDim), gorgonia.WithName("input"))
		out, learnables, masks, err := gen.Fwd(input, batchSize)
		require.NoError(t, err)
		assert.Equal(t, tensor.Shape{batchSize, 2, 3}, out.Shape())
		assert.Len(t, learnables, 4)
		assert.Empty(t, masks)
	}

	g := gorgonia.NewGraph()
	input := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(2, cfg.LatentDim+1), gorgonia.WithName("input"))
	_, _, _, err = gen.Fwd(input, 2)
	var shapeErr *ShapeMismatchError
	assert.True(t, errors.As(err, &shapeErr))
}

func TestDiscriminatorForwardShapes(t *testing.T) {
	cfg := testConfig()
	dis, err := NewDiscriminator(rand.New(rand.NewSource(1)), []int{2, 3}, cfg.Discriminator)
	require.NoError(t, err)
	// flatten, hidden and output layers
	assert.Len(t, dis.net.Layers, 3)

	for _, batchSize := range []int{1, 4} {
		g := gorgonia.NewGraph()
		input := gorgonia.NewTensor(g, gorgonia.Float64, 3, gorgonia.WithShape(batchSize, 2, 3), gorgonia.WithName("input"))
		out, learnables, _, err := dis.Fwd(input, batchSize)
		require.NoError(t, err)
		assert.Equal(t, tensor.Shape{batchSize, 1}, out.Shape())
		assert.Len(t, learnables, 4)
	}
}

func TestDiscriminatorDropoutMasks(t *testing.T) {
	cfg := testConfig().Discriminator
	cfg.Hidden = []int{8, 4}
	cfg.Dropout = 0.3
	dis, err := NewDiscriminator(rand.New(rand.NewSource(1)), []int{2}, cfg)
	require.NoError(t, err)

	g := gorgonia.NewGraph()
	input := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(5, 2), gorgonia.WithName("input"))
	_, _, masks, err := dis.Fwd(input, 5)
	require.NoError(t, err)
	require.Len(t, masks, 2)
	assert.Equal(t, tensor.Shape{5, 8}, masks[0].Node.Shape())
	assert.Equal(t, tensor.Shape{5, 4}, masks[1].Node.Shape())
	assert.InDelta(t, 0.7, masks[0].KeepProb, 1e-12)

	// Inference graph has no mask inputs at all
	g = gorgonia.NewGraph()
	input = gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(5, 2), gorgonia.WithName("input"))
	_, _, err = dis.Infer(input, 5)
	require.NoError(t, err)
	for _, n := range g.AllNodes() {
		assert.NotContains(t, n.Name(), "dropout_mask")
	}
}

func TestDropoutMasksFill(t *testing.T) {
	build := func() DropoutMasks {
		g := gorgonia.NewGraph()
		node := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(20, 10), gorgonia.WithName("mask"))
		return DropoutMasks{{Node: node, KeepProb: 0.75}}
	}
	first, second := build(), build()
	require.NoError(t, first.Fill(rand.New(rand.NewSource(3))))
	require.NoError(t, second.Fill(rand.New(rand.NewSource(3))))

	values := first[0].Node.Value().Data().([]float64)
	assert.Equal(t, values, second[0].Node.Value().Data())
	kept := 0
	for _, v := range values {
		if v != 0 {
			assert.InDelta(t, 1/0.75, v, 1e-12)
			kept++
		}
	}
	assert.True(t, kept > 0 && kept < len(values), "mask must keep some elements and drop others, kept %d", kept)
}

func TestDiscriminatorConfigValidation(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	cfg := testConfig().Discriminator

	bad := cfg
	bad.OutputActivation = "tanh"
	_, err := NewDiscriminator(rng, []int{2}, bad)
	assert.Error(t, err)

	bad = cfg
	bad.Dropout = 1
	_, err = NewDiscriminator(rng, []int{2}, bad)
	assert.Error(t, err)

	bad = cfg
	bad.Activation = "softsign"
	_, err = NewDiscriminator(rng, []int{2}, bad)
	assert.Error(t, err)

	_, err = DiscriminatorFromLayers(nil)
	assert.Error(t, err)
}

func TestNetworkWithoutLayers(t *testing.T) {
	net := &Network{Name: "empty"}
	g := gorgonia.NewGraph()
	input := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(2, 2), gorgonia.WithName("input"))
	_, _, _, err := net.Fwd(input, 2)
	assert.Error(t, err)
}

func TestActivationByName(t *testing.T) {
	for _, name := range []string{"", "none", "Tanh", "sigmoid", "relu", "leaky"} {
		f, err := ActivationByName(name)
		require.NoError(t, err, name)
		assert.NotNil(t, f)
	}
	_, err := ActivationByName("swish")
	assert.Error(t, err)
}
