package gan

import (
	"fmt"
	"math/rand"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Generator Abstraction for generator part of GAN: maps latent vectors to samples.
//
// net - simple sequence of layers
// latentDim - size of single latent vector
// sampleShape - shape of single generated sample (without batch dimension)
//
type Generator struct {
	net         *Network
	latentDim   int
	sampleShape tensor.Shape
}

// NewGenerator Creates MLP generator: latentDim -> hidden... -> prod(sampleShape) [-> reshape to sampleShape]
func NewGenerator(rng *rand.Rand, latentDim int, sampleShape []int, cfg NetworkConfig) (*Generator, error) {
	if latentDim <= 0 {
		return nil, fmt.Errorf("Latent dimension must be positive, but got %d", latentDim)
	}
	hiddenActivation, err := ActivationByName(cfg.Activation)
	if err != nil {
		return nil, errors.Wrap(err, "Can't prepare hidden activation of Generator")
	}
	outputActivation, err := ActivationByName(cfg.OutputActivation)
	if err != nil {
		return nil, errors.Wrap(err, "Can't prepare output activation of Generator")
	}
	sampleSize := tensor.Shape(sampleShape).TotalSize()
	layers := make([]*Layer, 0, len(cfg.Hidden)+2)
	in := latentDim
	for _, units := range cfg.Hidden {
		layers = append(layers, NewLinearLayer(rng, in, units, hiddenActivation))
		in = units
	}
	layers = append(layers, NewLinearLayer(rng, in, sampleSize, outputActivation))
	if len(sampleShape) > 1 {
		layers = append(layers, &Layer{Type: LayerReshape, ReshapeDims: append([]int{}, sampleShape...)})
	}
	return GeneratorFromLayers(latentDim, sampleShape, layers...)
}

// GeneratorFromLayers Constructor for Generator with user-defined layers
func GeneratorFromLayers(latentDim int, sampleShape []int, layers ...*Layer) (*Generator, error) {
	if len(sampleShape) == 0 {
		return nil, fmt.Errorf("Sample shape of Generator must have one dimension atleast")
	}
	return &Generator{
		net: &Network{
			Name:   "generator",
			Layers: layers,
		},
		latentDim:   latentDim,
		sampleShape: tensor.Shape(sampleShape).Clone(),
	}, nil
}

// LatentDim Returns size of single latent vector
func (gen *Generator) LatentDim() int {
	return gen.latentDim
}

// SampleShape Returns shape of single generated sample
func (gen *Generator) SampleShape() tensor.Shape {
	return gen.sampleShape.Clone()
}

// Parameters Returns parameter tensors
func (gen *Generator) Parameters() []*tensor.Dense {
	return gen.net.Parameters()
}

// Fwd Initializates feedforward for provided input
//
// input - Input node of shape (batchSize, latentDim)
// batchSize - batch size
//
// Returns output node of shape (batchSize, sampleShape...), learnables and dropout masks (if any)
//
func (gen *Generator) Fwd(input *gorgonia.Node, batchSize int) (*gorgonia.Node, gorgonia.Nodes, DropoutMasks, error) {
	return gen.fwd(input, batchSize, true)
}

// Infer Same as Fwd with dropout disabled. Used for sampling
func (gen *Generator) Infer(input *gorgonia.Node, batchSize int) (*gorgonia.Node, gorgonia.Nodes, error) {
	out, learnables, _, err := gen.fwd(input, batchSize, false)
	return out, learnables, err
}

func (gen *Generator) fwd(input *gorgonia.Node, batchSize int, training bool) (*gorgonia.Node, gorgonia.Nodes, DropoutMasks, error) {
	expected := tensor.Shape{batchSize, gen.latentDim}
	if !sameShape(input.Shape(), expected) {
		return nil, nil, nil, shapeMismatch("generator input", expected, input.Shape())
	}
	out, learnables, masks, err := gen.net.fwd(input, batchSize, training)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "[Generator]")
	}
	expected = append(tensor.Shape{batchSize}, gen.sampleShape...)
	if !sameShape(out.Shape(), expected) {
		return nil, nil, nil, shapeMismatch("generator output", expected, out.Shape())
	}
	return out, learnables, masks, nil
}

func sameShape(a, b tensor.Shape) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
