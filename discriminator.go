package gan

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Discriminator Abstraction for discriminator part of GAN. It's simple neural network actually.
//
// It never knows where samples come from: real and generated batches go through the very same Fwd.
//
type Discriminator struct {
	net         *Network
	sampleShape tensor.Shape
}

// NewDiscriminator Creates MLP discriminator: [flatten ->] prod(sampleShape) -> hidden... -> 1 (sigmoid)
func NewDiscriminator(rng *rand.Rand, sampleShape []int, cfg NetworkConfig) (*Discriminator, error) {
	hiddenActivation, err := ActivationByName(cfg.Activation)
	if err != nil {
		return nil, errors.Wrap(err, "Can't prepare hidden activation of Discriminator")
	}
	if out := strings.ToLower(cfg.OutputActivation); out != "" && out != "sigmoid" {
		return nil, fmt.Errorf("Discriminator must end with sigmoid to produce probabilities, but '%s' has been provided", cfg.OutputActivation)
	}
	if cfg.Dropout < 0 || cfg.Dropout >= 1 {
		return nil, fmt.Errorf("Dropout probability must be in [0;1), but got %v", cfg.Dropout)
	}
	layers := make([]*Layer, 0, len(cfg.Hidden)+2)
	if len(sampleShape) > 1 {
		layers = append(layers, &Layer{Type: LayerFlatten})
	}
	in := tensor.Shape(sampleShape).TotalSize()
	for _, units := range cfg.Hidden {
		l := NewLinearLayer(rng, in, units, hiddenActivation)
		l.DropoutProb = cfg.Dropout
		layers = append(layers, l)
		in = units
	}
	layers = append(layers, NewLinearLayer(rng, in, 1, Sigmoid))
	return DiscriminatorFromLayers(sampleShape, layers...)
}

// DiscriminatorFromLayers Constructor for Discriminator with user-defined layers
func DiscriminatorFromLayers(sampleShape []int, layers ...*Layer) (*Discriminator, error) {
	if len(sampleShape) == 0 {
		return nil, fmt.Errorf("Sample shape of Discriminator must have one dimension atleast")
	}
	return &Discriminator{
		net: &Network{
			Name:   "discriminator",
			Layers: layers,
		},
		sampleShape: tensor.Shape(sampleShape).Clone(),
	}, nil
}

// SampleShape Returns shape of single sample accepted by discriminator
func (net *Discriminator) SampleShape() tensor.Shape {
	return net.sampleShape.Clone()
}

// Parameters Returns parameter tensors
func (net *Discriminator) Parameters() []*tensor.Dense {
	return net.net.Parameters()
}

// Fwd Initializates feedforward for provided input
//
// input - Input node of shape (batchSize, sampleShape...)
// batchSize - batch size. If it's >= 2 then broadcast function will be applied
//
// Returns output node of shape (batchSize, 1), learnables and dropout masks
//
func (net *Discriminator) Fwd(input *gorgonia.Node, batchSize int) (*gorgonia.Node, gorgonia.Nodes, DropoutMasks, error) {
	return net.fwd(input, batchSize, true)
}

// Infer Same as Fwd with dropout disabled. Used for scoring outside of discriminator's update
func (net *Discriminator) Infer(input *gorgonia.Node, batchSize int) (*gorgonia.Node, gorgonia.Nodes, error) {
	out, learnables, _, err := net.fwd(input, batchSize, false)
	return out, learnables, err
}

func (net *Discriminator) fwd(input *gorgonia.Node, batchSize int, training bool) (*gorgonia.Node, gorgonia.Nodes, DropoutMasks, error) {
	expected := append(tensor.Shape{batchSize}, net.sampleShape...)
	if !sameShape(input.Shape(), expected) {
		return nil, nil, nil, shapeMismatch("discriminator input", expected, input.Shape())
	}
	out, learnables, masks, err := net.net.fwd(input, batchSize, training)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "[Discriminator]")
	}
	expected = tensor.Shape{batchSize, 1}
	if !sameShape(out.Shape(), expected) {
		return nil, nil, nil, shapeMismatch("discriminator output", expected, out.Shape())
	}
	return out, learnables, masks, nil
}
