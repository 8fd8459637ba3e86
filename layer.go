package gan

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Layer Just an alias to Weight+Bias+ActivationFunc combo.
//
// Weight and Bias hold parameter values. They are not bound to any expression graph: every graph built by Fwd
// gets its own nodes which share these tensors, so in-place solver updates are seen by all graphs at once.
//
type Layer struct {
	Weight     *tensor.Dense
	Bias       *tensor.Dense
	Activation ActivationFunc
	Type       LayerType

	// ReshapeDims Per-sample target shape for LayerReshape (batch dimension is prepended on Fwd)
	ReshapeDims []int
	// DropoutProb Applied after activation in training graphs when greater than zero (see DropoutMasks)
	DropoutProb float64
}

type LayerType uint16

const (
	LayerLinear = LayerType(iota)
	LayerFlatten
	LayerReshape
)

func (t LayerType) String() string {
	switch t {
	case LayerLinear:
		return "linear"
	case LayerFlatten:
		return "flatten"
	case LayerReshape:
		return "reshape"
	default:
		return fmt.Sprintf("LayerType(%d)", uint16(t))
	}
}

var (
	allowedNoWeights = []LayerType{LayerFlatten, LayerReshape}
)

func noWeightsAllowed(checkType LayerType) bool {
	return checkLayerType(checkType, allowedNoWeights...)
}

func checkLayerType(checkType LayerType, t ...LayerType) bool {
	for _, typeOf := range t {
		if checkType == typeOf {
			return true
		}
	}
	return false
}

// NewLinearLayer Creates affine layer y = x*W^T + b with Glorot-normal weights and zero bias
//
// rng - source of randomness for weights initialization
// in, out - number of input and output features
//
func NewLinearLayer(rng *rand.Rand, in, out int, activation ActivationFunc) *Layer {
	std := math.Sqrt(2.0 / float64(in+out))
	weights := make([]float64, out*in)
	for i := range weights {
		weights[i] = rng.NormFloat64() * std
	}
	return &Layer{
		Weight:     tensor.New(tensor.WithShape(out, in), tensor.WithBacking(weights)),
		Bias:       tensor.New(tensor.WithShape(1, out), tensor.WithBacking(make([]float64, out))),
		Activation: activation,
		Type:       LayerLinear,
	}
}

// Parameters Returns parameter tensors of layer (empty for flatten/reshape)
func (l *Layer) Parameters() []*tensor.Dense {
	params := make([]*tensor.Dense, 0, 2)
	if l.Weight != nil {
		params = append(params, l.Weight)
	}
	if l.Bias != nil {
		params = append(params, l.Bias)
	}
	return params
}

// Fwd Builds non-activated and activated output of layer on provided graph
//
// g - graph to build on
// input - input node, first dimension must be batchSize
// batchSize - batch size. If it's >= 2 then broadcast function will be applied for bias
// name - unique prefix for nodes of this layer
// Dropout is not applied here: Network adds mask for training graphs
//
// Returns activated output and learnable nodes created for this layer
//
func (l *Layer) Fwd(g *gorgonia.ExprGraph, input *gorgonia.Node, batchSize int, name string) (*gorgonia.Node, gorgonia.Nodes, error) {
	if l.Weight == nil && !noWeightsAllowed(l.Type) {
		return nil, nil, fmt.Errorf("Layer '%s' has nil weight", name)
	}
	var err error
	learnables := make(gorgonia.Nodes, 0, 2)
	nonActivated := &gorgonia.Node{}
	switch l.Type {
	case LayerLinear:
		inShape := input.Shape()
		if len(inShape) != 2 || inShape[1] != l.Weight.Shape()[1] {
			return nil, nil, shapeMismatch(name+" input", tensor.Shape{batchSize, l.Weight.Shape()[1]}, inShape)
		}
		weightNode := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(l.Weight.Shape()...), gorgonia.WithName(name+"_w"), gorgonia.WithValue(l.Weight))
		learnables = append(learnables, weightNode)
		tOp, err := gorgonia.Transpose(weightNode)
		if err != nil {
			return nil, nil, errors.Wrap(err, fmt.Sprintf("Can't transpose weights of layer '%s'", name))
		}
		nonActivated, err = gorgonia.Mul(input, tOp)
		if err != nil {
			return nil, nil, errors.Wrap(err, fmt.Sprintf("Can't multiply input and weights of layer '%s'", name))
		}
		if l.Bias != nil {
			biasNode := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(l.Bias.Shape()...), gorgonia.WithName(name+"_b"), gorgonia.WithValue(l.Bias))
			learnables = append(learnables, biasNode)
			if batchSize < 2 {
				nonActivated, err = gorgonia.Add(nonActivated, biasNode)
				if err != nil {
					return nil, nil, errors.Wrap(err, fmt.Sprintf("Can't add bias to non-activated output of layer '%s'", name))
				}
			} else {
				nonActivated, err = gorgonia.BroadcastAdd(nonActivated, biasNode, nil, []byte{0})
				if err != nil {
					return nil, nil, errors.Wrap(err, fmt.Sprintf("Can't add [in broadcast term with batch_size = %d] bias to non-activated output of layer '%s'", batchSize, name))
				}
			}
		}
	case LayerFlatten:
		total := input.Shape().TotalSize()
		if batchSize <= 0 || total%batchSize != 0 {
			return nil, nil, shapeMismatch(name+" flatten", tensor.Shape{batchSize}, input.Shape())
		}
		nonActivated, err = gorgonia.Reshape(input, tensor.Shape{batchSize, total / batchSize})
		if err != nil {
			return nil, nil, errors.Wrap(err, fmt.Sprintf("Can't flatten input of layer '%s'", name))
		}
	case LayerReshape:
		target := append(tensor.Shape{batchSize}, l.ReshapeDims...)
		if target.TotalSize() != input.Shape().TotalSize() {
			return nil, nil, shapeMismatch(name+" reshape", target, input.Shape())
		}
		nonActivated, err = gorgonia.Reshape(input, target)
		if err != nil {
			return nil, nil, errors.Wrap(err, fmt.Sprintf("Can't reshape input of layer '%s'", name))
		}
	default:
		return nil, nil, fmt.Errorf("Layer's type '%d' (uint16) is not handled [%s]", l.Type, name)
	}
	gorgonia.WithName(name)(nonActivated)

	activation := l.Activation
	if activation == nil {
		activation = NoActivation
	}
	activated, err := activation(nonActivated)
	if err != nil {
		return nil, nil, errors.Wrap(err, fmt.Sprintf("Can't apply activation function to non-activated output of layer '%s'", name))
	}
	if activated != nonActivated {
		gorgonia.WithName(name + "_activated")(activated)
	}
	return activated, learnables, nil
}
