package gan

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Network Abstraction for neural network.
//
// Name - prefix for nodes' names on graphs
// Layers - simple sequence of layers
//
type Network struct {
	Name   string
	Layers []*Layer
}

// Parameters Returns parameter tensors of every layer in order of layers
func (net *Network) Parameters() []*tensor.Dense {
	params := make([]*tensor.Dense, 0, 2*len(net.Layers))
	for _, l := range net.Layers {
		if l != nil {
			params = append(params, l.Parameters()...)
		}
	}
	return params
}

// Fwd Initializates feedforward for provided input on the graph which input belongs to
//
// input - Input node
// batchSize - batch size. If it's >= 2 then broadcast function will be applied
//
// Returns activated output of last layer, learnables nodes (same order as Parameters()) and dropout masks.
// Masks must be filled (DropoutMasks.Fill) before every run of graph
//
func (net *Network) Fwd(input *gorgonia.Node, batchSize int) (*gorgonia.Node, gorgonia.Nodes, DropoutMasks, error) {
	return net.fwd(input, batchSize, true)
}

// Infer Same as Fwd, but dropout layers are skipped
func (net *Network) Infer(input *gorgonia.Node, batchSize int) (*gorgonia.Node, gorgonia.Nodes, error) {
	out, learnables, _, err := net.fwd(input, batchSize, false)
	return out, learnables, err
}

func (net *Network) fwd(input *gorgonia.Node, batchSize int, training bool) (*gorgonia.Node, gorgonia.Nodes, DropoutMasks, error) {
	networkName := "network"
	if net.Name != "" {
		networkName = net.Name
	}
	if len(net.Layers) == 0 {
		return nil, nil, nil, fmt.Errorf("Network must have one layer atleast")
	}
	g := input.Graph()
	learnables := make(gorgonia.Nodes, 0, 2*len(net.Layers))
	var masks DropoutMasks
	lastActivatedLayer := input
	for i, l := range net.Layers {
		if l == nil {
			return nil, nil, nil, fmt.Errorf("Network's layer #%d is nil", i)
		}
		layerName := fmt.Sprintf("%s_%d", networkName, i)
		layerActivated, layerLearnables, err := l.Fwd(g, lastActivatedLayer, batchSize, layerName)
		if err != nil {
			return nil, nil, nil, errors.Wrap(err, fmt.Sprintf("[%s, Layer #%d] Can't feedforward input", networkName, i))
		}
		if training && l.DropoutProb > 0 {
			var mask DropoutMask
			layerActivated, mask, err = l.dropout(g, layerActivated, layerName)
			if err != nil {
				return nil, nil, nil, errors.Wrap(err, fmt.Sprintf("[%s, Layer #%d] Can't add dropout", networkName, i))
			}
			masks = append(masks, mask)
		}
		learnables = append(learnables, layerLearnables...)
		lastActivatedLayer = layerActivated
	}
	return lastActivatedLayer, learnables, masks, nil
}
