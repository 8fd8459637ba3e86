package gan

import (
	"fmt"
	"math/rand"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// DropoutMask Input node holding dropout mask of single layer output.
//
// Mask elements are 1/KeepProb (kept) or zero (dropped), so activated output multiplied by mask
// keeps its expected value and inference needs no rescaling.
//
type DropoutMask struct {
	Node     *gorgonia.Node
	KeepProb float64
}

// DropoutMasks Every mask of single graph in order of layers
type DropoutMasks []DropoutMask

// Fill Draws fresh masks from rng and binds them to mask nodes. Must be called before each run of graph
func (masks DropoutMasks) Fill(rng *rand.Rand) error {
	for _, m := range masks {
		shp := m.Node.Shape()
		backing := make([]float64, shp.TotalSize())
		scale := 1.0 / m.KeepProb
		for i := range backing {
			if rng.Float64() < m.KeepProb {
				backing[i] = scale
			}
		}
		if err := gorgonia.Let(m.Node, tensor.New(tensor.WithShape(shp...), tensor.WithBacking(backing))); err != nil {
			return errors.Wrap(err, fmt.Sprintf("Can't init dropout mask '%s'", m.Node.Name()))
		}
	}
	return nil
}

// dropout Multiplies activated output by mask input node of the same shape
func (l *Layer) dropout(g *gorgonia.ExprGraph, activated *gorgonia.Node, name string) (*gorgonia.Node, DropoutMask, error) {
	shp := activated.Shape()
	maskNode := gorgonia.NewTensor(g, gorgonia.Float64, len(shp), gorgonia.WithShape(shp...), gorgonia.WithName(name+"_dropout_mask"))
	dropped, err := gorgonia.HadamardProd(activated, maskNode)
	if err != nil {
		return nil, DropoutMask{}, errors.Wrap(err, fmt.Sprintf("Can't apply dropout to output of layer '%s'", name))
	}
	gorgonia.WithName(name + "_dropped")(dropped)
	return dropped, DropoutMask{Node: maskNode, KeepProb: 1 - l.DropoutProb}, nil
}
