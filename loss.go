package gan

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
)

type LossReduction uint16

const (
	LossReductionSum = LossReduction(iota)
	LossReductionMean
)

// probabilityEpsilon Predictions are squashed into [eps, 1-eps] before taking logarithms
const probabilityEpsilon = 1e-7

// BinaryCrossEntropyLoss See ref. https://en.wikipedia.org/wiki/Cross_entropy#Cross-entropy_loss_function_and_logistic_regression
//
// loss{i} = -[b{i}*log(p{i}) + (1-b{i})*log(1-p{i})], where p = a*(1-2*eps) + eps
//
// a - predicted probabilities, b - targets in {0, 1}. Shapes must be equal.
// Both logarithms are taken from values inside [eps, 1-eps], so result is finite and never negative.
// Default reduction is 'mean'
func BinaryCrossEntropyLoss(a, b *gorgonia.Node, reduction ...LossReduction) (*gorgonia.Node, error) {
	if !sameShape(a.Shape(), b.Shape()) {
		return nil, shapeMismatch("binary cross entropy", a.Shape(), b.Shape())
	}
	g := a.Graph()
	scaleScalar := gorgonia.NewScalar(g, a.Dtype(), gorgonia.WithValue(1.0-2*probabilityEpsilon), gorgonia.WithName(a.Name()+"_bce_scale"))
	epsScalar := gorgonia.NewScalar(g, a.Dtype(), gorgonia.WithValue(probabilityEpsilon), gorgonia.WithName(a.Name()+"_bce_eps"))
	onesTensor := gorgonia.NewTensor(g, a.Dtype(), a.Dims(), gorgonia.WithShape(a.Shape()...), gorgonia.WithInit(gorgonia.Ones()), gorgonia.WithName(a.Name()+"_bce_ones"))

	scaled, err := gorgonia.Mul(scaleScalar, a)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (1-2eps)*A")
	}
	clamped, err := gorgonia.Add(scaled, epsScalar)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (x+eps)")
	}

	// Main part: -log(p) .* B
	logMain, err := gorgonia.Log(clamped)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do log(p)")
	}
	negMain, err := gorgonia.Neg(logMain)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do -1*x")
	}
	hprodMain, err := gorgonia.HadamardProd(negMain, b)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (x.*B)")
	}

	// Here comes another part: -log(1-p) .* (1-B)
	complement, err := gorgonia.Sub(onesTensor, clamped)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (1-p)")
	}
	logBin, err := gorgonia.Log(complement)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do log(1-p)")
	}
	negBin, err := gorgonia.Neg(logBin)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do -1*x")
	}
	preLogBin, err := gorgonia.Sub(onesTensor, b)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (1-B)")
	}
	hprodBin, err := gorgonia.HadamardProd(negBin, preLogBin)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (x.*(1-B))")
	}
	hprod, err := gorgonia.Add(hprodMain, hprodBin)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (x+y)")
	}

	reductionDefault := LossReductionMean
	if len(reduction) != 0 {
		reductionDefault = reduction[0]
	}
	switch reductionDefault {
	case LossReductionSum:
		return gorgonia.Sum(hprod)
	case LossReductionMean:
		return gorgonia.Mean(hprod)
	default:
		return nil, fmt.Errorf("Reduction type %d is not supported", reductionDefault)
	}
}

// BinaryCrossEntropy Reference (non-graph) mean binary cross entropy with the same clamping as BinaryCrossEntropyLoss
func BinaryCrossEntropy(predictions, targets []float64) (float64, error) {
	if len(predictions) != len(targets) {
		return 0, fmt.Errorf("Predictions and targets must have same length, but got %d and %d", len(predictions), len(targets))
	}
	if len(predictions) == 0 {
		return 0, ErrEmptyBatch
	}
	total := 0.0
	for i, p := range predictions {
		p = p*(1-2*probabilityEpsilon) + probabilityEpsilon
		total -= targets[i]*math.Log(p) + (1-targets[i])*math.Log(1-p)
	}
	return total / float64(len(predictions)), nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
