package dataset

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

type ReferenceFunction func(float64) float64
type ArgumentFunction func() float64

// GenerateTrainingSet Builds (numSamples, 2) set of points (x, y(x)) where x is drawn by xFunc
func GenerateTrainingSet(numSamples int, xFunc ArgumentFunction, yFunc ReferenceFunction) (*TrainSet, error) {
	if numSamples <= 0 {
		return nil, fmt.Errorf("Number of samples must be > 0 (got %d)", numSamples)
	}
	dataXAxis := make([]float64, numSamples)
	dataYAxis := make([]float64, numSamples)
	for i := range dataXAxis {
		dataXAxis[i] = xFunc()
		dataYAxis[i] = yFunc(dataXAxis[i])
	}
	inputTensor := tensor.New(tensor.WithShape(numSamples, 1), tensor.WithBacking(dataXAxis))
	outputTensor := tensor.New(tensor.WithShape(numSamples, 1), tensor.WithBacking(dataYAxis))
	hstack, err := inputTensor.Hstack(outputTensor)
	if err != nil {
		return nil, errors.Wrap(err, "Can't stack X and Y(X)")
	}
	return NewTrainSet(hstack, make([]int, numSamples))
}

// Sine Classic toy set scaled to [-1; 1] on both axes: x uniformly distributed on [-1; 1), y = sin(Pi*x)
//
// So one full period of sine fits range of tanh-terminated generator
//
func Sine(numSamples int, rng *rand.Rand) (*TrainSet, error) {
	return GenerateTrainingSet(numSamples, func() float64 {
		return 2*rng.Float64() - 1
	}, func(x float64) float64 {
		return math.Sin(math.Pi * x)
	})
}
