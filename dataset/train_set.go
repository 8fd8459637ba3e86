package dataset

import (
	"fmt"

	"gorgonia.org/tensor"
)

// TrainSet In-memory set of samples
//
// Data - tensor of shape (N, sampleShape...)
// Labels - optional class labels (nil or exactly N elements)
//
type TrainSet struct {
	Data   *tensor.Dense
	Labels []int
}

// NewTrainSet Validates and wraps data into TrainSet
func NewTrainSet(data *tensor.Dense, labels []int) (*TrainSet, error) {
	if data == nil || data.Dims() < 2 {
		return nil, fmt.Errorf("Train data must have shape (N, sampleShape...)")
	}
	if _, ok := data.Data().([]float64); !ok {
		return nil, fmt.Errorf("Train data must be of float64 type, but got %v", data.Dtype())
	}
	if labels != nil && len(labels) != data.Shape()[0] {
		return nil, fmt.Errorf("Number of labels %d doesn't match number of samples %d", len(labels), data.Shape()[0])
	}
	return &TrainSet{
		Data:   data,
		Labels: labels,
	}, nil
}

// Len Returns number of samples
func (ts *TrainSet) Len() int {
	return ts.Data.Shape()[0]
}

// SampleShape Returns shape of single sample
func (ts *TrainSet) SampleShape() []int {
	return append([]int{}, ts.Data.Shape()[1:]...)
}

// sampleSize Number of float64 values in single sample
func (ts *TrainSet) sampleSize() int {
	return tensor.Shape(ts.Data.Shape()[1:]).TotalSize()
}
