package dataset

import (
	"fmt"
	"io"
	"math/rand"

	gan "github.com/AimenD/nhlstenden"
	"gorgonia.org/tensor"
)

// SliceSource Iterates over TrainSet by mini-batches. The last batch of a pass is short when
// number of samples is not divisible by batch size.
type SliceSource struct {
	set       *TrainSet
	batchSize int
	rng       *rand.Rand
	order     []int
	pos       int
}

// SourceOption Functional option for SliceSource
type SourceOption func(*SliceSource)

// WithShuffle Reshuffles order of samples on every Reset using seeded source
func WithShuffle(seed int64) SourceOption {
	return func(s *SliceSource) {
		s.rng = rand.New(rand.NewSource(seed))
	}
}

// NewSliceSource Creates source of mini-batches of batchSize samples (sequential order unless WithShuffle is provided)
func NewSliceSource(set *TrainSet, batchSize int, opts ...SourceOption) (*SliceSource, error) {
	if set == nil {
		return nil, fmt.Errorf("Train set must be provided")
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("Batch size must be > 0 (got %d)", batchSize)
	}
	s := &SliceSource{
		set:       set,
		batchSize: batchSize,
		order:     make([]int, set.Len()),
	}
	for i := range s.order {
		s.order[i] = i
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NumBatches Returns number of batches in single pass
func (s *SliceSource) NumBatches() int {
	return (s.set.Len() + s.batchSize - 1) / s.batchSize
}

// SampleShape implements gan.SampleSource
func (s *SliceSource) SampleShape() []int {
	return s.set.SampleShape()
}

// Reset implements gan.SampleSource
func (s *SliceSource) Reset() error {
	s.pos = 0
	if s.rng != nil {
		s.rng.Shuffle(len(s.order), func(i, j int) {
			s.order[i], s.order[j] = s.order[j], s.order[i]
		})
	}
	return nil
}

// Next implements gan.SampleSource. Returns io.EOF when pass is over
func (s *SliceSource) Next() (gan.Batch, error) {
	n := s.set.Len()
	if s.pos >= n {
		return gan.Batch{}, io.EOF
	}
	end := s.pos + s.batchSize
	if end > n {
		end = n
	}
	rows := end - s.pos
	size := s.set.sampleSize()
	src := s.set.Data.Data().([]float64)
	backing := make([]float64, rows*size)
	var labels []int
	if s.set.Labels != nil {
		labels = make([]int, rows)
	}
	for i := 0; i < rows; i++ {
		idx := s.order[s.pos+i]
		copy(backing[i*size:(i+1)*size], src[idx*size:(idx+1)*size])
		if labels != nil {
			labels[i] = s.set.Labels[idx]
		}
	}
	s.pos = end
	shp := append([]int{rows}, s.set.SampleShape()...)
	return gan.Batch{
		Samples: tensor.New(tensor.WithShape(shp...), tensor.WithBacking(backing)),
		Labels:  labels,
	}, nil
}
