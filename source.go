package gan

import (
	"gorgonia.org/tensor"
)

// Batch Mini-batch of real samples
//
// Samples - tensor of shape (B, sampleShape...), B may be smaller than nominal batch size for the last batch of a pass
// Labels - class labels parallel to samples (not used by adversarial training, may be nil)
//
type Batch struct {
	Samples *tensor.Dense
	Labels  []int
}

// Size Returns number of samples in batch (zero for nil samples)
func (b Batch) Size() int {
	if b.Samples == nil || b.Samples.Dims() == 0 {
		return 0
	}
	return b.Samples.Shape()[0]
}

// SampleSource Provider of mini-batches of real samples
//
// Next returns io.EOF when current pass over data is finished. Any other error is treated as data unavailability.
// Reset starts a new pass (implementations may reshuffle).
// SampleShape returns shape of single sample.
//
type SampleSource interface {
	Next() (Batch, error)
	Reset() error
	SampleShape() []int
}
