package gan

import (
	"fmt"

	"github.com/pkg/errors"
)

// Phase State of training loop
type Phase uint8

const (
	PhaseEpochStart = Phase(iota)
	PhaseBatchReady
	PhaseDiscriminatorUpdated
	PhaseGeneratorUpdated
	PhaseEpochEnd
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseEpochStart:
		return "epoch_start"
	case PhaseBatchReady:
		return "batch_ready"
	case PhaseDiscriminatorUpdated:
		return "discriminator_updated"
	case PhaseGeneratorUpdated:
		return "generator_updated"
	case PhaseEpochEnd:
		return "epoch_end"
	case PhaseDone:
		return "done"
	default:
		return fmt.Sprintf("Phase(%d)", uint8(p))
	}
}

// allowedTransitions Empty batch moves BatchReady to the next BatchReady (or EpochEnd) without updates
var allowedTransitions = map[Phase][]Phase{
	PhaseEpochStart:           {PhaseBatchReady, PhaseEpochEnd},
	PhaseBatchReady:           {PhaseDiscriminatorUpdated, PhaseBatchReady, PhaseEpochEnd},
	PhaseDiscriminatorUpdated: {PhaseGeneratorUpdated},
	PhaseGeneratorUpdated:     {PhaseBatchReady, PhaseEpochEnd},
	PhaseEpochEnd:             {PhaseEpochStart, PhaseDone},
	PhaseDone:                 {},
}

// CanTransition Checks whether loop may move from one phase to another
func CanTransition(from, to Phase) bool {
	for _, p := range allowedTransitions[from] {
		if p == to {
			return true
		}
	}
	return false
}

// Transition Single observed move of training loop
type Transition struct {
	Epoch int
	Batch int
	From  Phase
	To    Phase
}

// PhaseHook Observer of every transition. Returning an error aborts training
type PhaseHook func(t Transition) error

// phaseTracker Current phase of a run plus validation of moves
type phaseTracker struct {
	current Phase
	hook    PhaseHook
}

func (pt *phaseTracker) move(epoch, batch int, to Phase) error {
	if !CanTransition(pt.current, to) {
		return errors.Wrapf(ErrInvalidTransition, "%s -> %s", pt.current, to)
	}
	t := Transition{Epoch: epoch, Batch: batch, From: pt.current, To: to}
	pt.current = to
	if pt.hook != nil {
		if err := pt.hook(t); err != nil {
			return errors.Wrap(err, "Phase hook failed")
		}
	}
	return nil
}
