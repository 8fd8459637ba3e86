package gan

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorgonia.org/tensor"
)

func TestMultiReporter(t *testing.T) {
	var order []string
	first := ReporterFunc(func(epoch int, _, _ float64, _ *tensor.Dense) error {
		order = append(order, "first")
		return nil
	})
	failing := ReporterFunc(func(epoch int, _, _ float64, _ *tensor.Dense) error {
		order = append(order, "failing")
		return errors.New("broken")
	})
	never := ReporterFunc(func(epoch int, _, _ float64, _ *tensor.Dense) error {
		order = append(order, "never")
		return nil
	})
	err := MultiReporter{first, nil, failing, never}.Report(0, 1, 1, nil)
	assert.Error(t, err)
	assert.Equal(t, []string{"first", "failing"}, order)
}

func TestLogReporter(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := NewLogReporter(zap.New(core))
	grid := tensor.New(tensor.WithShape(2, 3), tensor.WithBacking(make([]float64, 6)))
	assert.NoError(t, r.Report(3, 0.5, 0.7, grid))

	entries := logs.FilterMessage("epoch finished").All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, int64(3), fields["epoch"])
		assert.Equal(t, 0.5, fields["discriminator_loss"])
		assert.Equal(t, 0.7, fields["generator_loss"])
	}
}
