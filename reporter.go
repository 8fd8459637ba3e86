package gan

import (
	"go.uber.org/zap"
	"gorgonia.org/tensor"
)

// ProgressReporter Receives end-of-epoch progress: latest losses and a freshly generated batch of samples
type ProgressReporter interface {
	Report(epoch int, discriminatorLoss, generatorLoss float64, grid *tensor.Dense) error
}

// ReporterFunc Adapter to use ordinary function as ProgressReporter
type ReporterFunc func(epoch int, discriminatorLoss, generatorLoss float64, grid *tensor.Dense) error

// Report calls f
func (f ReporterFunc) Report(epoch int, discriminatorLoss, generatorLoss float64, grid *tensor.Dense) error {
	return f(epoch, discriminatorLoss, generatorLoss, grid)
}

// MultiReporter Fans out progress to every reporter in order. Stops on first error
type MultiReporter []ProgressReporter

// Report implements ProgressReporter
func (m MultiReporter) Report(epoch int, discriminatorLoss, generatorLoss float64, grid *tensor.Dense) error {
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Report(epoch, discriminatorLoss, generatorLoss, grid); err != nil {
			return err
		}
	}
	return nil
}

// LogReporter Writes progress as structured log entries
type LogReporter struct {
	Logger *zap.Logger
}

// NewLogReporter Creates LogReporter. Nil logger means no-op
func NewLogReporter(logger *zap.Logger) *LogReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogReporter{Logger: logger}
}

// Report implements ProgressReporter
func (r *LogReporter) Report(epoch int, discriminatorLoss, generatorLoss float64, grid *tensor.Dense) error {
	fields := []zap.Field{
		zap.Int("epoch", epoch),
		zap.Float64("discriminator_loss", discriminatorLoss),
		zap.Float64("generator_loss", generatorLoss),
	}
	if grid != nil {
		fields = append(fields, zap.Ints("grid_shape", grid.Shape()))
	}
	r.Logger.Info("epoch finished", fields...)
	return nil
}
