package gan

import (
	"context"
	"io"
	"math"
	"math/rand"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gorgonia.org/tensor"
)

// StepResult Outcome of single (discriminator, generator) update pair
type StepResult struct {
	Epoch             int
	Batch             int
	BatchSize         int
	DiscriminatorLoss float64
	GeneratorLoss     float64
	Discriminator     StepShapes
	Generator         StepShapes
}

// EpochStats Aggregated losses of single epoch
type EpochStats struct {
	Epoch   int
	Batches int
	Skipped int

	DiscriminatorLossMean float64
	DiscriminatorLossStd  float64
	DiscriminatorLossMin  float64
	GeneratorLossMean     float64
	GeneratorLossStd      float64
	GeneratorLossMin      float64

	// Last* Values passed to ProgressReporter
	LastDiscriminatorLoss float64
	LastGeneratorLoss     float64

	Duration time.Duration
}

// Summary Outcome of training run
type Summary struct {
	Device          Device
	Epochs          []EpochStats
	SkippedBatches  int
	NumericWarnings int
}

// Option Functional option for Trainer
type Option func(*Trainer)

// WithLogger Sets logger. Default is no-op logger
func WithLogger(logger *zap.Logger) Option {
	return func(t *Trainer) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithPhaseHook Sets observer of phase transitions
func WithPhaseHook(hook PhaseHook) Option {
	return func(t *Trainer) {
		t.phases.hook = hook
	}
}

// WithStepObserver Sets callback which receives result of every completed step
func WithStepObserver(observer func(StepResult)) Option {
	return func(t *Trainer) {
		t.stepObserver = observer
	}
}

// WithNetworks Replaces networks built from configuration by user-defined ones
func WithNetworks(generator *Generator, discriminator *Discriminator) Option {
	return func(t *Trainer) {
		t.generator = generator
		t.discriminator = discriminator
	}
}

// Trainer Adversarial training loop over mini-batches of SampleSource
//
// Each batch is processed as: discriminator update on real+fake samples, then generator update against
// already updated discriminator. After each epoch latest losses and a fresh grid of samples go to ProgressReporter.
//
type Trainer struct {
	cfg      Config
	source   SampleSource
	reporter ProgressReporter
	logger   *zap.Logger

	generator     *Generator
	discriminator *Discriminator
	model         *GAN

	phases       phaseTracker
	stepObserver func(StepResult)

	lastDiscriminatorLoss float64
	lastGeneratorLoss     float64
	summary               Summary
}

// NewTrainer Prepares networks, solvers and graphs for training
//
// cfg - validated configuration
// source - provider of real samples, its SampleShape() defines shape of generated samples
// reporter - receives end-of-epoch progress. Nil means structured logging only
//
func NewTrainer(cfg Config, source SampleSource, reporter ProgressReporter, opts ...Option) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "Invalid configuration")
	}
	if source == nil {
		return nil, errors.New("Sample source must be provided")
	}
	t := &Trainer{
		cfg:                   cfg,
		source:                source,
		reporter:              reporter,
		logger:                zap.NewNop(),
		phases:                phaseTracker{current: PhaseEpochStart},
		lastDiscriminatorLoss: math.NaN(),
		lastGeneratorLoss:     math.NaN(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.reporter == nil {
		t.reporter = NewLogReporter(t.logger)
	}

	sampleShape := source.SampleShape()
	weightsRng := rand.New(rand.NewSource(cfg.Seed))
	latentRng := rand.New(rand.NewSource(cfg.Seed + 1))
	maskRng := rand.New(rand.NewSource(cfg.Seed + 2))
	var err error
	if t.generator == nil {
		t.generator, err = NewGenerator(weightsRng, cfg.LatentDim, sampleShape, cfg.Generator)
		if err != nil {
			return nil, errors.Wrap(err, "Can't create Generator")
		}
	}
	if t.discriminator == nil {
		t.discriminator, err = NewDiscriminator(weightsRng, sampleShape, cfg.Discriminator)
		if err != nil {
			return nil, errors.Wrap(err, "Can't create Discriminator")
		}
	}
	if !sameShape(t.discriminator.SampleShape(), tensor.Shape(sampleShape)) {
		return nil, shapeMismatch("source sample shape", t.discriminator.SampleShape(), tensor.Shape(sampleShape))
	}
	distribution, err := ParseLatentDistribution(cfg.LatentDistribution)
	if err != nil {
		return nil, err
	}
	generatorSolver, err := newSolver(cfg.Optimizer, cfg.LearnRate)
	if err != nil {
		return nil, err
	}
	discriminatorSolver, err := newSolver(cfg.Optimizer, cfg.LearnRate)
	if err != nil {
		return nil, err
	}
	device := resolveDevice(cfg.Device, t.logger)
	t.summary.Device = device
	t.model, err = NewGAN(t.generator, t.discriminator, generatorSolver, discriminatorSolver, NewLatentSampler(latentRng, cfg.LatentDim, distribution), device, WithMaskSource(maskRng))
	if err != nil {
		return nil, errors.Wrap(err, "Can't create GAN")
	}
	return t, nil
}

// GAN Returns underlying model (e.g. for sampling after training)
func (t *Trainer) GAN() *GAN {
	return t.model
}

// Close Releases graph programs
func (t *Trainer) Close() error {
	return t.model.Close()
}

// Run Trains for cfg.NumEpochs epochs. Cancellation of ctx is honoured between epochs only
//
// Returns summary of completed epochs (even on error) and first fatal error
//
func (t *Trainer) Run(ctx context.Context) (*Summary, error) {
	for epoch := 0; epoch < t.cfg.NumEpochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return &t.summary, errors.Wrapf(err, "Training stopped before epoch %d", epoch)
		}
		if epoch > 0 {
			if err := t.phases.move(epoch, -1, PhaseEpochStart); err != nil {
				return &t.summary, t.fatal(epoch, -1, err)
			}
		}
		stats, err := t.runEpoch(epoch)
		if err != nil {
			return &t.summary, err
		}
		t.summary.Epochs = append(t.summary.Epochs, stats)
	}
	if err := t.phases.move(t.cfg.NumEpochs, -1, PhaseDone); err != nil {
		return &t.summary, t.fatal(t.cfg.NumEpochs, -1, err)
	}
	return &t.summary, nil
}

func (t *Trainer) runEpoch(epoch int) (EpochStats, error) {
	st := time.Now()
	stats := EpochStats{Epoch: epoch}
	if err := t.source.Reset(); err != nil {
		return stats, t.fatal(epoch, 0, &DataUnavailableError{Epoch: epoch, Batch: 0, Err: err})
	}
	dLosses := make([]float64, 0)
	gLosses := make([]float64, 0)
	for batchIdx := 0; ; batchIdx++ {
		batch, err := t.source.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, t.fatal(epoch, batchIdx, &DataUnavailableError{Epoch: epoch, Batch: batchIdx, Err: err})
		}
		if err = t.phases.move(epoch, batchIdx, PhaseBatchReady); err != nil {
			return stats, t.fatal(epoch, batchIdx, err)
		}
		result, err := t.step(epoch, batchIdx, batch)
		if errors.Is(err, ErrEmptyBatch) {
			stats.Skipped++
			t.summary.SkippedBatches++
			t.logger.Warn("empty batch skipped", zap.Int("epoch", epoch), zap.Int("batch", batchIdx))
			continue
		}
		if err != nil {
			return stats, t.fatal(epoch, batchIdx, err)
		}
		stats.Batches++
		dLosses = append(dLosses, result.DiscriminatorLoss)
		gLosses = append(gLosses, result.GeneratorLoss)
		if t.cfg.LogEvery > 0 && batchIdx%t.cfg.LogEvery == 0 {
			t.logger.Debug("step",
				zap.Int("epoch", epoch),
				zap.Int("batch", batchIdx),
				zap.Int("batch_size", result.BatchSize),
				zap.Float64("discriminator_loss", result.DiscriminatorLoss),
				zap.Float64("generator_loss", result.GeneratorLoss),
			)
		}
		if t.stepObserver != nil {
			t.stepObserver(result)
		}
	}
	if err := t.phases.move(epoch, -1, PhaseEpochEnd); err != nil {
		return stats, t.fatal(epoch, -1, err)
	}

	stats.DiscriminatorLossMean, stats.DiscriminatorLossStd, stats.DiscriminatorLossMin = describe(dLosses)
	stats.GeneratorLossMean, stats.GeneratorLossStd, stats.GeneratorLossMin = describe(gLosses)
	stats.LastDiscriminatorLoss = t.lastDiscriminatorLoss
	stats.LastGeneratorLoss = t.lastGeneratorLoss

	var grid *tensor.Dense
	if t.cfg.GridSize > 0 {
		var err error
		grid, err = t.model.Sample(t.cfg.GridSize)
		if err != nil {
			return stats, t.fatal(epoch, -1, errors.Wrap(err, "Can't generate samples for report"))
		}
	}
	if err := t.reporter.Report(epoch, t.lastDiscriminatorLoss, t.lastGeneratorLoss, grid); err != nil {
		return stats, t.fatal(epoch, -1, errors.Wrap(err, "Can't report progress"))
	}
	stats.Duration = time.Since(st)
	t.logger.Info("epoch done",
		zap.Int("epoch", epoch),
		zap.Int("batches", stats.Batches),
		zap.Int("skipped", stats.Skipped),
		zap.Float64("discriminator_loss_mean", stats.DiscriminatorLossMean),
		zap.Float64("generator_loss_mean", stats.GeneratorLossMean),
		zap.Duration("took", stats.Duration),
	)
	return stats, nil
}

// step Does discriminator update and then generator update on the same batch. Batch size is taken from batch itself
func (t *Trainer) step(epoch, batchIdx int, batch Batch) (StepResult, error) {
	batchSize := batch.Size()
	if batchSize == 0 {
		return StepResult{}, ErrEmptyBatch
	}
	if batchSize > t.cfg.BatchSize {
		err := shapeMismatch("batch size", append(tensor.Shape{t.cfg.BatchSize}, t.model.SampleShape()...), batch.Samples.Shape())
		locate(err, epoch, batchIdx)
		return StepResult{}, err
	}
	result := StepResult{
		Epoch:     epoch,
		Batch:     batchIdx,
		BatchSize: batchSize,
	}

	dLoss, dShapes, err := t.model.TrainDiscriminator(batch.Samples)
	if err != nil {
		locate(err, epoch, batchIdx)
		return result, err
	}
	result.DiscriminatorLoss = dLoss
	result.Discriminator = dShapes
	t.lastDiscriminatorLoss = dLoss
	if err = t.phases.move(epoch, batchIdx, PhaseDiscriminatorUpdated); err != nil {
		return result, err
	}

	gLoss, gShapes, err := t.model.TrainGenerator(batchSize)
	if err != nil {
		locate(err, epoch, batchIdx)
		return result, err
	}
	result.GeneratorLoss = gLoss
	result.Generator = gShapes
	t.lastGeneratorLoss = gLoss
	if err = t.phases.move(epoch, batchIdx, PhaseGeneratorUpdated); err != nil {
		return result, err
	}

	if err = t.checkFinite(epoch, batchIdx, "discriminator", dLoss); err != nil {
		return result, err
	}
	if err = t.checkFinite(epoch, batchIdx, "generator", gLoss); err != nil {
		return result, err
	}
	return result, nil
}

func (t *Trainer) checkFinite(epoch, batchIdx int, network string, loss float64) error {
	if isFinite(loss) {
		return nil
	}
	t.summary.NumericWarnings++
	instability := &NumericInstabilityError{Epoch: epoch, Batch: batchIdx, Network: network, Value: loss}
	t.logger.Warn("non-finite loss", zap.Error(instability))
	if t.cfg.AbortOnNonFinite {
		return instability
	}
	return nil
}

func (t *Trainer) fatal(epoch, batchIdx int, err error) error {
	locate(err, epoch, batchIdx)
	return &StepError{
		Epoch: epoch,
		Batch: batchIdx,
		Phase: t.phases.current,
		Err:   err,
	}
}

// describe Returns mean, standard deviation and minimum. NaNs for empty input
func describe(values []float64) (float64, float64, float64) {
	if len(values) == 0 {
		return math.NaN(), math.NaN(), math.NaN()
	}
	mean := stat.Mean(values, nil)
	std := 0.0
	if len(values) > 1 {
		std = stat.StdDev(values, nil)
	}
	return mean, std, floats.Min(values)
}

// Train Creates Trainer and runs it until all epochs are done or fatal error occurs
func Train(ctx context.Context, cfg Config, source SampleSource, reporter ProgressReporter, opts ...Option) (*Summary, error) {
	t, err := NewTrainer(cfg, source, reporter, opts...)
	if err != nil {
		return nil, err
	}
	defer t.Close()
	return t.Run(ctx)
}
