package main

import (
	"context"
	"math/rand"
	"path/filepath"

	gan "github.com/AimenD/nhlstenden"
	"github.com/AimenD/nhlstenden/dataset"
	"github.com/AimenD/nhlstenden/report"
	"github.com/alexflint/go-arg"
	"go.uber.org/zap"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func main() {
	args := struct {
		Output         string `arg:"--output" help:"folder for charts"`
		Samples        int    `arg:"--samples" help:"size of synthetic train set"`
		Epochs         int    `arg:"--epochs" help:"number of epochs"`
		EvalPrint      int    `arg:"--eval-print" help:"plot generated samples every N epochs"`
		NumTestSamples int    `arg:"--test-samples" help:"number of generated points per chart"`
		Verbose        bool   `arg:"-v,--verbose" help:"debug logging"`
	}{
		Output:         "./output",
		Samples:        1024,
		Epochs:         400,
		EvalPrint:      20,
		NumTestSamples: 300,
	}
	arg.MustParse(&args)
	if args.EvalPrint <= 0 {
		args.EvalPrint = 1
	}

	logger := newLogger(args.Verbose)
	defer logger.Sync()

	cfg := gan.DefaultConfig()
	cfg.Seed = 1337
	cfg.BatchSize = 16
	cfg.NumEpochs = args.Epochs
	cfg.LatentDim = 2
	cfg.Optimizer = "rmsprop"
	cfg.LearnRate = 0.001
	cfg.GridSize = args.NumTestSamples
	cfg.Generator = gan.NetworkConfig{
		Hidden:           []int{16, 32, 16},
		Activation:       "relu",
		OutputActivation: "tanh",
	}
	cfg.Discriminator = gan.NetworkConfig{
		Hidden:           []int{256, 128, 64, 32},
		Activation:       "relu",
		OutputActivation: "sigmoid",
	}

	// Prepare synthetic data, both axes are in [-1; 1]
	trainSet, err := dataset.Sine(args.Samples, rand.New(rand.NewSource(cfg.Seed)))
	if err != nil {
		logger.Fatal("can't generate train set", zap.Error(err))
	}
	plots, err := report.NewPlotReporter(args.Output, report.WithLogger(logger))
	if err != nil {
		logger.Fatal("can't prepare output", zap.Error(err))
	}

	// Plot reference function
	slicedXAxis, err := trainSet.Data.Slice(nil, gorgonia.S(0))
	if err != nil {
		logger.Fatal("can't slice X", zap.Error(err))
	}
	slicedYAxis, err := trainSet.Data.Slice(nil, gorgonia.S(1))
	if err != nil {
		logger.Fatal("can't slice Y(X)", zap.Error(err))
	}
	err = report.PlotXY(slicedXAxis.Materialize(), slicedYAxis.Materialize(), filepath.Join(args.Output, "reference_function.png"))
	if err != nil {
		logger.Fatal("can't plot reference function", zap.Error(err))
	}

	source, err := dataset.NewSliceSource(trainSet, cfg.BatchSize, dataset.WithShuffle(cfg.Seed))
	if err != nil {
		logger.Fatal("can't prepare batches", zap.Error(err))
	}
	// Charts are drawn only every 'EvalPrint' epochs and after the last one
	everyN := gan.ReporterFunc(func(epoch int, discriminatorLoss, generatorLoss float64, grid *tensor.Dense) error {
		if epoch%args.EvalPrint != 0 && epoch != cfg.NumEpochs-1 {
			return nil
		}
		return plots.Report(epoch, discriminatorLoss, generatorLoss, grid)
	})

	summary, err := gan.Train(context.Background(), cfg, source, gan.MultiReporter{gan.NewLogReporter(logger), everyN}, gan.WithLogger(logger))
	if err != nil {
		logger.Fatal("training failed", zap.Error(err))
	}
	last := summary.Epochs[len(summary.Epochs)-1]
	logger.Info("training finished",
		zap.Float64("discriminator_loss", last.LastDiscriminatorLoss),
		zap.Float64("generator_loss", last.LastGeneratorLoss),
	)
}

func newLogger(verbose bool) *zap.Logger {
	var logger *zap.Logger
	var err error
	if verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return logger
}
