package main

import (
	"context"
	"os"
	"os/signal"

	gan "github.com/AimenD/nhlstenden"
	"github.com/AimenD/nhlstenden/dataset"
	"github.com/AimenD/nhlstenden/report"
	"github.com/alexflint/go-arg"
	"go.uber.org/zap"
)

func main() {
	args := struct {
		Config    string  `arg:"--config" help:"YAML file with training configuration"`
		DataDir   string  `arg:"--data" help:"folder with MNIST IDX files (plain or .gz)"`
		Output    string  `arg:"--output" help:"folder for charts"`
		BatchSize int     `arg:"--batch-size" help:"override batch size"`
		Epochs    int     `arg:"--epochs" help:"override number of epochs"`
		Device    string  `arg:"--device" help:"cpu or accelerator"`
		Seed      int64   `arg:"--seed" help:"override seed"`
		LearnRate float64 `arg:"--lr" help:"override learning rate"`
		Verbose   bool    `arg:"-v,--verbose" help:"debug logging"`
	}{
		DataDir: "./mnist",
		Output:  "./output",
	}
	arg.MustParse(&args)

	logger := newLogger(args.Verbose)
	defer logger.Sync()

	cfg := gan.DefaultConfig()
	if args.Config != "" {
		var err error
		cfg, err = gan.LoadConfig(args.Config)
		if err != nil {
			logger.Fatal("can't load config", zap.Error(err))
		}
	}
	err := cfg.ApplyOverrides(gan.Overrides{
		BatchSize: args.BatchSize,
		NumEpochs: args.Epochs,
		Device:    args.Device,
		Seed:      args.Seed,
		LearnRate: args.LearnRate,
	})
	if err != nil {
		logger.Fatal("bad flags", zap.Error(err))
	}

	trainSet, err := dataset.LoadMNIST(args.DataDir)
	if err != nil {
		logger.Fatal("can't load MNIST", zap.String("dir", args.DataDir), zap.Error(err))
	}
	logger.Info("dataset loaded", zap.Int("samples", trainSet.Len()), zap.Ints("sample_shape", trainSet.SampleShape()))

	source, err := dataset.NewSliceSource(trainSet, cfg.BatchSize, dataset.WithShuffle(cfg.Seed))
	if err != nil {
		logger.Fatal("can't prepare batches", zap.Error(err))
	}
	plots, err := report.NewPlotReporter(args.Output, report.WithLogger(logger))
	if err != nil {
		logger.Fatal("can't prepare output", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	summary, err := gan.Train(ctx, cfg, source, gan.MultiReporter{gan.NewLogReporter(logger), plots}, gan.WithLogger(logger))
	if err != nil {
		logger.Fatal("training failed", zap.Error(err))
	}
	logger.Info("training finished",
		zap.Stringer("device", summary.Device),
		zap.Int("epochs", len(summary.Epochs)),
		zap.Int("skipped_batches", summary.SkippedBatches),
		zap.Int("numeric_warnings", summary.NumericWarnings),
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
