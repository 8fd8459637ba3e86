package report

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

const (
	// LossesFile Name of loss history chart inside output directory
	LossesFile = "losses.png"
)

// PlotReporter Saves generated samples and loss history as PNG files after each epoch
//
// Samples of shape (H, W) are drawn as grid of grayscale images ("samples_epoch_XXX.png"),
// samples of shape (2) are drawn as scatter of (x, y) points ("gen_reference_func_XXX.png").
//
type PlotReporter struct {
	dir      string
	tileSize vg.Length
	logger   *zap.Logger
	epochs   []int
	dLosses  []float64
	gLosses  []float64
}

// PlotOption Functional option for PlotReporter
type PlotOption func(*PlotReporter)

// WithLogger Sets logger for PlotReporter
func WithLogger(logger *zap.Logger) PlotOption {
	return func(r *PlotReporter) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithTileSize Sets size of single sample tile in image grid
func WithTileSize(size vg.Length) PlotOption {
	return func(r *PlotReporter) {
		if size > 0 {
			r.tileSize = size
		}
	}
}

// NewPlotReporter Creates reporter which writes charts into dir (created if missing)
func NewPlotReporter(dir string, opts ...PlotOption) (*PlotReporter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("Can't create output folder '%s'", dir))
	}
	r := &PlotReporter{
		dir:      dir,
		tileSize: 1.5 * vg.Inch,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Report implements gan.ProgressReporter
func (r *PlotReporter) Report(epoch int, discriminatorLoss, generatorLoss float64, grid *tensor.Dense) error {
	r.epochs = append(r.epochs, epoch)
	r.dLosses = append(r.dLosses, discriminatorLoss)
	r.gLosses = append(r.gLosses, generatorLoss)

	if grid != nil && grid.Dims() > 0 && grid.Shape()[0] > 0 {
		title := fmt.Sprintf("Epoch %d, D loss: %.4f, G loss: %.4f", epoch, discriminatorLoss, generatorLoss)
		sampleShape := grid.Shape()[1:]
		switch {
		case len(sampleShape) == 2:
			fname := filepath.Join(r.dir, fmt.Sprintf("samples_epoch_%03d.png", epoch))
			if err := r.saveImageGrid(grid, title, fname); err != nil {
				return errors.Wrap(err, "Can't save samples grid")
			}
		case len(sampleShape) == 1 && sampleShape[0] == 2:
			fname := filepath.Join(r.dir, fmt.Sprintf("gen_reference_func_%03d.png", epoch))
			if err := saveScatter(grid, fname); err != nil {
				return errors.Wrap(err, "Can't save samples scatter")
			}
		default:
			r.logger.Warn("samples can't be plotted", zap.Ints("shape", grid.Shape()))
		}
	}
	if err := r.saveLosses(); err != nil {
		return errors.Wrap(err, "Can't save losses chart")
	}
	r.logger.Debug("charts saved", zap.Int("epoch", epoch), zap.String("dir", r.dir))
	return nil
}

// saveImageGrid Draws every sample as grayscale tile of near-square grid with title on top
func (r *PlotReporter) saveImageGrid(grid *tensor.Dense, title, fname string) error {
	values, ok := grid.Data().([]float64)
	if !ok {
		return fmt.Errorf("Samples must be of float64 type, but got %v", grid.Dtype())
	}
	n, rows, cols := grid.Shape()[0], grid.Shape()[1], grid.Shape()[2]
	tilesCols := int(math.Ceil(math.Sqrt(float64(n))))
	tilesRows := (n + tilesCols - 1) / tilesCols

	plots := make([][]*plot.Plot, tilesRows)
	for j := range plots {
		plots[j] = make([]*plot.Plot, tilesCols)
		for i := range plots[j] {
			idx := j*tilesCols + i
			if idx >= n {
				continue
			}
			img := grayImage(values[idx*rows*cols:(idx+1)*rows*cols], rows, cols)
			p := plot.New()
			p.HideAxes()
			p.Add(plotter.NewImage(img, 0, 0, float64(cols), float64(rows)))
			plots[j][i] = p
		}
	}

	titleHeight := 0.5 * vg.Inch
	width := vg.Length(tilesCols) * r.tileSize
	height := vg.Length(tilesRows)*r.tileSize + titleHeight
	canvas := vgimg.New(width, height)
	dc := draw.New(canvas)

	header := plot.New()
	header.HideAxes()
	header.Title.Text = title
	header.Draw(draw.Crop(dc, 0, 0, height-titleHeight, 0))

	tiles := draw.Tiles{
		Rows: tilesRows,
		Cols: tilesCols,
		PadX: vg.Millimeter,
		PadY: vg.Millimeter,
	}
	canvases := plot.Align(plots, tiles, draw.Crop(dc, 0, 0, 0, -titleHeight))
	for j := range plots {
		for i := range plots[j] {
			if plots[j][i] != nil {
				plots[j][i].Draw(canvases[j][i])
			}
		}
	}

	f, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "Can't create file")
	}
	defer f.Close()
	png := vgimg.PngCanvas{Canvas: canvas}
	if _, err = png.WriteTo(f); err != nil {
		return errors.Wrap(err, "Can't write PNG")
	}
	return nil
}

// saveScatter Plots (N, 2) samples as (x, y) points
func saveScatter(grid *tensor.Dense, fname string) error {
	slicedXAxis, err := grid.Slice(nil, gorgonia.S(0))
	if err != nil {
		return errors.Wrap(err, "Can't slice X values")
	}
	slicedYAxis, err := grid.Slice(nil, gorgonia.S(1))
	if err != nil {
		return errors.Wrap(err, "Can't slice Y(X) values")
	}
	return PlotXY(slicedXAxis.Materialize(), slicedYAxis.Materialize(), fname)
}

// saveLosses Draws loss history of both networks. Non-finite values are left out
func (r *PlotReporter) saveLosses() error {
	dPoints := make(plotter.XYs, 0, len(r.epochs))
	gPoints := make(plotter.XYs, 0, len(r.epochs))
	for i, epoch := range r.epochs {
		if finite(r.dLosses[i]) {
			dPoints = append(dPoints, plotter.XY{X: float64(epoch), Y: r.dLosses[i]})
		}
		if finite(r.gLosses[i]) {
			gPoints = append(gPoints, plotter.XY{X: float64(epoch), Y: r.gLosses[i]})
		}
	}
	p := plot.New()
	p.Title.Text = "Losses"
	p.X.Label.Text = "Epoch"
	p.Y.Label.Text = "BCE"
	p.Add(plotter.NewGrid())
	lines := make([]interface{}, 0, 4)
	if len(dPoints) > 0 {
		lines = append(lines, "Discriminator", dPoints)
	}
	if len(gPoints) > 0 {
		lines = append(lines, "Generator", gPoints)
	}
	if len(lines) > 0 {
		if err := plotutil.AddLines(p, lines...); err != nil {
			return errors.Wrap(err, "Can't add lines")
		}
	}
	if err := p.Save(6*vg.Inch, 4*vg.Inch, filepath.Join(r.dir, LossesFile)); err != nil {
		return errors.Wrap(err, "Can't save plot")
	}
	return nil
}
