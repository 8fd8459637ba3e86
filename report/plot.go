package report

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gorgonia.org/tensor"
)

// PlotXY Plot chart for input y(x)
func PlotXY(x, y tensor.Tensor, fname string) error {
	if x.Dims() != 1 {
		return fmt.Errorf("X must have one dimension, but got %d", x.Dims())
	}
	if y.Dims() != 1 {
		return fmt.Errorf("Y(X) must have one dimension, but got %d", y.Dims())
	}
	if x.DataSize() != y.DataSize() {
		return fmt.Errorf("X and Y(X) must have same number of elements, but X has %d elements and Y(X) has %d elements", x.DataSize(), y.DataSize())
	}
	scatterData := make(plotter.XYs, 0, x.DataSize())
	for i := 0; i < x.DataSize(); i++ {
		xval, err := x.At(i)
		if err != nil {
			return errors.Wrap(err, "Can't select X-value")
		}
		yval, err := y.At(i)
		if err != nil {
			return errors.Wrap(err, "Can't select Y(x)-value")
		}
		xf, ok := xval.(float64)
		if !ok {
			return fmt.Errorf("X must contain float64 values, but got %T", xval)
		}
		yf, ok := yval.(float64)
		if !ok {
			return fmt.Errorf("Y(X) must contain float64 values, but got %T", yval)
		}
		// Diverged generator may produce NaNs, scatter refuses them
		if !finite(xf) || !finite(yf) {
			continue
		}
		scatterData = append(scatterData, plotter.XY{X: xf, Y: yf})
	}
	p := plot.New()
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Y"
	p.Add(plotter.NewGrid())
	if len(scatterData) > 0 {
		scatter, err := plotter.NewScatter(scatterData)
		if err != nil {
			return errors.Wrap(err, "Can't init new scatter")
		}
		scatter.GlyphStyle.Color = color.RGBA{R: 255, B: 128, A: 255}
		p.Add(scatter)
	}
	// Save the plot to a PNG file.
	if err := p.Save(4*vg.Inch, 4*vg.Inch, fname); err != nil {
		return errors.Wrap(err, "Can't save plot")
	}
	return nil
}

// grayImage Converts (rows, cols) values in [-1; 1] into grayscale image. Values outside are clipped
func grayImage(values []float64, rows, cols int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, cols, rows))
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v := (values[r*cols+c] + 1) / 2
			if !finite(v) || v < 0 {
				v = 0
			}
			if v > 1 {
				v = 1
			}
			img.SetGray(c, r, color.Gray{Y: uint8(math.Round(v * 255))})
		}
	}
	return img
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
