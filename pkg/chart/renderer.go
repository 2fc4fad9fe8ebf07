package chart

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Renderer writes a chart to Spec.Path
type Renderer interface {
	Render(spec Spec) error
}

// PlotRenderer renders PNG charts with gonum/plot
type PlotRenderer struct {
	width  vg.Length
	height vg.Length
}

// NewPlotRenderer creates a renderer producing images of the given size in inches
func NewPlotRenderer(widthInch, heightInch float64) *PlotRenderer {
	return &PlotRenderer{
		width:  vg.Length(widthInch) * vg.Inch,
		height: vg.Length(heightInch) * vg.Inch,
	}
}

// Render draws spec and saves it, the image format follows the file extension
func (r *PlotRenderer) Render(spec Spec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	if spec.Empty() {
		return fmt.Errorf("chart %q has no data", spec.Title)
	}

	p := plot.New()
	p.Title.Text = spec.Title
	p.Y.Label.Text = spec.YLabel
	p.Legend.Top = true

	n := len(spec.Series)
	w := r.barWidth(len(spec.Labels), n)
	for i, ser := range spec.Series {
		bars, err := plotter.NewBarChart(plotter.Values(ser.Values), w)
		if err != nil {
			return fmt.Errorf("chart %q series %q: %w", spec.Title, ser.Name, err)
		}
		bars.LineStyle.Width = vg.Length(0)
		bars.Color = plotutil.Color(i)
		bars.Offset = vg.Length(float64(i)-float64(n-1)/2) * w
		p.Add(bars)
		if n > 1 {
			p.Legend.Add(ser.Name, bars)
		}
	}

	p.NominalX(spec.Labels...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter
	p.Y.Min = 0
	if spec.YMax > 0 {
		p.Y.Max = spec.YMax
	}
	p.Add(plotter.NewGrid())

	if err := os.MkdirAll(filepath.Dir(spec.Path), 0755); err != nil {
		return fmt.Errorf("failed to create chart directory: %w", err)
	}
	if err := p.Save(r.width, r.height, spec.Path); err != nil {
		return fmt.Errorf("failed to save chart %q: %w", spec.Title, err)
	}
	return nil
}

// barWidth spreads the bars of every label over most of the plot width
func (r *PlotRenderer) barWidth(labels, series int) vg.Length {
	slots := labels * series
	if slots == 0 {
		return vg.Points(10)
	}
	w := r.width * 0.7 / vg.Length(slots)
	if w < vg.Points(2) {
		w = vg.Points(2)
	}
	if w > vg.Points(40) {
		w = vg.Points(40)
	}
	return w
}
