// Package plot renders trajectories and invariant drift as PNG images and
// terminal charts.
package plot

import (
	"bufio"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/guptarohit/asciigraph"
	gonumplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

var ErrNoData = errors.New("nothing to plot")

// Series is one labelled curve.
type Series struct {
	Label string
	X, Y  []float64
}

// Options controls the size of rendered images.
type Options struct {
	Width, Height float64 // inches
	DPI           int
	LogY          bool
}

func DefaultOptions() Options {
	return Options{Width: 8, Height: 6, DPI: 150}
}

func stylePlot(p *gonumplot.Plot) {
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.Title.Padding = vg.Points(8)

	p.X.Label.TextStyle.Font.Size = vg.Points(13)
	p.Y.Label.TextStyle.Font.Size = vg.Points(13)
	p.X.Label.Padding = vg.Points(6)
	p.Y.Label.Padding = vg.Points(6)

	p.X.Tick.Label.Font.Size = vg.Points(11)
	p.Y.Tick.Label.Font.Size = vg.Points(11)

	p.Legend.Top = true
	p.Legend.TextStyle.Font.Size = vg.Points(11)
	p.Add(plotter.NewGrid())
}

func points(s Series, logY bool) plotter.XYs {
	pts := make(plotter.XYs, 0, len(s.X))
	for i := range s.X {
		x, y := s.X[i], s.Y[i]
		if logY {
			y = math.Abs(y)
			if y == 0 {
				continue
			}
		}
		if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: x, Y: y})
	}
	return pts
}

// Lines builds a line chart with one curve per series.
func Lines(title, xlabel, ylabel string, series []Series, logY bool) (*gonumplot.Plot, error) {
	p := gonumplot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel
	stylePlot(p)
	if logY {
		p.Y.Scale = gonumplot.LogScale{}
		p.Y.Tick.Marker = gonumplot.LogTicks{Prec: -1}
	}

	drawn := 0
	for i, s := range series {
		if len(s.X) != len(s.Y) {
			return nil, fmt.Errorf("series %q: %d x values, %d y values", s.Label, len(s.X), len(s.Y))
		}
		pts := points(s, logY)
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("series %q: %w", s.Label, err)
		}
		line.LineStyle.Width = vg.Points(1.5)
		line.LineStyle.Color = plotutil.Color(i)
		p.Add(line)
		if s.Label != "" {
			p.Legend.Add(s.Label, line)
		}
		drawn++
	}
	if drawn == 0 {
		return nil, ErrNoData
	}
	return p, nil
}

// Orbits plots trajectories in the (q1, q2) plane with equal axes and the
// central body at the origin.
func Orbits(title string, orbits []Series) (*gonumplot.Plot, error) {
	p, err := Lines(title, "q1", "q2", orbits, false)
	if err != nil {
		return nil, err
	}

	body, err := plotter.NewScatter(plotter.XYs{{X: 0, Y: 0}})
	if err != nil {
		return nil, err
	}
	body.GlyphStyle.Shape = draw.CircleGlyph{}
	body.GlyphStyle.Radius = vg.Points(4)
	p.Add(body)

	// Equal scales so ellipses are not distorted.
	span := math.Max(p.X.Max-p.X.Min, p.Y.Max-p.Y.Min) * 1.05
	cx, cy := (p.X.Min+p.X.Max)/2, (p.Y.Min+p.Y.Max)/2
	p.X.Min, p.X.Max = cx-span/2, cx+span/2
	p.Y.Min, p.Y.Max = cy-span/2, cy+span/2
	return p, nil
}

// SavePNG renders p to filename, creating parent directories.
func SavePNG(p *gonumplot.Plot, opts Options, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("cannot create directory: %w", err)
	}
	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(opts.Width)*vg.Inch, vg.Length(opts.Height)*vg.Inch),
		vgimg.UseDPI(opts.DPI),
	)
	p.Draw(draw.New(c))

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("cannot create png: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(bw); err != nil {
		return fmt.Errorf("cannot write png: %w", err)
	}
	return bw.Flush()
}

// Terminal draws series with asciigraph. Series are resampled to at most
// width points.
func Terminal(caption string, series []Series, width, height int) (string, error) {
	data := make([][]float64, 0, len(series))
	names := make([]string, 0, len(series))
	for _, s := range series {
		ys := decimate(s.Y, width)
		if len(ys) == 0 {
			continue
		}
		data = append(data, ys)
		names = append(names, s.Label)
	}
	if len(data) == 0 {
		return "", ErrNoData
	}

	colors := []asciigraph.AnsiColor{asciigraph.Blue, asciigraph.Red, asciigraph.Green, asciigraph.Yellow, asciigraph.Magenta, asciigraph.Cyan}
	opts := []asciigraph.Option{
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(colors[:min(len(data), len(colors))]...),
	}
	if len(names) > 1 {
		opts = append(opts, asciigraph.SeriesLegends(names...))
	}
	return asciigraph.PlotMany(data, opts...), nil
}

func decimate(ys []float64, n int) []float64 {
	out := make([]float64, 0, n)
	if len(ys) <= n || n <= 0 {
		for _, y := range ys {
			if !math.IsNaN(y) && !math.IsInf(y, 0) {
				out = append(out, y)
			}
		}
		return out
	}
	for i := 0; i < n; i++ {
		y := ys[i*(len(ys)-1)/(n-1)]
		if !math.IsNaN(y) && !math.IsInf(y, 0) {
			out = append(out, y)
		}
	}
	return out
}
