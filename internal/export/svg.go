package export

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/san-kum/keplersim/internal/viz"
)

// Palette is cycled for series without an explicit color.
var Palette = []string{"#00ccff", "#ff6b6b", "#5fd068", "#feca57", "#ff9ff3", "#8888ff"}

// CanvasToSVG converts a Braille canvas to SVG format
func CanvasToSVG(canvas *viz.Canvas, scale float64, color string) string {
	if canvas == nil {
		return ""
	}
	if color == "" {
		color = Palette[0]
	}

	width := float64(canvas.SubWidth()) * scale
	height := float64(canvas.SubHeight()) * scale

	var sb strings.Builder
	writeHeader(&sb, width, height)
	fmt.Fprintf(&sb, "<g fill=%q>\n", color)

	dotRadius := scale * 0.4
	for y := 0; y < canvas.SubHeight(); y++ {
		for x := 0; x < canvas.SubWidth(); x++ {
			if canvas.IsSet(x, y) {
				fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n",
					float64(x)*scale+scale/2, float64(y)*scale+scale/2, dotRadius)
			}
		}
	}

	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// Orbit is one trajectory in the orbital plane.
type Orbit struct {
	Label string
	Color string
	X, Y  []float64
}

// OrbitsToSVG draws every orbit on shared, equal axes around the central
// body at the origin, with a legend in the top left corner.
func OrbitsToSVG(orbits []Orbit, width, height int) string {
	minX, maxX, minY, maxY := 0.0, 0.0, 0.0, 0.0
	for _, o := range orbits {
		for i := range o.X {
			if !finite(o.X[i]) || !finite(o.Y[i]) {
				continue
			}
			minX, maxX = math.Min(minX, o.X[i]), math.Max(maxX, o.X[i])
			minY, maxY = math.Min(minY, o.Y[i]), math.Max(maxY, o.Y[i])
		}
	}
	span := math.Max(maxX-minX, maxY-minY) * 1.1
	if span == 0 {
		span = 1
	}
	scale := math.Min(float64(width), float64(height)) / span
	cx, cy := (minX+maxX)/2, (minY+maxY)/2
	project := func(x, y float64) (float64, float64) {
		return float64(width)/2 + (x-cx)*scale, float64(height)/2 - (y-cy)*scale
	}

	var sb strings.Builder
	writeHeader(&sb, float64(width), float64(height))

	for i, o := range orbits {
		color := o.Color
		if color == "" {
			color = Palette[i%len(Palette)]
		}
		if d := pathData(o, project); d != "" {
			fmt.Fprintf(&sb, "<path fill=\"none\" stroke=%q stroke-width=\"1.5\" d=%q/>\n", color, d)
		}
		if o.Label != "" {
			y := 18 + 16*i
			fmt.Fprintf(&sb, "<rect x=\"10\" y=\"%d\" width=\"12\" height=\"4\" fill=%q/>\n", y-4, color)
			fmt.Fprintf(&sb, "<text x=\"28\" y=\"%d\" fill=\"#e0e0e0\" font-family=\"monospace\" font-size=\"12\">%s</text>\n", y, escape(o.Label))
		}
	}

	sx, sy := project(0, 0)
	fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"4\" fill=\"#ffd700\"/>\n", sx, sy)
	sb.WriteString("</svg>")
	return sb.String()
}

func pathData(o Orbit, project func(x, y float64) (float64, float64)) string {
	var d strings.Builder
	pen := false
	for i := range o.X {
		if !finite(o.X[i]) || !finite(o.Y[i]) {
			pen = false
			continue
		}
		x, y := project(o.X[i], o.Y[i])
		if pen {
			fmt.Fprintf(&d, " L%.1f,%.1f", x, y)
		} else {
			if d.Len() > 0 {
				d.WriteByte(' ')
			}
			fmt.Fprintf(&d, "M%.1f,%.1f", x, y)
			pen = true
		}
	}
	return d.String()
}

// WriteFile saves svg to path.
func WriteFile(path, svg string) error {
	if err := os.WriteFile(path, []byte(svg), 0o644); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}

func writeHeader(sb *strings.Builder, width, height float64) {
	fmt.Fprintf(sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func escape(s string) string { return escaper.Replace(s) }
