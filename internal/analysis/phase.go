package analysis

import (
	"math"
	"strings"

	"github.com/san-kum/keplersim/internal/dynamo"
)

type Point struct{ X, Y float64 }

// PhasePortrait2D holds a projection of a trajectory onto two state
// components.
type PhasePortrait2D struct {
	XIndex, YIndex int
	Points         []Point
}

// Portrait projects a finished run onto components xIdx and yIdx.
func Portrait(res *dynamo.Result, xIdx, yIdx int) *PhasePortrait2D {
	if len(res.States) == 0 || xIdx >= len(res.States[0]) || yIdx >= len(res.States[0]) {
		return nil
	}
	p := &PhasePortrait2D{XIndex: xIdx, YIndex: yIdx, Points: make([]Point, len(res.States))}
	for i, x := range res.States {
		p.Points[i] = Point{x[xIdx], x[yIdx]}
	}
	return p
}

type bounds struct{ minX, maxX, minY, maxY float64 }

// squareBounds covers every point and the origin with equal scales on both
// axes, so orbits keep their shape.
func squareBounds(points []Point) bounds {
	b := bounds{}
	for _, p := range points {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) {
			continue
		}
		b.minX, b.maxX = math.Min(b.minX, p.X), math.Max(b.maxX, p.X)
		b.minY, b.maxY = math.Min(b.minY, p.Y), math.Max(b.maxY, p.Y)
	}
	span := math.Max(b.maxX-b.minX, b.maxY-b.minY) * 1.1
	if span == 0 {
		span = 1
	}
	cx, cy := (b.minX+b.maxX)/2, (b.minY+b.maxY)/2
	return bounds{cx - span/2, cx + span/2, cy - span/2, cy + span/2}
}

// PhasePortraitToASCII draws the portrait on a width×height character grid.
// The origin, where the central body sits, is marked with '*'.
func PhasePortraitToASCII(portrait *PhasePortrait2D, width, height int) string {
	if portrait == nil || len(portrait.Points) == 0 || width < 2 || height < 2 {
		return ""
	}

	b := squareBounds(portrait.Points)
	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", width))
	}
	cell := func(p Point) (int, int, bool) {
		col := int((p.X - b.minX) / (b.maxX - b.minX) * float64(width-1))
		row := height - 1 - int((p.Y-b.minY)/(b.maxY-b.minY)*float64(height-1))
		return row, col, row >= 0 && row < height && col >= 0 && col < width
	}

	for _, p := range portrait.Points {
		if row, col, ok := cell(p); ok {
			grid[row][col] = '•'
		}
	}
	if row, col, ok := cell(Point{}); ok {
		grid[row][col] = '*'
	}
	if row, col, ok := cell(portrait.Points[0]); ok {
		grid[row][col] = 'o'
	}

	var sb strings.Builder
	for _, row := range grid {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}

// PoincareSection collects the points where a trajectory crosses a line.
type PoincareSection struct {
	Times  []float64
	Points []Point
}

// Section records, by linear interpolation between samples, every upward
// crossing of component crossIdx through threshold. For an orbit with
// crossIdx = 1 and threshold 0 these are the passages through the positive
// q1 axis, whose drift reveals numerical precession.
func Section(res *dynamo.Result, crossIdx int, threshold float64, recordX, recordY int) *PoincareSection {
	if len(res.States) == 0 {
		return nil
	}
	if n := len(res.States[0]); crossIdx >= n || recordX >= n || recordY >= n {
		return nil
	}

	section := &PoincareSection{}
	for i := 1; i < len(res.States); i++ {
		prev, curr := res.States[i-1], res.States[i]
		a, b := prev[crossIdx], curr[crossIdx]
		if !(a < threshold && b >= threshold) {
			continue
		}
		frac := (threshold - a) / (b - a)
		if math.IsNaN(frac) || math.IsInf(frac, 0) {
			frac = 0.5
		}
		lerp := func(k int) float64 { return prev[k] + frac*(curr[k]-prev[k]) }
		section.Times = append(section.Times, res.Times[i-1]+frac*(res.Times[i]-res.Times[i-1]))
		section.Points = append(section.Points, Point{lerp(recordX), lerp(recordY)})
	}
	return section
}

func PoincareSectionToASCII(section *PoincareSection, width, height int) string {
	if section == nil || len(section.Points) == 0 {
		return "No crossings detected"
	}
	return PhasePortraitToASCII(&PhasePortrait2D{Points: section.Points}, width, height)
}
