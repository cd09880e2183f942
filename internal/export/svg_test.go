package export

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/keplersim/internal/viz"
)

func TestCanvasToSVG(t *testing.T) {
	c := viz.NewCanvas(4, 2)
	c.Set(0, 0)
	c.Set(5, 6)

	svg := CanvasToSVG(c, 2, "#ff0000")
	if got := strings.Count(svg, "<circle"); got != 2 {
		t.Errorf("expected 2 dots, got %d", got)
	}
	if !strings.Contains(svg, `fill="#ff0000"`) {
		t.Error("expected requested color")
	}
	if CanvasToSVG(nil, 1, "") != "" {
		t.Error("expected empty output for nil canvas")
	}
}

func TestOrbitsToSVG(t *testing.T) {
	n := 64
	xs, ys := make([]float64, n+1), make([]float64, n+1)
	for i := range xs {
		a := 2 * math.Pi * float64(i) / float64(n)
		xs[i], ys[i] = math.Cos(a), math.Sin(a)
	}
	broken := []float64{0.5, math.NaN(), -0.5}

	svg := OrbitsToSVG([]Orbit{
		{Label: "verlet <dt=0.01>", X: xs, Y: ys},
		{Label: "euler", X: broken, Y: []float64{0, 0, 0}},
	}, 400, 300)

	if strings.Count(svg, "<path") != 2 {
		t.Error("expected one path per orbit")
	}
	if !strings.Contains(svg, "verlet &lt;dt=0.01&gt;") {
		t.Error("expected escaped legend label")
	}
	if strings.Count(svg, "M") < 3 {
		t.Error("a non-finite point should start a new subpath")
	}
	if !strings.Contains(svg, `cx="200.0" cy="150.0"`) {
		t.Error("expected central body at the centre of a symmetric orbit")
	}
	if !strings.HasSuffix(svg, "</svg>") {
		t.Error("unterminated svg")
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orbit.svg")
	if err := WriteFile(path, "<svg/>"); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "<svg/>" {
		t.Errorf("unexpected file contents %q (%v)", data, err)
	}
}
