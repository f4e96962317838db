package grouping

import (
	"fmt"
	"math"

	"github.com/chazu/molprint/pkg/geom"
	"github.com/chazu/molprint/pkg/scene"
)

// Each channel cycles independently. The cycle lengths are pairwise
// coprime, so a triple only repeats every 5*4*7 = 140 groups.
var (
	redCycle   = []float64{0, 0.25, 0.5, 0.75, 1}
	greenCycle = []float64{1, 0.66, 0.33, 0}
	blueCycle  = []float64{1, 0.33, 0.25, 0.66, 0.05, 0.75, 0}
)

// ColorPeriod is the number of groups after which colors repeat.
const ColorPeriod = 140

// RGB is a display color with channels in [0, 1].
type RGB struct {
	R, G, B float64
}

// Color returns the color of the n-th group (n >= 0).
func Color(n int) RGB {
	if n < 0 {
		n = -n
	}
	return RGB{
		R: redCycle[n%len(redCycle)],
		G: greenCycle[n%len(greenCycle)],
		B: blueCycle[n%len(blueCycle)],
	}
}

// Hex formats c as #rrggbb.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", channel(c.R), channel(c.G), channel(c.B))
}

func channel(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}

// RadiusPalette colors each distinct radius of prims (at three decimals)
// with the color sequence, smallest radius first.
func RadiusPalette(prims []*scene.Primitive) map[float64]RGB {
	out := make(map[float64]RGB)
	for i, class := range scene.ByRadius(prims) {
		out[geom.Round3(class[0].Radius())] = Color(i)
	}
	return out
}
