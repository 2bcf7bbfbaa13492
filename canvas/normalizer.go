package canvas

import (
	"math"

	"github.com/zlnvch/drawguess/models"
)

// Sizer reports the live pixel size of a rendering surface.
type Sizer interface {
	Size() (width, height int)
}

// Position is a point in surface pixels.
type Position struct {
	X float64
	Y float64
}

// Normalizer maps between a surface and the fixed logical canvas space.
// Scale factors are derived from the surface on every call because the
// surface may be resized between calls.
type Normalizer struct {
	surface       Sizer
	logicalWidth  int
	logicalHeight int
}

func NewNormalizer(surface Sizer) *Normalizer {
	return NewNormalizerWithResolution(surface, models.LogicalWidth, models.LogicalHeight)
}

func NewNormalizerWithResolution(surface Sizer, logicalWidth, logicalHeight int) *Normalizer {
	return &Normalizer{
		surface:       surface,
		logicalWidth:  logicalWidth,
		logicalHeight: logicalHeight,
	}
}

// Normalize converts a surface position into logical coordinates. A surface
// that has not been laid out yet maps everything to the origin.
func (n *Normalizer) Normalize(p Position) models.Point {
	w, h := n.surface.Size()
	if w <= 0 || h <= 0 {
		return models.Point{}
	}
	return models.Point{
		X: int(math.Round(p.X * float64(n.logicalWidth) / float64(w))),
		Y: int(math.Round(p.Y * float64(n.logicalHeight) / float64(h))),
	}
}

// Denormalize converts logical coordinates into a position on the surface as
// it is sized right now.
func (n *Normalizer) Denormalize(p models.Point) Position {
	w, h := n.surface.Size()
	if w <= 0 || h <= 0 {
		return Position{}
	}
	return Position{
		X: float64(p.X) * float64(w) / float64(n.logicalWidth),
		Y: float64(p.Y) * float64(h) / float64(n.logicalHeight),
	}
}
