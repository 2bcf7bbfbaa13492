package raster

import (
	"image"
	"sync"

	"github.com/gogpu/gg"
	"github.com/zlnvch/drawguess/surface"
)

// RasterSurface is an off-screen surface backed by a gg software context.
type RasterSurface struct {
	mu  sync.Mutex
	ctx *gg.Context
}

func NewRasterSurface(width, height int) *RasterSurface {
	ctx := gg.NewContext(width, height)
	ctx.ClearWithColor(gg.Hex(surface.Background))
	return &RasterSurface{ctx: ctx}
}

func (r *RasterSurface) Size() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ctx.Width(), r.ctx.Height()
}

func (r *RasterSurface) DrawLine(x1, y1, x2, y2 float64, colorHex string, width float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ctx.SetHexColor(colorHex)
	r.ctx.SetLineWidth(width)
	r.ctx.SetLineCap(gg.LineCapRound)
	r.ctx.SetLineJoin(gg.LineJoinRound)
	r.ctx.DrawLine(x1, y1, x2, y2)
	return r.ctx.Stroke()
}

func (r *RasterSurface) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctx.ClearWithColor(gg.Hex(surface.Background))
}

// Resize reallocates the raster. Like a browser canvas, existing pixels are
// discarded and the surface comes back cleared.
func (r *RasterSurface) Resize(width, height int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ctx.Resize(width, height); err != nil {
		return err
	}
	r.ctx.ClearWithColor(gg.Hex(surface.Background))
	return nil
}

func (r *RasterSurface) Image() image.Image {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ctx.Image()
}

func (r *RasterSurface) SavePNG(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ctx.SavePNG(path)
}

func (r *RasterSurface) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ctx.Close()
}
