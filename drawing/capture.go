package drawing

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/zlnvch/drawguess/canvas"
	"github.com/zlnvch/drawguess/models"
	"github.com/zlnvch/drawguess/surface"
)

// Sender transmits outbound draw events. It reports whether the event was
// handed to the transport, not whether anyone received it.
type Sender interface {
	SendDraw(event models.DrawEvent) bool
}

// CaptureEngine turns pointer input on the local surface into stroke
// segments. Every segment is painted locally before it is sent.
type CaptureEngine struct {
	mu         sync.Mutex
	surface    surface.Surface
	normalizer *canvas.Normalizer
	sender     Sender
	log        zerolog.Logger

	canDraw bool

	// stroke session
	active  bool
	lastPos *canvas.Position

	// tool
	color  string
	width  int
	eraser bool
}

func NewCaptureEngine(s surface.Surface, sender Sender, log zerolog.Logger) *CaptureEngine {
	return &CaptureEngine{
		surface:    s,
		normalizer: canvas.NewNormalizer(s),
		sender:     sender,
		log:        log.With().Str("component", "capture").Logger(),
		color:      DefaultColor,
		width:      DefaultWidth,
	}
}

// SetCanDraw grants or revokes drawing permission. Revoking ends any stroke
// in progress.
func (c *CaptureEngine) SetCanDraw(canDraw bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.canDraw = canDraw
	if !canDraw {
		c.active = false
		c.lastPos = nil
	}
}

func (c *CaptureEngine) CanDraw() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canDraw
}

func (c *CaptureEngine) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

func (c *CaptureEngine) SetColor(colorHex string) error {
	if err := ValidateColor(colorHex); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.color = colorHex
	return nil
}

func (c *CaptureEngine) SetBrushSize(width int) error {
	if err := ValidateWidth(width); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.width = width
	return nil
}

func (c *CaptureEngine) SetEraser(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.eraser = enabled
}

// Tool returns the current brush color, size and eraser state.
func (c *CaptureEngine) Tool() (string, int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.color, c.width, c.eraser
}

func (c *CaptureEngine) PointerDown(p canvas.Position) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.canDraw {
		return
	}
	c.active = true
	c.lastPos = &p
}

// PointerMove emits one segment from the previous position to p. A move
// with no previous position only records p.
func (c *CaptureEngine) PointerMove(p canvas.Position) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.canDraw || !c.active {
		return
	}
	if c.lastPos == nil {
		c.lastPos = &p
		return
	}

	from := *c.lastPos
	c.lastPos = &p

	action := models.ActionDraw
	paintColor := c.color
	if c.eraser {
		action = models.ActionErase
		paintColor = surface.Background
	}

	if err := c.surface.DrawLine(from.X, from.Y, p.X, p.Y, paintColor, float64(c.width)); err != nil {
		c.log.Warn().Err(err).Msg("Local paint failed")
	}

	start := c.normalizer.Normalize(from)
	end := c.normalizer.Normalize(p)
	event := models.DrawEvent{
		Action:   action,
		X1:       start.X,
		Y1:       start.Y,
		X2:       end.X,
		Y2:       end.Y,
		ColorHex: paintColor,
		Width:    c.width,
	}
	if !c.sender.SendDraw(event) {
		c.log.Debug().Str("action", action.String()).Msg("Draw event not sent")
	}
}

func (c *CaptureEngine) PointerUp() {
	c.endStroke()
}

func (c *CaptureEngine) PointerLeave() {
	c.endStroke()
}

func (c *CaptureEngine) endStroke() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.canDraw {
		return
	}
	c.active = false
	c.lastPos = nil
}

// SurfaceResized drops the previous position because it was measured on the
// old surface. An active stroke continues from the next move.
func (c *CaptureEngine) SurfaceResized() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastPos = nil
}

// Clear wipes the local surface and emits a single clear segment. It does not
// touch the stroke session.
func (c *CaptureEngine) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.canDraw {
		return ErrPermissionDenied
	}
	c.surface.Clear()
	if !c.sender.SendDraw(models.DrawEvent{Action: models.ActionClear}) {
		c.log.Debug().Msg("Clear event not sent")
	}
	return nil
}
