package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/zlnvch/drawguess/canvas"
	"github.com/zlnvch/drawguess/drawing"
)

// Gesture ops, one JSON object per step
const (
	opDown   = "down"
	opMove   = "move"
	opUp     = "up"
	opLeave  = "leave"
	opResize = "resize"
	opColor  = "color"
	opSize   = "size"
	opEraser = "eraser"
	opClear  = "clear"
	opWait   = "wait"
)

type gestureStep struct {
	Op      string  `json:"op"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   int     `json:"width"`
	Height  int     `json:"height"`
	Color   string  `json:"color"`
	Size    int     `json:"size"`
	Enabled bool    `json:"enabled"`
	DelayMs int     `json:"delayMs"`
}

type resizer interface {
	Resize(width, height int) error
}

func playGestureFile(ctx context.Context, path string, engine *drawing.CaptureEngine, surf resizer, log zerolog.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open gesture script: %w", err)
	}
	defer f.Close()
	return playGestures(ctx, f, engine, surf, log)
}

// playGestures feeds pointer input from r into engine in pixel coordinates of
// the local surface. It stops at the first malformed step or when ctx ends.
func playGestures(ctx context.Context, r io.Reader, engine *drawing.CaptureEngine, surf resizer, log zerolog.Logger) error {
	dec := json.NewDecoder(r)
	steps := 0
	for {
		var step gestureStep
		if err := dec.Decode(&step); err != nil {
			if errors.Is(err, io.EOF) {
				log.Info().Int("steps", steps).Msg("Gesture script finished")
				return nil
			}
			return fmt.Errorf("gesture step %d: %w", steps+1, err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := applyGesture(ctx, step, engine, surf); err != nil {
			return fmt.Errorf("gesture step %d (%s): %w", steps+1, step.Op, err)
		}
		steps++
	}
}

func applyGesture(ctx context.Context, step gestureStep, engine *drawing.CaptureEngine, surf resizer) error {
	switch step.Op {
	case opDown:
		engine.PointerDown(canvas.Position{X: step.X, Y: step.Y})
	case opMove:
		engine.PointerMove(canvas.Position{X: step.X, Y: step.Y})
	case opUp:
		engine.PointerUp()
	case opLeave:
		engine.PointerLeave()
	case opResize:
		if step.Width <= 0 || step.Height <= 0 {
			return fmt.Errorf("invalid size %dx%d", step.Width, step.Height)
		}
		if err := surf.Resize(step.Width, step.Height); err != nil {
			return err
		}
		engine.SurfaceResized()
	case opColor:
		return engine.SetColor(step.Color)
	case opSize:
		return engine.SetBrushSize(step.Size)
	case opEraser:
		engine.SetEraser(step.Enabled)
	case opClear:
		return engine.Clear()
	case opWait:
		select {
		case <-time.After(time.Duration(step.DelayMs) * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
	return nil
}
