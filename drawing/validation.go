package drawing

import (
	"errors"
	"regexp"

	"github.com/zlnvch/drawguess/models"
)

const (
	MinWidth     = 1
	MaxWidth     = 20
	DefaultWidth = 5
	DefaultColor = "#000000"
)

// Palette is the set of preset brush colors offered next to the custom picker.
var Palette = []string{
	"#000000", // black
	"#FFFFFF", // white
	"#FF0000", // red
	"#00FF00", // green
	"#0000FF", // blue
	"#FFFF00", // yellow
	"#FF00FF", // magenta
	"#00FFFF", // cyan
	"#FFA500", // orange
	"#800080", // purple
	"#FFC0CB", // pink
	"#A52A2A", // brown
}

var hexColorRegex = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

var (
	ErrPermissionDenied = errors.New("drawing is not permitted")
	ErrInvalidColor     = errors.New("invalid color")
	ErrInvalidWidth     = errors.New("invalid width")
	ErrUnknownAction    = errors.New("unknown draw action")
)

func ValidateColor(colorHex string) error {
	if !hexColorRegex.MatchString(colorHex) {
		return ErrInvalidColor
	}
	return nil
}

func ValidateWidth(width int) error {
	if width < MinWidth || width > MaxWidth {
		return ErrInvalidWidth
	}
	return nil
}

// sanitizeEvent fills in defaults for missing optional fields of an inbound
// event and keeps its points inside logical canvas space. Only an unknown
// action is rejected.
func sanitizeEvent(event models.DrawEvent) (models.DrawEvent, error) {
	switch event.Action {
	case models.ActionClear:
		return models.DrawEvent{Action: models.ActionClear}, nil
	case models.ActionDraw, models.ActionErase:
	default:
		return models.DrawEvent{}, ErrUnknownAction
	}

	if ValidateColor(event.ColorHex) != nil {
		event.ColorHex = DefaultColor
	}
	if event.Width <= 0 {
		event.Width = DefaultWidth
	} else if event.Width > MaxWidth {
		event.Width = MaxWidth
	}

	event.X1 = clamp(event.X1, models.LogicalWidth)
	event.Y1 = clamp(event.Y1, models.LogicalHeight)
	event.X2 = clamp(event.X2, models.LogicalWidth)
	event.Y2 = clamp(event.Y2, models.LogicalHeight)
	return event, nil
}

func clamp(v, upper int) int {
	if v < 0 {
		return 0
	}
	if v > upper {
		return upper
	}
	return v
}
