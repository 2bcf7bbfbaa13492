package surface

// Background is the color a cleared surface shows and the color eraser
// strokes paint with.
const Background = "#FFFFFF"

// Surface is the raster the capture engine and replayer paint on. Nothing
// else draws on it.
type Surface interface {
	Size() (width, height int)
	DrawLine(x1, y1, x2, y2 float64, colorHex string, width float64) error
	Clear()
}
