package menu

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidBoundingBox is returned when a bounding box cannot be built from
// the supplied coordinates.
var ErrInvalidBoundingBox = errors.New("invalid bounding box")

// ErrUnknownUnit is returned for page units other than inch, mm and pixel.
var ErrUnknownUnit = errors.New("unknown unit")

// Point is a coordinate in the unit space of its page
type Point struct {
	X float64
	Y float64
}

// Corner positions inside a BoundingBox
const (
	TopLeft = iota
	TopRight
	BottomRight
	BottomLeft
)

// BoundingBox is a 4-corner polygon in the fixed order top-left, top-right,
// bottom-right, bottom-left. Height and row computations index specific
// corners, so the order must never change.
type BoundingBox [4]Point

// NewBoundingBox builds a bounding box from 8 numbers alternating x and y,
// the same flat layout the OCR service uses for its boundingBox arrays.
func NewBoundingBox(coords []float64) (BoundingBox, error) {
	var box BoundingBox
	if len(coords) != 8 {
		return box, fmt.Errorf("%w: expected 8 coordinates, got %d", ErrInvalidBoundingBox, len(coords))
	}
	for i := range box {
		box[i] = Point{X: coords[2*i], Y: coords[2*i+1]}
	}
	return box, nil
}

// RectBox expands an axis-aligned rectangle into the 4-corner form.
// x1, y1 is the top-left corner and x2, y2 the bottom-right corner.
func RectBox(x1, y1, x2, y2 float64) BoundingBox {
	return BoundingBox{
		{X: x1, Y: y1},
		{X: x2, Y: y1},
		{X: x2, Y: y2},
		{X: x1, Y: y2},
	}
}

func (b BoundingBox) TopLeft() Point     { return b[TopLeft] }
func (b BoundingBox) TopRight() Point    { return b[TopRight] }
func (b BoundingBox) BottomRight() Point { return b[BottomRight] }
func (b BoundingBox) BottomLeft() Point  { return b[BottomLeft] }

// Height is the average of the left edge and right edge heights. It is used
// as the font size estimate of a line.
func (b BoundingBox) Height() float64 {
	left := b[BottomLeft].Y - b[TopLeft].Y
	right := b[BottomRight].Y - b[TopRight].Y
	return (left + right) / 2
}

// CenterY is the mean of the four corner y coordinates.
func (b BoundingBox) CenterY() float64 {
	var sum float64
	for _, p := range b {
		sum += p.Y
	}
	return sum / 4
}

// Top returns the y coordinate of the top-left corner.
func (b BoundingBox) Top() float64 { return b[TopLeft].Y }

// Bottom returns the y coordinate of the bottom-left corner.
func (b BoundingBox) Bottom() float64 { return b[BottomLeft].Y }

// SpansY reports whether y lies strictly inside the vertical span of the
// left edge. Rotated pages can flip the edge, so both orientations count.
func (b BoundingBox) SpansY(y float64) bool {
	top, bottom := b.Top(), b.Bottom()
	return (top < y && y < bottom) || (bottom < y && y < top)
}

// Scale multiplies every coordinate by f.
func (b BoundingBox) Scale(f float64) BoundingBox {
	var out BoundingBox
	for i, p := range b {
		out[i] = Point{X: p.X * f, Y: p.Y * f}
	}
	return out
}

// Rect returns the axis-aligned envelope of the box as x, y, width, height.
func (b BoundingBox) Rect() (x, y, w, h float64) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range b {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return minX, minY, maxX - minX, maxY - minY
}

// Unit is the physical unit a page's coordinates are expressed in
type Unit string

const (
	UnitInch  Unit = "inch"
	UnitMM    Unit = "mm"
	UnitPixel Unit = "pixel"
)

// ParseUnit validates a unit string from OCR output.
func ParseUnit(s string) (Unit, error) {
	switch u := Unit(s); u {
	case UnitInch, UnitMM, UnitPixel:
		return u, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownUnit, s)
}

// PointsPerUnit returns how many PDF points one unit spans. Pixels map 1:1,
// matching how source images are placed on output pages.
func (u Unit) PointsPerUnit() float64 {
	switch u {
	case UnitInch:
		return 72
	case UnitMM:
		return 2.83465
	default:
		return 1
	}
}
