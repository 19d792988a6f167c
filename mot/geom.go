package mot

import (
	"image"
	"math"

	"github.com/pkg/errors"
)

// BBox is an axis-aligned bounding box in pixel space.
// (X1, Y1) is the top left corner, (X2, Y2) is the bottom right corner.
type BBox struct {
	X1 float64
	Y1 float64
	X2 float64
	Y2 float64
}

// NewBBox creates bounding box from two corners
func NewBBox(x1, y1, x2, y2 float64) BBox {
	return BBox{
		X1: x1,
		Y1: y1,
		X2: x2,
		Y2: y2,
	}
}

// NewBBoxFrom creates bounding box from standard library rectangle
func NewBBoxFrom(rect image.Rectangle) BBox {
	return BBox{
		X1: float64(rect.Min.X),
		Y1: float64(rect.Min.Y),
		X2: float64(rect.Max.X),
		Y2: float64(rect.Max.Y),
	}
}

// NewBBoxXYWH creates bounding box from top left corner and size
func NewBBoxXYWH(x, y, width, height float64) BBox {
	return BBox{
		X1: x,
		Y1: y,
		X2: x + width,
		Y2: y + height,
	}
}

// Width returns horizontal size of the box
func (b BBox) Width() float64 {
	return b.X2 - b.X1
}

// Height returns vertical size of the box
func (b BBox) Height() float64 {
	return b.Y2 - b.Y1
}

// Area returns area of the box. Could be negative for inverted boxes, so call Validate first.
func (b BBox) Area() float64 {
	return b.Width() * b.Height()
}

// Center returns center point of the box
func (b BBox) Center() Point {
	return Point{
		X: (b.X1 + b.X2) / 2.0,
		Y: (b.Y1 + b.Y2) / 2.0,
	}
}

// Diagonal returns length of the box diagonal
func (b BBox) Diagonal() float64 {
	return math.Hypot(b.Width(), b.Height())
}

// Validate checks that box has finite coordinates and x1<x2, y1<y2
func (b BBox) Validate() error {
	for _, v := range [4]float64{b.X1, b.Y1, b.X2, b.Y2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Wrapf(ErrMalformedBBox, "non-finite coordinate in %v", b)
		}
	}
	if !(b.X1 < b.X2) || !(b.Y1 < b.Y2) {
		return errors.Wrapf(ErrMalformedBBox, "non-positive dimensions %.2fx%.2f", b.Width(), b.Height())
	}
	return nil
}

type Point struct {
	X float64
	Y float64
}

func NewPoint(x, y float64) Point {
	return Point{
		X: x,
		Y: y,
	}
}

func NewPointFrom(point image.Point) Point {
	return Point{
		X: float64(point.X),
		Y: float64(point.Y),
	}
}

func euclideanDistance(p1, p2 Point) float64 {
	return math.Hypot(p1.X-p2.X, p1.Y-p2.Y)
}
