// Package images - Geometry primitives for detection post-processing.
package images

import "github.com/chewxy/math32"

// Rect is a lightweight axis-aligned bounding box in normalized image
// coordinates: every corner lies in [0,1], expressed as a fraction of the
// frame width/height.
type Rect struct {
	X1, Y1, X2, Y2 float32
}

// Width returns the horizontal extent of the rectangle.
func (r Rect) Width() float32 {
	return r.X2 - r.X1
}

// Height returns the vertical extent of the rectangle.
func (r Rect) Height() float32 {
	return r.Y2 - r.Y1
}

// Area returns the area of the rectangle in normalized units.
func (r Rect) Area() float32 {
	return r.Width() * r.Height()
}

// Clamp returns a copy of the rectangle with each corner independently
// clamped to the unit square. Corners are clamped before any width/height
// derivation so that a box partially outside the frame shrinks instead of
// shifting.
func (r Rect) Clamp() Rect {
	return Rect{
		X1: clamp01(r.X1),
		Y1: clamp01(r.Y1),
		X2: clamp01(r.X2),
		Y2: clamp01(r.Y2),
	}
}

func clamp01(v float32) float32 {
	return math32.Max(0, math32.Min(1, v))
}

// CalculateIoU computes the Intersection over Union of two rectangles.
//
// The intersection is the axis-aligned overlap region: its top-left corner is
// the maximum of the two top-left corners and its bottom-right corner is the
// minimum of the two bottom-right corners. The union follows from
// inclusion-exclusion: Area(a) + Area(b) - Area(intersection).
//
// Degenerate inputs are safe: if the rectangles do not overlap, or the union
// area is not positive (both boxes zero-area), the IoU is 0.
//
// Arguments:
//   - r: The first rectangle.
//   - o: The other rectangle to compare against.
//
// Returns:
//   - float32: A value in [0,1]; 1 means identical boxes, 0 means disjoint.
func CalculateIoU(r, o Rect) float32 {
	ix1 := math32.Max(r.X1, o.X1)
	iy1 := math32.Max(r.Y1, o.Y1)
	ix2 := math32.Min(r.X2, o.X2)
	iy2 := math32.Min(r.Y2, o.Y2)

	interW := ix2 - ix1
	interH := iy2 - iy1
	if interW <= 0 || interH <= 0 {
		return 0
	}
	interArea := interW * interH

	unionArea := r.Area() + o.Area() - interArea
	if unionArea <= 0 {
		return 0
	}

	return interArea / unionArea
}
