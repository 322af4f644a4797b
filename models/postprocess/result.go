// Package postprocess - Decoding and Non-Maximum Suppression for raw
// detection model output.
package postprocess

import "github.com/nvr-ai/go-detect/images"

// Detection is a single labeled bounding box. It is immutable once built by
// the decoder: the center and size fields are derived from the clamped
// corners, never from the raw model output, so they always agree with Box.
type Detection struct {
	// Box holds the corner coordinates, clamped to the unit square.
	Box images.Rect
	// CenterX, CenterY are the box center recomputed from the clamped corners.
	CenterX, CenterY float32
	// Width, Height are recomputed from the clamped corners and are always > 0.
	Width, Height float32
	// Score is the winning class score, strictly above the decoder threshold.
	Score float32
	// Class is the winning class index in [0, numClasses).
	Class int
	// Label is the resolved class name, or a synthetic placeholder when the
	// label table is shorter than the model's class count.
	Label string
}

// newDetection derives the center/size fields from an already-clamped box.
func newDetection(box images.Rect, score float32, class int, label string) Detection {
	return Detection{
		Box:     box,
		CenterX: (box.X1 + box.X2) / 2,
		CenterY: (box.Y1 + box.Y2) / 2,
		Width:   box.Width(),
		Height:  box.Height(),
		Score:   score,
		Class:   class,
		Label:   label,
	}
}
