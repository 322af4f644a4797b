package postprocess

import (
	"fmt"

	"github.com/nvr-ai/go-detect/images"
)

// geometryAttrs is the number of fixed box attributes preceding the per-class
// scores in each detection record: centerX, centerY, width, height.
const geometryAttrs = 4

// UnknownLabelFormat is the synthetic class name used when a detection's
// class index falls outside the loaded label table.
const UnknownLabelFormat = "Unknown_%d"

// Decoder walks a model's flat output tensor and turns candidate detections
// into Detection values. Each candidate occupies a contiguous record of
// 4+NumClasses float32 attributes: geometry first, then one score per class.
type Decoder struct {
	// NumClasses is the per-detection score count.
	NumClasses int
	// NumDetections is the number of candidate records in the tensor.
	NumDetections int
	// ConfidenceThreshold filters candidates: only a winning score strictly
	// greater than this survives.
	ConfidenceThreshold float32
	// Labels maps class index to name. It may be shorter than NumClasses;
	// out-of-range indexes resolve to a synthetic placeholder.
	Labels []string
}

// Decode scans every candidate record in output and returns the detections
// that pass the confidence threshold and retain positive area after clamping.
//
// For each candidate the winning class is the maximum score, ties broken by
// the lowest index (strict > comparison). Geometry arrives as center/size,
// is converted to corners, and each corner is clamped to [0,1] independently;
// width and height are then recomputed from the clamped corners and the
// candidate is dropped when either is no longer positive.
//
// An output slice shorter than NumDetections*(4+NumClasses) yields nil, as
// does an output where no candidate passes the threshold. Neither is an
// error: the caller reports both as "no detections".
//
// Complexity is O(NumDetections * NumClasses) and the scan allocates only for
// emitted detections.
func (d *Decoder) Decode(output []float32) []Detection {
	stride := geometryAttrs + d.NumClasses
	if d.NumClasses <= 0 || d.NumDetections <= 0 || len(output) < d.NumDetections*stride {
		return nil
	}

	var detections []Detection
	for i := 0; i < d.NumDetections; i++ {
		record := output[i*stride : (i+1)*stride]

		class := 0
		best := record[geometryAttrs]
		for c := 1; c < d.NumClasses; c++ {
			if score := record[geometryAttrs+c]; score > best {
				best = score
				class = c
			}
		}
		if best <= d.ConfidenceThreshold {
			continue
		}

		cx, cy, w, h := record[0], record[1], record[2], record[3]
		box := images.Rect{
			X1: cx - w/2,
			Y1: cy - h/2,
			X2: cx + w/2,
			Y2: cy + h/2,
		}.Clamp()
		if box.Width() <= 0 || box.Height() <= 0 {
			continue
		}

		detections = append(detections, newDetection(box, best, class, ClassName(d.Labels, class)))
	}

	return detections
}

// ClassName resolves a class index against a label table, falling back to a
// synthetic placeholder when the table is too short or the index is negative.
// A short table is never an error: models are routinely paired with partial
// label files.
func ClassName(labels []string, class int) string {
	if class >= 0 && class < len(labels) {
		return labels[class]
	}
	return fmt.Sprintf(UnknownLabelFormat, class)
}
