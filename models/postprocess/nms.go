package postprocess

import (
	"sort"

	"github.com/nvr-ai/go-detect/images"
)

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	// IoUThreshold is the overlap at or above which the lower-confidence box
	// is suppressed.
	IoUThreshold float32
	// ClassAware, when true, suppresses only within the same class. The
	// default is class-agnostic: overlapping boxes of different classes still
	// suppress each other.
	ClassAware bool
}

// ApplyGreedyNMS performs greedy Non-Maximum Suppression.
//
// Detections are sorted by descending confidence, then repeatedly the highest
// remaining detection is accepted and every remaining candidate whose IoU
// with it reaches the threshold is discarded. O(n^2) worst case. The result
// keeps the descending-confidence order and never contains two boxes whose
// IoU reaches the threshold; running it on its own output returns the same
// set.
//
// Arguments:
//   - detections: Candidate detections in any order.
//   - config: Suppression parameters.
//
// Returns:
//   - Filtered slice of detections. If no detections are provided, returns nil.
func ApplyGreedyNMS(detections []Detection, config *NMSConfig) []Detection {
	n := len(detections)
	if n == 0 {
		return nil
	}

	sorted := make([]Detection, n)
	copy(sorted, detections)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	filtered := make([]Detection, 0, n)
	used := make([]bool, n)

	for i := 0; i < n; i++ {
		if used[i] {
			continue
		}

		anchor := sorted[i]
		filtered = append(filtered, anchor)
		used[i] = true

		for j := i + 1; j < n; j++ {
			if used[j] {
				continue
			}
			if config.ClassAware && anchor.Class != sorted[j].Class {
				continue
			}
			if images.CalculateIoU(anchor.Box, sorted[j].Box) >= config.IoUThreshold {
				used[j] = true
			}
		}
	}

	return filtered
}
