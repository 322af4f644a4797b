package inference

import "github.com/pkg/errors"

// boxAttrs is the number of fixed geometry attributes preceding the
// per-class scores in the output tensor's second dimension.
const boxAttrs = 4

// Layout describes the tensor geometry derived once from a loaded engine's
// declared shapes. It is immutable for the life of the engine, until an
// explicit reload.
type Layout struct {
	// InputWidth, InputHeight are the pixel dimensions the model expects.
	InputWidth  int `json:"input_width"`
	InputHeight int `json:"input_height"`
	// InputChannels is the color channel count, normally 3.
	InputChannels int `json:"input_channels"`
	// ChannelsFirst is true for (batch, channels, height, width) inputs,
	// false for (batch, height, width, channels).
	ChannelsFirst bool `json:"channels_first"`
	// NumClasses is the per-detection score count in the output tensor.
	NumClasses int `json:"num_classes"`
	// NumDetections is the number of candidate detection slots.
	NumDetections int `json:"num_detections"`
}

// InputElements is the total float32 count of the input tensor.
func (l Layout) InputElements() int {
	return l.InputWidth * l.InputHeight * l.InputChannels
}

// OutputElements is the total float32 count of the output tensor.
func (l Layout) OutputElements() int {
	return (boxAttrs + l.NumClasses) * l.NumDetections
}

// ResolveLayout derives a Layout from the shapes an engine declares for input
// tensor 0 and output tensor 0.
//
// The input must be rank 4. The channel axis is disambiguated heuristically:
// when dimension 1 equals 3 the layout is treated as channel-first, otherwise
// channel-last. A model with 3 channels and a height or width of exactly 3
// would be misclassified; that ambiguity is inherent to the heuristic and
// deliberately not resolved here.
//
// The output must be rank 3 with a batch of 1. Dimension 1 is read as
// 4+numClasses (geometry attributes then per-class scores) and dimension 2 as
// the candidate count.
//
// Any violation returns ErrInvalidModelShape; the caller cannot proceed with
// such a model.
func ResolveLayout(inputShape, outputShape []int64) (Layout, error) {
	if len(inputShape) != 4 {
		return Layout{}, errors.Wrapf(ErrInvalidModelShape,
			"input tensor must have rank 4, got shape %v", inputShape)
	}

	var layout Layout
	if inputShape[1] == 3 {
		layout.ChannelsFirst = true
		layout.InputChannels = int(inputShape[1])
		layout.InputHeight = int(inputShape[2])
		layout.InputWidth = int(inputShape[3])
	} else {
		layout.InputHeight = int(inputShape[1])
		layout.InputWidth = int(inputShape[2])
		layout.InputChannels = int(inputShape[3])
	}
	if layout.InputWidth <= 0 || layout.InputHeight <= 0 || layout.InputChannels <= 0 {
		return Layout{}, errors.Wrapf(ErrInvalidModelShape,
			"input tensor has non-positive dimensions: %v", inputShape)
	}

	if len(outputShape) != 3 {
		return Layout{}, errors.Wrapf(ErrInvalidModelShape,
			"output tensor must have rank 3, got shape %v", outputShape)
	}
	if outputShape[0] != 1 {
		return Layout{}, errors.Wrapf(ErrInvalidModelShape,
			"output tensor batch size must be 1, got shape %v", outputShape)
	}
	if outputShape[1] <= boxAttrs {
		return Layout{}, errors.Wrapf(ErrInvalidModelShape,
			"output tensor dimension 1 must exceed the %d geometry attributes, got shape %v",
			boxAttrs, outputShape)
	}
	if outputShape[2] <= 0 {
		return Layout{}, errors.Wrapf(ErrInvalidModelShape,
			"output tensor must declare at least one detection slot, got shape %v", outputShape)
	}

	layout.NumClasses = int(outputShape[1]) - boxAttrs
	layout.NumDetections = int(outputShape[2])
	return layout, nil
}
