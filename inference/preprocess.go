package inference

import (
	"image"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// Per-channel normalization: (x - mean) / stddev maps [0,255] onto [0,1].
const (
	normMean   float32 = 0
	normStddev float32 = 255
)

// PrepareInput scales and normalizes a frame into dst, which must hold
// exactly the element count of the layout's input tensor.
//
// The frame is resized to InputWidth x InputHeight without preserving aspect
// ratio; the distortion from non-uniform scaling is accepted, there is no
// cropping, letterboxing, or padding. Channel values are normalized to [0,1]
// and written in the channel order the layout declares: planar RGB for
// channel-first models, interleaved RGB otherwise.
func PrepareInput(img image.Image, layout Layout, dst []float32) error {
	if layout.InputChannels != 3 {
		return errors.Errorf("unsupported input channel count %d, expected RGB", layout.InputChannels)
	}
	need := layout.InputElements()
	if len(dst) != need {
		return errors.Errorf("destination tensor holds %d floats, layout requires %d", len(dst), need)
	}

	scaled := resize.Resize(uint(layout.InputWidth), uint(layout.InputHeight), img, resize.Bilinear)

	if layout.ChannelsFirst {
		fillPlanar(scaled, layout, dst)
	} else {
		fillInterleaved(scaled, layout, dst)
	}
	return nil
}

func fillPlanar(img image.Image, layout Layout, dst []float32) {
	plane := layout.InputWidth * layout.InputHeight
	red := dst[0:plane]
	green := dst[plane : plane*2]
	blue := dst[plane*2 : plane*3]

	bounds := img.Bounds()
	i := 0
	for y := 0; y < layout.InputHeight; y++ {
		for x := 0; x < layout.InputWidth; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			red[i] = (float32(r>>8) - normMean) / normStddev
			green[i] = (float32(g>>8) - normMean) / normStddev
			blue[i] = (float32(b>>8) - normMean) / normStddev
			i++
		}
	}
}

func fillInterleaved(img image.Image, layout Layout, dst []float32) {
	bounds := img.Bounds()
	i := 0
	for y := 0; y < layout.InputHeight; y++ {
		for x := 0; x < layout.InputWidth; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			dst[i] = (float32(r>>8) - normMean) / normStddev
			dst[i+1] = (float32(g>>8) - normMean) / normStddev
			dst[i+2] = (float32(b>>8) - normMean) / normStddev
			i += 3
		}
	}
}
