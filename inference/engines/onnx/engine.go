// Package onnx adapts ONNX Runtime sessions to the inference.Engine boundary.
package onnx

import (
	"os"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/nvr-ai/go-detect/inference"
	"github.com/nvr-ai/go-detect/inference/providers"
)

// SharedLibraryEnv names the environment variable pointing at the ONNX
// Runtime shared library, consulted before the process-wide environment is
// initialized.
const SharedLibraryEnv = "ONNXRUNTIME_SHARED_LIBRARY_PATH"

// Loader builds ONNX Runtime backed engines from raw .onnx model bytes.
type Loader struct{}

// Engine wraps one ONNX Runtime session with preallocated input and output
// tensors bound to the model's declared shapes.
type Engine struct {
	session      *ort.AdvancedSession
	input        *ort.Tensor[float32]
	output       *ort.Tensor[float32]
	inputShapes  [][]int64
	outputShapes [][]int64
}

var _ inference.Loader = Loader{}

// Load inspects the model's declared tensor shapes, allocates matching
// tensors, and creates the session. ModeAccelerated requests the CoreML
// execution provider; when the runtime rejects it the session falls back to
// the multi-threaded CPU provider, which is logged but not an error.
func (Loader) Load(model []byte, opts providers.Options) (inference.Engine, error) {
	if !ort.IsInitialized() {
		if p := os.Getenv(SharedLibraryEnv); p != "" {
			ort.SetSharedLibraryPath(p)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, errors.Wrap(err, "initializing ONNX Runtime environment")
		}
	}

	inputs, outputs, err := ort.GetInputOutputInfoWithONNXData(model)
	if err != nil {
		return nil, errors.Wrap(err, "reading model tensor info")
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, errors.New("model declares no input or output tensors")
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "creating session options")
	}
	defer options.Destroy()

	if err := options.SetIntraOpNumThreads(opts.Threads()); err != nil {
		return nil, errors.Wrap(err, "setting thread count")
	}
	if err := options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended); err != nil {
		return nil, errors.Wrap(err, "setting optimization level")
	}
	if opts.Mode == providers.ModeAccelerated {
		if err := options.AppendExecutionProviderCoreML(0); err != nil {
			glog.Warningf("CoreML unavailable, using %d-thread CPU path: %v", opts.Threads(), err)
		}
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(inputs[0].Dimensions...))
	if err != nil {
		return nil, errors.Wrapf(err, "allocating input tensor %v", inputs[0].Dimensions)
	}
	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(outputs[0].Dimensions...))
	if err != nil {
		inputTensor.Destroy()
		return nil, errors.Wrapf(err, "allocating output tensor %v", outputs[0].Dimensions)
	}

	session, err := ort.NewAdvancedSessionWithONNXData(
		model,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		options,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, errors.Wrap(err, "creating session")
	}

	return &Engine{
		session:      session,
		input:        inputTensor,
		output:       outputTensor,
		inputShapes:  shapeList(inputs),
		outputShapes: shapeList(outputs),
	}, nil
}

func shapeList(infos []ort.InputOutputInfo) [][]int64 {
	shapes := make([][]int64, len(infos))
	for i, info := range infos {
		shapes[i] = append([]int64(nil), info.Dimensions...)
	}
	return shapes
}

// InputShape reports the declared shape of input tensor i.
func (e *Engine) InputShape(i int) []int64 {
	if i < 0 || i >= len(e.inputShapes) {
		return nil
	}
	return e.inputShapes[i]
}

// OutputShape reports the declared shape of output tensor i.
func (e *Engine) OutputShape(i int) []int64 {
	if i < 0 || i >= len(e.outputShapes) {
		return nil
	}
	return e.outputShapes[i]
}

// Run copies input into the bound tensor, runs the session, and copies the
// output tensor back out.
func (e *Engine) Run(input, output []float32) error {
	in := e.input.GetData()
	if len(in) != len(input) {
		return errors.Errorf("input tensor holds %d floats, caller supplied %d", len(in), len(input))
	}
	copy(in, input)

	if err := e.session.Run(); err != nil {
		return errors.Wrap(err, "session run")
	}

	out := e.output.GetData()
	if len(out) != len(output) {
		return errors.Errorf("output tensor holds %d floats, caller expected %d", len(out), len(output))
	}
	copy(output, out)
	return nil
}

// Close destroys the session and its tensors.
func (e *Engine) Close() error {
	var first error
	if e.session != nil {
		if err := e.session.Destroy(); err != nil && first == nil {
			first = err
		}
		e.session = nil
	}
	if e.input != nil {
		if err := e.input.Destroy(); err != nil && first == nil {
			first = err
		}
		e.input = nil
	}
	if e.output != nil {
		if err := e.output.Destroy(); err != nil && first == nil {
			first = err
		}
		e.output = nil
	}
	return first
}
