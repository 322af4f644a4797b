// Package tflite adapts TensorFlow Lite interpreters to the inference.Engine
// boundary.
package tflite

import (
	"github.com/golang/glog"
	"github.com/mattn/go-tflite"
	"github.com/mattn/go-tflite/delegates"
	"github.com/mattn/go-tflite/delegates/xnnpack"
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detect/inference"
	"github.com/nvr-ai/go-detect/inference/providers"
)

// Loader builds TFLite-backed engines from raw flatbuffer model bytes.
type Loader struct{}

// Engine wraps one TFLite interpreter and the model it was built from.
type Engine struct {
	model    *tflite.Model
	delegate delegates.Delegater
	interp   *tflite.Interpreter
	// The interpreter reads the model buffer in place; keep it reachable.
	raw []byte
}

var _ inference.Loader = Loader{}

// Load parses the model and builds an interpreter honoring the acceleration
// preference. ModeAccelerated requests the XNNPack delegate; when the
// delegate cannot be created on this device the interpreter falls back to the
// plain multi-threaded CPU path, which is logged but not an error.
func (Loader) Load(model []byte, opts providers.Options) (inference.Engine, error) {
	m := tflite.NewModel(model)
	if m == nil {
		return nil, errors.New("cannot parse TFLite model")
	}

	options := tflite.NewInterpreterOptions()
	defer options.Delete()
	options.SetNumThread(opts.Threads())

	var delegate delegates.Delegater
	if opts.Mode == providers.ModeAccelerated {
		delegate = xnnpack.New(xnnpack.DelegateOptions{NumThreads: int32(opts.Threads())})
		if delegate == nil {
			glog.Warningf("XNNPack delegate unavailable, using %d-thread CPU path", opts.Threads())
		} else {
			options.AddDelegate(delegate)
		}
	}

	interp := tflite.NewInterpreter(m, options)
	if interp == nil {
		if delegate != nil {
			delegate.Delete()
		}
		m.Delete()
		return nil, errors.New("cannot create TFLite interpreter")
	}

	if status := interp.AllocateTensors(); status != tflite.OK {
		interp.Delete()
		if delegate != nil {
			delegate.Delete()
		}
		m.Delete()
		return nil, errors.Errorf("tensor allocation failed with status %d", status)
	}

	return &Engine{model: m, delegate: delegate, interp: interp, raw: model}, nil
}

// InputShape reports the declared shape of input tensor i.
func (e *Engine) InputShape(i int) []int64 {
	return tensorShape(e.interp.GetInputTensor(i))
}

// OutputShape reports the declared shape of output tensor i.
func (e *Engine) OutputShape(i int) []int64 {
	return tensorShape(e.interp.GetOutputTensor(i))
}

func tensorShape(t *tflite.Tensor) []int64 {
	if t == nil {
		return nil
	}
	shape := make([]int64, t.NumDims())
	for i := range shape {
		shape[i] = int64(t.Dim(i))
	}
	return shape
}

// Run copies input into the interpreter, invokes it, and copies the output
// tensor back out.
func (e *Engine) Run(input, output []float32) error {
	in := e.interp.GetInputTensor(0)
	if got := len(in.Float32s()); got != len(input) {
		return errors.Errorf("input tensor holds %d floats, caller supplied %d", got, len(input))
	}
	copy(in.Float32s(), input)

	if status := e.interp.Invoke(); status != tflite.OK {
		return errors.Errorf("interpreter invoke failed with status %d", status)
	}

	out := e.interp.GetOutputTensor(0)
	if got := len(out.Float32s()); got != len(output) {
		return errors.Errorf("output tensor holds %d floats, caller expected %d", got, len(output))
	}
	copy(output, out.Float32s())
	return nil
}

// Close releases the interpreter, delegate, and model.
func (e *Engine) Close() error {
	if e.interp != nil {
		e.interp.Delete()
		e.interp = nil
	}
	if e.delegate != nil {
		e.delegate.Delete()
		e.delegate = nil
	}
	if e.model != nil {
		e.model.Delete()
		e.model = nil
	}
	e.raw = nil
	return nil
}
