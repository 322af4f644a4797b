package inference

import (
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-detect/inference/providers"
)

// fakeEngine implements Engine with canned shapes and output.
type fakeEngine struct {
	inputShape  []int64
	outputShape []int64
	output      []float32
	runErr      error
	runs        int
	closed      bool
}

func (f *fakeEngine) InputShape(int) []int64  { return f.inputShape }
func (f *fakeEngine) OutputShape(int) []int64 { return f.outputShape }

func (f *fakeEngine) Run(input, output []float32) error {
	f.runs++
	if f.runErr != nil {
		return f.runErr
	}
	copy(output, f.output)
	return nil
}

func (f *fakeEngine) Close() error {
	f.closed = true
	return nil
}

// fakeLoader hands out a prepared engine and records how it was asked.
type fakeLoader struct {
	engine   *fakeEngine
	err      error
	loads    int
	lastOpts providers.Options
}

func (l *fakeLoader) Load(model []byte, opts providers.Options) (Engine, error) {
	l.loads++
	l.lastOpts = opts
	if l.err != nil {
		return nil, l.err
	}
	return l.engine, nil
}

// testEngine declares a 4x4 RGB channel-last input and a 2-class, 3-slot
// output, the smallest layout that exercises the whole pipeline.
func testEngine() *fakeEngine {
	return &fakeEngine{
		inputShape:  []int64{1, 4, 4, 3},
		outputShape: []int64{1, 6, 3},
		output:      make([]float32, 6*3),
	}
}

func testFrame() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: 120, G: 80, B: 40, A: 255})
		}
	}
	return img
}

// record writes one detection record into a fake output tensor.
func (f *fakeEngine) record(slot int, cx, cy, w, h float32, scores ...float32) {
	stride := 4 + len(scores)
	copy(f.output[slot*stride:], append([]float32{cx, cy, w, h}, scores...))
}

func newTestSession(loader Loader, results *[]Result) *Session {
	return NewSession(loader, DefaultConfig(), func(r Result) {
		*results = append(*results, r)
	})
}

func TestSession_InitializeReachesReady(t *testing.T) {
	loader := &fakeLoader{engine: testEngine()}
	s := NewSession(loader, DefaultConfig(), nil)

	require.Equal(t, StateUninitialized, s.State())
	err := s.Initialize([]byte("model"), strings.NewReader("person\ncar\n"), providers.Default())
	require.NoError(t, err)
	assert.Equal(t, StateReady, s.State())
	assert.Equal(t, providers.ModeAccelerated, loader.lastOpts.Mode)

	layout := s.Layout()
	assert.Equal(t, 4, layout.InputWidth)
	assert.Equal(t, 2, layout.NumClasses)
	assert.Equal(t, 3, layout.NumDetections)
}

func TestSession_EngineConstructionFailureIsFatal(t *testing.T) {
	loader := &fakeLoader{err: errors.New("unsupported op")}
	s := NewSession(loader, DefaultConfig(), nil)

	err := s.Initialize([]byte("model"), nil, providers.Default())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEngineConstruction))
	assert.Equal(t, StateFailed, s.State())

	// A failed session refuses detection with a distinct error.
	assert.True(t, errors.Is(s.RunDetection(testFrame()), ErrSessionFailed))
}

func TestSession_InvalidShapeIsFatal(t *testing.T) {
	engine := testEngine()
	engine.inputShape = []int64{4, 4, 3} // rank 3
	loader := &fakeLoader{engine: engine}
	s := NewSession(loader, DefaultConfig(), nil)

	err := s.Initialize([]byte("model"), nil, providers.Default())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidModelShape))
	assert.Equal(t, StateFailed, s.State())
	assert.True(t, engine.closed, "a mis-shapen engine must be released")
}

func TestSession_DetectionBeforeInitialize(t *testing.T) {
	s := NewSession(&fakeLoader{engine: testEngine()}, DefaultConfig(), nil)
	assert.True(t, errors.Is(s.RunDetection(testFrame()), ErrNotInitialized),
		"uninitialized must be distinguishable from failed")
}

func TestSession_RunDetectionReportsBoxes(t *testing.T) {
	engine := testEngine()
	engine.record(0, 0.5, 0.5, 0.2, 0.4, 0.1, 0.9)
	loader := &fakeLoader{engine: engine}

	var results []Result
	s := newTestSession(loader, &results)
	require.NoError(t, s.Initialize([]byte("model"), strings.NewReader("person\ncar\n"), providers.Default()))

	require.NoError(t, s.RunDetection(testFrame()))
	require.Len(t, results, 1, "exactly one result per pass")
	require.Len(t, results[0].Boxes, 1)

	box := results[0].Boxes[0]
	assert.Equal(t, 1, box.Class)
	assert.Equal(t, "car", box.Label)
	assert.InDelta(t, 0.4, box.Box.X1, 0.0001)
	assert.InDelta(t, 0.3, box.Box.Y1, 0.0001)
	assert.InDelta(t, 0.6, box.Box.X2, 0.0001)
	assert.InDelta(t, 0.7, box.Box.Y2, 0.0001)
	assert.GreaterOrEqual(t, results[0].ElapsedMillis, int64(0))
	assert.Equal(t, StateReady, s.State(), "session returns to ready after a pass")
}

func TestSession_SuppressionAppliedPerPass(t *testing.T) {
	engine := testEngine()
	engine.record(0, 0.5, 0.5, 0.4, 0.4, 0.1, 0.9)
	engine.record(1, 0.52, 0.5, 0.4, 0.4, 0.85, 0.1) // overlaps slot 0, different class
	loader := &fakeLoader{engine: engine}

	var results []Result
	s := newTestSession(loader, &results)
	require.NoError(t, s.Initialize([]byte("model"), nil, providers.Default()))

	require.NoError(t, s.RunDetection(testFrame()))
	require.Len(t, results, 1)
	require.Len(t, results[0].Boxes, 1, "class-agnostic suppression collapses the overlap")
	assert.InDelta(t, 0.9, results[0].Boxes[0].Score, 0.0001)
}

func TestSession_NoDetectionsIsNotAnError(t *testing.T) {
	// Output stays all zero: every candidate is below threshold.
	loader := &fakeLoader{engine: testEngine()}

	var results []Result
	s := newTestSession(loader, &results)
	require.NoError(t, s.Initialize([]byte("model"), nil, providers.Default()))

	require.NoError(t, s.RunDetection(testFrame()))
	require.Len(t, results, 1)
	assert.Nil(t, results[0].Boxes, "empty pass reports no detections")
}

func TestSession_EngineFailureIsPerFrame(t *testing.T) {
	engine := testEngine()
	engine.record(0, 0.5, 0.5, 0.2, 0.2, 0.9, 0.1)
	loader := &fakeLoader{engine: engine}

	var results []Result
	s := newTestSession(loader, &results)
	require.NoError(t, s.Initialize([]byte("model"), nil, providers.Default()))

	engine.runErr = errors.New("delegate kernel crashed")
	require.NoError(t, s.RunDetection(testFrame()), "a failed pass is absorbed, not surfaced")
	require.Len(t, results, 1)
	assert.Nil(t, results[0].Boxes, "failed pass reports no detections")
	assert.Equal(t, StateReady, s.State(), "session stays ready for subsequent frames")

	// The next frame works again.
	engine.runErr = nil
	require.NoError(t, s.RunDetection(testFrame()))
	require.Len(t, results, 2)
	assert.Len(t, results[1].Boxes, 1)
}

func TestSession_LabelFailureIsRecoverable(t *testing.T) {
	engine := testEngine()
	engine.record(0, 0.5, 0.5, 0.2, 0.2, 0.1, 0.9)
	loader := &fakeLoader{engine: engine}

	var results []Result
	s := newTestSession(loader, &results)

	src := &failingReader{data: strings.NewReader("person\n"), err: errors.New("read error")}
	require.NoError(t, s.Initialize([]byte("model"), src, providers.Default()),
		"label failure must never be fatal")
	require.Equal(t, StateReady, s.State())

	require.NoError(t, s.RunDetection(testFrame()))
	require.Len(t, results, 1)
	require.Len(t, results[0].Boxes, 1)
	assert.Equal(t, "Unknown_1", results[0].Boxes[0].Label,
		"classes past the partial table fall back to synthetic names")
}

func TestSession_Reload(t *testing.T) {
	first := testEngine()
	loader := &fakeLoader{engine: first}
	s := NewSession(loader, DefaultConfig(), nil)
	require.NoError(t, s.Initialize([]byte("model"), nil, providers.Default()))

	second := testEngine()
	loader.engine = second
	cpu := providers.Options{Mode: providers.ModeCPU, NumThreads: 2}
	require.NoError(t, s.Reload(cpu))

	assert.True(t, first.closed, "reload releases the previous engine")
	assert.Equal(t, 2, loader.loads)
	assert.Equal(t, providers.ModeCPU, loader.lastOpts.Mode, "reload switches acceleration mode")
	assert.Equal(t, StateReady, s.State())
}

func TestSession_ReloadRecoversFailedSession(t *testing.T) {
	loader := &fakeLoader{err: errors.New("bad weights")}
	s := NewSession(loader, DefaultConfig(), nil)

	require.Error(t, s.Initialize([]byte("model"), nil, providers.Default()))
	require.Equal(t, StateFailed, s.State())

	loader.err = nil
	loader.engine = testEngine()
	require.NoError(t, s.Reload(providers.Options{Mode: providers.ModeCPU}))
	assert.Equal(t, StateReady, s.State())
}

func TestSession_ReloadWithoutInitialize(t *testing.T) {
	s := NewSession(&fakeLoader{engine: testEngine()}, DefaultConfig(), nil)
	assert.True(t, errors.Is(s.Reload(providers.Default()), ErrNotInitialized))
}

func TestSession_Release(t *testing.T) {
	engine := testEngine()
	loader := &fakeLoader{engine: engine}
	s := NewSession(loader, DefaultConfig(), nil)
	require.NoError(t, s.Initialize([]byte("model"), nil, providers.Default()))

	s.Release()
	assert.True(t, engine.closed)
	assert.Equal(t, StateUninitialized, s.State())
	assert.True(t, errors.Is(s.RunDetection(testFrame()), ErrNotInitialized))
	assert.True(t, errors.Is(s.Reload(providers.Default()), ErrNotInitialized),
		"release drops the retained model; reinitialization is required")

	// Release is valid from any state, including repeated calls.
	s.Release()
}
