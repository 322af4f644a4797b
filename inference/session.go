package inference

import (
	"image"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detect/inference/providers"
	"github.com/nvr-ai/go-detect/models/postprocess"
)

// State is the lifecycle phase of a Session.
type State int

const (
	// StateUninitialized means Initialize has not run, or Release was called.
	StateUninitialized State = iota
	// StateReady means the engine is loaded and detection passes may run.
	StateReady
	// StateRunning means a detection pass is in flight.
	StateRunning
	// StateFailed means initialization failed; only an explicit Reload with
	// different parameters can recover.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Result is the outcome of one detection pass. Boxes is nil when the pass
// found nothing (including per-frame engine failures); otherwise it holds the
// suppressed detections in descending confidence order.
type Result struct {
	Boxes         []postprocess.Detection
	ElapsedMillis int64
}

// Handler receives exactly one Result per RunDetection call, synchronously
// from the calling goroutine.
type Handler func(Result)

// Session owns one engine and runs the full per-frame pipeline: preprocess,
// inference, decode, suppress. All mutable state (engine, layout, labels,
// buffers) is guarded by a single mutex held for the whole of Initialize,
// Reload, and RunDetection, so those operations never interleave.
type Session struct {
	mu      sync.Mutex
	state   State
	cfg     Config
	loader  Loader
	handler Handler

	model   []byte
	labels  []string
	engine  Engine
	layout  Layout
	decoder postprocess.Decoder
	nms     postprocess.NMSConfig

	input  []float32
	output []float32
}

// NewSession creates an uninitialized session. The handler may be nil, in
// which case results are discarded and only the returned errors are
// meaningful.
func NewSession(loader Loader, cfg Config, handler Handler) *Session {
	return &Session{
		cfg:     cfg,
		loader:  loader,
		handler: handler,
	}
}

// Initialize loads the label table and builds the engine, then resolves the
// tensor layout and allocates the per-frame buffers.
//
// A label read failure is recoverable: the session logs a warning and
// proceeds with whatever labels were read, falling back to synthetic class
// names at decode time. An engine construction failure or a layout contract
// violation is fatal: the session transitions to Failed and the error is
// returned, distinguishable via errors.Is as ErrEngineConstruction or
// ErrInvalidModelShape.
func (s *Session) Initialize(model []byte, labelSource io.Reader, opts providers.Options) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if labelSource != nil {
		labels, err := ParseLabels(labelSource)
		if err != nil {
			glog.Warningf("label table load failed, continuing with %d labels: %v", len(labels), err)
		}
		s.labels = labels
	}

	return s.buildEngine(model, opts)
}

// Reload releases the current engine and repeats initialization with the
// retained model bytes and labels. Used to switch acceleration modes at
// runtime, and to recover a Failed session.
func (s *Session) Reload(opts providers.Options) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.model == nil {
		return errors.Wrap(ErrNotInitialized, "reload requires a prior initialize")
	}
	return s.buildEngine(s.model, opts)
}

// buildEngine is the shared tail of Initialize and Reload. Callers hold s.mu.
func (s *Session) buildEngine(model []byte, opts providers.Options) error {
	s.closeEngine()

	// The model is retained even when construction fails, so a Failed
	// session can be recovered by Reload with different parameters.
	s.model = model

	engine, err := s.loader.Load(model, opts)
	if err != nil {
		s.state = StateFailed
		return errors.Wrapf(ErrEngineConstruction, "%v", err)
	}

	layout, err := ResolveLayout(engine.InputShape(0), engine.OutputShape(0))
	if err != nil {
		engine.Close()
		s.state = StateFailed
		return err
	}

	s.engine = engine
	s.layout = layout
	s.input = make([]float32, layout.InputElements())
	s.output = make([]float32, layout.OutputElements())
	s.decoder = postprocess.Decoder{
		NumClasses:          layout.NumClasses,
		NumDetections:       layout.NumDetections,
		ConfidenceThreshold: s.cfg.ConfidenceThreshold,
		Labels:              s.labels,
	}
	s.nms = postprocess.NMSConfig{
		IoUThreshold: s.cfg.IoUThreshold,
		ClassAware:   s.cfg.ClassAwareNMS,
	}
	s.state = StateReady

	glog.V(1).Infof("engine ready: %dx%dx%d input, %d classes, %d detection slots, mode=%s",
		layout.InputWidth, layout.InputHeight, layout.InputChannels,
		layout.NumClasses, layout.NumDetections, opts.Mode)
	return nil
}

// RunDetection executes one full detection pass over the frame and hands the
// handler exactly one Result.
//
// Only valid in Ready; Uninitialized and Failed are reported as distinct
// errors so a caller can tell "not ready yet" from "requires reload". A
// per-frame engine execution failure is absorbed: the handler sees an empty
// Result, the session returns to Ready, and nil is returned.
func (s *Session) RunDetection(frame image.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateReady:
	case StateUninitialized:
		return ErrNotInitialized
	case StateFailed:
		return ErrSessionFailed
	default:
		return errors.Errorf("detection pass invalid in state %s", s.state)
	}

	s.state = StateRunning
	defer func() { s.state = StateReady }()

	start := time.Now()

	if err := PrepareInput(frame, s.layout, s.input); err != nil {
		glog.Warningf("frame preprocessing failed: %v", err)
		s.emit(Result{})
		return nil
	}

	if err := s.engine.Run(s.input, s.output); err != nil {
		glog.Warningf("inference pass failed, reporting no detections: %v", err)
		s.emit(Result{})
		return nil
	}

	candidates := s.decoder.Decode(s.output)
	boxes := postprocess.ApplyGreedyNMS(candidates, &s.nms)
	elapsed := time.Since(start).Milliseconds()

	if len(boxes) == 0 {
		s.emit(Result{})
		return nil
	}

	glog.V(2).Infof("detected %d objects in %dms", len(boxes), elapsed)
	s.emit(Result{Boxes: boxes, ElapsedMillis: elapsed})
	return nil
}

func (s *Session) emit(r Result) {
	if s.handler != nil {
		s.handler(r)
	}
}

// Release frees the engine. Valid from any state; the session returns to
// Uninitialized and requires a fresh Initialize before further use.
func (s *Session) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closeEngine()
	s.model = nil
	s.state = StateUninitialized
}

// closeEngine closes and clears the engine handle. Callers hold s.mu.
func (s *Session) closeEngine() {
	if s.engine != nil {
		if err := s.engine.Close(); err != nil {
			glog.Warningf("engine close failed: %v", err)
		}
		s.engine = nil
	}
}

// State reports the current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Layout reports the tensor layout resolved at initialization. Only
// meaningful once the session has reached Ready.
func (s *Session) Layout() Layout {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.layout
}
