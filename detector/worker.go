// Package detector - Single-worker execution loop for detection sessions.
package detector

import (
	"image"

	"github.com/golang/glog"
)

// Runner executes one detection pass to completion. *inference.Session
// satisfies this.
type Runner interface {
	RunDetection(frame image.Image) error
}

// Worker owns a single goroutine that runs detection passes serially: no two
// passes ever execute concurrently, and any session reload issued by the
// owner is serialized against in-flight detection by the session itself.
//
// Frame delivery is keep-only-latest. The mailbox holds at most one pending
// frame; a newer frame replaces a stale pending one instead of queueing
// behind it. There is no cancellation of an in-flight pass; a frame that
// cannot be served promptly is simply superseded.
type Worker struct {
	runner Runner
	frames chan image.Image
	stop   chan struct{}
	done   chan struct{}
}

// New creates a stopped worker around the runner.
func New(runner Runner) *Worker {
	return &Worker{
		runner: runner,
		frames: make(chan image.Image, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start launches the worker goroutine.
func (w *Worker) Start() {
	go w.loop()
}

func (w *Worker) loop() {
	defer close(w.done)
	for {
		select {
		case <-w.stop:
			return
		case frame := <-w.frames:
			if err := w.runner.RunDetection(frame); err != nil {
				glog.Warningf("dropping frame: %v", err)
			}
		}
	}
}

// Submit hands a frame to the worker without blocking. When a stale frame is
// still pending it is discarded in favor of this one. Returns false when a
// pending frame was dropped to make room.
//
// Submit expects a single producer; concurrent producers may interleave
// replacements but never block or queue.
func (w *Worker) Submit(frame image.Image) bool {
	dropped := false
	for {
		select {
		case w.frames <- frame:
			return !dropped
		default:
		}
		select {
		case <-w.frames:
			dropped = true
		default:
		}
	}
}

// Stop halts the loop after any in-flight pass finishes and waits for the
// goroutine to exit. Pending frames are discarded. The runner is not
// released; its owner decides that.
func (w *Worker) Stop() {
	close(w.stop)
	<-w.done
}
