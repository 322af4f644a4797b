package detector

import (
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingRunner records the frames it sees and holds each pass until
// released, so tests can control when the worker is busy.
type blockingRunner struct {
	mu      sync.Mutex
	frames  []image.Image
	started chan struct{}
	release chan struct{}
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{
		started: make(chan struct{}, 16),
		release: make(chan struct{}, 16),
	}
}

func (r *blockingRunner) RunDetection(frame image.Image) error {
	r.started <- struct{}{}
	<-r.release
	r.mu.Lock()
	r.frames = append(r.frames, frame)
	r.mu.Unlock()
	return nil
}

func (r *blockingRunner) seen() []image.Image {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]image.Image(nil), r.frames...)
}

func frame(w int) image.Image {
	return image.NewRGBA(image.Rect(0, 0, w, 1))
}

func TestWorker_ProcessesSubmittedFrame(t *testing.T) {
	runner := newBlockingRunner()
	w := New(runner)
	w.Start()
	defer w.Stop()

	assert.True(t, w.Submit(frame(1)), "first frame is accepted without drops")

	select {
	case <-runner.started:
	case <-time.After(time.Second):
		t.Fatal("worker never picked up the frame")
	}
	runner.release <- struct{}{}

	require.Eventually(t, func() bool { return len(runner.seen()) == 1 },
		time.Second, 5*time.Millisecond)
}

func TestWorker_KeepsOnlyLatestFrame(t *testing.T) {
	runner := newBlockingRunner()
	w := New(runner)
	w.Start()

	// First frame occupies the worker.
	w.Submit(frame(1))
	<-runner.started

	// While it is busy, three more arrive: each replaces the pending one.
	assert.True(t, w.Submit(frame(2)), "mailbox was empty")
	assert.False(t, w.Submit(frame(3)), "stale pending frame dropped")
	assert.False(t, w.Submit(frame(4)), "stale pending frame dropped")

	runner.release <- struct{}{}
	<-runner.started
	runner.release <- struct{}{}

	require.Eventually(t, func() bool { return len(runner.seen()) == 2 },
		time.Second, 5*time.Millisecond)
	w.Stop()

	seen := runner.seen()
	require.Len(t, seen, 2, "intermediate frames are never queued")
	assert.Equal(t, 1, seen[0].Bounds().Dx())
	assert.Equal(t, 4, seen[1].Bounds().Dx(), "only the latest pending frame survives")
}

func TestWorker_PassesRunSerially(t *testing.T) {
	runner := newBlockingRunner()
	w := New(runner)
	w.Start()
	defer w.Stop()

	w.Submit(frame(1))
	<-runner.started

	w.Submit(frame(2))
	select {
	case <-runner.started:
		t.Fatal("second pass started while the first was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	runner.release <- struct{}{}
	select {
	case <-runner.started:
	case <-time.After(time.Second):
		t.Fatal("second pass never started")
	}
	runner.release <- struct{}{}
}

func TestWorker_StopWaitsForInFlightPass(t *testing.T) {
	runner := newBlockingRunner()
	w := New(runner)
	w.Start()

	w.Submit(frame(1))
	<-runner.started

	stopped := make(chan struct{})
	go func() {
		w.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a pass was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	runner.release <- struct{}{}
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop never returned")
	}
	assert.Len(t, runner.seen(), 1)
}
