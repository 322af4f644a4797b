// Package providers - Acceleration preference for inference engines.
package providers

// Mode selects how an engine executes the model graph.
type Mode string

const (
	// ModeAccelerated requests the engine's hardware-accelerated path.
	// Engines fall back to the generic CPU path when the device does not
	// support acceleration; the fallback is logged, never an error.
	ModeAccelerated Mode = "accelerated"

	// ModeCPU requests the generic multi-threaded CPU path.
	ModeCPU Mode = "cpu"
)

// DefaultNumThreads is the thread count for the generic CPU path when none is
// configured.
const DefaultNumThreads = 4

// Options carries the acceleration preference handed to an engine loader.
type Options struct {
	// Mode is the requested execution path.
	Mode Mode `json:"mode" yaml:"mode"`
	// NumThreads is the CPU-path thread count. Zero or negative selects
	// DefaultNumThreads.
	NumThreads int `json:"num_threads" yaml:"num_threads"`
}

// Default returns the standard preference: accelerated with a
// DefaultNumThreads CPU fallback.
func Default() Options {
	return Options{Mode: ModeAccelerated, NumThreads: DefaultNumThreads}
}

// Threads returns the configured CPU thread count, substituting the default
// when unset.
func (o Options) Threads() int {
	if o.NumThreads <= 0 {
		return DefaultNumThreads
	}
	return o.NumThreads
}
