// Package inference - Engine boundary, tensor layout, and detection sessions.
package inference

import "github.com/nvr-ai/go-detect/inference/providers"

// Engine is the synchronous boundary to an underlying neural-network
// runtime. One Engine wraps one loaded model. Implementations live in
// inference/engines; the rest of the pipeline only ever sees this interface.
//
// Engines are not safe for concurrent use. The Session serializes every call.
type Engine interface {
	// InputShape reports the declared shape of input tensor i, outermost
	// dimension first.
	InputShape(i int) []int64

	// OutputShape reports the declared shape of output tensor i, outermost
	// dimension first.
	OutputShape(i int) []int64

	// Run executes one inference pass, reading the full input buffer and
	// filling the full output buffer. A Run failure only poisons this single
	// pass; the engine remains usable for subsequent frames.
	Run(input, output []float32) error

	// Close releases the runtime resources behind the engine. The engine is
	// unusable afterwards.
	Close() error
}

// Loader builds an Engine from raw model bytes and an acceleration
// preference. Implementations decide how to honor the preference and fall
// back to the generic CPU path when acceleration is unavailable.
type Loader interface {
	Load(model []byte, opts providers.Options) (Engine, error)
}
