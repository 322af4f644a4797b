package inference

import "github.com/pkg/errors"

// Initialization failures are fatal: the session stays Failed until an
// explicit Reload with different parameters. Per-frame failures never surface
// here; they are absorbed into a "no detections" result.
var (
	// ErrInvalidModelShape reports a model whose declared tensor shapes
	// violate the layout contract: input rank must be 4 and output rank must
	// be 3 with a leading batch of 1.
	ErrInvalidModelShape = errors.New("invalid model tensor shape")

	// ErrEngineConstruction reports that the underlying inference engine
	// could not be built from the supplied model bytes.
	ErrEngineConstruction = errors.New("engine construction failed")

	// ErrNotInitialized reports a detection request against a session that
	// has not been initialized, or was released.
	ErrNotInitialized = errors.New("session not initialized")

	// ErrSessionFailed reports a detection request against a session whose
	// initialization failed. Recovery requires an explicit reload.
	ErrSessionFailed = errors.New("session failed, reload required")
)
