package inference

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-detect/inference/providers"
)

// Default thresholds for the post-processing pipeline.
const (
	// DefaultConfidenceThreshold is the minimum winning class score a
	// candidate must strictly exceed to survive decoding.
	DefaultConfidenceThreshold float32 = 0.75
	// DefaultIoUThreshold is the overlap at which suppression removes the
	// lower-confidence box.
	DefaultIoUThreshold float32 = 0.3
)

// Config carries the tunable parameters of a detection session.
type Config struct {
	// ConfidenceThreshold filters decoded candidates (strictly greater-than).
	ConfidenceThreshold float32 `json:"confidence_threshold" yaml:"confidence_threshold"`
	// IoUThreshold drives Non-Maximum Suppression (greater-or-equal).
	IoUThreshold float32 `json:"iou_threshold" yaml:"iou_threshold"`
	// ClassAwareNMS restricts suppression to same-class pairs. Off by
	// default: overlapping boxes suppress each other regardless of class.
	ClassAwareNMS bool `json:"class_aware_nms" yaml:"class_aware_nms"`
	// Acceleration is the engine execution preference.
	Acceleration providers.Options `json:"acceleration" yaml:"acceleration"`
}

// DefaultConfig returns the standard session configuration.
func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold: DefaultConfidenceThreshold,
		IoUThreshold:        DefaultIoUThreshold,
		Acceleration:        providers.Default(),
	}
}

// LoadConfig reads a YAML session configuration, applying defaults for any
// field the file omits.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "reading config %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), errors.Wrapf(err, "parsing config %s", path)
	}
	return cfg, nil
}
