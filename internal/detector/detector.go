package detector

import "gocv.io/x/gocv"

// Detector defines the interface for hand detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns detected hand landmarks.
	// Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect. The painter tracks a
	// single hand, so the default is 1.
	MaxHands int `yaml:"max_hands"`

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64 `yaml:"min_confidence"`

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64 `yaml:"min_tracking_confidence"`

	// Script overrides the location of the MediaPipe service script.
	Script string `yaml:"script"`

	// Python overrides the interpreter used to run the service script.
	Python string `yaml:"python"`
}

// DefaultConfig returns a Config with the painter's detection thresholds.
func DefaultConfig() Config {
	return Config{
		MaxHands:        1,
		MinConfidence:   0.85,
		MinTrackingConf: 0.5,
	}
}
