package particlefilter

import "errors"

var (
	// ErrInvalidConfig is returned (wrapped) when a world, filter or simulation
	// is configured with values the estimator cannot run with.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrMeasurementSize is returned when a measurement vector does not have
	// exactly one range per landmark.
	ErrMeasurementSize = errors.New("measurement size does not match landmark count")
)
