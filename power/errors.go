package power

import "errors"

var (
	// ErrConfiguration reports an unusable supply description, for example an unknown GPIO line.
	ErrConfiguration = errors.New("power: invalid configuration")
	// ErrSequence reports a power sequence aborted partway.
	ErrSequence = errors.New("power: sequence aborted")
)
