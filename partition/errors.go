package partition

import "errors"

var (
	// ErrConfiguration indicates an invalid round-completeness configuration.
	ErrConfiguration = errors.New("invalid partition configuration")

	// ErrDecode indicates a frame that does not parse as a partition update.
	ErrDecode = errors.New("failed to decode partition update")

	// ErrUnknownPartition indicates a partition identifier with no known name.
	ErrUnknownPartition = errors.New("unknown partition")

	// ErrCallback wraps a failure returned by the decision function.
	ErrCallback = errors.New("decision function failed")

	// ErrDispatching is returned when a frame is ingested while a round is
	// being dispatched on the same aggregator.
	ErrDispatching = errors.New("round dispatch in progress")
)
