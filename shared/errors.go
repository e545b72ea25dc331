package shared

import "errors"

var (
	// ErrMissingData is returned when too few candles or required fields are provided.
	ErrMissingData = errors.New("missing data")
	// ErrLoadFailure is returned when a strategy cannot be located.
	ErrLoadFailure = errors.New("strategy load failure")
	// ErrEvaluationFailure is returned when a strategy fails during evaluation.
	ErrEvaluationFailure = errors.New("strategy evaluation failure")
)
