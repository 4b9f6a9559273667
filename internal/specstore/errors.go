package specstore

import "errors"

// Sentinel errors for store construction, mutation, and rollback.
var (
	// ErrLoad indicates a document exists on disk but failed the heading
	// grammar entirely. Fatal at construction; there is no silent fallback
	// once a document exists.
	ErrLoad = errors.New("spec document failed to parse")
	// ErrConcurrencyTimeout indicates a lock guarding the mutation sequence
	// could not be acquired within its bound. No partial write occurred.
	ErrConcurrencyTimeout = errors.New("concurrency timeout")
	// ErrRollbackRange indicates a rollback index outside the version history.
	ErrRollbackRange = errors.New("version index out of range")
	// ErrUnknownFeature indicates an update or removal referencing a feature
	// ID that is not in the spec.
	ErrUnknownFeature = errors.New("unknown feature ID")
)

// ValidationError records an operation rejected before any state changed.
type ValidationError struct {
	Op        string // operation name, e.g. "update_feature"
	FeatureID string
	Err       error
}

// Error returns a human-readable string with operation context.
func (e *ValidationError) Error() string {
	return e.Op + ": feature " + e.FeatureID + ": " + e.Err.Error()
}

// Unwrap returns the underlying error for use with errors.Is/As.
func (e *ValidationError) Unwrap() error {
	return e.Err
}
