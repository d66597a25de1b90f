package asset

import (
	"errors"
	"fmt"
)

// Load failure taxonomy. Stage-local failures (IO, deserialize) are
// recorded on the failing source's state and surfaced through
// GetLoadState; they are never retried by the core. Cycles and ID
// collisions are data errors: reported, never auto-resolved.
var (
	// ErrLoaderNotFound: no registered loader matches the path's
	// extension or declared type.
	ErrLoaderNotFound = errors.New("no asset loader registered for path")

	// ErrSerializerNotFound: no registered serializer for the value's
	// type tag.
	ErrSerializerNotFound = errors.New("no asset serializer registered for type")

	// ErrDeserialize: the matched loader rejected the source bytes.
	ErrDeserialize = errors.New("asset bytes malformed for loader")

	// ErrDependencyFailed: a required dependency did not reach Loaded.
	ErrDependencyFailed = errors.New("required dependency failed to load")

	// ErrCyclicDependency: a dependency chain returned to its origin.
	// Reported on the node whose edge would complete the cycle.
	ErrCyclicDependency = errors.New("cyclic asset dependency")

	// ErrDuplicateAssetID: an import produced two assets under the same
	// label.
	ErrDuplicateAssetID = errors.New("duplicate asset id produced by import")

	// ErrCancelled: the load's owning context was torn down mid-flight.
	ErrCancelled = errors.New("asset load cancelled")

	// ErrNoStore: a loader produced a value type no registered store
	// accepts.
	ErrNoStore = errors.New("no asset store registered for value type")
)

// LoadError wraps a failure with the path and the stage it occurred in.
type LoadError struct {
	Path  Path
	Stage LoadState
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %q: %s: %v", e.Path, e.Stage, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// NewLoadError builds a LoadError for the given path and stage.
func NewLoadError(p Path, stage LoadState, err error) *LoadError {
	return &LoadError{Path: p, Stage: stage, Err: err}
}
