package asset

// LoadState is the position of a source (or one of its assets) in the
// load state machine.
//
// The happy path is Requested → Reading → Parsing → WaitingOnDeps →
// Loaded. Any non-terminal state may transition to Failed. Unloaded is
// the state after an explicit unload or refcount-driven removal.
type LoadState int

const (
	StateUnloaded LoadState = iota
	StateRequested
	StateReading
	StateParsing
	StateWaitingOnDeps
	StateLoaded
	StateFailed
)

var stateNames = map[LoadState]string{
	StateUnloaded:      "unloaded",
	StateRequested:     "requested",
	StateReading:       "reading",
	StateParsing:       "parsing",
	StateWaitingOnDeps: "waiting_on_deps",
	StateLoaded:        "loaded",
	StateFailed:        "failed",
}

func (s LoadState) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}

// Terminal reports whether the state ends a load attempt. Waiters on a
// source are released once it reaches a terminal state.
func (s LoadState) Terminal() bool {
	return s == StateLoaded || s == StateFailed || s == StateUnloaded
}
