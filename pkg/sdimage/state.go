package sdimage

// State tracks the load pipeline. Transitions run strictly forward during a
// load; Failed is reachable from any non-terminal state, and Unload returns
// the component to Idle from either terminal.
type State string

const (
	StateIdle          State = "idle"
	StateReading       State = "reading"
	StateProbingFormat State = "probing_format"
	StatePlanning      State = "planning"
	StateDecoding      State = "decoding"
	StateFinalizing    State = "finalizing"
	StateLoaded        State = "loaded"
	StateFailed        State = "failed"
)

// Terminal reports whether a load attempt has finished in this state.
func (s State) Terminal() bool {
	return s == StateLoaded || s == StateFailed
}
