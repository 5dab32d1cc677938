package doodle

// ApplicationState represents where the owned application is in its lifecycle.
// States only ever advance by one step:
//
//	Uninitialized -> Initialized -> Running -> Terminating -> Deinitialized
type ApplicationState int32

const (
	// StateUninitialized is the state from CreateApp until Initialize succeeds.
	StateUninitialized ApplicationState = iota

	// StateInitialized is entered once Initialize has returned successfully.
	StateInitialized

	// StateRunning is held for the whole frame loop.
	StateRunning

	// StateTerminating is entered when the loop exits, before Deinitialize.
	StateTerminating

	// StateDeinitialized is final; the window has been released.
	StateDeinitialized
)

var stateNames = [...]string{
	StateUninitialized: "uninitialized",
	StateInitialized:   "initialized",
	StateRunning:       "running",
	StateTerminating:   "terminating",
	StateDeinitialized: "deinitialized",
}

func (s ApplicationState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// CanAdvanceTo reports whether next is the single state that follows s.
func (s ApplicationState) CanAdvanceTo(next ApplicationState) bool {
	return next == s+1 && next <= StateDeinitialized
}

// WindowLive reports whether the window is held while in state s.
func (s ApplicationState) WindowLive() bool {
	return s >= StateInitialized && s <= StateTerminating
}

// MarshalText encodes the state as its lower-case name.
func (s ApplicationState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
