package workflow

// State is any string-backed state type that can validate itself
type State interface {
	~string
	IsValid() bool
}

// SessionState represents the lifecycle of a signed-in session
type SessionState string

const (
	SessionSignedOut SessionState = "SignedOut"
	SessionLoading   SessionState = "Loading"
	SessionReady     SessionState = "Ready"
)

var validSessionStates = map[SessionState]bool{
	SessionSignedOut: true,
	SessionLoading:   true,
	SessionReady:     true,
}

// IsValid returns true if the state is a valid session state
func (s SessionState) IsValid() bool {
	return validSessionStates[s]
}

// String returns the string representation of the state
func (s SessionState) String() string {
	return string(s)
}
