package goSession

import "time"

// Status is the tri-state authentication status of a [Controller].
type Status uint8

const (
	// StatusUnknown is the state before Bootstrap resolved the stored session.
	StatusUnknown Status = iota
	// StatusAuthenticated means an access token is held and was unexpired when it was adopted.
	StatusAuthenticated
	// StatusUnauthenticated means no tokens are retained.
	StatusUnauthenticated
)

func (s Status) String() string {
	switch s {
	case StatusUnknown:
		return "unknown"
	case StatusAuthenticated:
		return "authenticated"
	case StatusUnauthenticated:
		return "unauthenticated"
	default:
		return "invalid"
	}
}

// AppState mirrors the host application's lifecycle state.
type AppState uint8

const (
	// AppStateActive is the foreground state.
	AppStateActive AppState = iota
	// AppStateBackground starts the background grace window while authenticated.
	AppStateBackground
	// AppStateInactive is a transitional state (e.g. an OS overlay). It does not change the timer.
	AppStateInactive
)

func (s AppState) String() string {
	switch s {
	case AppStateActive:
		return "active"
	case AppStateBackground:
		return "background"
	case AppStateInactive:
		return "inactive"
	default:
		return "invalid"
	}
}

// ParseAppState maps a lifecycle name ("active", "background", "inactive") to an AppState.
func ParseAppState(name string) (AppState, bool) {
	switch name {
	case "active":
		return AppStateActive, true
	case "background":
		return AppStateBackground, true
	case "inactive":
		return AppStateInactive, true
	default:
		return 0, false
	}
}

// Session is a value snapshot of the controller's session. Empty strings and a zero
// ExpiresAt mean absent.
type Session struct {
	AccessToken  string
	RefreshToken string
	Status       Status
	// ExpiresAt is the access token exp claim in seconds since the Unix epoch.
	ExpiresAt int64
	UserID    int64
}

// ExpiresAtTime returns ExpiresAt as a time, or the zero time when unknown.
func (s Session) ExpiresAtTime() time.Time {
	if s.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.Unix(s.ExpiresAt, 0)
}

// Profile carries the registration fields other than the password.
type Profile struct {
	Name    string
	Surname string
	Email   string
}
