package domain

// NavigationKind identifies the variant of a NavigationRequest.
type NavigationKind int

const (
	NavNone NavigationKind = iota
	NavNext
	NavPrevious
	NavSpecific
	NavJump
)

// NavigationRequest is a pending navigation intent. At most one request is
// live at a time; the playback manager consumes it with a take-and-reset so a
// request is processed exactly once even when processing fails part way.
type NavigationRequest struct {
	Kind   NavigationKind
	Path   string // NavSpecific only: absolute file path
	Offset int    // NavJump only: negative means backward
}

// NoRequest is the consumed/empty request value.
var NoRequest = NavigationRequest{Kind: NavNone}

// Next returns a request to advance to the following image.
func Next() NavigationRequest { return NavigationRequest{Kind: NavNext} }

// Previous returns a request to step back to the preceding image.
func Previous() NavigationRequest { return NavigationRequest{Kind: NavPrevious} }

// Specific returns a request to display the given file.
func Specific(path string) NavigationRequest {
	return NavigationRequest{Kind: NavSpecific, Path: path}
}

// Jump returns a request to move offset entries from the current position,
// wrapping at directory bounds.
func Jump(offset int) NavigationRequest {
	return NavigationRequest{Kind: NavJump, Offset: offset}
}

// IsNone reports whether the request is empty.
func (r NavigationRequest) IsNone() bool { return r.Kind == NavNone }

// PlaybackState is the playback state machine of the manager.
type PlaybackState int

const (
	// Paused is the initial state; navigation is driven by explicit requests.
	Paused PlaybackState = iota

	// PlayingForward advances through the sequence at the configured frame rate.
	PlayingForward

	// PlayingBackward is reserved. Nothing transitions into it yet.
	PlayingBackward
)

func (s PlaybackState) String() string {
	switch s {
	case Paused:
		return "paused"
	case PlayingForward:
		return "playing-forward"
	case PlayingBackward:
		return "playing-backward"
	default:
		return "unknown"
	}
}
