package player

// State is a phase of playback.
type State int

// Playback states.
const (
	StateInit State = iota
	StateConverting
	StateRendering
	StateSleeping
	StateEnd
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateConverting:
		return "converting"
	case StateRendering:
		return "rendering"
	case StateSleeping:
		return "sleeping"
	case StateEnd:
		return "end"
	case StateAborted:
		return "aborted"
	}

	return "unknown"
}

// Terminal reports whether playback has finished in s.
func (s State) Terminal() bool {
	return s == StateEnd || s == StateAborted
}

// Reason explains why playback ended without an error.
type Reason int

// End reasons.
const (
	ReasonNone Reason = iota
	// ReasonEndOfStream means the next frame did not exist.
	ReasonEndOfStream
	// ReasonFrameLimit means the configured last frame was played.
	ReasonFrameLimit
	// ReasonInterrupted means the context was canceled.
	ReasonInterrupted
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonEndOfStream:
		return "end of stream"
	case ReasonFrameLimit:
		return "frame limit"
	case ReasonInterrupted:
		return "interrupted"
	}

	return "unknown"
}
