package ui

// LoopMode is what happens when a track finishes.
type LoopMode int

const (
	LoopOff LoopMode = iota
	LoopTrack
	LoopAll
)

// Next cycles to the next loop mode.
func (l LoopMode) Next() LoopMode {
	switch l {
	case LoopOff:
		return LoopTrack
	case LoopTrack:
		return LoopAll
	default:
		return LoopOff
	}
}

func (l LoopMode) String() string {
	switch l {
	case LoopTrack:
		return "track"
	case LoopAll:
		return "all"
	default:
		return "off"
	}
}

// Icon returns a visual indicator for the loop mode.
func (l LoopMode) Icon() string {
	switch l {
	case LoopTrack:
		return "[loop one]"
	case LoopAll:
		return "[loop all]"
	default:
		return ""
	}
}

// playerLoops is the loop count handed to the player. Only LoopTrack
// repeats inside the player; list wrapping is done by the model.
func (l LoopMode) playerLoops(base int) int {
	if l == LoopTrack {
		return -1
	}
	return base
}
