package playalong

// PlaybackState is the transport state of a session.
type PlaybackState int

const (
	Stopped PlaybackState = iota
	CountIn
	Playing
	Paused
)

func (s PlaybackState) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case CountIn:
		return "count-in"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	}
	return "unknown"
}
