package models

// IndicatorColor is the robot eye color shown next to the transcript.
type IndicatorColor string

const (
	// IndicatorIdle is the resting "green" state.
	IndicatorIdle IndicatorColor = "green"
	// IndicatorActive is shown while a turn is being handled.
	IndicatorActive IndicatorColor = "red"
)

// TurnState is the observable turn-taking status of a session.
type TurnState struct {
	Indicator IndicatorColor
	// Streaming is true from response start until the assistant
	// message is finalized or replaced by a diagnostic.
	Streaming bool
}

// IdleState returns the state of a session with no turn in flight.
func IdleState() TurnState {
	return TurnState{Indicator: IndicatorIdle}
}
