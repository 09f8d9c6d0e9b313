package bridge

// Message type tags.
const (
	MessageAuthorization = "authorization"
	MessageDayState      = "day_state"
	MessageError         = "error"
)

// Message is an outbound tagged message.
type Message struct {
	Type       string        `json:"type"`
	Authorized *bool         `json:"authorized,omitempty"`
	Day        *int          `json:"day,omitempty"`
	Activity   string        `json:"activity,omitempty"`
	Completed  *bool         `json:"completed,omitempty"`
	Error      *CommandError `json:"error,omitempty"`
}

// AuthorizationMessage reports whether the user is signed in.
func AuthorizationMessage(authorized bool) Message {
	return Message{Type: MessageAuthorization, Authorized: &authorized}
}

// DayStateMessage reports a day and its journal entry. activity is empty
// when nothing was recorded.
func DayStateMessage(day int, activity string, completed bool) Message {
	return Message{Type: MessageDayState, Day: &day, Activity: activity, Completed: &completed}
}

// ErrorMessage reports a failed command.
func ErrorMessage(err *CommandError) Message {
	return Message{Type: MessageError, Error: err}
}
