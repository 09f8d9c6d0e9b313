package bridge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/fitsync/internal/model"
)

// Command type tags.
const (
	TypeGetState    = "get_state"
	TypeSetDay      = "set_day"
	TypeSetActivity = "set_activity"
)

// Command is an inbound companion command. The set is closed: GetState,
// SetDay and SetActivity.
type Command interface {
	commandType() string
}

// GetState asks for the state of Day, or of today when Day is nil.
type GetState struct {
	Day *int
}

// SetDay moves the run so that today is Day.
type SetDay struct {
	Day int
}

// SetActivity records the journal entry for Day.
type SetActivity struct {
	Day       int
	Activity  string
	Completed bool
}

func (GetState) commandType() string    { return TypeGetState }
func (SetDay) commandType() string      { return TypeSetDay }
func (SetActivity) commandType() string { return TypeSetActivity }

// TypeOf returns the wire tag of cmd.
func TypeOf(cmd Command) string { return cmd.commandType() }

// Error codes carried by CommandError.
const (
	CodeMalformed    = "malformed"
	CodeUnknownType  = "unknown_type"
	CodeInvalidField = "invalid_field"
	CodeUnavailable  = "unavailable"
	CodeInternal     = "internal"
)

// CommandError is a structured failure reported back to the sender.
type CommandError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func commandErrorf(code, format string, args ...any) *CommandError {
	return &CommandError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsCommandError extracts a *CommandError from err, wrapping anything else
// as an internal error.
func AsCommandError(err error) *CommandError {
	var ce *CommandError
	if errors.As(err, &ce) {
		return ce
	}
	return &CommandError{Code: CodeInternal, Message: err.Error()}
}

type rawCommand struct {
	Type      *string `json:"type"`
	Day       *int    `json:"day"`
	Activity  *string `json:"activity"`
	Completed *bool   `json:"completed"`
}

// ParseCommand decodes one command. Every failure is a *CommandError.
func ParseCommand(data []byte) (Command, error) {
	var raw rawCommand
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return nil, commandErrorf(CodeInvalidField, "field %q must be %s", typeErr.Field, typeErr.Type)
		}
		return nil, commandErrorf(CodeMalformed, "decode command: %v", err)
	}
	if raw.Type == nil || *raw.Type == "" {
		return nil, commandErrorf(CodeMalformed, "missing command type")
	}

	switch *raw.Type {
	case TypeGetState:
		if raw.Day != nil {
			if err := checkDay(*raw.Day); err != nil {
				return nil, err
			}
		}
		return GetState{Day: raw.Day}, nil

	case TypeSetDay:
		if raw.Day == nil {
			return nil, commandErrorf(CodeInvalidField, "set_day requires day")
		}
		if err := checkDay(*raw.Day); err != nil {
			return nil, err
		}
		return SetDay{Day: *raw.Day}, nil

	case TypeSetActivity:
		if raw.Day == nil {
			return nil, commandErrorf(CodeInvalidField, "set_activity requires day")
		}
		if err := checkDay(*raw.Day); err != nil {
			return nil, err
		}
		if raw.Activity == nil || *raw.Activity == "" {
			return nil, commandErrorf(CodeInvalidField, "set_activity requires activity")
		}
		cmd := SetActivity{Day: *raw.Day, Activity: *raw.Activity}
		if raw.Completed != nil {
			cmd.Completed = *raw.Completed
		}
		return cmd, nil

	default:
		return nil, commandErrorf(CodeUnknownType, "unknown command type %q", *raw.Type)
	}
}

func checkDay(day int) error {
	if day < 1 || day > model.ProgramDays {
		return commandErrorf(CodeInvalidField, "day %d out of range 1..%d", day, model.ProgramDays)
	}
	return nil
}
