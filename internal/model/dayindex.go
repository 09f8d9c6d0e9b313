package model

const (
	// CheckpointDay is the internal index of the program's final day.
	CheckpointDay = 100

	// ExternalCheckpointDay is the server's number for the checkpoint.
	ExternalCheckpointDay = 99

	// ProgramDays is the number of days in one run.
	ProgramDays = 100
)

// ToInternal maps a server day number to the client's internal day index.
// Server day 99 is the checkpoint; every other day maps to itself.
func ToInternal(external int) int {
	if external == ExternalCheckpointDay {
		return CheckpointDay
	}
	return external
}

// ToExternal maps an internal day index to the server's day number.
// Internal day 100 is sent as 99; every other day maps to itself.
func ToExternal(internal int) int {
	if internal == CheckpointDay {
		return ExternalCheckpointDay
	}
	return internal
}
