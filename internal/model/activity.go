package model

import "time"

// DailyActivity is the journal entry for one program day.
type DailyActivity struct {
	Day       int
	Name      string
	Completed bool
	UpdatedAt time.Time
}

// CustomExercise is a user-defined exercise. It survives a program reset.
type CustomExercise struct {
	ID        string
	Name      string
	CreatedAt time.Time
}
