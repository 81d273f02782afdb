package models

import "time"

// Gender values assigned by the population generator.
const (
	GenderFemale    = "F"
	GenderMale      = "M"
	GenderNonBinary = "X"
)

// Person holds identity attributes shared by students.
type Person struct {
	ID          string    `db:"id" json:"id"`
	FirstName   string    `db:"first_name" json:"first_name"`
	LastName    string    `db:"last_name" json:"last_name"`
	BirthDate   time.Time `db:"birth_date" json:"birth_date"`
	Gender      string    `db:"gender" json:"gender"`
	Citizenship string    `db:"citizenship" json:"citizenship"`
}
