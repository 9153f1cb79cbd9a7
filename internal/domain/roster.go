package domain

// RosterEntry is a canonical student record from the static roster dataset.
// Entries are loaded once at startup and never mutated.
type RosterEntry struct {
	FullName       string
	RegistrationID RegistrationID
	Group          string
	Subgroup       string
}
