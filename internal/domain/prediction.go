package domain

import "time"

// Verdict is a voter's guess for a single module.
type Verdict string

const (
	VerdictValidated Verdict = "validated"
	VerdictRetake    Verdict = "retake"
)

func (v Verdict) Valid() bool {
	return v == VerdictValidated || v == VerdictRetake
}

// Prediction is one student's guess of how a peer will fare: how many modules they
// will validate and how many they will have to retake.
type Prediction struct {
	ID       PredictionID
	VoterID  ProfileID
	TargetID ProfileID

	Validated int
	Retakes   int
	// Votes holds the optional per-module breakdown; nil when the voter only gave totals.
	Votes map[string]Verdict

	// VoterName and TargetName are denormalized for listings; empty when hidden.
	VoterName  string
	TargetName string

	CreatedAt time.Time
}

// PredictionStats summarizes the predictions received by one profile.
type PredictionStats struct {
	TotalVotes   int
	AvgValidated float64
	AvgRetakes   float64
}

// GlobalStats summarizes all predictions for the admin overview.
type GlobalStats struct {
	TotalVotes     int
	TotalUsers     int
	ActiveUsers    int
	MostVotedName  *string
	MostVotedCount int
	AvgValidated   float64
	AvgRetakes     float64
}
