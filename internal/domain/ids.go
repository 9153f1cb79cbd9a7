package domain

// SubjectID is the authenticated subject extracted from token claims (typically "sub").
// We model it as an opaque identifier: its format is controlled by the hosted auth backend.
type SubjectID string

// ProfileID is an internal identifier for a student profile record.
type ProfileID string

// PredictionID is an internal identifier for a prediction record.
type PredictionID string

// RegistrationID is the school-issued student number ("matricule").
type RegistrationID string
