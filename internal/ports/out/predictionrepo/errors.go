package predictionrepo

import "errors"

var (
	// ErrNotFound indicates the requested prediction does not exist (or is not owned by the caller).
	ErrNotFound = errors.New("prediction not found")

	// ErrAlreadyVoted indicates the voter already has a prediction for the target.
	ErrAlreadyVoted = errors.New("prediction already exists for voter and target")

	// ErrAlreadyExists indicates a prediction already exists with the provided ID.
	ErrAlreadyExists = errors.New("prediction already exists")
)
