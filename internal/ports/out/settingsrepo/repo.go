package settingsrepo

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates the setting has never been written.
var ErrNotFound = errors.New("setting not found")

// Repository stores raw string settings keyed by name.
type Repository interface {
	Get(ctx context.Context, key string) (string, error)
	All(ctx context.Context) (map[string]string, error)
	// Set writes a value, creating the key when needed.
	Set(ctx context.Context, key, value string, updatedAt time.Time) error
}
