package clock

import "time"

// Clock stamps profiles, predictions, setting changes and idempotency records.
type Clock interface {
	Now() time.Time
}
