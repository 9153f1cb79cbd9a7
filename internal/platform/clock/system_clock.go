package clock

import (
	"time"

	clockport "github.com/promo-vote/predictions-api/internal/ports/out/clock"
)

var _ clockport.Clock = SystemClock{}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func NewSystemClock() SystemClock { return SystemClock{} }

func (SystemClock) Now() time.Time { return time.Now().UTC() }
