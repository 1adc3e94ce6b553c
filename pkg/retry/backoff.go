package retry

import (
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Delay is the wait before attempt+1, without jitter. attempt starts at 1.
func (p Policy) Delay(attempt int) time.Duration {
	p = p.withDefaults()
	d := float64(p.InitialInterval) * math.Pow(p.Multiplier, float64(attempt-1))
	if d > float64(p.MaxInterval) {
		return p.MaxInterval
	}
	return time.Duration(d)
}

// backOff builds the exponential schedule. MaxElapsedTime of zero only bounds
// the schedule by MaxAttempts.
func (p Policy) backOff() backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.InitialInterval
	exp.MaxInterval = p.MaxInterval
	exp.Multiplier = p.Multiplier
	exp.MaxElapsedTime = p.MaxElapsedTime
	exp.Reset()
	return exp
}
