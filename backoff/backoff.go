// Package backoff provides a self-contained exponential back-off for retry
// loops: the delay between attempts grows by a constant factor and caps at
// a maximum. Instances are not safe for concurrent use.
package backoff

import "time"

// Defaults applied when the caller provides zero values, or when an
// Exponential is used as a zero value without initialization.
const (
	DefaultInitialInterval = 500 * time.Millisecond
	DefaultMultiplier      = 1.5
	DefaultMaxInterval     = 60 * time.Second
)

// Exponential multiplies the delay by multiplier on every Next, capping at
// maxInterval. The zero value is usable and picks the package defaults.
type Exponential struct {
	initialInterval time.Duration
	multiplier      float64
	maxInterval     time.Duration
	currentInterval time.Duration
}

// NewExponential creates an exponential back-off. Zero arguments select the
// package defaults.
//
// Example:
//
//	wait := backoff.NewExponential(100*time.Millisecond, 2, time.Second)
//	wait.Next() // 200ms
//	wait.Next() // 400ms
func NewExponential(
	initialInterval time.Duration,
	multiplier float64,
	maxInterval time.Duration,
) Exponential {
	return Exponential{
		initialInterval: initialInterval,
		multiplier:      multiplier,
		maxInterval:     maxInterval,
		currentInterval: initialInterval,
	}
}

// Next advances the strategy and returns the delay for this attempt.
func (e *Exponential) Next() time.Duration {
	e.safety()
	e.advance()

	return e.currentInterval
}

// Current returns the most recent delay without mutating state.
func (e *Exponential) Current() time.Duration {
	return e.currentInterval
}

// Reset puts the strategy back to its initial interval.
func (e *Exponential) Reset() {
	e.safety()
	e.currentInterval = e.initialInterval
}

// Wait sleeps for Next.
func (e *Exponential) Wait() {
	time.Sleep(e.Next())
}

func (e *Exponential) advance() {
	if e.currentInterval >= e.maxInterval {
		e.currentInterval = e.maxInterval

		return
	}

	e.currentInterval = min(
		time.Duration(float64(e.currentInterval)*e.multiplier),
		e.maxInterval,
	)
}

// safety substitutes defaults on first use so a zero value works.
func (e *Exponential) safety() {
	if e.initialInterval == 0 {
		e.initialInterval = DefaultInitialInterval
		e.currentInterval = DefaultInitialInterval
	}

	if e.maxInterval == 0 {
		e.maxInterval = DefaultMaxInterval
	}

	if e.multiplier == 0 {
		e.multiplier = DefaultMultiplier
	}
}
