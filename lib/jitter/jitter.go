package jitter

import (
	"math/rand/v2"
	"time"
)

// Cap the attempts so the shift below cannot overflow.
const maxAttemptsExponent = 30

// Jitter returns a random delay in [0, min(maxMs, baseMs * 2^attempts)).
// https://aws.amazon.com/blogs/architecture/exponential-backoff-and-jitter/
func Jitter(baseMs, maxMs, attempts int) time.Duration {
	if maxMs <= 0 {
		return 0
	}

	if attemptsMaxMs := baseMs * (1 << min(max(attempts, 0), maxAttemptsExponent)); attemptsMaxMs > 0 {
		maxMs = min(maxMs, attemptsMaxMs)
	}

	return time.Duration(rand.IntN(maxMs)) * time.Millisecond
}
