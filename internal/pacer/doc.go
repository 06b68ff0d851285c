// Package pacer spaces out calls to rate-sensitive external services.
//
// Every call made through a Pacer waits for a token bucket slot, runs with a
// bounded retry policy, and is followed by a fixed cooldown. The cooldown
// applies after failures too, so a misbehaving service never sees a burst.
package pacer
