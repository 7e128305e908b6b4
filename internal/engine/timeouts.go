package engine

import "time"

// TimeoutPolicy decides how long a dispatched command may stay unanswered.
// A zero or negative duration leaves the command without a deadline, bounded
// only by caller context cancellation.
type TimeoutPolicy func(cmd string) time.Duration

// StaticTimeout applies one deadline to every command.
func StaticTimeout(d time.Duration) TimeoutPolicy {
	return func(string) time.Duration { return d }
}

// DefaultTimeout is the deadline used when no policy is configured.
const DefaultTimeout = 60 * time.Second
