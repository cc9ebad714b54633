package resilience

import "time"

// Backoff is capped exponential backoff: Base * 2^(attempt-1), never above Cap.
type Backoff struct {
	Base time.Duration
	Cap  time.Duration
}

var (
	// InteractiveBackoff is used by user-facing operations (uploads, single-record writes).
	InteractiveBackoff = Backoff{Base: 1 * time.Second, Cap: 8 * time.Second}

	// BackendBackoff is used by backend-call retries such as cascade steps.
	BackendBackoff = Backoff{Base: 1 * time.Second, Cap: 8 * time.Second}
)

// DelayFor returns the wait before the next attempt. attempt is the 1-based
// index of the attempt that just failed.
func (b Backoff) DelayFor(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if b.Base <= 0 {
		return 0
	}

	delay := b.Base
	for i := 1; i < attempt; i++ {
		if b.Cap > 0 && delay >= b.Cap {
			break
		}
		if delay > maxDuration/2 {
			delay = maxDuration
			break
		}
		delay *= 2
	}

	if b.Cap > 0 && delay > b.Cap {
		delay = b.Cap
	}
	return delay
}

const maxDuration = time.Duration(1<<63 - 1)
