package subscription

import "time"

// stackExpiry computes the new subscription expiry for a renewal. Paying again
// before the current expiry extends from that expiry, not from now, so no paid
// time is lost; otherwise the new period starts at now.
func stackExpiry(current *time.Time, now time.Time, duration time.Duration) time.Time {
	if current != nil && current.After(now) {
		return current.Add(duration)
	}
	return now.Add(duration)
}
