package ratelimit

import "time"

// Record is the fixed-window counter kept for one client key.
type Record struct {
	Count     int64
	ResetTime time.Time
}

// Expired reports whether the record's window has elapsed at now.
// An expired record behaves exactly like a missing one.
func (r Record) Expired(now time.Time) bool {
	return !r.ResetTime.After(now)
}

// Decision is the outcome of applying one request to a key.
type Decision struct {
	Allowed bool
	// Record is the key's state after the request was applied.
	Record Record
}

// Decide applies one request to the current record of a key and returns the
// next record together with the admission result.
//
// The algorithm is a fixed-window counter: a missing or expired record starts
// a new window with a count of one, a saturated record is left untouched and
// rejects, anything else is incremented. Bursts straddling a window boundary
// can therefore admit up to twice MaxRequests.
func Decide(current Record, found bool, policy Policy, now time.Time) Decision {
	if !found || current.Expired(now) {
		return Decision{
			Allowed: true,
			Record:  Record{Count: 1, ResetTime: now.Add(policy.Window)},
		}
	}

	if current.Count >= policy.MaxRequests {
		return Decision{Allowed: false, Record: current}
	}

	current.Count++

	return Decision{Allowed: true, Record: current}
}
